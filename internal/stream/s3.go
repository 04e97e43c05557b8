/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the s3:// opener.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ObjectGetter is the part of the S3 client the opener uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Opener reads s3://bucket/key URLs.
type S3Opener struct {
	client ObjectGetter
}

// NewS3Opener builds an S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS chain applies.
func NewS3Opener(ctx context.Context, cfg S3Config) (*S3Opener, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Opener{client: client}, nil
}

// NewS3OpenerWithClient wraps an existing client.
func NewS3OpenerWithClient(client ObjectGetter) *S3Opener {
	return &S3Opener{client: client}
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(url string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", url)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs bucket and key: %s", url)
	}
	return bucket, key, nil
}

// Open implements Opener.
func (o *S3Opener) Open(ctx context.Context, url string) (*Stream, error) {
	bucket, key, err := ParseS3URL(url)
	if err != nil {
		return nil, err
	}
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return New(url, aws.ToString(out.ContentType), data), nil
}
