/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakeS3 struct {
	bucket, key string
	body        string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(strings.NewReader(f.body)),
		ContentType: aws.String("application/yaml"),
	}, nil
}

func newTestRouter(t *testing.T, s3client ObjectGetter) *Router {
	t.Helper()
	r := NewRouter(zerolog.Nop())
	r.Register("file", FileOpener{})
	r.Register("http", NewHTTPOpener(0))
	r.Register("s3", NewS3OpenerWithClient(s3client))
	return r
}

func TestFileOpener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.yaml")
	if err := os.WriteFile(path, []byte("duration: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRouter(t, &fakeS3{})
	for _, url := range []string{path, "file://" + path} {
		s, err := r.Open(context.Background(), url)
		if err != nil {
			t.Fatalf("Open(%q): %v", url, err)
		}
		if string(s.Peek(100)) != "duration: 3\n" {
			t.Fatalf("content = %q", s.Peek(100))
		}
	}

	if _, err := r.Open(context.Background(), filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHTTPOpener(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/missing" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "audio/x-mpegurl")
		_, _ = w.Write([]byte("#EXTM3U\na.yaml\n"))
	}))
	defer srv.Close()

	r := newTestRouter(t, &fakeS3{})
	s, err := r.Open(context.Background(), srv.URL+"/list.m3u")
	if err != nil {
		t.Fatal(err)
	}
	if s.ContentType != "audio/x-mpegurl" {
		t.Fatalf("content type = %q", s.ContentType)
	}
	if _, err := r.Open(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestS3Opener(t *testing.T) {
	fake := &fakeS3{body: "duration: 1\n"}
	r := newTestRouter(t, fake)

	s, err := r.Open(context.Background(), "s3://media/shows/ep1.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if fake.bucket != "media" || fake.key != "shows/ep1.yaml" {
		t.Fatalf("bucket=%q key=%q", fake.bucket, fake.key)
	}
	if s.Size() != len(fake.body) {
		t.Fatalf("size = %d", s.Size())
	}

	if _, _, err := ParseS3URL("s3://bucket-only"); err == nil {
		t.Fatal("expected error without key")
	}
}

func TestUnsupportedScheme(t *testing.T) {
	r := newTestRouter(t, &fakeS3{})
	if _, err := r.Open(context.Background(), "dvb://1"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("err = %v", err)
	}
}

func TestStreamOnceAndClose(t *testing.T) {
	s := New("x", "", []byte("abc"))
	if !s.Once("format-change") || s.Once("format-change") {
		t.Fatal("Once should fire exactly once")
	}
	_ = s.Close()
	_ = s.Close()
	if _, err := s.Reader(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Reader after Close err = %v", err)
	}
}
