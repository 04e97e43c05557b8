/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPOpener fetches http and https URLs.
type HTTPOpener struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPOpener creates an opener with a bounded client.
func NewHTTPOpener(timeout time.Duration) *HTTPOpener {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPOpener{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		UserAgent: "playcore/1.0",
	}
}

// Open implements Opener.
func (o *HTTPOpener) Open(ctx context.Context, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return New(url, resp.Header.Get("Content-Type"), data), nil
}
