/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package stream

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// FileOpener reads local paths and file:// URLs.
type FileOpener struct{}

// Path strips a file:// prefix.
func Path(url string) string {
	return strings.TrimPrefix(url, "file://")
}

// Open implements Opener.
func (FileOpener) Open(ctx context.Context, url string) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := Path(url)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open file: %s is a directory", path)
	}

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return New(url, mime.TypeByExtension(filepath.Ext(path)), data), nil
}
