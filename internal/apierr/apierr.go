/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package apierr defines the fixed error taxonomy returned by the client API.
package apierr

import "errors"

// Code is a numeric API error. Zero is success; failures are negative.
type Code int

const (
	Success             Code = 0
	EventQueueFull      Code = -1
	NoMem               Code = -2
	Uninitialized       Code = -3
	InvalidParameter    Code = -4
	OptionNotFound      Code = -5
	OptionFormat        Code = -6
	OptionError         Code = -7
	PropertyNotFound    Code = -8
	PropertyFormat      Code = -9
	PropertyUnavailable Code = -10
	PropertyError       Code = -11
	Command             Code = -12
	LoadingFailed       Code = -13
	AOInitFailed        Code = -14
	VOInitFailed        Code = -15
	NothingToPlay       Code = -16
	UnknownFormat       Code = -17
	Unsupported         Code = -18
	NotImplemented      Code = -19
	Generic             Code = -20
)

var table = [...]string{
	"success",
	"event queue full",
	"memory allocation failed",
	"core not uninitialized",
	"invalid parameter",
	"option not found",
	"unsupported format for accessing option",
	"error setting option",
	"property not found",
	"unsupported format for accessing property",
	"property unavailable",
	"error accessing property",
	"error running command",
	"loading failed",
	"audio output initialization failed",
	"video output initialization failed",
	"no audio or video data played",
	"unrecognized file format",
	"not supported",
	"operation not implemented",
	"something happened",
}

// String returns the human readable text for code. Positive codes are
// treated as success.
func String(code Code) string {
	idx := -int(code)
	if idx < 0 {
		idx = 0
	}
	if idx < len(table) {
		return table[idx]
	}
	return "unknown error"
}

func (c Code) Error() string { return String(c) }

func (c Code) String() string { return String(c) }

// From extracts a Code from err. A nil error is Success; errors that do not
// wrap a Code map to fallback.
func From(err error, fallback Code) Code {
	if err == nil {
		return Success
	}
	var code Code
	if errors.As(err, &code) {
		return code
	}
	return fallback
}

// Err converts a code back to an error value, returning nil for success.
func Err(c Code) error {
	if c >= 0 {
		return nil
	}
	return c
}
