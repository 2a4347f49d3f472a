// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package errs defines the error kinds shared by the recovery components.
// Callers match them with errors.Is; the concrete message carries the details.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports malformed geometry, overlapping or gapped ranges,
	// or an invalid page size / array size.
	ErrConfiguration = errors.New("configuration error")

	// ErrBounds reports a virtual or physical offset outside the valid range.
	ErrBounds = errors.New("out of bounds")

	// ErrAmbiguous reports a heuristic that produced no dominant signal.
	ErrAmbiguous = errors.New("detection inconclusive")

	// ErrValidation reports a parity mismatch at one or more pages.
	ErrValidation = errors.New("parity validation failed")

	// ErrIO reports an unreadable or truncated underlying file.
	ErrIO = errors.New("i/o failure")
)

func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func Boundsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBounds, fmt.Sprintf(format, args...))
}

func Ambiguousf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAmbiguous, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IO wraps err as an I/O failure. Errors that already carry ErrIO are
// annotated without being wrapped twice.
func IO(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, ErrIO) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, msg, err)
}
