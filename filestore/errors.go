// Copyright (c) 2025 The DataKeep Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package filestore

import "fmt"

// This file defines errors associated with file storage operations.

// This error type is returned when an upload would exceed the account's
// storage quota. The quota accounting is surfaced to the client.
type QuotaExceededError struct {
	QuotaBytes int
	UsedBytes  int
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("Storage quota exceeded: %d of %d bytes used",
		e.UsedBytes, e.QuotaBytes)
}

// This error type is returned when a multipart request carries no usable
// boundary parameter.
type MissingBoundaryError struct {
}

func (e MissingBoundaryError) Error() string {
	return "The multipart request carries no boundary"
}

// This error type is returned when a multipart body ends before a file part
// is found.
type NoFilePartError struct {
}

func (e NoFilePartError) Error() string {
	return "The multipart request carries no file part"
}

// This error type is returned when a requested file's bytes can't be found
// on disk.
type FileMissingError struct {
	Path string
}

func (e FileMissingError) Error() string {
	return fmt.Sprintf("The file's bytes are missing from storage: %s", e.Path)
}
