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

package datacite

import "fmt"

// This file defines errors associated with the DataCite DOI registry client.

// This error type is returned when the registry isn't configured but a DOI
// operation is attempted in production mode.
type NotConfiguredError struct {
}

func (e NotConfiguredError) Error() string {
	return "The DOI registry is not configured"
}

// This error type is returned when a registry request fails with an
// unexpected HTTP status.
type RequestFailedError struct {
	Operation string
	Status    int
}

func (e RequestFailedError) Error() string {
	return fmt.Sprintf("DOI %s request failed with status %d", e.Operation, e.Status)
}
