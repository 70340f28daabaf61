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

package gitbackend

import "fmt"

// This file defines errors associated with the git smart-HTTP backend.

// This error type is returned when a repository can't be created or opened.
type RepositoryError struct {
	Path    string
	Message string
}

func (e RepositoryError) Error() string {
	return fmt.Sprintf("Git repository error for %s: %s", e.Path, e.Message)
}

// This error type is returned when the git http-backend subprocess produces
// output that can't be parsed as a CGI response.
type BackendOutputError struct {
	Message string
}

func (e BackendOutputError) Error() string {
	return fmt.Sprintf("Couldn't parse git http-backend output: %s", e.Message)
}
