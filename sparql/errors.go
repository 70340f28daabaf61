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

package sparql

import (
	"errors"
	"fmt"
)

// returned by the in-memory store for the raw query passthroughs, which only
// the remote SPARQL endpoint can execute
var ErrRawQueriesUnsupported = errors.New("raw SPARQL queries require a remote endpoint")

// indicates that an update query was rejected by the endpoint; the write must
// be treated as not applied
type UpdateFailedError struct {
	Status int
}

func (e UpdateFailedError) Error() string {
	return fmt.Sprintf("the endpoint rejected an update query (HTTP %d)", e.Status)
}

// indicates that the endpoint could not be reached; it is marked down until
// the next successful call
type EndpointDownError struct {
	Endpoint string
	Message  string
}

func (e EndpointDownError) Error() string {
	return fmt.Sprintf("the endpoint '%s' is unreachable: %s", e.Endpoint, e.Message)
}
