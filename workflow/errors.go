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

package workflow

import "fmt"

// This file defines errors associated with the publication workflow.

// This error type is returned when a dataset is submitted for review while a
// review is already pending.
type AlreadyUnderReviewError struct {
}

func (e AlreadyUnderReviewError) Error() string {
	return "The dataset is already under review"
}

// This error type is returned when a requested review doesn't exist.
type ReviewNotFoundError struct {
}

func (e ReviewNotFoundError) Error() string {
	return "The requested review was not found"
}

// This error type is returned when a publish attempt fails. The draft is
// left intact so the publish can be retried.
type PublishFailedError struct {
	Message string
}

func (e PublishFailedError) Error() string {
	return fmt.Sprintf("Couldn't publish the dataset: %s", e.Message)
}
