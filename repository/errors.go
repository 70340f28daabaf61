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

package repository

import "fmt"

// This file defines errors associated with item repository operations.

// A FieldError names one invalid field in a request, in the shape the HTTP
// surface returns to clients.
type FieldError struct {
	FieldName string `json:"field_name"`
	Message   string `json:"message"`
}

// This error type is returned when one or more fields of a request are
// invalid. The field list is surfaced to the client verbatim.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("Invalid %s: %s", e.Errors[0].FieldName, e.Errors[0].Message)
	}
	return fmt.Sprintf("%d fields are invalid", len(e.Errors))
}

// This error type is returned when a requested item doesn't exist.
type NotFoundError struct {
}

func (e NotFoundError) Error() string {
	return "The requested item was not found"
}

// This error type is returned when the caller may not perform the requested
// operation on the item.
type PermissionDeniedError struct {
}

func (e PermissionDeniedError) Error() string {
	return "Permission denied"
}

// This error type is returned when a mutation targets a published (and
// therefore immutable) revision.
type PublishedImmutableError struct {
}

func (e PublishedImmutableError) Error() string {
	return "Published revisions can't be modified"
}

// This error type is returned when a private link has expired. Callers show
// the expired-link landing page instead of item content.
type LinkExpiredError struct {
}

func (e LinkExpiredError) Error() string {
	return "This private link has expired"
}

// This error type is returned when a draft is requested for a container that
// already has one.
type DraftExistsError struct {
}

func (e DraftExistsError) Error() string {
	return "The container already has a draft revision"
}
