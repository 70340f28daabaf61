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

package accounts

import "fmt"

// This file defines errors associated with account and session operations.

// This error type is returned when an account can't be created from the
// given input.
type InvalidAccountError struct {
	Message string
}

func (e InvalidAccountError) Error() string {
	return fmt.Sprintf("Invalid account: %s", e.Message)
}

// This error type is returned when an account already exists for a given
// e-mail address.
type AlreadyExistsError struct {
	Email string
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("An account already exists for %s", e.Email)
}

// This error type is returned when an account can't be found.
type AccountNotFoundError struct {
}

func (e AccountNotFoundError) Error() string {
	return "The requested account was not found"
}

// This error type is returned when an impersonation cookie can't be sealed
// or unsealed.
type TokenSealError struct {
	Message string
}

func (e TokenSealError) Error() string {
	return fmt.Sprintf("Couldn't seal/unseal token: %s", e.Message)
}
