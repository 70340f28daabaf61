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

import (
	"github.com/fernet/fernet-go"

	"github.com/datakeep/datakeep/config"
)

// While impersonating, an administrator's own session token travels in a
// secondary cookie, sealed so the browser can't read or forge it. Sealing
// uses the service cookie key, so restarting with a new key invalidates
// outstanding impersonations (which is what we want).

// SealToken seals a session token for transport in the impersonation cookie.
func SealToken(token string) (string, error) {
	key, err := cookieKey()
	if err != nil {
		return "", err
	}
	sealed, err := fernet.EncryptAndSign([]byte(token), key)
	if err != nil {
		return "", &TokenSealError{Message: err.Error()}
	}
	return string(sealed), nil
}

// UnsealToken recovers a session token from the impersonation cookie,
// returning "" when the cookie doesn't verify.
func UnsealToken(sealed string) (string, error) {
	key, err := cookieKey()
	if err != nil {
		return "", err
	}
	token := fernet.VerifyAndDecrypt([]byte(sealed), 0, []*fernet.Key{key})
	return string(token), nil
}

func cookieKey() (*fernet.Key, error) {
	keys, err := fernet.DecodeKeys(config.Service.CookieKey)
	if err != nil || len(keys) == 0 {
		return nil, &TokenSealError{Message: "no valid cookie key is configured"}
	}
	return keys[0], nil
}
