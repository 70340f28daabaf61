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

// This package contains testing utilities for the DataKeep repository.
package keeptest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/sparql"
)

// Enables DEBUG log messages for the repository's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

// a valid (but worthless) fernet key for sealing test cookies
const testCookieKey = "a2tra2tra2tra2tra2tra2tra2tra2tra2tra2tra2s="

// TestConfig returns YAML configuration data for a service whose storage
// roots all live under the given directory and whose triple store is purely
// in-memory. Two-factor prompts are disabled so login tests can complete in
// one round trip.
func TestConfig(root string) []byte {
	return []byte(fmt.Sprintf(`
service:
  port: 8080
  max_connections: 100
  base_url: http://localhost:8080
  session_cookie: datakeep_session
  cookie_key: %s
  disable_2fa: true
storage:
  data_dir: %s
  storage: %s
  thumbnail_storage: %s
  profile_images_storage: %s
triplestore:
  in_memory: true
datacite:
  prefix: 10.12345
quotas:
  default: 1000000
privileges:
  admin@example.com:
    may_administer: true
    may_review: true
    may_impersonate: true
    may_review_quotas: true
  reviewer@example.com:
    may_review: true
`, testCookieKey,
		root,
		filepath.Join(root, "files"),
		filepath.Join(root, "thumbnails"),
		filepath.Join(root, "profile_images")))
}

// InitConfig initializes the global configuration for tests rooted at the
// given directory.
func InitConfig(root string) error {
	return config.Init(TestConfig(root))
}

// NewStore creates a transient in-memory triple store.
func NewStore() *sparql.MemStore {
	store, _ := sparql.NewMemStore("", nil)
	return store
}
