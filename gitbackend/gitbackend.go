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

// Package gitbackend serves the git repositories of software datasets over
// smart HTTP by proxying to the system's git http-backend executable. Every
// software dataset gets a bare repository {storage}/{git_uuid}.git, created
// on first use.
package gitbackend

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
)

// RepositoryPath forms the on-disk path of a dataset's bare repository.
func RepositoryPath(gitUuid uuid.UUID) string {
	return filepath.Join(config.Storage.Storage, gitUuid.String()+".git")
}

// EnsureRepository creates the bare repository for a dataset if it doesn't
// exist yet, returning its path.
func EnsureRepository(gitUuid uuid.UUID) (string, error) {
	path := RepositoryPath(gitUuid)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	output, err := exec.Command("git", "init", "--bare", path).CombinedOutput()
	if err != nil {
		return "", &RepositoryError{Path: path, Message: string(output)}
	}
	return path, nil
}

// Handle proxies one smart-HTTP request to git http-backend. subPath is the
// repository-relative part of the URL ("/info/refs", "/git-upload-pack", ...).
// The subprocess's CGI output is split at the first blank line into response
// headers and body and relayed verbatim.
func Handle(w http.ResponseWriter, r *http.Request, repositoryPath,
	subPath string) error {

	cmd := exec.CommandContext(r.Context(), "git", "http-backend")
	cmd.Env = append(os.Environ(),
		"GIT_HTTP_EXPORT_ALL=1",
		"REMOTE_USER=datakeep",
		"PATH_TRANSLATED="+filepath.Join(repositoryPath, subPath),
		"CONTENT_TYPE="+r.Header.Get("Content-Type"),
		"REQUEST_METHOD="+r.Method,
		"QUERY_STRING="+r.URL.RawQuery,
		"GIT_PROTOCOL="+r.Header.Get("Git-Protocol"),
	)
	if r.ContentLength >= 0 {
		cmd.Env = append(cmd.Env,
			fmt.Sprintf("CONTENT_LENGTH=%d", r.ContentLength))
	}
	cmd.Stdin = r.Body

	output, err := cmd.Output()
	if err != nil {
		return &BackendOutputError{Message: err.Error()}
	}
	return relayCgiResponse(w, output)
}

// relayCgiResponse splits CGI output into headers and body and writes them
// to the client.
func relayCgiResponse(w http.ResponseWriter, output []byte) error {
	headerBlock, body, found := bytes.Cut(output, []byte("\r\n\r\n"))
	if !found {
		headerBlock, body, found = bytes.Cut(output, []byte("\n\n"))
	}
	if !found {
		return &BackendOutputError{Message: "no header/body separator"}
	}

	status := http.StatusOK
	scanner := bufio.NewScanner(bytes.NewReader(headerBlock))
	for scanner.Scan() {
		name, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "Status") {
			if code, err := strconv.Atoi(strings.Fields(value)[0]); err == nil {
				status = code
			}
			continue
		}
		w.Header().Add(name, value)
	}
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}

// DefaultBranch discovers the branch to present for a repository: the HEAD
// symref if its target exists, then master, then main, then the first local
// branch.
func DefaultBranch(repositoryPath string) string {
	branches := localBranches(repositoryPath)
	exists := func(branch string) bool {
		for _, known := range branches {
			if known == branch {
				return true
			}
		}
		return false
	}

	if head, err := os.ReadFile(filepath.Join(repositoryPath, "HEAD")); err == nil {
		target := strings.TrimSpace(strings.TrimPrefix(string(head), "ref:"))
		branch := strings.TrimPrefix(target, "refs/heads/")
		if branch != target && exists(branch) {
			return branch
		}
	}
	for _, candidate := range []string{"master", "main"} {
		if exists(candidate) {
			return candidate
		}
	}
	if len(branches) > 0 {
		return branches[0]
	}
	return ""
}

func localBranches(repositoryPath string) []string {
	branches := make([]string, 0)
	headsDir := filepath.Join(repositoryPath, "refs", "heads")
	if entries, err := os.ReadDir(headsDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				branches = append(branches, entry.Name())
			}
		}
	}
	// packed refs hold branches that have no loose ref file
	if packed, err := os.ReadFile(filepath.Join(repositoryPath, "packed-refs")); err == nil {
		scanner := bufio.NewScanner(bytes.NewReader(packed))
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 {
				continue
			}
			branch := strings.TrimPrefix(fields[1], "refs/heads/")
			if branch != fields[1] {
				branches = append(branches, branch)
			}
		}
	}
	return branches
}
