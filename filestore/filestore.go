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

// Package filestore moves dataset bytes: streaming multipart ingestion
// against the account quota, delivery of single files and ZIP bundles, and
// thumbnail generation. Metadata lives in the item repository; this package
// owns the bytes on disk.
package filestore

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/accounts"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/repository"
)

// files at most this large can be flagged as images
const maxImageSize = 10 * 1000 * 1000

// Store binds the byte store to the item repository and the account store
// (for quota resolution).
type Store struct {
	Repo     *repository.Repo
	Accounts *accounts.Store
}

func NewStore(repo *repository.Repo, accountStore *accounts.Store) *Store {
	return &Store{Repo: repo, Accounts: accountStore}
}

// Location forms the primary-storage path of a file:
// {storage}/{container_uuid}_{file_uuid}.
func Location(containerUuid, fileUuid uuid.UUID) string {
	return filepath.Join(config.Storage.Storage,
		fmt.Sprintf("%s_%s", containerUuid, fileUuid))
}

// Path resolves where a file's bytes live. An explicit filesystem_location
// is authoritative; otherwise the primary layout applies.
func Path(containerUuid uuid.UUID, file *model.File) string {
	if file.FilesystemLocation != "" {
		return file.FilesystemLocation
	}
	return Location(containerUuid, file.UUID)
}

// Upload streams a multipart upload into the byte store. The body is read as
// a bounded stream: the quota is checked before any bytes are accepted, the
// file record exists before the first chunk is written, and a short or
// malformed stream persists the record with is_incomplete set so the
// depositor sees the failure.
func (store *Store) Upload(ctx context.Context, revision *model.Revision,
	account *model.Account, contentType string, contentLength int64,
	body io.Reader) (*model.File, error) {

	quota := store.Accounts.QuotaFor(account)
	used, err := store.Repo.AccountStorageUsed(ctx, account.UUID)
	if err != nil {
		return nil, err
	}
	if quota-used < 1 {
		return nil, &QuotaExceededError{QuotaBytes: quota, UsedBytes: used}
	}

	boundary, err := parseBoundary(contentType)
	if err != nil {
		return nil, err
	}
	part, err := openFilePart(io.LimitReader(body, contentLength), boundary)
	if err != nil {
		return nil, err
	}

	tokenBytes := make([]byte, 16)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format("2006-01-02T15:04:05")
	file := &model.File{
		UUID:        uuid.New(),
		DatasetUUID: revision.UUID,
		Name:        part.Filename,
		// the multipart framing makes the part smaller than the body
		Size:         int(contentLength) - 2*(len(boundary)+8),
		UploadToken:  hex.EncodeToString(tokenBytes),
		IsIncomplete: true,
		CreatedDate:  now,
		ModifiedDate: now,
	}
	if err := store.Repo.InsertFileRecord(ctx, file); err != nil {
		return nil, err
	}

	location := Location(revision.ContainerUUID, file.UUID)
	destination, err := os.OpenFile(location, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	hasher := md5.New()
	written, terminated, copyErr := part.copyBody(io.MultiWriter(destination, hasher))
	closeErr := destination.Close()
	if err := os.Chmod(location, 0400); err != nil {
		return nil, err
	}

	file.Size = int(written)
	file.ComputedMd5 = hex.EncodeToString(hasher.Sum(nil))
	file.FilesystemLocation = location
	file.IsIncomplete = !terminated || copyErr != nil || closeErr != nil
	file.IsImage = !file.IsIncomplete && written <= maxImageSize && isImageName(file.Name)
	file.ModifiedDate = time.Now().UTC().Format("2006-01-02T15:04:05")
	if err := store.Repo.UpdateFile(ctx, file); err != nil {
		return nil, err
	}
	if err := store.Repo.AppendFile(ctx, file); err != nil {
		return nil, err
	}

	store.Repo.InvalidateStorageCaches(account.UUID, revision.UUID)
	return file, nil
}

// Open returns a reader over a file's bytes along with their size.
func (store *Store) Open(containerUuid uuid.UUID,
	file *model.File) (io.ReadCloser, int64, error) {

	path := Path(containerUuid, file)
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, &FileMissingError{Path: path}
	}
	reader, err := os.Open(path)
	if err != nil {
		return nil, 0, &FileMissingError{Path: path}
	}
	return reader, info.Size(), nil
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}
