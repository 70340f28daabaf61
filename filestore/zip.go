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

package filestore

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/frictionlessdata/datapackage-go/datapackage"
	"github.com/frictionlessdata/datapackage-go/validator"

	"github.com/datakeep/datakeep/model"
)

// WriteZip streams a ZIP bundle of a revision's files to w, with a
// Frictionless datapackage.json manifest describing the bundle. Link-only
// and incomplete files are skipped. The archive is written as it is built,
// so arbitrarily large bundles never accumulate in memory.
func (store *Store) WriteZip(w io.Writer, revision *model.Revision,
	files []*model.File) error {

	archive := zip.NewWriter(w)

	if manifest, err := bundleManifest(revision, files); err == nil {
		entry, err := archive.Create("datapackage.json")
		if err != nil {
			return err
		}
		if _, err := entry.Write(manifest); err != nil {
			return err
		}
	}

	for _, file := range files {
		if file.IsLinkOnly || file.IsIncomplete {
			continue
		}
		source, err := os.Open(Path(revision.ContainerUUID, file))
		if err != nil {
			continue // bytes reaped or never written; skip the entry
		}
		entry, err := archive.CreateHeader(&zip.FileHeader{
			Name:   file.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			source.Close()
			return err
		}
		if _, err := io.Copy(entry, source); err != nil {
			source.Close()
			return err
		}
		source.Close()
	}
	return archive.Close()
}

// slugs must satisfy the data-package name pattern
var slugPattern = regexp.MustCompile(`[^a-z0-9._-]+`)

// bundleManifest builds the datapackage.json descriptor for a bundle.
func bundleManifest(revision *model.Revision, files []*model.File) ([]byte, error) {
	resources := make([]any, 0, len(files))
	for _, file := range files {
		if file.IsLinkOnly || file.IsIncomplete {
			continue
		}
		resources = append(resources, map[string]any{
			"name":  slug(file.Name),
			"path":  file.Name,
			"bytes": file.Size,
			"hash":  "md5:" + file.ComputedMd5,
		})
	}
	descriptor := map[string]any{
		"name":      slug(revision.Title),
		"title":     revision.Title,
		"resources": resources,
	}
	pkg, err := datapackage.New(descriptor, ".", validator.InMemoryLoader())
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(pkg.Descriptor(), "", "  ")
}

func slug(name string) string {
	lowered := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	if lowered == "" {
		return "item"
	}
	return lowered
}
