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

// Ordered-list accessors for the lists a revision carries. Small lists
// (authors, categories, tags, references) are rewritten wholesale; the files
// list only ever grows through the O(1) append in AppendFile.

import (
	"context"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// Authors returns a revision's authors in list order.
func (repo *Repo) Authors(ctx context.Context, revisionUuid uuid.UUID) ([]*model.Author, error) {
	ids, err := model.ReadRefList(ctx, repo.Db, rdf.UriFor(revisionUuid), "authors")
	if err != nil {
		return nil, err
	}
	authors := make([]*model.Author, 0, len(ids))
	for _, id := range ids {
		props, err := model.LoadProperties(ctx, repo.Db, rdf.UriFor(id))
		if err != nil || !isOfClass(props, model.ClassAuthor) {
			continue
		}
		authors = append(authors, model.AuthorFromProperties(id, props))
	}
	return authors, nil
}

// AddAuthor inserts an author entity and appends it to the revision's author
// list.
func (repo *Repo) AddAuthor(ctx context.Context, revisionUuid uuid.UUID,
	author *model.Author) error {

	if author.UUID == (uuid.UUID{}) {
		author.UUID = uuid.New()
	}
	if err := repo.Db.Insert(ctx, author.Triples()); err != nil {
		return err
	}
	if err := model.AppendToList(ctx, repo.Db, rdf.UriFor(revisionUuid), "authors",
		rdf.NewUri(author.Uri())); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}

// RemoveAuthor detaches an author from the revision's list and deletes the
// author entity.
func (repo *Repo) RemoveAuthor(ctx context.Context, revisionUuid,
	authorUuid uuid.UUID) error {

	if err := model.RemoveFromList(ctx, repo.Db, rdf.UriFor(revisionUuid), "authors",
		rdf.NewUri(rdf.UriFor(authorUuid))); err != nil {
		return err
	}
	if err := repo.Db.DeleteSubject(ctx, rdf.UriFor(authorUuid)); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}

// Categories returns a revision's category identifiers in list order.
func (repo *Repo) Categories(ctx context.Context, revisionUuid uuid.UUID) ([]int, error) {
	values, err := model.ReadList(ctx, repo.Db, rdf.UriFor(revisionUuid), "categories")
	if err != nil {
		return nil, err
	}
	categories := make([]int, 0, len(values))
	for _, value := range values {
		if value.Kind() == rdf.Int {
			categories = append(categories, value.Int())
		}
	}
	return categories, nil
}

// WriteCategories replaces a revision's category list.
func (repo *Repo) WriteCategories(ctx context.Context, revisionUuid uuid.UUID,
	categories []int) error {

	values := make([]rdf.Value, 0, len(categories))
	for _, category := range categories {
		values = append(values, rdf.NewInt(category))
	}
	return model.WriteList(ctx, repo.Db, rdf.UriFor(revisionUuid), "categories", values)
}

// Tags returns a revision's tags in list order.
func (repo *Repo) Tags(ctx context.Context, revisionUuid uuid.UUID) ([]string, error) {
	return repo.stringList(ctx, revisionUuid, "tags")
}

// WriteTags replaces a revision's tag list.
func (repo *Repo) WriteTags(ctx context.Context, revisionUuid uuid.UUID,
	tags []string) error {
	return repo.writeStringList(ctx, revisionUuid, "tags", tags)
}

// References returns a revision's reference URLs in list order.
func (repo *Repo) References(ctx context.Context, revisionUuid uuid.UUID) ([]string, error) {
	return repo.stringList(ctx, revisionUuid, "references")
}

// WriteReferences replaces a revision's reference list.
func (repo *Repo) WriteReferences(ctx context.Context, revisionUuid uuid.UUID,
	references []string) error {
	return repo.writeStringList(ctx, revisionUuid, "references", references)
}

// Funding returns a revision's funding entries in list order.
func (repo *Repo) Funding(ctx context.Context, revisionUuid uuid.UUID) ([]string, error) {
	return repo.stringList(ctx, revisionUuid, "funding_list")
}

// WriteFunding replaces a revision's funding list.
func (repo *Repo) WriteFunding(ctx context.Context, revisionUuid uuid.UUID,
	funding []string) error {
	return repo.writeStringList(ctx, revisionUuid, "funding_list", funding)
}

// CollectionDatasets returns the container UUIDs of the datasets gathered by
// a collection revision, in list order.
func (repo *Repo) CollectionDatasets(ctx context.Context,
	revisionUuid uuid.UUID) ([]uuid.UUID, error) {
	return model.ReadRefList(ctx, repo.Db, rdf.UriFor(revisionUuid), "datasets")
}

// WriteCollectionDatasets replaces the dataset list of a collection revision.
func (repo *Repo) WriteCollectionDatasets(ctx context.Context,
	revisionUuid uuid.UUID, containers []uuid.UUID) error {

	values := make([]rdf.Value, 0, len(containers))
	for _, container := range containers {
		values = append(values, rdf.NewUri(rdf.UriFor(container)))
	}
	if err := model.WriteList(ctx, repo.Db, rdf.UriFor(revisionUuid), "datasets",
		values); err != nil {
		return err
	}
	repo.Cache.Invalidate("collections")
	return nil
}

// Files returns a revision's file records in list order.
func (repo *Repo) Files(ctx context.Context, revisionUuid uuid.UUID) ([]*model.File, error) {
	ids, err := model.ReadRefList(ctx, repo.Db, rdf.UriFor(revisionUuid), "files")
	if err != nil {
		return nil, err
	}
	files := make([]*model.File, 0, len(ids))
	for _, id := range ids {
		file, err := repo.FileByUuid(ctx, id)
		if err != nil || file == nil {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// FileByUuid loads one file record.
func (repo *Repo) FileByUuid(ctx context.Context, id uuid.UUID) (*model.File, error) {
	props, err := model.LoadProperties(ctx, repo.Db, rdf.UriFor(id))
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !isOfClass(props, model.ClassFile) {
		return nil, nil
	}
	return model.FileFromProperties(id, props), nil
}

// InsertFileRecord creates a file metadata record before any bytes are read.
// The insertion is serialized so two concurrent uploads can't race on the
// list rewrite a first append may perform.
func (repo *Repo) InsertFileRecord(ctx context.Context, file *model.File) error {
	repo.fileListLock.Lock()
	defer repo.fileListLock.Unlock()

	if file.UUID == (uuid.UUID{}) {
		file.UUID = uuid.New()
	}
	return repo.Db.Insert(ctx, file.Triples())
}

// AppendFile attaches a written file to its dataset's list with an O(1) tail
// append.
func (repo *Repo) AppendFile(ctx context.Context, file *model.File) error {
	repo.fileListLock.Lock()
	defer repo.fileListLock.Unlock()

	return model.AppendToList(ctx, repo.Db, rdf.UriFor(file.DatasetUUID), "files",
		rdf.NewUri(file.Uri()))
}

// UpdateFile rewrites a file record in place (size, digests, flags).
func (repo *Repo) UpdateFile(ctx context.Context, file *model.File) error {
	if err := repo.Db.DeleteSubject(ctx, file.Uri()); err != nil {
		return err
	}
	return repo.Db.Insert(ctx, file.Triples())
}

// DetachFile removes a file from its dataset's list and deletes the metadata
// record. Bytes on disk are left for the external reaper.
func (repo *Repo) DetachFile(ctx context.Context, revisionUuid,
	fileUuid uuid.UUID) error {

	if err := model.RemoveFromList(ctx, repo.Db, rdf.UriFor(revisionUuid), "files",
		rdf.NewUri(rdf.UriFor(fileUuid))); err != nil {
		return err
	}
	if err := repo.Db.DeleteSubject(ctx, rdf.UriFor(fileUuid)); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}

func (repo *Repo) stringList(ctx context.Context, revisionUuid uuid.UUID,
	name string) ([]string, error) {

	values, err := model.ReadList(ctx, repo.Db, rdf.UriFor(revisionUuid), name)
	if err != nil {
		return nil, err
	}
	strings := make([]string, 0, len(values))
	for _, value := range values {
		if value.Kind() == rdf.String {
			strings = append(strings, value.String())
		}
	}
	return strings, nil
}

func (repo *Repo) writeStringList(ctx context.Context, revisionUuid uuid.UUID,
	name string, entries []string) error {

	values := make([]rdf.Value, 0, len(entries))
	for _, entry := range entries {
		values = append(values, rdf.NewString(entry))
	}
	if err := model.WriteList(ctx, repo.Db, rdf.UriFor(revisionUuid), name,
		values); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}
