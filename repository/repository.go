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

// Package repository implements the item catalog: datasets and collections
// held in containers, their draft and published revisions, their ordered
// lists, and the sharing records (private links, collaborators) attached to
// them.
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/sparql"
)

// Repo provides item operations over the triple store. A few critical
// sections span several store writes and can't be expressed as one update;
// those are serialized by the named locks below.
type Repo struct {
	Db    sparql.Store
	Cache *cache.QueryCache

	// serializes private-link creation and deletion
	privateLinksLock sync.Mutex
	// serializes insertion of new file metadata records
	fileListLock sync.Mutex
	// serializes submit-for-review against concurrent edits
	submitLock sync.Mutex
}

func NewRepo(db sparql.Store, queryCache *cache.QueryCache) *Repo {
	return &Repo{Db: db, Cache: queryCache}
}

// WithSubmitLock runs f while holding the lock that keeps a dataset from
// being edited away from a valid state during submit-for-review.
func (repo *Repo) WithSubmitLock(f func() error) error {
	repo.submitLock.Lock()
	defer repo.submitLock.Unlock()
	return f()
}

func nowTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05")
}

// ContainerByUuid loads a container. A nil container with a nil error means
// "not found".
func (repo *Repo) ContainerByUuid(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	props, err := model.LoadProperties(ctx, repo.Db, rdf.UriFor(id))
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !isOfClass(props, model.ClassContainer) {
		return nil, nil
	}
	return model.ContainerFromProperties(id, props), nil
}

// RevisionByUuid loads a dataset or collection revision.
func (repo *Repo) RevisionByUuid(ctx context.Context, id uuid.UUID) (*model.Revision, error) {
	props, err := model.LoadProperties(ctx, repo.Db, rdf.UriFor(id))
	if err != nil {
		return nil, err
	}
	if len(props) == 0 ||
		(!isOfClass(props, model.ClassDataset) && !isOfClass(props, model.ClassCollection)) {
		return nil, nil
	}
	return model.RevisionFromProperties(id, props), nil
}

// Draft returns the container's draft revision, or nil when there is none.
func (repo *Repo) Draft(ctx context.Context, container *model.Container) (*model.Revision, error) {
	if container.DraftUUID == (uuid.UUID{}) {
		return nil, nil
	}
	return repo.RevisionByUuid(ctx, container.DraftUUID)
}

// PublishedRevisions returns the container's published revisions in version
// order.
func (repo *Repo) PublishedRevisions(ctx context.Context,
	container *model.Container) ([]*model.Revision, error) {

	subjects, err := model.ReferencingSubjects(ctx, repo.Db, "container", container.UUID)
	if err != nil {
		return nil, err
	}
	revisions := make([]*model.Revision, 0)
	for _, subject := range subjects {
		id, err := rdf.UuidFromUri(subject)
		if err != nil {
			continue
		}
		revision, err := repo.RevisionByUuid(ctx, id)
		if err != nil || revision == nil || !revision.IsPublic {
			continue
		}
		revisions = append(revisions, revision)
	}
	// versions are strictly increasing, so a simple insertion sort suffices
	for i := 1; i < len(revisions); i++ {
		for j := i; j > 0 && revisions[j-1].Version > revisions[j].Version; j-- {
			revisions[j-1], revisions[j] = revisions[j], revisions[j-1]
		}
	}
	return revisions, nil
}

// LatestPublished returns the container's latest published revision, or nil
// when nothing has been published yet.
func (repo *Repo) LatestPublished(ctx context.Context,
	container *model.Container) (*model.Revision, error) {

	revisions, err := repo.PublishedRevisions(ctx, container)
	if err != nil || len(revisions) == 0 {
		return nil, err
	}
	for _, revision := range revisions {
		if revision.IsLatest {
			return revision, nil
		}
	}
	return revisions[len(revisions)-1], nil
}

// PublishedVersion returns the container's published revision carrying the
// given version number.
func (repo *Repo) PublishedVersion(ctx context.Context, container *model.Container,
	version int) (*model.Revision, error) {

	revisions, err := repo.PublishedRevisions(ctx, container)
	if err != nil {
		return nil, err
	}
	for _, revision := range revisions {
		if revision.Version == version {
			return revision, nil
		}
	}
	return nil, nil
}

func isOfClass(props model.Properties, class string) bool {
	for _, value := range props[rdf.TypePredicate] {
		if value.Kind() == rdf.Uri && value.String() == class {
			return true
		}
	}
	return false
}
