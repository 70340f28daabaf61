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

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// Filters narrows an item listing. Nil pointer fields are "don't care".
// Anonymous listings see published revisions only; setting AccountUUID widens
// visibility to that account's own drafts and to items shared with it
// through collaborator grants.
type Filters struct {
	ContainerUUID *uuid.UUID
	RevisionUUID  *uuid.UUID
	GroupId       *int
	DOI           string
	Handle        string
	Categories    []int
	// timestamps in "2006-01-02T15:04:05" form
	ModifiedSince  string
	PublishedSince string
	AccountUUID    *uuid.UUID
	IsPublished    *bool
	IsLatest       *bool
	IsUnderReview  *bool
	IsRestricted   *bool
	IsEmbargoed    *bool
	IsSoftware     *bool
	PrivateLinkId  string
	// case-insensitive substring match over title, description and publisher
	Search     string
	ExcludeIds []uuid.UUID
	Offset     int
	// 0 means the default page size of 10
	Limit int
	// bypass the query cache for this call
	NoCache bool
}

const defaultPageSize = 10

// Datasets lists dataset revisions matching the filters.
func (repo *Repo) Datasets(ctx context.Context, filters Filters) ([]*model.Revision, error) {
	return repo.items(ctx, model.ClassDataset, "datasets", filters)
}

// Collections lists collection revisions matching the filters.
func (repo *Repo) Collections(ctx context.Context, filters Filters) ([]*model.Revision, error) {
	return repo.items(ctx, model.ClassCollection, "collections", filters)
}

func (repo *Repo) items(ctx context.Context, class, cachePrefix string,
	filters Filters) ([]*model.Revision, error) {

	group := cachePrefix
	if filters.AccountUUID != nil {
		group = fmt.Sprintf("%s_%s", cachePrefix, filters.AccountUUID)
	}
	key := fmt.Sprintf("%+v", filters)
	if !filters.NoCache {
		if cached, found := repo.Cache.Get(group, key); found {
			return cached.([]*model.Revision), nil
		}
	}

	subjects, err := model.SubjectsOfClass(ctx, repo.Db, class)
	if err != nil {
		return nil, err
	}
	shared, err := repo.sharedContainers(ctx, filters.AccountUUID)
	if err != nil {
		return nil, err
	}
	linkedItem, err := repo.privateLinkTarget(ctx, filters.PrivateLinkId)
	if err != nil {
		return nil, err
	}

	matches := make([]*model.Revision, 0)
	for _, subject := range subjects {
		id, err := rdf.UuidFromUri(subject)
		if err != nil {
			continue
		}
		revision, err := repo.RevisionByUuid(ctx, id)
		if err != nil || revision == nil {
			continue
		}
		if !repo.visible(revision, filters.AccountUUID, shared) {
			continue
		}
		passes, err := repo.passesFilters(ctx, revision, filters, linkedItem)
		if err != nil {
			return nil, err
		}
		if passes {
			matches = append(matches, revision)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ModifiedDate != matches[j].ModifiedDate {
			return matches[i].ModifiedDate > matches[j].ModifiedDate
		}
		return matches[i].Title < matches[j].Title
	})
	matches = page(matches, filters.Offset, filters.Limit)

	if !filters.NoCache {
		repo.Cache.Put(group, key, matches)
	}
	return matches, nil
}

// sharedContainers gathers the containers shared with an account through
// collaborator grants.
func (repo *Repo) sharedContainers(ctx context.Context,
	account *uuid.UUID) (map[uuid.UUID]bool, error) {

	shared := make(map[uuid.UUID]bool)
	if account == nil {
		return shared, nil
	}
	subjects, err := model.ReferencingSubjects(ctx, repo.Db, "account", *account)
	if err != nil {
		return nil, err
	}
	for _, subject := range subjects {
		id, err := rdf.UuidFromUri(subject)
		if err != nil {
			continue
		}
		props, err := model.LoadProperties(ctx, repo.Db, subject)
		if err != nil || !isOfClass(props, model.ClassCollaborator) {
			continue
		}
		collaborator := model.CollaboratorFromProperties(id, props)
		if collaborator.ItemUUID != (uuid.UUID{}) {
			shared[collaborator.ItemUUID] = true
		}
	}
	return shared, nil
}

func (repo *Repo) privateLinkTarget(ctx context.Context, idString string) (uuid.UUID, error) {
	if idString == "" {
		return uuid.UUID{}, nil
	}
	link, err := repo.PrivateLinkByIdString(ctx, idString)
	if err != nil || link == nil {
		return uuid.UUID{}, err
	}
	return link.ItemUUID, nil
}

func (repo *Repo) visible(revision *model.Revision, account *uuid.UUID,
	shared map[uuid.UUID]bool) bool {

	if revision.IsPublic {
		return true
	}
	if account == nil {
		return false
	}
	return revision.AccountUUID == *account || shared[revision.ContainerUUID]
}

func (repo *Repo) passesFilters(ctx context.Context, revision *model.Revision,
	filters Filters, linkedItem uuid.UUID) (bool, error) {

	if filters.ContainerUUID != nil && revision.ContainerUUID != *filters.ContainerUUID {
		return false, nil
	}
	if filters.RevisionUUID != nil && revision.UUID != *filters.RevisionUUID {
		return false, nil
	}
	if filters.GroupId != nil && revision.GroupId != *filters.GroupId {
		return false, nil
	}
	if filters.DOI != "" && revision.DOI != filters.DOI {
		return false, nil
	}
	if filters.Handle != "" && revision.Handle != filters.Handle {
		return false, nil
	}
	if filters.ModifiedSince != "" && revision.ModifiedDate < filters.ModifiedSince {
		return false, nil
	}
	if filters.PublishedSince != "" && revision.PublishedDate < filters.PublishedSince {
		return false, nil
	}
	if filters.IsPublished != nil && revision.IsPublic != *filters.IsPublished {
		return false, nil
	}
	if filters.IsLatest != nil && revision.IsLatest != *filters.IsLatest {
		return false, nil
	}
	if filters.IsUnderReview != nil && revision.IsUnderReview != *filters.IsUnderReview {
		return false, nil
	}
	if filters.IsRestricted != nil && revision.IsRestricted != *filters.IsRestricted {
		return false, nil
	}
	if filters.IsEmbargoed != nil && revision.IsEmbargoed != *filters.IsEmbargoed {
		return false, nil
	}
	if filters.IsSoftware != nil && revision.IsSoftware() != *filters.IsSoftware {
		return false, nil
	}
	if filters.PrivateLinkId != "" && revision.UUID != linkedItem {
		return false, nil
	}
	for _, excluded := range filters.ExcludeIds {
		if revision.UUID == excluded || revision.ContainerUUID == excluded {
			return false, nil
		}
	}
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		haystack := strings.ToLower(revision.Title + "\n" + revision.Description +
			"\n" + revision.Publisher)
		if !strings.Contains(haystack, needle) {
			return false, nil
		}
	}
	if len(filters.Categories) > 0 {
		categories, err := repo.Categories(ctx, revision.UUID)
		if err != nil {
			return false, err
		}
		found := false
		for _, wanted := range filters.Categories {
			for _, category := range categories {
				if category == wanted {
					found = true
				}
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

func page(revisions []*model.Revision, offset, limit int) []*model.Revision {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(revisions) {
		return []*model.Revision{}
	}
	end := offset + limit
	if end > len(revisions) {
		end = len(revisions)
	}
	return revisions[offset:end]
}
