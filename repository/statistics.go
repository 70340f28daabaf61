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

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/journal"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// Statistics summarizes the repository's holdings for the landing page and
// the administrative dashboard.
type Statistics struct {
	Datasets    int `json:"datasets"`
	Collections int `json:"collections"`
	Accounts    int `json:"authors"`
	Files       int `json:"files"`
	Bytes       int `json:"bytes"`
}

// RepositoryStatistics counts the repository's published datasets and
// collections (latest versions only; drafts and superseded versions don't
// count as holdings), plus accounts, stored files and bytes.
func (repo *Repo) RepositoryStatistics(ctx context.Context) (*Statistics, error) {
	if cached, found := repo.Cache.Get("repository_statistics", "totals"); found {
		return cached.(*Statistics), nil
	}

	stats := &Statistics{}
	for _, entry := range []struct {
		class string
		count *int
	}{
		{model.ClassDataset, &stats.Datasets},
		{model.ClassCollection, &stats.Collections},
	} {
		subjects, err := model.SubjectsOfClass(ctx, repo.Db, entry.class)
		if err != nil {
			return nil, err
		}
		for _, subject := range subjects {
			id, err := rdf.UuidFromUri(subject)
			if err != nil {
				continue
			}
			revision, err := repo.RevisionByUuid(ctx, id)
			if err != nil || revision == nil {
				continue
			}
			if revision.IsPublic && revision.IsLatest {
				*entry.count++
			}
		}
	}

	accountSubjects, err := model.SubjectsOfClass(ctx, repo.Db, model.ClassAccount)
	if err != nil {
		return nil, err
	}
	stats.Accounts = len(accountSubjects)

	subjects, err := model.SubjectsOfClass(ctx, repo.Db, model.ClassFile)
	if err != nil {
		return nil, err
	}
	for _, subject := range subjects {
		id, err := rdf.UuidFromUri(subject)
		if err != nil {
			continue
		}
		file, err := repo.FileByUuid(ctx, id)
		if err != nil || file == nil {
			continue
		}
		stats.Files++
		stats.Bytes += file.Size
	}

	repo.Cache.Put("repository_statistics", "totals", stats)
	return stats, nil
}

// AccountStorageUsed sums the sizes of all files attached to an account's
// datasets, the number the quota check compares against.
func (repo *Repo) AccountStorageUsed(ctx context.Context,
	accountUuid uuid.UUID) (int, error) {

	group := fmt.Sprintf("%s_storage", accountUuid)
	if cached, found := repo.Cache.Get(group, "used"); found {
		return cached.(int), nil
	}

	used := 0
	subjects, err := model.ReferencingSubjects(ctx, repo.Db, "account", accountUuid)
	if err != nil {
		return 0, err
	}
	for _, subject := range subjects {
		id, err := rdf.UuidFromUri(subject)
		if err != nil {
			continue
		}
		revision, err := repo.RevisionByUuid(ctx, id)
		if err != nil || revision == nil {
			continue
		}
		size, err := repo.DatasetStorageUsed(ctx, revision.UUID)
		if err != nil {
			return 0, err
		}
		used += size
	}

	repo.Cache.Put(group, "used", used)
	return used, nil
}

// DatasetStorageUsed sums the sizes of a revision's files.
func (repo *Repo) DatasetStorageUsed(ctx context.Context,
	revisionUuid uuid.UUID) (int, error) {

	group := fmt.Sprintf("%s_dataset_storage", revisionUuid)
	if cached, found := repo.Cache.Get(group, "used"); found {
		return cached.(int), nil
	}

	files, err := repo.Files(ctx, revisionUuid)
	if err != nil {
		return 0, err
	}
	used := 0
	for _, file := range files {
		if !file.IsLinkOnly {
			used += file.Size
		}
	}
	repo.Cache.Put(group, "used", used)
	return used, nil
}

// InvalidateStorageCaches drops the cached storage sums after an upload.
func (repo *Repo) InvalidateStorageCaches(accountUuid, revisionUuid uuid.UUID) {
	repo.Cache.Invalidate(fmt.Sprintf("%s_storage", accountUuid))
	repo.Cache.Invalidate(fmt.Sprintf("%s_dataset_storage", revisionUuid))
}

// ViewsTimeline returns per-day view counts for a container.
func (repo *Repo) ViewsTimeline(container *model.Container) ([]journal.DayCount, error) {
	return journal.Timeline(container.Uri(), journal.EventView)
}

// DownloadsTimeline returns per-day download counts for a container.
func (repo *Repo) DownloadsTimeline(container *model.Container) ([]journal.DayCount, error) {
	return journal.Timeline(container.Uri(), journal.EventDownload)
}

// UsageTotals returns total event counts by type for a container.
func (repo *Repo) UsageTotals(container *model.Container) (map[string]int, error) {
	return journal.Totals(container.Uri())
}
