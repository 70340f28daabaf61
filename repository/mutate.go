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

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// the ordered lists a revision may carry; their head and tail pointers live
// on the revision subject and must survive scalar rewrites
var listNames = []string{"authors", "categories", "files", "tags", "references",
	"funding_list", "private_links", "collaborators", "datasets"}

// InsertDataset creates a container with a fresh draft revision owned by the
// given account, seeded with the depositor as its first author.
func (repo *Repo) InsertDataset(ctx context.Context, account *model.Account,
	title string) (*model.Container, *model.Revision, error) {

	if err := ValidateTitle(title); err != nil {
		return nil, nil, err
	}

	now := nowTimestamp()
	revision := &model.Revision{
		UUID:         uuid.New(),
		AccountUUID:  account.UUID,
		ItemType:     model.ItemTypeDataset,
		Title:        title,
		CreatedDate:  now,
		ModifiedDate: now,
		IsEditable:   true,
		GitUUID:      uuid.New(),
	}
	container := &model.Container{
		UUID:        uuid.New(),
		ItemType:    model.ItemTypeDataset,
		AccountUUID: account.UUID,
		DraftUUID:   revision.UUID,
	}
	revision.ContainerUUID = container.UUID

	author := &model.Author{
		UUID:        uuid.New(),
		FullName:    account.FullName,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		Email:       account.Email,
		IsActive:    true,
		IsPublic:    true,
		AccountUUID: account.UUID,
	}

	triples := append(container.Triples(), revision.Triples()...)
	triples = append(triples, author.Triples()...)
	if err := repo.Db.Insert(ctx, triples); err != nil {
		return nil, nil, err
	}
	if err := model.WriteList(ctx, repo.Db, revision.Uri(), "authors",
		[]rdf.Value{rdf.NewUri(author.Uri())}); err != nil {
		return nil, nil, err
	}
	repo.Cache.Invalidate("datasets")
	return container, revision, nil
}

// InsertCollection creates a container with a fresh draft collection.
// Collections carry no files and no git repository.
func (repo *Repo) InsertCollection(ctx context.Context, account *model.Account,
	title string) (*model.Container, *model.Revision, error) {

	if err := ValidateTitle(title); err != nil {
		return nil, nil, err
	}

	now := nowTimestamp()
	revision := &model.Revision{
		UUID:         uuid.New(),
		AccountUUID:  account.UUID,
		ItemType:     model.ItemTypeCollection,
		Title:        title,
		CreatedDate:  now,
		ModifiedDate: now,
		IsEditable:   true,
	}
	container := &model.Container{
		UUID:        uuid.New(),
		ItemType:    model.ItemTypeCollection,
		AccountUUID: account.UUID,
		DraftUUID:   revision.UUID,
	}
	revision.ContainerUUID = container.UUID

	triples := append(container.Triples(), revision.Triples()...)
	if err := repo.Db.Insert(ctx, triples); err != nil {
		return nil, nil, err
	}
	repo.Cache.Invalidate("collections")
	return container, revision, nil
}

// A DatasetUpdate carries the scalar fields (and the small lists) an edit
// request may change. Nil fields are left untouched.
type DatasetUpdate struct {
	Title           *string
	Description     *string
	License         *string
	Language        *string
	GroupId         *int
	ResourceDOI     *string
	ResourceTitle   *string
	Publisher       *string
	DefinedType     *string
	EmbargoType     *string
	EmbargoUntil    *string
	EmbargoTitle    *string
	EmbargoReason   *string
	IsEmbargoed     *bool
	IsRestricted    *bool
	IsMetadata      *bool
	EULA            *string
	AgreedToDeposit *bool
	AgreedToPublish *bool
	// nil leaves the list unchanged; empty replaces it with nothing
	Categories     []int
	Tags           []string
	ReferencesList []string
}

// UpdateDataset applies an edit to a draft revision. It refuses when the
// revision is published, and when the caller is neither the owner nor a
// collaborator with the metadata_edit bit.
func (repo *Repo) UpdateDataset(ctx context.Context, revisionUuid,
	accountUuid uuid.UUID, update DatasetUpdate) error {

	revision, err := repo.RevisionByUuid(ctx, revisionUuid)
	if err != nil {
		return err
	}
	if revision == nil {
		return &NotFoundError{}
	}
	if revision.IsPublic {
		return &PublishedImmutableError{}
	}
	mayEdit, err := repo.MayEditMetadata(ctx, revision, accountUuid)
	if err != nil {
		return err
	}
	if !mayEdit {
		return &PermissionDeniedError{}
	}

	applyString := func(target *string, source *string) {
		if source != nil {
			*target = *source
		}
	}
	applyBool := func(target *bool, source *bool) {
		if source != nil {
			*target = *source
		}
	}
	applyString(&revision.Title, update.Title)
	applyString(&revision.Description, update.Description)
	applyString(&revision.License, update.License)
	applyString(&revision.Language, update.Language)
	applyString(&revision.ResourceDOI, update.ResourceDOI)
	applyString(&revision.ResourceTitle, update.ResourceTitle)
	applyString(&revision.Publisher, update.Publisher)
	applyString(&revision.DefinedType, update.DefinedType)
	applyString(&revision.EmbargoType, update.EmbargoType)
	applyString(&revision.EmbargoUntilDate, update.EmbargoUntil)
	applyString(&revision.EmbargoTitle, update.EmbargoTitle)
	applyString(&revision.EmbargoReason, update.EmbargoReason)
	applyString(&revision.EULA, update.EULA)
	applyBool(&revision.IsEmbargoed, update.IsEmbargoed)
	applyBool(&revision.IsRestricted, update.IsRestricted)
	applyBool(&revision.IsMetadataRecord, update.IsMetadata)
	applyBool(&revision.AgreedToDepositAgreement, update.AgreedToDeposit)
	applyBool(&revision.AgreedToPublish, update.AgreedToPublish)
	if update.GroupId != nil {
		revision.GroupId = *update.GroupId
	}
	if err := ValidateTitle(revision.Title); err != nil {
		return err
	}
	if err := ValidateDescription(revision.Description); err != nil {
		return err
	}
	revision.ModifiedDate = nowTimestamp()

	if err := repo.RewriteRevision(ctx, revision); err != nil {
		return err
	}
	if update.Categories != nil {
		if err := repo.WriteCategories(ctx, revision.UUID, update.Categories); err != nil {
			return err
		}
	}
	if update.Tags != nil {
		if err := repo.WriteTags(ctx, revision.UUID, update.Tags); err != nil {
			return err
		}
	}
	if update.ReferencesList != nil {
		if err := repo.WriteReferences(ctx, revision.UUID, update.ReferencesList); err != nil {
			return err
		}
	}
	repo.Cache.Invalidate("datasets")
	repo.Cache.Invalidate("collections")
	return nil
}

// RewriteRevision replaces a revision's scalar triples while preserving its
// list head and tail pointers.
func (repo *Repo) RewriteRevision(ctx context.Context, revision *model.Revision) error {
	subject := revision.Uri()
	props, err := model.LoadProperties(ctx, repo.Db, subject)
	if err != nil {
		return err
	}
	preserved := make([]rdf.Triple, 0)
	for _, name := range listNames {
		for _, predicate := range []string{rdf.Predicate(name), rdf.Predicate(name + "_tail")} {
			for _, value := range props[predicate] {
				preserved = append(preserved, rdf.Triple{
					Subject: subject, Predicate: predicate, Object: value})
			}
		}
	}
	if err := repo.Db.DeleteSubject(ctx, subject); err != nil {
		return err
	}
	return repo.Db.Insert(ctx, append(revision.Triples(), preserved...))
}

// RewriteContainer replaces a container's triples.
func (repo *Repo) RewriteContainer(ctx context.Context, container *model.Container) error {
	if err := repo.Db.DeleteSubject(ctx, container.Uri()); err != nil {
		return err
	}
	return repo.Db.Insert(ctx, container.Triples())
}

// DeleteDatasetDraft removes a container's draft revision along with all the
// triples it owns (lists, authors, file records, private links). The
// container itself is retained even when no revisions remain.
func (repo *Repo) DeleteDatasetDraft(ctx context.Context, containerUuid,
	revisionUuid, accountUuid uuid.UUID) error {

	container, err := repo.ContainerByUuid(ctx, containerUuid)
	if err != nil {
		return err
	}
	if container == nil || container.DraftUUID != revisionUuid {
		return &NotFoundError{}
	}
	if container.AccountUUID != accountUuid {
		return &PermissionDeniedError{}
	}
	revision, err := repo.RevisionByUuid(ctx, revisionUuid)
	if err != nil {
		return err
	}
	if revision == nil {
		return &NotFoundError{}
	}

	// owned entities first, then the chains, then the revision itself
	for _, name := range []string{"authors", "files", "private_links"} {
		owned, err := model.ReadRefList(ctx, repo.Db, revision.Uri(), name)
		if err != nil {
			return err
		}
		for _, id := range owned {
			if err := repo.Db.DeleteSubject(ctx, rdf.UriFor(id)); err != nil {
				return err
			}
		}
	}
	for _, name := range listNames {
		if err := model.DeleteList(ctx, repo.Db, revision.Uri(), name); err != nil {
			return err
		}
	}
	if err := repo.Db.DeleteSubject(ctx, revision.Uri()); err != nil {
		return err
	}

	container.DraftUUID = uuid.UUID{}
	if err := repo.RewriteContainer(ctx, container); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	repo.Cache.Invalidate("collections")
	return nil
}

// CreateDraftFromPublished derives a new draft from the latest published
// revision, minus the DOI, the version number and the publication dates. It
// fails when the container already has a draft.
func (repo *Repo) CreateDraftFromPublished(ctx context.Context,
	containerUuid uuid.UUID) (*model.Revision, error) {

	container, err := repo.ContainerByUuid(ctx, containerUuid)
	if err != nil {
		return nil, err
	}
	if container == nil {
		return nil, &NotFoundError{}
	}
	if container.DraftUUID != (uuid.UUID{}) {
		return nil, &DraftExistsError{}
	}
	latest, err := repo.LatestPublished(ctx, container)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, &NotFoundError{}
	}

	draft := *latest
	draft.UUID = uuid.New()
	draft.DOI = ""
	draft.Version = 0
	draft.PublishedDate = ""
	draft.PostedDate = ""
	draft.SubmissionDate = ""
	draft.RevisionDate = ""
	draft.IsPublic = false
	draft.IsLatest = false
	draft.IsEditable = true
	draft.IsUnderReview = false
	draft.ModifiedDate = nowTimestamp()

	if err := repo.Db.Insert(ctx, draft.Triples()); err != nil {
		return nil, err
	}
	// lists are copied by value; listed entities stay shared with the source
	for _, name := range []string{"authors", "categories", "files", "tags",
		"references", "funding_list", "datasets"} {
		values, err := model.ReadList(ctx, repo.Db, latest.Uri(), name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		if err := model.WriteList(ctx, repo.Db, draft.Uri(), name, values); err != nil {
			return nil, err
		}
	}

	container.DraftUUID = draft.UUID
	if err := repo.RewriteContainer(ctx, container); err != nil {
		return nil, err
	}
	repo.Cache.Invalidate("datasets")
	repo.Cache.Invalidate("collections")
	return &draft, nil
}
