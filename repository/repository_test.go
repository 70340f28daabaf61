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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/sparql"
)

func newTestRepo() *Repo {
	db, _ := sparql.NewMemStore("", nil)
	return NewRepo(db, cache.NewQueryCache())
}

func testAccount(email string) *model.Account {
	account := model.NewAccount(email)
	account.FullName = "Test Depositor"
	return account
}

// tests dataset creation: the container, its draft, and the seeded author
func TestInsertDataset(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")

	container, revision, err := repo.InsertDataset(ctx, account, "Plankton Counts")
	assert.Nil(err)
	assert.Equal(account.UUID, container.AccountUUID)
	assert.Equal(revision.UUID, container.DraftUUID)
	assert.Equal(container.UUID, revision.ContainerUUID)
	assert.Equal("Plankton Counts", revision.Title)
	assert.False(revision.IsPublic)
	assert.Zero(revision.Version)
	assert.NotEqual(uuid.UUID{}, revision.GitUUID)

	// the depositor is seeded as the first author
	authors, err := repo.Authors(ctx, revision.UUID)
	assert.Nil(err)
	assert.Len(authors, 1)
	assert.Equal("Test Depositor", authors[0].FullName)

	// the container reads back with its draft pointer intact
	loaded, err := repo.ContainerByUuid(ctx, container.UUID)
	assert.Nil(err)
	assert.Equal(revision.UUID, loaded.DraftUUID)
	draft, err := repo.Draft(ctx, loaded)
	assert.Nil(err)
	assert.Equal(revision.UUID, draft.UUID)
}

// tests that titles outside the length bounds are rejected as validation
// errors
func TestInsertRejectsBadTitles(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")

	for _, title := range []string{"", "ab", "   ab   "} {
		_, _, err := repo.InsertDataset(ctx, account, title)
		var validationErr *ValidationError
		assert.ErrorAs(err, &validationErr, "title '%s' wasn't rejected", title)
		assert.Equal("title", validationErr.Errors[0].FieldName)
	}
}

// tests scalar and list edits on a draft
func TestUpdateDataset(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")
	_, revision, _ := repo.InsertDataset(ctx, account, "Plankton Counts")

	description := "Weekly plankton counts from the North Sea."
	license := "CC-BY-4.0"
	err := repo.UpdateDataset(ctx, revision.UUID, account.UUID, DatasetUpdate{
		Description:    &description,
		License:        &license,
		Tags:           []string{"plankton", "north-sea"},
		Categories:     []int{12, 19},
		ReferencesList: []string{"https://example.com/cruise-report"},
	})
	assert.Nil(err)

	updated, _ := repo.RevisionByUuid(ctx, revision.UUID)
	assert.Equal(description, updated.Description)
	assert.Equal(license, updated.License)
	tags, _ := repo.Tags(ctx, revision.UUID)
	assert.Equal([]string{"plankton", "north-sea"}, tags)
	categories, _ := repo.Categories(ctx, revision.UUID)
	assert.Equal([]int{12, 19}, categories)

	// an update that doesn't mention the lists leaves them alone
	title := "Plankton Counts, Revised"
	assert.Nil(repo.UpdateDataset(ctx, revision.UUID, account.UUID,
		DatasetUpdate{Title: &title}))
	tags, _ = repo.Tags(ctx, revision.UUID)
	assert.Len(tags, 2)

	// authors survive scalar rewrites too
	authors, _ := repo.Authors(ctx, revision.UUID)
	assert.Len(authors, 1)
}

// tests that strangers can't edit a draft, and that a metadata_edit
// collaborator can
func TestUpdatePermissions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	owner := testAccount("owner@example.com")
	editor := testAccount("editor@example.com")
	reader := testAccount("reader@example.com")
	_, revision, _ := repo.InsertDataset(ctx, owner, "Shared Dataset")

	title := "Renamed"
	err := repo.UpdateDataset(ctx, revision.UUID, editor.UUID, DatasetUpdate{Title: &title})
	var denied *PermissionDeniedError
	assert.ErrorAs(err, &denied)

	// grant metadata_edit to the editor, metadata_read only to the reader
	assert.Nil(repo.AddCollaborator(ctx, revision.UUID, owner.UUID, &model.Collaborator{
		AccountUUID:  editor.UUID,
		MetadataRead: true,
		MetadataEdit: true,
	}))
	assert.Nil(repo.AddCollaborator(ctx, revision.UUID, owner.UUID, &model.Collaborator{
		AccountUUID:  reader.UUID,
		MetadataRead: true,
	}))

	assert.Nil(repo.UpdateDataset(ctx, revision.UUID, editor.UUID,
		DatasetUpdate{Title: &title}))
	err = repo.UpdateDataset(ctx, revision.UUID, reader.UUID, DatasetUpdate{Title: &title})
	assert.ErrorAs(err, &denied)
}

// tests that every absent permission bit denies its operation
func TestCollaboratorBitsAreIndependent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	owner := testAccount("owner@example.com")
	partner := testAccount("partner@example.com")
	_, revision, _ := repo.InsertDataset(ctx, owner, "Shared Dataset")

	assert.Nil(repo.AddCollaborator(ctx, revision.UUID, owner.UUID, &model.Collaborator{
		AccountUUID: partner.UUID,
		DataRead:    true,
	}))

	mayRead, _ := repo.MayReadData(ctx, revision, partner.UUID)
	assert.True(mayRead)
	mayEditData, _ := repo.MayEditData(ctx, revision, partner.UUID)
	assert.False(mayEditData)
	mayRemove, _ := repo.MayRemoveData(ctx, revision, partner.UUID)
	assert.False(mayRemove)
	mayEditMetadata, _ := repo.MayEditMetadata(ctx, revision, partner.UUID)
	assert.False(mayEditMetadata)

	// only the owner may grant; a collaborator bit never suffices
	err := repo.AddCollaborator(ctx, revision.UUID, partner.UUID, &model.Collaborator{
		AccountUUID: uuid.New(),
		DataRead:    true,
	})
	var denied *PermissionDeniedError
	assert.ErrorAs(err, &denied)
}

// tests collaborator revocation
func TestRemoveCollaborator(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	owner := testAccount("owner@example.com")
	partner := testAccount("partner@example.com")
	_, revision, _ := repo.InsertDataset(ctx, owner, "Shared Dataset")

	grant := &model.Collaborator{AccountUUID: partner.UUID, DataRead: true}
	assert.Nil(repo.AddCollaborator(ctx, revision.UUID, owner.UUID, grant))
	assert.Nil(repo.RemoveCollaborator(ctx, revision.UUID, grant.UUID, owner.UUID))

	mayRead, _ := repo.MayReadData(ctx, revision, partner.UUID)
	assert.False(mayRead)
	collaborators, _ := repo.Collaborators(ctx, revision.UUID)
	assert.Len(collaborators, 0)
}

// tests draft deletion: the owned entities disappear, the container remains
func TestDeleteDatasetDraft(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")
	container, revision, _ := repo.InsertDataset(ctx, account, "Doomed Draft")

	// a stranger can't delete it
	err := repo.DeleteDatasetDraft(ctx, container.UUID, revision.UUID, uuid.New())
	var denied *PermissionDeniedError
	assert.ErrorAs(err, &denied)

	assert.Nil(repo.DeleteDatasetDraft(ctx, container.UUID, revision.UUID, account.UUID))

	gone, _ := repo.RevisionByUuid(ctx, revision.UUID)
	assert.Nil(gone)
	remaining, _ := repo.ContainerByUuid(ctx, container.UUID)
	assert.NotNil(remaining)
	assert.Equal(uuid.UUID{}, remaining.DraftUUID)

	// deleting again reports not-found
	err = repo.DeleteDatasetDraft(ctx, container.UUID, revision.UUID, account.UUID)
	var notFound *NotFoundError
	assert.ErrorAs(err, &notFound)
}

// publishes a draft in place, the way the review workflow does, so that
// derived-draft behavior can be tested without the workflow package
func publishDraft(t *testing.T, repo *Repo, containerUuid uuid.UUID, version int) {
	ctx := context.Background()
	container, err := repo.ContainerByUuid(ctx, containerUuid)
	assert.Nil(t, err)
	draft, err := repo.Draft(ctx, container)
	assert.Nil(t, err)

	draft.IsPublic = true
	draft.IsLatest = true
	draft.IsEditable = false
	draft.Version = version
	draft.PublishedDate = "2025-05-01T00:00:00"
	assert.Nil(t, repo.RewriteRevision(ctx, draft))

	container.DraftUUID = uuid.UUID{}
	assert.Nil(t, repo.RewriteContainer(ctx, container))
	repo.Cache.InvalidateAll()
}

// tests deriving a new draft from the latest published version
func TestCreateDraftFromPublished(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")
	container, revision, _ := repo.InsertDataset(ctx, account, "Versioned Dataset")

	// nothing published yet
	_, err := repo.CreateDraftFromPublished(ctx, container.UUID)
	var notFound *NotFoundError
	assert.ErrorAs(err, &notFound)

	description := "v1 description"
	repo.UpdateDataset(ctx, revision.UUID, account.UUID, DatasetUpdate{
		Description: &description,
		Tags:        []string{"keep-me"},
	})
	publishDraft(t, repo, container.UUID, 1)

	draft, err := repo.CreateDraftFromPublished(ctx, container.UUID)
	assert.Nil(err)
	assert.NotEqual(revision.UUID, draft.UUID)
	assert.Equal("Versioned Dataset", draft.Title)
	assert.Equal(description, draft.Description)
	assert.False(draft.IsPublic)
	assert.Zero(draft.Version)
	assert.Empty(draft.DOI)
	assert.Empty(draft.PublishedDate)

	// the copied lists are independent of the published ones
	tags, _ := repo.Tags(ctx, draft.UUID)
	assert.Equal([]string{"keep-me"}, tags)
	assert.Nil(repo.WriteTags(ctx, draft.UUID, []string{"changed"}))
	publishedTags, _ := repo.Tags(ctx, revision.UUID)
	assert.Equal([]string{"keep-me"}, publishedTags)

	// a second derivation fails while the draft exists
	_, err = repo.CreateDraftFromPublished(ctx, container.UUID)
	var draftExists *DraftExistsError
	assert.ErrorAs(err, &draftExists)
}

// tests version bookkeeping across published revisions
func TestPublishedVersions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")
	container, _, _ := repo.InsertDataset(ctx, account, "Versioned Dataset")

	publishDraft(t, repo, container.UUID, 1)
	draft2, _ := repo.CreateDraftFromPublished(ctx, container.UUID)

	// demote v1 and publish v2, like the workflow does
	loaded, _ := repo.ContainerByUuid(ctx, container.UUID)
	v1, _ := repo.PublishedVersion(ctx, loaded, 1)
	v1.IsLatest = false
	assert.Nil(repo.RewriteRevision(ctx, v1))
	publishDraft(t, repo, container.UUID, 2)

	loaded, _ = repo.ContainerByUuid(ctx, container.UUID)
	revisions, err := repo.PublishedRevisions(ctx, loaded)
	assert.Nil(err)
	assert.Len(revisions, 2)
	assert.Equal(1, revisions[0].Version)
	assert.Equal(2, revisions[1].Version)

	latest, err := repo.LatestPublished(ctx, loaded)
	assert.Nil(err)
	assert.Equal(draft2.UUID, latest.UUID)
	assert.Equal(2, latest.Version)

	v1Again, _ := repo.PublishedVersion(ctx, loaded, 1)
	assert.NotNil(v1Again)
	missing, _ := repo.PublishedVersion(ctx, loaded, 9)
	assert.Nil(missing)
}

// tests listing visibility: anonymous callers see published items only,
// owners see their drafts, collaborators see shared items
func TestListingVisibility(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	owner := testAccount("owner@example.com")
	partner := testAccount("partner@example.com")

	published, _, _ := repo.InsertDataset(ctx, owner, "Published Dataset")
	publishDraft(t, repo, published.UUID, 1)
	_, draftRevision, _ := repo.InsertDataset(ctx, owner, "Private Draft")
	assert.Nil(repo.AddCollaborator(ctx, draftRevision.UUID, owner.UUID,
		&model.Collaborator{AccountUUID: partner.UUID, MetadataRead: true}))

	yes := true
	anonymous, err := repo.Datasets(ctx, Filters{IsPublished: &yes, NoCache: true})
	assert.Nil(err)
	assert.Len(anonymous, 1)
	assert.Equal("Published Dataset", anonymous[0].Title)

	mine, err := repo.Datasets(ctx, Filters{AccountUUID: &owner.UUID, NoCache: true})
	assert.Nil(err)
	assert.Len(mine, 2)

	shared, err := repo.Datasets(ctx, Filters{AccountUUID: &partner.UUID, NoCache: true})
	assert.Nil(err)
	assert.Len(shared, 2) // the published item plus the shared draft
}

// tests the search and paging filters
func TestListingFilters(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	owner := testAccount("owner@example.com")

	for _, title := range []string{"Arctic Ice Cores", "Arctic Seabirds", "Desert Soils"} {
		container, _, err := repo.InsertDataset(ctx, owner, title)
		assert.Nil(err)
		publishDraft(t, repo, container.UUID, 1)
	}

	found, err := repo.Datasets(ctx, Filters{Search: "arctic", NoCache: true})
	assert.Nil(err)
	assert.Len(found, 2)

	paged, err := repo.Datasets(ctx, Filters{Limit: 2, NoCache: true})
	assert.Nil(err)
	assert.Len(paged, 2)
	rest, err := repo.Datasets(ctx, Filters{Offset: 2, Limit: 2, NoCache: true})
	assert.Nil(err)
	assert.Len(rest, 1)
}

// tests private link lifecycle and expiry resolution
func TestPrivateLinks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	owner := testAccount("owner@example.com")
	_, revision, _ := repo.InsertDataset(ctx, owner, "Linked Dataset")

	// only the owner may mint links
	_, err := repo.CreatePrivateLink(ctx, revision.UUID, uuid.New(),
		"a colleague", "peer review", "", true, false)
	var denied *PermissionDeniedError
	assert.ErrorAs(err, &denied)

	link, err := repo.CreatePrivateLink(ctx, revision.UUID, owner.UUID,
		"a colleague", "peer review", "", true, true)
	assert.Nil(err)
	assert.NotEmpty(link.IdString)

	resolved, target, err := repo.ResolvePrivateLink(ctx, link.IdString)
	assert.Nil(err)
	assert.Equal(revision.UUID, target.UUID)
	assert.True(resolved.Anonymize)

	// an expired link resolves to LinkExpiredError
	expired, err := repo.CreatePrivateLink(ctx, revision.UUID, owner.UUID,
		"", "", "2001-01-01", false, false)
	assert.Nil(err)
	_, _, err = repo.ResolvePrivateLink(ctx, expired.IdString)
	var linkExpired *LinkExpiredError
	assert.ErrorAs(err, &linkExpired)

	// a deleted link stops resolving
	assert.Nil(repo.DeletePrivateLink(ctx, revision.UUID, link.UUID, owner.UUID))
	_, _, err = repo.ResolvePrivateLink(ctx, link.IdString)
	var notFound *NotFoundError
	assert.ErrorAs(err, &notFound)

	links, _ := repo.PrivateLinksForItem(ctx, revision.UUID)
	assert.Len(links, 1)
}

// tests the full pre-submission validation against an empty draft
func TestValidateForSubmission(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")
	_, revision, _ := repo.InsertDataset(ctx, account, "Sparse Draft")

	fieldErrors, err := repo.ValidateForSubmission(ctx, revision.UUID)
	assert.Nil(err)
	names := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		names = append(names, fieldError.FieldName)
	}
	assert.Contains(names, "description")
	assert.Contains(names, "license")
	assert.Contains(names, "tags")
	assert.Contains(names, "categories")
	assert.Contains(names, "files")
	assert.Contains(names, "agreed_to_deposit_agreement")
	assert.Contains(names, "agreed_to_publish")
	assert.NotContains(names, "title")
	assert.NotContains(names, "authors") // the depositor is seeded as author

	// filling the fields clears the errors; metadata-only waives the files
	description := "Now described."
	license := "CC0"
	yes := true
	assert.Nil(repo.UpdateDataset(ctx, revision.UUID, account.UUID, DatasetUpdate{
		Description:     &description,
		License:         &license,
		Tags:            []string{"sparse"},
		Categories:      []int{1},
		IsMetadata:      &yes,
		AgreedToDeposit: &yes,
		AgreedToPublish: &yes,
	}))
	fieldErrors, err = repo.ValidateForSubmission(ctx, revision.UUID)
	assert.Nil(err)
	assert.Empty(fieldErrors)
}

// tests author list editing
func TestAuthors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")
	_, revision, _ := repo.InsertDataset(ctx, account, "Authored Dataset")

	second := &model.Author{
		FullName: "Famke Janssen",
		Orcid:    "0000-0002-1825-0097",
		IsActive: true,
		IsPublic: true,
	}
	assert.Nil(repo.AddAuthor(ctx, revision.UUID, second))

	authors, _ := repo.Authors(ctx, revision.UUID)
	assert.Len(authors, 2)
	assert.Equal("Famke Janssen", authors[1].FullName)

	assert.Nil(repo.RemoveAuthor(ctx, revision.UUID, authors[0].UUID))
	authors, _ = repo.Authors(ctx, revision.UUID)
	assert.Len(authors, 1)
	assert.Equal("Famke Janssen", authors[0].FullName)
}

// tests the ordered member list of a collection
func TestCollectionDatasets(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("owner@example.com")

	memberA, _, _ := repo.InsertDataset(ctx, account, "Member A")
	memberB, _, _ := repo.InsertDataset(ctx, account, "Member B")
	_, collection, err := repo.InsertCollection(ctx, account, "A Collection")
	assert.Nil(err)

	assert.Nil(repo.WriteCollectionDatasets(ctx, collection.UUID,
		[]uuid.UUID{memberB.UUID, memberA.UUID}))
	members, err := repo.CollectionDatasets(ctx, collection.UUID)
	assert.Nil(err)
	assert.Equal([]uuid.UUID{memberB.UUID, memberA.UUID}, members)
}

// tests that holdings statistics count published latest versions only
func TestRepositoryStatistics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestRepo()
	account := testAccount("curator@example.com")
	assert.Nil(repo.Db.Insert(ctx, account.Triples()))

	// a dataset with a published version plus a fresh draft
	published, _, err := repo.InsertDataset(ctx, account, "Counted Dataset")
	assert.Nil(err)
	publishDraft(t, repo, published.UUID, 1)
	_, err = repo.CreateDraftFromPublished(ctx, published.UUID)
	assert.Nil(err)

	// a dataset that was never published
	_, _, err = repo.InsertDataset(ctx, account, "Draft Only")
	assert.Nil(err)

	// an unpublished collection
	_, _, err = repo.InsertCollection(ctx, account, "Draft Collection")
	assert.Nil(err)

	stats, err := repo.RepositoryStatistics(ctx)
	assert.Nil(err)
	assert.Equal(1, stats.Datasets)
	assert.Equal(0, stats.Collections)
	assert.Equal(1, stats.Accounts)
	assert.Equal(0, stats.Files)
	assert.Equal(0, stats.Bytes)

	// a second published version supersedes the first without double-counting
	container, err := repo.ContainerByUuid(ctx, published.UUID)
	assert.Nil(err)
	first, err := repo.LatestPublished(ctx, container)
	assert.Nil(err)
	first.IsLatest = false
	assert.Nil(repo.RewriteRevision(ctx, first))
	publishDraft(t, repo, published.UUID, 2)
	stats, err = repo.RepositoryStatistics(ctx)
	assert.Nil(err)
	assert.Equal(1, stats.Datasets)
}
