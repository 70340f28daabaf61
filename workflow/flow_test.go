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

package workflow

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/datacite"
	"github.com/datakeep/datakeep/keeptest"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/repository"
	"github.com/datakeep/datakeep/sparql"
)

var testingDir string

// in_production is on so publishing talks to the (fake) DOI registry
const workflowConfig = `
service:
  base_url: http://localhost:8080
  cookie_key: a2tra2tra2tra2tra2tra2tra2tra2tra2tra2tra2s=
  in_production: true
storage:
  data_dir: TESTING_DIR
  storage: TESTING_DIR
triplestore:
  in_memory: true
datacite:
  prefix: 10.12345
privileges:
  reviewer@example.com:
    may_review: true
`

func TestMain(m *testing.M) {
	setup()
	status := m.Run()
	breakdown()
	os.Exit(status)
}

func setup() {
	keeptest.EnableDebugLogging()
	var err error
	testingDir, err = os.MkdirTemp(os.TempDir(), "datakeep-workflow-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}
	myConfig := strings.ReplaceAll(workflowConfig, "TESTING_DIR", testingDir)
	if err := config.Init([]byte(myConfig)); err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}
}

func breakdown() {
	if testingDir != "" {
		os.RemoveAll(testingDir)
	}
}

// a DOI registry that records its calls and can be told to fail
type fakeRegistry struct {
	reserved     []string
	registered   map[string]*datacite.Record
	landingUrls  map[string]string
	failReserve  bool
	failRegister bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		registered:  make(map[string]*datacite.Record),
		landingUrls: make(map[string]string),
	}
}

func (registry *fakeRegistry) Reserve(ctx context.Context, doi string) (string, error) {
	if registry.failReserve {
		return "", fmt.Errorf("the registry is unreachable")
	}
	registry.reserved = append(registry.reserved, doi)
	return doi, nil
}

func (registry *fakeRegistry) Register(ctx context.Context, doi,
	landingUrl string, record *datacite.Record) error {
	if registry.failRegister {
		return fmt.Errorf("the registry rejected the record")
	}
	registry.registered[doi] = record
	registry.landingUrls[doi] = landingUrl
	return nil
}

func newTestFlow() (*Flow, *fakeRegistry) {
	db, _ := sparql.NewMemStore("", nil)
	registry := newFakeRegistry()
	return NewFlow(repository.NewRepo(db, cache.NewQueryCache()), registry), registry
}

func testAccount(email string) *model.Account {
	account := model.NewAccount(email)
	account.FullName = "Test Person"
	return account
}

// creates a draft dataset that passes the pre-submission validation
func submittableDraft(t *testing.T, flow *Flow,
	owner *model.Account) (*model.Container, *model.Revision) {

	ctx := context.Background()
	container, revision, err := flow.Repo.InsertDataset(ctx, owner, "Glacier Melt Rates")
	assert.Nil(t, err)

	description := "Annual melt rates for twelve alpine glaciers."
	license := "CC-BY-4.0"
	yes := true
	err = flow.Repo.UpdateDataset(ctx, revision.UUID, owner.UUID, repository.DatasetUpdate{
		Description:     &description,
		License:         &license,
		Tags:            []string{"glaciers", "climate"},
		Categories:      []int{7},
		IsMetadata:      &yes,
		AgreedToDeposit: &yes,
		AgreedToPublish: &yes,
	})
	assert.Nil(t, err)
	updated, err := flow.Repo.RevisionByUuid(ctx, revision.UUID)
	assert.Nil(t, err)
	return container, updated
}

// tests that an incomplete draft can't be submitted, and that every failing
// field is reported at once
func TestSubmitValidationFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, _ := newTestFlow()
	owner := testAccount("owner@example.com")
	_, revision, _ := flow.Repo.InsertDataset(ctx, owner, "Sparse Draft")

	_, err := flow.SubmitForReview(ctx, revision.UUID, owner.UUID)
	var validationErr *repository.ValidationError
	assert.ErrorAs(err, &validationErr)
	assert.Greater(len(validationErr.Errors), 1)

	// the failed submission didn't open a review or flag the draft
	reviews, _ := flow.Reviews(ctx, "")
	assert.Len(reviews, 0)
	reloaded, _ := flow.Repo.RevisionByUuid(ctx, revision.UUID)
	assert.False(reloaded.IsUnderReview)
}

// tests the happy submission path
func TestSubmitForReview(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, _ := newTestFlow()
	owner := testAccount("owner@example.com")
	_, revision := submittableDraft(t, flow, owner)

	review, err := flow.SubmitForReview(ctx, revision.UUID, owner.UUID)
	assert.Nil(err)
	assert.Equal(model.ReviewUnassigned, review.Status)
	assert.Equal(revision.Uri(), review.DatasetUri)
	assert.NotEmpty(review.RequestDate)

	submitted, _ := flow.Repo.RevisionByUuid(ctx, revision.UUID)
	assert.True(submitted.IsUnderReview)
	assert.NotEmpty(submitted.SubmissionDate)

	found, err := flow.ReviewForDataset(ctx, revision.UUID)
	assert.Nil(err)
	assert.NotNil(found)
	assert.Equal(review.UUID, found.UUID)

	// a second submission while the review is pending is refused
	_, err = flow.SubmitForReview(ctx, revision.UUID, owner.UUID)
	var alreadyUnderReview *AlreadyUnderReviewError
	assert.ErrorAs(err, &alreadyUnderReview)
}

// tests that strangers can't submit someone else's draft
func TestSubmitPermissions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, _ := newTestFlow()
	owner := testAccount("owner@example.com")
	_, revision := submittableDraft(t, flow, owner)

	_, err := flow.SubmitForReview(ctx, revision.UUID, uuid.New())
	var denied *repository.PermissionDeniedError
	assert.ErrorAs(err, &denied)
}

// tests reviewer assignment and its privilege check
func TestAssignReviewer(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, _ := newTestFlow()
	owner := testAccount("owner@example.com")
	reviewer := testAccount("reviewer@example.com")
	_, revision := submittableDraft(t, flow, owner)
	review, _ := flow.SubmitForReview(ctx, revision.UUID, owner.UUID)

	// an account without may_review can't take the review
	err := flow.AssignReviewer(ctx, review.UUID, testAccount("nobody@example.com"))
	var denied *repository.PermissionDeniedError
	assert.ErrorAs(err, &denied)

	assert.Nil(flow.AssignReviewer(ctx, review.UUID, reviewer))
	assigned, _ := flow.ReviewByUuid(ctx, review.UUID)
	assert.Equal(model.ReviewAssigned, assigned.Status)
	assert.Equal(reviewer.UUID, assigned.AssignedTo)

	err = flow.AssignReviewer(ctx, uuid.New(), reviewer)
	var reviewNotFound *ReviewNotFoundError
	assert.ErrorAs(err, &reviewNotFound)
}

// tests that declining closes the review but keeps the draft editable
func TestDecline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, _ := newTestFlow()
	owner := testAccount("owner@example.com")
	reviewer := testAccount("reviewer@example.com")
	_, revision := submittableDraft(t, flow, owner)
	review, _ := flow.SubmitForReview(ctx, revision.UUID, owner.UUID)

	assert.Nil(flow.Decline(ctx, review.UUID, reviewer))

	declined, _ := flow.ReviewByUuid(ctx, review.UUID)
	assert.Equal(model.ReviewDeclined, declined.Status)
	draft, _ := flow.Repo.RevisionByUuid(ctx, revision.UUID)
	assert.NotNil(draft)
	assert.False(draft.IsUnderReview)
	assert.False(draft.IsPublic)

	// the depositor can amend and resubmit
	_, err := flow.SubmitForReview(ctx, revision.UUID, owner.UUID)
	assert.Nil(err)
}

// tests the full publish path: DOIs reserved and registered, catalog state
// flipped, review approved
func TestPublish(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, registry := newTestFlow()
	owner := testAccount("owner@example.com")
	reviewer := testAccount("reviewer@example.com")
	container, revision := submittableDraft(t, flow, owner)
	review, _ := flow.SubmitForReview(ctx, revision.UUID, owner.UUID)

	published, err := flow.Publish(ctx, container.UUID, reviewer)
	assert.Nil(err)
	assert.True(published.IsPublic)
	assert.True(published.IsLatest)
	assert.False(published.IsEditable)
	assert.False(published.IsUnderReview)
	assert.Equal(1, published.Version)
	assert.NotEmpty(published.PublishedDate)

	// the container DOI and the versioned DOI were both reserved
	containerDoi := fmt.Sprintf("10.12345/datakeep.%s", container.UUID)
	assert.Equal([]string{containerDoi, containerDoi + ".v1"}, registry.reserved)
	assert.Equal(containerDoi+".v1", published.DOI)

	// the registered record carries the item's metadata
	record := registry.registered[containerDoi+".v1"]
	assert.NotNil(record)
	assert.Equal([]string{"Glacier Melt Rates"}, record.Titles)
	assert.Equal([]string{"glaciers", "climate"}, record.Subjects)
	assert.Len(record.Creators, 1)
	assert.Equal("Test Person", record.Creators[0].Name)
	assert.Contains(registry.landingUrls[containerDoi+".v1"],
		fmt.Sprintf("/datasets/%s/1", container.UUID))

	// the container lost its draft and gained its DOI
	reloaded, _ := flow.Repo.ContainerByUuid(ctx, container.UUID)
	assert.Equal(containerDoi, reloaded.DOI)
	assert.Equal(uuid.UUID{}, reloaded.DraftUUID)

	approved, _ := flow.ReviewByUuid(ctx, review.UUID)
	assert.Equal(model.ReviewApproved, approved.Status)
}

// tests that a registry failure aborts the publish and leaves the draft
// untouched
func TestPublishFailureLeavesDraft(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, registry := newTestFlow()
	owner := testAccount("owner@example.com")
	reviewer := testAccount("reviewer@example.com")
	container, revision := submittableDraft(t, flow, owner)
	flow.SubmitForReview(ctx, revision.UUID, owner.UUID)

	registry.failReserve = true
	_, err := flow.Publish(ctx, container.UUID, reviewer)
	var publishFailed *PublishFailedError
	assert.ErrorAs(err, &publishFailed)

	draft, _ := flow.Repo.RevisionByUuid(ctx, revision.UUID)
	assert.NotNil(draft)
	assert.False(draft.IsPublic)
	assert.Empty(draft.DOI)
	reloaded, _ := flow.Repo.ContainerByUuid(ctx, container.UUID)
	assert.Equal(revision.UUID, reloaded.DraftUUID)

	// the same holds when registration fails after reservation
	registry.failReserve = false
	registry.failRegister = true
	_, err = flow.Publish(ctx, container.UUID, reviewer)
	assert.ErrorAs(err, &publishFailed)
	draft, _ = flow.Repo.RevisionByUuid(ctx, revision.UUID)
	assert.False(draft.IsPublic)
}

// tests publishing a second version
func TestPublishSecondVersion(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, registry := newTestFlow()
	owner := testAccount("owner@example.com")
	reviewer := testAccount("reviewer@example.com")
	container, revision := submittableDraft(t, flow, owner)
	flow.SubmitForReview(ctx, revision.UUID, owner.UUID)
	first, err := flow.Publish(ctx, container.UUID, reviewer)
	assert.Nil(err)

	draft, err := flow.Repo.CreateDraftFromPublished(ctx, container.UUID)
	assert.Nil(err)
	second, err := flow.Publish(ctx, container.UUID, reviewer)
	assert.Nil(err)
	assert.Equal(draft.UUID, second.UUID)
	assert.Equal(2, second.Version)
	assert.True(second.IsLatest)

	// v1 keeps its DOI but loses the latest flag
	previous, _ := flow.Repo.RevisionByUuid(ctx, first.UUID)
	assert.False(previous.IsLatest)
	assert.Equal(1, previous.Version)

	// the container DOI was reserved only once
	containerDoi := fmt.Sprintf("10.12345/datakeep.%s", container.UUID)
	assert.Equal([]string{containerDoi, containerDoi + ".v1", containerDoi + ".v2"},
		registry.reserved)
}

// tests that publishing requires the reviewer privilege
func TestPublishPermissions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	flow, _ := newTestFlow()
	owner := testAccount("owner@example.com")
	container, revision := submittableDraft(t, flow, owner)
	flow.SubmitForReview(ctx, revision.UUID, owner.UUID)

	_, err := flow.Publish(ctx, container.UUID, owner)
	var denied *repository.PermissionDeniedError
	assert.ErrorAs(err, &denied)
}
