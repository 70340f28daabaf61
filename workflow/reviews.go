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

// Package workflow drives the editorial lifecycle of a draft: submit for
// review, assign a reviewer, then publish or decline. Publishing reserves
// and registers DOIs at the configured registry before any state changes.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/datacite"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/repository"
)

// A Notifier tells reviewers about datasets awaiting their attention.
// E-mail delivery lives outside the core, so the default is a no-op.
type Notifier interface {
	SubmittedForReview(review *model.Review, revision *model.Revision)
}

type noopNotifier struct{}

func (noopNotifier) SubmittedForReview(*model.Review, *model.Revision) {}

// Flow binds the item repository, the DOI registry and the reviewer
// notifier into the publication state machine.
type Flow struct {
	Repo     *repository.Repo
	Registry datacite.Registry
	Notify   Notifier
}

func NewFlow(repo *repository.Repo, registry datacite.Registry) *Flow {
	return &Flow{Repo: repo, Registry: registry, Notify: noopNotifier{}}
}

func nowTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05")
}

// Reviews lists reviews with the given status ("" lists all).
func (flow *Flow) Reviews(ctx context.Context, status string) ([]*model.Review, error) {
	if cached, found := flow.Repo.Cache.Get("reviews", status); found {
		return cached.([]*model.Review), nil
	}
	subjects, err := model.SubjectsOfClass(ctx, flow.Repo.Db, model.ClassReview)
	if err != nil {
		return nil, err
	}
	reviews := make([]*model.Review, 0)
	for _, subject := range subjects {
		review, err := flow.reviewBySubject(ctx, subject)
		if err != nil || review == nil {
			continue
		}
		if status == "" || review.Status == status {
			reviews = append(reviews, review)
		}
	}
	flow.Repo.Cache.Put("reviews", status, reviews)
	return reviews, nil
}

// ReviewByUuid loads one review.
func (flow *Flow) ReviewByUuid(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	return flow.reviewBySubject(ctx, rdf.UriFor(id))
}

// ReviewForDataset returns the pending review of a dataset revision, if any.
func (flow *Flow) ReviewForDataset(ctx context.Context,
	revisionUuid uuid.UUID) (*model.Review, error) {

	subjects, err := model.SubjectsOfClass(ctx, flow.Repo.Db, model.ClassReview)
	if err != nil {
		return nil, err
	}
	datasetUri := rdf.UriFor(revisionUuid)
	for _, subject := range subjects {
		review, err := flow.reviewBySubject(ctx, subject)
		if err != nil || review == nil {
			continue
		}
		if review.DatasetUri == datasetUri &&
			(review.Status == model.ReviewUnassigned || review.Status == model.ReviewAssigned) {
			return review, nil
		}
	}
	return nil, nil
}

// SubmitForReview validates a draft and, when it passes, opens an
// unassigned review and marks the dataset as under review. Validation
// failures are returned as a field list so the depositor can fix them all
// at once.
func (flow *Flow) SubmitForReview(ctx context.Context, revisionUuid,
	accountUuid uuid.UUID) (*model.Review, error) {

	var review *model.Review
	err := flow.Repo.WithSubmitLock(func() error {
		revision, err := flow.Repo.RevisionByUuid(ctx, revisionUuid)
		if err != nil {
			return err
		}
		if revision == nil {
			return &repository.NotFoundError{}
		}
		if revision.IsPublic {
			return &repository.PublishedImmutableError{}
		}
		mayEdit, err := flow.Repo.MayEditMetadata(ctx, revision, accountUuid)
		if err != nil {
			return err
		}
		if !mayEdit {
			return &repository.PermissionDeniedError{}
		}
		if revision.IsUnderReview {
			return &AlreadyUnderReviewError{}
		}
		fieldErrors, err := flow.Repo.ValidateForSubmission(ctx, revisionUuid)
		if err != nil {
			return err
		}
		if len(fieldErrors) > 0 {
			return &repository.ValidationError{Errors: fieldErrors}
		}

		review = &model.Review{
			UUID:        uuid.New(),
			DatasetUri:  revision.Uri(),
			RequestDate: nowTimestamp(),
			Status:      model.ReviewUnassigned,
		}
		if err := flow.Repo.Db.Insert(ctx, review.Triples()); err != nil {
			return err
		}

		revision.IsUnderReview = true
		revision.SubmissionDate = nowTimestamp()
		if err := flow.Repo.RewriteRevision(ctx, revision); err != nil {
			return err
		}
		flow.Notify.SubmittedForReview(review, revision)
		return nil
	})
	if err != nil {
		return nil, err
	}
	flow.Repo.Cache.Invalidate("reviews")
	flow.Repo.Cache.Invalidate("datasets")
	return review, nil
}

// AssignReviewer assigns a pending review to a reviewer holding may_review.
func (flow *Flow) AssignReviewer(ctx context.Context, reviewUuid uuid.UUID,
	reviewer *model.Account) error {

	if !config.PrivilegeFor(reviewer.Email).MayReview {
		return &repository.PermissionDeniedError{}
	}
	review, err := flow.ReviewByUuid(ctx, reviewUuid)
	if err != nil {
		return err
	}
	if review == nil {
		return &ReviewNotFoundError{}
	}
	review.AssignedTo = reviewer.UUID
	review.Status = model.ReviewAssigned
	if err := flow.rewriteReview(ctx, review); err != nil {
		return err
	}
	flow.Repo.Cache.Invalidate("reviews")
	return nil
}

// Decline closes a review without publishing. The draft is retained, so the
// depositor can amend and resubmit.
func (flow *Flow) Decline(ctx context.Context, reviewUuid uuid.UUID,
	reviewer *model.Account) error {

	if !config.PrivilegeFor(reviewer.Email).MayReview {
		return &repository.PermissionDeniedError{}
	}
	review, err := flow.ReviewByUuid(ctx, reviewUuid)
	if err != nil {
		return err
	}
	if review == nil {
		return &ReviewNotFoundError{}
	}
	review.Status = model.ReviewDeclined
	if err := flow.rewriteReview(ctx, review); err != nil {
		return err
	}

	if id, err := rdf.UuidFromUri(review.DatasetUri); err == nil {
		revision, err := flow.Repo.RevisionByUuid(ctx, id)
		if err == nil && revision != nil {
			revision.IsUnderReview = false
			if err := flow.Repo.RewriteRevision(ctx, revision); err != nil {
				return err
			}
		}
	}
	flow.Repo.Cache.Invalidate("reviews")
	flow.Repo.Cache.Invalidate("datasets")
	return nil
}

func (flow *Flow) reviewBySubject(ctx context.Context, subject string) (*model.Review, error) {
	id, err := rdf.UuidFromUri(subject)
	if err != nil {
		return nil, err
	}
	props, err := model.LoadProperties(ctx, flow.Repo.Db, subject)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !hasClass(props, model.ClassReview) {
		return nil, nil
	}
	return model.ReviewFromProperties(id, props), nil
}

func (flow *Flow) rewriteReview(ctx context.Context, review *model.Review) error {
	if err := flow.Repo.Db.DeleteSubject(ctx, review.Uri()); err != nil {
		return err
	}
	return flow.Repo.Db.Insert(ctx, review.Triples())
}

func hasClass(props model.Properties, class string) bool {
	for _, value := range props[rdf.TypePredicate] {
		if value.Kind() == rdf.Uri && value.String() == class {
			return true
		}
	}
	return false
}
