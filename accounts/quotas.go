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

package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// InsertQuotaRequest files a request for a larger storage quota.
func (store *Store) InsertQuotaRequest(ctx context.Context, accountUuid uuid.UUID,
	requestedSize int, reason string) (*model.QuotaRequest, error) {

	account, err := store.AccountByUuid(ctx, accountUuid)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &AccountNotFoundError{}
	}
	request := &model.QuotaRequest{
		UUID:          uuid.New(),
		AccountUUID:   accountUuid,
		RequestedSize: requestedSize,
		Reason:        reason,
		Status:        model.QuotaUnresolved,
		CreatedDate:   time.Now().UTC().Format("2006-01-02T15:04:05"),
	}
	if err := store.Db.Insert(ctx, request.Triples()); err != nil {
		return nil, err
	}
	return request, nil
}

// QuotaRequests lists quota requests with the given status ("" lists all),
// for reviewers holding may_review_quotas.
func (store *Store) QuotaRequests(ctx context.Context,
	status string) ([]*model.QuotaRequest, error) {

	subjects, err := model.SubjectsOfClass(ctx, store.Db, model.ClassQuotaRequest)
	if err != nil {
		return nil, err
	}
	requests := make([]*model.QuotaRequest, 0)
	for _, subject := range subjects {
		id, err := rdf.UuidFromUri(subject)
		if err != nil {
			continue
		}
		props, err := model.LoadProperties(ctx, store.Db, subject)
		if err != nil || len(props) == 0 {
			continue
		}
		request := model.QuotaRequestFromProperties(id, props)
		if status == "" || request.Status == status {
			requests = append(requests, request)
		}
	}
	return requests, nil
}

// ResolveQuotaRequest approves or denies a quota request. Approval writes
// the requested size onto the account as its explicit quota.
func (store *Store) ResolveQuotaRequest(ctx context.Context, requestUuid uuid.UUID,
	approve bool) error {

	props, err := model.LoadProperties(ctx, store.Db, rdf.UriFor(requestUuid))
	if err != nil {
		return err
	}
	if len(props) == 0 {
		return &AccountNotFoundError{}
	}
	request := model.QuotaRequestFromProperties(requestUuid, props)

	request.Status = model.QuotaDenied
	if approve {
		request.Status = model.QuotaApproved
	}
	if err := store.Db.DeleteSubject(ctx, request.Uri()); err != nil {
		return err
	}
	if err := store.Db.Insert(ctx, request.Triples()); err != nil {
		return err
	}
	if approve {
		return store.UpdateQuota(ctx, request.AccountUUID, request.RequestedSize)
	}
	return nil
}

// UpdateQuota sets an account's explicit byte quota.
func (store *Store) UpdateQuota(ctx context.Context, accountUuid uuid.UUID,
	quotaBytes int) error {

	account, err := store.AccountByUuid(ctx, accountUuid)
	if err != nil {
		return err
	}
	if account == nil {
		return &AccountNotFoundError{}
	}
	account.QuotaBytes = quotaBytes
	if err := store.Db.DeleteSubject(ctx, account.Uri()); err != nil {
		return err
	}
	if err := store.Db.Insert(ctx, account.Triples()); err != nil {
		return err
	}
	store.Cache.Invalidate("accounts")
	return nil
}
