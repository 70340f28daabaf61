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
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// PrivateLinkByIdString looks a private link up by the opaque identifier
// appearing in its URL.
func (repo *Repo) PrivateLinkByIdString(ctx context.Context,
	idString string) (*model.PrivateLink, error) {

	triples, err := repo.Db.Match(ctx,
		rdf.ObjectPattern(rdf.Predicate("id_string"), rdf.NewString(idString)))
	if err != nil {
		return nil, err
	}
	for _, triple := range triples {
		link, err := repo.privateLinkBySubject(ctx, triple.Subject)
		if err == nil && link != nil {
			return link, nil
		}
	}
	return nil, nil
}

// PrivateLinksForItem returns a revision's private links in list order.
func (repo *Repo) PrivateLinksForItem(ctx context.Context,
	revisionUuid uuid.UUID) ([]*model.PrivateLink, error) {

	ids, err := model.ReadRefList(ctx, repo.Db, rdf.UriFor(revisionUuid), "private_links")
	if err != nil {
		return nil, err
	}
	links := make([]*model.PrivateLink, 0, len(ids))
	for _, id := range ids {
		link, err := repo.privateLinkBySubject(ctx, rdf.UriFor(id))
		if err == nil && link != nil {
			links = append(links, link)
		}
	}
	return links, nil
}

// CreatePrivateLink mints a private link for a revision. Only the item's
// owner may create links.
func (repo *Repo) CreatePrivateLink(ctx context.Context, revisionUuid,
	accountUuid uuid.UUID, whom, purpose, expiresDate string,
	readOnly, anonymize bool) (*model.PrivateLink, error) {

	repo.privateLinksLock.Lock()
	defer repo.privateLinksLock.Unlock()

	revision, err := repo.RevisionByUuid(ctx, revisionUuid)
	if err != nil {
		return nil, err
	}
	if revision == nil {
		return nil, &NotFoundError{}
	}
	if revision.AccountUUID != accountUuid {
		return nil, &PermissionDeniedError{}
	}

	idBytes := make([]byte, 24)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	link := &model.PrivateLink{
		UUID:        uuid.New(),
		IdString:    base64.RawURLEncoding.EncodeToString(idBytes),
		IsActive:    true,
		ReadOnly:    readOnly,
		Anonymize:   anonymize,
		ExpiresDate: expiresDate,
		Whom:        whom,
		Purpose:     purpose,
		ItemUUID:    revisionUuid,
	}
	if err := repo.Db.Insert(ctx, link.Triples()); err != nil {
		return nil, err
	}
	if err := model.AppendToList(ctx, repo.Db, revision.Uri(), "private_links",
		rdf.NewUri(link.Uri())); err != nil {
		return nil, err
	}
	repo.Cache.Invalidate("datasets")
	return link, nil
}

// DeletePrivateLink removes a private link from a revision. Only the item's
// owner may delete links.
func (repo *Repo) DeletePrivateLink(ctx context.Context, revisionUuid,
	linkUuid, accountUuid uuid.UUID) error {

	repo.privateLinksLock.Lock()
	defer repo.privateLinksLock.Unlock()

	revision, err := repo.RevisionByUuid(ctx, revisionUuid)
	if err != nil {
		return err
	}
	if revision == nil {
		return &NotFoundError{}
	}
	if revision.AccountUUID != accountUuid {
		return &PermissionDeniedError{}
	}
	if err := model.RemoveFromList(ctx, repo.Db, revision.Uri(), "private_links",
		rdf.NewUri(rdf.UriFor(linkUuid))); err != nil {
		return err
	}
	if err := repo.Db.DeleteSubject(ctx, rdf.UriFor(linkUuid)); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}

// ResolvePrivateLink maps an opaque link identifier to the revision it
// exposes. A missing or inactive link resolves to nothing; an expired link
// yields LinkExpiredError so callers render the expired-link page without
// logging a private view.
func (repo *Repo) ResolvePrivateLink(ctx context.Context,
	idString string) (*model.PrivateLink, *model.Revision, error) {

	link, err := repo.PrivateLinkByIdString(ctx, idString)
	if err != nil {
		return nil, nil, err
	}
	if link == nil || !link.IsActive {
		return nil, nil, &NotFoundError{}
	}
	if link.Expired(time.Now()) {
		return link, nil, &LinkExpiredError{}
	}
	revision, err := repo.RevisionByUuid(ctx, link.ItemUUID)
	if err != nil {
		return nil, nil, err
	}
	if revision == nil {
		return nil, nil, &NotFoundError{}
	}
	return link, revision, nil
}

func (repo *Repo) privateLinkBySubject(ctx context.Context,
	subject string) (*model.PrivateLink, error) {

	id, err := rdf.UuidFromUri(subject)
	if err != nil {
		return nil, err
	}
	props, err := model.LoadProperties(ctx, repo.Db, subject)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !isOfClass(props, model.ClassPrivateLink) {
		return nil, nil
	}
	return model.PrivateLinkFromProperties(id, props), nil
}
