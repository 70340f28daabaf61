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

// Collaborators returns a revision's collaborator grants in list order.
func (repo *Repo) Collaborators(ctx context.Context,
	revisionUuid uuid.UUID) ([]*model.Collaborator, error) {

	ids, err := model.ReadRefList(ctx, repo.Db, rdf.UriFor(revisionUuid), "collaborators")
	if err != nil {
		return nil, err
	}
	collaborators := make([]*model.Collaborator, 0, len(ids))
	for _, id := range ids {
		collaborator, err := repo.collaboratorBySubject(ctx, rdf.UriFor(id))
		if err == nil && collaborator != nil {
			collaborators = append(collaborators, collaborator)
		}
	}
	return collaborators, nil
}

// AddCollaborator grants another account permissions on a revision. Only the
// item's owner may add collaborators; a collaborator bit never suffices.
func (repo *Repo) AddCollaborator(ctx context.Context, revisionUuid,
	granterUuid uuid.UUID, collaborator *model.Collaborator) error {

	revision, err := repo.RevisionByUuid(ctx, revisionUuid)
	if err != nil {
		return err
	}
	if revision == nil {
		return &NotFoundError{}
	}
	if revision.AccountUUID != granterUuid {
		return &PermissionDeniedError{}
	}

	if collaborator.UUID == (uuid.UUID{}) {
		collaborator.UUID = uuid.New()
	}
	collaborator.ItemUUID = revision.ContainerUUID
	collaborator.GranterUUID = granterUuid
	if err := repo.Db.Insert(ctx, collaborator.Triples()); err != nil {
		return err
	}
	if err := model.AppendToList(ctx, repo.Db, revision.Uri(), "collaborators",
		rdf.NewUri(collaborator.Uri())); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}

// RemoveCollaborator revokes a grant. Only the item's owner may remove
// collaborators.
func (repo *Repo) RemoveCollaborator(ctx context.Context, revisionUuid,
	collaboratorUuid, accountUuid uuid.UUID) error {

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
	if err := model.RemoveFromList(ctx, repo.Db, revision.Uri(), "collaborators",
		rdf.NewUri(rdf.UriFor(collaboratorUuid))); err != nil {
		return err
	}
	if err := repo.Db.DeleteSubject(ctx, rdf.UriFor(collaboratorUuid)); err != nil {
		return err
	}
	repo.Cache.Invalidate("datasets")
	return nil
}

// CollaboratorFor returns the grant an account holds on a container, or nil.
func (repo *Repo) CollaboratorFor(ctx context.Context, containerUuid,
	accountUuid uuid.UUID) (*model.Collaborator, error) {

	subjects, err := model.ReferencingSubjects(ctx, repo.Db, "account", accountUuid)
	if err != nil {
		return nil, err
	}
	for _, subject := range subjects {
		collaborator, err := repo.collaboratorBySubject(ctx, subject)
		if err != nil || collaborator == nil {
			continue
		}
		if collaborator.ItemUUID == containerUuid {
			return collaborator, nil
		}
	}
	return nil, nil
}

// MayEditMetadata reports whether an account may change a revision's
// metadata: the owner always may, collaborators need the metadata_edit bit.
func (repo *Repo) MayEditMetadata(ctx context.Context, revision *model.Revision,
	accountUuid uuid.UUID) (bool, error) {

	if revision.AccountUUID == accountUuid {
		return true, nil
	}
	collaborator, err := repo.CollaboratorFor(ctx, revision.ContainerUUID, accountUuid)
	if err != nil {
		return false, err
	}
	return collaborator != nil && collaborator.MetadataEdit, nil
}

// MayReadData reports whether an account may read a revision's files.
func (repo *Repo) MayReadData(ctx context.Context, revision *model.Revision,
	accountUuid uuid.UUID) (bool, error) {

	if revision.AccountUUID == accountUuid {
		return true, nil
	}
	collaborator, err := repo.CollaboratorFor(ctx, revision.ContainerUUID, accountUuid)
	if err != nil {
		return false, err
	}
	return collaborator != nil && collaborator.DataRead, nil
}

// MayEditData reports whether an account may add files to a revision.
func (repo *Repo) MayEditData(ctx context.Context, revision *model.Revision,
	accountUuid uuid.UUID) (bool, error) {

	if revision.AccountUUID == accountUuid {
		return true, nil
	}
	collaborator, err := repo.CollaboratorFor(ctx, revision.ContainerUUID, accountUuid)
	if err != nil {
		return false, err
	}
	return collaborator != nil && collaborator.DataEdit, nil
}

// MayRemoveData reports whether an account may remove files from a revision.
func (repo *Repo) MayRemoveData(ctx context.Context, revision *model.Revision,
	accountUuid uuid.UUID) (bool, error) {

	if revision.AccountUUID == accountUuid {
		return true, nil
	}
	collaborator, err := repo.CollaboratorFor(ctx, revision.ContainerUUID, accountUuid)
	if err != nil {
		return false, err
	}
	return collaborator != nil && collaborator.DataRemove, nil
}

func (repo *Repo) collaboratorBySubject(ctx context.Context,
	subject string) (*model.Collaborator, error) {

	id, err := rdf.UuidFromUri(subject)
	if err != nil {
		return nil, err
	}
	props, err := model.LoadProperties(ctx, repo.Db, subject)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !isOfClass(props, model.ClassCollaborator) {
		return nil, nil
	}
	return model.CollaboratorFromProperties(id, props), nil
}
