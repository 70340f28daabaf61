package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/model"
)

// The collection endpoints mirror the dataset ones; collections have no
// files, but carry an ordered list of member datasets instead.

// handler method for listing published collections
func (service *service) getCollections(ctx context.Context,
	input *listInput) (*ItemListOutput, error) {

	revisions, err := service.Repo.Collections(ctx, publicFilters(*input))
	if err != nil {
		return nil, domainError(err)
	}
	output := &ItemListOutput{Body: make([]ItemSummaryResponse, 0, len(revisions))}
	for _, revision := range revisions {
		output.Body = append(output.Body, itemSummary(revision))
	}
	return output, nil
}

type CollectionDetailOutput struct {
	Body struct {
		ItemDetailResponse
		Datasets []uuid.UUID `json:"datasets" doc:"the container UUIDs of the member datasets"`
	}
}

func (service *service) collectionDetail(ctx context.Context,
	revision *model.Revision) (*CollectionDetailOutput, error) {

	detail, err := service.itemDetail(ctx, revision, false, false)
	if err != nil {
		return nil, domainError(err)
	}
	members, err := service.Repo.CollectionDatasets(ctx, revision.UUID)
	if err != nil {
		return nil, domainError(err)
	}
	output := &CollectionDetailOutput{}
	output.Body.ItemDetailResponse = *detail
	output.Body.Datasets = members
	return output, nil
}

// handler method for fetching the latest published version of a collection
func (service *service) getCollection(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" doc:"the container UUID of the collection"`
	}) (*CollectionDetailOutput, error) {

	latest, err := service.publishedLatest(ctx, input.Id)
	if err != nil {
		return nil, err
	}
	return service.collectionDetail(ctx, latest)
}

// handler method for listing the published versions of a collection
func (service *service) getCollectionVersions(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" doc:"the container UUID of the collection"`
	}) (*ItemListOutput, error) {

	container, err := service.Repo.ContainerByUuid(ctx, input.Id)
	if err != nil {
		return nil, domainError(err)
	}
	if container == nil {
		return nil, huma.Error404NotFound("The requested item was not found")
	}
	revisions, err := service.Repo.PublishedRevisions(ctx, container)
	if err != nil {
		return nil, domainError(err)
	}
	output := &ItemListOutput{Body: make([]ItemSummaryResponse, 0, len(revisions))}
	for _, revision := range revisions {
		output.Body = append(output.Body, itemSummary(revision))
	}
	return output, nil
}

// handler method for fetching one published version of a collection
func (service *service) getCollectionVersion(ctx context.Context,
	input *struct {
		Id      uuid.UUID `path:"id" doc:"the container UUID of the collection"`
		Version int       `path:"version" doc:"the published version number"`
	}) (*CollectionDetailOutput, error) {

	container, err := service.Repo.ContainerByUuid(ctx, input.Id)
	if err != nil {
		return nil, domainError(err)
	}
	if container == nil {
		return nil, huma.Error404NotFound("The requested item was not found")
	}
	revision, err := service.Repo.PublishedVersion(ctx, container, input.Version)
	if err != nil {
		return nil, domainError(err)
	}
	if revision == nil {
		return nil, huma.Error404NotFound("The requested version was not found")
	}
	return service.collectionDetail(ctx, revision)
}

// handler method for listing the requester's collections
func (service *service) getAccountCollections(ctx context.Context,
	input *struct {
		AuthInput
		listInput
	}) (*ItemListOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	filters := publicFilters(input.listInput)
	filters.IsPublished = nil
	filters.IsLatest = nil
	filters.AccountUUID = &account.UUID

	revisions, err := service.Repo.Collections(ctx, filters)
	if err != nil {
		return nil, domainError(err)
	}
	output := &ItemListOutput{Body: make([]ItemSummaryResponse, 0, len(revisions))}
	for _, revision := range revisions {
		output.Body = append(output.Body, itemSummary(revision))
	}
	return output, nil
}

// handler method for creating a new collection draft
func (service *service) createAccountCollection(ctx context.Context,
	input *CreateItemInput) (*CreateItemOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	container, _, err := service.Repo.InsertCollection(ctx, account, input.Body.Title)
	if err != nil {
		return nil, domainError(err)
	}
	output := &CreateItemOutput{Status: http.StatusCreated}
	output.Body.UUID = container.UUID
	output.Body.Location = fmt.Sprintf("%s/v2/account/collections/%s",
		config.Service.BaseUrl, container.UUID)
	return output, nil
}

// handler method for fetching one of the requester's collections
func (service *service) getAccountCollection(ctx context.Context,
	input *struct {
		AuthInput
		Id uuid.UUID `path:"id" doc:"the container UUID of the collection"`
	}) (*CollectionDetailOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, revision, err := service.accountItem(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	return service.collectionDetail(ctx, revision)
}

// handler method for editing a collection draft
func (service *service) updateAccountCollection(ctx context.Context,
	input *struct {
		AuthInput
		Id   uuid.UUID `path:"id" doc:"the container UUID of the collection"`
		Body ItemUpdateBody
	}) (*NoContentOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, draft, err := service.editableDraft(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	if err := service.Repo.UpdateDataset(ctx, draft.UUID, account.UUID,
		input.Body.asUpdate()); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}

// handler method for deleting a collection draft
func (service *service) deleteAccountCollection(ctx context.Context,
	input *struct {
		AuthInput
		Id uuid.UUID `path:"id" doc:"the container UUID of the collection"`
	}) (*NoContentOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	container, err := service.Repo.ContainerByUuid(ctx, input.Id)
	if err != nil {
		return nil, domainError(err)
	}
	if container == nil || container.DraftUUID == (uuid.UUID{}) {
		return nil, huma.Error404NotFound("The item has no draft to delete")
	}
	if err := service.Repo.DeleteDatasetDraft(ctx, container.UUID,
		container.DraftUUID, account.UUID); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}

// handler method for overwriting the member list of a collection draft
func (service *service) putAccountCollectionDatasets(ctx context.Context,
	input *struct {
		AuthInput
		Id   uuid.UUID `path:"id" doc:"the container UUID of the collection"`
		Body struct {
			Datasets []uuid.UUID `json:"datasets" doc:"the container UUIDs of the member datasets"`
		}
	}) (*NoContentOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, draft, err := service.editableDraft(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	if err := service.Repo.WriteCollectionDatasets(ctx, draft.UUID,
		input.Body.Datasets); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}
