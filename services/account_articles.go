package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/repository"
)

// accountItem resolves a container id to the revision the owning account
// works with: the draft when one exists, the latest published version
// otherwise. The caller must hold metadata read rights.
func (service *service) accountItem(ctx context.Context, containerUuid uuid.UUID,
	account *model.Account) (*model.Container, *model.Revision, error) {

	container, err := service.Repo.ContainerByUuid(ctx, containerUuid)
	if err != nil {
		return nil, nil, domainError(err)
	}
	if container == nil {
		return nil, nil, huma.Error404NotFound("The requested item was not found")
	}
	revision, err := service.Repo.Draft(ctx, container)
	if err != nil {
		return nil, nil, domainError(err)
	}
	if revision == nil {
		if revision, err = service.Repo.LatestPublished(ctx, container); err != nil {
			return nil, nil, domainError(err)
		}
	}
	if revision == nil {
		return nil, nil, huma.Error404NotFound("The requested item was not found")
	}

	if revision.AccountUUID != account.UUID {
		grant, err := service.Repo.CollaboratorFor(ctx, container.UUID, account.UUID)
		if err != nil {
			return nil, nil, domainError(err)
		}
		if grant == nil || !grant.MetadataRead {
			return nil, nil, huma.Error403Forbidden("Permission denied")
		}
	}
	return container, revision, nil
}

type CreateItemInput struct {
	AuthInput
	Body struct {
		Title string `json:"title" doc:"the title of the new item"`
	}
}

type CreateItemOutput struct {
	Body struct {
		UUID     uuid.UUID `json:"uuid" doc:"the container UUID of the new item"`
		Location string    `json:"location" doc:"the URL of the new item"`
	}
	Status int
}

// handler method for listing the requester's datasets
func (service *service) getAccountArticles(ctx context.Context,
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

	revisions, err := service.Repo.Datasets(ctx, filters)
	if err != nil {
		return nil, domainError(err)
	}
	output := &ItemListOutput{Body: make([]ItemSummaryResponse, 0, len(revisions))}
	for _, revision := range revisions {
		output.Body = append(output.Body, itemSummary(revision))
	}
	return output, nil
}

// handler method for creating a new dataset draft
func (service *service) createAccountArticle(ctx context.Context,
	input *CreateItemInput) (*CreateItemOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	container, _, err := service.Repo.InsertDataset(ctx, account, input.Body.Title)
	if err != nil {
		return nil, domainError(err)
	}
	output := &CreateItemOutput{Status: http.StatusCreated}
	output.Body.UUID = container.UUID
	output.Body.Location = fmt.Sprintf("%s/v2/account/articles/%s",
		config.Service.BaseUrl, container.UUID)
	return output, nil
}

// handler method for fetching one of the requester's datasets
func (service *service) getAccountArticle(ctx context.Context,
	input *struct {
		AuthInput
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
	}) (*ItemDetailOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, revision, err := service.accountItem(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	detail, err := service.itemDetail(ctx, revision, true, false)
	if err != nil {
		return nil, domainError(err)
	}
	return &ItemDetailOutput{Body: *detail}, nil
}

// the editable fields of an item; absent fields stay unchanged
type ItemUpdateBody struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	License         *string  `json:"license,omitempty"`
	Language        *string  `json:"language,omitempty"`
	GroupId         *int     `json:"group_id,omitempty"`
	ResourceDOI     *string  `json:"resource_doi,omitempty"`
	ResourceTitle   *string  `json:"resource_title,omitempty"`
	Publisher       *string  `json:"publisher,omitempty"`
	DefinedType     *string  `json:"defined_type,omitempty"`
	EmbargoType     *string  `json:"embargo_type,omitempty"`
	EmbargoUntil    *string  `json:"embargo_until_date,omitempty"`
	EmbargoTitle    *string  `json:"embargo_title,omitempty"`
	EmbargoReason   *string  `json:"embargo_reason,omitempty"`
	IsEmbargoed     *bool    `json:"is_embargoed,omitempty"`
	IsRestricted    *bool    `json:"is_restricted,omitempty"`
	IsMetadata      *bool    `json:"is_metadata_record,omitempty"`
	EULA            *string  `json:"eula,omitempty"`
	AgreedToDeposit *bool    `json:"agreed_to_deposit_agreement,omitempty"`
	AgreedToPublish *bool    `json:"agreed_to_publish,omitempty"`
	Categories      []int    `json:"categories,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	References      []string `json:"references,omitempty"`
}

func (body ItemUpdateBody) asUpdate() repository.DatasetUpdate {
	return repository.DatasetUpdate{
		Title:           body.Title,
		Description:     body.Description,
		License:         body.License,
		Language:        body.Language,
		GroupId:         body.GroupId,
		ResourceDOI:     body.ResourceDOI,
		ResourceTitle:   body.ResourceTitle,
		Publisher:       body.Publisher,
		DefinedType:     body.DefinedType,
		EmbargoType:     body.EmbargoType,
		EmbargoUntil:    body.EmbargoUntil,
		EmbargoTitle:    body.EmbargoTitle,
		EmbargoReason:   body.EmbargoReason,
		IsEmbargoed:     body.IsEmbargoed,
		IsRestricted:    body.IsRestricted,
		IsMetadata:      body.IsMetadata,
		EULA:            body.EULA,
		AgreedToDeposit: body.AgreedToDeposit,
		AgreedToPublish: body.AgreedToPublish,
		Categories:      body.Categories,
		Tags:            body.Tags,
		ReferencesList:  body.References,
	}
}

type NoContentOutput struct {
	Status int
}

// handler method for editing a dataset draft
func (service *service) updateAccountArticle(ctx context.Context,
	input *struct {
		AuthInput
		Id   uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
		Body ItemUpdateBody
	}) (*NoContentOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	container, err := service.Repo.ContainerByUuid(ctx, input.Id)
	if err != nil {
		return nil, domainError(err)
	}
	if container == nil {
		return nil, huma.Error404NotFound("The requested item was not found")
	}
	draft, err := service.Repo.Draft(ctx, container)
	if err != nil {
		return nil, domainError(err)
	}
	if draft == nil {
		return nil, huma.Error404NotFound("The item has no draft to edit")
	}
	if err := service.Repo.UpdateDataset(ctx, draft.UUID, account.UUID,
		input.Body.asUpdate()); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}

// handler method for deleting a dataset draft
func (service *service) deleteAccountArticle(ctx context.Context,
	input *struct {
		AuthInput
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
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

type AuthorListOutput struct {
	Body []AuthorResponse `doc:"the authors of an item"`
}

// handler method for listing the authors of one of the requester's datasets
func (service *service) getAccountArticleAuthors(ctx context.Context,
	input *struct {
		AuthInput
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
	}) (*AuthorListOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, revision, err := service.accountItem(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	authors, err := service.Repo.Authors(ctx, revision.UUID)
	if err != nil {
		return nil, domainError(err)
	}
	output := &AuthorListOutput{Body: make([]AuthorResponse, 0, len(authors))}
	for _, author := range authors {
		output.Body = append(output.Body, authorResponse(author))
	}
	return output, nil
}

// handler method for appending an author to a dataset draft
func (service *service) addAccountArticleAuthor(ctx context.Context,
	input *struct {
		AuthInput
		Id   uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
		Body struct {
			FullName  string `json:"full_name" doc:"the author's full name"`
			FirstName string `json:"first_name,omitempty"`
			LastName  string `json:"last_name,omitempty"`
			Email     string `json:"email,omitempty"`
			Orcid     string `json:"orcid_id,omitempty"`
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
	author := &model.Author{
		FullName:  input.Body.FullName,
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
		Email:     input.Body.Email,
		Orcid:     input.Body.Orcid,
		IsActive:  true,
		IsPublic:  true,
	}
	if err := service.Repo.AddAuthor(ctx, draft.UUID, author); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}

// handler method for removing an author from a dataset draft
func (service *service) removeAccountArticleAuthor(ctx context.Context,
	input *struct {
		AuthInput
		Id  uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
		Aid uuid.UUID `path:"aid" doc:"the UUID of the author"`
	}) (*NoContentOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, draft, err := service.editableDraft(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	if err := service.Repo.RemoveAuthor(ctx, draft.UUID, input.Aid); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}

// handler method for listing the files of one of the requester's datasets
func (service *service) getAccountArticleFiles(ctx context.Context,
	input *struct {
		AuthInput
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
	}) (*FileListOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, revision, err := service.accountItem(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	files, err := service.Repo.Files(ctx, revision.UUID)
	if err != nil {
		return nil, domainError(err)
	}
	output := &FileListOutput{Body: make([]FileResponse, 0, len(files))}
	for _, file := range files {
		output.Body = append(output.Body, fileResponse(file))
	}
	return output, nil
}

// handler method for detaching a file from a dataset draft. The bytes stay
// on disk for the storage reaper; only the metadata disappears.
func (service *service) deleteAccountArticleFile(ctx context.Context,
	input *struct {
		AuthInput
		Id  uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
		Fid uuid.UUID `path:"fid" doc:"the UUID of the file"`
	}) (*NoContentOutput, error) {

	account, err := service.accountFor(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	_, draft, err := service.editableDraft(ctx, input.Id, account)
	if err != nil {
		return nil, err
	}
	mayRemove, err := service.Repo.MayRemoveData(ctx, draft, account.UUID)
	if err != nil {
		return nil, domainError(err)
	}
	if !mayRemove {
		return nil, huma.Error403Forbidden("Permission denied")
	}
	if err := service.Repo.DetachFile(ctx, draft.UUID, input.Fid); err != nil {
		return nil, domainError(err)
	}
	return &NoContentOutput{Status: http.StatusNoContent}, nil
}

// editableDraft resolves a container id to its draft and checks the
// requester's metadata edit rights.
func (service *service) editableDraft(ctx context.Context, containerUuid uuid.UUID,
	account *model.Account) (*model.Container, *model.Revision, error) {

	container, err := service.Repo.ContainerByUuid(ctx, containerUuid)
	if err != nil {
		return nil, nil, domainError(err)
	}
	if container == nil {
		return nil, nil, huma.Error404NotFound("The requested item was not found")
	}
	draft, err := service.Repo.Draft(ctx, container)
	if err != nil {
		return nil, nil, domainError(err)
	}
	if draft == nil {
		return nil, nil, huma.Error404NotFound("The item has no draft")
	}
	mayEdit, err := service.Repo.MayEditMetadata(ctx, draft, account.UUID)
	if err != nil {
		return nil, nil, domainError(err)
	}
	if !mayEdit {
		return nil, nil, huma.Error403Forbidden("Permission denied")
	}
	return container, draft, nil
}
