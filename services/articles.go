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

// itemURL forms the landing page URL of an item.
func itemURL(revision *model.Revision) string {
	kind := "datasets"
	if revision.ItemType == model.ItemTypeCollection {
		kind = "collections"
	}
	url := fmt.Sprintf("%s/%s/%s", config.Service.BaseUrl, kind,
		revision.ContainerUUID)
	if revision.Version > 0 {
		url = fmt.Sprintf("%s/%d", url, revision.Version)
	}
	return url
}

// itemSummary renders the list form of a revision. Items are identified by
// their container UUID; the revision UUIDs stay internal.
func itemSummary(revision *model.Revision) ItemSummaryResponse {
	summary := ItemSummaryResponse{
		UUID:          revision.ContainerUUID,
		Title:         revision.Title,
		DOI:           revision.DOI,
		Handle:        revision.Handle,
		URL:           itemURL(revision),
		PublishedDate: revision.PublishedDate,
		DefinedType:   revision.DefinedType,
		GroupId:       revision.GroupId,
	}
	if revision.Version > 0 {
		version := revision.Version
		summary.Version = &version
	}
	return summary
}

// itemDetail renders the full form of a revision, loading its lists. With
// anonymize set the author identities are withheld (private links may ask
// for that).
func (service *service) itemDetail(ctx context.Context,
	revision *model.Revision, includeFiles, anonymize bool) (*ItemDetailResponse, error) {

	detail := &ItemDetailResponse{
		ItemSummaryResponse: itemSummary(revision),
		Description:         revision.Description,
		License:             revision.License,
		Language:            revision.Language,
		ResourceDOI:         revision.ResourceDOI,
		ResourceTitle:       revision.ResourceTitle,
		Publisher:           revision.Publisher,
		CreatedDate:         revision.CreatedDate,
		ModifiedDate:        revision.ModifiedDate,
		EmbargoType:         revision.EmbargoType,
		EmbargoUntilDate:    revision.EmbargoUntilDate,
		IsPublic:            revision.IsPublic,
		IsEmbargoed:         revision.IsEmbargoed,
		IsMetadataRecord:    revision.IsMetadataRecord,
		IsUnderReview:       revision.IsUnderReview,
	}

	var err error
	if detail.Tags, err = service.Repo.Tags(ctx, revision.UUID); err != nil {
		return nil, err
	}
	if detail.Categories, err = service.Repo.Categories(ctx, revision.UUID); err != nil {
		return nil, err
	}
	if detail.References, err = service.Repo.References(ctx, revision.UUID); err != nil {
		return nil, err
	}
	detail.Authors = make([]AuthorResponse, 0)
	if !anonymize {
		authors, err := service.Repo.Authors(ctx, revision.UUID)
		if err != nil {
			return nil, err
		}
		for _, author := range authors {
			detail.Authors = append(detail.Authors, authorResponse(author))
		}
	}
	if includeFiles && revision.ItemType == model.ItemTypeDataset {
		files, err := service.Repo.Files(ctx, revision.UUID)
		if err != nil {
			return nil, err
		}
		detail.Files = make([]FileResponse, 0, len(files))
		for _, file := range files {
			detail.Files = append(detail.Files, fileResponse(file))
		}
	}
	return detail, nil
}

// publishedLatest resolves a container id to its latest published revision.
// Containers that were published and later retracted answer 410; everything
// else missing answers 404.
func (service *service) publishedLatest(ctx context.Context,
	containerUuid uuid.UUID) (*model.Revision, error) {

	container, err := service.Repo.ContainerByUuid(ctx, containerUuid)
	if err != nil {
		return nil, domainError(err)
	}
	if container == nil {
		return nil, huma.Error404NotFound("The requested item was not found")
	}
	latest, err := service.Repo.LatestPublished(ctx, container)
	if err != nil {
		return nil, domainError(err)
	}
	if latest == nil {
		if container.DOI != "" {
			// the item was published once; it is gone, not unknown
			return nil, &apiError{status: http.StatusGone,
				Message: "The requested item is no longer available", Code: http.StatusGone}
		}
		return nil, huma.Error404NotFound("The requested item was not found")
	}
	return latest, nil
}

// query parameters accepted by the public listings
type listInput struct {
	Page           int    `query:"page" doc:"1-based page number"`
	PageSize       int    `query:"page_size" doc:"results per page (default 10)"`
	PublishedSince string `query:"published_since" doc:"only items published after this timestamp"`
	ModifiedSince  string `query:"modified_since" doc:"only items modified after this timestamp"`
	Group          int    `query:"group" doc:"restrict to a group id"`
	DOI            string `query:"doi" doc:"restrict to a DOI"`
	Handle         string `query:"handle" doc:"restrict to a handle"`
	Search         string `query:"search" doc:"substring match over title, description and publisher"`
}

func publicFilters(input listInput) repository.Filters {
	published := true
	latest := true
	filters := repository.Filters{
		IsPublished:    &published,
		IsLatest:       &latest,
		PublishedSince: input.PublishedSince,
		ModifiedSince:  input.ModifiedSince,
		DOI:            input.DOI,
		Handle:         input.Handle,
		Search:         input.Search,
		Limit:          input.PageSize,
	}
	if input.Group > 0 {
		group := input.Group
		filters.GroupId = &group
	}
	if input.Page > 1 {
		size := input.PageSize
		if size <= 0 {
			size = 10
		}
		filters.Offset = (input.Page - 1) * size
	}
	return filters
}

type ItemListOutput struct {
	Body []ItemSummaryResponse `doc:"a list of matching items"`
}

type ItemDetailOutput struct {
	Body ItemDetailResponse `doc:"the full metadata of one item"`
}

// handler method for listing published datasets
func (service *service) getArticles(ctx context.Context,
	input *listInput) (*ItemListOutput, error) {

	revisions, err := service.Repo.Datasets(ctx, publicFilters(*input))
	if err != nil {
		return nil, domainError(err)
	}
	output := &ItemListOutput{Body: make([]ItemSummaryResponse, 0, len(revisions))}
	for _, revision := range revisions {
		output.Body = append(output.Body, itemSummary(revision))
	}
	return output, nil
}

// handler method for fetching the latest published version of a dataset
func (service *service) getArticle(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
	}) (*ItemDetailOutput, error) {

	latest, err := service.publishedLatest(ctx, input.Id)
	if err != nil {
		return nil, err
	}
	detail, err := service.itemDetail(ctx, latest, true, false)
	if err != nil {
		return nil, domainError(err)
	}
	return &ItemDetailOutput{Body: *detail}, nil
}

// handler method for listing the published versions of a dataset
func (service *service) getArticleVersions(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
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

// handler method for fetching one published version of a dataset
func (service *service) getArticleVersion(ctx context.Context,
	input *struct {
		Id      uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
		Version int       `path:"version" doc:"the published version number"`
	}) (*ItemDetailOutput, error) {

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
	detail, err := service.itemDetail(ctx, revision, true, false)
	if err != nil {
		return nil, domainError(err)
	}
	return &ItemDetailOutput{Body: *detail}, nil
}

type FileListOutput struct {
	Body []FileResponse `doc:"the files of a dataset"`
}

type FileDetailOutput struct {
	Body FileResponse `doc:"one file of a dataset"`
}

// handler method for listing the files of a published dataset
func (service *service) getArticleFiles(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
	}) (*FileListOutput, error) {

	latest, err := service.publishedLatest(ctx, input.Id)
	if err != nil {
		return nil, err
	}
	files, err := service.Repo.Files(ctx, latest.UUID)
	if err != nil {
		return nil, domainError(err)
	}
	output := &FileListOutput{Body: make([]FileResponse, 0, len(files))}
	for _, file := range files {
		output.Body = append(output.Body, fileResponse(file))
	}
	return output, nil
}

// handler method for fetching one file record of a published dataset
func (service *service) getArticleFile(ctx context.Context,
	input *struct {
		Id  uuid.UUID `path:"id" doc:"the container UUID of the dataset"`
		Fid uuid.UUID `path:"fid" doc:"the UUID of the file"`
	}) (*FileDetailOutput, error) {

	latest, err := service.publishedLatest(ctx, input.Id)
	if err != nil {
		return nil, err
	}
	files, err := service.Repo.Files(ctx, latest.UUID)
	if err != nil {
		return nil, domainError(err)
	}
	for _, file := range files {
		if file.UUID == input.Fid {
			return &FileDetailOutput{Body: fileResponse(file)}, nil
		}
	}
	return nil, huma.Error404NotFound("The requested file was not found")
}
