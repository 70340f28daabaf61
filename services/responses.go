package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/datakeep/datakeep/accounts"
	"github.com/datakeep/datakeep/filestore"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/repository"
	"github.com/datakeep/datakeep/workflow"
)

// This package-specific helper function writes a JSON payload to an
// http.ResponseWriter.
func writeJson(w http.ResponseWriter, data []byte, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if len(data) > 0 {
		w.Write(data)
	}
}

// This type holds information about an error that occurred responding to a
// request.
type ErrorResponse struct {
	// A descriptive error message
	Message string `json:"message"`
	// The HTTP error code
	Code int `json:"code"`
}

// This package-specific helper function writes an error to an
// http.ResponseWriter, giving it the proper status code, and encoding an
// ErrorResponse in the response body. Internal failures get an empty body.
func writeError(w http.ResponseWriter, message string, code int) {
	if code == http.StatusInternalServerError {
		w.WriteHeader(code)
		return
	}
	e := ErrorResponse{Message: message, Code: code}
	data, _ := json.Marshal(e)
	writeJson(w, data, code)
}

// writeDomainError maps a domain error onto the HTTP error taxonomy and
// writes it. Validation failures carry their field list verbatim.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *repository.ValidationError
	if errors.As(err, &validation) {
		data, _ := json.Marshal(validation.Errors)
		writeJson(w, data, http.StatusBadRequest)
		return
	}
	var quota *filestore.QuotaExceededError
	if errors.As(err, &quota) {
		data, _ := json.Marshal(map[string]int{
			"quota": quota.QuotaBytes,
			"used":  quota.UsedBytes,
		})
		writeJson(w, data, http.StatusRequestEntityTooLarge)
		return
	}
	writeError(w, err.Error(), statusForError(err))
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case isAny[*repository.ValidationError](err),
		isAny[*repository.DraftExistsError](err),
		isAny[*workflow.AlreadyUnderReviewError](err),
		isAny[*accounts.InvalidAccountError](err),
		isAny[*filestore.MissingBoundaryError](err),
		isAny[*filestore.NoFilePartError](err):
		return http.StatusBadRequest
	case isAny[*repository.PermissionDeniedError](err),
		isAny[*repository.PublishedImmutableError](err):
		return http.StatusForbidden
	case isAny[*repository.NotFoundError](err),
		isAny[*workflow.ReviewNotFoundError](err),
		isAny[*accounts.AccountNotFoundError](err),
		isAny[*filestore.FileMissingError](err):
		return http.StatusNotFound
	case isAny[*repository.LinkExpiredError](err):
		return http.StatusGone
	case isAny[*filestore.QuotaExceededError](err):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func isAny[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// domainError wraps a domain error for handlers served through the API
// wrapper, preserving the taxonomy mapping.
func domainError(err error) huma.StatusError {
	var validation *repository.ValidationError
	if errors.As(err, &validation) {
		return &fieldListError{status: http.StatusBadRequest, Fields: validation.Errors}
	}
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		return &apiError{status: status}
	}
	return &apiError{status: status, Message: err.Error(), Code: status}
}

// apiError is the {message,code} error body used throughout the API.
type apiError struct {
	status  int
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *apiError) Error() string  { return e.Message }
func (e *apiError) GetStatus() int { return e.status }

// fieldListError carries a validation field list; its body is the bare list.
type fieldListError struct {
	status int
	Fields []repository.FieldError
}

func (e *fieldListError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Message
	}
	return "multiple fields are invalid"
}

func (e *fieldListError) GetStatus() int { return e.status }

func (e *fieldListError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields)
}

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name          string `json:"name" doc:"The name of the service API"`
	Version       string `json:"version" doc:"The version string (major.minor.patch)"`
	Uptime        int    `json:"uptime" doc:"The time the service has been up (seconds)"`
	Documentation string `json:"documentation" doc:"The OpenAPI documentation endpoint"`
}

// an author as rendered in item responses
type AuthorResponse struct {
	UUID     uuid.UUID `json:"uuid"`
	FullName string    `json:"full_name"`
	Orcid    string    `json:"orcid_id,omitempty"`
}

// a file as rendered in item responses
type FileResponse struct {
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	Size         int       `json:"size"`
	SuppliedMd5  string    `json:"supplied_md5,omitempty"`
	ComputedMd5  string    `json:"computed_md5,omitempty"`
	DownloadURL  string    `json:"download_url,omitempty"`
	IsLinkOnly   bool      `json:"is_link_only"`
	IsIncomplete bool      `json:"is_incomplete"`
}

// a dataset or collection in list responses
type ItemSummaryResponse struct {
	UUID          uuid.UUID `json:"uuid"`
	Title         string    `json:"title"`
	DOI           string    `json:"doi,omitempty"`
	Handle        string    `json:"handle,omitempty"`
	URL           string    `json:"url"`
	Version       *int      `json:"version"`
	PublishedDate string    `json:"published_date,omitempty"`
	DefinedType   string    `json:"defined_type,omitempty"`
	GroupId       int       `json:"group_id,omitempty"`
}

// a dataset or collection in detail responses; Version is null for drafts
type ItemDetailResponse struct {
	ItemSummaryResponse
	Description      string           `json:"description"`
	License          string           `json:"license,omitempty"`
	Language         string           `json:"language,omitempty"`
	ResourceDOI      string           `json:"resource_doi,omitempty"`
	ResourceTitle    string           `json:"resource_title,omitempty"`
	Publisher        string           `json:"publisher,omitempty"`
	CreatedDate      string           `json:"created_date,omitempty"`
	ModifiedDate     string           `json:"modified_date,omitempty"`
	EmbargoType      string           `json:"embargo_type,omitempty"`
	EmbargoUntilDate string           `json:"embargo_date,omitempty"`
	IsPublic         bool             `json:"is_public"`
	IsEmbargoed      bool             `json:"is_embargoed"`
	IsMetadataRecord bool             `json:"is_metadata_record"`
	IsUnderReview    bool             `json:"is_under_review"`
	Tags             []string         `json:"tags"`
	Categories       []int            `json:"categories"`
	References       []string         `json:"references,omitempty"`
	Authors          []AuthorResponse `json:"authors"`
	Files            []FileResponse   `json:"files,omitempty"`
}

// a private link in list responses
type PrivateLinkResponse struct {
	UUID        uuid.UUID `json:"uuid"`
	Id          string    `json:"id"`
	IsActive    bool      `json:"is_active"`
	ReadOnly    bool      `json:"read_only"`
	Anonymize   bool      `json:"anonymize"`
	ExpiresDate string    `json:"expires_date,omitempty"`
	Whom        string    `json:"whom,omitempty"`
	Purpose     string    `json:"purpose,omitempty"`
}

// a collaborator grant in list responses
type CollaboratorResponse struct {
	UUID         uuid.UUID `json:"uuid"`
	AccountUUID  uuid.UUID `json:"account_uuid"`
	MetadataRead bool      `json:"metadata_read"`
	MetadataEdit bool      `json:"metadata_edit"`
	DataRead     bool      `json:"data_read"`
	DataEdit     bool      `json:"data_edit"`
	DataRemove   bool      `json:"data_remove"`
}

// an editorial review in list responses
type ReviewResponse struct {
	UUID        uuid.UUID `json:"uuid"`
	DatasetUri  string    `json:"dataset_uri"`
	Status      string    `json:"status"`
	RequestDate string    `json:"request_date,omitempty"`
	AssignedTo  uuid.UUID `json:"assigned_to,omitempty"`
}

func authorResponse(author *model.Author) AuthorResponse {
	return AuthorResponse{
		UUID:     author.UUID,
		FullName: author.FullName,
		Orcid:    author.Orcid,
	}
}

func fileResponse(file *model.File) FileResponse {
	return FileResponse{
		UUID:         file.UUID,
		Name:         file.Name,
		Size:         file.Size,
		SuppliedMd5:  file.SuppliedMd5,
		ComputedMd5:  file.ComputedMd5,
		DownloadURL:  file.DownloadURL,
		IsLinkOnly:   file.IsLinkOnly,
		IsIncomplete: file.IsIncomplete,
	}
}

func privateLinkResponse(link *model.PrivateLink) PrivateLinkResponse {
	return PrivateLinkResponse{
		UUID:        link.UUID,
		Id:          link.IdString,
		IsActive:    link.IsActive,
		ReadOnly:    link.ReadOnly,
		Anonymize:   link.Anonymize,
		ExpiresDate: link.ExpiresDate,
		Whom:        link.Whom,
		Purpose:     link.Purpose,
	}
}

func collaboratorResponse(collaborator *model.Collaborator) CollaboratorResponse {
	return CollaboratorResponse{
		UUID:         collaborator.UUID,
		AccountUUID:  collaborator.AccountUUID,
		MetadataRead: collaborator.MetadataRead,
		MetadataEdit: collaborator.MetadataEdit,
		DataRead:     collaborator.DataRead,
		DataEdit:     collaborator.DataEdit,
		DataRemove:   collaborator.DataRemove,
	}
}

func reviewResponse(review *model.Review) ReviewResponse {
	return ReviewResponse{
		UUID:        review.UUID,
		DatasetUri:  review.DatasetUri,
		Status:      review.Status,
		RequestDate: review.RequestDate,
		AssignedTo:  review.AssignedTo,
	}
}
