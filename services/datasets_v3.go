package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/filestore"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/workflow"
)

// addV3Routes wires the v3 endpoints: streaming uploads, the editorial
// workflow, sharing, statistics and profile pictures.
func (service *service) addV3Routes() {
	r := service.Router
	r.HandleFunc("/v3/datasets/{id}/upload", service.uploadFile).Methods("POST")
	r.HandleFunc("/v3/file/{fid}", service.getFileRecord).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/submit-for-review", service.submitForReview).Methods("POST")
	r.HandleFunc("/v3/reviews", service.getReviews).Methods("GET")
	r.HandleFunc("/v3/reviews/{rid}/assign", service.assignReview).Methods("PUT")
	r.HandleFunc("/v3/reviews/{rid}/publish", service.publishReview).Methods("POST")
	r.HandleFunc("/v3/reviews/{rid}/decline", service.declineReview).Methods("POST")
	r.HandleFunc("/v3/datasets/{id}/private_links", service.getPrivateLinks).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/private_links", service.createPrivateLink).Methods("POST")
	r.HandleFunc("/v3/datasets/{id}/private_links/{lid}", service.deletePrivateLink).Methods("DELETE")
	r.HandleFunc("/v3/datasets/{id}/collaborators", service.getCollaborators).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/collaborators", service.addCollaborator).Methods("POST")
	r.HandleFunc("/v3/datasets/{id}/collaborators/{cid}", service.removeCollaborator).Methods("DELETE")
	r.HandleFunc("/v3/repository_statistics", service.getRepositoryStatistics).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/timeline/{kind}", service.getTimeline).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/totals", service.getUsageTotals).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/badge.svg", service.getDoiBadge).Methods("GET")
	r.HandleFunc("/v3/quota_requests", service.createQuotaRequest).Methods("POST")
	r.HandleFunc("/v3/quota_requests", service.getQuotaRequests).Methods("GET")
	r.HandleFunc("/v3/quota_requests/{qid}", service.resolveQuotaRequest).Methods("PUT")
	r.HandleFunc("/v3/profile/picture", service.putProfilePicture).Methods("PUT")
	r.HandleFunc("/v3/profile/picture/{aid}", service.getProfilePicture).Methods("GET")
	r.HandleFunc("/v3/datasets/{id}/thumbnail", service.getThumbnail).Methods("GET")
}

func pathUuid(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

// uploadFile streams one multipart file part into the store. The draft's
// quota is checked up front, the record exists before any bytes land, and a
// short or malformed stream is kept with is_incomplete set. Image uploads
// get a thumbnail rendered right away.
func (service *service) uploadFile(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if container == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return
	}
	draft, err := service.Repo.Draft(r.Context(), container)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if draft == nil {
		writeError(w, "The item has no draft", http.StatusNotFound)
		return
	}
	mayEdit, err := service.Repo.MayEditData(r.Context(), draft, account.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !mayEdit {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}

	file, err := service.Files.Upload(r.Context(), draft, account,
		r.Header.Get("Content-Type"), r.ContentLength, r.Body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	countUpload(int64(file.Size))

	if file.IsImage {
		if extension, err := filestore.GenerateThumbnail(
			filestore.Path(draft.ContainerUUID, file), draft.UUID); err == nil {
			draft.ThumbExtension = extension
			if err := service.Repo.RewriteRevision(r.Context(), draft); err != nil {
				slog.Error(fmt.Sprintf("Couldn't record thumbnail: %s", err.Error()))
			}
		} else {
			slog.Error(fmt.Sprintf("Couldn't render thumbnail: %s", err.Error()))
		}
	}

	data, _ := json.Marshal(map[string]string{
		"location": fmt.Sprintf("%s/v3/file/%s", config.Service.BaseUrl, file.UUID),
	})
	writeJson(w, data, http.StatusOK)
}

// getFileRecord returns the metadata record of one file. The requester
// needs read rights on the owning dataset.
func (service *service) getFileRecord(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	fileUuid, ok := pathUuid(r, "fid")
	if !ok {
		writeError(w, "Malformed file id", http.StatusBadRequest)
		return
	}
	file, err := service.Repo.FileByUuid(r.Context(), fileUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if file == nil {
		writeError(w, "The requested file was not found", http.StatusNotFound)
		return
	}
	revision, err := service.Repo.RevisionByUuid(r.Context(), file.DatasetUUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if revision == nil {
		writeError(w, "The requested file was not found", http.StatusNotFound)
		return
	}
	mayRead, err := service.Repo.MayReadData(r.Context(), revision, account.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !mayRead && !revision.IsPublic {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	data, _ := json.Marshal(fileResponse(file))
	writeJson(w, data, http.StatusOK)
}

// submitForReview validates a draft and opens an editorial review. All
// failing fields come back at once as a 400 list.
func (service *service) submitForReview(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if container == nil || container.DraftUUID == (uuid.UUID{}) {
		writeError(w, "The item has no draft", http.StatusNotFound)
		return
	}
	if _, err := service.Flow.SubmitForReview(r.Context(), container.DraftUUID,
		account.UUID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getReviews lists the editorial queue for reviewers.
func (service *service) getReviews(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	if !config.PrivilegeFor(account.Email).MayReview {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	reviews, err := service.Flow.Reviews(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		body = append(body, reviewResponse(review))
	}
	data, _ := json.Marshal(body)
	writeJson(w, data, http.StatusOK)
}

// assignReview assigns a review to the requesting reviewer.
func (service *service) assignReview(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	reviewUuid, ok := pathUuid(r, "rid")
	if !ok {
		writeError(w, "Malformed review id", http.StatusBadRequest)
		return
	}
	if err := service.Flow.AssignReviewer(r.Context(), reviewUuid, account); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reviewContainer maps a review to the container of the dataset it covers.
func (service *service) reviewContainer(r *http.Request,
	reviewUuid uuid.UUID) (uuid.UUID, error) {

	review, err := service.Flow.ReviewByUuid(r.Context(), reviewUuid)
	if err != nil {
		return uuid.UUID{}, err
	}
	if review == nil {
		return uuid.UUID{}, &workflow.ReviewNotFoundError{}
	}
	revisionUuid, err := rdf.UuidFromUri(review.DatasetUri)
	if err != nil {
		return uuid.UUID{}, err
	}
	revision, err := service.Repo.RevisionByUuid(r.Context(), revisionUuid)
	if err != nil {
		return uuid.UUID{}, err
	}
	if revision == nil {
		return uuid.UUID{}, &workflow.ReviewNotFoundError{}
	}
	return revision.ContainerUUID, nil
}

// publishReview approves a review and publishes the dataset. All registry
// calls complete before any catalog state changes, so a registry failure
// leaves the draft intact.
func (service *service) publishReview(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	reviewUuid, ok := pathUuid(r, "rid")
	if !ok {
		writeError(w, "Malformed review id", http.StatusBadRequest)
		return
	}
	containerUuid, err := service.reviewContainer(r, reviewUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	revision, err := service.Flow.Publish(r.Context(), containerUuid, account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(itemSummary(revision))
	writeJson(w, data, http.StatusOK)
}

// declineReview closes a review without publishing; the draft survives.
func (service *service) declineReview(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	reviewUuid, ok := pathUuid(r, "rid")
	if !ok {
		writeError(w, "Malformed review id", http.StatusBadRequest)
		return
	}
	if err := service.Flow.Decline(r.Context(), reviewUuid, account); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// datasetRevision resolves {id} to the revision an account-facing v3
// endpoint works on (draft preferred).
func (service *service) datasetRevision(w http.ResponseWriter,
	r *http.Request) (*model.Revision, *model.Account) {

	account := service.requestAccount(w, r)
	if account == nil {
		return nil, nil
	}
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return nil, nil
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return nil, nil
	}
	if container == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return nil, nil
	}
	revision, err := service.Repo.Draft(r.Context(), container)
	if err != nil {
		writeDomainError(w, err)
		return nil, nil
	}
	if revision == nil {
		if revision, err = service.Repo.LatestPublished(r.Context(), container); err != nil {
			writeDomainError(w, err)
			return nil, nil
		}
	}
	if revision == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return nil, nil
	}
	return revision, account
}

func (service *service) getPrivateLinks(w http.ResponseWriter, r *http.Request) {
	revision, account := service.datasetRevision(w, r)
	if revision == nil {
		return
	}
	if revision.AccountUUID != account.UUID {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	links, err := service.Repo.PrivateLinksForItem(r.Context(), revision.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := make([]PrivateLinkResponse, 0, len(links))
	for _, link := range links {
		body = append(body, privateLinkResponse(link))
	}
	data, _ := json.Marshal(body)
	writeJson(w, data, http.StatusOK)
}

func (service *service) createPrivateLink(w http.ResponseWriter, r *http.Request) {
	revision, account := service.datasetRevision(w, r)
	if revision == nil {
		return
	}
	var body struct {
		Whom        string `json:"whom"`
		Purpose     string `json:"purpose"`
		ExpiresDate string `json:"expires_date"`
		ReadOnly    bool   `json:"read_only"`
		Anonymize   bool   `json:"anonymize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}
	link, err := service.Repo.CreatePrivateLink(r.Context(), revision.UUID,
		account.UUID, body.Whom, body.Purpose, body.ExpiresDate,
		body.ReadOnly, body.Anonymize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(privateLinkResponse(link))
	writeJson(w, data, http.StatusCreated)
}

func (service *service) deletePrivateLink(w http.ResponseWriter, r *http.Request) {
	revision, account := service.datasetRevision(w, r)
	if revision == nil {
		return
	}
	linkUuid, ok := pathUuid(r, "lid")
	if !ok {
		writeError(w, "Malformed link id", http.StatusBadRequest)
		return
	}
	if err := service.Repo.DeletePrivateLink(r.Context(), revision.UUID,
		linkUuid, account.UUID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (service *service) getCollaborators(w http.ResponseWriter, r *http.Request) {
	revision, account := service.datasetRevision(w, r)
	if revision == nil {
		return
	}
	if revision.AccountUUID != account.UUID {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	collaborators, err := service.Repo.Collaborators(r.Context(), revision.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := make([]CollaboratorResponse, 0, len(collaborators))
	for _, collaborator := range collaborators {
		body = append(body, collaboratorResponse(collaborator))
	}
	data, _ := json.Marshal(body)
	writeJson(w, data, http.StatusOK)
}

func (service *service) addCollaborator(w http.ResponseWriter, r *http.Request) {
	if config.Service.DisableCollaboration {
		writeError(w, "Collaboration is disabled", http.StatusForbidden)
		return
	}
	revision, account := service.datasetRevision(w, r)
	if revision == nil {
		return
	}
	var body struct {
		AccountUUID  uuid.UUID `json:"account_uuid"`
		MetadataRead bool      `json:"metadata_read"`
		MetadataEdit bool      `json:"metadata_edit"`
		DataRead     bool      `json:"data_read"`
		DataEdit     bool      `json:"data_edit"`
		DataRemove   bool      `json:"data_remove"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}
	collaborator := &model.Collaborator{
		AccountUUID:  body.AccountUUID,
		MetadataRead: body.MetadataRead,
		MetadataEdit: body.MetadataEdit,
		DataRead:     body.DataRead,
		DataEdit:     body.DataEdit,
		DataRemove:   body.DataRemove,
	}
	if err := service.Repo.AddCollaborator(r.Context(), revision.UUID,
		account.UUID, collaborator); err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(collaboratorResponse(collaborator))
	writeJson(w, data, http.StatusCreated)
}

func (service *service) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	revision, account := service.datasetRevision(w, r)
	if revision == nil {
		return
	}
	collaboratorUuid, ok := pathUuid(r, "cid")
	if !ok {
		writeError(w, "Malformed collaborator id", http.StatusBadRequest)
		return
	}
	if err := service.Repo.RemoveCollaborator(r.Context(), revision.UUID,
		collaboratorUuid, account.UUID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (service *service) getRepositoryStatistics(w http.ResponseWriter, r *http.Request) {
	statistics, err := service.Repo.RepositoryStatistics(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(statistics)
	writeJson(w, data, http.StatusOK)
}

// getTimeline serves the per-day view or download counts of an item.
func (service *service) getTimeline(w http.ResponseWriter, r *http.Request) {
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if container == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return
	}
	var timeline any
	switch mux.Vars(r)["kind"] {
	case "views":
		timeline, err = service.Repo.ViewsTimeline(container)
	case "downloads":
		timeline, err = service.Repo.DownloadsTimeline(container)
	default:
		writeError(w, "Unknown timeline kind", http.StatusNotFound)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(timeline)
	writeJson(w, data, http.StatusOK)
}

func (service *service) getUsageTotals(w http.ResponseWriter, r *http.Request) {
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if container == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return
	}
	totals, err := service.Repo.UsageTotals(container)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(totals)
	writeJson(w, data, http.StatusOK)
}

// getDoiBadge renders a small SVG badge carrying the item's DOI, for
// embedding in READMEs and landing pages.
func (service *service) getDoiBadge(w http.ResponseWriter, r *http.Request) {
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if container == nil || container.DOI == "" {
		writeError(w, "The item has no DOI", http.StatusNotFound)
		return
	}

	label := "DOI"
	value := container.DOI
	labelWidth := 7*len(label) + 10
	valueWidth := 7*len(value) + 10
	width := labelWidth + valueWidth
	badge := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20">`+
		`<rect width="%d" height="20" fill="#555"/>`+
		`<rect x="%d" width="%d" height="20" fill="#007ec6"/>`+
		`<g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,sans-serif" font-size="11">`+
		`<text x="%d" y="14">%s</text>`+
		`<text x="%d" y="14">%s</text>`+
		`</g></svg>`,
		width, labelWidth, labelWidth, valueWidth,
		labelWidth/2, label, labelWidth+valueWidth/2, value)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(badge))
}

func (service *service) createQuotaRequest(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	var body struct {
		RequestedSize int    `json:"requested_size"`
		Reason        string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestedSize <= 0 {
		writeError(w, "A positive requested size is required", http.StatusBadRequest)
		return
	}
	request, err := service.Accounts.InsertQuotaRequest(r.Context(), account.UUID,
		body.RequestedSize, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(map[string]any{"uuid": request.UUID, "status": request.Status})
	writeJson(w, data, http.StatusCreated)
}

func (service *service) getQuotaRequests(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	if !config.PrivilegeFor(account.Email).MayReviewQuotas {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	requests, err := service.Accounts.QuotaRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(requests)
	writeJson(w, data, http.StatusOK)
}

func (service *service) resolveQuotaRequest(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	if !config.PrivilegeFor(account.Email).MayReviewQuotas {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	requestUuid, ok := pathUuid(r, "qid")
	if !ok {
		writeError(w, "Malformed request id", http.StatusBadRequest)
		return
	}
	var body struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}
	if err := service.Accounts.ResolveQuotaRequest(r.Context(), requestUuid,
		body.Approve); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putProfilePicture stores the requester's profile image.
func (service *service) putProfilePicture(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	if err := filestore.SaveProfileImage(account.UUID, r.Body); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (service *service) getProfilePicture(w http.ResponseWriter, r *http.Request) {
	accountUuid, ok := pathUuid(r, "aid")
	if !ok {
		writeError(w, "Malformed account id", http.StatusBadRequest)
		return
	}
	image, err := filestore.OpenProfileImage(accountUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer image.Close()
	w.WriteHeader(http.StatusOK)
	io.Copy(w, image)
}

// getThumbnail serves an item's rendered thumbnail.
func (service *service) getThumbnail(w http.ResponseWriter, r *http.Request) {
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if container == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return
	}
	revision, err := service.Repo.LatestPublished(r.Context(), container)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if revision == nil || revision.ThumbExtension == "" {
		writeError(w, "The item has no thumbnail", http.StatusNotFound)
		return
	}
	path := fmt.Sprintf("%s/%s.%s", config.Storage.ThumbnailStorage,
		revision.UUID, revision.ThumbExtension)
	http.ServeFile(w, r, path)
}
