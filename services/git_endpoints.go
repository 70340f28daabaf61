package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/gitbackend"
	"github.com/datakeep/datakeep/journal"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// addGitRoutes wires the smart-HTTP git surface of software datasets.
func (service *service) addGitRoutes() {
	r := service.Router
	const prefix = "/v3/datasets/{id:[0-9a-fA-F-]{36}}.git"
	r.HandleFunc(prefix+"/info/refs", service.gitInfoRefs).Methods("GET")
	r.HandleFunc(prefix+"/git-upload-pack", service.gitUploadPack).Methods("POST")
	r.HandleFunc(prefix+"/git-receive-pack", service.gitReceivePack).Methods("POST")
	r.HandleFunc(prefix+"/branches/default", service.gitDefaultBranch).Methods("GET")
}

// gitRevision resolves {id} to the revision whose repository is addressed:
// the draft for writers, the latest published version otherwise.
func (service *service) gitRevision(w http.ResponseWriter,
	r *http.Request) *model.Revision {

	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return nil
	}
	container, err := service.Repo.ContainerByUuid(r.Context(), containerUuid)
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if container == nil {
		writeError(w, "The requested item was not found", http.StatusNotFound)
		return nil
	}
	revision, err := service.Repo.Draft(r.Context(), container)
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if revision == nil {
		if revision, err = service.Repo.LatestPublished(r.Context(), container); err != nil {
			writeDomainError(w, err)
			return nil
		}
	}
	if revision == nil || revision.GitUUID == (uuid.UUID{}) {
		writeError(w, "The item has no git repository", http.StatusNotFound)
		return nil
	}
	return revision
}

// mayFetch reports whether the requester may read the repository: anyone for
// public items, the owner and data_read collaborators otherwise.
func (service *service) mayFetch(r *http.Request, revision *model.Revision) bool {
	if revision.IsPublic {
		return true
	}
	account := service.optionalAccount(r)
	if account == nil {
		return false
	}
	mayRead, err := service.Repo.MayReadData(r.Context(), revision, account.UUID)
	return err == nil && mayRead
}

// mayPush reports whether the requester may write the repository; published
// items are immutable, so pushes only reach drafts.
func (service *service) mayPush(r *http.Request, revision *model.Revision) bool {
	if revision.IsPublic {
		return false
	}
	account := service.optionalAccount(r)
	if account == nil {
		return false
	}
	mayEdit, err := service.Repo.MayEditData(r.Context(), revision, account.UUID)
	return err == nil && mayEdit
}

func (service *service) relayGit(w http.ResponseWriter, r *http.Request,
	revision *model.Revision, subPath string) {

	repositoryPath, err := gitbackend.EnsureRepository(revision.GitUUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := gitbackend.Handle(w, r, repositoryPath, subPath); err != nil {
		slog.Error(fmt.Sprintf("git http-backend failed: %s", err.Error()))
	}
}

// gitInfoRefs answers ref discovery for both fetches and pushes.
func (service *service) gitInfoRefs(w http.ResponseWriter, r *http.Request) {
	revision := service.gitRevision(w, r)
	if revision == nil {
		return
	}
	switch r.URL.Query().Get("service") {
	case "git-receive-pack":
		if !service.mayPush(r, revision) {
			writeError(w, "Permission denied", http.StatusForbidden)
			return
		}
	default:
		if !service.mayFetch(r, revision) {
			writeError(w, "Permission denied", http.StatusForbidden)
			return
		}
	}
	service.relayGit(w, r, revision, "/info/refs")
}

// gitUploadPack serves fetches and clones.
func (service *service) gitUploadPack(w http.ResponseWriter, r *http.Request) {
	revision := service.gitRevision(w, r)
	if revision == nil {
		return
	}
	if !service.mayFetch(r, revision) {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	if err := journal.RecordEvent(journal.Event{
		Id:        uuid.New(),
		Timestamp: time.Now().UTC(),
		IpAddress: r.RemoteAddr,
		ItemUri:   rdf.UriFor(revision.ContainerUUID),
		EventType: journal.EventGitDownload,
	}); err != nil {
		slog.Error(fmt.Sprintf("Couldn't record git download: %s", err.Error()))
	}
	service.relayGit(w, r, revision, "/git-upload-pack")
}

// gitReceivePack accepts pushes into a draft's repository.
func (service *service) gitReceivePack(w http.ResponseWriter, r *http.Request) {
	revision := service.gitRevision(w, r)
	if revision == nil {
		return
	}
	if !service.mayPush(r, revision) {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	service.relayGit(w, r, revision, "/git-receive-pack")
}

// gitDefaultBranch reports the branch landing pages should present.
func (service *service) gitDefaultBranch(w http.ResponseWriter, r *http.Request) {
	revision := service.gitRevision(w, r)
	if revision == nil {
		return
	}
	if !service.mayFetch(r, revision) {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	repositoryPath, err := gitbackend.EnsureRepository(revision.GitUUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(map[string]string{
		"branch": gitbackend.DefaultBranch(repositoryPath),
	})
	writeJson(w, data, http.StatusOK)
}
