package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/datakeep/datakeep/export"
	"github.com/datakeep/datakeep/journal"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/repository"
)

// addDeliveryRoutes wires byte delivery, bundles, exports, private links and
// the small UI-facing helpers.
func (service *service) addDeliveryRoutes() {
	r := service.Router
	r.HandleFunc("/file/{id}/{fid}", service.downloadFile).Methods("GET")
	r.HandleFunc("/ndownloader/items/{id}/versions/{version}", service.downloadBundle).Methods("GET")
	r.HandleFunc("/export/{format}/datasets/{id}", service.exportMetadata).Methods("GET")
	r.HandleFunc("/export/{format}/datasets/{id}/{version}", service.exportMetadata).Methods("GET")
	r.HandleFunc("/private_datasets/{lid}", service.viewPrivateDataset).Methods("GET")
	r.HandleFunc("/my/datasets/new", service.newDataset).Methods("GET", "POST")
	r.HandleFunc("/my/datasets/{id}/edit", service.editDataset).Methods("GET")
}

// deliverable reports whether the requester may download a revision's
// bytes: everyone for public unembargoed items, owners and data_read
// collaborators always.
func (service *service) deliverable(r *http.Request, revision *model.Revision) bool {
	embargoed := revision.IsEmbargoed && revision.EmbargoUntilDate != "" &&
		revision.EmbargoUntilDate > time.Now().UTC().Format("2006-01-02")
	if revision.IsPublic && !embargoed && !revision.IsRestricted {
		return true
	}
	account := service.optionalAccount(r)
	if account == nil {
		return false
	}
	mayRead, err := service.Repo.MayReadData(r.Context(), revision, account.UUID)
	return err == nil && mayRead
}

func recordItemEvent(r *http.Request, containerUuid uuid.UUID, eventType string) {
	if err := journal.RecordEvent(journal.Event{
		Id:        uuid.New(),
		Timestamp: time.Now().UTC(),
		IpAddress: r.RemoteAddr,
		ItemUri:   rdf.UriFor(containerUuid),
		EventType: eventType,
	}); err != nil {
		slog.Error(fmt.Sprintf("Couldn't record %s event: %s", eventType, err.Error()))
	}
}

// downloadFile streams the bytes of one file.
func (service *service) downloadFile(w http.ResponseWriter, r *http.Request) {
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	fileUuid, ok := pathUuid(r, "fid")
	if !ok {
		writeError(w, "Malformed file id", http.StatusBadRequest)
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

	// the file may belong to any revision the requester can see
	revision, file := service.findFile(r, container, fileUuid)
	if revision == nil || file == nil {
		writeError(w, "The requested file was not found", http.StatusNotFound)
		return
	}
	if !service.deliverable(r, revision) {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	if file.IsLinkOnly {
		http.Redirect(w, r, file.DownloadURL, http.StatusFound)
		return
	}

	source, size, err := service.Files.Open(container.UUID, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer source.Close()

	recordItemEvent(r, container.UUID, journal.EventDownload)
	w.Header().Set("Content-Type", contentTypeFor(file.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(file.Name)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, source); err != nil {
		slog.Error(fmt.Sprintf("Couldn't stream file %s: %s", file.UUID, err.Error()))
	}
}

// findFile locates a file within the revisions of a container, preferring
// the latest published one.
func (service *service) findFile(r *http.Request, container *model.Container,
	fileUuid uuid.UUID) (*model.Revision, *model.File) {

	candidates := make([]*model.Revision, 0, 2)
	if latest, err := service.Repo.LatestPublished(r.Context(), container); err == nil && latest != nil {
		candidates = append(candidates, latest)
	}
	if draft, err := service.Repo.Draft(r.Context(), container); err == nil && draft != nil {
		candidates = append(candidates, draft)
	}
	for _, revision := range candidates {
		files, err := service.Repo.Files(r.Context(), revision.UUID)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.UUID == fileUuid && !file.IsIncomplete {
				return revision, file
			}
		}
	}
	return nil, nil
}

// downloadBundle streams a ZIP of one published version's files, with the
// data-package manifest first in the archive.
func (service *service) downloadBundle(w http.ResponseWriter, r *http.Request) {
	containerUuid, ok := pathUuid(r, "id")
	if !ok {
		writeError(w, "Malformed dataset id", http.StatusBadRequest)
		return
	}
	versionNumber, err := strconv.Atoi(mux.Vars(r)["version"])
	if err != nil {
		writeError(w, "Malformed version number", http.StatusBadRequest)
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
	revision, err := service.Repo.PublishedVersion(r.Context(), container, versionNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if revision == nil {
		writeError(w, "The requested version was not found", http.StatusNotFound)
		return
	}
	if !service.deliverable(r, revision) {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	files, err := service.Repo.Files(r.Context(), revision.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	recordItemEvent(r, container.UUID, journal.EventDownload)
	bundleName := fmt.Sprintf("%s_v%d.zip", container.UUID, revision.Version)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(bundleName)))
	w.WriteHeader(http.StatusOK)
	if err := service.Files.WriteZip(w, revision, files); err != nil {
		slog.Error(fmt.Sprintf("Couldn't stream bundle: %s", err.Error()))
	}
}

// exportMetadata renders an item's metadata in a bibliographic format.
// Formats that are routed but not rendered here answer 406.
func (service *service) exportMetadata(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	if !export.Known(format) {
		writeError(w, "Unknown export format", http.StatusNotFound)
		return
	}
	formatter := export.FormatterFor(format)
	if formatter == nil {
		writeError(w, fmt.Sprintf("The %s format is not available", format),
			http.StatusNotAcceptable)
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

	var revision *model.Revision
	if versionText, given := mux.Vars(r)["version"]; given {
		versionNumber, err := strconv.Atoi(versionText)
		if err != nil {
			writeError(w, "Malformed version number", http.StatusBadRequest)
			return
		}
		revision, err = service.Repo.PublishedVersion(r.Context(), container, versionNumber)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	} else {
		revision, err = service.Repo.LatestPublished(r.Context(), container)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if revision == nil {
		writeError(w, "The requested version was not found", http.StatusNotFound)
		return
	}

	authors, err := service.Repo.Authors(r.Context(), revision.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tags, err := service.Repo.Tags(r.Context(), revision.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rendered, err := formatter.Format(&export.Item{
		Revision: revision,
		Authors:  authors,
		Tags:     tags,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", formatter.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
}

// viewPrivateDataset resolves a private link. Expired links render the
// expired-link page and record nothing; live ones record a private view and
// return the item's metadata, anonymized when the link asks for it.
func (service *service) viewPrivateDataset(w http.ResponseWriter, r *http.Request) {
	link, revision, err := service.Repo.ResolvePrivateLink(r.Context(),
		mux.Vars(r)["lid"])
	if err != nil {
		if _, expired := err.(*repository.LinkExpiredError); expired {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusGone)
			fmt.Fprint(w, "<html><body><h1>This private link has expired.</h1>"+
				"<p>Please ask the depositor for a new link.</p></body></html>")
			return
		}
		writeDomainError(w, err)
		return
	}

	recordItemEvent(r, revision.ContainerUUID, journal.EventPrivateView)
	detail, err := service.itemDetail(r.Context(), revision, true, link.Anonymize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(detail)
	writeJson(w, data, http.StatusOK)
}

// newDataset creates an untitled draft and redirects to its edit page.
func (service *service) newDataset(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	container, _, err := service.Repo.InsertDataset(r.Context(), account, "Untitled item")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/my/datasets/%s/edit", container.UUID),
		http.StatusFound)
}

// editDataset returns the draft the edit page works on.
func (service *service) editDataset(w http.ResponseWriter, r *http.Request) {
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
	mayEdit, err := service.Repo.MayEditMetadata(r.Context(), draft, account.UUID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !mayEdit {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}
	detail, err := service.itemDetail(r.Context(), draft, true, false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, _ := json.Marshal(detail)
	writeJson(w, data, http.StatusOK)
}

func contentTypeFor(name string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
