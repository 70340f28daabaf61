package services

// These tests run the service on a local port and exercise its endpoints
// with real HTTP requests against an in-memory triple store.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/journal"
	"github.com/datakeep/datakeep/keeptest"
	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/repository"
	"github.com/datakeep/datakeep/sparql"
)

const servicePort = 8123

var testingDir string
var testDb *sparql.MemStore
var testService RepositoryService

// the repository handle tests use to peek behind the HTTP surface
var testRepo *repository.Repo

const serviceConfig = `
service:
  port: 8123
  max_connections: 100
  base_url: http://localhost:8123
  session_cookie: datakeep_session
  cookie_key: a2tra2tra2tra2tra2tra2tra2tra2tra2tra2tra2s=
  disable_2fa: true
storage:
  data_dir: TESTING_DIR
  storage: TESTING_DIR/files
  thumbnail_storage: TESTING_DIR/thumbnails
triplestore:
  in_memory: true
datacite:
  prefix: 10.12345
quotas:
  default: 1000000
  domains:
    tiny.example.com: 5
privileges:
  reviewer@example.com:
    may_review: true
  admin@example.com:
    may_administer: true
    may_impersonate: true
`

func TestMain(m *testing.M) {
	setup()
	status := m.Run()
	breakdown()
	os.Exit(status)
}

func setup() {
	keeptest.EnableDebugLogging()
	var err error
	testingDir, err = os.MkdirTemp(os.TempDir(), "datakeep-service-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}
	myConfig := strings.ReplaceAll(serviceConfig, "TESTING_DIR", testingDir)
	if err := config.Init([]byte(myConfig)); err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}
	for _, dir := range []string{config.Storage.Storage, config.Storage.ThumbnailStorage} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Panicf("Couldn't create storage directory: %s", err)
		}
	}
	if err := journal.Init(); err != nil {
		log.Panicf("Couldn't initialize the journal: %s", err)
	}

	testDb, err = sparql.NewMemStore("", nil)
	if err != nil {
		log.Panicf("Couldn't create triple store: %s", err)
	}
	testRepo = repository.NewRepo(testDb, cache.NewQueryCache())
	testService, err = NewService(testDb)
	if err != nil {
		log.Panicf("Couldn't create service: %s", err)
	}
	go testService.Start(servicePort)

	// wait for the server to come up
	for i := 0; i < 50; i++ {
		response, err := http.Get(serviceUrl("/"))
		if err == nil {
			response.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Panicf("The service didn't start")
}

func breakdown() {
	if testService != nil {
		testService.Close()
	}
	journal.Finalize()
	if testingDir != "" {
		os.RemoveAll(testingDir)
	}
}

func serviceUrl(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", servicePort, path)
}

// request performs an HTTP request against the running service, returning
// the response and its body.
func request(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.Nil(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, serviceUrl(path), reader)
	assert.Nil(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	response, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	defer response.Body.Close()
	payload, err := io.ReadAll(response.Body)
	assert.Nil(t, err)
	return response, payload
}

// login authenticates an e-mail address and returns the session token
func login(t *testing.T, email string) string {
	response, body := request(t, "POST", "/login", "", map[string]string{"email": email})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	var result struct {
		Token string `json:"token"`
	}
	assert.Nil(t, json.Unmarshal(body, &result))
	assert.NotEmpty(t, result.Token)
	return result.Token
}

// createDataset creates a draft through the API and returns its container id
func createDataset(t *testing.T, token, title string) uuid.UUID {
	response, body := request(t, "POST", "/v2/account/articles", token,
		map[string]string{"title": title})
	assert.Equal(t, http.StatusCreated, response.StatusCode)
	var result struct {
		UUID     uuid.UUID `json:"uuid"`
		Location string    `json:"location"`
	}
	assert.Nil(t, json.Unmarshal(body, &result))
	assert.Contains(t, result.Location, result.UUID.String())
	return result.UUID
}

// fillDataset makes a draft pass the pre-submission validation
func fillDataset(t *testing.T, token string, id uuid.UUID) {
	response, _ := request(t, "PUT", "/v2/account/articles/"+id.String(), token,
		map[string]any{
			"description":                 "A filled-in description.",
			"license":                     "CC-BY-4.0",
			"tags":                        []string{"testing"},
			"categories":                  []int{1},
			"is_metadata_record":          true,
			"agreed_to_deposit_agreement": true,
			"agreed_to_publish":           true,
		})
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
}

// uploadFile streams a one-part multipart body into a draft and returns the
// file's UUID
func uploadFile(t *testing.T, token string, id uuid.UUID,
	filename, content string) (*http.Response, uuid.UUID) {

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", filename)
	io.WriteString(part, content)
	writer.Close()

	req, err := http.NewRequest("POST",
		serviceUrl(fmt.Sprintf("/v3/datasets/%s/upload", id)), body)
	assert.Nil(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "token "+token)
	response, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	defer response.Body.Close()
	payload, _ := io.ReadAll(response.Body)

	if response.StatusCode != http.StatusOK {
		// hand the raw response back for error-path assertions
		response.Body = io.NopCloser(bytes.NewReader(payload))
		return response, uuid.UUID{}
	}
	var result struct {
		Location string `json:"location"`
	}
	assert.Nil(t, json.Unmarshal(payload, &result))
	parts := strings.Split(result.Location, "/")
	fileUuid, err := uuid.Parse(parts[len(parts)-1])
	assert.Nil(t, err)
	return response, fileUuid
}

// publishDataset walks a filled draft through review and publication
func publishDataset(t *testing.T, ownerToken, reviewerToken string, id uuid.UUID) {
	response, _ := request(t, "POST",
		fmt.Sprintf("/v3/datasets/%s/submit-for-review", id), ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	// find the review covering this dataset's draft
	container, err := testRepo.ContainerByUuid(context.Background(), id)
	assert.Nil(t, err)
	draftUri := rdf.UriFor(container.DraftUUID)
	response, body := request(t, "GET", "/v3/reviews?status=Unassigned", reviewerToken, nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	var reviews []struct {
		UUID       uuid.UUID `json:"uuid"`
		DatasetUri string    `json:"dataset_uri"`
	}
	assert.Nil(t, json.Unmarshal(body, &reviews))
	var reviewUuid uuid.UUID
	for _, review := range reviews {
		if review.DatasetUri == draftUri {
			reviewUuid = review.UUID
		}
	}
	assert.NotEqual(t, uuid.UUID{}, reviewUuid)

	response, _ = request(t, "PUT",
		fmt.Sprintf("/v3/reviews/%s/assign", reviewUuid), reviewerToken, nil)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	response, body = request(t, "POST",
		fmt.Sprintf("/v3/reviews/%s/publish", reviewUuid), reviewerToken, nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	var summary struct {
		Version *int `json:"version"`
	}
	assert.Nil(t, json.Unmarshal(body, &summary))
	assert.NotNil(t, summary.Version)
}

// tests the service information endpoint
func TestServiceInfo(t *testing.T) {
	assert := assert.New(t)
	response, body := request(t, "GET", "/", "", nil)
	assert.Equal(http.StatusOK, response.StatusCode)

	var info ServiceInfoResponse
	assert.Nil(json.Unmarshal(body, &info))
	assert.Equal("DataKeep", info.Name)
	assert.Equal(version, info.Version)
}

// tests that account endpoints reject requests without a session
func TestAuthRequired(t *testing.T) {
	assert := assert.New(t)
	response, body := request(t, "POST", "/v2/account/articles", "",
		map[string]string{"title": "No Session"})
	assert.Equal(http.StatusForbidden, response.StatusCode)

	var result ErrorResponse
	assert.Nil(json.Unmarshal(body, &result))
	assert.Equal(invalidSessionMessage, result.Message)
	assert.Equal(http.StatusForbidden, result.Code)

	// a bogus token is just as invalid
	response, _ = request(t, "GET", "/v2/account/articles", "deadbeef", nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)
}

// tests creating, editing and fetching a dataset draft
func TestCreateUpdateFetchDataset(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "depositor@example.com")
	id := createDataset(t, token, "HTTP Round Trip")
	fillDataset(t, token, id)

	response, body := request(t, "GET", "/v2/account/articles/"+id.String(), token, nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	var detail ItemDetailResponse
	assert.Nil(json.Unmarshal(body, &detail))
	assert.Equal(id, detail.UUID)
	assert.Equal("HTTP Round Trip", detail.Title)
	assert.Equal("A filled-in description.", detail.Description)
	assert.Equal([]string{"testing"}, detail.Tags)
	assert.Equal([]int{1}, detail.Categories)
	assert.Nil(detail.Version) // drafts carry no version
	assert.False(detail.IsPublic)

	// another account can't see the draft
	otherToken := login(t, "other@example.com")
	response, _ = request(t, "GET", "/v2/account/articles/"+id.String(), otherToken, nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)
}

// tests that a bad edit comes back as a field error list
func TestUpdateValidation(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "depositor@example.com")
	id := createDataset(t, token, "Validated Item")

	response, body := request(t, "PUT", "/v2/account/articles/"+id.String(), token,
		map[string]any{"title": "ab"})
	assert.Equal(http.StatusBadRequest, response.StatusCode)

	var fields []repository.FieldError
	assert.Nil(json.Unmarshal(body, &fields))
	assert.Len(fields, 1)
	assert.Equal("title", fields[0].FieldName)
}

// tests draft deletion over HTTP
func TestDeleteDraft(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "depositor@example.com")
	id := createDataset(t, token, "Doomed Item")

	response, _ := request(t, "DELETE", "/v2/account/articles/"+id.String(), token, nil)
	assert.Equal(http.StatusNoContent, response.StatusCode)
	response, _ = request(t, "DELETE", "/v2/account/articles/"+id.String(), token, nil)
	assert.Equal(http.StatusNotFound, response.StatusCode)
}

// tests the streaming upload and the file delivery endpoint
func TestUploadAndDownload(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "depositor@example.com")
	id := createDataset(t, token, "Uploaded Data")

	response, fileUuid := uploadFile(t, token, id, "greeting.txt", "hello")
	assert.Equal(http.StatusOK, response.StatusCode)

	// the file record is readable by its owner
	response, body := request(t, "GET", "/v3/file/"+fileUuid.String(), token, nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	var record FileResponse
	assert.Nil(json.Unmarshal(body, &record))
	assert.Equal("greeting.txt", record.Name)
	assert.Equal(5, record.Size)
	assert.Equal("5d41402abc4b2a76b9719d911017c592", record.ComputedMd5)
	assert.False(record.IsIncomplete)

	// the owner can download the bytes of the unpublished draft
	response, body = request(t, "GET",
		fmt.Sprintf("/file/%s/%s", id, fileUuid), token, nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	assert.Equal("hello", string(body))
	assert.Contains(response.Header.Get("Content-Disposition"), "greeting.txt")

	// anonymous requesters can't
	response, _ = request(t, "GET",
		fmt.Sprintf("/file/%s/%s", id, fileUuid), "", nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)
}

// tests that an exhausted quota answers 413 with the quota numbers
func TestQuotaExceeded(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "small@tiny.example.com")
	id := createDataset(t, token, "Tiny Quota")

	response, _ := uploadFile(t, token, id, "first.txt", "hello")
	assert.Equal(http.StatusOK, response.StatusCode)

	response, _ = uploadFile(t, token, id, "second.txt", "world")
	assert.Equal(http.StatusRequestEntityTooLarge, response.StatusCode)
	payload, _ := io.ReadAll(response.Body)
	var result map[string]int
	assert.Nil(json.Unmarshal(payload, &result))
	assert.Equal(5, result["quota"])
	assert.Equal(5, result["used"])
}

// tests that submitting an incomplete draft reports every failing field
func TestSubmitValidation(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "depositor@example.com")
	id := createDataset(t, token, "Unfinished Item")

	response, body := request(t, "POST",
		fmt.Sprintf("/v3/datasets/%s/submit-for-review", id), token, nil)
	assert.Equal(http.StatusBadRequest, response.StatusCode)

	var fields []repository.FieldError
	assert.Nil(json.Unmarshal(body, &fields))
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.FieldName)
	}
	assert.Contains(names, "description")
	assert.Contains(names, "license")
	assert.Contains(names, "agreed_to_publish")
}

// tests the full lifecycle: submit, review, publish, public visibility
func TestPublishFlow(t *testing.T) {
	assert := assert.New(t)
	ownerToken := login(t, "depositor@example.com")
	reviewerToken := login(t, "reviewer@example.com")
	id := createDataset(t, ownerToken, "Published Study")
	fillDataset(t, ownerToken, id)

	// the review queue is reviewer-only
	response, _ := request(t, "GET", "/v3/reviews", ownerToken, nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)

	publishDataset(t, ownerToken, reviewerToken, id)

	// the item is now publicly visible
	response, body := request(t, "GET", "/v2/articles/"+id.String(), "", nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	var detail ItemDetailResponse
	assert.Nil(json.Unmarshal(body, &detail))
	assert.Equal("Published Study", detail.Title)
	assert.True(detail.IsPublic)
	assert.NotNil(detail.Version)
	assert.Equal(1, *detail.Version)

	response, body = request(t, "GET", "/v2/articles/"+id.String()+"/versions", "", nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	var versions []ItemSummaryResponse
	assert.Nil(json.Unmarshal(body, &versions))
	assert.Len(versions, 1)
}

// tests that a published-then-retracted item answers 410 rather than 404
func TestRetractedItemGone(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ownerToken := login(t, "depositor@example.com")
	reviewerToken := login(t, "reviewer@example.com")
	id := createDataset(t, ownerToken, "Retracted Study")
	fillDataset(t, ownerToken, id)
	publishDataset(t, ownerToken, reviewerToken, id)

	// retract: the published revision disappears, the container DOI remains
	container, err := testRepo.ContainerByUuid(ctx, id)
	assert.Nil(err)
	published, err := testRepo.LatestPublished(ctx, container)
	assert.Nil(err)
	published.IsPublic = false
	assert.Nil(testRepo.RewriteRevision(ctx, published))
	container.DOI = "10.12345/datakeep.retracted"
	assert.Nil(testRepo.RewriteContainer(ctx, container))

	response, body := request(t, "GET", "/v2/articles/"+id.String(), "", nil)
	assert.Equal(http.StatusGone, response.StatusCode)
	var result ErrorResponse
	assert.Nil(json.Unmarshal(body, &result))
	assert.Equal(http.StatusGone, result.Code)

	// an item that never existed is still a 404
	response, _ = request(t, "GET", "/v2/articles/"+uuid.New().String(), "", nil)
	assert.Equal(http.StatusNotFound, response.StatusCode)
}

// tests private links: creation, anonymous viewing and expiry
func TestPrivateLinks(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "depositor@example.com")
	id := createDataset(t, token, "Privately Shared")

	response, body := request(t, "POST",
		fmt.Sprintf("/v3/datasets/%s/private_links", id), token,
		map[string]any{"whom": "a colleague", "read_only": true})
	assert.Equal(http.StatusCreated, response.StatusCode)
	var link PrivateLinkResponse
	assert.Nil(json.Unmarshal(body, &link))
	assert.NotEmpty(link.Id)

	// the link opens the unpublished item without a session
	response, body = request(t, "GET", "/private_datasets/"+link.Id, "", nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	var detail ItemDetailResponse
	assert.Nil(json.Unmarshal(body, &detail))
	assert.Equal("Privately Shared", detail.Title)

	// an expired link renders the expired page
	response, body = request(t, "POST",
		fmt.Sprintf("/v3/datasets/%s/private_links", id), token,
		map[string]any{"expires_date": "2001-01-01"})
	assert.Equal(http.StatusCreated, response.StatusCode)
	var expired PrivateLinkResponse
	assert.Nil(json.Unmarshal(body, &expired))
	response, body = request(t, "GET", "/private_datasets/"+expired.Id, "", nil)
	assert.Equal(http.StatusGone, response.StatusCode)
	assert.Contains(response.Header.Get("Content-Type"), "text/html")
	assert.Contains(string(body), "expired")

	// an unknown link is a 404
	response, _ = request(t, "GET", "/private_datasets/nonsense", "", nil)
	assert.Equal(http.StatusNotFound, response.StatusCode)
}

// tests collaborator management over HTTP
func TestCollaborators(t *testing.T) {
	assert := assert.New(t)
	ownerToken := login(t, "depositor@example.com")
	partnerToken := login(t, "partner@example.com")
	id := createDataset(t, ownerToken, "Joint Work")

	// the partner can't see the draft yet
	response, _ := request(t, "GET", "/v2/account/articles/"+id.String(), partnerToken, nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)

	// look the partner's account uuid up behind the scenes
	partner, err := testService.(*service).Accounts.AccountByEmail(
		context.Background(), "partner@example.com")
	assert.Nil(err)

	response, _ = request(t, "POST",
		fmt.Sprintf("/v3/datasets/%s/collaborators", id), ownerToken,
		map[string]any{"account_uuid": partner.UUID, "metadata_read": true})
	assert.Equal(http.StatusCreated, response.StatusCode)

	response, _ = request(t, "GET", "/v2/account/articles/"+id.String(), partnerToken, nil)
	assert.Equal(http.StatusOK, response.StatusCode)

	// only the owner sees the grant list
	response, _ = request(t, "GET",
		fmt.Sprintf("/v3/datasets/%s/collaborators", id), partnerToken, nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)
	response, body := request(t, "GET",
		fmt.Sprintf("/v3/datasets/%s/collaborators", id), ownerToken, nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	var grants []CollaboratorResponse
	assert.Nil(json.Unmarshal(body, &grants))
	assert.Len(grants, 1)
	assert.Equal(partner.UUID, grants[0].AccountUUID)
}

// tests impersonation: switching to another account and back
func TestImpersonation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// the target account carries a legacy numeric id
	login(t, "legacy@example.com") // provisions the account
	accountStore := testService.(*service).Accounts
	target, err := accountStore.AccountByEmail(ctx, "legacy@example.com")
	assert.Nil(err)
	target.LegacyId = 42
	assert.Nil(accountStore.Db.DeleteSubject(ctx, target.Uri()))
	assert.Nil(accountStore.Db.Insert(ctx, target.Triples()))
	accountStore.Cache.Invalidate("accounts")

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	// log the administrator in through the cookie flow
	loginBody, _ := json.Marshal(map[string]string{"email": "admin@example.com"})
	response, err := client.Post(serviceUrl("/login"), "application/json",
		bytes.NewReader(loginBody))
	assert.Nil(err)
	response.Body.Close()
	assert.Equal(http.StatusOK, response.StatusCode)

	impersonateBody, _ := json.Marshal(map[string]int{"impersonate": 42})
	response, err = client.Post(serviceUrl("/v3/accounts/impersonate"),
		"application/json", bytes.NewReader(impersonateBody))
	assert.Nil(err)
	payload, _ := io.ReadAll(response.Body)
	response.Body.Close()
	assert.Equal(http.StatusOK, response.StatusCode)
	var impersonated struct {
		Token string `json:"token"`
	}
	assert.Nil(json.Unmarshal(payload, &impersonated))

	// the new token acts as the target account
	account, _, err := accountStore.AccountBySessionToken(ctx, impersonated.Token, -1)
	assert.Nil(err)
	assert.NotNil(account)
	assert.Equal("legacy@example.com", account.Email)

	// and the sealed cookie undoes the switch
	response, err = client.Post(serviceUrl("/v3/accounts/unimpersonate"),
		"application/json", bytes.NewReader([]byte("{}")))
	assert.Nil(err)
	payload, _ = io.ReadAll(response.Body)
	response.Body.Close()
	assert.Equal(http.StatusOK, response.StatusCode)
	var restored struct {
		Token string `json:"token"`
	}
	assert.Nil(json.Unmarshal(payload, &restored))
	account, _, err = accountStore.AccountBySessionToken(ctx, restored.Token, -1)
	assert.Nil(err)
	assert.NotNil(account)
	assert.Equal("admin@example.com", account.Email)

	// ordinary accounts can't impersonate
	plainToken := login(t, "depositor@example.com")
	response2, _ := request(t, "POST", "/v3/accounts/impersonate", plainToken,
		map[string]int{"impersonate": 42})
	assert.Equal(http.StatusForbidden, response2.StatusCode)
}

// tests that logging out mid-impersonation restores the original session
// rather than destroying it
func TestLogoutWhileImpersonating(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	login(t, "shadow@example.com") // provisions the account
	accountStore := testService.(*service).Accounts
	target, err := accountStore.AccountByEmail(ctx, "shadow@example.com")
	assert.Nil(err)
	target.LegacyId = 77
	assert.Nil(accountStore.Db.DeleteSubject(ctx, target.Uri()))
	assert.Nil(accountStore.Db.Insert(ctx, target.Triples()))
	accountStore.Cache.Invalidate("accounts")

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	loginBody, _ := json.Marshal(map[string]string{"email": "admin@example.com"})
	response, err := client.Post(serviceUrl("/login"), "application/json",
		bytes.NewReader(loginBody))
	assert.Nil(err)
	payload, _ := io.ReadAll(response.Body)
	response.Body.Close()
	assert.Equal(http.StatusOK, response.StatusCode)
	var adminSession struct {
		Token string `json:"token"`
	}
	assert.Nil(json.Unmarshal(payload, &adminSession))

	impersonateBody, _ := json.Marshal(map[string]int{"impersonate": 77})
	response, err = client.Post(serviceUrl("/v3/accounts/impersonate"),
		"application/json", bytes.NewReader(impersonateBody))
	assert.Nil(err)
	payload, _ = io.ReadAll(response.Body)
	response.Body.Close()
	assert.Equal(http.StatusOK, response.StatusCode)
	var impersonated struct {
		Token string `json:"token"`
	}
	assert.Nil(json.Unmarshal(payload, &impersonated))

	// logging out ends only the impersonated session
	response, err = client.Post(serviceUrl("/logout"), "application/json", nil)
	assert.Nil(err)
	response.Body.Close()
	assert.Equal(http.StatusNoContent, response.StatusCode)

	account, _, err := accountStore.AccountBySessionToken(ctx, impersonated.Token, -1)
	assert.Nil(err)
	assert.Nil(account)
	account, _, err = accountStore.AccountBySessionToken(ctx, adminSession.Token, -1)
	assert.Nil(err)
	assert.NotNil(account)
	assert.Equal("admin@example.com", account.Email)

	// the client is back on the original session
	response, err = client.Get(serviceUrl("/v2/account/articles"))
	assert.Nil(err)
	response.Body.Close()
	assert.Equal(http.StatusOK, response.StatusCode)

	// a second logout is a plain one and ends the original session too
	response, err = client.Post(serviceUrl("/logout"), "application/json", nil)
	assert.Nil(err)
	response.Body.Close()
	assert.Equal(http.StatusNoContent, response.StatusCode)
	account, _, err = accountStore.AccountBySessionToken(ctx, adminSession.Token, -1)
	assert.Nil(err)
	assert.Nil(account)
	response, err = client.Get(serviceUrl("/v2/account/articles"))
	assert.Nil(err)
	response.Body.Close()
	assert.Equal(http.StatusForbidden, response.StatusCode)
}

// tests that logging out invalidates the session token
func TestLogout(t *testing.T) {
	assert := assert.New(t)
	token := login(t, "fleeting@example.com")

	response, _ := request(t, "GET", "/v2/account/articles", token, nil)
	assert.Equal(http.StatusOK, response.StatusCode)

	response, _ = request(t, "POST", "/logout", token, nil)
	assert.Equal(http.StatusNoContent, response.StatusCode)

	response, _ = request(t, "GET", "/v2/account/articles", token, nil)
	assert.Equal(http.StatusForbidden, response.StatusCode)
}

// tests the Prometheus metrics endpoint
func TestMetricsEndpoint(t *testing.T) {
	assert := assert.New(t)
	response, body := request(t, "GET", "/metrics", "", nil)
	assert.Equal(http.StatusOK, response.StatusCode)
	assert.Contains(string(body), "datakeep_http_requests_total")
}
