package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/datakeep/datakeep/accounts"
	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/datacite"
	"github.com/datakeep/datakeep/filestore"
	"github.com/datakeep/datakeep/repository"
	"github.com/datakeep/datakeep/sparql"
	"github.com/datakeep/datakeep/workflow"
)

// Version numbers
var majorVersion = 1
var minorVersion = 0
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// RepositoryService defines the interface for the data repository service.
type RepositoryService interface {
	// Starts the service on the selected port, returning an error that indicates
	// success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}

// This type implements the RepositoryService interface, serving the metadata
// catalog, the file store and the editorial workflow over HTTP.
type service struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server
	Server *http.Server

	// domain state shared by all handlers
	Accounts *accounts.Store
	Repo     *repository.Repo
	Files    *filestore.Store
	Flow     *workflow.Flow
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root (no authorization needed for this one)
func (service *service) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

// returns the uptime for the service in seconds
func (service *service) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// NewService constructs the repository service on top of the given triple
// store.
func NewService(db sparql.Store) (RepositoryService, error) {

	// validate our configuration
	if config.Service.BaseUrl == "" {
		return nil, fmt.Errorf("No base URL was specified.")
	}
	if config.Storage.Storage == "" {
		return nil, fmt.Errorf("No storage root was specified.")
	}

	queryCache := cache.NewQueryCache()
	accountStore := accounts.NewStore(db, queryCache)
	repo := repository.NewRepo(db, queryCache)

	service := new(service)
	service.Name = "DataKeep"
	service.Version = version
	service.Port = -1
	service.Accounts = accountStore
	service.Repo = repo
	service.Files = filestore.NewStore(repo, accountStore)
	service.Flow = workflow.NewFlow(repo, datacite.NewClient())

	// errors surfaced through the API wrapper use the {message,code} shape
	huma.NewError = func(status int, message string, _ ...error) huma.StatusError {
		if status == http.StatusInternalServerError {
			return &apiError{status: status}
		}
		return &apiError{status: status, Message: message, Code: status}
	}

	// set up routing
	service.Router = mux.NewRouter()
	service.Router.Use(countRequests)
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	service.API = api
	huma.Get(api, "/", service.getRoot)

	// API v2: public item metadata
	huma.Get(api, "/v2/articles", service.getArticles)
	huma.Get(api, "/v2/articles/{id}", service.getArticle)
	huma.Get(api, "/v2/articles/{id}/versions", service.getArticleVersions)
	huma.Get(api, "/v2/articles/{id}/versions/{version}", service.getArticleVersion)
	huma.Get(api, "/v2/articles/{id}/files", service.getArticleFiles)
	huma.Get(api, "/v2/articles/{id}/files/{fid}", service.getArticleFile)
	huma.Get(api, "/v2/collections", service.getCollections)
	huma.Get(api, "/v2/collections/{id}", service.getCollection)
	huma.Get(api, "/v2/collections/{id}/versions", service.getCollectionVersions)
	huma.Get(api, "/v2/collections/{id}/versions/{version}", service.getCollectionVersion)

	// API v2: the depositor's own items
	huma.Get(api, "/v2/account/articles", service.getAccountArticles)
	huma.Post(api, "/v2/account/articles", service.createAccountArticle)
	huma.Get(api, "/v2/account/articles/{id}", service.getAccountArticle)
	huma.Put(api, "/v2/account/articles/{id}", service.updateAccountArticle)
	huma.Delete(api, "/v2/account/articles/{id}", service.deleteAccountArticle)
	huma.Get(api, "/v2/account/articles/{id}/authors", service.getAccountArticleAuthors)
	huma.Post(api, "/v2/account/articles/{id}/authors", service.addAccountArticleAuthor)
	huma.Delete(api, "/v2/account/articles/{id}/authors/{aid}", service.removeAccountArticleAuthor)
	huma.Get(api, "/v2/account/articles/{id}/files", service.getAccountArticleFiles)
	huma.Delete(api, "/v2/account/articles/{id}/files/{fid}", service.deleteAccountArticleFile)
	huma.Get(api, "/v2/account/collections", service.getAccountCollections)
	huma.Post(api, "/v2/account/collections", service.createAccountCollection)
	huma.Get(api, "/v2/account/collections/{id}", service.getAccountCollection)
	huma.Put(api, "/v2/account/collections/{id}", service.updateAccountCollection)
	huma.Delete(api, "/v2/account/collections/{id}", service.deleteAccountCollection)
	huma.Put(api, "/v2/account/collections/{id}/datasets", service.putAccountCollectionDatasets)

	// API v3 and the UI-facing routes stream bytes or redirect, so they are
	// plain handlers on the router.
	service.addV3Routes()
	service.addGitRoutes()
	service.addDeliveryRoutes()
	service.addSessionRoutes()
	addMetricsRoute(service.Router)
	if HaveDocEndpoints {
		AddDocEndpoints(service.Router)
	}

	return service, nil
}

// starts the repository service
func (service *service) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *service) Shutdown(ctx context.Context) error {
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *service) Close() {
	if service.Server != nil {
		service.Server.Close()
	}
}
