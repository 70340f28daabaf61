package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/journal"
	"github.com/datakeep/datakeep/services"
	"github.com/datakeep/datakeep/sparql"
)

//go:generate mkdir -p services/docs
//go:generate redoc-cli bundle docs/openapi.yaml
//go:generate cp docs/openapi.yaml services/docs/openapi.yaml
//go:generate mv redoc-static.html services/docs/index.html

// The above logic generates the bundled API documentation served by the docs
// package under the "docs" endpoint prefix. To enable these endpoints, you
// must use the "docs" build: go build -tags docs

// Prints usage info.
func usage() {
	fmt.Fprintf(os.Stderr, "%s: usage:\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "%s <config_file>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "See README.md for details on config files.\n")
	os.Exit(1)
}

// openTriplestore connects to the configured metadata store: a remote SPARQL
// endpoint when one is given, the embedded store otherwise.
func openTriplestore() (sparql.Store, error) {
	var audit sparql.AuditFunc
	if config.Triplestore.AuditEnabled {
		audit = func(query string) {
			if err := journal.RecordAudit(query); err != nil {
				slog.Error(fmt.Sprintf("Couldn't record audit entry: %s", err.Error()))
			}
		}
	}
	if config.Triplestore.Endpoint != "" && !config.Triplestore.InMemory {
		return sparql.NewRemoteStore(config.Triplestore.Endpoint,
			config.Triplestore.UpdateEndpoint, config.Triplestore.GraphUri,
			audit), nil
	}
	return sparql.NewMemStore(config.Triplestore.StatePath, audit)
}

func main() {

	// The only argument is the configuration filename.
	if len(os.Args) < 2 {
		usage()
	}
	configFile := os.Args[1]

	// Read the configuration file.
	log.Printf("Reading configuration from '%s'...\n", configFile)
	b, err := os.ReadFile(configFile)
	if err != nil {
		log.Panicf("Couldn't read %s: %s\n", configFile, err.Error())
	}
	if err := config.Init(b); err != nil {
		log.Panicf("Couldn't initialize the configuration: %s\n", err.Error())
	}

	// Open the event journal and the metadata store, then create the service.
	if err := journal.Init(); err != nil {
		log.Panicf("Couldn't open the event journal: %s\n", err.Error())
	}
	db, err := openTriplestore()
	if err != nil {
		log.Panicf("Couldn't open the metadata store: %s\n", err.Error())
	}
	service, err := services.NewService(db)
	if err != nil {
		log.Panicf("Couldn't create the service: %s\n", err.Error())
	}

	// Start the service in a goroutine so it doesn't block.
	go func() {
		err = service.Start(config.Service.Port)
		if err != nil {
			log.Println(err.Error())
		}
	}()

	// Intercept the SIGINT, SIGHUP, SIGTERM, and SIGQUIT signals, shutting down
	// the service as gracefully as possible if they are encountered.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	// Block till we receive one of the above signals.
	<-sigChan

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Wait for connections to close until the deadline elapses.
	service.Shutdown(ctx)
	db.Close()
	if err := journal.Finalize(); err != nil {
		log.Println(err.Error())
	}
	log.Println("Shutting down")
	os.Exit(0)
}
