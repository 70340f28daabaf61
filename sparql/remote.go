// Copyright (c) 2025 The DataKeep Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/datakeep/datakeep/rdf"
)

// HTTP 503 responses are retried this many times, with no backoff
const maxRetries = 5

// The named query templates from which every generated query is produced.
// Terms are rendered into template parameters only as escaped SPARQL
// literals or validated IRIs, never as raw strings.
var queryTemplates = func() *template.Template {
	t := template.New("queries")
	template.Must(t.New("match").Parse(
		`SELECT ?s ?p ?o WHERE { GRAPH <{{.Graph}}> { {{.Subject}} {{.Predicate}} {{.Object}} . } }`))
	template.Must(t.New("ask").Parse(
		`ASK { GRAPH <{{.Graph}}> { {{.Subject}} {{.Predicate}} {{.Object}} . } }`))
	template.Must(t.New("insert").Parse(
		"INSERT DATA { GRAPH <{{.Graph}}> {\n{{range .Triples}}{{.}}\n{{end}}} }"))
	template.Must(t.New("delete").Parse(
		`WITH <{{.Graph}}> DELETE { {{.Subject}} {{.Predicate}} {{.Object}} } ` +
			`WHERE { {{.Subject}} {{.Predicate}} {{.Object}} }`))
	return t
}()

// template parameters for a single triple pattern
type patternParams struct {
	Graph                      string
	Subject, Predicate, Object string
}

func paramsFor(graph string, pattern rdf.Pattern) patternParams {
	params := patternParams{Graph: graph, Subject: "?s", Predicate: "?p", Object: "?o"}
	if pattern.Subject != nil {
		params.Subject = fmt.Sprintf("<%s>", *pattern.Subject)
	}
	if pattern.Predicate != nil {
		params.Predicate = fmt.Sprintf("<%s>", *pattern.Predicate)
	}
	if pattern.Object != nil {
		params.Object = pattern.Object.Literal()
	}
	return params
}

// RemoteStore speaks the SPARQL 1.1 HTTP protocol against a configured
// endpoint, confining itself to a single named graph.
type RemoteStore struct {
	// query and update endpoint URLs (often identical)
	Endpoint       string
	UpdateEndpoint string
	// URI of the named graph holding all repository state
	Graph string

	client http.Client
	audit  AuditFunc
	down   atomic.Bool
}

// NewRemoteStore connects a store to a SPARQL endpoint. audit may be nil to
// disable the per-query write log.
func NewRemoteStore(endpoint, updateEndpoint, graph string, audit AuditFunc) *RemoteStore {
	if updateEndpoint == "" {
		updateEndpoint = endpoint
	}
	return &RemoteStore{
		Endpoint:       endpoint,
		UpdateEndpoint: updateEndpoint,
		Graph:          graph,
		client:         SecureHttpClient(30 * time.Second),
		audit:          audit,
	}
}

// Down reports whether the most recent call to the endpoint failed at the
// network level. The flag clears on the next success.
func (store *RemoteStore) Down() bool {
	return store.down.Load()
}

func (store *RemoteStore) render(name string, data any) string {
	var b strings.Builder
	if err := queryTemplates.ExecuteTemplate(&b, name, data); err != nil {
		// the templates are static; a failure here is a programming error
		panic(err)
	}
	return b.String()
}

// posts a form to the given URL, retrying 503s; marks the endpoint down on
// network errors
func (store *RemoteStore) post(ctx context.Context, endpoint string,
	form url.Values, accept string) (*http.Response, error) {

	var resp *http.Response
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
			strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		resp, err = store.client.Do(req)
		if err != nil {
			store.down.Store(true)
			return nil, &EndpointDownError{Endpoint: endpoint, Message: err.Error()}
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			break
		}
		resp.Body.Close()
	}
	store.down.Store(false)
	return resp, nil
}

// the wire shape of a SPARQL JSON result set
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results struct {
		Bindings []map[string]struct {
			Type     string `json:"type"`
			Datatype string `json:"datatype"`
			Value    string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// runs a SELECT or ASK query; failures are logged and yield an empty result
func (store *RemoteStore) query(ctx context.Context, query string) (*sparqlResults, error) {
	resp, err := store.post(ctx, store.Endpoint, url.Values{"query": {query}},
		"application/sparql-results+json")
	if err != nil {
		slog.Error("SPARQL query failed", "error", err.Error())
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("SPARQL query rejected", "status", resp.StatusCode, "body", string(body))
		return nil, nil
	}
	var results sparqlResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		slog.Error("Couldn't decode SPARQL results", "error", err.Error())
		return nil, nil
	}
	return &results, nil
}

// runs an update query; the caller must treat a returned error as "write not
// applied"
func (store *RemoteStore) update(ctx context.Context, query string) error {
	if store.audit != nil {
		store.audit(query)
	}
	resp, err := store.post(ctx, store.UpdateEndpoint, url.Values{"update": {query}}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("SPARQL update rejected", "status", resp.StatusCode)
		return &UpdateFailedError{Status: resp.StatusCode}
	}
	return nil
}

func (store *RemoteStore) Match(ctx context.Context, pattern rdf.Pattern) ([]rdf.Triple, error) {
	results, err := store.query(ctx, store.render("match", paramsFor(store.Graph, pattern)))
	triples := make([]rdf.Triple, 0)
	if results == nil || err != nil {
		return triples, nil // transient failure reads as "no data"
	}
	for _, row := range results.Results.Bindings {
		triple := rdf.Triple{}
		if pattern.Subject != nil {
			triple.Subject = *pattern.Subject
		} else if s, found := row["s"]; found {
			triple.Subject = s.Value
		}
		if pattern.Predicate != nil {
			triple.Predicate = *pattern.Predicate
		} else if p, found := row["p"]; found {
			triple.Predicate = p.Value
		}
		if pattern.Object != nil {
			triple.Object = *pattern.Object
		} else if o, found := row["o"]; found {
			triple.Object = rdf.NormalizeBinding(o.Type, o.Datatype, o.Value)
		}
		triples = append(triples, triple)
	}
	return triples, nil
}

func (store *RemoteStore) Ask(ctx context.Context, pattern rdf.Pattern) (bool, error) {
	results, err := store.query(ctx, store.render("ask", paramsFor(store.Graph, pattern)))
	if results == nil || results.Boolean == nil || err != nil {
		return false, nil
	}
	return *results.Boolean, nil
}

func (store *RemoteStore) Insert(ctx context.Context, triples []rdf.Triple) error {
	for start := 0; start < len(triples); start += InsertBatchSize {
		end := min(start+InsertBatchSize, len(triples))
		serialized := make([]string, 0, end-start)
		for _, triple := range triples[start:end] {
			serialized = append(serialized, triple.Serialize())
		}
		query := store.render("insert", struct {
			Graph   string
			Triples []string
		}{store.Graph, serialized})
		if err := store.update(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (store *RemoteStore) DeleteSubject(ctx context.Context, subject string) error {
	return store.DeletePattern(ctx, rdf.SubjectPattern(subject))
}

func (store *RemoteStore) DeletePattern(ctx context.Context, pattern rdf.Pattern) error {
	return store.update(ctx, store.render("delete", paramsFor(store.Graph, pattern)))
}

func (store *RemoteStore) RunSelect(ctx context.Context, query string) ([]map[string]rdf.Value, error) {
	if store.audit != nil {
		store.audit(query)
	}
	results, err := store.query(ctx, query)
	rows := make([]map[string]rdf.Value, 0)
	if results == nil || err != nil {
		return rows, err
	}
	for _, binding := range results.Results.Bindings {
		row := make(map[string]rdf.Value)
		for name, term := range binding {
			row[name] = rdf.NormalizeBinding(term.Type, term.Datatype, term.Value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (store *RemoteStore) RunUpdate(ctx context.Context, query string) error {
	return store.update(ctx, query)
}

func (store *RemoteStore) Close() error {
	return nil
}
