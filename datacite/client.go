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

// Package datacite talks to the DataCite REST API to reserve and register
// DOIs during publication.
package datacite

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/sparql"
)

// Registry is the interface the publication workflow uses, so tests can
// substitute a fake registry.
type Registry interface {
	// Reserve registers a draft DOI. A DOI that is already reserved is not
	// an error; the reserved DOI is returned either way.
	Reserve(ctx context.Context, doi string) (string, error)
	// Register publishes a DOI, attaching the landing URL and the DataCite
	// metadata record.
	Register(ctx context.Context, doi, landingUrl string, record *Record) error
}

// Client talks to a DataCite endpoint using the credentials and prefix from
// the service configuration.
type Client struct {
	Url      string
	Username string
	Password string
	Prefix   string
	Http     http.Client
}

// NewClient creates a registry client from the service configuration.
func NewClient() *Client {
	return &Client{
		Url:      config.DataCite.Url,
		Username: config.DataCite.Username,
		Password: config.DataCite.Password,
		Prefix:   config.DataCite.Prefix,
		Http:     sparql.SecureHttpClient(30 * time.Second),
	}
}

// MintDoi forms a new DOI under the configured prefix from an item
// identifier.
func (client *Client) MintDoi(suffix string) string {
	return fmt.Sprintf("%s/datakeep.%s", client.Prefix, suffix)
}

// the request/response envelope of the DataCite REST API
type doiEnvelope struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Doi   string `json:"doi,omitempty"`
			Event string `json:"event,omitempty"`
			Url   string `json:"url,omitempty"`
			Xml   string `json:"xml,omitempty"`
		} `json:"attributes"`
	} `json:"data"`
}

func (client *Client) Reserve(ctx context.Context, doi string) (string, error) {
	if client.Url == "" {
		return "", &NotConfiguredError{}
	}

	var envelope doiEnvelope
	envelope.Data.Type = "dois"
	envelope.Data.Attributes.Doi = doi
	body, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}

	status, err := client.send(ctx, http.MethodPost, client.Url+"/dois", body)
	if err != nil {
		return "", err
	}
	// 422 means the DOI is already reserved, which is fine: reservation is
	// idempotent
	if status != http.StatusCreated && status != http.StatusUnprocessableEntity {
		return "", &RequestFailedError{Operation: "reserve", Status: status}
	}
	return doi, nil
}

func (client *Client) Register(ctx context.Context, doi, landingUrl string,
	record *Record) error {

	if client.Url == "" {
		return &NotConfiguredError{}
	}

	xmlBytes, err := record.Serialize()
	if err != nil {
		return err
	}
	var envelope doiEnvelope
	envelope.Data.Type = "dois"
	envelope.Data.Attributes.Event = "publish"
	envelope.Data.Attributes.Url = landingUrl
	envelope.Data.Attributes.Xml = base64.StdEncoding.EncodeToString(xmlBytes)
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	status, err := client.send(ctx, http.MethodPut, client.Url+"/dois/"+doi, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &RequestFailedError{Operation: "register", Status: status}
	}
	return nil
}

func (client *Client) send(ctx context.Context, method, url string,
	body []byte) (int, error) {

	request, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	request.Header.Set("Content-Type", "application/vnd.api+json")
	request.SetBasicAuth(client.Username, client.Password)
	response, err := client.Http.Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)
	return response.StatusCode, nil
}
