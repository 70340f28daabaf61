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

// Package sparql is the gateway to the repository's triple store. All
// persistent state lives in a single named graph behind the Store interface,
// which has two implementations: a SPARQL 1.1 HTTP endpoint and an in-memory
// store with optional file-backed snapshots.
package sparql

import (
	"context"

	"github.com/datakeep/datakeep/rdf"
)

// Store is the interface shared by the remote SPARQL endpoint and the local
// in-memory store. Reads that fail transiently return empty results; writes
// report failure through their error return and must be treated as not
// applied.
type Store interface {
	// returns all triples matching the given pattern (order unspecified;
	// ordered lists carry explicit indices)
	Match(ctx context.Context, pattern rdf.Pattern) ([]rdf.Triple, error)
	// reports whether any triple matches the given pattern (errors => false)
	Ask(ctx context.Context, pattern rdf.Pattern) (bool, error)
	// inserts the given triples into the graph, in batches of at most
	// InsertBatchSize triples per query
	Insert(ctx context.Context, triples []rdf.Triple) error
	// removes every triple whose subject is the given URI
	DeleteSubject(ctx context.Context, subject string) error
	// removes every triple matching the given pattern
	DeletePattern(ctx context.Context, pattern rdf.Pattern) error
	// runs a raw SELECT query, returning normalized rows (manual console use;
	// unsupported on the in-memory store)
	RunSelect(ctx context.Context, query string) ([]map[string]rdf.Value, error)
	// runs a raw update query (manual console use; unsupported on the
	// in-memory store)
	RunUpdate(ctx context.Context, query string) error
	// flushes any buffered state to durable storage and releases resources
	Close() error
}

// the maximum number of triples inserted by a single update query
const InsertBatchSize = 250

// An AuditFunc receives the verbatim text of every write query (and every
// manual query) before it is executed. It may be nil, disabling the audit.
type AuditFunc func(query string)
