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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datakeep/datakeep/rdf"
)

func testTriples() []rdf.Triple {
	return []rdf.Triple{
		{Subject: "urn:uuid:a", Predicate: rdf.TypePredicate, Object: rdf.NewUri(rdf.Class("Revision"))},
		{Subject: "urn:uuid:a", Predicate: rdf.Predicate("title"), Object: rdf.NewString("First")},
		{Subject: "urn:uuid:a", Predicate: rdf.Predicate("version"), Object: rdf.NewInt(1)},
		{Subject: "urn:uuid:b", Predicate: rdf.Predicate("title"), Object: rdf.NewString("Second")},
	}
}

// tests insertion and the indexed and unindexed match paths
func TestMemStoreInsertAndMatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, err := NewMemStore("", nil)
	assert.Nil(err)

	assert.Nil(store.Insert(ctx, testTriples()))

	// by subject (indexed)
	matches, err := store.Match(ctx, rdf.SubjectPattern("urn:uuid:a"))
	assert.Nil(err)
	assert.Len(matches, 3)

	// by predicate only (linear scan)
	title := rdf.Predicate("title")
	matches, err = store.Match(ctx, rdf.Pattern{Predicate: &title})
	assert.Nil(err)
	assert.Len(matches, 2)

	// exact
	exists, err := store.Ask(ctx, rdf.ExactPattern("urn:uuid:a",
		rdf.Predicate("version"), rdf.NewInt(1)))
	assert.Nil(err)
	assert.True(exists)

	exists, err = store.Ask(ctx, rdf.SubjectPattern("urn:uuid:missing"))
	assert.Nil(err)
	assert.False(exists)
}

// tests that deleting a subject removes all of its triples and nothing else
func TestMemStoreDeleteSubject(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := NewMemStore("", nil)
	store.Insert(ctx, testTriples())

	assert.Nil(store.DeleteSubject(ctx, "urn:uuid:a"))

	matches, _ := store.Match(ctx, rdf.SubjectPattern("urn:uuid:a"))
	assert.Len(matches, 0)
	matches, _ = store.Match(ctx, rdf.SubjectPattern("urn:uuid:b"))
	assert.Len(matches, 1)
}

// tests that pattern deletion only removes matching triples
func TestMemStoreDeletePattern(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := NewMemStore("", nil)
	store.Insert(ctx, testTriples())

	title := rdf.Predicate("title")
	assert.Nil(store.DeletePattern(ctx, rdf.Pattern{Predicate: &title}))

	matches, _ := store.Match(ctx, rdf.Pattern{})
	assert.Len(matches, 2)
	for _, triple := range matches {
		assert.NotEqual(title, triple.Predicate)
	}
}

// tests that a subject can be rewritten after deletion (tombstones must not
// shadow reinserted triples)
func TestMemStoreReinsertAfterDelete(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := NewMemStore("", nil)
	store.Insert(ctx, testTriples())

	store.DeleteSubject(ctx, "urn:uuid:a")
	store.Insert(ctx, []rdf.Triple{
		{Subject: "urn:uuid:a", Predicate: rdf.Predicate("title"), Object: rdf.NewString("Renamed")},
	})

	matches, _ := store.Match(ctx, rdf.SubjectPattern("urn:uuid:a"))
	assert.Len(matches, 1)
	assert.Equal("Renamed", matches[0].Object.String())
}

// tests that the graph survives a snapshot/load round trip
func TestMemStoreSnapshotRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	store, err := NewMemStore(path, nil)
	assert.Nil(err)
	store.Insert(ctx, testTriples())
	store.DeleteSubject(ctx, "urn:uuid:b")
	assert.Nil(store.Close())

	reopened, err := NewMemStore(path, nil)
	assert.Nil(err)
	matches, _ := reopened.Match(ctx, rdf.Pattern{})
	assert.Len(matches, 3)
	exists, _ := reopened.Ask(ctx, rdf.ExactPattern("urn:uuid:a",
		rdf.Predicate("version"), rdf.NewInt(1)))
	assert.True(exists)
	exists, _ = reopened.Ask(ctx, rdf.SubjectPattern("urn:uuid:b"))
	assert.False(exists)
}

// tests that the in-memory store refuses raw console queries
func TestMemStoreRejectsRawQueries(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := NewMemStore("", nil)

	_, err := store.RunSelect(ctx, "SELECT * WHERE { ?s ?p ?o }")
	assert.Equal(ErrRawQueriesUnsupported, err)
	err = store.RunUpdate(ctx, "CLEAR ALL")
	assert.Equal(ErrRawQueriesUnsupported, err)
}

// tests that write queries reach the audit function
func TestMemStoreAudit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	audited := make([]string, 0)
	store, _ := NewMemStore("", func(query string) {
		audited = append(audited, query)
	})

	store.Insert(ctx, testTriples()[:2])
	assert.Len(audited, 2)
	assert.Contains(audited[1], "First")
}
