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
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/datakeep/datakeep/rdf"
)

// the bucket holding serialized triples in a snapshot file
var snapshotBucket = []byte("triples")

// the JSON shape of a snapshotted triple
type storedTriple struct {
	Subject   string `json:"s"`
	Predicate string `json:"p"`
	Kind      int    `json:"k"`
	Int       int    `json:"i,omitempty"`
	Bool      bool   `json:"b,omitempty"`
	Text      string `json:"t,omitempty"`
}

// MemStore keeps the graph in process memory behind the same interface as the
// remote endpoint. With a non-empty path it persists snapshots to a bbolt
// file: the graph is loaded when the store opens and written back on Close.
// The raw query passthroughs are unsupported.
type MemStore struct {
	mu      sync.RWMutex
	triples []rdf.Triple
	// subject -> indices into triples, for the dominant lookup shape
	bySubject map[string][]int
	path      string
	audit     AuditFunc
}

// NewMemStore creates an in-memory store. path may be empty for a purely
// transient store.
func NewMemStore(path string, audit AuditFunc) (*MemStore, error) {
	store := &MemStore{
		triples:   make([]rdf.Triple, 0),
		bySubject: make(map[string][]int),
		path:      path,
		audit:     audit,
	}
	if path != "" {
		if err := store.load(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (store *MemStore) Match(ctx context.Context, pattern rdf.Pattern) ([]rdf.Triple, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	matches := make([]rdf.Triple, 0)
	if pattern.Subject != nil { // indexed path
		for _, i := range store.bySubject[*pattern.Subject] {
			if store.triples[i].Subject != "" && pattern.Matches(store.triples[i]) {
				matches = append(matches, store.triples[i])
			}
		}
		return matches, nil
	}
	for _, triple := range store.triples {
		if triple.Subject != "" && pattern.Matches(triple) {
			matches = append(matches, triple)
		}
	}
	return matches, nil
}

func (store *MemStore) Ask(ctx context.Context, pattern rdf.Pattern) (bool, error) {
	matches, _ := store.Match(ctx, pattern)
	return len(matches) > 0, nil
}

func (store *MemStore) Insert(ctx context.Context, triples []rdf.Triple) error {
	if store.audit != nil {
		for _, triple := range triples {
			store.audit(triple.Serialize())
		}
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, triple := range triples {
		store.bySubject[triple.Subject] = append(store.bySubject[triple.Subject],
			len(store.triples))
		store.triples = append(store.triples, triple)
	}
	return nil
}

func (store *MemStore) DeleteSubject(ctx context.Context, subject string) error {
	return store.DeletePattern(ctx, rdf.SubjectPattern(subject))
}

func (store *MemStore) DeletePattern(ctx context.Context, pattern rdf.Pattern) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	// deleted triples are tombstoned with an empty subject; indices stay valid
	if pattern.Subject != nil {
		for _, i := range store.bySubject[*pattern.Subject] {
			if store.triples[i].Subject != "" && pattern.Matches(store.triples[i]) {
				store.triples[i] = rdf.Triple{}
			}
		}
		return nil
	}
	for i, triple := range store.triples {
		if triple.Subject != "" && pattern.Matches(triple) {
			store.triples[i] = rdf.Triple{}
		}
	}
	return nil
}

func (store *MemStore) RunSelect(ctx context.Context, query string) ([]map[string]rdf.Value, error) {
	return nil, ErrRawQueriesUnsupported
}

func (store *MemStore) RunUpdate(ctx context.Context, query string) error {
	return ErrRawQueriesUnsupported
}

// Close snapshots the graph to the configured file (if any).
func (store *MemStore) Close() error {
	if store.path == "" {
		return nil
	}
	return store.Save()
}

// Save writes the current graph to the snapshot file.
func (store *MemStore) Save() error {
	store.mu.RLock()
	defer store.mu.RUnlock()

	db, err := bolt.Open(store.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		tx.DeleteBucket(snapshotBucket)
		bucket, err := tx.CreateBucket(snapshotBucket)
		if err != nil {
			return err
		}
		for i, triple := range store.triples {
			if triple.Subject == "" {
				continue
			}
			key := []byte(u64be(uint64(i)))
			value, err := json.Marshal(encodeTriple(triple))
			if err != nil {
				return err
			}
			if err := bucket.Put(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (store *MemStore) load() error {
	db, err := bolt.Open(store.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return nil // fresh file
		}
		return bucket.ForEach(func(key, value []byte) error {
			var stored storedTriple
			if err := json.Unmarshal(value, &stored); err != nil {
				return err
			}
			triple := decodeTriple(stored)
			store.bySubject[triple.Subject] = append(store.bySubject[triple.Subject],
				len(store.triples))
			store.triples = append(store.triples, triple)
			return nil
		})
	})
}

// big-endian fixed-width key so bbolt iterates in insertion order
func u64be(i uint64) string {
	var b [8]byte
	for shift := 0; shift < 8; shift++ {
		b[shift] = byte(i >> uint(56-8*shift))
	}
	return string(b[:])
}

func encodeTriple(triple rdf.Triple) storedTriple {
	stored := storedTriple{
		Subject:   triple.Subject,
		Predicate: triple.Predicate,
		Kind:      int(triple.Object.Kind()),
	}
	switch triple.Object.Kind() {
	case rdf.Int:
		stored.Int = triple.Object.Int()
	case rdf.Bool:
		stored.Bool = triple.Object.Bool()
	default:
		stored.Text = triple.Object.String()
	}
	return stored
}

func decodeTriple(stored storedTriple) rdf.Triple {
	var object rdf.Value
	switch rdf.Kind(stored.Kind) {
	case rdf.Null:
		object = rdf.NewNull()
	case rdf.Int:
		object = rdf.NewInt(stored.Int)
	case rdf.Bool:
		object = rdf.NewBool(stored.Bool)
	case rdf.DateTime:
		object = rdf.NewDateTime(stored.Text)
	case rdf.Date:
		object = rdf.NewDate(stored.Text)
	case rdf.Uri:
		object = rdf.NewUri(stored.Text)
	default:
		object = rdf.NewString(stored.Text)
	}
	return rdf.Triple{Subject: stored.Subject, Predicate: stored.Predicate, Object: object}
}
