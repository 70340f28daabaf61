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

// Package rdf holds the small vocabulary of types shared by everything that
// touches the triple store: IRIs, typed values, triples, and triple patterns.
package rdf

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// well-known namespaces
const (
	RDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSD = "http://www.w3.org/2001/XMLSchema#"
	// the DataKeep ontology namespace; every domain predicate lives here
	DK = "https://ontologies.datakeep.org/core#"
)

// frequently used terms
var (
	TypePredicate  = RDF + "type"
	FirstPredicate = RDF + "first"
	RestPredicate  = RDF + "rest"
	Nil            = RDF + "nil"
)

// Predicate returns the full IRI for a name in the DataKeep namespace.
func Predicate(name string) string {
	return DK + name
}

// Class returns the full IRI for an entity class in the DataKeep namespace.
func Class(name string) string {
	return DK + name
}

// UriFor encodes an entity UUID as its stable URI.
func UriFor(id uuid.UUID) string {
	return "urn:uuid:" + id.String()
}

// UuidFromUri recovers the UUID from an entity URI, or an error if the URI is
// not of the urn:uuid form. Wrapping untrusted identifiers in angle brackets
// is only permitted after this validation succeeds.
func UuidFromUri(uri string) (uuid.UUID, error) {
	s, ok := strings.CutPrefix(uri, "urn:uuid:")
	if !ok {
		return uuid.UUID{}, &InvalidUriError{Uri: uri}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, &InvalidUriError{Uri: uri}
	}
	return id, nil
}

// A Triple is a single statement in the named graph. Subject and Predicate
// are IRIs; the Object is a typed value.
type Triple struct {
	Subject   string
	Predicate string
	Object    Value
}

// Serialize renders the triple in SPARQL syntax (for INSERT DATA bodies).
func (t Triple) Serialize() string {
	return fmt.Sprintf("<%s> <%s> %s .", t.Subject, t.Predicate, t.Object.Literal())
}

// A Pattern is a triple with optional positions. A nil position matches any
// term in the store.
type Pattern struct {
	Subject   *string
	Predicate *string
	Object    *Value
}

// convenience constructors for the common pattern shapes

func SubjectPattern(subject string) Pattern {
	return Pattern{Subject: &subject}
}

func PredicatePattern(subject, predicate string) Pattern {
	return Pattern{Subject: &subject, Predicate: &predicate}
}

func ObjectPattern(predicate string, object Value) Pattern {
	return Pattern{Predicate: &predicate, Object: &object}
}

func ExactPattern(subject, predicate string, object Value) Pattern {
	return Pattern{Subject: &subject, Predicate: &predicate, Object: &object}
}

// Matches reports whether a triple satisfies the pattern.
func (p Pattern) Matches(t Triple) bool {
	if p.Subject != nil && *p.Subject != t.Subject {
		return false
	}
	if p.Predicate != nil && *p.Predicate != t.Predicate {
		return false
	}
	if p.Object != nil && !p.Object.Equal(t.Object) {
		return false
	}
	return true
}

// Key returns a stable textual form of the pattern, used for cache keys.
func (p Pattern) Key() string {
	var b strings.Builder
	if p.Subject != nil {
		b.WriteString(*p.Subject)
	}
	b.WriteByte('|')
	if p.Predicate != nil {
		b.WriteString(*p.Predicate)
	}
	b.WriteByte('|')
	if p.Object != nil {
		b.WriteString(p.Object.Literal())
	}
	return b.String()
}

// This error type is returned when a URI fails UUID validation.
type InvalidUriError struct {
	Uri string
}

func (e InvalidUriError) Error() string {
	return fmt.Sprintf("'%s' is not a valid entity URI", e.Uri)
}
