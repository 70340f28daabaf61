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

// Package model defines the repository's entities and how they round-trip
// through the triple store: every entity is a URI-addressed subject whose
// attributes are triples, and every ordered collection is a chain of indexed
// nodes.
package model

import (
	"context"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/sparql"
)

// entity classes
var (
	ClassDataset      = rdf.Class("Dataset")
	ClassCollection   = rdf.Class("Collection")
	ClassContainer    = rdf.Class("Container")
	ClassAccount      = rdf.Class("Account")
	ClassAuthor       = rdf.Class("Author")
	ClassFile         = rdf.Class("File")
	ClassSession      = rdf.Class("Session")
	ClassPrivateLink  = rdf.Class("PrivateLink")
	ClassCollaborator = rdf.Class("Collaborator")
	ClassReview       = rdf.Class("Review")
	ClassQuotaRequest = rdf.Class("QuotaRequest")
	ClassCategory     = rdf.Class("Category")
	ClassFunding      = rdf.Class("Funding")
)

// Properties is the attribute map of a single subject: predicate IRI to the
// values asserted for it. Most predicates are single-valued; the getters
// below take the first value and pattern-match on its kind.
type Properties map[string][]rdf.Value

// LoadProperties reads all triples of a subject into a Properties map. An
// empty map means the subject does not exist (or the read failed
// transiently, which callers treat the same way).
func LoadProperties(ctx context.Context, store sparql.Store, subject string) (Properties, error) {
	triples, err := store.Match(ctx, rdf.SubjectPattern(subject))
	if err != nil {
		return nil, err
	}
	props := make(Properties)
	for _, triple := range triples {
		props[triple.Predicate] = append(props[triple.Predicate], triple.Object)
	}
	return props, nil
}

func (p Properties) first(name string) (rdf.Value, bool) {
	values, found := p[rdf.Predicate(name)]
	if !found || len(values) == 0 {
		return rdf.NewNull(), false
	}
	return values[0], true
}

// Has reports whether the named attribute is present with a non-null value.
func (p Properties) Has(name string) bool {
	value, found := p.first(name)
	return found && !value.IsNull()
}

func (p Properties) Str(name string) string {
	value, found := p.first(name)
	if !found {
		return ""
	}
	switch value.Kind() {
	case rdf.String, rdf.DateTime, rdf.Date, rdf.Uri:
		return value.String()
	default:
		return ""
	}
}

func (p Properties) Int(name string) int {
	value, found := p.first(name)
	if !found || value.Kind() != rdf.Int {
		return 0
	}
	return value.Int()
}

func (p Properties) Bool(name string) bool {
	value, found := p.first(name)
	if !found || value.Kind() != rdf.Bool {
		return false
	}
	return value.Bool()
}

// Uuid extracts an entity reference held in the named attribute.
func (p Properties) Uuid(name string) uuid.UUID {
	value, found := p.first(name)
	if !found || value.Kind() != rdf.Uri {
		return uuid.UUID{}
	}
	id, err := rdf.UuidFromUri(value.String())
	if err != nil {
		return uuid.UUID{}
	}
	return id
}

// a small builder for entity triples that skips empty attributes
type triplesBuilder struct {
	subject string
	triples []rdf.Triple
}

func newTriples(subject string) *triplesBuilder {
	return &triplesBuilder{subject: subject, triples: make([]rdf.Triple, 0)}
}

func (b *triplesBuilder) class(class string) *triplesBuilder {
	b.triples = append(b.triples, rdf.Triple{
		Subject: b.subject, Predicate: rdf.TypePredicate, Object: rdf.NewUri(class)})
	return b
}

func (b *triplesBuilder) str(name, value string) *triplesBuilder {
	if value != "" {
		b.add(name, rdf.NewString(value))
	}
	return b
}

func (b *triplesBuilder) dateTime(name, value string) *triplesBuilder {
	if value != "" {
		b.add(name, rdf.NewDateTime(value))
	}
	return b
}

func (b *triplesBuilder) date(name, value string) *triplesBuilder {
	if value != "" {
		b.add(name, rdf.NewDate(value))
	}
	return b
}

func (b *triplesBuilder) boolean(name string, value bool) *triplesBuilder {
	b.add(name, rdf.NewBool(value))
	return b
}

func (b *triplesBuilder) integer(name string, value int) *triplesBuilder {
	b.add(name, rdf.NewInt(value))
	return b
}

// integer attribute that is omitted when zero (e.g. optional foreign keys)
func (b *triplesBuilder) optInteger(name string, value int) *triplesBuilder {
	if value != 0 {
		b.add(name, rdf.NewInt(value))
	}
	return b
}

func (b *triplesBuilder) ref(name string, id uuid.UUID) *triplesBuilder {
	if id != (uuid.UUID{}) {
		b.add(name, rdf.NewUri(rdf.UriFor(id)))
	}
	return b
}

func (b *triplesBuilder) add(name string, value rdf.Value) {
	b.triples = append(b.triples, rdf.Triple{
		Subject: b.subject, Predicate: rdf.Predicate(name), Object: value})
}

// SubjectsOfClass returns the URIs of all subjects with the given rdf:type.
func SubjectsOfClass(ctx context.Context, store sparql.Store, class string) ([]string, error) {
	triples, err := store.Match(ctx,
		rdf.ObjectPattern(rdf.TypePredicate, rdf.NewUri(class)))
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(triples))
	for _, triple := range triples {
		subjects = append(subjects, triple.Subject)
	}
	return subjects, nil
}

// ReferencingSubjects returns the URIs of all subjects that point at the
// given entity through the named predicate.
func ReferencingSubjects(ctx context.Context, store sparql.Store, name string,
	target uuid.UUID) ([]string, error) {
	triples, err := store.Match(ctx,
		rdf.ObjectPattern(rdf.Predicate(name), rdf.NewUri(rdf.UriFor(target))))
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(triples))
	for _, triple := range triples {
		subjects = append(subjects, triple.Subject)
	}
	return subjects, nil
}
