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

package model

// Ordered lists (authors, categories, files, tags, references, funding,
// private links, collaborators, datasets-within-collections) are chains of
// nodes, each carrying {index, rdf:first, rdf:rest}. The parent holds a head
// pointer under the list predicate and a tail pointer under
// "<predicate>_tail" so appends are O(1). Indices start at 0 and stay
// gapless through removals.

import (
	"context"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/sparql"
)

const indexPredicate = "index"

func tailName(name string) string { return name + "_tail" }

// one materialized chain node
type listNode struct {
	Uri   string
	Index int
	First rdf.Value
	Rest  string
}

// reads the chain in index order
func listNodes(ctx context.Context, store sparql.Store, subject, name string) ([]listNode, error) {
	props, err := LoadProperties(ctx, store, subject)
	if err != nil {
		return nil, err
	}
	head, found := props.first(name)
	if !found || head.Kind() != rdf.Uri {
		return nil, nil
	}
	nodes := make([]listNode, 0)
	for current := head.String(); current != rdf.Nil && current != ""; {
		nodeProps, err := LoadProperties(ctx, store, current)
		if err != nil {
			return nil, err
		}
		if len(nodeProps) == 0 {
			break // dangling rest pointer; treat as end of list
		}
		node := listNode{
			Uri:   current,
			Index: nodeProps.Int(indexPredicate),
			Rest:  rdf.Nil,
		}
		if values, found := nodeProps[rdf.FirstPredicate]; found && len(values) > 0 {
			node.First = values[0]
		}
		if values, found := nodeProps[rdf.RestPredicate]; found && len(values) > 0 {
			node.Rest = values[0].String()
		}
		nodes = append(nodes, node)
		current = node.Rest
	}
	return nodes, nil
}

// ReadList returns the ordered values of the named list on a subject.
func ReadList(ctx context.Context, store sparql.Store, subject, name string) ([]rdf.Value, error) {
	nodes, err := listNodes(ctx, store, subject, name)
	if err != nil {
		return nil, err
	}
	values := make([]rdf.Value, 0, len(nodes))
	for _, node := range nodes {
		values = append(values, node.First)
	}
	return values, nil
}

// ReadRefList returns the ordered entity UUIDs of a list whose values are
// entity URIs. Non-URI values are skipped.
func ReadRefList(ctx context.Context, store sparql.Store, subject, name string) ([]uuid.UUID, error) {
	values, err := ReadList(ctx, store, subject, name)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		if value.Kind() != rdf.Uri {
			continue
		}
		id, err := rdf.UuidFromUri(value.String())
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// chainTriples builds the node triples for a run of values starting at the
// given index, returning the triples plus the head and tail node URIs.
func chainTriples(values []rdf.Value, startIndex int) (triples []rdf.Triple, head, tail string) {
	uris := make([]string, len(values))
	for i := range values {
		uris[i] = rdf.UriFor(uuid.New())
	}
	triples = make([]rdf.Triple, 0, 3*len(values))
	for i, value := range values {
		rest := rdf.Nil
		if i+1 < len(values) {
			rest = uris[i+1]
		}
		triples = append(triples,
			rdf.Triple{Subject: uris[i], Predicate: rdf.Predicate(indexPredicate),
				Object: rdf.NewInt(startIndex + i)},
			rdf.Triple{Subject: uris[i], Predicate: rdf.FirstPredicate, Object: value},
			rdf.Triple{Subject: uris[i], Predicate: rdf.RestPredicate,
				Object: rdf.NewUri(rest)})
	}
	if len(uris) > 0 {
		head, tail = uris[0], uris[len(uris)-1]
	}
	return
}

// WriteList replaces the named list on a subject with the given values.
func WriteList(ctx context.Context, store sparql.Store, subject, name string,
	values []rdf.Value) error {

	if err := DeleteList(ctx, store, subject, name); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	triples, head, tail := chainTriples(values, 0)
	triples = append(triples,
		rdf.Triple{Subject: subject, Predicate: rdf.Predicate(name),
			Object: rdf.NewUri(head)},
		rdf.Triple{Subject: subject, Predicate: rdf.Predicate(tailName(name)),
			Object: rdf.NewUri(tail)})
	return store.Insert(ctx, triples)
}

// AppendToList extends the named list by one value using the cached tail
// pointer, without touching the existing chain nodes.
func AppendToList(ctx context.Context, store sparql.Store, subject, name string,
	value rdf.Value) error {

	props, err := LoadProperties(ctx, store, subject)
	if err != nil {
		return err
	}
	tailUri := props.Str(tailName(name))
	if tailUri == "" {
		return WriteList(ctx, store, subject, name, []rdf.Value{value})
	}

	tailProps, err := LoadProperties(ctx, store, tailUri)
	if err != nil {
		return err
	}
	triples, head, newTail := chainTriples([]rdf.Value{value}, tailProps.Int(indexPredicate)+1)

	// relink: old tail's rest -> new node, parent tail pointer -> new node
	if err := store.DeletePattern(ctx, rdf.PredicatePattern(tailUri, rdf.RestPredicate)); err != nil {
		return err
	}
	if err := store.DeletePattern(ctx,
		rdf.PredicatePattern(subject, rdf.Predicate(tailName(name)))); err != nil {
		return err
	}
	triples = append(triples,
		rdf.Triple{Subject: tailUri, Predicate: rdf.RestPredicate, Object: rdf.NewUri(head)},
		rdf.Triple{Subject: subject, Predicate: rdf.Predicate(tailName(name)),
			Object: rdf.NewUri(newTail)})
	return store.Insert(ctx, triples)
}

// RemoveFromList removes the first node carrying the given value, preserving
// the order and the gapless indices of the remaining nodes.
func RemoveFromList(ctx context.Context, store sparql.Store, subject, name string,
	value rdf.Value) error {

	nodes, err := listNodes(ctx, store, subject, name)
	if err != nil {
		return err
	}
	victim := -1
	for i, node := range nodes {
		if node.First.Equal(value) {
			victim = i
			break
		}
	}
	if victim < 0 {
		return nil // nothing to remove
	}

	// unlink the victim
	successor := nodes[victim].Rest
	if victim == 0 {
		if err := store.DeletePattern(ctx,
			rdf.PredicatePattern(subject, rdf.Predicate(name))); err != nil {
			return err
		}
		if successor != rdf.Nil {
			if err := store.Insert(ctx, []rdf.Triple{{Subject: subject,
				Predicate: rdf.Predicate(name), Object: rdf.NewUri(successor)}}); err != nil {
				return err
			}
		}
	} else {
		predecessor := nodes[victim-1].Uri
		if err := store.DeletePattern(ctx,
			rdf.PredicatePattern(predecessor, rdf.RestPredicate)); err != nil {
			return err
		}
		if err := store.Insert(ctx, []rdf.Triple{{Subject: predecessor,
			Predicate: rdf.RestPredicate, Object: rdf.NewUri(successor)}}); err != nil {
			return err
		}
	}
	if err := store.DeleteSubject(ctx, nodes[victim].Uri); err != nil {
		return err
	}

	// close the index gap
	for _, node := range nodes[victim+1:] {
		if err := store.DeletePattern(ctx,
			rdf.PredicatePattern(node.Uri, rdf.Predicate(indexPredicate))); err != nil {
			return err
		}
		if err := store.Insert(ctx, []rdf.Triple{{Subject: node.Uri,
			Predicate: rdf.Predicate(indexPredicate),
			Object:    rdf.NewInt(node.Index - 1)}}); err != nil {
			return err
		}
	}

	// refresh the tail pointer
	if err := store.DeletePattern(ctx,
		rdf.PredicatePattern(subject, rdf.Predicate(tailName(name)))); err != nil {
		return err
	}
	var newTail string
	if victim == len(nodes)-1 {
		if victim > 0 {
			newTail = nodes[victim-1].Uri
		}
	} else {
		newTail = nodes[len(nodes)-1].Uri
	}
	if newTail != "" {
		return store.Insert(ctx, []rdf.Triple{{Subject: subject,
			Predicate: rdf.Predicate(tailName(name)), Object: rdf.NewUri(newTail)}})
	}
	return nil
}

// DeleteList removes the chain nodes and both pointers of the named list.
// The listed values themselves (entity URIs) are untouched.
func DeleteList(ctx context.Context, store sparql.Store, subject, name string) error {
	nodes, err := listNodes(ctx, store, subject, name)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if err := store.DeleteSubject(ctx, node.Uri); err != nil {
			return err
		}
	}
	if err := store.DeletePattern(ctx,
		rdf.PredicatePattern(subject, rdf.Predicate(name))); err != nil {
		return err
	}
	return store.DeletePattern(ctx,
		rdf.PredicatePattern(subject, rdf.Predicate(tailName(name))))
}
