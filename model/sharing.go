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

import (
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/rdf"
)

// A PrivateLink grants token-gated read access to one dataset-or-collection
// revision, bypassing the public/login check.
type PrivateLink struct {
	UUID uuid.UUID
	// the opaque URL-safe identifier appearing in /private_datasets/{id}
	IdString string
	IsActive bool
	ReadOnly bool
	// suppress author identities for downstream renderers
	Anonymize   bool
	ExpiresDate string
	Whom        string
	Purpose     string
	// the revision this link exposes
	ItemUUID uuid.UUID
}

func (l *PrivateLink) Uri() string { return rdf.UriFor(l.UUID) }

// Expired reports whether the link's expiry date lies in the past. Links
// without an expiry date never expire.
func (l *PrivateLink) Expired(now time.Time) bool {
	if l.ExpiresDate == "" {
		return false
	}
	expires, err := time.Parse("2006-01-02T15:04:05", l.ExpiresDate)
	if err != nil {
		if expires, err = time.Parse("2006-01-02", l.ExpiresDate); err != nil {
			return false
		}
	}
	return expires.Before(now)
}

func (l *PrivateLink) Triples() []rdf.Triple {
	b := newTriples(l.Uri()).
		class(ClassPrivateLink).
		str("id_string", l.IdString).
		boolean("is_active", l.IsActive).
		boolean("read_only", l.ReadOnly).
		boolean("anonymize", l.Anonymize).
		dateTime("expires_date", l.ExpiresDate).
		str("whom", l.Whom).
		str("purpose", l.Purpose).
		ref("item", l.ItemUUID)
	return b.triples
}

func PrivateLinkFromProperties(id uuid.UUID, props Properties) *PrivateLink {
	return &PrivateLink{
		UUID:        id,
		IdString:    props.Str("id_string"),
		IsActive:    props.Bool("is_active"),
		ReadOnly:    props.Bool("read_only"),
		Anonymize:   props.Bool("anonymize"),
		ExpiresDate: props.Str("expires_date"),
		Whom:        props.Str("whom"),
		Purpose:     props.Str("purpose"),
		ItemUUID:    props.Uuid("item"),
	}
}

// A Collaborator grants another account bitwise permissions on a dataset.
type Collaborator struct {
	UUID uuid.UUID
	// the shared item (container)
	ItemUUID uuid.UUID
	// the account receiving the grant
	AccountUUID uuid.UUID
	// the owning account that issued the grant
	GranterUUID  uuid.UUID
	MetadataRead bool
	MetadataEdit bool
	DataRead     bool
	DataEdit     bool
	DataRemove   bool
}

func (c *Collaborator) Uri() string { return rdf.UriFor(c.UUID) }

func (c *Collaborator) Triples() []rdf.Triple {
	b := newTriples(c.Uri()).
		class(ClassCollaborator).
		ref("item", c.ItemUUID).
		ref("account", c.AccountUUID).
		ref("granter", c.GranterUUID).
		boolean("metadata_read", c.MetadataRead).
		boolean("metadata_edit", c.MetadataEdit).
		boolean("data_read", c.DataRead).
		boolean("data_edit", c.DataEdit).
		boolean("data_remove", c.DataRemove)
	return b.triples
}

func CollaboratorFromProperties(id uuid.UUID, props Properties) *Collaborator {
	return &Collaborator{
		UUID:         id,
		ItemUUID:     props.Uuid("item"),
		AccountUUID:  props.Uuid("account"),
		GranterUUID:  props.Uuid("granter"),
		MetadataRead: props.Bool("metadata_read"),
		MetadataEdit: props.Bool("metadata_edit"),
		DataRead:     props.Bool("data_read"),
		DataEdit:     props.Bool("data_edit"),
		DataRemove:   props.Bool("data_remove"),
	}
}

// editorial review states
const (
	ReviewUnassigned = "Unassigned"
	ReviewAssigned   = "Assigned"
	ReviewApproved   = "Approved"
	ReviewDeclined   = "Declined"
)

// A Review tracks the editorial handling of a dataset submitted for
// publication.
type Review struct {
	UUID uuid.UUID
	// URI of the dataset (container) under review
	DatasetUri   string
	RequestDate  string
	ReminderDate string
	// the reviewer the dataset is assigned to, if any
	AssignedTo uuid.UUID
	Status     string
}

func (r *Review) Uri() string { return rdf.UriFor(r.UUID) }

func (r *Review) Triples() []rdf.Triple {
	b := newTriples(r.Uri()).class(ClassReview)
	if r.DatasetUri != "" {
		b.add("dataset", rdf.NewUri(r.DatasetUri))
	}
	b.dateTime("request_date", r.RequestDate).
		dateTime("reminder_date", r.ReminderDate).
		ref("assigned_to", r.AssignedTo).
		str("status", r.Status)
	return b.triples
}

func ReviewFromProperties(id uuid.UUID, props Properties) *Review {
	return &Review{
		UUID:         id,
		DatasetUri:   props.Str("dataset"),
		RequestDate:  props.Str("request_date"),
		ReminderDate: props.Str("reminder_date"),
		AssignedTo:   props.Uuid("assigned_to"),
		Status:       props.Str("status"),
	}
}

// quota request states
const (
	QuotaUnresolved = "Unresolved"
	QuotaApproved   = "Approved"
	QuotaDenied     = "Denied"
)

// A QuotaRequest asks for a larger storage quota for an account.
type QuotaRequest struct {
	UUID          uuid.UUID
	AccountUUID   uuid.UUID
	RequestedSize int
	Reason        string
	Status        string
	CreatedDate   string
}

func (q *QuotaRequest) Uri() string { return rdf.UriFor(q.UUID) }

func (q *QuotaRequest) Triples() []rdf.Triple {
	b := newTriples(q.Uri()).
		class(ClassQuotaRequest).
		ref("account", q.AccountUUID).
		integer("requested_size", q.RequestedSize).
		str("reason", q.Reason).
		str("status", q.Status).
		dateTime("created_date", q.CreatedDate)
	return b.triples
}

func QuotaRequestFromProperties(id uuid.UUID, props Properties) *QuotaRequest {
	return &QuotaRequest{
		UUID:          id,
		AccountUUID:   props.Uuid("account"),
		RequestedSize: props.Int("requested_size"),
		Reason:        props.Str("reason"),
		Status:        props.Str("status"),
		CreatedDate:   props.Str("created_date"),
	}
}
