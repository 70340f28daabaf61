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
	"strings"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/rdf"
)

// item types held by containers
const (
	ItemTypeDataset    = "dataset"
	ItemTypeCollection = "collection"
)

// A Container is the stable identity of a dataset or collection across its
// versions. It holds at most one draft revision and an ordered set of
// published revisions, and is never destroyed.
type Container struct {
	UUID        uuid.UUID
	ItemType    string
	AccountUUID uuid.UUID
	// the container-level DOI, stable across versions
	DOI string
	// UUID of the draft revision, if any
	DraftUUID       uuid.UUID
	FirstOnlineDate string
}

func (c *Container) Uri() string { return rdf.UriFor(c.UUID) }

func (c *Container) Triples() []rdf.Triple {
	b := newTriples(c.Uri()).
		class(ClassContainer).
		str("item_type", c.ItemType).
		str("doi", c.DOI).
		dateTime("first_online_date", c.FirstOnlineDate).
		ref("account", c.AccountUUID).
		ref("draft", c.DraftUUID)
	return b.triples
}

func ContainerFromProperties(id uuid.UUID, props Properties) *Container {
	return &Container{
		UUID:            id,
		ItemType:        props.Str("item_type"),
		AccountUUID:     props.Uuid("account"),
		DOI:             props.Str("doi"),
		DraftUUID:       props.Uuid("draft"),
		FirstOnlineDate: props.Str("first_online_date"),
	}
}

// A Revision is the versioned payload of a dataset or collection: the draft
// while it is being composed, a published version afterwards. Published
// revisions are immutable except for their DOI and counters.
type Revision struct {
	UUID          uuid.UUID
	ContainerUUID uuid.UUID
	AccountUUID   uuid.UUID
	ItemType      string

	Title       string
	Description string
	GroupId     int
	License     string
	Language    string
	// per-version DOI
	DOI           string
	Handle        string
	ResourceDOI   string
	ResourceTitle string
	Publisher     string
	DefinedType   string
	// published version number; 0 for drafts
	Version int

	CreatedDate     string
	ModifiedDate    string
	PublishedDate   string
	PostedDate      string
	FirstOnlineDate string
	SubmissionDate  string
	RevisionDate    string

	IsPublic         bool
	IsLatest         bool
	IsEditable       bool
	IsEmbargoed      bool
	IsRestricted     bool
	IsMetadataRecord bool
	IsUnderReview    bool

	// embargo type is one of "file", "article", "collection"
	EmbargoType      string
	EmbargoUntilDate string
	EmbargoTitle     string
	EmbargoReason    string

	EULA           string
	ThumbExtension string
	// storage identity of the item's git repository (software datasets)
	GitUUID uuid.UUID

	AgreedToDepositAgreement bool
	AgreedToPublish          bool
}

func (r *Revision) Uri() string { return rdf.UriFor(r.UUID) }

// IsSoftware reports whether the revision describes a software dataset.
// Items without a defined type are treated as non-software.
func (r *Revision) IsSoftware() bool {
	return strings.EqualFold(r.DefinedType, "software")
}

func (r *Revision) class() string {
	if r.ItemType == ItemTypeCollection {
		return ClassCollection
	}
	return ClassDataset
}

func (r *Revision) Triples() []rdf.Triple {
	b := newTriples(r.Uri()).
		class(r.class()).
		ref("container", r.ContainerUUID).
		ref("account", r.AccountUUID).
		str("item_type", r.ItemType).
		str("title", r.Title).
		str("description", r.Description).
		optInteger("group_id", r.GroupId).
		str("license", r.License).
		str("language", r.Language).
		str("doi", r.DOI).
		str("handle", r.Handle).
		str("resource_doi", r.ResourceDOI).
		str("resource_title", r.ResourceTitle).
		str("publisher", r.Publisher).
		str("defined_type", r.DefinedType).
		optInteger("version", r.Version).
		dateTime("created_date", r.CreatedDate).
		dateTime("modified_date", r.ModifiedDate).
		dateTime("published_date", r.PublishedDate).
		dateTime("posted_date", r.PostedDate).
		dateTime("first_online_date", r.FirstOnlineDate).
		dateTime("submission_date", r.SubmissionDate).
		dateTime("revision_date", r.RevisionDate).
		boolean("is_public", r.IsPublic).
		boolean("is_latest", r.IsLatest).
		boolean("is_editable", r.IsEditable).
		boolean("is_embargoed", r.IsEmbargoed).
		boolean("is_restricted", r.IsRestricted).
		boolean("is_metadata_record", r.IsMetadataRecord).
		boolean("is_under_review", r.IsUnderReview).
		str("embargo_type", r.EmbargoType).
		date("embargo_until_date", r.EmbargoUntilDate).
		str("embargo_title", r.EmbargoTitle).
		str("embargo_reason", r.EmbargoReason).
		str("eula", r.EULA).
		str("thumb_extension", r.ThumbExtension).
		ref("git_uuid", r.GitUUID).
		boolean("agreed_to_deposit_agreement", r.AgreedToDepositAgreement).
		boolean("agreed_to_publish", r.AgreedToPublish)
	return b.triples
}

func RevisionFromProperties(id uuid.UUID, props Properties) *Revision {
	return &Revision{
		UUID:                     id,
		ContainerUUID:            props.Uuid("container"),
		AccountUUID:              props.Uuid("account"),
		ItemType:                 props.Str("item_type"),
		Title:                    props.Str("title"),
		Description:              props.Str("description"),
		GroupId:                  props.Int("group_id"),
		License:                  props.Str("license"),
		Language:                 props.Str("language"),
		DOI:                      props.Str("doi"),
		Handle:                   props.Str("handle"),
		ResourceDOI:              props.Str("resource_doi"),
		ResourceTitle:            props.Str("resource_title"),
		Publisher:                props.Str("publisher"),
		DefinedType:              props.Str("defined_type"),
		Version:                  props.Int("version"),
		CreatedDate:              props.Str("created_date"),
		ModifiedDate:             props.Str("modified_date"),
		PublishedDate:            props.Str("published_date"),
		PostedDate:               props.Str("posted_date"),
		FirstOnlineDate:          props.Str("first_online_date"),
		SubmissionDate:           props.Str("submission_date"),
		RevisionDate:             props.Str("revision_date"),
		IsPublic:                 props.Bool("is_public"),
		IsLatest:                 props.Bool("is_latest"),
		IsEditable:               props.Bool("is_editable"),
		IsEmbargoed:              props.Bool("is_embargoed"),
		IsRestricted:             props.Bool("is_restricted"),
		IsMetadataRecord:         props.Bool("is_metadata_record"),
		IsUnderReview:            props.Bool("is_under_review"),
		EmbargoType:              props.Str("embargo_type"),
		EmbargoUntilDate:         props.Str("embargo_until_date"),
		EmbargoTitle:             props.Str("embargo_title"),
		EmbargoReason:            props.Str("embargo_reason"),
		EULA:                     props.Str("eula"),
		ThumbExtension:           props.Str("thumb_extension"),
		GitUUID:                  props.Uuid("git_uuid"),
		AgreedToDepositAgreement: props.Bool("agreed_to_deposit_agreement"),
		AgreedToPublish:          props.Bool("agreed_to_publish"),
	}
}

// An Author is a creator of a dataset or collection, optionally linked to a
// depositor account.
type Author struct {
	UUID        uuid.UUID
	FullName    string
	FirstName   string
	LastName    string
	Email       string
	Orcid       string
	IsActive    bool
	IsPublic    bool
	AccountUUID uuid.UUID
}

func (a *Author) Uri() string { return rdf.UriFor(a.UUID) }

func (a *Author) Triples() []rdf.Triple {
	b := newTriples(a.Uri()).
		class(ClassAuthor).
		str("full_name", a.FullName).
		str("first_name", a.FirstName).
		str("last_name", a.LastName).
		str("email", a.Email).
		str("orcid", NormalizeOrcid(a.Orcid)).
		boolean("is_active", a.IsActive).
		boolean("is_public", a.IsPublic).
		ref("account", a.AccountUUID)
	return b.triples
}

func AuthorFromProperties(id uuid.UUID, props Properties) *Author {
	return &Author{
		UUID:        id,
		FullName:    props.Str("full_name"),
		FirstName:   props.Str("first_name"),
		LastName:    props.Str("last_name"),
		Email:       props.Str("email"),
		Orcid:       props.Str("orcid"),
		IsActive:    props.Bool("is_active"),
		IsPublic:    props.Bool("is_public"),
		AccountUUID: props.Uuid("account"),
	}
}

// NormalizeOrcid strips any URL prefix from an ORCID identifier, leaving the
// bare 19-character form (0000-0000-0000-0000).
func NormalizeOrcid(orcid string) string {
	orcid = strings.TrimSpace(orcid)
	for _, prefix := range []string{"https://orcid.org/", "http://orcid.org/", "orcid.org/"} {
		if rest, found := strings.CutPrefix(orcid, prefix); found {
			return rest
		}
	}
	return orcid
}

// A File is the metadata record of an uploaded (or link-only) file attached
// to a dataset.
type File struct {
	UUID        uuid.UUID
	DatasetUUID uuid.UUID
	Name        string
	Size        int
	// MD5 digest supplied by the depositor, if any
	SuppliedMd5 string
	// MD5 digest computed while streaming the upload
	ComputedMd5 string
	// absolute on-disk path; empty for link-only files
	FilesystemLocation string
	DownloadURL        string
	IsLinkOnly         bool
	IsImage            bool
	// set when the upload stream ended short or with a bad terminator
	IsIncomplete bool
	ViewerType   string
	PreviewState string
	Status       string
	UploadToken  string
	CreatedDate  string
	ModifiedDate string
}

func (f *File) Uri() string { return rdf.UriFor(f.UUID) }

func (f *File) Triples() []rdf.Triple {
	b := newTriples(f.Uri()).
		class(ClassFile).
		ref("dataset", f.DatasetUUID).
		str("name", f.Name).
		integer("size", f.Size).
		str("supplied_md5", f.SuppliedMd5).
		str("computed_md5", f.ComputedMd5).
		str("filesystem_location", f.FilesystemLocation).
		str("download_url", f.DownloadURL).
		boolean("is_link_only", f.IsLinkOnly).
		boolean("is_image", f.IsImage).
		boolean("is_incomplete", f.IsIncomplete).
		str("viewer_type", f.ViewerType).
		str("preview_state", f.PreviewState).
		str("status", f.Status).
		str("upload_token", f.UploadToken).
		dateTime("created_date", f.CreatedDate).
		dateTime("modified_date", f.ModifiedDate)
	return b.triples
}

func FileFromProperties(id uuid.UUID, props Properties) *File {
	return &File{
		UUID:               id,
		DatasetUUID:        props.Uuid("dataset"),
		Name:               props.Str("name"),
		Size:               props.Int("size"),
		SuppliedMd5:        props.Str("supplied_md5"),
		ComputedMd5:        props.Str("computed_md5"),
		FilesystemLocation: props.Str("filesystem_location"),
		DownloadURL:        props.Str("download_url"),
		IsLinkOnly:         props.Bool("is_link_only"),
		IsImage:            props.Bool("is_image"),
		IsIncomplete:       props.Bool("is_incomplete"),
		ViewerType:         props.Str("viewer_type"),
		PreviewState:       props.Str("preview_state"),
		Status:             props.Str("status"),
		UploadToken:        props.Str("upload_token"),
		CreatedDate:        props.Str("created_date"),
		ModifiedDate:       props.Str("modified_date"),
	}
}
