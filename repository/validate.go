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

package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/model"
)

const (
	minTitleLength       = 3
	maxTitleLength       = 1000
	maxDescriptionLength = 10000
)

// ValidateTitle enforces the title length bounds.
func ValidateTitle(title string) error {
	length := len(strings.TrimSpace(title))
	if length < minTitleLength || length > maxTitleLength {
		return &ValidationError{Errors: []FieldError{{
			FieldName: "title",
			Message:   "The title must be between 3 and 1000 characters long",
		}}}
	}
	return nil
}

// ValidateDescription enforces the description length bound.
func ValidateDescription(description string) error {
	if len(description) > maxDescriptionLength {
		return &ValidationError{Errors: []FieldError{{
			FieldName: "description",
			Message:   "The description may be at most 10000 characters long",
		}}}
	}
	return nil
}

// ValidateForSubmission runs the full pre-review validation of a draft.
// Every failing field is reported, so the depositor can fix them all at
// once. Collections skip the file checks.
func (repo *Repo) ValidateForSubmission(ctx context.Context,
	revisionUuid uuid.UUID) ([]FieldError, error) {

	revision, err := repo.RevisionByUuid(ctx, revisionUuid)
	if err != nil {
		return nil, err
	}
	if revision == nil {
		return nil, &NotFoundError{}
	}

	errors := make([]FieldError, 0)
	if err := ValidateTitle(revision.Title); err != nil {
		errors = append(errors, err.(*ValidationError).Errors...)
	}
	if strings.TrimSpace(revision.Description) == "" {
		errors = append(errors, FieldError{FieldName: "description",
			Message: "A description is required"})
	} else if err := ValidateDescription(revision.Description); err != nil {
		errors = append(errors, err.(*ValidationError).Errors...)
	}
	if revision.License == "" {
		errors = append(errors, FieldError{FieldName: "license",
			Message: "A license is required"})
	}

	authors, err := repo.Authors(ctx, revision.UUID)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		errors = append(errors, FieldError{FieldName: "authors",
			Message: "At least one author is required"})
	}
	tags, err := repo.Tags(ctx, revision.UUID)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		errors = append(errors, FieldError{FieldName: "tags",
			Message: "At least one keyword is required"})
	}
	categories, err := repo.Categories(ctx, revision.UUID)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		errors = append(errors, FieldError{FieldName: "categories",
			Message: "At least one category is required"})
	}

	// a resource DOI and its title come as a pair
	if (revision.ResourceDOI == "") != (revision.ResourceTitle == "") {
		errors = append(errors, FieldError{FieldName: "resource_doi",
			Message: "A resource DOI and resource title must be provided together"})
	}
	if !revision.AgreedToDepositAgreement {
		errors = append(errors, FieldError{FieldName: "agreed_to_deposit_agreement",
			Message: "You must agree to the deposit agreement"})
	}
	if !revision.AgreedToPublish {
		errors = append(errors, FieldError{FieldName: "agreed_to_publish",
			Message: "You must agree to publication"})
	}
	if revision.IsEmbargoed && revision.EmbargoUntilDate == "" {
		errors = append(errors, FieldError{FieldName: "embargo_until_date",
			Message: "A temporary embargo requires an end date"})
	}

	// a dataset without files must declare itself a metadata-only record
	if revision.ItemType != model.ItemTypeCollection && !revision.IsMetadataRecord {
		files, err := repo.Files(ctx, revision.UUID)
		if err != nil {
			return nil, err
		}
		complete := 0
		for _, file := range files {
			if !file.IsIncomplete {
				complete++
			}
		}
		if complete == 0 {
			errors = append(errors, FieldError{FieldName: "files",
				Message: "At least one file is required, or mark the item as metadata-only"})
		}
	}
	return errors, nil
}
