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

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/datacite"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/repository"
)

// Publish turns a container's draft into its next published version. The
// DOI registry is contacted first: the container-level DOI is reserved once,
// the version DOI is reserved and then registered with the item's metadata.
// If any registry step fails the publish aborts and the draft stays intact;
// only after all external calls succeed does the triple store change.
func (flow *Flow) Publish(ctx context.Context, containerUuid uuid.UUID,
	publisher *model.Account) (*model.Revision, error) {

	if !config.PrivilegeFor(publisher.Email).MayReview {
		return nil, &repository.PermissionDeniedError{}
	}
	container, err := flow.Repo.ContainerByUuid(ctx, containerUuid)
	if err != nil {
		return nil, err
	}
	if container == nil {
		return nil, &repository.NotFoundError{}
	}
	draft, err := flow.Repo.Draft(ctx, container)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, &repository.NotFoundError{}
	}
	previous, err := flow.Repo.LatestPublished(ctx, container)
	if err != nil {
		return nil, err
	}
	newVersion := 1
	if previous != nil {
		newVersion = previous.Version + 1
	}

	containerDoi := container.DOI
	versionDoi := draft.DOI
	if config.Service.InProduction {
		containerDoi, versionDoi, err = flow.registerDois(ctx, container, draft, newVersion)
		if err != nil {
			return nil, &PublishFailedError{Message: err.Error()}
		}
	}

	// all external calls succeeded; now flip the catalog state
	if previous != nil {
		previous.IsLatest = false
		if err := flow.Repo.RewriteRevision(ctx, previous); err != nil {
			return nil, err
		}
	}

	now := nowTimestamp()
	draft.Version = newVersion
	draft.DOI = versionDoi
	draft.IsPublic = true
	draft.IsLatest = true
	draft.IsEditable = false
	draft.IsUnderReview = false
	draft.PublishedDate = now
	draft.PostedDate = now
	if draft.FirstOnlineDate == "" {
		draft.FirstOnlineDate = now
	}
	if err := flow.Repo.RewriteRevision(ctx, draft); err != nil {
		return nil, err
	}

	container.DOI = containerDoi
	container.DraftUUID = uuid.UUID{}
	if container.FirstOnlineDate == "" {
		container.FirstOnlineDate = now
	}
	if err := flow.Repo.RewriteContainer(ctx, container); err != nil {
		return nil, err
	}

	// close the pending review, if any
	review, err := flow.ReviewForDataset(ctx, draft.UUID)
	if err == nil && review != nil {
		review.Status = model.ReviewApproved
		if err := flow.rewriteReview(ctx, review); err != nil {
			return nil, err
		}
	}

	flow.Repo.Cache.Invalidate("datasets")
	flow.Repo.Cache.Invalidate("collections")
	flow.Repo.Cache.Invalidate("reviews")
	flow.Repo.Cache.Invalidate("repository_statistics")
	return draft, nil
}

// registerDois reserves the container and version DOIs and registers the
// version DOI with the item's metadata record.
func (flow *Flow) registerDois(ctx context.Context, container *model.Container,
	draft *model.Revision, newVersion int) (string, string, error) {

	containerDoi := container.DOI
	if containerDoi == "" {
		doi, err := flow.Registry.Reserve(ctx, flow.mintDoi(container.UUID.String()))
		if err != nil {
			return "", "", err
		}
		containerDoi = doi
	}
	versionDoi, err := flow.Registry.Reserve(ctx,
		fmt.Sprintf("%s.v%d", containerDoi, newVersion))
	if err != nil {
		return "", "", err
	}

	record, err := flow.buildRecord(ctx, draft, versionDoi)
	if err != nil {
		return "", "", err
	}
	landingUrl := fmt.Sprintf("%s/datasets/%s/%d",
		config.Service.BaseUrl, container.UUID, newVersion)
	if err := flow.Registry.Register(ctx, versionDoi, landingUrl, record); err != nil {
		return "", "", err
	}
	return containerDoi, versionDoi, nil
}

func (flow *Flow) mintDoi(suffix string) string {
	return fmt.Sprintf("%s/datakeep.%s", config.DataCite.Prefix, suffix)
}

// buildRecord gathers a revision's metadata into the shape the registry
// expects.
func (flow *Flow) buildRecord(ctx context.Context, revision *model.Revision,
	doi string) (*datacite.Record, error) {

	authors, err := flow.Repo.Authors(ctx, revision.UUID)
	if err != nil {
		return nil, err
	}
	tags, err := flow.Repo.Tags(ctx, revision.UUID)
	if err != nil {
		return nil, err
	}
	funding, err := flow.Repo.Funding(ctx, revision.UUID)
	if err != nil {
		return nil, err
	}

	record := &datacite.Record{
		DOI:               doi,
		Titles:            []string{revision.Title},
		Publisher:         revision.Publisher,
		PublicationYear:   time.Now().UTC().Year(),
		ResourceType:      revision.DefinedType,
		Subjects:          tags,
		FundingReferences: funding,
		Dates:             map[string]string{"Issued": nowTimestamp()},
	}
	if record.Publisher == "" {
		record.Publisher = "DataKeep"
	}
	if revision.Description != "" {
		record.Descriptions = []string{revision.Description}
	}
	if revision.License != "" {
		record.Rights = []string{revision.License}
	}
	for _, author := range authors {
		record.Creators = append(record.Creators, datacite.Creator{
			Name:  author.FullName,
			Orcid: author.Orcid,
		})
	}
	if revision.ResourceDOI != "" {
		record.RelatedIdentifiers = append(record.RelatedIdentifiers,
			datacite.RelatedIdentifier{
				Identifier: revision.ResourceDOI,
				Type:       "DOI",
				Relation:   "IsSupplementTo",
			})
	}
	return record, nil
}
