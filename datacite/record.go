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

package datacite

// The metadata record PUT to the registry is DataCite Metadata Schema 4 XML,
// built here with the standard XML encoder (the shapes are fixed and small,
// so a template brings no benefit).

import "encoding/xml"

// A Creator is one author of the item being registered.
type Creator struct {
	Name  string
	Orcid string
}

// A RelatedIdentifier links the item to another identified resource.
type RelatedIdentifier struct {
	Identifier string
	// e.g. "DOI", "URL"
	Type string
	// e.g. "IsSupplementTo", "References"
	Relation string
}

// A Record carries the metadata of one item in the shape the registry
// expects.
type Record struct {
	DOI                string
	Titles             []string
	Creators           []Creator
	Publisher          string
	PublicationYear    int
	ResourceType       string
	Subjects           []string
	Descriptions       []string
	Rights             []string
	Dates              map[string]string // dateType -> value
	RelatedIdentifiers []RelatedIdentifier
	FundingReferences  []string
}

// the XML shapes of schema 4; only the elements the repository fills in

type xmlNameIdentifier struct {
	Scheme    string `xml:"nameIdentifierScheme,attr"`
	SchemeURI string `xml:"schemeURI,attr"`
	Value     string `xml:",chardata"`
}

type xmlCreator struct {
	CreatorName    string             `xml:"creatorName"`
	NameIdentifier *xmlNameIdentifier `xml:"nameIdentifier,omitempty"`
}

type xmlIdentifier struct {
	Type  string `xml:"identifierType,attr"`
	Value string `xml:",chardata"`
}

type xmlResourceType struct {
	General string `xml:"resourceTypeGeneral,attr"`
	Value   string `xml:",chardata"`
}

type xmlDescription struct {
	Type  string `xml:"descriptionType,attr"`
	Value string `xml:",chardata"`
}

type xmlDate struct {
	Type  string `xml:"dateType,attr"`
	Value string `xml:",chardata"`
}

type xmlRelatedIdentifier struct {
	Type     string `xml:"relatedIdentifierType,attr"`
	Relation string `xml:"relationType,attr"`
	Value    string `xml:",chardata"`
}

type xmlFundingReference struct {
	FunderName string `xml:"funderName"`
}

type xmlResource struct {
	XMLName            xml.Name               `xml:"resource"`
	Xmlns              string                 `xml:"xmlns,attr"`
	Identifier         xmlIdentifier          `xml:"identifier"`
	Creators           []xmlCreator           `xml:"creators>creator"`
	Titles             []string               `xml:"titles>title"`
	Publisher          string                 `xml:"publisher"`
	PublicationYear    int                    `xml:"publicationYear"`
	ResourceType       xmlResourceType        `xml:"resourceType"`
	Subjects           []string               `xml:"subjects>subject,omitempty"`
	Dates              []xmlDate              `xml:"dates>date,omitempty"`
	Descriptions       []xmlDescription       `xml:"descriptions>description,omitempty"`
	Rights             []string               `xml:"rightsList>rights,omitempty"`
	RelatedIdentifiers []xmlRelatedIdentifier `xml:"relatedIdentifiers>relatedIdentifier,omitempty"`
	FundingReferences  []xmlFundingReference  `xml:"fundingReferences>fundingReference,omitempty"`
}

// Serialize renders the record as schema 4 XML.
func (record *Record) Serialize() ([]byte, error) {
	resource := xmlResource{
		Xmlns:           "http://datacite.org/schema/kernel-4",
		Identifier:      xmlIdentifier{Type: "DOI", Value: record.DOI},
		Titles:          record.Titles,
		Publisher:       record.Publisher,
		PublicationYear: record.PublicationYear,
		ResourceType: xmlResourceType{
			General: resourceTypeGeneral(record.ResourceType),
			Value:   record.ResourceType,
		},
		Subjects: record.Subjects,
		Rights:   record.Rights,
	}
	for _, creator := range record.Creators {
		entry := xmlCreator{CreatorName: creator.Name}
		if creator.Orcid != "" {
			entry.NameIdentifier = &xmlNameIdentifier{
				Scheme:    "ORCID",
				SchemeURI: "https://orcid.org",
				Value:     creator.Orcid,
			}
		}
		resource.Creators = append(resource.Creators, entry)
	}
	for _, description := range record.Descriptions {
		resource.Descriptions = append(resource.Descriptions,
			xmlDescription{Type: "Abstract", Value: description})
	}
	for dateType, value := range record.Dates {
		resource.Dates = append(resource.Dates, xmlDate{Type: dateType, Value: value})
	}
	for _, related := range record.RelatedIdentifiers {
		resource.RelatedIdentifiers = append(resource.RelatedIdentifiers,
			xmlRelatedIdentifier{
				Type:     related.Type,
				Relation: related.Relation,
				Value:    related.Identifier,
			})
	}
	for _, funder := range record.FundingReferences {
		resource.FundingReferences = append(resource.FundingReferences,
			xmlFundingReference{FunderName: funder})
	}

	serialized, err := xml.MarshalIndent(resource, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), serialized...), nil
}

func resourceTypeGeneral(definedType string) string {
	switch definedType {
	case "software":
		return "Software"
	case "collection":
		return "Collection"
	case "figure", "media":
		return "Image"
	default:
		return "Dataset"
	}
}
