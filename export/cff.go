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

package export

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// the shapes of a CITATION.cff file (Citation File Format 1.2.0)

type cffAuthor struct {
	FamilyNames string `yaml:"family-names,omitempty"`
	GivenNames  string `yaml:"given-names,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Orcid       string `yaml:"orcid,omitempty"`
}

type cffIdentifier struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

type cffCitation struct {
	CffVersion   string          `yaml:"cff-version"`
	Message      string          `yaml:"message"`
	Title        string          `yaml:"title"`
	Type         string          `yaml:"type"`
	Authors      []cffAuthor     `yaml:"authors"`
	Identifiers  []cffIdentifier `yaml:"identifiers,omitempty"`
	Keywords     []string        `yaml:"keywords,omitempty"`
	License      string          `yaml:"license,omitempty"`
	DateReleased string          `yaml:"date-released,omitempty"`
	Abstract     string          `yaml:"abstract,omitempty"`
}

// cffFormatter renders a CITATION.cff document.
type cffFormatter struct{}

func (cffFormatter) ContentType() string {
	return "text/yaml; charset=utf-8"
}

func (cffFormatter) Format(item *Item) ([]byte, error) {
	revision := item.Revision
	citation := cffCitation{
		CffVersion: "1.2.0",
		Message:    "If you use this item, please cite it using these metadata.",
		Title:      revision.Title,
		Type:       cffType(revision.DefinedType),
		Keywords:   item.Tags,
		License:    revision.License,
		Abstract:   revision.Description,
	}
	for _, author := range item.Authors {
		entry := cffAuthor{}
		if author.FirstName != "" || author.LastName != "" {
			entry.GivenNames = author.FirstName
			entry.FamilyNames = author.LastName
		} else {
			entry.Name = author.FullName
		}
		if author.Orcid != "" {
			entry.Orcid = "https://orcid.org/" + author.Orcid
		}
		citation.Authors = append(citation.Authors, entry)
	}
	if revision.DOI != "" {
		citation.Identifiers = []cffIdentifier{{Type: "doi", Value: revision.DOI}}
	}
	if len(revision.PublishedDate) >= 10 {
		citation.DateReleased = revision.PublishedDate[:10]
	}
	return yaml.Marshal(&citation)
}

// cffType maps defined types to the two CFF work types.
func cffType(definedType string) string {
	if strings.EqualFold(definedType, "software") {
		return "software"
	}
	return "dataset"
}
