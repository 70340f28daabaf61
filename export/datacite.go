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
	"strconv"
	"time"

	"github.com/datakeep/datakeep/datacite"
)

// dataciteFormatter renders the same schema 4 XML the registry receives.
type dataciteFormatter struct{}

func (dataciteFormatter) ContentType() string {
	return "application/xml"
}

func (dataciteFormatter) Format(item *Item) ([]byte, error) {
	record := datacite.Record{
		DOI:             item.Revision.DOI,
		Titles:          []string{item.Revision.Title},
		Publisher:       publisherOf(item),
		PublicationYear: publicationYear(item),
		ResourceType:    item.Revision.DefinedType,
		Subjects:        item.Tags,
		Descriptions:    []string{item.Revision.Description},
	}
	if item.Revision.License != "" {
		record.Rights = []string{item.Revision.License}
	}
	for _, author := range item.Authors {
		record.Creators = append(record.Creators, datacite.Creator{
			Name:  author.FullName,
			Orcid: author.Orcid,
		})
	}
	return record.Serialize()
}

func publisherOf(item *Item) string {
	if item.Revision.Publisher != "" {
		return item.Revision.Publisher
	}
	return "DataKeep"
}

// publicationYear extracts the year from the published date, falling back to
// the current year for items that were never published.
func publicationYear(item *Item) int {
	date := item.Revision.PublishedDate
	if len(date) >= 4 {
		if year, err := strconv.Atoi(date[:4]); err == nil {
			return year
		}
	}
	return time.Now().UTC().Year()
}
