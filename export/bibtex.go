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
	"fmt"
	"strings"
)

// bibtexFormatter renders a @misc entry keyed by the item's DOI suffix.
type bibtexFormatter struct{}

func (bibtexFormatter) ContentType() string {
	return "text/plain; charset=utf-8"
}

func (bibtexFormatter) Format(item *Item) ([]byte, error) {
	revision := item.Revision

	var entry strings.Builder
	fmt.Fprintf(&entry, "@misc{%s,\n", bibtexKey(item))
	fmt.Fprintf(&entry, "  title = {%s},\n", bibtexEscape(revision.Title))
	if names := authorNames(item); len(names) > 0 {
		fmt.Fprintf(&entry, "  author = {%s},\n",
			bibtexEscape(strings.Join(names, " and ")))
	}
	fmt.Fprintf(&entry, "  year = {%d},\n", publicationYear(item))
	if revision.Publisher != "" {
		fmt.Fprintf(&entry, "  publisher = {%s},\n", bibtexEscape(revision.Publisher))
	}
	if revision.DOI != "" {
		fmt.Fprintf(&entry, "  doi = {%s},\n", revision.DOI)
		fmt.Fprintf(&entry, "  url = {https://doi.org/%s},\n", revision.DOI)
	}
	if len(item.Tags) > 0 {
		fmt.Fprintf(&entry, "  keywords = {%s},\n",
			bibtexEscape(strings.Join(item.Tags, ", ")))
	}
	entry.WriteString("}\n")
	return []byte(entry.String()), nil
}

func bibtexKey(item *Item) string {
	if item.Revision.DOI != "" {
		parts := strings.Split(item.Revision.DOI, "/")
		return parts[len(parts)-1]
	}
	return item.Revision.UUID.String()
}

func authorNames(item *Item) []string {
	names := make([]string, 0, len(item.Authors))
	for _, author := range item.Authors {
		if author.FullName != "" {
			names = append(names, author.FullName)
		}
	}
	return names
}

var bibtexEscaper = strings.NewReplacer(
	"{", `\{`,
	"}", `\}`,
	"%", `\%`,
	"&", `\&`,
	"#", `\#`,
	"_", `\_`,
)

func bibtexEscape(value string) string {
	return bibtexEscaper.Replace(value)
}
