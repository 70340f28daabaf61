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

// Package export renders item metadata in bibliographic formats. The
// formats DataKeep doesn't render yet are still routed, so clients get a
// proper content-negotiation failure instead of a dead URL.
package export

import (
	"github.com/datakeep/datakeep/model"
)

// An Item bundles the metadata an export formatter needs.
type Item struct {
	Revision *model.Revision
	Authors  []*model.Author
	Tags     []string
}

// A Formatter renders one bibliographic format.
type Formatter interface {
	// the Content-Type of the rendered output
	ContentType() string
	Format(item *Item) ([]byte, error)
}

// every format the export surface routes
var knownFormats = map[string]bool{
	"datacite": true,
	"refworks": true,
	"bibtex":   true,
	"refman":   true,
	"endnote":  true,
	"nlm":      true,
	"dc":       true,
	"cff":      true,
}

// the formats with a formatter behind them
var formatters = map[string]Formatter{
	"datacite": dataciteFormatter{},
	"bibtex":   bibtexFormatter{},
	"cff":      cffFormatter{},
}

// Known reports whether a format name is part of the export surface at all.
func Known(format string) bool {
	return knownFormats[format]
}

// FormatterFor returns the formatter of a known format, or nil when the
// format is routed but not rendered yet.
func FormatterFor(format string) Formatter {
	return formatters[format]
}
