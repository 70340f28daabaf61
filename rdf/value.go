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

package rdf

import (
	"fmt"
	"strconv"
	"strings"
)

// The kind of a normalized RDF value. Bindings arriving from the triple store
// are typed literals; we normalize them into this tagged sum at the gateway
// boundary so that downstream code can pattern-match on Kind rather than
// duck-type strings.
type Kind int

const (
	// a missing value, or a string literal carrying the "NULL" sentinel
	Null Kind = iota
	// an xsd:integer or xsd:decimal (truncated to its integer part)
	Int
	// an xsd:boolean
	Bool
	// an xsd:dateTime, held as a string truncated to whole seconds
	DateTime
	// an xsd:date
	Date
	// a plain string literal
	String
	// an IRI
	Uri
)

// string literals with this content are treated as absent values
const nullSentinel = "NULL"

// A Value is a typed RDF term: the object position of a triple, or a single
// binding in a SELECT result row.
type Value struct {
	kind Kind
	i    int
	b    bool
	s    string
}

func NewNull() Value              { return Value{kind: Null} }
func NewInt(i int) Value          { return Value{kind: Int, i: i} }
func NewBool(b bool) Value        { return Value{kind: Bool, b: b} }
func NewDateTime(s string) Value  { return Value{kind: DateTime, s: normalizeDateTime(s)} }
func NewDate(s string) Value      { return Value{kind: Date, s: s} }
func NewString(s string) Value    { return Value{kind: String, s: s} }
func NewUri(iri string) Value     { return Value{kind: Uri, s: iri} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }
func (v Value) Int() int     { return v.i }
func (v Value) Bool() bool   { return v.b }

// String returns the lexical form of the value. Null values render as the
// empty string.
func (v Value) String() string {
	switch v.kind {
	case Int:
		return strconv.Itoa(v.i)
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Equal reports whether two values have the same kind and lexical form.
func (v Value) Equal(w Value) bool {
	return v.kind == w.kind && v.i == w.i && v.b == w.b && v.s == w.s
}

// Literal renders the value as a SPARQL term suitable for injection into a
// query: strings are quoted and escaped, scalars carry their XSD datatype
// suffixes, and IRIs are angle-bracketed.
func (v Value) Literal() string {
	switch v.kind {
	case Null:
		return fmt.Sprintf("%q", nullSentinel)
	case Int:
		return fmt.Sprintf("\"%d\"^^<%sinteger>", v.i, XSD)
	case Bool:
		return fmt.Sprintf("\"%t\"^^<%sboolean>", v.b, XSD)
	case DateTime:
		return fmt.Sprintf("%q^^<%sdateTime>", EscapeString(v.s), XSD)
	case Date:
		return fmt.Sprintf("%q^^<%sdate>", EscapeString(v.s), XSD)
	case Uri:
		return fmt.Sprintf("<%s>", v.s)
	default:
		return fmt.Sprintf("%q", EscapeString(v.s))
	}
}

// EscapeString escapes the two characters ('"' and '\') that would otherwise
// terminate or mangle a double-quoted SPARQL string literal.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// dateTime literals are stored with whole-second precision and no timezone
// designator: the fractional part is cut at the first '.', and a trailing
// "Z" or "+00:00" is stripped.
func normalizeDateTime(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "Z")
	s = strings.TrimSuffix(s, "+00:00")
	return s
}

// NormalizeBinding maps a single SPARQL JSON result binding to a Value,
// according to its XSD datatype. Unknown datatypes degrade to plain strings.
func NormalizeBinding(termType, datatype, lexical string) Value {
	if termType == "uri" {
		return NewUri(lexical)
	}
	switch datatype {
	case XSD + "integer", XSD + "long", XSD + "int":
		i, err := strconv.Atoi(lexical)
		if err != nil {
			return NewString(lexical)
		}
		return NewInt(i)
	case XSD + "decimal", XSD + "double", XSD + "float":
		f, err := strconv.ParseFloat(lexical, 64)
		if err != nil {
			return NewString(lexical)
		}
		return NewInt(int(f))
	case XSD + "boolean":
		return NewBool(lexical == "true" || lexical == "1")
	case XSD + "dateTime":
		return NewDateTime(lexical)
	case XSD + "date":
		return NewDate(lexical)
	default:
		if lexical == nullSentinel {
			return NewNull()
		}
		return NewString(lexical)
	}
}
