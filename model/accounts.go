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

// An Account identifies a depositor. The lowercased e-mail address is the
// natural key; the domain is derived from it for group-quota resolution.
type Account struct {
	UUID      uuid.UUID
	Email     string
	Domain    string
	FirstName string
	LastName  string
	FullName  string
	// explicit byte quota; 0 means "resolve from group or default"
	QuotaBytes int
	// numeric identifier from the system this repository was migrated from;
	// still used as an impersonation selector
	LegacyId    int
	CreatedDate string
}

func (a *Account) Uri() string { return rdf.UriFor(a.UUID) }

// NewAccount builds an account with the e-mail lowercased and the domain
// derived from it.
func NewAccount(email string) *Account {
	email = strings.ToLower(strings.TrimSpace(email))
	account := &Account{UUID: uuid.New(), Email: email}
	if _, domain, found := strings.Cut(email, "@"); found {
		account.Domain = domain
	}
	return account
}

func (a *Account) Triples() []rdf.Triple {
	b := newTriples(a.Uri()).
		class(ClassAccount).
		str("email", a.Email).
		str("domain", a.Domain).
		str("first_name", a.FirstName).
		str("last_name", a.LastName).
		str("full_name", a.FullName).
		optInteger("quota_bytes", a.QuotaBytes).
		optInteger("legacy_id", a.LegacyId).
		dateTime("created_date", a.CreatedDate)
	return b.triples
}

func AccountFromProperties(id uuid.UUID, props Properties) *Account {
	return &Account{
		UUID:        id,
		Email:       props.Str("email"),
		Domain:      props.Str("domain"),
		FirstName:   props.Str("first_name"),
		LastName:    props.Str("last_name"),
		FullName:    props.Str("full_name"),
		QuotaBytes:  props.Int("quota_bytes"),
		LegacyId:    props.Int("legacy_id"),
		CreatedDate: props.Str("created_date"),
	}
}

// A Session is a bearer token for an authenticated account. Sessions created
// under two-factor enforcement start inactive and carry a numeric MFA token;
// a failed activation attempt destroys the session.
type Session struct {
	UUID        uuid.UUID
	AccountUUID uuid.UUID
	// 64 random bytes, hex-encoded
	Token    string
	Name     string
	Editable bool
	Active   bool
	// the 6-digit MFA challenge; -1 when two-factor is not in play
	MfaToken    int
	MfaTries    int
	CreatedDate string
}

func (s *Session) Uri() string { return rdf.UriFor(s.UUID) }

func (s *Session) Triples() []rdf.Triple {
	b := newTriples(s.Uri()).
		class(ClassSession).
		ref("account", s.AccountUUID).
		str("token", s.Token).
		str("name", s.Name).
		boolean("editable", s.Editable).
		boolean("active", s.Active).
		integer("mfa_tries", s.MfaTries).
		dateTime("created_date", s.CreatedDate)
	if s.MfaToken >= 0 {
		b.integer("mfa_token", s.MfaToken)
	}
	return b.triples
}

func SessionFromProperties(id uuid.UUID, props Properties) *Session {
	session := &Session{
		UUID:        id,
		AccountUUID: props.Uuid("account"),
		Token:       props.Str("token"),
		Name:        props.Str("name"),
		Editable:    props.Bool("editable"),
		Active:      props.Bool("active"),
		MfaToken:    -1,
		MfaTries:    props.Int("mfa_tries"),
		CreatedDate: props.Str("created_date"),
	}
	if props.Has("mfa_token") {
		session.MfaToken = props.Int("mfa_token")
	}
	return session
}
