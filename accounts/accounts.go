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

// Package accounts is the identity and session store: depositor accounts,
// their storage quotas, session tokens (with optional two-factor
// activation), and the privilege table loaded from configuration.
package accounts

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
	"github.com/datakeep/datakeep/sparql"
)

// Store provides account and session operations over the triple store.
type Store struct {
	Db    sparql.Store
	Cache *cache.QueryCache
}

func NewStore(db sparql.Store, queryCache *cache.QueryCache) *Store {
	return &Store{Db: db, Cache: queryCache}
}

// InsertAccount creates an account keyed by its lowercased e-mail address,
// returning the new account's UUID. Inserting an e-mail that already has an
// account is an error.
func (store *Store) InsertAccount(ctx context.Context, email, firstName,
	lastName string) (uuid.UUID, error) {

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return uuid.UUID{}, &InvalidAccountError{Message: "an e-mail address is required"}
	}
	existing, err := store.AccountByEmail(ctx, email)
	if err != nil {
		return uuid.UUID{}, err
	}
	if existing != nil {
		return uuid.UUID{}, &AlreadyExistsError{Email: email}
	}

	account := model.NewAccount(email)
	account.FirstName = firstName
	account.LastName = lastName
	account.FullName = strings.TrimSpace(firstName + " " + lastName)
	account.CreatedDate = time.Now().UTC().Format("2006-01-02T15:04:05")
	if err := store.Db.Insert(ctx, account.Triples()); err != nil {
		return uuid.UUID{}, err
	}
	store.Cache.Invalidate("accounts")
	return account.UUID, nil
}

// AccountByEmail looks an account up by its (lowercased) e-mail address.
// A nil account with a nil error means "not found".
func (store *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	triples, err := store.Db.Match(ctx,
		rdf.ObjectPattern(rdf.Predicate("email"), rdf.NewString(email)))
	if err != nil {
		return nil, err
	}
	for _, triple := range triples {
		account, err := store.accountBySubject(ctx, triple.Subject)
		if err == nil && account != nil {
			return account, nil
		}
	}
	return nil, nil
}

// AccountByUuid looks an account up by its UUID.
func (store *Store) AccountByUuid(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return store.accountBySubject(ctx, rdf.UriFor(id))
}

// AccountByLegacyId looks an account up by the numeric identifier it carried
// in the system this repository was migrated from (used as an impersonation
// selector).
func (store *Store) AccountByLegacyId(ctx context.Context, legacyId int) (*model.Account, error) {
	triples, err := store.Db.Match(ctx,
		rdf.ObjectPattern(rdf.Predicate("legacy_id"), rdf.NewInt(legacyId)))
	if err != nil {
		return nil, err
	}
	for _, triple := range triples {
		account, err := store.accountBySubject(ctx, triple.Subject)
		if err == nil && account != nil {
			return account, nil
		}
	}
	return nil, nil
}

// Accounts returns every account, for administrative listings.
func (store *Store) Accounts(ctx context.Context) ([]*model.Account, error) {
	subjects, err := model.SubjectsOfClass(ctx, store.Db, model.ClassAccount)
	if err != nil {
		return nil, err
	}
	accounts := make([]*model.Account, 0, len(subjects))
	for _, subject := range subjects {
		account, err := store.accountBySubject(ctx, subject)
		if err == nil && account != nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (store *Store) accountBySubject(ctx context.Context, subject string) (*model.Account, error) {
	id, err := rdf.UuidFromUri(subject)
	if err != nil {
		return nil, err
	}
	props, err := model.LoadProperties(ctx, store.Db, subject)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !isOfClass(props, model.ClassAccount) {
		return nil, nil
	}
	return model.AccountFromProperties(id, props), nil
}

func isOfClass(props model.Properties, class string) bool {
	for _, value := range props[rdf.TypePredicate] {
		if value.Kind() == rdf.Uri && value.String() == class {
			return true
		}
	}
	return false
}

// QuotaFor resolves the storage quota of an account: an explicit account
// quota wins, then the group quota of the account's e-mail domain, then the
// configured default.
func (store *Store) QuotaFor(account *model.Account) int {
	if account.QuotaBytes > 0 {
		return account.QuotaBytes
	}
	if quota, found := config.Quotas.Domains[account.Domain]; found {
		return quota
	}
	return config.Quotas.DefaultBytes
}

// PrivilegeFor returns the elevated roles of an account, from the table
// loaded at startup.
func (store *Store) PrivilegeFor(account *model.Account) config.Privilege {
	if account == nil {
		return config.Privilege{}
	}
	return config.PrivilegeFor(account.Email)
}

// ResolveImpersonation maps an impersonation selector (a numeric legacy id
// or an account UUID) to the target account.
func (store *Store) ResolveImpersonation(ctx context.Context, selector string) (*model.Account, error) {
	if legacyId, err := strconv.Atoi(selector); err == nil {
		return store.AccountByLegacyId(ctx, legacyId)
	}
	if id, err := uuid.Parse(selector); err == nil {
		return store.AccountByUuid(ctx, id)
	}
	return nil, &InvalidAccountError{Message: "unrecognized impersonation selector"}
}
