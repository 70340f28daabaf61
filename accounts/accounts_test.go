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

package accounts

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/datakeep/datakeep/cache"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/keeptest"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/sparql"
)

var testingDir string

// a config with two-factor enforcement left on, so the MFA paths can be
// exercised for the one account that requires it
const accountsConfig = `
service:
  base_url: http://localhost:8080
  cookie_key: a2tra2tra2tra2tra2tra2tra2tra2tra2tra2tra2s=
storage:
  data_dir: TESTING_DIR
  storage: TESTING_DIR
triplestore:
  in_memory: true
quotas:
  default: 1000
  domains:
    bigdata.example.com: 5000
privileges:
  careful@example.com:
    may_administer: true
    needs_2fa: true
`

func TestMain(m *testing.M) {
	setup()
	status := m.Run()
	breakdown()
	os.Exit(status)
}

func setup() {
	keeptest.EnableDebugLogging()
	var err error
	testingDir, err = os.MkdirTemp(os.TempDir(), "datakeep-accounts-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}
	myConfig := strings.ReplaceAll(accountsConfig, "TESTING_DIR", testingDir)
	if err := config.Init([]byte(myConfig)); err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}
}

func breakdown() {
	if testingDir != "" {
		os.RemoveAll(testingDir)
	}
}

func newTestStore() *Store {
	db, _ := sparql.NewMemStore("", nil)
	return NewStore(db, cache.NewQueryCache())
}

// tests account creation and e-mail lookups
func TestInsertAndFindAccount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()

	id, err := store.InsertAccount(ctx, " Alice@Example.COM ", "Alice", "Archer")
	assert.Nil(err)

	account, err := store.AccountByEmail(ctx, "alice@example.com")
	assert.Nil(err)
	assert.NotNil(account)
	assert.Equal(id, account.UUID)
	assert.Equal("alice@example.com", account.Email)
	assert.Equal("example.com", account.Domain)
	assert.Equal("Alice Archer", account.FullName)

	// lookups are case-insensitive
	account, err = store.AccountByEmail(ctx, "ALICE@example.com")
	assert.Nil(err)
	assert.NotNil(account)

	account, err = store.AccountByUuid(ctx, id)
	assert.Nil(err)
	assert.NotNil(account)

	account, err = store.AccountByEmail(ctx, "nobody@example.com")
	assert.Nil(err)
	assert.Nil(account)
}

// tests that duplicate e-mail addresses are rejected
func TestInsertRejectsDuplicates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()

	_, err := store.InsertAccount(ctx, "bob@example.com", "Bob", "")
	assert.Nil(err)
	_, err = store.InsertAccount(ctx, "BOB@example.com", "Robert", "")
	var existsErr *AlreadyExistsError
	assert.ErrorAs(err, &existsErr)

	_, err = store.InsertAccount(ctx, "   ", "", "")
	assert.NotNil(err)
}

// tests quota resolution: explicit quota, then domain group, then default
func TestQuotaResolution(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()

	plainUuid, _ := store.InsertAccount(ctx, "plain@example.com", "", "")
	groupUuid, _ := store.InsertAccount(ctx, "grouped@bigdata.example.com", "", "")

	plain, _ := store.AccountByUuid(ctx, plainUuid)
	grouped, _ := store.AccountByUuid(ctx, groupUuid)
	assert.Equal(1000, store.QuotaFor(plain))
	assert.Equal(5000, store.QuotaFor(grouped))

	assert.Nil(store.UpdateQuota(ctx, plainUuid, 9999))
	plain, _ = store.AccountByUuid(ctx, plainUuid)
	assert.Equal(9999, store.QuotaFor(plain))
}

// tests quota request filing and resolution
func TestQuotaRequests(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()
	accountUuid, _ := store.InsertAccount(ctx, "needy@example.com", "", "")

	request, err := store.InsertQuotaRequest(ctx, accountUuid, 7777, "big sequencing run")
	assert.Nil(err)

	pending, err := store.QuotaRequests(ctx, model.QuotaUnresolved)
	assert.Nil(err)
	assert.Len(pending, 1)

	assert.Nil(store.ResolveQuotaRequest(ctx, request.UUID, true))
	pending, _ = store.QuotaRequests(ctx, model.QuotaUnresolved)
	assert.Len(pending, 0)
	approved, _ := store.QuotaRequests(ctx, model.QuotaApproved)
	assert.Len(approved, 1)

	account, _ := store.AccountByUuid(ctx, accountUuid)
	assert.Equal(7777, store.QuotaFor(account))
}

// tests plain session issuance and token resolution
func TestSessions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()
	accountUuid, _ := store.InsertAccount(ctx, "carol@example.com", "", "")

	session, err := store.InsertSession(ctx, accountUuid, "login", false, false)
	assert.Nil(err)
	assert.True(session.Active)
	assert.Len(session.Token, 128) // 64 random bytes, hex-encoded

	account, resolved, err := store.AccountBySessionToken(ctx, session.Token, -1)
	assert.Nil(err)
	assert.NotNil(account)
	assert.Equal(accountUuid, account.UUID)
	assert.Equal(session.UUID, resolved.UUID)

	assert.Nil(store.DeleteSessionByToken(ctx, session.Token))
	account, _, err = store.AccountBySessionToken(ctx, session.Token, -1)
	assert.Nil(err)
	assert.Nil(account)
}

// tests that accounts requiring two-factor get an inactive session with a
// challenge, and that activation works exactly once with the right pair
func TestTwoFactorActivation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()
	accountUuid, _ := store.InsertAccount(ctx, "careful@example.com", "", "")

	session, err := store.InsertSession(ctx, accountUuid, "login", false, false)
	assert.Nil(err)
	assert.False(session.Active)
	assert.GreaterOrEqual(session.MfaToken, 0)

	// an inactive session doesn't resolve without the MFA token
	account, _, err := store.AccountBySessionToken(ctx, session.Token, -1)
	assert.Nil(err)
	assert.Nil(account)

	activated, err := store.ActivateSession(ctx, session.UUID, session.Token,
		session.MfaToken)
	assert.Nil(err)
	assert.True(activated)

	account, _, err = store.AccountBySessionToken(ctx, session.Token, -1)
	assert.Nil(err)
	assert.NotNil(account)
}

// tests that a failed activation attempt destroys the session outright
func TestFailedActivationDeletesSession(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()
	accountUuid, _ := store.InsertAccount(ctx, "careful@example.com", "", "")

	session, _ := store.InsertSession(ctx, accountUuid, "login", false, false)
	assert.False(session.Active)

	activated, err := store.ActivateSession(ctx, session.UUID, session.Token,
		session.MfaToken+1)
	assert.Nil(err)
	assert.False(activated)

	// the session is gone; even the correct pair can't activate it now
	activated, err = store.ActivateSession(ctx, session.UUID, session.Token,
		session.MfaToken)
	assert.Nil(err)
	assert.False(activated)
	resolved, err := store.SessionByToken(ctx, session.Token)
	assert.Nil(err)
	assert.Nil(resolved)
}

// tests that overrideMfa (used by impersonation) skips the challenge
func TestOverrideMfa(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()
	accountUuid, _ := store.InsertAccount(ctx, "careful@example.com", "", "")

	session, err := store.InsertSession(ctx, accountUuid, "impersonation", false, true)
	assert.Nil(err)
	assert.True(session.Active)
}

// tests impersonation selectors: legacy numeric ids and UUIDs
func TestResolveImpersonation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore()

	accountUuid, _ := store.InsertAccount(ctx, "dave@example.com", "", "")
	account, _ := store.AccountByUuid(ctx, accountUuid)
	account.LegacyId = 42
	assert.Nil(store.Db.DeleteSubject(ctx, account.Uri()))
	assert.Nil(store.Db.Insert(ctx, account.Triples()))

	target, err := store.ResolveImpersonation(ctx, "42")
	assert.Nil(err)
	assert.NotNil(target)
	assert.Equal(accountUuid, target.UUID)

	target, err = store.ResolveImpersonation(ctx, accountUuid.String())
	assert.Nil(err)
	assert.NotNil(target)

	_, err = store.ResolveImpersonation(ctx, "not-a-selector")
	assert.NotNil(err)
}

// tests that session tokens can be sealed and unsealed with the cookie key
func TestSealAndUnsealToken(t *testing.T) {
	assert := assert.New(t)

	sealed, err := SealToken("abc123")
	assert.Nil(err)
	assert.NotEqual("abc123", sealed)

	token, err := UnsealToken(sealed)
	assert.Nil(err)
	assert.Equal("abc123", token)

	// a tampered cookie doesn't verify
	token, err = UnsealToken(sealed + "x")
	assert.Nil(err)
	assert.Equal("", token)
}

// tests that unknown accounts can't get sessions
func TestSessionForMissingAccount(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore()

	_, err := store.InsertSession(context.Background(), uuid.New(), "login", false, false)
	var notFound *AccountNotFoundError
	assert.ErrorAs(err, &notFound)
}
