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
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/model"
	"github.com/datakeep/datakeep/rdf"
)

// InsertSession creates a session for an account. When the account's
// privilege entry requires two-factor authentication (and overrideMfa is not
// set), the session starts inactive with a fresh numeric MFA token that must
// be presented to ActivateSession.
func (store *Store) InsertSession(ctx context.Context, accountUuid uuid.UUID,
	name string, editable, overrideMfa bool) (*model.Session, error) {

	account, err := store.AccountByUuid(ctx, accountUuid)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &AccountNotFoundError{}
	}

	tokenBytes := make([]byte, 64)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, err
	}
	session := &model.Session{
		UUID:        uuid.New(),
		AccountUUID: accountUuid,
		Token:       hex.EncodeToString(tokenBytes),
		Name:        name,
		Editable:    editable,
		Active:      true,
		MfaToken:    -1,
		CreatedDate: time.Now().UTC().Format("2006-01-02T15:04:05"),
	}

	privilege := config.PrivilegeFor(account.Email)
	if privilege.NeedsTwoFactor && !overrideMfa && !config.Service.DisableTwoFactor {
		mfa, err := rand.Int(rand.Reader, big.NewInt(1000000))
		if err != nil {
			return nil, err
		}
		session.Active = false
		session.MfaToken = int(mfa.Int64())
		session.MfaTries = 0
	}

	if err := store.Db.Insert(ctx, session.Triples()); err != nil {
		return nil, err
	}
	return session, nil
}

// ActivateSession activates an inactive session if and only if both the
// session token and the MFA token match. Any mismatch deletes the session
// immediately, leaving no brute-force window.
func (store *Store) ActivateSession(ctx context.Context, sessionUuid uuid.UUID,
	token string, mfaToken int) (bool, error) {

	session, err := store.sessionBySubject(ctx, rdf.UriFor(sessionUuid))
	if err != nil || session == nil {
		return false, err
	}
	if session.Token != token || session.MfaToken < 0 || session.MfaToken != mfaToken {
		return false, store.Db.DeleteSubject(ctx, session.Uri())
	}

	// activation: drop the MFA challenge and flip the active flag
	if err := store.Db.DeleteSubject(ctx, session.Uri()); err != nil {
		return false, err
	}
	session.Active = true
	session.MfaToken = -1
	return true, store.Db.Insert(ctx, session.Triples())
}

// SessionByToken finds the session carrying the given token, if any.
func (store *Store) SessionByToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	triples, err := store.Db.Match(ctx,
		rdf.ObjectPattern(rdf.Predicate("token"), rdf.NewString(token)))
	if err != nil {
		return nil, err
	}
	for _, triple := range triples {
		session, err := store.sessionBySubject(ctx, triple.Subject)
		if err == nil && session != nil {
			return session, nil
		}
	}
	return nil, nil
}

// AccountBySessionToken resolves a bearer token to its account. Inactive
// sessions only resolve when the caller supplies the matching MFA token
// (mfaToken < 0 means "none supplied").
func (store *Store) AccountBySessionToken(ctx context.Context, token string,
	mfaToken int) (*model.Account, *model.Session, error) {

	session, err := store.SessionByToken(ctx, token)
	if err != nil || session == nil {
		return nil, nil, err
	}
	if !session.Active && (mfaToken < 0 || session.MfaToken != mfaToken) {
		return nil, nil, nil
	}
	account, err := store.AccountByUuid(ctx, session.AccountUUID)
	if err != nil || account == nil {
		return nil, nil, err
	}
	return account, session, nil
}

// DeleteSessionByToken removes the session carrying the given token.
func (store *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	session, err := store.SessionByToken(ctx, token)
	if err != nil || session == nil {
		return err
	}
	return store.Db.DeleteSubject(ctx, session.Uri())
}

// SessionsForAccount lists an account's sessions (for the session management
// page).
func (store *Store) SessionsForAccount(ctx context.Context,
	accountUuid uuid.UUID) ([]*model.Session, error) {

	subjects, err := model.ReferencingSubjects(ctx, store.Db, "account", accountUuid)
	if err != nil {
		return nil, err
	}
	sessions := make([]*model.Session, 0)
	for _, subject := range subjects {
		session, err := store.sessionBySubject(ctx, subject)
		if err == nil && session != nil {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (store *Store) sessionBySubject(ctx context.Context, subject string) (*model.Session, error) {
	id, err := rdf.UuidFromUri(subject)
	if err != nil {
		return nil, err
	}
	props, err := model.LoadProperties(ctx, store.Db, subject)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || !isOfClass(props, model.ClassSession) {
		return nil, nil
	}
	return model.SessionFromProperties(id, props), nil
}
