package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/datakeep/datakeep/accounts"
	"github.com/datakeep/datakeep/config"
	"github.com/datakeep/datakeep/journal"
	"github.com/datakeep/datakeep/model"
)

// the message returned whenever a session token is missing or stale
const invalidSessionMessage = "InvalidSessionToken"

// the secondary cookie carrying the sealed original token during
// impersonation
func impersonationCookieName() string {
	return config.Service.SessionCookie + "_original"
}

// sessionToken extracts the bearer token from an Authorization header
// ("token <hex>") or, failing that, from the session cookie.
func sessionToken(authorization, cookieHeader string) string {
	if rest, found := strings.CutPrefix(authorization, "token "); found {
		return strings.TrimSpace(rest)
	}
	request := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	if cookie, err := request.Cookie(config.Service.SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthInput carries the credentials of API requests that require a session.
type AuthInput struct {
	Authorization string `header:"Authorization" doc:"Authorization header carrying 'token <hex>'"`
	Cookie        string `header:"Cookie" doc:"Cookies, checked for the session cookie when no header token is given"`
}

// accountFor resolves an authenticated API request to its account. Missing
// or stale tokens yield the 403 InvalidSessionToken response.
func (service *service) accountFor(ctx context.Context,
	auth AuthInput) (*model.Account, error) {

	token := sessionToken(auth.Authorization, auth.Cookie)
	if token == "" {
		return nil, huma.Error403Forbidden(invalidSessionMessage)
	}
	account, _, err := service.Accounts.AccountBySessionToken(ctx, token, -1)
	if err != nil {
		return nil, domainError(err)
	}
	if account == nil {
		return nil, huma.Error403Forbidden(invalidSessionMessage)
	}
	return account, nil
}

// requestAccount is the raw-handler counterpart of accountFor. It writes the
// 403 response itself and returns nil when the request is unauthenticated.
func (service *service) requestAccount(w http.ResponseWriter,
	r *http.Request) *model.Account {

	token := sessionToken(r.Header.Get("Authorization"), r.Header.Get("Cookie"))
	if token == "" {
		writeError(w, invalidSessionMessage, http.StatusForbidden)
		return nil
	}
	account, _, err := service.Accounts.AccountBySessionToken(r.Context(), token, -1)
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if account == nil {
		writeError(w, invalidSessionMessage, http.StatusForbidden)
		return nil
	}
	return account
}

// optionalAccount resolves the requester's account if a valid token is
// present, and nil otherwise. Public endpoints use it to widen visibility.
func (service *service) optionalAccount(r *http.Request) *model.Account {
	token := sessionToken(r.Header.Get("Authorization"), r.Header.Get("Cookie"))
	if token == "" {
		return nil
	}
	account, _, err := service.Accounts.AccountBySessionToken(r.Context(), token, -1)
	if err != nil {
		return nil
	}
	return account
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.Service.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// addSessionRoutes wires login, logout and impersonation.
func (service *service) addSessionRoutes() {
	service.Router.HandleFunc("/login", service.login).Methods("POST")
	service.Router.HandleFunc("/login/2fa", service.activateSession).Methods("POST")
	service.Router.HandleFunc("/logout", service.logout).Methods("GET", "POST")
	service.Router.HandleFunc("/v3/accounts/impersonate", service.impersonate).Methods("POST")
	service.Router.HandleFunc("/v3/accounts/unimpersonate", service.unimpersonate).Methods("POST")
}

// login authenticates an e-mail address and issues a session. With identity
// provider "none" the e-mail is taken at face value (development setups);
// SAML and ORCID providers terminate the handshake upstream and land here
// with the asserted e-mail. Accounts under two-factor enforcement get an
// inactive session plus a challenge to complete at /login/2fa.
func (service *service) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, "An e-mail address is required", http.StatusBadRequest)
		return
	}

	account, err := service.Accounts.AccountByEmail(r.Context(), body.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if account == nil {
		// first login provisions the account
		accountUuid, err := service.Accounts.InsertAccount(r.Context(), body.Email, "", "")
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if account, err = service.Accounts.AccountByUuid(r.Context(), accountUuid); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	session, err := service.Accounts.InsertSession(r.Context(), account.UUID,
		"login", false, false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !session.Active {
		// two-factor: hand back the session id; the token arrives out of band
		slog.Info(fmt.Sprintf("Issued MFA challenge for %s", account.Email))
		data, _ := json.Marshal(map[string]any{
			"mfa_required": true,
			"session_uuid": session.UUID,
		})
		writeJson(w, data, http.StatusOK)
		return
	}

	setSessionCookie(w, session.Token)
	data, _ := json.Marshal(map[string]any{"token": session.Token})
	writeJson(w, data, http.StatusOK)
}

// activateSession completes a two-factor login. Any mismatch destroys the
// pending session, so a fresh login is required after a failed attempt.
func (service *service) activateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionUUID uuid.UUID `json:"session_uuid"`
		Token       string    `json:"token"`
		MfaToken    int       `json:"mfa_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	activated, err := service.Accounts.ActivateSession(r.Context(),
		body.SessionUUID, body.Token, body.MfaToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !activated {
		writeError(w, invalidSessionMessage, http.StatusForbidden)
		return
	}
	setSessionCookie(w, body.Token)
	data, _ := json.Marshal(map[string]any{"token": body.Token})
	writeJson(w, data, http.StatusOK)
}

// logout destroys the current session and clears the cookies. Logging out
// while impersonating only ends the impersonated session and restores the
// original one from the sealed cookie.
func (service *service) logout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r.Header.Get("Authorization"), r.Header.Get("Cookie"))

	if cookie, err := r.Cookie(impersonationCookieName()); err == nil {
		if originalToken, err := accounts.UnsealToken(cookie.Value); err == nil &&
			originalToken != "" {
			if token != "" {
				if err := service.Accounts.DeleteSessionByToken(r.Context(), token); err != nil {
					slog.Error(fmt.Sprintf("Couldn't delete impersonated session: %s",
						err.Error()))
				}
			}
			setSessionCookie(w, originalToken)
			clearCookie(w, impersonationCookieName())
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	if token != "" {
		if err := service.Accounts.DeleteSessionByToken(r.Context(), token); err != nil {
			slog.Error(fmt.Sprintf("Couldn't delete session: %s", err.Error()))
		}
	}
	clearCookie(w, config.Service.SessionCookie)
	clearCookie(w, impersonationCookieName())
	w.WriteHeader(http.StatusNoContent)
}

// impersonate switches the requester's session to another account. The
// caller needs the may_impersonate privilege; the original token is sealed
// into a secondary cookie so the switch can be undone. The selector is a
// numeric legacy id or an account UUID.
func (service *service) impersonate(w http.ResponseWriter, r *http.Request) {
	account := service.requestAccount(w, r)
	if account == nil {
		return
	}
	if !config.PrivilegeFor(account.Email).MayImpersonate {
		writeError(w, "Permission denied", http.StatusForbidden)
		return
	}

	var body struct {
		Impersonate json.Number `json:"impersonate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}
	target, err := service.Accounts.ResolveImpersonation(r.Context(),
		body.Impersonate.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if target == nil {
		writeError(w, "No such account", http.StatusNotFound)
		return
	}

	session, err := service.Accounts.InsertSession(r.Context(), target.UUID,
		"impersonation", false, true)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	originalToken := sessionToken(r.Header.Get("Authorization"), r.Header.Get("Cookie"))
	sealed, err := accounts.SealToken(originalToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := journal.RecordEvent(journal.Event{
		Id:        uuid.New(),
		Timestamp: time.Now().UTC(),
		IpAddress: r.RemoteAddr,
		ItemUri:   target.Uri(),
		EventType: journal.EventImpersonation,
	}); err != nil {
		slog.Error(fmt.Sprintf("Couldn't record impersonation event: %s", err.Error()))
	}
	slog.Info(fmt.Sprintf("%s now impersonates %s", account.Email, target.Email))

	setSessionCookie(w, session.Token)
	http.SetCookie(w, &http.Cookie{
		Name:     impersonationCookieName(),
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	data, _ := json.Marshal(map[string]any{"token": session.Token})
	writeJson(w, data, http.StatusOK)
}

// unimpersonate restores the original session from the sealed cookie and
// destroys the impersonated one.
func (service *service) unimpersonate(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(impersonationCookieName())
	if err != nil {
		writeError(w, invalidSessionMessage, http.StatusForbidden)
		return
	}
	originalToken, err := accounts.UnsealToken(cookie.Value)
	if err != nil {
		writeError(w, invalidSessionMessage, http.StatusForbidden)
		return
	}

	impersonated := sessionToken(r.Header.Get("Authorization"), r.Header.Get("Cookie"))
	if impersonated != "" {
		if err := service.Accounts.DeleteSessionByToken(r.Context(), impersonated); err != nil {
			slog.Error(fmt.Sprintf("Couldn't delete impersonated session: %s", err.Error()))
		}
	}
	setSessionCookie(w, originalToken)
	clearCookie(w, impersonationCookieName())
	data, _ := json.Marshal(map[string]any{"token": originalToken})
	writeJson(w, data, http.StatusOK)
}
