package httpapi

import (
	"net/http"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/auth"
	"github.com/scorekeep/scorekeep/internal/user"
)

var (
	linksUserGet = []apperr.Link{
		{Rel: "get accessToken", Href: "/auth/v1/request/accessToken/"},
	}
	linksUserLifecycle = []apperr.Link{
		{Rel: "code", Href: "/auth/v1/request/code/"},
		{Rel: "code", Href: "/auth/v1/verify/code/"},
	}
	linksAccountCommit = []apperr.Link{
		{Rel: "code", Href: "/auth/v1/account/request/code/"},
		{Rel: "code", Href: "/auth/v1/account/verify/code/"},
	}
	linksPasswordCommit = []apperr.Link{
		{Rel: "code", Href: "/auth/v1/password/request/code/"},
		{Rel: "verify", Href: "/auth/v1/password/verify/code/"},
	}
)

// profileResponse flattens the profile next to the completion flag.
type profileResponse struct {
	user.Profile
	Complete bool `json:"complete"`
}

type userResponse struct {
	Complete bool         `json:"complete"`
	User     user.Profile `json:"user"`
}

func (a *API) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var body user.CreateInput
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksUserLifecycle...)
		return
	}

	profile, res, err := a.user.Create(r.Context(), cookie(r, auth.CookieAccount), body)
	if err != nil {
		a.writeError(w, err, linksUserLifecycle...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusCreated, profileResponse{Profile: profile, Complete: true})
}

func (a *API) handleUserGet(w http.ResponseWriter, r *http.Request) {
	profile, err := a.user.Get(cookie(r, auth.CookieAccessToken))
	if err != nil {
		a.writeError(w, err, linksUserGet...)
		return
	}
	a.writeJSON(w, http.StatusOK, profileResponse{Profile: profile, Complete: true})
}

func (a *API) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	var body user.UpdateInput
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksUserLifecycle...)
		return
	}

	profile, res, err := a.user.Update(r.Context(),
		cookie(r, auth.CookieAccount), cookie(r, auth.CookieAccessToken), body)
	if err != nil {
		a.writeError(w, err, linksUserLifecycle...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, userResponse{Complete: true, User: profile})
}

func (a *API) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	res, err := a.user.Delete(r.Context(),
		cookie(r, auth.CookieAccount), cookie(r, auth.CookieAccessToken))
	if err != nil {
		a.writeError(w, err, linksUserLifecycle...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleAccountCommit(w http.ResponseWriter, r *http.Request) {
	profile, res, err := a.user.CommitAccountChange(r.Context(),
		cookie(r, auth.CookieAccessToken), cookie(r, auth.CookieNewAccountAccount))
	if err != nil {
		a.writeError(w, err, linksAccountCommit...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, userResponse{Complete: true, User: profile})
}

func (a *API) handlePasswordCommit(w http.ResponseWriter, r *http.Request) {
	res, err := a.user.CommitPasswordChange(r.Context(), cookie(r, auth.CookieNewPwd))
	if err != nil {
		a.writeError(w, err, linksPasswordCommit...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}
