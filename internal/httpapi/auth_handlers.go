package httpapi

import (
	"net/http"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/auth"
)

// Remediation links sent alongside failures so a client stuck mid-flow knows
// which step to retry.
var (
	linksAccessToken = []apperr.Link{
		{Rel: "Code for login", Href: "/auth/v1/request/refreshToken/code/"},
		{Rel: "Verify code for login", Href: "/auth/v1/request/refreshToken/"},
	}
	linksLoginConfirm = []apperr.Link{
		{Rel: "You need to use MFA for login", Href: "/auth/v1/request/refreshToken/code/"},
	}
	linksSignupVerify = []apperr.Link{
		{Rel: "Missing code", Href: "/auth/v1/request/code"},
	}
	linksAccountChangeRequest = []apperr.Link{
		{Rel: "get accessToken with refreshToken", Href: "/auth/v1/request/accessToken/"},
		{Rel: "get refreshToken", Href: "/auth/v1/request/refreshToken/code"},
		{Rel: "get refreshToken", Href: "/auth/v1/request/refreshToken/"},
	}
	linksAccountChangeVerify = []apperr.Link{
		{Rel: "get accessToken with refreshToken", Href: "/auth/v1/request/accessToken/"},
		{Rel: "get refreshToken", Href: "/auth/v1/request/refreshToken/code"},
		{Rel: "get refreshToken", Href: "/auth/v1/request/refreshToken/"},
		{Rel: "get verification code for account change", Href: "/auth/v1/account/request/code/"},
		{Rel: "validate code", Href: "/auth/v1/account/verify/code/"},
	}
	linksPasswordChangeVerify = []apperr.Link{
		{Rel: "get code", Href: "/auth/v1/password/request/code/"},
	}
)

func (a *API) handleSignupCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Account string `json:"account"`
		TestPwd string `json:"TEST_PWD"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err)
		return
	}

	res, err := a.auth.RequestSignupCode(r.Context(), body.Account, body.TestPwd)
	if err != nil {
		a.writeError(w, err)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleSignupVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code    string `json:"code"`
		Account string `json:"account"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksSignupVerify...)
		return
	}

	res, err := a.auth.VerifySignupCode(r.Context(), cookie(r, auth.CookieCode), body.Code, body.Account)
	if err != nil {
		a.writeError(w, err, linksSignupVerify...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	res, err := a.auth.RefreshAccessToken(r.Context(), cookie(r, auth.CookieRefreshToken))
	if err != nil {
		a.writeError(w, err, linksAccessToken...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleLoginCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Account string `json:"account"`
		Pwd     string `json:"pwd"`
		TestPwd string `json:"TEST_PWD"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err)
		return
	}

	res, err := a.auth.RequestLoginCode(r.Context(), body.Account, body.Pwd, body.TestPwd)
	if err != nil {
		a.writeError(w, err)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleLoginConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksLoginConfirm...)
		return
	}

	res, err := a.auth.ConfirmLogin(r.Context(),
		cookie(r, auth.CookieTokenR),
		cookie(r, auth.CookieCodeR),
		body.Code,
	)
	if err != nil {
		a.writeError(w, err, linksLoginConfirm...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	res, err := a.auth.Logout(r.Context(), cookie(r, auth.CookieRefreshToken))
	if err != nil {
		a.writeError(w, err)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleAccountChangeCodes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewAccount string `json:"newAccount"`
		TestPwd    string `json:"TEST_PWD"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksAccountChangeRequest...)
		return
	}

	res, err := a.auth.RequestAccountChangeCodes(r.Context(),
		cookie(r, auth.CookieAccessToken), body.NewAccount, body.TestPwd)
	if err != nil {
		a.writeError(w, err, linksAccountChangeRequest...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handleAccountChangeVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CodeCurrentAccount string `json:"codeCurrentAccount"`
		CodeNewAccount     string `json:"codeNewAccount"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksAccountChangeVerify...)
		return
	}

	res, err := a.auth.VerifyAccountChangeCodes(r.Context(),
		cookie(r, auth.CookieCurrentAccount),
		cookie(r, auth.CookieNewAccount),
		cookie(r, auth.CookieAccessToken),
		body.CodeCurrentAccount,
		body.CodeNewAccount,
	)
	if err != nil {
		a.writeError(w, err, linksAccountChangeVerify...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handlePasswordChangeCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Account string `json:"account"`
		TestPwd string `json:"TEST_PWD"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err)
		return
	}

	res, err := a.auth.RequestPasswordChangeCode(r.Context(), body.Account, body.TestPwd)
	if err != nil {
		a.writeError(w, err)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}

func (a *API) handlePasswordChangeVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code    string `json:"code"`
		Account string `json:"account"`
		NewPwd  string `json:"newPwd"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, err, linksPasswordChangeVerify...)
		return
	}

	res, err := a.auth.VerifyPasswordChangeCode(r.Context(),
		cookie(r, auth.CookiePwdChange), body.Code, body.Account, body.NewPwd)
	if err != nil {
		a.writeError(w, err, linksPasswordChangeVerify...)
		return
	}
	applyResult(w, res)
	a.writeJSON(w, http.StatusOK, completeResponse{Complete: true})
}
