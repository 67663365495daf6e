// Package httpapi is the HTTP boundary of the auth and user services. It owns
// everything net/http: routing, cookie extraction, body decoding, applying the
// cookie instructions a protocol step returns, and shaping the
// complete/failure response envelopes.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scorekeep/scorekeep/internal/auth"
	"github.com/scorekeep/scorekeep/internal/user"
)

// API bundles the services behind the route table.
type API struct {
	auth *auth.Service
	user *user.Service
	log  *zap.Logger
}

// New wires the HTTP boundary.
func New(authSvc *auth.Service, userSvc *user.Service, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{auth: authSvc, user: userSvc, log: log}
}

// Router builds the versioned route table. Paths keep their trailing slash;
// clients address flow steps exactly as documented.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.requestID, a.logRequests)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/request/code/", a.handleSignupCode)
		r.Post("/verify/code/", a.handleSignupVerify)
		r.Get("/request/accessToken/", a.handleAccessToken)
		r.Post("/request/refreshToken/code/", a.handleLoginCode)
		r.Post("/request/refreshToken/", a.handleLoginConfirm)
		r.Post("/request/logout/", a.handleLogout)
		r.Patch("/account/request/code/", a.handleAccountChangeCodes)
		r.Patch("/account/verify/code/", a.handleAccountChangeVerify)
		r.Patch("/password/request/code/", a.handlePasswordChangeCode)
		r.Patch("/password/verify/code/", a.handlePasswordChangeVerify)
	})

	r.Route("/user/v1", func(r chi.Router) {
		r.Post("/create/", a.handleUserCreate)
		r.Get("/get/", a.handleUserGet)
		r.Put("/update/", a.handleUserUpdate)
		r.Delete("/delete/", a.handleUserDelete)
		r.Patch("/update/account/", a.handleAccountCommit)
		r.Patch("/update/password/", a.handlePasswordCommit)
	})

	return r
}

// cookie returns the named cookie's value, or "" when absent. The protocol
// layer treats an empty value as a missing credential.
func cookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// applyResult turns a step's cookie instructions into Set-Cookie headers.
// Every token cookie is HttpOnly; clearing uses an immediate expiry.
func applyResult(w http.ResponseWriter, res *auth.Result) {
	if res == nil {
		return
	}
	for _, c := range res.Set {
		http.SetCookie(w, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     "/",
			MaxAge:   int(c.MaxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	for _, name := range res.Clear {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
