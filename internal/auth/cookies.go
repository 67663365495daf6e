package auth

import "time"

// Cookie names. Every token is scoped to exactly one step of exactly one
// flow; the name, the claims shape and the key class pin that scope together.
const (
	CookieCode              = "code"
	CookieAccount           = "account"
	CookieAccessToken       = "accessToken"
	CookieRefreshToken      = "refreshToken"
	CookieTokenR            = "tokenR"
	CookieCodeR             = "codeR"
	CookieCurrentAccount    = "currentAccount"
	CookieNewAccount        = "newAccount"
	CookieNewAccountAccount = "newAccount_account"
	CookiePwdChange         = "pwdChange"
	CookieNewPwd            = "newPwd"
)

// Cookie lifetimes, matching the embedded token expiries.
const (
	TTLCode           = 5 * time.Minute
	TTLCodeNewAccount = 10 * time.Minute
	TTLAccessToken    = 15 * time.Minute
	TTLRefreshToken   = 365 * 24 * time.Hour
)

// Cookie is an instruction for the HTTP boundary: set this HttpOnly cookie.
type Cookie struct {
	Name   string
	Value  string
	MaxAge time.Duration
}

// Result tells the boundary which cookies a successful step sets and which
// one-shot cookies it consumes. On error no cookies change, so a failed step
// leaves the flow where it was.
type Result struct {
	Set   []Cookie
	Clear []string
}

func (r *Result) set(name, value string, ttl time.Duration) {
	r.Set = append(r.Set, Cookie{Name: name, Value: value, MaxAge: ttl})
}

func (r *Result) clear(names ...string) {
	r.Clear = append(r.Clear, names...)
}
