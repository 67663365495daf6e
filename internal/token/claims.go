package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Each flow step decodes against its own claims shape instead of an untyped
// bag, and every token carries the issuing step's purpose in its subject
// claim. Opening a token with any other purpose fails like a tampered one, so
// a token from one step can never validate where another step's is expected,
// even when the two steps share a claims shape and a key class.

// Purposes, one per issuing step.
const (
	PurposeSignupCode      = "signup:code"
	PurposeSignupAccount   = "signup:account"
	PurposeLoginIdentity   = "login:identity"
	PurposeLoginCode       = "login:code"
	PurposeCurrentAccount  = "account-change:current"
	PurposeNewAccount      = "account-change:new"
	PurposeAccountChange   = "account-change:authorized"
	PurposePwdChangeCode   = "password-change:code"
	PurposePendingPassword = "password-change:pending"
	PurposeAccess          = "session:access"
	PurposeRefresh         = "session:refresh"
)

// CodeClaims carries an emailed one-time code, optionally bound to the
// account it was sent for. The signed cookie is the source of truth for
// "what code did we send"; verification is exact string comparison against
// the embedded value.
type CodeClaims struct {
	Account string `json:"account,omitempty"`
	Code    string `json:"code"`
	jwt.RegisteredClaims
}

// AccountClaims marks proven ownership of an email-like account. It backs the
// one-shot `account` and `newAccount_account` cookies, told apart by purpose.
type AccountClaims struct {
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// NewPasswordClaims carries a pending password between the verify and commit
// steps of the password-change flow. It lives only inside the signed and
// encrypted `newPwd` cookie and is hashed before it ever reaches the store.
type NewPasswordClaims struct {
	Account string `json:"account"`
	Pwd     string `json:"pwd"`
	jwt.RegisteredClaims
}

// SessionClaims is the identity payload of access and refresh tokens: the
// token-visible projection of an account record.
type SessionClaims struct {
	ID       string   `json:"_id"`
	FullName string   `json:"fullName"`
	Account  string   `json:"account"`
	NickName string   `json:"nickName,omitempty"`
	Role     []string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Reissue returns a copy stamped for the given purpose with fresh timing
// fields, for minting a new token class from a verified one.
func (c SessionClaims) Reissue(purpose string, ttl time.Duration) SessionClaims {
	c.RegisteredClaims = stamp(purpose, ttl)
	return c
}

// NewCodeClaims stamps a code payload for one step with the given expiry
// window.
func NewCodeClaims(purpose, account, code string, ttl time.Duration) *CodeClaims {
	return &CodeClaims{Account: account, Code: code, RegisteredClaims: stamp(purpose, ttl)}
}

// NewAccountClaims stamps an account-ownership payload for one step.
func NewAccountClaims(purpose, account string, ttl time.Duration) *AccountClaims {
	return &AccountClaims{Account: account, RegisteredClaims: stamp(purpose, ttl)}
}

// NewPendingPasswordClaims stamps a pending-password payload. Only the
// password-change verify step issues these.
func NewPendingPasswordClaims(account, pwd string, ttl time.Duration) *NewPasswordClaims {
	return &NewPasswordClaims{Account: account, Pwd: pwd, RegisteredClaims: stamp(PurposePendingPassword, ttl)}
}

// NewSessionClaims stamps an identity payload for one of the session-bearing
// purposes.
func NewSessionClaims(purpose, id, fullName, account, nickName string, role []string, ttl time.Duration) *SessionClaims {
	return &SessionClaims{
		ID:               id,
		FullName:         fullName,
		Account:          account,
		NickName:         nickName,
		Role:             role,
		RegisteredClaims: stamp(purpose, ttl),
	}
}

func stamp(purpose string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   purpose,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
