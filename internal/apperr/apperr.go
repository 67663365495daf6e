// Package apperr defines the client-facing error taxonomy shared across layers.
//
// Every protocol failure is an *Error carrying an HTTP status class, a short
// message, an optional human description, and optional remediation links
// pointing at the flow step the caller should retry. Store and protocol code
// return these directly; unexpected failures are wrapped exactly once at the
// store boundary through Classify.
package apperr

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Link is a remediation hyperlink attached to a failure response.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Error is the single error shape that crosses the store/protocol/HTTP
// boundaries. Status follows the taxonomy: 400 bad input or credential
// problems, 401/403 for token-library failures, 404 not found, 409 duplicate,
// 500 infrastructure.
type Error struct {
	Status      int    `json:"-"`
	Msg         string `json:"msg"`
	Description string `json:"description,omitempty"`
	Links       []Link `json:"link,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Description)
}

// WithLinks returns a shallow copy carrying the given remediation links.
// The original is never mutated; errors are issued, not edited in place.
func (e *Error) WithLinks(links ...Link) *Error {
	cp := *e
	cp.Links = links
	return &cp
}

// UserBadRequest reports malformed or missing input, or a failed business
// precondition. Token, signature and code mismatches use the same class.
func UserBadRequest(msg, description string) *Error {
	return &Error{Status: 400, Msg: msg, Description: description}
}

// InvalidCredentials is the conventional "Invalid credentials" bad request.
func InvalidCredentials(description string) *Error {
	return &Error{Status: 400, Msg: "Invalid credentials", Description: description}
}

// MissingData is the conventional "Missing data" bad request.
func MissingData(description string) *Error {
	return &Error{Status: 400, Msg: "Missing data", Description: description}
}

// NotFound reports a missing entity.
func NotFound(msg, description string) *Error {
	return &Error{Status: 404, Msg: msg, Description: description}
}

// Duplicate reports a uniqueness violation.
func Duplicate(msg, description string) *Error {
	return &Error{Status: 409, Msg: msg, Description: description}
}

// Forbidden reports a denied operation on an otherwise valid identity.
func Forbidden(msg, description string) *Error {
	return &Error{Status: 403, Msg: msg, Description: description}
}

// Database reports an infrastructure failure in the persistence layer with a
// non-leaking message.
func Database(msg, description string) *Error {
	return &Error{Status: 500, Msg: msg, Description: description}
}

// Server reports a non-database infrastructure failure (mail delivery, etc).
func Server(msg, description string) *Error {
	return &Error{Status: 500, Msg: msg, Description: description}
}

// Classify is the single re-wrapping point between the store layer and its
// callers. Known *Error values bubble unchanged; anything else becomes the
// given fallback so driver errors never reach a client.
func Classify(err error, fallback *Error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return fallback
}

// Fixed triples for token-library failures. Raw jwt error names must never
// leak to clients, so the three verification outcomes are pinned here.
var (
	tokenExpired = &Error{
		Status:      401,
		Msg:         "Expired token",
		Description: "The token has expired and is no longer valid",
	}
	tokenInvalid = &Error{
		Status:      400,
		Msg:         "Invalid token",
		Description: "The token is malformed or has been tampered with",
	}
	tokenNotYetValid = &Error{
		Status:      403,
		Msg:         "Invalid token",
		Description: `The token is not active yet; check the "nbf" claim`,
	}
)

// IsTokenExpired reports whether err is the expired-token condition, either
// the raw jwt sentinel or the already-normalized triple. Callers use this to
// decide between silent cleanup and surfacing the failure.
func IsTokenExpired(err error) bool {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return true
	}
	var appErr *Error
	return errors.As(err, &appErr) && appErr == tokenExpired
}

// FromToken normalizes golang-jwt verification failures to the fixed
// status/message/description triples. Errors that are not token-library
// failures pass through untouched.
func FromToken(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return tokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return tokenNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidSubject),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return tokenInvalid
	}
	return err
}
