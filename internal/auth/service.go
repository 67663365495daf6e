// Package auth orchestrates the multi-step cookie-carried token flows:
// signup code request/verify, MFA login, access-token renewal, account and
// password change, and logout.
//
// Each step consumes cookies and body fields, verifies tokens through the
// per-class codecs, consults the credential store, and emits a Result the
// HTTP boundary applies. The protocol layer never touches net/http.
package auth

import (
	"context"
	"crypto/subtle"

	"go.uber.org/zap"

	"github.com/scorekeep/scorekeep/internal/mail"
	"github.com/scorekeep/scorekeep/internal/password"
	"github.com/scorekeep/scorekeep/internal/store"
	"github.com/scorekeep/scorekeep/internal/token"
)

// Codecs bundles the three class codecs. Code-class tokens back every
// short-lived step cookie; access and refresh back the session pair.
type Codecs struct {
	Code    *token.Codec
	Access  *token.Codec
	Refresh *token.Codec
}

// Service is the auth protocol state machine.
type Service struct {
	codecs  Codecs
	users   store.UserStore
	hasher  password.Hasher
	mailer  mail.Sender
	testPwd string
	log     *zap.Logger
}

// NewService wires the protocol dependencies. testPwd is the server-side
// bypass secret; an empty value disables the bypass entirely.
func NewService(codecs Codecs, users store.UserStore, hasher password.Hasher, mailer mail.Sender, testPwd string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		codecs:  codecs,
		users:   users,
		hasher:  hasher,
		mailer:  mailer,
		testPwd: testPwd,
		log:     log,
	}
}

// bypassed reports whether the submitted bypass secret matches the server's.
// Comparison is constant time and an unset server secret never matches.
func (s *Service) bypassed(submitted string) bool {
	if s.testPwd == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(s.testPwd)) == 1
}

// issueCode returns the one-time code for a step and delivers it. In bypass
// mode the fixed test code is used and no mail leaves the process; otherwise
// a delivery failure aborts the step so no cookie ever carries an
// undelivered code.
func (s *Service) issueCode(ctx context.Context, to, submittedBypass string) (string, error) {
	if s.bypassed(submittedBypass) {
		return mail.TestCode, nil
	}
	code, err := mail.GenerateCode()
	if err != nil {
		return "", err
	}
	if err := s.mailer.SendCode(ctx, to, code); err != nil {
		return "", err
	}
	return code, nil
}
