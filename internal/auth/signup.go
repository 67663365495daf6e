package auth

import (
	"context"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/token"
)

// RequestSignupCode starts the signup flow: it mails a one-time code to the
// submitted account and binds code and account together inside the signed
// `code` cookie.
func (s *Service) RequestSignupCode(ctx context.Context, account, bypass string) (*Result, error) {
	if account == "" || !model.ValidAccount(account) {
		return nil, apperr.InvalidCredentials("Missing or invalid account, the account must match the following pattern example@service.ext")
	}

	code, err := s.issueCode(ctx, account, bypass)
	if err != nil {
		return nil, err
	}

	cookieValue, err := s.codecs.Code.Issue(token.NewCodeClaims(token.PurposeSignupCode, account, code, TTLCode))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.set(CookieCode, cookieValue, TTLCode)
	return res, nil
}

// VerifySignupCode consumes the `code` cookie: the submitted code and account
// must both equal the signed embedded values. Success clears the one-shot
// cookie and marks email ownership proven through the `account` cookie.
func (s *Service) VerifySignupCode(ctx context.Context, codeCookie, submittedCode, submittedAccount string) (*Result, error) {
	if codeCookie == "" || submittedCode == "" {
		return nil, apperr.MissingData("Missing code you need to ask for one")
	}

	var claims token.CodeClaims
	if err := s.codecs.Code.Open(codeCookie, token.PurposeSignupCode, &claims); err != nil {
		return nil, err
	}

	if claims.Code != submittedCode {
		return nil, apperr.InvalidCredentials("Wrong code")
	}
	if claims.Account != submittedAccount {
		return nil, apperr.InvalidCredentials("The verified account does not match the sent account")
	}

	cookieValue, err := s.codecs.Code.Issue(token.NewAccountClaims(token.PurposeSignupAccount, claims.Account, TTLCode))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.clear(CookieCode)
	res.set(CookieAccount, cookieValue, TTLCode)
	return res, nil
}
