package auth

import (
	"context"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/token"
)

// RequestAccountChangeCodes starts the dual-code account change. The caller
// proves current identity with a live `accessToken`; one code is mailed to
// the current account and an independent one to the target account, each
// parked in its own signed cookie. Renaming an account to itself is rejected
// before anything is mailed.
func (s *Service) RequestAccountChangeCodes(ctx context.Context, accessCookie, newAccount, bypass string) (*Result, error) {
	if accessCookie == "" || newAccount == "" || !model.ValidAccount(newAccount) {
		return nil, apperr.MissingData("Missing or invalid data you may be not logged in")
	}

	var identity token.SessionClaims
	if err := s.codecs.Access.Open(accessCookie, token.PurposeAccess, &identity); err != nil {
		return nil, err
	}

	if identity.Account == newAccount {
		return nil, apperr.InvalidCredentials("The new account can not be the same as the current one")
	}

	currentCode, err := s.issueCode(ctx, identity.Account, bypass)
	if err != nil {
		return nil, err
	}
	newCode, err := s.issueCode(ctx, newAccount, bypass)
	if err != nil {
		return nil, err
	}

	currentCookie, err := s.codecs.Code.Issue(token.NewCodeClaims(token.PurposeCurrentAccount, "", currentCode, TTLCode))
	if err != nil {
		return nil, err
	}
	newCookie, err := s.codecs.Code.Issue(token.NewCodeClaims(token.PurposeNewAccount, newAccount, newCode, TTLCodeNewAccount))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.set(CookieCurrentAccount, currentCookie, TTLCode)
	res.set(CookieNewAccount, newCookie, TTLCodeNewAccount)
	return res, nil
}

// VerifyAccountChangeCodes checks both submitted codes against their signed
// cookies while the `accessToken` is still valid. Success consumes the two
// code cookies and issues `newAccount_account`, the short-lived authorization
// the commit step requires.
func (s *Service) VerifyAccountChangeCodes(ctx context.Context, currentCookie, newCookie, accessCookie, codeCurrent, codeNew string) (*Result, error) {
	if currentCookie == "" || newCookie == "" || accessCookie == "" ||
		codeCurrent == "" || codeNew == "" {
		return nil, apperr.InvalidCredentials("You need to ask for verification codes")
	}

	var current token.CodeClaims
	if err := s.codecs.Code.Open(currentCookie, token.PurposeCurrentAccount, &current); err != nil {
		return nil, err
	}
	var target token.CodeClaims
	if err := s.codecs.Code.Open(newCookie, token.PurposeNewAccount, &target); err != nil {
		return nil, err
	}
	var identity token.SessionClaims
	if err := s.codecs.Access.Open(accessCookie, token.PurposeAccess, &identity); err != nil {
		return nil, err
	}

	if current.Code != codeCurrent {
		return nil, apperr.InvalidCredentials("Current account code is wrong")
	}
	if target.Code != codeNew {
		return nil, apperr.InvalidCredentials("New account code is wrong")
	}

	authCookie, err := s.codecs.Code.Issue(token.NewAccountClaims(token.PurposeAccountChange, target.Account, TTLCode))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.clear(CookieCurrentAccount, CookieNewAccount)
	res.set(CookieNewAccountAccount, authCookie, TTLCode)
	return res, nil
}
