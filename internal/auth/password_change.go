package auth

import (
	"context"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/token"
)

// RequestPasswordChangeCode starts the single-code password change for an
// existing account: a one-time code bound to the account rides in the signed
// `pwdChange` cookie.
func (s *Service) RequestPasswordChangeCode(ctx context.Context, account, bypass string) (*Result, error) {
	if account == "" || !model.ValidAccount(account) {
		return nil, apperr.MissingData("Missing or invalid account it must match example@service.ext")
	}

	if err := s.users.Exists(ctx, account); err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to access data", "The user was not retrieved, something went wrong please try again"))
	}

	code, err := s.issueCode(ctx, account, bypass)
	if err != nil {
		return nil, err
	}

	cookieValue, err := s.codecs.Code.Issue(token.NewCodeClaims(token.PurposePwdChangeCode, account, code, TTLCode))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.set(CookiePwdChange, cookieValue, TTLCode)
	return res, nil
}

// VerifyPasswordChangeCode checks the submitted code and account against the
// `pwdChange` cookie and parks the pending password inside the signed and
// encrypted `newPwd` cookie for the commit step. The plaintext never touches
// the store; the commit step hashes it.
func (s *Service) VerifyPasswordChangeCode(ctx context.Context, pwdChangeCookie, submittedCode, submittedAccount, newPwd string) (*Result, error) {
	if pwdChangeCookie == "" || submittedCode == "" || submittedAccount == "" || newPwd == "" {
		return nil, apperr.MissingData("")
	}

	var claims token.CodeClaims
	if err := s.codecs.Code.Open(pwdChangeCookie, token.PurposePwdChangeCode, &claims); err != nil {
		return nil, err
	}

	if claims.Code != submittedCode {
		return nil, apperr.InvalidCredentials("Wrong code")
	}
	if claims.Account != submittedAccount {
		return nil, apperr.InvalidCredentials("The verified account does not match the sent account")
	}

	cookieValue, err := s.codecs.Code.Issue(token.NewPendingPasswordClaims(claims.Account, newPwd, TTLCode))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.set(CookieNewPwd, cookieValue, TTLCode)
	res.clear(CookiePwdChange)
	return res, nil
}
