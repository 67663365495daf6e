package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/token"
)

// RequestLoginCode is the first MFA step for returning users: credentials are
// checked against the store, then the pending login is parked in two cookies.
// `tokenR` carries the signed identity claims, `codeR` the signed one-time
// code mailed to the account.
func (s *Service) RequestLoginCode(ctx context.Context, account, pwd, bypass string) (*Result, error) {
	if account == "" || pwd == "" || !model.ValidAccount(account) {
		return nil, apperr.InvalidCredentials("Missing or invalid data the account must match the following pattern example@service.ext")
	}

	user, err := s.users.FindByAccount(ctx, account)
	if err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to access data", "The user was not retrieved, something went wrong please try again"))
	}
	// Once the account is confirmed to exist, a mismatch reveals nothing
	// beyond the password being wrong.
	if !s.hasher.Verify(user.Pwd, pwd) {
		return nil, apperr.InvalidCredentials("Incorrect password")
	}

	code, err := s.issueCode(ctx, account, bypass)
	if err != nil {
		return nil, err
	}

	identity, err := s.codecs.Code.Issue(user.SessionClaims(token.PurposeLoginIdentity, TTLCode))
	if err != nil {
		return nil, err
	}
	codeCookie, err := s.codecs.Code.Issue(token.NewCodeClaims(token.PurposeLoginCode, "", code, TTLCode))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.set(CookieTokenR, identity, TTLCode)
	res.set(CookieCodeR, codeCookie, TTLCode)
	return res, nil
}

// ConfirmLogin finishes MFA: the submitted code must equal the one embedded
// in `codeR`. Success persists a fresh refresh token to the account's bounded
// token list, issues the session pair and consumes both pending cookies. A
// wrong code leaves the pending cookies untouched until they expire.
func (s *Service) ConfirmLogin(ctx context.Context, tokenRCookie, codeRCookie, submittedCode string) (*Result, error) {
	if tokenRCookie == "" || codeRCookie == "" || submittedCode == "" {
		return nil, apperr.MissingData("You need to use MFA for login")
	}

	var codeClaims token.CodeClaims
	if err := s.codecs.Code.Open(codeRCookie, token.PurposeLoginCode, &codeClaims); err != nil {
		return nil, err
	}
	if codeClaims.Code != submittedCode {
		return nil, apperr.InvalidCredentials("Wrong code")
	}

	var identity token.SessionClaims
	if err := s.codecs.Code.Open(tokenRCookie, token.PurposeLoginIdentity, &identity); err != nil {
		return nil, err
	}

	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return nil, apperr.InvalidCredentials("The _id is invalid")
	}

	refreshCookie, err := s.codecs.Refresh.Issue(identity.Reissue(token.PurposeRefresh, TTLRefreshToken))
	if err != nil {
		return nil, err
	}
	accessCookie, err := s.codecs.Access.Issue(identity.Reissue(token.PurposeAccess, TTLAccessToken))
	if err != nil {
		return nil, err
	}

	if err := s.users.PushRefreshToken(ctx, userID, refreshCookie); err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to save", "The session was not saved please try again"))
	}

	res := &Result{}
	res.set(CookieRefreshToken, refreshCookie, TTLRefreshToken)
	res.set(CookieAccessToken, accessCookie, TTLAccessToken)
	res.clear(CookieTokenR, CookieCodeR)
	return res, nil
}
