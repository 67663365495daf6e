// Package user implements account CRUD on top of the auth protocol: creation
// consumes the proven-ownership cookie, updates re-issue the session pair,
// and the account/password change flows commit here.
package user

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/auth"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/password"
	"github.com/scorekeep/scorekeep/internal/store"
	"github.com/scorekeep/scorekeep/internal/token"
)

// DefaultRole is assigned to accounts created without an explicit role list.
const DefaultRole = "developer"

// Service handles user lifecycle operations.
type Service struct {
	codecs auth.Codecs
	users  store.UserStore
	hasher password.Hasher
}

// NewService wires the user service.
func NewService(codecs auth.Codecs, users store.UserStore, hasher password.Hasher) *Service {
	return &Service{codecs: codecs, users: users, hasher: hasher}
}

// Profile is the client-visible account projection: identity claims minus
// timing fields and internal id.
type Profile struct {
	FullName string   `json:"fullName"`
	Account  string   `json:"account"`
	NickName string   `json:"nickName,omitempty"`
	Role     []string `json:"role,omitempty"`
}

func profileOf(u *model.User) Profile {
	return Profile{
		FullName: u.FullName,
		Account:  u.Account,
		NickName: u.NickName,
		Role:     append([]string(nil), u.Role...),
	}
}

// CreateInput is the user-creation payload.
type CreateInput struct {
	FullName string `json:"fullName"`
	Account  string `json:"account"`
	Pwd      string `json:"pwd"`
	NickName string `json:"nickName,omitempty"`
}

// Create finishes the signup flow. The `account` cookie proves email
// ownership and must match the submitted account; the new session pair is
// persisted and issued, and the one-shot cookie is consumed.
func (s *Service) Create(ctx context.Context, accountCookie string, in CreateInput) (Profile, *auth.Result, error) {
	if accountCookie == "" {
		return Profile{}, nil, apperr.InvalidCredentials("Account not verified")
	}
	if in.FullName == "" || in.Account == "" || in.Pwd == "" {
		return Profile{}, nil, apperr.MissingData("fullName, account and pwd are required")
	}

	var proven token.AccountClaims
	if err := s.codecs.Code.Open(accountCookie, token.PurposeSignupAccount, &proven); err != nil {
		return Profile{}, nil, err
	}
	if proven.Account != in.Account {
		return Profile{}, nil, apperr.InvalidCredentials("Verified account does not match the sent account")
	}

	hash, err := s.hasher.Hash(in.Pwd)
	if err != nil {
		return Profile{}, nil, err
	}

	created, err := s.users.Create(ctx, &model.User{
		FullName: in.FullName,
		Account:  proven.Account,
		Pwd:      hash,
		NickName: in.NickName,
		Role:     []string{DefaultRole},
	})
	if err != nil {
		return Profile{}, nil, apperr.Classify(err, apperr.Database("Failed to save", "The user was not created, something went wrong please try again"))
	}

	res, err := s.issueSession(ctx, created)
	if err != nil {
		return Profile{}, nil, err
	}
	res.Clear = append(res.Clear, auth.CookieAccount)
	return profileOf(created), res, nil
}

// Get returns the profile carried by a valid `accessToken`.
func (s *Service) Get(accessCookie string) (Profile, error) {
	if accessCookie == "" {
		return Profile{}, apperr.InvalidCredentials("Missing accessToken")
	}
	var identity token.SessionClaims
	if err := s.codecs.Access.Open(accessCookie, token.PurposeAccess, &identity); err != nil {
		return Profile{}, err
	}
	return Profile{
		FullName: identity.FullName,
		Account:  identity.Account,
		NickName: identity.NickName,
		Role:     identity.Role,
	}, nil
}

// UpdateInput is a partial profile mutation; nil fields stay untouched.
type UpdateInput struct {
	FullName *string `json:"fullName,omitempty"`
	NickName *string `json:"nickName,omitempty"`
	Pwd      *string `json:"pwd,omitempty"`
}

// Update mutates the profile of the caller identified by matching `account`
// and `accessToken` cookies, then rotates and persists a fresh session pair.
func (s *Service) Update(ctx context.Context, accountCookie, accessCookie string, in UpdateInput) (Profile, *auth.Result, error) {
	identity, err := s.matchedIdentity(accountCookie, accessCookie)
	if err != nil {
		return Profile{}, nil, err
	}

	upd := model.ProfileUpdate{FullName: in.FullName, NickName: in.NickName}
	if in.Pwd != nil {
		hash, err := s.hasher.Hash(*in.Pwd)
		if err != nil {
			return Profile{}, nil, err
		}
		upd.Pwd = &hash
	}
	if upd.Empty() {
		return Profile{}, nil, apperr.MissingData("No data to update or invalid data")
	}

	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return Profile{}, nil, apperr.InvalidCredentials("The _id is invalid")
	}

	updated, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return Profile{}, nil, apperr.Classify(err, apperr.Database("Failed to save", "The user was not updated, something went wrong please try again"))
	}

	res, err := s.issueSession(ctx, updated)
	if err != nil {
		return Profile{}, nil, err
	}
	res.Clear = append(res.Clear, auth.CookieAccount)
	return profileOf(updated), res, nil
}

// Delete removes the caller's account after the same dual-cookie identity
// match the update path requires, then clears every session cookie.
func (s *Service) Delete(ctx context.Context, accountCookie, accessCookie string) (*auth.Result, error) {
	identity, err := s.matchedIdentity(accountCookie, accessCookie)
	if err != nil {
		return nil, err
	}

	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return nil, apperr.InvalidCredentials("The _id is invalid")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to remove", "The user was not deleted, something went wrong please try again"))
	}

	return &auth.Result{Clear: []string{
		auth.CookieRefreshToken,
		auth.CookieAccessToken,
		auth.CookieAccount,
	}}, nil
}

// CommitAccountChange performs the actual account mutation authorized by the
// `newAccount_account` cookie while the `accessToken` is still valid, then
// rotates the session pair onto the new identity.
func (s *Service) CommitAccountChange(ctx context.Context, accessCookie, authorizationCookie string) (Profile, *auth.Result, error) {
	if accessCookie == "" || authorizationCookie == "" {
		return Profile{}, nil, apperr.MissingData("Make sure to follow the auth flow for this operation")
	}

	var identity token.SessionClaims
	if err := s.codecs.Access.Open(accessCookie, token.PurposeAccess, &identity); err != nil {
		return Profile{}, nil, err
	}
	// The authorization must come from the account-change verify step; an
	// ownership proof minted by the signup flow carries a different purpose
	// and fails here.
	var target token.AccountClaims
	if err := s.codecs.Code.Open(authorizationCookie, token.PurposeAccountChange, &target); err != nil {
		return Profile{}, nil, err
	}

	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return Profile{}, nil, apperr.InvalidCredentials("The _id is invalid")
	}

	updated, err := s.users.UpdateAccount(ctx, userID, target.Account)
	if err != nil {
		return Profile{}, nil, apperr.Classify(err, apperr.Database("Failed to save", "The account was not updated, something went wrong please try again"))
	}

	res, err := s.issueSession(ctx, updated)
	if err != nil {
		return Profile{}, nil, err
	}
	res.Clear = append(res.Clear, auth.CookieNewAccountAccount)
	return profileOf(updated), res, nil
}

// CommitPasswordChange consumes the `newPwd` cookie: the pending password is
// hashed, persisted, and the cookie cleared.
func (s *Service) CommitPasswordChange(ctx context.Context, newPwdCookie string) (*auth.Result, error) {
	if newPwdCookie == "" {
		return nil, apperr.MissingData("Make sure to follow the auth flow for this operation")
	}

	var pending token.NewPasswordClaims
	if err := s.codecs.Code.Open(newPwdCookie, token.PurposePendingPassword, &pending); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(pending.Pwd)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdatePassword(ctx, pending.Account, hash); err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to save", "The password was not updated, something went wrong please try again"))
	}

	return &auth.Result{Clear: []string{auth.CookieNewPwd}}, nil
}

// matchedIdentity opens both identity-bearing cookies and requires them to
// agree on the account, so a stale ownership proof can not drive a mutation
// for someone else's session.
func (s *Service) matchedIdentity(accountCookie, accessCookie string) (*token.SessionClaims, error) {
	if accountCookie == "" || accessCookie == "" {
		return nil, apperr.MissingData("There are missing credentials, make sure to get them before this operation")
	}

	var proven token.AccountClaims
	if err := s.codecs.Code.Open(accountCookie, token.PurposeSignupAccount, &proven); err != nil {
		return nil, err
	}
	var identity token.SessionClaims
	if err := s.codecs.Access.Open(accessCookie, token.PurposeAccess, &identity); err != nil {
		return nil, err
	}
	if identity.Account != proven.Account {
		return nil, apperr.InvalidCredentials("The account verified and your account does not match")
	}
	return &identity, nil
}

// issueSession mints and persists a refresh token for the given account and
// pairs it with a fresh access token.
func (s *Service) issueSession(ctx context.Context, u *model.User) (*auth.Result, error) {
	refreshCookie, err := s.codecs.Refresh.Issue(u.SessionClaims(token.PurposeRefresh, auth.TTLRefreshToken))
	if err != nil {
		return nil, err
	}
	accessCookie, err := s.codecs.Access.Issue(u.SessionClaims(token.PurposeAccess, auth.TTLAccessToken))
	if err != nil {
		return nil, err
	}

	if err := s.users.PushRefreshToken(ctx, u.ID, refreshCookie); err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to save", "The session was not saved please try again"))
	}

	return &auth.Result{Set: []auth.Cookie{
		{Name: auth.CookieRefreshToken, Value: refreshCookie, MaxAge: auth.TTLRefreshToken},
		{Name: auth.CookieAccessToken, Value: accessCookie, MaxAge: auth.TTLAccessToken},
	}}, nil
}
