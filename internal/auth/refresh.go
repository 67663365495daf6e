package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/token"
)

// RefreshAccessToken renews the short-lived identity proof from a valid
// `refreshToken` cookie.
//
// An expired refresh token is opportunistically removed from the account's
// persisted list before the expiry error is re-raised; the caller must log in
// again either way, and the cleanup is best effort. A well-formed, unexpired
// token is additionally checked for set membership, so a token revoked after
// issuance never mints a new access token.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshCookie string) (*Result, error) {
	if refreshCookie == "" {
		return nil, apperr.MissingData("You need to login")
	}

	var identity token.SessionClaims
	if err := s.codecs.Refresh.Open(refreshCookie, token.PurposeRefresh, &identity); err != nil {
		if apperr.IsTokenExpired(err) {
			s.cleanupExpired(ctx, refreshCookie)
		}
		return nil, err
	}

	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return nil, apperr.InvalidCredentials("The _id is invalid")
	}

	exists, err := s.users.RefreshTokenExists(ctx, userID, refreshCookie)
	if err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to access data", "The user was not retrieved, something went wrong please try again"))
	}
	if !exists {
		return nil, apperr.InvalidCredentials("You are not logged In")
	}

	accessCookie, err := s.codecs.Access.Issue(identity.Reissue(token.PurposeAccess, TTLAccessToken))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.set(CookieAccessToken, accessCookie, TTLAccessToken)
	return res, nil
}

// cleanupExpired removes an expired refresh token from the store using the
// owner claim of its still-verifiable signature. Failures only get logged;
// the caller re-raises the expiry regardless.
func (s *Service) cleanupExpired(ctx context.Context, refreshCookie string) {
	var identity token.SessionClaims
	if err := s.codecs.Refresh.OpenExpired(refreshCookie, token.PurposeRefresh, &identity); err != nil {
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return
	}
	if err := s.users.RemoveRefreshToken(ctx, userID, refreshCookie); err != nil {
		s.log.Warn("expired refresh token cleanup failed",
			zap.String("account", identity.Account),
			zap.Error(err),
		)
	}
}
