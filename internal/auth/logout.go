package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/token"
)

// Logout revokes the presented refresh token and clears the session cookies.
// With no `refreshToken` cookie it succeeds trivially. The signature is still
// verified, but an elapsed expiry is tolerated: an expired token's owner
// claim is trusted for cleanup.
func (s *Service) Logout(ctx context.Context, refreshCookie string) (*Result, error) {
	if refreshCookie == "" {
		return &Result{}, nil
	}

	var identity token.SessionClaims
	if err := s.codecs.Refresh.OpenExpired(refreshCookie, token.PurposeRefresh, &identity); err != nil {
		return nil, err
	}

	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return nil, apperr.InvalidCredentials("The _id is invalid")
	}

	if err := s.users.RemoveRefreshToken(ctx, userID, refreshCookie); err != nil {
		return nil, apperr.Classify(err, apperr.Database("Failed to remove", "The session was not removed, something went wrong please try again"))
	}

	res := &Result{}
	res.clear(CookieRefreshToken, CookieAccessToken)
	return res, nil
}
