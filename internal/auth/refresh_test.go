package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/token"
)

func TestRefreshAccessToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, svc, users, "test@x.com", "s3cret-pwd")

	_, refreshCookie := confirmLogin(t, svc)

	res, err := svc.RefreshAccessToken(context.Background(), refreshCookie)
	require.NoError(t, err)
	assert.NotEmpty(t, cookieValue(t, res, CookieAccessToken))
	assert.Empty(t, res.Clear)
}

func TestRefreshAccessTokenMissingCookie(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RefreshAccessToken(context.Background(), "")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestRefreshAccessTokenRevoked(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := seedUser(t, svc, users, "test@x.com", "s3cret-pwd")
	ctx := context.Background()

	_, refreshCookie := confirmLogin(t, svc)
	require.NoError(t, users.RemoveRefreshToken(ctx, u.ID, refreshCookie))

	// Cryptographically valid but no longer a member of the persisted set.
	_, err := svc.RefreshAccessToken(ctx, refreshCookie)
	assert.Equal(t, 400, statusOf(t, err))
	assert.Contains(t, err.Error(), "not logged In")
}

func TestRefreshAccessTokenExpiredCleansUp(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := seedUser(t, svc, users, "test@x.com", "s3cret-pwd")
	ctx := context.Background()

	expired, err := svc.codecs.Refresh.Issue(u.SessionClaims(token.PurposeRefresh, -time.Second))
	require.NoError(t, err)
	require.NoError(t, users.PushRefreshToken(ctx, u.ID, expired))

	_, err = svc.RefreshAccessToken(ctx, expired)
	require.Error(t, err)
	assert.True(t, apperr.IsTokenExpired(err))

	exists, err := users.RefreshTokenExists(ctx, u.ID, expired)
	require.NoError(t, err)
	assert.False(t, exists, "expired token must be removed from the store")
}

func TestRefreshAccessTokenRejectsAccessClassCookie(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, svc, users, "test@x.com", "s3cret-pwd")

	res, _ := confirmLogin(t, svc)
	accessCookie := cookieValue(t, res, CookieAccessToken)

	// A token of the access class must not pass as a refresh token.
	_, err := svc.RefreshAccessToken(context.Background(), accessCookie)
	require.Error(t, err)
	assert.False(t, apperr.IsTokenExpired(err))
}
