package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/password"
	"github.com/scorekeep/scorekeep/internal/store/memstore"
	"github.com/scorekeep/scorekeep/internal/token"
)

const testBypass = "test-secret"

type sentMail struct {
	to   string
	code string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendCode(_ context.Context, to, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, code: code})
	return nil
}

func testCodecs(t *testing.T) Codecs {
	t.Helper()
	newCodec := func(seed byte) *token.Codec {
		key := make([]byte, 32)
		for i := range key {
			key[i] = seed + byte(i)
		}
		c, err := token.NewCodec(key, []byte{seed, 'k'})
		require.NoError(t, err)
		return c
	}
	return Codecs{Code: newCodec(10), Access: newCodec(20), Refresh: newCodec(30)}
}

func newTestService(t *testing.T) (*Service, *memstore.Users, *fakeMailer) {
	t.Helper()
	users := memstore.NewUsers()
	mailer := &fakeMailer{}
	svc := NewService(testCodecs(t), users, password.NewHasher(bcrypt.MinCost), mailer, testBypass, nil)
	return svc, users, mailer
}

func seedUser(t *testing.T, svc *Service, users *memstore.Users, account, pwd string) *model.User {
	t.Helper()
	hash, err := svc.hasher.Hash(pwd)
	require.NoError(t, err)
	u, err := users.Create(context.Background(), &model.User{
		FullName: "Test User",
		Account:  account,
		Pwd:      hash,
		Role:     []string{"developer"},
	})
	require.NoError(t, err)
	return u
}

func cookieValue(t *testing.T, res *Result, name string) string {
	t.Helper()
	for _, c := range res.Set {
		if c.Name == name {
			return c.Value
		}
	}
	t.Fatalf("cookie %q not set; got %+v", name, res.Set)
	return ""
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}
