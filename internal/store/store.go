// Package store defines the credential store contract the auth protocol and
// user services depend on. Implementations translate "entity not found" into
// the NotFound app error and infrastructure failures into DatabaseError; a
// malformed id is rejected as a bad request before any I/O.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/scorekeep/scorekeep/internal/model"
)

// MaxRefreshTokens bounds the per-account refresh-token list. When the list
// already holds this many tokens, a push evicts the oldest first.
const MaxRefreshTokens = 3

// UserStore is the account collection adapter.
type UserStore interface {
	// FindByAccount returns the full account document, password hash
	// included. Callers drop the hash before the record travels further.
	FindByAccount(ctx context.Context, account string) (*model.User, error)

	// Exists reports account existence, as NotFound when absent.
	Exists(ctx context.Context, account string) error

	// Create inserts a new account and returns the stored document.
	// A taken account is a DuplicateData failure.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// UpdateProfile applies a partial profile mutation and returns the
	// updated document.
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd model.ProfileUpdate) (*model.User, error)

	// UpdateAccount changes the account identifier and returns the updated
	// document. A taken target account is a DuplicateData failure.
	UpdateAccount(ctx context.Context, id primitive.ObjectID, account string) (*model.User, error)

	// UpdatePassword replaces the password hash for the given account.
	UpdatePassword(ctx context.Context, account, pwdHash string) error

	// Delete removes the account document.
	Delete(ctx context.Context, id primitive.ObjectID) error

	// PushRefreshToken appends an encrypted refresh-token string, evicting
	// the oldest entry first when the list is at capacity.
	PushRefreshToken(ctx context.Context, id primitive.ObjectID, tok string) error

	// RemoveRefreshToken removes the exact token string from the list.
	// Removing a token that is not present is not an error; revocation is
	// set-membership removal.
	RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, tok string) error

	// RefreshTokenExists reports exact-string membership in the account's
	// persisted token list.
	RefreshTokenExists(ctx context.Context, id primitive.ObjectID, tok string) (bool, error)
}
