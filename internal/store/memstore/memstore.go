// Package memstore is an in-memory credential store used by tests and local
// development. Unlike the MongoDB adapter, every operation runs under one
// mutex, so the eviction-then-push sequence is atomic and the capacity bound
// holds even under concurrent pushes.
package memstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/store"
)

// Users is the in-memory account store.
type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*model.User
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{users: map[primitive.ObjectID]*model.User{}}
}

var (
	errNotFound = apperr.NotFound("User not found", "")
	errBadID    = apperr.InvalidCredentials("The _id is invalid")
)

func (s *Users) byAccount(account string) *model.User {
	for _, u := range s.users {
		if u.Account == account {
			return u
		}
	}
	return nil
}

func clone(u *model.User) *model.User {
	cp := *u
	cp.Role = append([]string(nil), u.Role...)
	cp.RefreshToken = append([]string(nil), u.RefreshToken...)
	cp.Group = append([]model.GroupRef(nil), u.Group...)
	cp.Invitation = append([]model.GroupRef(nil), u.Invitation...)
	return &cp
}

// FindByAccount returns the full account record, password hash included.
func (s *Users) FindByAccount(_ context.Context, account string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byAccount(account)
	if u == nil {
		return nil, errNotFound
	}
	return clone(u), nil
}

// Exists reports account existence.
func (s *Users) Exists(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byAccount(account) == nil {
		return errNotFound
	}
	return nil
}

// Create inserts a new account record.
func (s *Users) Create(_ context.Context, u *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.ID.IsZero() {
		return nil, apperr.InvalidCredentials("You can not put the _id yourself")
	}
	if len(u.RefreshToken) != 0 {
		return nil, apperr.InvalidCredentials("You can not put the refreshToken yourself")
	}
	if s.byAccount(u.Account) != nil {
		return nil, apperr.Duplicate("User already exists", "This account belongs to an existing user")
	}

	stored := clone(u)
	stored.ID = primitive.NewObjectID()
	s.users[stored.ID] = stored
	return clone(stored), nil
}

// UpdateProfile applies a partial mutation.
func (s *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, upd model.ProfileUpdate) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return nil, errBadID
	}
	if upd.Empty() {
		return nil, apperr.MissingData("No data to update or invalid data")
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.NickName != nil {
		u.NickName = *upd.NickName
	}
	if upd.Pwd != nil {
		u.Pwd = *upd.Pwd
	}
	return clone(u), nil
}

// UpdateAccount changes the account identifier.
func (s *Users) UpdateAccount(_ context.Context, id primitive.ObjectID, account string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return nil, errBadID
	}
	if !model.ValidAccount(account) {
		return nil, apperr.InvalidCredentials("The account must match example@service.ext")
	}
	if taken := s.byAccount(account); taken != nil && taken.ID != id {
		return nil, apperr.Duplicate("User already exists", "This account belongs to an existing user")
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	u.Account = account
	return clone(u), nil
}

// UpdatePassword replaces the stored password hash.
func (s *Users) UpdatePassword(_ context.Context, account, pwdHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byAccount(account)
	if u == nil {
		return errNotFound
	}
	u.Pwd = pwdHash
	return nil
}

// Delete removes the account record.
func (s *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return errBadID
	}
	if _, ok := s.users[id]; !ok {
		return errNotFound
	}
	delete(s.users, id)
	return nil
}

// PushRefreshToken appends tok, evicting the oldest entry when the list is at
// capacity. Eviction and push happen under one lock, so the bound holds under
// concurrent pushes.
func (s *Users) PushRefreshToken(_ context.Context, id primitive.ObjectID, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return errBadID
	}
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	if len(u.RefreshToken) >= store.MaxRefreshTokens {
		u.RefreshToken = append([]string(nil), u.RefreshToken[len(u.RefreshToken)-store.MaxRefreshTokens+1:]...)
	}
	u.RefreshToken = append(u.RefreshToken, tok)
	return nil
}

// RemoveRefreshToken removes the exact token string.
func (s *Users) RemoveRefreshToken(_ context.Context, id primitive.ObjectID, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return errBadID
	}
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	kept := u.RefreshToken[:0]
	for _, t := range u.RefreshToken {
		if t != tok {
			kept = append(kept, t)
		}
	}
	u.RefreshToken = kept
	return nil
}

// RefreshTokenExists reports exact-string membership.
func (s *Users) RefreshTokenExists(_ context.Context, id primitive.ObjectID, tok string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return false, errBadID
	}
	u, ok := s.users[id]
	if !ok {
		return false, errNotFound
	}
	for _, t := range u.RefreshToken {
		if t == tok {
			return true, nil
		}
	}
	return false, nil
}

var _ store.UserStore = (*Users)(nil)
