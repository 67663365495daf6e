// Package model holds the persisted account shapes and their token-visible
// projections.
package model

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/scorekeep/scorekeep/internal/token"
)

var accountPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidAccount reports whether account matches example@service.ext.
func ValidAccount(account string) bool {
	return accountPattern.MatchString(account)
}

// GroupRef is the slim group/invitation reference embedded in a user
// document. Group business logic lives outside this backend's core; the
// references ride along so the identity projection stays complete.
type GroupRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Color string             `bson:"color,omitempty" json:"color,omitempty"`
}

// User is the account document. RefreshToken holds the currently valid
// encrypted refresh-token strings, newest last, capacity 3.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	FullName     string             `bson:"fullName" json:"fullName"`
	Account      string             `bson:"account" json:"account"`
	Pwd          string             `bson:"pwd" json:"-"`
	Role         []string           `bson:"role" json:"role"`
	NickName     string             `bson:"nickName,omitempty" json:"nickName,omitempty"`
	RefreshToken []string           `bson:"refreshToken,omitempty" json:"-"`
	Group        []GroupRef         `bson:"group,omitempty" json:"group,omitempty"`
	Invitation   []GroupRef         `bson:"invitation,omitempty" json:"invitation,omitempty"`
}

// SessionClaims returns the identity claims for this account, stamped for the
// given purpose and expiry. Password hash and refresh-token list never enter
// a token.
func (u *User) SessionClaims(purpose string, ttl time.Duration) *token.SessionClaims {
	return token.NewSessionClaims(purpose, u.ID.Hex(), u.FullName, u.Account, u.NickName, u.Role, ttl)
}

// ProfileUpdate is a partial profile mutation. Nil fields are untouched.
// Account, id and refresh tokens are deliberately absent; they change only
// through their dedicated flows.
type ProfileUpdate struct {
	FullName *string
	NickName *string
	Pwd      *string // already hashed
}

// Empty reports whether the update would touch nothing.
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.NickName == nil && p.Pwd == nil
}
