// Package mongostore implements the credential store contract on MongoDB.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
	"github.com/scorekeep/scorekeep/internal/store"
)

// Users is the MongoDB-backed account store.
type Users struct {
	coll *mongo.Collection
}

// NewUsers wraps the users collection of the given database.
func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection("users")}
}

// EnsureIndexes creates the unique account index. Called once at startup.
func (s *Users) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "account", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

var (
	errNotFound  = apperr.NotFound("User not found", "")
	errBadID     = apperr.InvalidCredentials("The _id is invalid")
	errReadFail  = apperr.Database("Failed to access data", "The user was not retrieved, something went wrong please try again")
	errSaveFail  = apperr.Database("Failed to save", "The session was not saved, something went wrong please try again")
	errWriteFail = apperr.Database("Failed to save", "The user was not updated, something went wrong please try again")
)

// FindByAccount returns the full account document, password hash included.
func (s *Users) FindByAccount(ctx context.Context, account string) (*model.User, error) {
	var u model.User
	err := s.coll.FindOne(ctx, bson.M{"account": account}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperr.Classify(err, errReadFail)
	}
	return &u, nil
}

// Exists reports account existence.
func (s *Users) Exists(ctx context.Context, account string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"account": account}, options.Count().SetLimit(1))
	if err != nil {
		return apperr.Classify(err, errReadFail)
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

// Create inserts a new account document.
func (s *Users) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if !u.ID.IsZero() {
		return nil, apperr.InvalidCredentials("You can not put the _id yourself")
	}
	if len(u.RefreshToken) != 0 {
		return nil, apperr.InvalidCredentials("You can not put the refreshToken yourself")
	}

	if err := s.Exists(ctx, u.Account); err == nil {
		return nil, apperr.Duplicate("User already exists", "This account belongs to an existing user")
	} else if !errors.Is(err, errNotFound) {
		return nil, err
	}

	res, err := s.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return nil, apperr.Duplicate("User already exists", "This account belongs to an existing user")
	}
	if err != nil {
		return nil, apperr.Classify(err, errSaveFail)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errSaveFail
	}
	return s.findByID(ctx, id)
}

// UpdateProfile applies a partial mutation and returns the updated document.
func (s *Users) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd model.ProfileUpdate) (*model.User, error) {
	if id.IsZero() {
		return nil, errBadID
	}
	if upd.Empty() {
		return nil, apperr.MissingData("No data to update or invalid data")
	}

	set := bson.M{}
	if upd.FullName != nil {
		set["fullName"] = *upd.FullName
	}
	if upd.NickName != nil {
		set["nickName"] = *upd.NickName
	}
	if upd.Pwd != nil {
		set["pwd"] = *upd.Pwd
	}

	return s.updateAndReload(ctx, id, bson.M{"$set": set})
}

// UpdateAccount changes the account identifier.
func (s *Users) UpdateAccount(ctx context.Context, id primitive.ObjectID, account string) (*model.User, error) {
	if id.IsZero() {
		return nil, errBadID
	}
	if !model.ValidAccount(account) {
		return nil, apperr.InvalidCredentials("The account must match example@service.ext")
	}

	if err := s.Exists(ctx, account); err == nil {
		return nil, apperr.Duplicate("User already exists", "This account belongs to an existing user")
	} else if !errors.Is(err, errNotFound) {
		return nil, err
	}

	return s.updateAndReload(ctx, id, bson.M{"$set": bson.M{"account": account}})
}

// UpdatePassword replaces the stored password hash.
func (s *Users) UpdatePassword(ctx context.Context, account, pwdHash string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"account": account}, bson.M{"$set": bson.M{"pwd": pwdHash}})
	if err != nil {
		return apperr.Classify(err, errWriteFail)
	}
	if res.MatchedCount == 0 {
		return errNotFound
	}
	return nil
}

// Delete removes the account document.
func (s *Users) Delete(ctx context.Context, id primitive.ObjectID) error {
	if id.IsZero() {
		return errBadID
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Classify(err, apperr.Database("Failed to remove", "The user was not deleted, something went wrong please try again"))
	}
	if res.DeletedCount == 0 {
		return errNotFound
	}
	return nil
}

// PushRefreshToken appends tok, evicting the oldest entry first when the list
// is at capacity.
//
// The length read, the conditional trim and the push are three round trips,
// so two concurrent pushes for one account can both observe a short list and
// temporarily exceed capacity. Contention per account is a single human
// logging in, so the window is accepted; an array-length-conditioned single
// update would close it.
func (s *Users) PushRefreshToken(ctx context.Context, id primitive.ObjectID, tok string) error {
	if id.IsZero() {
		return errBadID
	}

	var current struct {
		RefreshToken []string `bson:"refreshToken"`
	}
	err := s.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"refreshToken": 1, "_id": 0}),
	).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errNotFound
	}
	if err != nil {
		return apperr.Classify(err, errSaveFail)
	}

	if len(current.RefreshToken) >= store.MaxRefreshTokens {
		_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"refreshToken": current.RefreshToken[1:]}})
		if err != nil {
			return apperr.Classify(err, errSaveFail)
		}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$push": bson.M{"refreshToken": tok}})
	if err != nil {
		return apperr.Classify(err, errSaveFail)
	}
	if res.MatchedCount == 0 {
		return errNotFound
	}
	return nil
}

// RemoveRefreshToken removes the exact token string from the list.
func (s *Users) RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, tok string) error {
	if id.IsZero() {
		return errBadID
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"refreshToken": tok}})
	if err != nil {
		return apperr.Classify(err, apperr.Database("Failed to remove", "The session was not removed, something went wrong please try again"))
	}
	if res.MatchedCount == 0 {
		return errNotFound
	}
	return nil
}

// RefreshTokenExists reports exact-string membership in the persisted list.
func (s *Users) RefreshTokenExists(ctx context.Context, id primitive.ObjectID, tok string) (bool, error) {
	if id.IsZero() {
		return false, errBadID
	}

	var current struct {
		RefreshToken []string `bson:"refreshToken"`
	}
	err := s.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"refreshToken": 1, "_id": 0}),
	).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, errNotFound
	}
	if err != nil {
		return false, apperr.Classify(err, errReadFail)
	}

	for _, t := range current.RefreshToken {
		if t == tok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) findByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperr.Classify(err, errReadFail)
	}
	return &u, nil
}

func (s *Users) updateAndReload(ctx context.Context, id primitive.ObjectID, update bson.M) (*model.User, error) {
	var u model.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperr.Classify(err, errWriteFail)
	}
	return &u, nil
}

var _ store.UserStore = (*Users)(nil)
