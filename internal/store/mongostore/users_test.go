package mongostore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/scorekeep/scorekeep/internal/apperr"
	"github.com/scorekeep/scorekeep/internal/model"
)

// The adapter is exercised against the driver's mock deployment: responses
// are queued per command, and the started-command events expose exactly what
// was sent over the wire.

func mockTest(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func userDoc(id primitive.ObjectID, account string, tokens ...string) bson.D {
	toks := bson.A{}
	for _, tok := range tokens {
		toks = append(toks, tok)
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "fullName", Value: "Test User"},
		{Key: "account", Value: account},
		{Key: "pwd", Value: "bcrypt-hash"},
		{Key: "role", Value: bson.A{"developer"}},
		{Key: "refreshToken", Value: toks},
	}
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

func TestFindByAccount(t *testing.T) {
	mt := mockTest(t)

	mt.Run("found", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			userDoc(id, "test@x.com", "tok-1")))

		u, err := s.FindByAccount(context.Background(), "test@x.com")
		require.NoError(mt, err)
		assert.Equal(mt, id, u.ID)
		assert.Equal(mt, "test@x.com", u.Account)
		assert.Equal(mt, "bcrypt-hash", u.Pwd)
		assert.Equal(mt, []string{"tok-1"}, u.RefreshToken)
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := s.FindByAccount(context.Background(), "absent@x.com")
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})

	mt.Run("command failure stays non-leaking", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11601, Name: "Interrupted", Message: "operation was interrupted",
		}))

		_, err := s.FindByAccount(context.Background(), "test@x.com")
		assert.Equal(mt, 500, statusOf(mt.T, err))
		assert.NotContains(mt, err.Error(), "Interrupted")
	})
}

func TestExists(t *testing.T) {
	mt := mockTest(t)

	mt.Run("present", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(1)}}))

		require.NoError(mt, s.Exists(context.Background(), "test@x.com"))
	})

	mt.Run("absent", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		err := s.Exists(context.Background(), "absent@x.com")
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestCreate(t *testing.T) {
	mt := mockTest(t)

	mt.Run("inserts and reloads", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch), // existence pre-check
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userDoc(id, "test@x.com")),
		)

		created, err := s.Create(context.Background(), &model.User{
			FullName: "Test User",
			Account:  "test@x.com",
			Pwd:      "bcrypt-hash",
			Role:     []string{"developer"},
		})
		require.NoError(mt, err)
		assert.Equal(mt, "test@x.com", created.Account)
		assert.Equal(mt, id, created.ID)
	})

	mt.Run("pre-check duplicate", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(1)}}))

		_, err := s.Create(context.Background(), &model.User{
			FullName: "Test User", Account: "test@x.com", Pwd: "bcrypt-hash",
		})
		assert.Equal(mt, 409, statusOf(mt.T, err))
	})

	mt.Run("index race duplicate", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		// The pre-check misses a concurrent insert; the unique index holds.
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index: 0, Code: 11000, Message: "E11000 duplicate key error",
			}),
		)

		_, err := s.Create(context.Background(), &model.User{
			FullName: "Test User", Account: "test@x.com", Pwd: "bcrypt-hash",
		})
		assert.Equal(mt, 409, statusOf(mt.T, err))
	})

	mt.Run("rejects preset fields", func(mt *mtest.T) {
		s := NewUsers(mt.DB)

		_, err := s.Create(context.Background(), &model.User{ID: primitive.NewObjectID()})
		assert.Equal(mt, 400, statusOf(mt.T, err))

		_, err = s.Create(context.Background(), &model.User{RefreshToken: []string{"tok"}})
		assert.Equal(mt, 400, statusOf(mt.T, err))
	})
}

func TestUpdateProfile(t *testing.T) {
	mt := mockTest(t)

	mt.Run("returns post-update document", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: userDoc(id, "test@x.com")},
		))

		fullName := "Renamed User"
		updated, err := s.UpdateProfile(context.Background(), id, model.ProfileUpdate{FullName: &fullName})
		require.NoError(mt, err)
		assert.Equal(mt, "test@x.com", updated.Account)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		assert.Contains(mt, evt.Command.String(), "Renamed User")
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		fullName := "Renamed User"
		_, err := s.UpdateProfile(context.Background(), primitive.NewObjectID(),
			model.ProfileUpdate{FullName: &fullName})
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestUpdateAccount(t *testing.T) {
	mt := mockTest(t)

	mt.Run("taken account", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(1)}}))

		_, err := s.UpdateAccount(context.Background(), primitive.NewObjectID(), "taken@x.com")
		assert.Equal(mt, 409, statusOf(mt.T, err))
	})

	mt.Run("renames", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: userDoc(id, "new@x.com")}),
		)

		updated, err := s.UpdateAccount(context.Background(), id, "new@x.com")
		require.NoError(mt, err)
		assert.Equal(mt, "new@x.com", updated.Account)
	})
}

func TestUpdatePassword(t *testing.T) {
	mt := mockTest(t)

	mt.Run("updates by account", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, s.UpdatePassword(context.Background(), "test@x.com", "new-hash"))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		assert.Contains(mt, evt.Command.String(), "new-hash")
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := s.UpdatePassword(context.Background(), "absent@x.com", "new-hash")
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestDelete(t *testing.T) {
	mt := mockTest(t)

	mt.Run("removes", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, s.Delete(context.Background(), primitive.NewObjectID()))
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := s.Delete(context.Background(), primitive.NewObjectID())
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestPushRefreshTokenUnderCapacity(t *testing.T) {
	mt := mockTest(t)

	mt.Run("appends without trimming", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "refreshToken", Value: bson.A{"tok-1"}}}),
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 1},
			),
		)

		require.NoError(mt, s.PushRefreshToken(context.Background(), id, "tok-2"))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 2)
		assert.Equal(mt, "find", events[0].CommandName)
		assert.Equal(mt, "update", events[1].CommandName)
		assert.Contains(mt, events[1].Command.String(), "$push")
		assert.Contains(mt, events[1].Command.String(), "tok-2")
	})
}

func TestPushRefreshTokenEvictsAtCapacity(t *testing.T) {
	mt := mockTest(t)

	mt.Run("trims oldest then pushes", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "refreshToken", Value: bson.A{"tok-1", "tok-2", "tok-3"}}}),
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 1},
			),
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 1},
			),
		)

		require.NoError(mt, s.PushRefreshToken(context.Background(), id, "tok-4"))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 3)
		assert.Equal(mt, "find", events[0].CommandName)
		assert.Equal(mt, "update", events[1].CommandName)
		assert.Equal(mt, "update", events[2].CommandName)

		// The trim replaces the list with everything but the oldest entry.
		trim := events[1].Command.String()
		assert.Contains(mt, trim, "$set")
		assert.NotContains(mt, trim, "tok-1")
		assert.True(mt, strings.Contains(trim, "tok-2") && strings.Contains(trim, "tok-3"))

		push := events[2].Command.String()
		assert.Contains(mt, push, "$push")
		assert.Contains(mt, push, "tok-4")
	})
}

func TestPushRefreshTokenMissingUser(t *testing.T) {
	mt := mockTest(t)

	mt.Run("missing user", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		err := s.PushRefreshToken(context.Background(), primitive.NewObjectID(), "tok-1")
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestRemoveRefreshToken(t *testing.T) {
	mt := mockTest(t)

	mt.Run("pulls the exact string", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, s.RemoveRefreshToken(context.Background(), primitive.NewObjectID(), "tok-1"))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		assert.Contains(mt, evt.Command.String(), "$pull")
		assert.Contains(mt, evt.Command.String(), "tok-1")
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := s.RemoveRefreshToken(context.Background(), primitive.NewObjectID(), "tok-1")
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestRefreshTokenExists(t *testing.T) {
	mt := mockTest(t)

	mt.Run("member", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "refreshToken", Value: bson.A{"tok-1", "tok-2"}}}))

		ok, err := s.RefreshTokenExists(context.Background(), primitive.NewObjectID(), "tok-2")
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("membership is exact-string", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "refreshToken", Value: bson.A{"tok-1"}}}))

		ok, err := s.RefreshTokenExists(context.Background(), primitive.NewObjectID(), "tok-1x")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := s.RefreshTokenExists(context.Background(), primitive.NewObjectID(), "tok-1")
		assert.Equal(mt, 404, statusOf(mt.T, err))
	})
}

func TestZeroIDRejected(t *testing.T) {
	mt := mockTest(t)

	mt.Run("no command is sent", func(mt *mtest.T) {
		s := NewUsers(mt.DB)
		ctx := context.Background()

		_, err := s.UpdateProfile(ctx, primitive.NilObjectID, model.ProfileUpdate{})
		assert.Equal(mt, 400, statusOf(mt.T, err))

		assert.Equal(mt, 400, statusOf(mt.T, s.PushRefreshToken(ctx, primitive.NilObjectID, "tok")))
		assert.Equal(mt, 400, statusOf(mt.T, s.RemoveRefreshToken(ctx, primitive.NilObjectID, "tok")))
		assert.Equal(mt, 400, statusOf(mt.T, s.Delete(ctx, primitive.NilObjectID)))

		_, err = s.RefreshTokenExists(ctx, primitive.NilObjectID, "tok")
		assert.Equal(mt, 400, statusOf(mt.T, err))

		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}
