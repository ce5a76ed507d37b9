package mongostore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/secretwall/internal/domain"
)

// These run against the driver's mock deployment: each call consumes the
// queued server replies in order, and a call with no reply left fails.

func mockStore(mt *mtest.T) *Store {
	return newStore(mt.Coll, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func duplicateKeyReply() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: userDB.users index: googleId_unique",
	})
}

func userReply(mt *mtest.T, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, docs...)
}

func TestMock_FindOrCreateByGoogleID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	profile := domain.GoogleProfile{ID: "g-42", Picture: "p.png"}

	mt.Run("retries once after duplicate key", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			duplicateKeyReply(),
			// second upsert matches the racing winner's document
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
			userReply(mt, bson.D{
				{Key: "_id", Value: oid},
				{Key: "googleId", Value: "g-42"},
				{Key: "secret", Value: bson.A{}},
			}),
		)

		user, created, err := mockStore(mt).FindOrCreateByGoogleID(ctx, profile)
		require.NoError(mt, err)
		assert.False(mt, created)
		assert.Equal(mt, oid.Hex(), user.ID)
		require.NotNil(mt, user.GoogleID)
		assert.Equal(mt, "g-42", *user.GoogleID)
	})

	mt.Run("creates when upsert inserts", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 0},
				bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: oid}}}},
			),
			userReply(mt, bson.D{
				{Key: "_id", Value: oid},
				{Key: "googleId", Value: "g-42"},
				{Key: "picture", Value: "p.png"},
			}),
		)

		user, created, err := mockStore(mt).FindOrCreateByGoogleID(ctx, profile)
		require.NoError(mt, err)
		assert.True(mt, created)
		assert.Equal(mt, "p.png", user.Picture)
		assert.Empty(mt, user.Secrets)
	})

	mt.Run("gives up after second duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKeyReply(), duplicateKeyReply())

		_, _, err := mockStore(mt).FindOrCreateByGoogleID(ctx, profile)
		require.Error(mt, err)
		assert.True(mt, domain.IsInfrastructureError(err))
	})
}

func TestMock_NotFoundMapping(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("unknown username", func(mt *mtest.T) {
		mt.AddMockResponses(userReply(mt))

		_, err := mockStore(mt).GetByUsername(ctx, "nobody")
		assert.True(mt, domain.IsNotFoundError(err))
	})

	mt.Run("invalid id needs no round trip", func(mt *mtest.T) {
		_, err := mockStore(mt).GetByID(ctx, "not-an-object-id")
		assert.True(mt, domain.IsNotFoundError(err))
	})

	mt.Run("append to missing user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := mockStore(mt).AppendSecret(ctx, primitive.NewObjectID().Hex(), "s")
		assert.True(mt, domain.IsNotFoundError(err))
	})

	mt.Run("server error is not a not-found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "boom",
		}))

		_, err := mockStore(mt).GetByUsername(ctx, "alice")
		assert.False(mt, domain.IsNotFoundError(err))
		assert.True(mt, domain.IsInfrastructureError(err))
	})
}

func TestMock_CreateLocalDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate username is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKeyReply())

		_, err := mockStore(mt).CreateLocal(context.Background(), "alice", testCred)
		assert.True(mt, domain.IsConflictError(err))
	})
}

func TestMock_RemoveSecret(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	oid := primitive.NewObjectID()
	doc := bson.D{
		{Key: "_id", Value: oid},
		{Key: "username", Value: "alice"},
		{Key: "secret", Value: bson.A{"a", "b", "a"}},
	}

	mt.Run("present secret is rewritten", func(mt *mtest.T) {
		mt.AddMockResponses(userReply(mt, doc), mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		removed, err := mockStore(mt).RemoveSecret(ctx, oid.Hex(), "a")
		require.NoError(mt, err)
		assert.True(mt, removed)
	})

	mt.Run("absent secret writes nothing", func(mt *mtest.T) {
		// only the read is queued; an update would find no reply and fail
		mt.AddMockResponses(userReply(mt, doc))

		removed, err := mockStore(mt).RemoveSecret(ctx, oid.Hex(), "z")
		require.NoError(mt, err)
		assert.False(mt, removed)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		mt.AddMockResponses(userReply(mt))

		_, err := mockStore(mt).RemoveSecret(ctx, oid.Hex(), "a")
		assert.True(mt, domain.IsNotFoundError(err))
	})
}

func TestMock_ListWithSecrets(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes each document", func(mt *mtest.T) {
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		mt.AddMockResponses(userReply(mt,
			bson.D{{Key: "_id", Value: first}, {Key: "username", Value: "alice"}, {Key: "secret", Value: bson.A{"s1"}}, {Key: "createdAt", Value: created}},
			bson.D{{Key: "_id", Value: second}, {Key: "googleId", Value: "g-1"}, {Key: "secret", Value: bson.A{"s2", "s3"}}},
		))

		mt.ClearEvents()
		users, err := mockStore(mt).ListWithSecrets(context.Background())
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		exists, ok := evt.Command.Lookup("filter", "secret.0", "$exists").BooleanOK()
		assert.True(mt, ok && exists, "expected filter on a non-empty secret array, got %s", evt.Command)

		require.Len(mt, users, 2)
		assert.Equal(mt, first.Hex(), users[0].ID)
		assert.Equal(mt, []string{"s1"}, users[0].Secrets)
		assert.True(mt, created.Equal(users[0].CreatedAt))
		assert.Equal(mt, []string{"s2", "s3"}, users[1].Secrets)
		assert.Nil(mt, users[1].Username)
	})
}
