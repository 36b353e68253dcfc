package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		s := NewStore(mt.Coll)
		require.NoError(mt, s.SaveMessage(context.Background(), "s1", "user", "hello", "p1"))
	})

	mt.Run("save failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate"}))
		s := NewStore(mt.Coll)
		assert.Error(mt, s.SaveMessage(context.Background(), "s1", "user", "hello", "p1"))
	})

	mt.Run("load history", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{{Key: "session_id", Value: "s1"}, {Key: "patient_id", Value: "p1"}, {Key: "role", Value: "system"}, {Key: "content", Value: "preamble"}, {Key: "created_at", Value: created}},
			bson.D{{Key: "session_id", Value: "s1"}, {Key: "patient_id", Value: "p1"}, {Key: "role", Value: "user"}, {Key: "content", Value: "hello"}, {Key: "created_at", Value: created}},
		)
		end := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, end)

		got, err := NewStore(mt.Coll).LoadHistory(context.Background(), "s1")
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "preamble", got[0].Content)
		assert.Equal(mt, "hello", got[1].Content)
		assert.Equal(mt, "p1", got[1].PatientID)
		assert.True(mt, created.Equal(got[0].CreatedAt))
	})
}
