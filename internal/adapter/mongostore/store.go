// Package mongostore persists chat transcripts in a MongoDB collection.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maternal-care-agent/internal/domain"
)

const Collection = "chat_messages"

type messageDocument struct {
	SessionID string    `bson:"session_id"`
	PatientID string    `bson:"patient_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewStore(coll *mongo.Collection) *Store {
	return &Store{coll: coll, now: time.Now}
}

// Connect dials uri, verifies the connection and returns a store over
// database's chat_messages collection. The caller disconnects the client.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, NewStore(client.Database(database).Collection(Collection)), nil
}

var _ domain.TranscriptRepository = (*Store)(nil)

func (s *Store) SaveMessage(ctx context.Context, sessionID, role, content, patientID string) error {
	_, err := s.coll.InsertOne(ctx, messageDocument{
		SessionID: sessionID,
		PatientID: patientID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.TranscriptEntry
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, domain.TranscriptEntry{
			SessionID: doc.SessionID,
			PatientID: doc.PatientID,
			Role:      doc.Role,
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, cursor.Err()
}
