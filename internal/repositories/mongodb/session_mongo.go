package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
)

type SessionMongo struct {
	coll *mongo.Collection
}

func NewSessionMongo(db *mongo.Database) *SessionMongo {
	return &SessionMongo{coll: db.Collection(SessionCollectionName)}
}

// EnsureIndexes lets mongo expire sessions at expires_at
func (m *SessionMongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (m *SessionMongo) Create(ctx context.Context, session *models.AuthSession) error {
	if _, err := m.coll.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (m *SessionMongo) GetByID(ctx context.Context, id string) (*models.AuthSession, error) {
	var session models.AuthSession
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	switch {
	case err == nil:
		return &session, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
	default:
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
}

func (m *SessionMongo) Delete(ctx context.Context, id string) error {
	result, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
	}
	return nil
}
