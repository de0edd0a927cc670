package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
)

const (
	UserCollectionName    = "users"
	SessionCollectionName = "sessions"
)

type UserMongo struct {
	coll *mongo.Collection
}

func NewUserMongo(db *mongo.Database) *UserMongo {
	return &UserMongo{coll: db.Collection(UserCollectionName)}
}

// EnsureIndexes creates the unique email index
func (m *UserMongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (m *UserMongo) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if _, err := m.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (m *UserMongo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *UserMongo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (m *UserMongo) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return m.updateOne(ctx, id, bson.M{"preferences": prefs, "updated_at": time.Now().UTC()})
}

func (m *UserMongo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.updateOne(ctx, id, bson.M{"last_login": at})
}

func (m *UserMongo) Ping(ctx context.Context) error {
	return m.coll.Database().Client().Ping(ctx, nil)
}

func (m *UserMongo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.coll.FindOne(ctx, filter).Decode(&user)
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("user: %w", repositories.ErrNotFound)
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
}

func (m *UserMongo) updateOne(ctx context.Context, id string, set bson.M) error {
	result, err := m.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
