// Package mongostore keeps User documents in a MongoDB collection. Field names
// follow the layout of the existing userDB.users collection, so data written by
// earlier deployments stays readable.
package mongostore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/secretwall/internal/domain"
)

const (
	usersCollection = "users"
	connectTimeout  = 10 * time.Second
)

// userDocument is the BSON shape of a user
type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  *string            `bson:"username,omitempty"`
	Email     *string            `bson:"email,omitempty"`
	Hash      string             `bson:"hash,omitempty"`
	Salt      string             `bson:"salt,omitempty"`
	GoogleID  *string            `bson:"googleId,omitempty"`
	Picture   string             `bson:"picture,omitempty"`
	Secrets   []string           `bson:"secret"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	secrets := d.Secrets
	if secrets == nil {
		secrets = []string{}
	}
	return &domain.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Hash,
		Salt:         d.Salt,
		GoogleID:     d.GoogleID,
		Picture:      d.Picture,
		Secrets:      secrets,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Store implements domain.UserStore on MongoDB
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	logger *slog.Logger
}

var _ domain.UserStore = (*Store)(nil)

// Open connects to uri, selects database and ensures the unique indexes exist
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, domain.WrapNetworkOperation("connect mongodb", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, domain.WrapNetworkOperation("ping mongodb", err)
	}

	s := newStore(client.Database(database).Collection(usersCollection), logger)
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("mongodb ready", "database", database, "collection", usersCollection)
	return s, nil
}

func newStore(users *mongo.Collection, logger *slog.Logger) *Store {
	return &Store{
		client: users.Database().Client(),
		users:  users,
		logger: logger,
	}
}

// ensureIndexes creates unique indexes on username and googleId. Both are
// partial so documents without the field do not collide.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique").
				SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("googleId_unique").
				SetPartialFilterExpression(bson.M{"googleId": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return domain.WrapDatabaseOperation("create indexes", err)
	}
	return nil
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateLocal inserts a user with a username and password credential
func (s *Store) CreateLocal(ctx context.Context, username string, cred domain.Credential) (*domain.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		Username:  &username,
		Hash:      cred.Hash,
		Salt:      cred.Salt,
		Secrets:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.WrapUserAlreadyExists(username, err)
		}
		return nil, domain.WrapDatabaseOperation("create user", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

// FindOrCreateByGoogleID upserts on googleId. Two racing upserts can both
// miss and one then fails on the unique index; that one is retried once and
// finds the winner's document.
func (s *Store) FindOrCreateByGoogleID(ctx context.Context, profile domain.GoogleProfile) (*domain.User, bool, error) {
	created, err := s.upsertGoogleUser(ctx, profile)
	if mongo.IsDuplicateKeyError(err) {
		created, err = s.upsertGoogleUser(ctx, profile)
	}
	if err != nil {
		return nil, false, domain.WrapDatabaseOperation("find or create google user", err)
	}

	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"googleId": profile.ID}).Decode(&doc); err != nil {
		return nil, false, domain.WrapDatabaseOperation("load google user", err)
	}
	return doc.toDomain(), created, nil
}

func (s *Store) upsertGoogleUser(ctx context.Context, profile domain.GoogleProfile) (bool, error) {
	now := time.Now().UTC()
	onInsert := bson.M{
		"secret":    bson.A{},
		"picture":   profile.Picture,
		"createdAt": now,
		"updatedAt": now,
	}
	if profile.Email != "" {
		onInsert["email"] = profile.Email
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"googleId": profile.ID},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// GetByID retrieves a user by its hex ObjectID
func (s *Store) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.WrapUserNotFound(id, err)
	}
	return s.findOne(ctx, bson.M{"_id": oid}, id)
}

// GetByUsername retrieves a user by username
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username}, username)
}

func (s *Store) findOne(ctx context.Context, filter bson.M, key string) (*domain.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.WrapUserNotFound(key, err)
		}
		return nil, domain.WrapDatabaseOperation("get user", err)
	}
	return doc.toDomain(), nil
}

// ListWithSecrets returns users whose secret array has at least one element
func (s *Store) ListWithSecrets(ctx context.Context) ([]*domain.User, error) {
	cur, err := s.users.Find(ctx,
		bson.M{"secret.0": bson.M{"$exists": true}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("list users with secrets", err)
	}
	defer cur.Close(ctx)

	var users []*domain.User
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, domain.WrapDatabaseOperation("decode user", err)
		}
		users = append(users, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, domain.WrapDatabaseOperation("list users with secrets", err)
	}
	return users, nil
}

// AppendSecret pushes secret onto the user's list
func (s *Store) AppendSecret(ctx context.Context, id, secret string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.WrapUserNotFound(id, err)
	}
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"secret": secret}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return domain.WrapDatabaseOperation("append secret", err)
	}
	if res.MatchedCount == 0 {
		return domain.WrapUserNotFound(id, nil)
	}
	return nil
}

// RemoveSecret removes the first exact occurrence of secret. $pull would drop
// every duplicate, so the list is rewritten instead; concurrent writers race
// and the last write wins.
func (s *Store) RemoveSecret(ctx context.Context, id, secret string) (bool, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	remaining, removed := domain.RemoveFirst(u.Secrets, secret)
	if !removed {
		return false, nil
	}

	oid, _ := primitive.ObjectIDFromHex(id)
	if _, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"secret": remaining, "updatedAt": time.Now().UTC()}},
	); err != nil {
		return false, domain.WrapDatabaseOperation("remove secret", err)
	}
	return true, nil
}
