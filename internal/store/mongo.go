package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps users and bookmarks in two MongoDB collections.
type MongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	bookmarks *mongo.Collection
}

// OpenMongo connects, pings and ensures indexes. database defaults to
// "bookmarkd".
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo store requires a connection URI")
	}
	if database == "" {
		database = "bookmarkd"
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}
	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		users:     db.Collection("users"),
		bookmarks: db.Collection("bookmarks"),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user email index: %w", err)
	}
	_, err = s.bookmarks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "order", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create bookmark index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *MongoStore) ListBookmarks(ctx context.Context, userID string) ([]Bookmark, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := s.bookmarks.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookmarks: %w", err)
	}
	out := []Bookmark{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	for i := range out {
		if out[i].Tags == nil {
			out[i].Tags = []string{}
		}
	}
	return out, nil
}

func (s *MongoStore) LoadBookmark(ctx context.Context, userID, id string) (Bookmark, error) {
	var b Bookmark
	err := s.bookmarks.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, fmt.Errorf("find bookmark: %w", err)
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return b, nil
}

func (s *MongoStore) SaveBookmark(ctx context.Context, b Bookmark) error {
	if b.Tags == nil {
		b.Tags = []string{}
	}
	_, err := s.bookmarks.ReplaceOne(ctx, bson.M{"_id": b.ID}, b, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save bookmark: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteBookmark(ctx context.Context, userID, id string) error {
	res, err := s.bookmarks.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetOrder(ctx context.Context, userID string, ids []string) error {
	n, err := s.bookmarks.CountDocuments(ctx, bson.M{"user_id": userID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("count bookmarks: %w", err)
	}
	if int(n) != len(uniqueStrings(ids)) {
		return ErrNotFound
	}
	models := make([]mongo.WriteModel, 0, len(ids))
	for idx, id := range ids {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id, "user_id": userID}).
			SetUpdate(bson.M{"$set": bson.M{"order": idx}}))
	}
	if len(models) == 0 {
		return nil
	}
	if _, err := s.bookmarks.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("reorder bookmarks: %w", err)
	}
	return nil
}

func (s *MongoStore) CountBookmarks(ctx context.Context, userID string) (int, error) {
	n, err := s.bookmarks.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count bookmarks: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
