package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase and DefaultCollection are used when the options leave
// them empty.
const (
	DefaultMongoDatabase = "ubigeo"
	DefaultCollection    = "ubigeo_kv"
)

// mongoDoc is one stored key.
type mongoDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps each key as a document in one collection, keyed by _id.
type MongoStore struct {
	coll  *mongo.Collection
	owned *mongo.Client
	clock func() time.Time
}

// NewMongoStore wraps an existing collection. The client's lifecycle stays
// with the caller.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, clock: time.Now}
}

// OpenMongo connects to a mongodb:// URI and verifies the connection against
// the primary. Empty database or collection names fall back to the defaults.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	s := NewMongoStore(client.Database(database).Collection(collection))
	s.owned = client
	return s, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.wrap("get", key, err)
	}
	return clone(doc.Value), nil
}

func (s *MongoStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	doc := mongoDoc{Key: key, Value: clone(value), UpdatedAt: s.clock().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return s.wrap("put", key, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return s.wrap("delete", key, err)
	}
	return nil
}

// Close disconnects the client only when OpenMongo created it.
func (s *MongoStore) Close() error {
	if s.owned == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.owned.Disconnect(ctx)
}

func (s *MongoStore) wrap(op, key string, err error) error {
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s %s: %w", op, key, ErrClosed)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
