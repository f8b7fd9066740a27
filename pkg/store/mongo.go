package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// MongoConfig configures NewMongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds the initial connect and ping. Zero means 10s.
	Timeout time.Duration
}

// MongoStore keeps sets in a MongoDB collection, one document per set with
// the set ID as _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongoStore connects to MongoDB and pings the primary.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "mixorder"
	}
	if cfg.Collection == "" {
		cfg.Collection = "sets"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, set *SavedSet) error {
	if err := prepare(set, s.now()); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": set.ID}, set, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save set %s: %w", set.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*SavedSet, error) {
	if err := errors.ValidateSetID(id); err != nil {
		return nil, err
	}
	var set SavedSet
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&set)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get set %s: %w", id, err)
	}
	return &set, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Summary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer cur.Close(ctx)

	var sets []SavedSet
	if err := cur.All(ctx, &sets); err != nil {
		return nil, fmt.Errorf("decode sets: %w", err)
	}
	out := make([]Summary, len(sets))
	for i := range sets {
		out[i] = sets[i].Summary()
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateSetID(id); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete set %s: %w", id, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
