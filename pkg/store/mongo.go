package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/errors"
)

// MongoStore persists the collection as a single document in MongoDB,
// keyed by collection ID. Suited to shared deployments where several
// clients work against the same collection.
type MongoStore struct {
	client       *mongo.Client
	coll         *mongo.Collection
	collectionID string
}

// MongoConfig configures a MongoDB-backed store.
type MongoConfig struct {
	URI          string // connection string, e.g. mongodb://localhost:27017
	Database     string // database name, defaults to "elicit"
	Collection   string // mongo collection name, defaults to "collections"
	CollectionID string // ID of the rule collection document to load/save
}

// NewMongoStore connects to MongoDB and returns a store bound to one rule
// collection document.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "elicit"
	}
	if cfg.Collection == "" {
		cfg.Collection = "collections"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongodb")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}

	return &MongoStore{
		client:       client,
		coll:         client.Database(cfg.Database).Collection(cfg.Collection),
		collectionID: cfg.CollectionID,
	}, nil
}

// Load reads the bound collection document. When no document exists yet, a
// new empty collection is returned; when the store was configured without
// a collection ID, the most recently modified document is used.
func (s *MongoStore) Load(ctx context.Context) (*collection.Collection, error) {
	filter := bson.M{}
	opts := options.FindOne()
	if s.collectionID != "" {
		filter["collection_id"] = s.collectionID
	} else {
		opts.SetSort(bson.D{{Key: "last_modified_date", Value: -1}})
	}

	var snap collection.Snapshot
	err := s.coll.FindOne(ctx, filter, opts).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return collection.New(""), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load collection document")
	}
	return collection.FromSnapshot(snap), nil
}

// Save upserts the collection document, keyed by collection ID.
func (s *MongoStore) Save(ctx context.Context, c *collection.Collection) error {
	snap := c.Snapshot()
	filter := bson.M{"collection_id": snap.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := s.coll.ReplaceOne(ctx, filter, snap, opts); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save collection document")
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
