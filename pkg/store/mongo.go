package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vormap/vormap/pkg/snapshot"
)

const (
	defaultDatabase   = "vormap"
	defaultCollection = "hierarchies"
	connectTimeout    = 10 * time.Second
)

// MongoStore persists hierarchy artifacts in a MongoDB collection, one
// document per snapshot keyed by snapshot id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// mongoDoc is the stored document shape. The artifact is embedded whole;
// hierarchies compress well and stay far below the document size limit for
// realistic snapshots.
type mongoDoc struct {
	SnapshotID string              `bson:"_id"`
	Descriptor snapshot.Descriptor `bson:"descriptor"`
	StoredAt   time.Time           `bson:"stored_at"`
	Artifact   snapshot.Hierarchy  `bson:"artifact"`
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Put stores an artifact, replacing any existing document for the same
// snapshot id.
func (s *MongoStore) Put(ctx context.Context, h *snapshot.Hierarchy) error {
	doc := mongoDoc{
		SnapshotID: h.Snapshot.ID,
		Descriptor: h.Snapshot,
		StoredAt:   time.Now().UTC(),
		Artifact:   *h,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.SnapshotID}, doc, opts)
	return err
}

// Get loads the artifact for a snapshot.
func (s *MongoStore) Get(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": snapshotID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Artifact, nil
}

// List returns descriptors for all stored snapshots, newest first.
func (s *MongoStore) List(ctx context.Context) ([]snapshot.Descriptor, error) {
	opts := options.Find().
		SetProjection(bson.M{"descriptor": 1}).
		SetSort(bson.D{{Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []snapshot.Descriptor
	for cursor.Next(ctx) {
		var doc mongoDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.Descriptor)
	}
	return out, cursor.Err()
}

// Delete removes an artifact. Missing snapshots are not an error.
func (s *MongoStore) Delete(ctx context.Context, snapshotID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": snapshotID})
	return err
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
