// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// MongoDBOptions configures the MongoDB sink.
type MongoDBOptions struct {
	URI        string `yaml:"uri" json:"uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

// MongoDBSink stores records as BSON documents. Core details go in as an
// ordered bson.D so the page order of labels survives storage. A unique
// index on source_url reports duplicates via the driver's duplicate-key
// detection.
type MongoDBSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBSink connects to MongoDB and ensures the unique index exists.
func NewMongoDBSink(ctx context.Context, opts MongoDBOptions) (*MongoDBSink, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("MongoDB URI is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if opts.Collection == "" {
		opts.Collection = "tenders"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(opts.Database).Collection(opts.Collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "source_url", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(connectCtx, indexModel); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create source_url index: %w", err)
	}

	return &MongoDBSink{client: client, collection: collection}, nil
}

// Store inserts one record.
func (s *MongoDBSink) Store(ctx context.Context, record *scraper.TenderRecord) error {
	core := bson.D{}
	for _, key := range record.CoreDetails.Keys() {
		value, _ := record.CoreDetails.Get(key)
		core = append(core, bson.E{Key: key, Value: value})
	}

	paragraphs := record.Paragraphs
	if paragraphs == nil {
		paragraphs = []string{}
	}
	tables := make([]bson.M, 0, len(record.Tables))
	for _, t := range record.Tables {
		tables = append(tables, bson.M{"headers": t.Headers, "rows": t.Rows})
	}

	document := bson.D{
		{Key: "title", Value: record.Title},
		{Key: "source_url", Value: record.SourceURL},
		{Key: "core_details", Value: core},
		{Key: "other_data", Value: bson.D{
			{Key: "paragraphs", Value: paragraphs},
			{Key: "tables", Value: tables},
		}},
		{Key: "scraped_at", Value: time.Now().UTC()},
	}

	if _, err := s.collection.InsertOne(ctx, document); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return scraper.ErrDuplicateRecord
		}
		return &PersistenceError{Backend: "mongodb", Err: err}
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoDBSink) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}
