package repository

import (
	"context"
	"time"

	"scanhub-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ScanTelemetrySink receives a copy of every scan log entry for analytics.
// Writes are best-effort; the primary store stays authoritative.
type ScanTelemetrySink interface {
	RecordScan(ctx context.Context, entry *model.ScanLogEntry) error
	RecordScanBatch(ctx context.Context, entries []*model.ScanLogEntry) error
	RecentScans(ctx context.Context, limit, offset int) ([]model.ScanLogEntry, int64, error)
	Close() error
}

// MongoDBTelemetrySink implements ScanTelemetrySink for MongoDB
type MongoDBTelemetrySink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBTelemetrySink creates a new MongoDB telemetry sink
func NewMongoDBTelemetrySink(uri, dbName, collectionName string) (*MongoDBTelemetrySink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	collection := client.Database(dbName).Collection(collectionName)

	return &MongoDBTelemetrySink{
		client:     client,
		collection: collection,
	}, nil
}

// RecordScan inserts a single scan entry
func (r *MongoDBTelemetrySink) RecordScan(ctx context.Context, entry *model.ScanLogEntry) error {
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// RecordScanBatch inserts multiple scan entries in one call
func (r *MongoDBTelemetrySink) RecordScanBatch(ctx context.Context, entries []*model.ScanLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		if entry.ScannedAt.IsZero() {
			entry.ScannedAt = time.Now().UTC()
		}
		docs = append(docs, entry)
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// RecentScans retrieves scan entries with pagination, newest first
func (r *MongoDBTelemetrySink) RecentScans(ctx context.Context, limit, offset int) ([]model.ScanLogEntry, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "scannedat", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var entries []model.ScanLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}

	// Ensure not nil slice for JSON
	if entries == nil {
		entries = []model.ScanLogEntry{}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	return entries, count, nil
}

// Close closes the MongoDB connection
func (r *MongoDBTelemetrySink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Ensure MongoDBTelemetrySink implements ScanTelemetrySink
var _ ScanTelemetrySink = (*MongoDBTelemetrySink)(nil)
