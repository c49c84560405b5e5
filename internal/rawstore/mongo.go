// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package rawstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// MongoStore keeps the raw log in a MongoDB collection. Event and ingestion
// times are stored as BSON dates so that range filters use the index.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects, verifies the connection and ensures the
// (robot_id, ts) index exists.
func NewMongoStore(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("rawstore: connect mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("rawstore: ping mongo: %w", err)
	}

	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "robot_id", Value: 1}, {Key: "ts", Value: -1}},
		Options: options.Index().SetName("robot_id_ts"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("rawstore: create index: %w", err)
	}

	logging.Info().Str("database", cfg.Database).Str("collection", cfg.Collection).Msg("MongoDB raw store connected")
	return s, nil
}

// InsertRaw appends a record.
func (s *MongoStore) InsertRaw(ctx context.Context, rec telemetry.Record) error {
	rec.BinStatus = nonNilBin(rec.BinStatus)
	rec.EventTime = rec.EventTime.UTC()
	rec.IngestedAt = rec.IngestedAt.UTC()
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert raw telemetry: %w", err)
	}
	return nil
}

// LatestPerRobot implements Store with a $match/$sort/$group pipeline.
func (s *MongoStore) LatestPerRobot(ctx context.Context, from, to time.Time) ([]telemetry.LatestStatus, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "ts", Value: bson.D{
			{Key: "$gte", Value: from.UTC()},
			{Key: "$lte", Value: to.UTC()},
		}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "ts", Value: -1}, {Key: "ingested_at", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$robot_id"},
			{Key: "battery", Value: bson.D{{Key: "$first", Value: "$battery"}}},
			{Key: "bin_status", Value: bson.D{{Key: "$first", Value: "$bin_status"}}},
			{Key: "ts", Value: bson.D{{Key: "$first", Value: "$ts"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "robot_id", Value: "$_id"},
			{Key: "battery", Value: 1},
			{Key: "bin_status", Value: 1},
			{Key: "ts", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "robot_id", Value: 1}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate latest per robot: %w", err)
	}

	out := []telemetry.LatestStatus{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode latest per robot: %w", err)
	}
	for i := range out {
		out[i].BinStatus = nonNilBin(out[i].BinStatus)
		out[i].EventTime = out[i].EventTime.UTC()
	}
	return out, nil
}

// Recent implements Store.
func (s *MongoStore) Recent(ctx context.Context, limit int) ([]telemetry.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "ingested_at", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))

	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find recent telemetry: %w", err)
	}

	out := []telemetry.Record{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode recent telemetry: %w", err)
	}
	for i := range out {
		out[i].BinStatus = nonNilBin(out[i].BinStatus)
		out[i].EventTime = out[i].EventTime.UTC()
		out[i].IngestedAt = out[i].IngestedAt.UTC()
	}
	return out, nil
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
