package eventstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dvloznov/commercepulse/internal/events"
)

// EventIDField is the idempotency key of every stored event.
const EventIDField = "event_id"

// ErrMissingEventID is returned when an event without an event_id is upserted.
var ErrMissingEventID = errors.New("event has no event_id")

// MongoStore is the MongoDB implementation of Store.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect opens a client to uri and binds the store to database.collection.
func Connect(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("eventstore: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("eventstore: ping: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndexes implements Store.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: EventIDField, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: %w", err)
	}
	return nil
}

// UpsertEvents implements Store.
func (s *MongoStore) UpsertEvents(ctx context.Context, evts []events.RawEvent) (UpsertResult, error) {
	models, err := upsertModels(evts)
	if err != nil {
		return UpsertResult{}, err
	}
	if len(models) == 0 {
		return UpsertResult{}, nil
	}

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("UpsertEvents: bulk write: %w", err)
	}
	return UpsertResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}, nil
}

func upsertModels(evts []events.RawEvent) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(evts))
	for i, e := range evts {
		id, ok := e.Lookup(events.Top(EventIDField))
		if !ok {
			return nil, fmt.Errorf("UpsertEvents: event %d: %w", i, ErrMissingEventID)
		}
		doc := bson.M{}
		for k, v := range e {
			if k == "_id" {
				continue
			}
			doc[k] = v
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{EventIDField: id}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}
	return models, nil
}

// ScanAll implements Store.
func (s *MongoStore) ScanAll(ctx context.Context) ([]events.RawEvent, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("ScanAll: find: %w", err)
	}
	defer cursor.Close(ctx)

	out := []events.RawEvent{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("ScanAll: decoding document: %w", err)
		}
		out = append(out, Normalize(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("ScanAll: cursor: %w", err)
	}
	return out, nil
}

// Count implements Store.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

var _ Store = (*MongoStore)(nil)
