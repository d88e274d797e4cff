package staging

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estatehub/pipeline-service/internal/model"
)

const collectionName = "raw_captures"

// Store persists raw captures in MongoDB. One document per fetched page.
type Store struct {
	captures *mongo.Collection
}

// NewStore returns a Store backed by the raw_captures collection and
// ensures the indexes the pipeline queries rely on.
func NewStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{captures: db.Collection(collectionName)}

	_, err := s.captures.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "source", Value: 1}, {Key: "stage", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create capture index: %w", err)
	}
	return s, nil
}

// Append stores one fetched payload at stage RAW. The payload is never
// rewritten afterwards.
func (s *Store) Append(ctx context.Context, source model.Source, category, subCategory, payload string) (string, error) {
	capture := RawCapture{
		Source:      source,
		Category:    category,
		SubCategory: subCategory,
		Payload:     payload,
		Stage:       StageRaw,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := s.captures.InsertOne(ctx, capture)
	if err != nil {
		return "", fmt.Errorf("append capture: %w", err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id.Hex(), nil
}

// AllUnparsed returns every capture of the given source still at stage RAW,
// oldest first. Processing order across captures is not significant; each
// capture is independently idempotent once marked parsed.
func (s *Store) AllUnparsed(ctx context.Context, source model.Source) ([]RawCapture, error) {
	cursor, err := s.captures.Find(ctx,
		bson.M{"source": source, "stage": StageRaw},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find unparsed captures: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []struct {
		ID          primitive.ObjectID `bson:"_id"`
		Source      model.Source       `bson:"source"`
		Category    string             `bson:"category"`
		SubCategory string             `bson:"sub_category"`
		Payload     string             `bson:"payload"`
		Stage       Stage              `bson:"stage"`
		CreatedAt   time.Time          `bson:"created_at"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode captures: %w", err)
	}

	captures := make([]RawCapture, 0, len(raw))
	for _, r := range raw {
		captures = append(captures, RawCapture{
			ID:          r.ID.Hex(),
			Source:      r.Source,
			Category:    r.Category,
			SubCategory: r.SubCategory,
			Payload:     r.Payload,
			Stage:       r.Stage,
			CreatedAt:   r.CreatedAt,
		})
	}
	return captures, nil
}

// MarkParsed advances one capture RAW → PARSED. Called only after every
// offer derived from the capture has been durably upserted.
func (s *Store) MarkParsed(ctx context.Context, id string) error {
	return s.advance(ctx, id, StageRaw, StageParsed)
}

// MarkAllSent advances every PARSED capture of the source to SENT. Called
// once a matching cycle has dispatched digests built over the parsed data.
func (s *Store) MarkAllSent(ctx context.Context, source model.Source) (int64, error) {
	if !IsTransitionAllowed(StageParsed, StageSent) {
		return 0, fmt.Errorf("transition %s → %s is not allowed", StageParsed, StageSent)
	}
	res, err := s.captures.UpdateMany(ctx,
		bson.M{"source": source, "stage": StageParsed},
		bson.M{"$set": bson.M{"stage": StageSent}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark captures sent: %w", err)
	}
	return res.ModifiedCount, nil
}

// PurgeSent deletes captures that completed the full lifecycle. This is a
// maintenance operation; the pipeline never calls it.
func (s *Store) PurgeSent(ctx context.Context, source model.Source) (int64, error) {
	res, err := s.captures.DeleteMany(ctx, bson.M{"source": source, "stage": StageSent})
	if err != nil {
		return 0, fmt.Errorf("purge sent captures: %w", err)
	}
	return res.DeletedCount, nil
}

// advance moves one capture along the stage machine, guarding both the
// transition table and the stored stage (the filter on `stage` makes the
// update a no-op if another worker already advanced the capture).
func (s *Store) advance(ctx context.Context, id string, from, to Stage) error {
	if !IsTransitionAllowed(from, to) {
		return fmt.Errorf("transition %s → %s is not allowed", from, to)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("capture id %q: %w", id, err)
	}

	_, err = s.captures.UpdateOne(ctx,
		bson.M{"_id": oid, "stage": from},
		bson.M{"$set": bson.M{"stage": to}},
	)
	if err != nil {
		return fmt.Errorf("advance capture %s: %w", id, err)
	}
	return nil
}
