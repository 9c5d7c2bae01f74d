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

// MongoSessionRepo stores sessions in a single collection keyed by session
// id. CompareAndSwap filters on the expected version so a stale writer
// matches no document.
type MongoSessionRepo struct {
	col *mongo.Collection
}

type mongoSession struct {
	ID        string    `bson:"_id"`
	SubjectID string    `bson:"subject_id"`
	ModuleID  string    `bson:"module_id"`
	Status    string    `bson:"status"`
	Data      []byte    `bson:"data"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoSessionRepo uses the "sessions" collection of db.
func NewMongoSessionRepo(db *mongo.Database) *MongoSessionRepo {
	return &MongoSessionRepo{col: db.Collection("sessions")}
}

func (r *MongoSessionRepo) Insert(ctx context.Context, rec *SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Version = 1

	_, err := r.col.InsertOne(ctx, toMongoSession(rec))
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	return nil
}

func (r *MongoSessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	var doc mongoSession
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return doc.record(), nil
}

func (r *MongoSessionRepo) CompareAndSwap(ctx context.Context, rec *SessionRecord) error {
	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": rec.ID, "version": rec.Version},
		bson.M{
			"$set": bson.M{
				"status":     rec.Status,
				"data":       rec.Data,
				"updated_at": now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", rec.ID, err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, rec.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (r *MongoSessionRepo) List(ctx context.Context, filter ListFilter) ([]SessionRecord, error) {
	q := bson.M{}
	if filter.SubjectID != "" {
		q["subject_id"] = filter.SubjectID
	}
	if filter.ModuleID != "" {
		q["module_id"] = filter.ModuleID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var out []SessionRecord
	for cur.Next(ctx) {
		var doc mongoSession
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, *doc.record())
	}
	return out, cur.Err()
}

func toMongoSession(rec *SessionRecord) mongoSession {
	return mongoSession{
		ID:        rec.ID,
		SubjectID: rec.SubjectID,
		ModuleID:  rec.ModuleID,
		Status:    rec.Status,
		Data:      rec.Data,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (d mongoSession) record() *SessionRecord {
	return &SessionRecord{
		ID:        d.ID,
		SubjectID: d.SubjectID,
		ModuleID:  d.ModuleID,
		Status:    d.Status,
		Data:      d.Data,
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
