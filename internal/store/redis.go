package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "viva:session:"
	redisSessionIndex  = "viva:sessions"
)

// RedisSessionRepo stores each session as a hash under viva:session:<id>.
// Writes run inside WATCH/MULTI so a concurrent writer aborts the
// transaction instead of overwriting.
type RedisSessionRepo struct {
	client *redis.Client
}

// NewRedisSessionRepo wraps an existing client.
func NewRedisSessionRepo(client *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{client: client}
}

func redisSessionKey(id string) string { return redisSessionPrefix + id }

func (r *RedisSessionRepo) Insert(ctx context.Context, rec *SessionRecord) error {
	key := redisSessionKey(rec.ID)
	now := time.Now().UTC()

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrExists
		}

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		rec.Version = 1

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, redisFields(rec))
			pipe.ZAdd(ctx, redisSessionIndex, redis.Z{Score: float64(now.UnixMilli()), Member: rec.ID})
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrExists):
		return ErrExists
	case errors.Is(err, redis.TxFailedErr):
		return ErrExists
	default:
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
}

func (r *RedisSessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	fields, err := r.client.HGetAll(ctx, redisSessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	rec, err := parseRedisFields(id, fields)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

func (r *RedisSessionRepo) CompareAndSwap(ctx context.Context, rec *SessionRecord) error {
	key := redisSessionKey(rec.ID)
	now := time.Now().UTC()

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		version, err := tx.HGet(ctx, key, "version").Int64()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if version != rec.Version {
			return ErrConflict
		}

		next := *rec
		next.Version = version + 1
		next.UpdatedAt = now

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"status", next.Status,
				"data", next.Data,
				"version", next.Version,
				"updated_at", next.UpdatedAt.UnixMilli(),
			)
			pipe.ZAdd(ctx, redisSessionIndex, redis.Z{Score: float64(now.UnixMilli()), Member: rec.ID})
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		rec.Version++
		rec.UpdatedAt = now
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return ErrConflict
	default:
		return fmt.Errorf("update session %s: %w", rec.ID, err)
	}
}

func (r *RedisSessionRepo) List(ctx context.Context, filter ListFilter) ([]SessionRecord, error) {
	ids, err := r.client.ZRevRange(ctx, redisSessionIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var out []SessionRecord
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !filter.matches(*rec) {
			continue
		}
		out = append(out, *rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func redisFields(rec *SessionRecord) map[string]any {
	return map[string]any{
		"subject_id": rec.SubjectID,
		"module_id":  rec.ModuleID,
		"status":     rec.Status,
		"data":       rec.Data,
		"version":    rec.Version,
		"created_at": rec.CreatedAt.UnixMilli(),
		"updated_at": rec.UpdatedAt.UnixMilli(),
	}
}

func parseRedisFields(id string, fields map[string]string) (*SessionRecord, error) {
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	updated, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return &SessionRecord{
		ID:        id,
		SubjectID: fields["subject_id"],
		ModuleID:  fields["module_id"],
		Status:    fields["status"],
		Data:      []byte(fields["data"]),
		Version:   version,
		CreatedAt: time.UnixMilli(created).UTC(),
		UpdatedAt: time.UnixMilli(updated).UTC(),
	}, nil
}
