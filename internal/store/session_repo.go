package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const sessionsTable = "interview_sessions"

var sessionColumns = []string{
	"id", "subject_id", "module_id", "status", "data", "version", "created_at", "updated_at",
}

// sqliteSessionRepo implements SessionRepo on the store's SQLite database.
// Optimistic concurrency is enforced by a version predicate on UPDATE.
type sqliteSessionRepo struct {
	drv *entsql.Driver
}

func (r *sqliteSessionRepo) Insert(ctx context.Context, rec *SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Version = 1

	q, args := builder().Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(rec.ID, rec.SubjectID, rec.ModuleID, rec.Status, rec.Data, rec.Version,
			rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli()).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

func (r *sqliteSessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	b := builder()
	q, args := b.Select(sessionColumns...).
		From(b.Table(sessionsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	recs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

func (r *sqliteSessionRepo) CompareAndSwap(ctx context.Context, rec *SessionRecord) error {
	now := time.Now().UTC()
	q, args := builder().Update(sessionsTable).
		Set("status", rec.Status).
		Set("data", rec.Data).
		Set("version", rec.Version+1).
		Set("updated_at", now.UnixMilli()).
		Where(entsql.And(
			entsql.EQ("id", rec.ID),
			entsql.EQ("version", rec.Version),
		)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("update session %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", rec.ID, err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, rec.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (r *sqliteSessionRepo) List(ctx context.Context, filter ListFilter) ([]SessionRecord, error) {
	b := builder()
	sel := b.Select(sessionColumns...).From(b.Table(sessionsTable))

	var preds []*entsql.Predicate
	if filter.SubjectID != "" {
		preds = append(preds, entsql.EQ("subject_id", filter.SubjectID))
	}
	if filter.ModuleID != "" {
		preds = append(preds, entsql.EQ("module_id", filter.ModuleID))
	}
	if filter.Status != "" {
		preds = append(preds, entsql.EQ("status", filter.Status))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy(entsql.Desc("updated_at"))
	if filter.Limit > 0 {
		sel = sel.Limit(filter.Limit)
	}

	q, args := sel.Query()
	recs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return recs, nil
}

func (r *sqliteSessionRepo) query(ctx context.Context, q string, args []any) ([]SessionRecord, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec              SessionRecord
			created, updated int64
		)
		if err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.ModuleID, &rec.Status,
			&rec.Data, &rec.Version, &created, &updated); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.UnixMilli(created).UTC()
		rec.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
