package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var sessionColumns = []string{
	"id", "user_id", "status", "form_id", "stage", "panel", "stage2_panel",
	"items_in_stage", "items_completed", "current_theta", "current_se",
	"next_item_id", "started_at", "updated_at", "completed_at", "result",
}

// sessionRepo implements SessionRepo with ent's SQL builder.
type sessionRepo struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

func (r *sessionRepo) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = SessionInProgress
	}

	query, args := r.b.Insert(sessionsTable).
		Columns(
			"id", "user_id", "status", "form_id", "stage", "panel", "stage2_panel",
			"items_in_stage", "items_completed", "current_theta", "current_se",
			"next_item_id", "started_at", "updated_at",
		).
		Values(
			s.ID, s.UserID, s.Status, s.FormID, s.Stage, s.Panel, s.Stage2Panel,
			s.ItemsInStage, s.ItemsCompleted, s.Theta, s.SE,
			s.NextItemID, s.StartedAt, s.UpdatedAt,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	query, args := r.b.Select(sessionColumns...).
		From(r.b.Table(sessionsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		s           Session
		completedAt sql.NullTime
		result      sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &s.UserID, &s.Status, &s.FormID, &s.Stage, &s.Panel, &s.Stage2Panel,
		&s.ItemsInStage, &s.ItemsCompleted, &s.Theta, &s.SE,
		&s.NextItemID, &s.StartedAt, &s.UpdatedAt, &completedAt, &result,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if result.Valid && result.String != "" {
		s.Result = json.RawMessage(result.String)
	}
	return &s, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	query, args := r.b.Update(sessionsTable).
		Set("stage", s.Stage).
		Set("panel", s.Panel).
		Set("stage2_panel", s.Stage2Panel).
		Set("items_in_stage", s.ItemsInStage).
		Set("items_completed", s.ItemsCompleted).
		Set("current_theta", s.Theta).
		Set("current_se", s.SE).
		Set("next_item_id", s.NextItemID).
		Set("updated_at", s.UpdatedAt).
		Where(entsql.EQ("id", s.ID)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

func (r *sessionRepo) Complete(ctx context.Context, id string, result json.RawMessage, at time.Time) error {
	at = at.UTC()
	if len(result) == 0 {
		result = json.RawMessage("{}")
	}
	query, args := r.b.Update(sessionsTable).
		Set("status", SessionCompleted).
		Set("completed_at", at).
		Set("updated_at", at).
		Set("next_item_id", "").
		Set("result", string(result)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.NEQ("status", SessionCompleted),
		)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session %s: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: either missing or already completed.
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("session %s: %w", id, ErrSessionClosed)
}
