package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// responseRepo implements ResponseRepo with ent's SQL builder.
type responseRepo struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *responseRepo) Append(ctx context.Context, resp *Response) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}

	query, args := r.b.Insert(responsesTable).
		Columns(
			"sequence", "session_id", "item_id", "selected_answer", "correct",
			"theta", "standard_error", "response_time_ms", "stage", "panel", "created_at",
		).
		Values(
			seqNum, resp.SessionID, resp.ItemID, resp.SelectedAnswer, resp.Correct,
			resp.Theta, resp.SE, resp.ResponseTimeMs, resp.Stage, resp.Panel, resp.CreatedAt,
		).
		Returning("id").
		Query()

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&resp.ID); err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	resp.Sequence = seqNum
	return nil
}

func (r *responseRepo) ForSession(ctx context.Context, sessionID string) ([]Response, error) {
	rt := r.b.Table(responsesTable).As("r")
	it := r.b.Table(itemsTable).As("i")

	query, args := r.b.Select(
		rt.C("id"), rt.C("sequence"), rt.C("session_id"), rt.C("item_id"),
		rt.C("selected_answer"), rt.C("correct"), rt.C("theta"), rt.C("standard_error"),
		rt.C("response_time_ms"), rt.C("stage"), rt.C("panel"), rt.C("created_at"),
		it.C("discrimination"), it.C("difficulty"), it.C("guessing"), it.C("domain"),
		it.C("is_pseudoword"), it.C("frequency_band"), it.C("band_size"),
	).
		From(rt).
		Join(it).On(rt.C("item_id"), it.C("id")).
		Where(entsql.EQ(rt.C("session_id"), sessionID)).
		OrderBy(rt.C("sequence")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		var resp Response
		err := rows.Scan(
			&resp.ID, &resp.Sequence, &resp.SessionID, &resp.ItemID,
			&resp.SelectedAnswer, &resp.Correct, &resp.Theta, &resp.SE,
			&resp.ResponseTimeMs, &resp.Stage, &resp.Panel, &resp.CreatedAt,
			&resp.Params.Discrimination, &resp.Params.Difficulty, &resp.Params.Guessing, &resp.Domain,
			&resp.IsPseudoword, &resp.FrequencyBand, &resp.BandSize,
		)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}
