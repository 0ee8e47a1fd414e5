package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// itemColumns is the column order used by every item SELECT and INSERT.
var itemColumns = []string{
	"id", "stem", "passage", "options", "correct_answer", "domain", "skill_tag",
	"stage", "panel", "form_id", "discrimination", "difficulty", "guessing",
	"exposure_count", "status", "is_pseudoword", "frequency_band", "band_size",
	"source", "created_at",
}

// itemRepo implements ItemRepo with ent's SQL builder.
type itemRepo struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

func (r *itemRepo) Upsert(ctx context.Context, items ...Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, it := range items {
		opts, err := json.Marshal(it.Options)
		if err != nil {
			return fmt.Errorf("marshal options for item %s: %w", it.ID, err)
		}
		status := it.Status
		if status == "" {
			status = ItemStatusActive
		}
		source := it.Source
		if source == "" {
			source = defaultItemSource
		}
		formID := it.FormID
		if formID == 0 {
			formID = defaultFormID
		}

		query, args := r.b.Insert(itemsTable).
			Columns(itemColumns...).
			Values(
				it.ID, it.Stem, it.Passage, string(opts), it.CorrectAnswer, it.Domain, it.SkillTag,
				it.Stage, it.Panel, formID, it.Discrimination, it.Difficulty, it.Guessing,
				0, status, it.IsPseudoword, it.FrequencyBand, it.BandSize,
				source, now,
			).
			OnConflict(
				entsql.ConflictColumns("id"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					for _, c := range itemColumns {
						switch c {
						case "id", "exposure_count", "created_at":
						default:
							u.SetExcluded(c)
						}
					}
				}),
			).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (r *itemRepo) Get(ctx context.Context, id string) (*Item, error) {
	t := r.b.Table(itemsTable)
	query, args := r.b.Select(itemColumns...).
		From(t).
		Where(entsql.EQ("id", id)).
		Query()

	items, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return &items[0], nil
}

func (r *itemRepo) Candidates(ctx context.Context, f CandidateFilter) ([]Item, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("status", ItemStatusActive),
		entsql.EQ("stage", f.Stage),
		entsql.EQ("panel", f.Panel),
	}
	if f.FormID > 0 {
		preds = append(preds, entsql.EQ("form_id", f.FormID))
	}
	if f.Domain != "" {
		preds = append(preds, entsql.EQ("domain", f.Domain))
	}
	if len(f.Exclude) > 0 {
		ids := make([]any, len(f.Exclude))
		for i, id := range f.Exclude {
			ids[i] = id
		}
		preds = append(preds, entsql.NotIn("id", ids...))
	}

	sel := r.b.Select(itemColumns...).
		From(r.b.Table(itemsTable)).
		Where(entsql.And(preds...)).
		OrderBy("exposure_count", "id")
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	items, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return items, nil
}

func (r *itemRepo) IncrementExposure(ctx context.Context, id string) error {
	query, args := r.b.Update(itemsTable).
		Add("exposure_count", 1).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("increment exposure for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment exposure for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *itemRepo) List(ctx context.Context, f ItemFilter) ([]Item, error) {
	var preds []*entsql.Predicate
	if !f.IncludeInactive {
		preds = append(preds, entsql.EQ("status", ItemStatusActive))
	}
	if f.Stage > 0 {
		preds = append(preds, entsql.EQ("stage", f.Stage))
	}
	if f.Panel != "" {
		preds = append(preds, entsql.EQ("panel", f.Panel))
	}
	if f.Domain != "" {
		preds = append(preds, entsql.EQ("domain", f.Domain))
	}

	sel := r.b.Select(itemColumns...).From(r.b.Table(itemsTable))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy("stage", "panel", "id").Query()

	items, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *itemRepo) query(ctx context.Context, query string, args []any) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it   Item
			opts string
		)
		err := rows.Scan(
			&it.ID, &it.Stem, &it.Passage, &opts, &it.CorrectAnswer, &it.Domain, &it.SkillTag,
			&it.Stage, &it.Panel, &it.FormID, &it.Discrimination, &it.Difficulty, &it.Guessing,
			&it.ExposureCount, &it.Status, &it.IsPseudoword, &it.FrequencyBand, &it.BandSize,
			&it.Source, &it.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &it.Options); err != nil {
			return nil, fmt.Errorf("decode options for item %s: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
