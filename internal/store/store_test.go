package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleItems() []Item {
	return []Item{
		{
			ID: "r1", Stem: "Choose the synonym of 'big'.", Options: []string{"large", "tiny", "red", "slow"},
			CorrectAnswer: "large", Domain: DomainVocabulary, Stage: 1, Panel: "routing", FormID: 1,
			Discrimination: 1.2, Difficulty: -0.5, Guessing: 0.25,
			FrequencyBand: "1k", BandSize: 1000,
		},
		{
			ID: "r2", Stem: "She ___ to school.", Options: []string{"go", "goes", "going", "gone"},
			CorrectAnswer: "goes", Domain: DomainGrammar, Stage: 1, Panel: "routing", FormID: 1,
			Discrimination: 1.5, Difficulty: 0, Guessing: 0.2,
		},
		{
			ID: "h1", Stem: "Infer the author's purpose.", Passage: "A short passage.",
			Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "C", Domain: DomainReading,
			Stage: 2, Panel: "high", FormID: 1, Discrimination: 1.0, Difficulty: 1.2, Guessing: 0.25,
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
	if s.Dialect() != "sqlite3" {
		t.Errorf("dialect = %q, want sqlite3", s.Dialect())
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{itemsTable, sessionsTable, responsesTable, llmEventsTable, sequenceTable} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}

	// Re-seeding must not reset the counter.
	sc, err := newSequenceCounter(ctx, s.DB(), s.Dialect())
	require.NoError(t, err)
	next, err := sc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)
}

func TestItemUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.ItemRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleItems()...))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"large", "tiny", "red", "slow"}, got.Options)
	assert.Equal(t, ItemStatusActive, got.Status)
	assert.Equal(t, "manual", got.Source)
	assert.Equal(t, 1000, got.BandSize)
	assert.InDelta(t, 1.2, got.Params().Discrimination, 1e-12)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestItemUpsertPreservesExposure(t *testing.T) {
	s := openTestStore(t)
	repo := s.ItemRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleItems()...))
	require.NoError(t, repo.IncrementExposure(ctx, "r1"))
	require.NoError(t, repo.IncrementExposure(ctx, "r1"))

	updated := sampleItems()[0]
	updated.Difficulty = -0.7
	require.NoError(t, repo.Upsert(ctx, updated))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ExposureCount)
	assert.InDelta(t, -0.7, got.Difficulty, 1e-12)
}

func TestIncrementExposureMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.ItemRepo().IncrementExposure(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCandidates(t *testing.T) {
	s := openTestStore(t)
	repo := s.ItemRepo()
	ctx := context.Background()

	items := sampleItems()
	items = append(items, Item{
		ID: "r3", Stem: "Retired item", Options: []string{"a", "b"}, CorrectAnswer: "a",
		Domain: DomainGrammar, Stage: 1, Panel: "routing", FormID: 1,
		Discrimination: 1, Status: ItemStatusRetired,
	})
	require.NoError(t, repo.Upsert(ctx, items...))
	require.NoError(t, repo.IncrementExposure(ctx, "r1"))

	got, err := repo.Candidates(ctx, CandidateFilter{Stage: 1, Panel: "routing", FormID: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Least exposed first.
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, "r1", got[1].ID)

	got, err = repo.Candidates(ctx, CandidateFilter{Stage: 1, Panel: "routing", Exclude: []string{"r2"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	got, err = repo.Candidates(ctx, CandidateFilter{Stage: 1, Panel: "routing", Domain: DomainVocabulary})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repo.Candidates(ctx, CandidateFilter{Stage: 3, Panel: "H2"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestItemList(t *testing.T) {
	s := openTestStore(t)
	repo := s.ItemRepo()
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, sampleItems()...))

	all, err := repo.List(ctx, ItemFilter{})
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, it := range all {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{"r1", "r2", "h1"}, ids)

	stage2, err := repo.List(ctx, ItemFilter{Stage: 2})
	require.NoError(t, err)
	assert.Len(t, stage2, 1)
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	sess := &Session{ID: "s1", UserID: "u1", FormID: 1, Stage: 1, Panel: "routing", SE: 1, NextItemID: "r1"}
	require.NoError(t, repo.Create(ctx, sess))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, SessionInProgress, got.Status)
	assert.Equal(t, "r1", got.NextItemID)
	assert.Nil(t, got.CompletedAt)

	got.Stage, got.Panel, got.Stage2Panel = 2, "high", "high"
	got.ItemsCompleted, got.ItemsInStage = 8, 0
	got.Theta, got.SE = 0.6, 0.4
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "high", got.Panel)
	assert.Equal(t, 8, got.ItemsCompleted)
	assert.InDelta(t, 0.6, got.Theta, 1e-12)

	result := json.RawMessage(`{"final_theta":0.6}`)
	now := time.Now()
	require.NoError(t, repo.Complete(ctx, "s1", result, now))

	got, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.JSONEq(t, string(result), string(got.Result))

	err = repo.Complete(ctx, "s1", result, now)
	assert.ErrorIs(t, err, ErrSessionClosed)

	err = repo.Complete(ctx, "missing", result, now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Update(ctx, &Session{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResponsesForSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ItemRepo().Upsert(ctx, sampleItems()...))
	require.NoError(t, s.SessionRepo().Create(ctx, &Session{ID: "s1", UserID: "u1", FormID: 1, Stage: 1, Panel: "routing"}))

	repo := s.ResponseRepo()
	first := &Response{SessionID: "s1", ItemID: "r2", SelectedAnswer: "goes", Correct: true, Theta: 0.3, SE: 0.9, Stage: 1, Panel: "routing", ResponseTimeMs: 4200}
	second := &Response{SessionID: "s1", ItemID: "r1", SelectedAnswer: "tiny", Correct: false, Theta: 0.1, SE: 0.85, Stage: 1, Panel: "routing"}
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))
	assert.Less(t, first.Sequence, second.Sequence)
	assert.NotZero(t, first.ID)

	got, err := repo.ForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ItemID)
	assert.True(t, got[0].Correct)
	assert.Equal(t, int64(4200), got[0].ResponseTimeMs)
	assert.InDelta(t, 1.5, got[0].Params.Discrimination, 1e-12)
	assert.Equal(t, DomainGrammar, got[0].Domain)
	assert.Equal(t, "1k", got[1].FrequencyBand)
	assert.Equal(t, 1000, got[1].BandSize)

	// The same item cannot be answered twice in a session.
	dup := &Response{SessionID: "s1", ItemID: "r2", SelectedAnswer: "go", Stage: 1, Panel: "routing"}
	assert.Error(t, repo.Append(ctx, dup))

	none, err := repo.ForSession(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "m1", Purpose: "result-feedback", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "req", ResponseBody: "{}"},
		{Provider: "mock", Model: "m1", Purpose: "result-feedback", InputTokens: 120, OutputTokens: 40, LatencyMs: 400, Success: false, ErrorMessage: "boom"},
		{Provider: "mock", Model: "m2", Purpose: "other", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "other", got[0].Purpose, "newest first")

	filtered, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "result-feedback"})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	one, err := repo.GetLLMEvent(ctx, got[1].ID)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "boom", one.ErrorMessage)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "other", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[1].Calls)
	assert.Equal(t, 220, byPurpose[1].InputTokens)
	assert.Equal(t, int64(300), byPurpose[1].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "m1", byModel[0].Model)
}

func TestResolveDSN(t *testing.T) {
	driver, d, src := resolveDSN("postgres://u:p@localhost/db")
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, "postgres", d)
	assert.Equal(t, "postgres://u:p@localhost/db", src)

	driver, d, src = resolveDSN("/tmp/x.db")
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, "sqlite3", d)
	assert.True(t, strings.HasPrefix(src, "/tmp/x.db?_pragma="), src)

	_, _, src = resolveDSN("file:x?mode=memory")
	assert.True(t, strings.HasPrefix(src, "file:x?mode=memory&_pragma="), src)
}
