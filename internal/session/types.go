package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/deepteaching86-gif/deepreading/internal/feedback"
	"github.com/deepteaching86-gif/deepreading/internal/irt"
	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/scoring"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrAlreadyAnswered  = errors.New("item already answered in this session")
	ErrNoItemAvailable  = errors.New("no items available for routing panel")
	ErrNoResponses      = errors.New("no responses found for session")
	ErrUserRequired     = errors.New("user id is required")
)

// Config holds session settings that are not owned by the core packages.
type Config struct {
	// FormCount is the number of parallel item bank forms. Sessions are
	// spread across forms 1..FormCount by id.
	FormCount int `yaml:"form_count"`
}

// DefaultConfig uses a single form.
func DefaultConfig() Config {
	return Config{FormCount: 1}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FormCount < 1 {
		return fmt.Errorf("session: form_count must be at least 1, got %d", c.FormCount)
	}
	return nil
}

// PresentedItem is an item as shown to the test taker, without its key.
type PresentedItem struct {
	ID      string   `json:"id"`
	Stem    string   `json:"stem"`
	Passage string   `json:"passage,omitempty"`
	Options []string `json:"options"`
	Domain  string   `json:"domain"`
	Stage   int      `json:"stage"`
	Panel   string   `json:"panel"`
}

func present(it store.Item) *PresentedItem {
	return &PresentedItem{
		ID:      it.ID,
		Stem:    it.Stem,
		Passage: it.Passage,
		Options: it.Options,
		Domain:  it.Domain,
		Stage:   it.Stage,
		Panel:   it.Panel,
	}
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	FormID     int            `json:"form_id"`
	StartedAt  time.Time      `json:"started_at"`
	State      mst.State      `json:"state"`
	TotalItems int            `json:"total_items"`
	FirstItem  *PresentedItem `json:"first_item"`
}

// SubmitInput is one answer from the test taker.
type SubmitInput struct {
	SessionID      string
	ItemID         string
	Answer         string
	ResponseTimeMs int64
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	Correct    bool            `json:"is_correct"`
	Estimate   irt.Estimate    `json:"estimate"`
	State      mst.State       `json:"state"`
	Transition *mst.Transition `json:"transition,omitempty"`
	TotalItems int             `json:"total_items"`

	// NextItem is nil when the test is complete or the pool ran out.
	NextItem *PresentedItem `json:"next_item,omitempty"`

	// PoolExhausted is set when the test is not complete but no eligible
	// item remained for the current panel.
	PoolExhausted bool `json:"pool_exhausted,omitempty"`
}

// Completed reports whether the test has reached its full length.
func (r *SubmitResult) Completed() bool {
	return r.State.Completed
}

// StatusResult describes a session's progress.
type StatusResult struct {
	SessionID   string       `json:"session_id"`
	UserID      string       `json:"user_id"`
	Status      string       `json:"status"`
	FormID      int          `json:"form_id"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	State       mst.State    `json:"state"`
	Estimate    irt.Estimate `json:"estimate"`
	TotalItems  int          `json:"total_items"`
	NextItemID  string       `json:"next_item_id,omitempty"`
}

// DomainScore is accuracy within one item domain.
type DomainScore struct {
	Domain  string  `json:"domain"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Percent float64 `json:"percentage"`
}

// FinalResult is the report produced by Finalize.
type FinalResult struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Completed time.Time `json:"completed_at"`

	Theta            float64 `json:"final_theta"`
	SE               float64 `json:"standard_error"`
	ProficiencyLevel int     `json:"proficiency_level"`
	Band             string  `json:"band"`
	Lexile           int     `json:"lexile_score"`
	ARLevel          float64 `json:"ar_level"`

	Vocabulary *scoring.VocabularyReport `json:"vocabulary,omitempty"`

	TotalItems   int           `json:"total_items"`
	CorrectCount int           `json:"correct_count"`
	Accuracy     float64       `json:"accuracy_percentage"`
	Domains      []DomainScore `json:"domains"`

	Feedback *feedback.Feedback `json:"feedback,omitempty"`
}
