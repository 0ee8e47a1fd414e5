package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/deepteaching86-gif/deepreading/internal/irt"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrSessionClosed is returned when completing a session that is
	// already completed.
	ErrSessionClosed = errors.New("store: session already completed")
)

// Item status values.
const (
	ItemStatusActive  = "active"
	ItemStatusRetired = "retired"
	ItemStatusDraft   = "draft"
)

// Item domains.
const (
	DomainVocabulary = "vocabulary"
	DomainGrammar    = "grammar"
	DomainReading    = "reading"
)

// Session status values.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

const (
	defaultItemSource = "manual"
	defaultFormID     = 1
)

// Item is a calibrated test item.
type Item struct {
	ID            string
	Stem          string
	Passage       string
	Options       []string
	CorrectAnswer string
	Domain        string
	SkillTag      string

	Stage  int
	Panel  string
	FormID int

	Discrimination float64
	Difficulty     float64
	Guessing       float64

	ExposureCount int
	Status        string

	// Vocabulary size test tags.
	IsPseudoword  bool
	FrequencyBand string
	BandSize      int

	Source    string
	CreatedAt time.Time
}

// Params returns the item's IRT parameters.
func (i Item) Params() irt.ItemParameters {
	return irt.ItemParameters{
		Discrimination: i.Discrimination,
		Difficulty:     i.Difficulty,
		Guessing:       i.Guessing,
	}
}

// CandidateFilter selects items eligible for administration.
type CandidateFilter struct {
	Stage  int
	Panel  string
	FormID int // 0 = any form
	Domain string
	// Exclude lists item IDs already administered in the session.
	Exclude []string
	Limit   int
}

// ItemFilter narrows List. Zero values match everything.
type ItemFilter struct {
	Stage           int
	Panel           string
	Domain          string
	IncludeInactive bool
}

// ItemRepo manages the item bank.
type ItemRepo interface {
	// Upsert inserts items or replaces their content. Exposure counts of
	// existing items are preserved.
	Upsert(ctx context.Context, items ...Item) error

	// Get returns the item with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// Candidates returns active items matching f, least exposed first.
	Candidates(ctx context.Context, f CandidateFilter) ([]Item, error)

	// IncrementExposure atomically adds one to the item's exposure count.
	IncrementExposure(ctx context.Context, id string) error

	// List returns items matching f ordered by stage, panel and id.
	List(ctx context.Context, f ItemFilter) ([]Item, error)
}

// Session is a persisted test session.
type Session struct {
	ID     string
	UserID string
	Status string
	FormID int

	Stage          int
	Panel          string
	Stage2Panel    string
	ItemsInStage   int
	ItemsCompleted int

	Theta float64
	SE    float64

	// NextItemID is the item currently presented, empty when none.
	NextItemID string

	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// Result is the finalized report, set by Complete.
	Result json.RawMessage
}

// SessionRepo manages test sessions.
type SessionRepo interface {
	Create(ctx context.Context, s *Session) error

	// Get returns the session with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Update saves progress fields (stage, panel, counts, estimate, next item).
	Update(ctx context.Context, s *Session) error

	// Complete marks the session completed and stores result. It returns
	// ErrSessionClosed if the session was already completed.
	Complete(ctx context.Context, id string, result json.RawMessage, at time.Time) error
}

// Response is one recorded answer. Params, Domain and the vocabulary tags
// are read from the item when loading a session's history.
type Response struct {
	ID             int64
	Sequence       int64
	SessionID      string
	ItemID         string
	SelectedAnswer string
	Correct        bool
	Theta          float64
	SE             float64
	ResponseTimeMs int64
	Stage          int
	Panel          string
	CreatedAt      time.Time

	Params        irt.ItemParameters
	Domain        string
	IsPseudoword  bool
	FrequencyBand string
	BandSize      int
}

// ResponseRepo stores the append-only response log.
type ResponseRepo interface {
	// Append records r, assigning its ID and Sequence.
	Append(ctx context.Context, r *Response) error

	// ForSession returns a session's responses in submission order.
	ForSession(ctx context.Context, sessionID string) ([]Response, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for a purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns the event with id, or nil if none exists.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates usage grouped by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates usage grouped by model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
