// Package session drives an adaptive test from start to final report,
// combining the estimator, the MST router and the item selector with the
// item, session and response stores.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/feedback"
	"github.com/deepteaching86-gif/deepreading/internal/irt"
	"github.com/deepteaching86-gif/deepreading/internal/itembank"
	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/scoring"
	"github.com/deepteaching86-gif/deepreading/internal/selection"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

// FeedbackGenerator writes a narrative for a finalized result.
type FeedbackGenerator interface {
	Generate(ctx context.Context, in feedback.Input) (*feedback.Feedback, error)
}

// Recorder receives engine activity for metrics.
type Recorder interface {
	SessionStarted(formID int)
	ResponseRecorded(stage int, correct bool, se float64)
	StageTransition(from, to mst.Panel)
	PoolExhausted(stage int, panel mst.Panel)
	SessionFinalized(level int, theta float64)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(int)                  {}
func (nopRecorder) ResponseRecorded(int, bool, float64)  {}
func (nopRecorder) StageTransition(mst.Panel, mst.Panel) {}
func (nopRecorder) PoolExhausted(int, mst.Panel)         {}
func (nopRecorder) SessionFinalized(int, float64)        {}

// Deps holds the service's collaborators. Items, Sessions, Responses,
// Estimator, Router and Selector are required; the rest are optional.
type Deps struct {
	Items     store.ItemRepo
	Sessions  store.SessionRepo
	Responses store.ResponseRepo

	Estimator *irt.Estimator
	Router    *mst.Router
	Selector  *selection.Selector
	Scale     scoring.Scale

	Feedback FeedbackGenerator
	Metrics  Recorder
	Logger   *zap.Logger

	Config Config
	Now    func() time.Time
	NewID  func() string
}

// lockStripes bounds the number of mutexes serializing per-session writes.
const lockStripes = 64

// Service runs test sessions.
type Service struct {
	items     store.ItemRepo
	sessions  store.SessionRepo
	responses store.ResponseRepo

	estimator *irt.Estimator
	router    *mst.Router
	selector  *selection.Selector
	scale     scoring.Scale

	feedback FeedbackGenerator
	metrics  Recorder
	log      *zap.Logger

	cfg   Config
	now   func() time.Time
	newID func() string

	locks [lockStripes]sync.Mutex
}

// NewService creates a session service from deps, filling optional
// collaborators with defaults.
func NewService(deps Deps) (*Service, error) {
	if deps.Items == nil || deps.Sessions == nil || deps.Responses == nil {
		return nil, errors.New("session: item, session and response repos are required")
	}
	if deps.Estimator == nil || deps.Router == nil || deps.Selector == nil {
		return nil, errors.New("session: estimator, router and selector are required")
	}
	if deps.Config == (Config{}) {
		deps.Config = DefaultConfig()
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if len(deps.Scale.Cuts) == 0 {
		deps.Scale = scoring.DefaultScale()
	}
	if err := deps.Scale.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		items:     deps.Items,
		sessions:  deps.Sessions,
		responses: deps.Responses,
		estimator: deps.Estimator,
		router:    deps.Router,
		selector:  deps.Selector,
		scale:     deps.Scale,
		feedback:  deps.Feedback,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		cfg:       deps.Config,
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

func (s *Service) lock(sessionID string) func() {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) totalItems() int {
	return s.router.Config().TotalItems
}

// formFor spreads sessions across forms by id.
func (s *Service) formFor(sessionID string) int {
	if s.cfg.FormCount <= 1 {
		return 1
	}
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return 1 + int(h.Sum32()%uint32(s.cfg.FormCount))
}

// Start creates a session for userID and presents its first routing item,
// selected at the prior mean.
func (s *Service) Start(ctx context.Context, userID string) (*StartResult, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	id := s.newID()
	formID := s.formFor(id)
	state := mst.NewState()
	prior := s.estimator.Config()

	first, ok, err := s.selectItem(ctx, state, formID, prior.PriorMean, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoItemAvailable
	}

	now := s.now()
	sess := &store.Session{
		ID:         id,
		UserID:     userID,
		FormID:     formID,
		Stage:      state.Stage,
		Panel:      string(state.Panel),
		Theta:      prior.PriorMean,
		SE:         prior.PriorSD,
		NextItemID: first.ID,
		StartedAt:  now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.items.IncrementExposure(ctx, first.ID); err != nil {
		return nil, fmt.Errorf("increment exposure: %w", err)
	}

	s.metrics.SessionStarted(formID)
	s.log.Info("session started",
		zap.String("session_id", id),
		zap.String("user_id", userID),
		zap.Int("form_id", formID),
		zap.String("first_item", first.ID))

	return &StartResult{
		SessionID:  id,
		UserID:     userID,
		FormID:     formID,
		StartedAt:  now,
		State:      state,
		TotalItems: s.totalItems(),
		FirstItem:  present(*first),
	}, nil
}

// Submit scores an answer, re-estimates ability from the full response
// history, advances the stage state and selects the next item.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	unlock := s.lock(in.SessionID)
	defer unlock()

	sess, err := s.getSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	state := s.stateOf(sess)
	if sess.Status == store.SessionCompleted || state.Completed {
		return nil, ErrSessionCompleted
	}

	item, err := s.items.Get(ctx, in.ItemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, in.ItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	history, err := s.responses.ForSession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	// A response recorded by an earlier call whose session update failed is
	// finished rather than rejected as a duplicate.
	var pending *store.Response
	if n := len(history); n > sess.ItemsCompleted && history[n-1].ItemID == item.ID {
		pending = &history[n-1]
		history = history[:n-1]
	}
	if len(history) != state.ItemsCompleted {
		state = s.replay(history)
	}
	if state.Completed {
		return nil, ErrSessionCompleted
	}

	answered := make([]string, 0, len(history)+1)
	obs := make([]irt.Observation, 0, len(history)+1)
	for _, r := range history {
		if r.ItemID == item.ID {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyAnswered, item.ID)
		}
		answered = append(answered, r.ItemID)
		obs = append(obs, irt.Observation{Params: r.Params, Correct: r.Correct})
	}

	correct := in.Answer == item.CorrectAnswer
	if pending != nil {
		correct = pending.Correct
	}
	obs = append(obs, irt.Observation{Params: item.Params(), Correct: correct})
	answered = append(answered, item.ID)

	est := s.estimator.Estimate(obs)
	next, transition := s.router.Advance(state, est.Theta)

	// Pick the next item before anything is written so a failed query
	// leaves the session untouched.
	var nextItem *store.Item
	exhausted := false
	if !next.Completed {
		picked, ok, err := s.selectItem(ctx, next, sess.FormID, est.Theta, answered)
		if err != nil {
			return nil, err
		}
		nextItem, exhausted = picked, !ok
	}

	if pending == nil {
		resp := &store.Response{
			SessionID:      sess.ID,
			ItemID:         item.ID,
			SelectedAnswer: in.Answer,
			Correct:        correct,
			Theta:          est.Theta,
			SE:             est.SE,
			ResponseTimeMs: in.ResponseTimeMs,
			Stage:          state.Stage,
			Panel:          string(state.Panel),
		}
		if err := s.responses.Append(ctx, resp); err != nil {
			return nil, fmt.Errorf("record response: %w", err)
		}
		s.metrics.ResponseRecorded(state.Stage, correct, est.SE)
	} else {
		s.log.Info("resuming recorded response",
			zap.String("session_id", sess.ID),
			zap.String("item_id", item.ID))
	}

	sess.NextItemID = ""
	if nextItem != nil {
		sess.NextItemID = nextItem.ID
	}
	sess.Stage = next.Stage
	sess.Panel = string(next.Panel)
	sess.Stage2Panel = string(next.Stage2Panel)
	sess.ItemsInStage = next.ItemsInStage
	sess.ItemsCompleted = next.ItemsCompleted
	sess.Theta = est.Theta
	sess.SE = est.SE
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if transition != nil {
		s.metrics.StageTransition(transition.From, transition.To)
		s.log.Info("stage transition",
			zap.String("session_id", sess.ID),
			zap.Int("to_stage", transition.ToStage),
			zap.String("panel", string(transition.To)),
			zap.Float64("theta", est.Theta))
	}

	result := &SubmitResult{
		Correct:    correct,
		Estimate:   est,
		State:      next,
		Transition: transition,
		TotalItems: s.totalItems(),
	}
	switch {
	case nextItem != nil:
		// The session already points at the item; a lost increment only
		// skews exposure balancing.
		if err := s.items.IncrementExposure(ctx, nextItem.ID); err != nil {
			s.log.Warn("increment exposure",
				zap.String("item_id", nextItem.ID),
				zap.Error(err))
		}
		result.NextItem = present(*nextItem)
	case exhausted:
		result.PoolExhausted = true
		s.metrics.PoolExhausted(next.Stage, next.Panel)
		s.log.Warn("item pool exhausted",
			zap.String("session_id", sess.ID),
			zap.Int("stage", next.Stage),
			zap.String("panel", string(next.Panel)))
	}

	s.log.Debug("response recorded",
		zap.String("session_id", sess.ID),
		zap.String("item_id", item.ID),
		zap.Bool("correct", correct),
		zap.Float64("theta", est.Theta),
		zap.Float64("se", est.SE),
		zap.Int("items_completed", next.ItemsCompleted))

	return result, nil
}

// Status reports a session's current progress.
func (s *Service) Status(ctx context.Context, id string) (*StatusResult, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		SessionID:   sess.ID,
		UserID:      sess.UserID,
		Status:      sess.Status,
		FormID:      sess.FormID,
		StartedAt:   sess.StartedAt,
		CompletedAt: sess.CompletedAt,
		State:       s.stateOf(sess),
		Estimate:    irt.Estimate{Theta: sess.Theta, SE: sess.SE},
		TotalItems:  s.totalItems(),
		NextItemID:  sess.NextItemID,
	}, nil
}

// Finalize computes the final report from every recorded response and
// closes the session. Feedback generation failures are logged and leave
// the report without feedback.
func (s *Service) Finalize(ctx context.Context, id string) (*FinalResult, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == store.SessionCompleted {
		return nil, ErrSessionCompleted
	}

	history, err := s.responses.ForSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	if len(history) == 0 {
		return nil, ErrNoResponses
	}

	res := s.score(history)
	res.SessionID = sess.ID
	res.UserID = sess.UserID
	res.Completed = s.now()

	if s.feedback != nil {
		fb, err := s.feedback.Generate(ctx, feedbackInput(res))
		if err != nil {
			s.log.Warn("feedback generation failed",
				zap.String("session_id", id),
				zap.Error(err))
		} else {
			res.Feedback = fb
		}
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if err := s.sessions.Complete(ctx, id, payload, res.Completed); err != nil {
		if errors.Is(err, store.ErrSessionClosed) {
			return nil, ErrSessionCompleted
		}
		return nil, fmt.Errorf("complete session: %w", err)
	}

	s.metrics.SessionFinalized(res.ProficiencyLevel, res.Theta)
	s.log.Info("session finalized",
		zap.String("session_id", id),
		zap.Float64("theta", res.Theta),
		zap.Float64("se", res.SE),
		zap.Int("level", res.ProficiencyLevel),
		zap.Int("items", res.TotalItems))

	return res, nil
}

// score builds the report fields derived from the response history.
func (s *Service) score(history []store.Response) *FinalResult {
	obs := make([]irt.Observation, len(history))
	var vocab []scoring.VocabResponse
	domains := make(map[string]*DomainScore)
	correct := 0

	for i, r := range history {
		obs[i] = irt.Observation{Params: r.Params, Correct: r.Correct}
		if r.Correct {
			correct++
		}

		d, ok := domains[r.Domain]
		if !ok {
			d = &DomainScore{Domain: r.Domain}
			domains[r.Domain] = d
		}
		d.Total++
		if r.Correct {
			d.Correct++
		}

		if r.Domain == store.DomainVocabulary {
			vocab = append(vocab, scoring.VocabResponse{
				FrequencyBand: r.FrequencyBand,
				BandSize:      r.BandSize,
				IsPseudoword:  r.IsPseudoword,
				Correct:       r.Correct,
			})
		}
	}

	est := s.estimator.Estimate(obs)
	level := s.scale.Level(est.Theta)

	res := &FinalResult{
		Theta:            est.Theta,
		SE:               est.SE,
		ProficiencyLevel: level,
		Band:             scoring.Band(level),
		Lexile:           scoring.Lexile(est.Theta),
		ARLevel:          scoring.ARLevel(est.Theta),
		TotalItems:       len(history),
		CorrectCount:     correct,
		Accuracy:         percent(correct, len(history)),
	}
	if report, ok := scoring.Vocabulary(vocab); ok {
		res.Vocabulary = report
	}

	for _, d := range domains {
		d.Percent = percent(d.Correct, d.Total)
		res.Domains = append(res.Domains, *d)
	}
	sort.Slice(res.Domains, func(i, j int) bool {
		return res.Domains[i].Domain < res.Domains[j].Domain
	})
	return res
}

// selectItem fetches eligible items for state's panel and picks one at theta.
func (s *Service) selectItem(ctx context.Context, state mst.State, formID int, theta float64, exclude []string) (*store.Item, bool, error) {
	items, err := s.items.Candidates(ctx, store.CandidateFilter{
		Stage:   state.Stage,
		Panel:   string(state.Panel),
		FormID:  formID,
		Exclude: exclude,
	})
	if err != nil {
		return nil, false, fmt.Errorf("load candidates: %w", err)
	}

	picked, ok := s.selector.Select(theta, itembank.ToCandidates(items))
	if !ok {
		return nil, false, nil
	}
	for i := range items {
		if items[i].ID == picked.ID {
			return &items[i], true, nil
		}
	}
	return nil, false, nil
}

func (s *Service) getSession(ctx context.Context, id string) (*store.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// replay rebuilds the stage state from recorded responses, each carrying
// the ability estimate taken after it.
func (s *Service) replay(history []store.Response) mst.State {
	state := mst.NewState()
	for _, r := range history {
		state, _ = s.router.Advance(state, r.Theta)
	}
	return state
}

func (s *Service) stateOf(sess *store.Session) mst.State {
	return mst.State{
		Stage:          sess.Stage,
		Panel:          mst.Panel(sess.Panel),
		Stage2Panel:    mst.Panel(sess.Stage2Panel),
		ItemsInStage:   sess.ItemsInStage,
		ItemsCompleted: sess.ItemsCompleted,
		Completed:      sess.ItemsCompleted >= s.totalItems(),
	}
}

func feedbackInput(res *FinalResult) feedback.Input {
	in := feedback.Input{
		Theta:    res.Theta,
		SE:       res.SE,
		Level:    res.ProficiencyLevel,
		Band:     res.Band,
		Lexile:   res.Lexile,
		ARLevel:  res.ARLevel,
		Accuracy: res.Accuracy,
	}
	if res.Vocabulary != nil {
		in.VocabularySize = res.Vocabulary.Size
	}
	for _, d := range res.Domains {
		in.Domains = append(in.Domains, feedback.DomainScore{Domain: d.Domain, Correct: d.Correct, Total: d.Total})
	}
	return in
}

// percent returns 100·n/d rounded to two decimals, 0 when d is 0.
func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*10000) / 100
}
