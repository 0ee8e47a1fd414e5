package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/store"
)

// recorder stores one event per Generate call and logs its outcome.
type recorder struct {
	inner Provider
	name  string
	repo  store.EventRepo
	log   *zap.Logger
	now   func() time.Time
}

// WithLogging wraps p so every call is appended to repo as an LLM request
// event. name identifies the provider in stored events; repo may be nil.
func WithLogging(p Provider, name string, repo store.EventRepo, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &recorder{inner: p, name: name, repo: repo, log: log, now: time.Now}
}

func (r *recorder) Generate(ctx context.Context, req Request) (*Response, error) {
	start := r.now()
	resp, err := r.inner.Generate(ctx, req)
	ev := r.event(PurposeFrom(ctx), req, resp, err, r.now().Sub(start))

	fields := []zap.Field{
		zap.String("provider", ev.Provider),
		zap.String("model", ev.Model),
		zap.String("purpose", ev.Purpose),
		zap.Int64("latency_ms", ev.LatencyMs),
	}
	switch kind, ok := KindOf(err); {
	case ok:
		r.log.Info("llm request failed", append(fields, zap.Stringer("kind", kind), zap.Error(err))...)
	case err != nil:
		r.log.Info("llm request failed", append(fields, zap.Error(err))...)
	default:
		r.log.Debug("llm request", append(fields, zap.Int("tokens", ev.InputTokens+ev.OutputTokens))...)
	}

	if r.repo != nil {
		// A failed write never fails the call.
		if werr := r.repo.AppendLLMRequest(ctx, ev); werr != nil {
			r.log.Warn("record llm event", zap.Error(werr))
		}
	}
	return resp, err
}

func (r *recorder) ModelID() string {
	return r.inner.ModelID()
}

func (r *recorder) event(purpose string, req Request, resp *Response, err error, took time.Duration) store.LLMRequestEventData {
	ev := store.LLMRequestEventData{
		Provider:    r.name,
		Model:       r.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   took.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		var le *Error
		if errors.As(err, &le) && len(le.Content) > 0 {
			ev.ResponseBody = string(le.Content)
		}
	}
	return ev
}

// transcript renders a request as plain text for the event log.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	fmt.Fprintf(&b, "[user]\n%s\n", req.Prompt)
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "\n[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
