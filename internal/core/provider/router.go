package provider

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"
	"github.com/efezeyus/aiogretmen-sub001/pkg/ratelimit"
)

// Entry is one row of the provider table.
type Entry struct {
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	Key      string        `json:"-"`
	Model    string        `json:"model"`
	Enabled  bool          `json:"enabled"`
	Priority int           `json:"priority"`
	Timeout  time.Duration `json:"-"`
}

// Attempt records one provider try during a request, failed or not.
type Attempt struct {
	Provider string
	Model    string
	Err      error
	Latency  time.Duration
}

// Throttler is the rate-limit collaborator keyed by student id.
type Throttler interface {
	Check(ctx context.Context, studentID string) (ratelimit.Result, error)
}

// Router selects providers by priority and falls back on transient failure.
// The table is a copy-on-write snapshot: a call sees either the old or the
// new current model, never a half-applied swap.
type Router struct {
	table     atomic.Value // []Entry, sorted
	throttler Throttler
}

// NewRouter builds the closed provider set from configuration.
func NewRouter(throttler Throttler) *Router {
	r := &Router{throttler: throttler}
	entries := []Entry{
		entryFrom("openai", config.Cfg.OpenAI),
		entryFrom("deepseek", config.Cfg.DeepSeek),
	}
	r.swap(entries)
	return r
}

// NewRouterWith builds a router over an explicit table (tests).
func NewRouterWith(entries []Entry, throttler Throttler) *Router {
	r := &Router{throttler: throttler}
	r.swap(entries)
	return r
}

func entryFrom(name string, cfg config.ProviderConfig) Entry {
	return Entry{
		Name:     name,
		Endpoint: cfg.Endpoint,
		Key:      cfg.Key,
		Model:    cfg.Model,
		Enabled:  cfg.Enabled,
		Priority: cfg.Priority,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

func (r *Router) swap(entries []Entry) {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Name < sorted[j].Name
	})
	r.table.Store(sorted)
}

func (r *Router) snapshot() []Entry {
	return r.table.Load().([]Entry)
}

// build turns a table entry into a callable backend.
var build = func(e Entry) Provider {
	return &chatProvider{
		name:     e.Name,
		endpoint: e.Endpoint,
		key:      e.Key,
		model:    e.Model,
		timeout:  e.Timeout,
	}
}

// Ask runs the fallback chain for one student request. Every attempt, failed
// or not, is reported back so the caller can ledger it.
func (r *Router) Ask(ctx context.Context, studentID string, messages []Message, params Params) (Result, []Attempt, error) {
	if r.throttler != nil && studentID != "" {
		res, err := r.throttler.Check(ctx, studentID)
		if err == nil && !res.Allowed {
			// one bounded backoff, then give up
			wait := res.RetryAfter
			if wait > 3*time.Second {
				return Result{}, nil, ErrRateLimited
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Result{}, nil, ctx.Err()
			}
			res, err = r.throttler.Check(ctx, studentID)
			if err == nil && !res.Allowed {
				return Result{}, nil, ErrRateLimited
			}
		}
	}

	var attempts []Attempt
	for _, e := range r.snapshot() {
		if !e.Enabled {
			continue
		}
		p := build(e)
		start := time.Now()
		result, err := p.Call(ctx, messages, params)
		elapsed := time.Since(start)
		attempts = append(attempts, Attempt{Provider: e.Name, Model: e.Model, Err: err, Latency: elapsed})
		if err == nil {
			return result, attempts, nil
		}

		logger.WithFields(map[string]interface{}{
			"provider": e.Name,
			"model":    e.Model,
			"error":    err.Error(),
		}).Warnf("%v: provider failed, trying next", config.ModuleProvider)

		if pe, ok := err.(*ProviderError); ok && !pe.Transient() {
			continue
		}
		if ctx.Err() != nil {
			return Result{}, attempts, ctx.Err()
		}
	}
	return Result{}, attempts, fmt.Errorf("%d providers tried: %w", len(attempts), ErrAllProvidersFailed)
}

// AskModel pins the call to a specific model on the top-priority enabled
// provider, with no fallback. The evaluator uses it to score candidates.
func (r *Router) AskModel(ctx context.Context, modelID string, messages []Message, params Params) (Result, error) {
	for _, e := range r.snapshot() {
		if !e.Enabled {
			continue
		}
		pinned := e
		pinned.Model = modelID
		return build(pinned).Call(ctx, messages, params)
	}
	return Result{}, ErrAllProvidersFailed
}

// UpdateCurrentModel atomically swaps the model of the top-priority enabled
// provider. In-flight calls keep the snapshot they started with.
func (r *Router) UpdateCurrentModel(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("empty model id")
	}
	entries := append([]Entry(nil), r.snapshot()...)
	for i := range entries {
		if entries[i].Enabled {
			entries[i].Model = modelID
			r.swap(entries)
			logger.Info("%v: current model swapped to %s on %s", config.ModuleProvider, modelID, entries[i].Name)
			return nil
		}
	}
	return fmt.Errorf("no enabled provider to update")
}

// CurrentModel returns the model the next call would use.
func (r *Router) CurrentModel() (provider string, model string) {
	for _, e := range r.snapshot() {
		if e.Enabled {
			return e.Name, e.Model
		}
	}
	return "", ""
}

// ModelInfo returns the full provider table snapshot.
func (r *Router) ModelInfo() []Entry {
	return append([]Entry(nil), r.snapshot()...)
}
