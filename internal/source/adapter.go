package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"antifakenews/internal/logger"
	"antifakenews/internal/models"
)

// Adapter tries its sources in preference order, once each, and returns the
// first successful answer.
type Adapter struct {
	log     *logger.Logger
	sources []Source

	mu       sync.Mutex
	attempts []AttemptResult
}

// AttemptResult records one call against one source.
type AttemptResult struct {
	Timestamp time.Time
	Source    string
	Operation string
	Error     string
	Duration  time.Duration
	Success   bool
}

// AttemptStats summarises the attempt log.
type AttemptStats struct {
	SourceAttempts map[string]int
	SourceFailures map[string]int
	Total          int
	Successful     int
	Failed         int
	Fallbacks      int
}

// String returns a one-line summary of the stats.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"Attempts: %d total, %d success, %d failed, %d fallbacks",
		s.Total,
		s.Successful,
		s.Failed,
		s.Fallbacks,
	)
}

// NewAdapter creates an adapter over sources in the order given.
func NewAdapter(log *logger.Logger, sources ...Source) *Adapter {
	return &Adapter{
		log:     log.With("component", "source"),
		sources: sources,
	}
}

// Sources returns the configured sources in preference order.
func (a *Adapter) Sources() []Source {
	return a.sources
}

// List returns one page of news from the first source that has any.
func (a *Adapter) List(ctx context.Context, q Query) (*Page, error) {
	var page *Page

	err := a.try(ctx, "list", func(s Source) error {
		p, err := s.List(ctx, q)
		if err != nil {
			return err
		}

		page = p

		return nil
	})

	return page, err
}

// Get returns a single news item from the first source that has it.
func (a *Adapter) Get(ctx context.Context, id int) (*models.NewsItem, error) {
	var item *models.NewsItem

	err := a.try(ctx, "get", func(s Source) error {
		it, err := s.Get(ctx, id)
		if err != nil {
			return err
		}

		item = it

		return nil
	})

	return item, err
}

// Comments returns one page of comments for a news item.
func (a *Adapter) Comments(ctx context.Context, newsID, pageSize, page int) (*CommentPage, error) {
	var result *CommentPage

	err := a.try(ctx, "comments", func(s Source) error {
		p, err := s.Comments(ctx, newsID, pageSize, page)
		if err != nil {
			return err
		}

		result = p

		return nil
	})

	return result, err
}

// Votes returns the vote records for a news item.
func (a *Adapter) Votes(ctx context.Context, newsID int) ([]models.Vote, error) {
	var votes []models.Vote

	err := a.try(ctx, "votes", func(s Source) error {
		v, err := s.Votes(ctx, newsID)
		if err != nil {
			return err
		}

		votes = v

		return nil
	})

	return votes, err
}

// try runs op against each source until one succeeds. If every source
// reported not-found the result is ErrNotFound, otherwise the last error is
// wrapped in ErrAllSourcesFailed.
func (a *Adapter) try(ctx context.Context, operation string, op func(Source) error) error {
	if len(a.sources) == 0 {
		return ErrNoSources
	}

	var lastErr error

	allNotFound := true

	for i, s := range a.sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := op(s)
		a.record(s.Name(), operation, err, time.Since(start))

		if err == nil {
			if i > 0 {
				a.log.Info("served from fallback source", "operation", operation, "source", s.Name())
			}

			return nil
		}

		a.log.Warn("source failed", "operation", operation, "source", s.Name(), "error", err)

		if !errors.Is(err, ErrNotFound) {
			allNotFound = false
		}

		lastErr = err
	}

	if allNotFound {
		return lastErr
	}

	return fmt.Errorf("%w: %w", ErrAllSourcesFailed, lastErr)
}

func (a *Adapter) record(source, operation string, err error, duration time.Duration) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.attempts = append(a.attempts, AttemptResult{
		Timestamp: time.Now(),
		Source:    source,
		Operation: operation,
		Error:     errMsg,
		Duration:  duration,
		Success:   err == nil,
	})
}

// Attempts returns a copy of the attempt log.
func (a *Adapter) Attempts() []AttemptResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]AttemptResult, len(a.attempts))
	copy(out, a.attempts)

	return out
}

// Stats aggregates the attempt log. A fallback is a successful attempt that
// was not made against the first source.
func (a *Adapter) Stats() AttemptStats {
	stats := AttemptStats{
		SourceAttempts: make(map[string]int),
		SourceFailures: make(map[string]int),
	}

	primary := ""
	if len(a.sources) > 0 {
		primary = a.sources[0].Name()
	}

	for _, r := range a.Attempts() {
		stats.Total++
		stats.SourceAttempts[r.Source]++

		if !r.Success {
			stats.Failed++
			stats.SourceFailures[r.Source]++

			continue
		}

		stats.Successful++

		if r.Source != primary {
			stats.Fallbacks++
		}
	}

	return stats
}

// LogSummary logs the per-source attempt counts and overall stats.
func (a *Adapter) LogSummary(l *logger.Logger) {
	stats := a.Stats()

	for _, s := range a.sources {
		l.Info("source attempts",
			"source", s.Name(),
			"attempts", stats.SourceAttempts[s.Name()],
			"failures", stats.SourceFailures[s.Name()],
		)
	}

	l.Info(stats.String())
}

// Reset clears the attempt log.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attempts = nil
}
