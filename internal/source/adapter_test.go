package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"antifakenews/internal/logger"
	"antifakenews/internal/models"
)

// stubSource answers every call with the same item or error.
type stubSource struct {
	name  string
	item  *models.NewsItem
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) List(_ context.Context, q Query) (*Page, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	return q.Apply([]*models.NewsItem{s.item}), nil
}

func (s *stubSource) Get(_ context.Context, id int) (*models.NewsItem, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	if id != s.item.ID {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return s.item, nil
}

func (s *stubSource) Comments(_ context.Context, _, _, _ int) (*CommentPage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	return &CommentPage{Comments: s.item.Comments, Total: len(s.item.Comments)}, nil
}

func (s *stubSource) Votes(_ context.Context, newsID int) ([]models.Vote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	return []models.Vote{{ID: 1, NewsID: newsID, Vote: models.VoteFake}}, nil
}

func newsItem(id int, topic string) *models.NewsItem {
	return &models.NewsItem{ID: id, Topic: topic, Date: "2025-01-01"}
}

func TestAdapter_FallbackOrder(t *testing.T) {
	errBoom := errors.New("connection refused")

	tests := []struct {
		name      string
		sources   []*stubSource
		wantTopic string
		wantCalls []int
		wantErr   error
	}{
		{
			name: "primary answers",
			sources: []*stubSource{
				{name: "remote", item: newsItem(1, "from remote")},
				{name: "local", item: newsItem(1, "from local")},
			},
			wantTopic: "from remote",
			wantCalls: []int{1, 0},
		},
		{
			name: "primary fails",
			sources: []*stubSource{
				{name: "remote", err: errBoom},
				{name: "local", item: newsItem(1, "from local")},
			},
			wantTopic: "from local",
			wantCalls: []int{1, 1},
		},
		{
			name: "primary empty",
			sources: []*stubSource{
				{name: "remote", err: ErrEmptyCollection},
				{name: "local", item: newsItem(1, "from local")},
			},
			wantTopic: "from local",
			wantCalls: []int{1, 1},
		},
		{
			name: "every source fails",
			sources: []*stubSource{
				{name: "remote", err: errBoom},
				{name: "local", err: ErrEmptyCollection},
			},
			wantCalls: []int{1, 1},
			wantErr:   ErrAllSourcesFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcs := make([]Source, 0, len(tt.sources))
			for _, s := range tt.sources {
				srcs = append(srcs, s)
			}

			a := NewAdapter(logger.Discard(), srcs...)

			page, err := a.List(context.Background(), Query{})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("List error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("List failed: %v", err)
				}

				if page.Items[0].Topic != tt.wantTopic {
					t.Errorf("Topic = %q, want %q", page.Items[0].Topic, tt.wantTopic)
				}
			}

			for i, s := range tt.sources {
				if s.calls != tt.wantCalls[i] {
					t.Errorf("source %s called %d times, want %d", s.name, s.calls, tt.wantCalls[i])
				}
			}
		})
	}
}

func TestAdapter_AllFailedKeepsLastError(t *testing.T) {
	errBoom := errors.New("connection refused")
	a := NewAdapter(logger.Discard(),
		&stubSource{name: "remote", err: ErrEmptyCollection},
		&stubSource{name: "local", err: errBoom},
	)

	_, err := a.Votes(context.Background(), 1)
	if !errors.Is(err, ErrAllSourcesFailed) || !errors.Is(err, errBoom) {
		t.Fatalf("Votes error = %v, want ErrAllSourcesFailed wrapping the last error", err)
	}
}

func TestAdapter_GetNotFoundEverywhere(t *testing.T) {
	a := NewAdapter(logger.Discard(),
		&stubSource{name: "remote", item: newsItem(1, "one")},
		&stubSource{name: "local", item: newsItem(2, "two")},
	)

	_, err := a.Get(context.Background(), 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}

	if errors.Is(err, ErrAllSourcesFailed) {
		t.Errorf("not-found everywhere should not be reported as a source failure")
	}

	item, err := a.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get(2) failed: %v", err)
	}

	if item.Topic != "two" {
		t.Errorf("Get(2).Topic = %q", item.Topic)
	}
}

func TestAdapter_NoSources(t *testing.T) {
	a := NewAdapter(logger.Discard())

	if _, err := a.Comments(context.Background(), 1, 10, 1); !errors.Is(err, ErrNoSources) {
		t.Fatalf("Comments error = %v, want ErrNoSources", err)
	}
}

func TestAdapter_CanceledContext(t *testing.T) {
	src := &stubSource{name: "remote", item: newsItem(1, "one")}
	a := NewAdapter(logger.Discard(), src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Get(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Get error = %v, want context.Canceled", err)
	}

	if src.calls != 0 {
		t.Errorf("source called %d times after cancel", src.calls)
	}
}

func TestAdapter_Stats(t *testing.T) {
	remote := &stubSource{name: "remote", err: errors.New("timeout")}
	local := &stubSource{name: "local", item: newsItem(1, "one")}
	a := NewAdapter(logger.Discard(), remote, local)

	for _i := 0; _i < 3; _i++ {
		if _, err := a.Get(context.Background(), 1); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	stats := a.Stats()

	if stats.Total != 6 || stats.Successful != 3 || stats.Failed != 3 || stats.Fallbacks != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	if stats.SourceFailures["remote"] != 3 || stats.SourceAttempts["local"] != 3 {
		t.Errorf("Unexpected per-source stats: %+v", stats)
	}

	if got := stats.String(); got != "Attempts: 6 total, 3 success, 3 failed, 3 fallbacks" {
		t.Errorf("String() = %q", got)
	}

	attempts := a.Attempts()
	if attempts[0].Source != "remote" || attempts[0].Success || attempts[0].Error != "timeout" {
		t.Errorf("Unexpected first attempt: %+v", attempts[0])
	}

	a.Reset()

	if n := len(a.Attempts()); n != 0 {
		t.Errorf("Attempts after Reset = %d", n)
	}
}

func TestAdapter_LogSummary(t *testing.T) {
	var buf bytes.Buffer

	a := NewAdapter(logger.Discard(), &stubSource{name: "remote", item: newsItem(1, "one")})
	if _, err := a.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	a.LogSummary(logger.NewLoggerWithWriter("info", &buf))

	out := buf.String()
	if !strings.Contains(out, "source=remote") || !strings.Contains(out, "1 success") {
		t.Errorf("Unexpected summary output: %s", out)
	}
}
