package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"antifakenews/internal/models"
)

// FixtureDocument is the shape of the local fallback file.
type FixtureDocument struct {
	News []*models.NewsItem `json:"news"`
}

// FixtureSource serves news from a static JSON document on disk. The file is
// re-read on every call so edits show up without a restart.
type FixtureSource struct {
	path string
}

// NewFixtureSource creates a source reading the document at path.
func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{path: path}
}

// Name implements Source.
func (f *FixtureSource) Name() string {
	return "local"
}

// Path returns the fixture file path.
func (f *FixtureSource) Path() string {
	return f.path
}

// Load reads and validates the fixture document.
func (f *FixtureSource) Load() ([]*models.NewsItem, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", f.path, err)
	}

	return ParseFixture(content)
}

// ParseFixture decodes and validates a fixture document.
func ParseFixture(content []byte) ([]*models.NewsItem, error) {
	var doc FixtureDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	if err := ValidateItems(doc.News); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	return doc.News, nil
}

// List implements Source.
func (f *FixtureSource) List(ctx context.Context, q Query) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := f.Load()
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, ErrEmptyCollection
	}

	return q.Apply(items), nil
}

// Get implements Source.
func (f *FixtureSource) Get(ctx context.Context, id int) (*models.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := f.Load()
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}

	return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Comments implements Source by paginating the comments embedded in the item.
func (f *FixtureSource) Comments(ctx context.Context, newsID, pageSize, page int) (*CommentPage, error) {
	item, err := f.Get(ctx, newsID)
	if err != nil {
		return nil, err
	}

	result := &CommentPage{Total: len(item.Comments), Comments: []models.Comment{}}

	if start, end := (Query{PageSize: pageSize, Page: page}).Bounds(len(item.Comments)); start < end {
		result.Comments = item.Comments[start:end]
	}

	return result, nil
}

// Votes implements Source. The fixture has no separate vote records, so one
// record is derived from each comment.
func (f *FixtureSource) Votes(ctx context.Context, newsID int) ([]models.Vote, error) {
	item, err := f.Get(ctx, newsID)
	if err != nil {
		return nil, err
	}

	votes := make([]models.Vote, 0, len(item.Comments))
	for _, c := range item.Comments {
		votes = append(votes, models.Vote{ID: c.ID, NewsID: item.ID, Vote: c.Vote, User: c.User})
	}

	return votes, nil
}
