// Package source fetches news collections from the remote mock API or a local
// JSON fixture and answers list queries over them in memory.
package source

import (
	"context"
	"errors"

	"antifakenews/internal/models"
)

// Source errors.
var (
	ErrNotFound             = errors.New("news not found")
	ErrEmptyCollection      = errors.New("source returned an empty news collection")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrAllSourcesFailed     = errors.New("all sources failed")
	ErrNoSources            = errors.New("no sources configured")
	ErrInvalidFixture       = errors.New("invalid fixture document")
)

// Page is one page of a filtered news listing.
type Page struct {
	Items []*models.NewsItem
	Total int
}

// CommentPage is one page of the comments attached to a news item.
type CommentPage struct {
	Comments []models.Comment
	Total    int
}

// Source is anything that can serve the news collection.
type Source interface {
	Name() string
	List(ctx context.Context, q Query) (*Page, error)
	Get(ctx context.Context, id int) (*models.NewsItem, error)
	Comments(ctx context.Context, newsID, pageSize, page int) (*CommentPage, error)
	Votes(ctx context.Context, newsID int) ([]models.Vote, error)
}
