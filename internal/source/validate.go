package source

import (
	"errors"
	"fmt"

	"antifakenews/internal/models"
)

// Fixture validation errors.
var (
	ErrMissingNewsArray = errors.New("document has no \"news\" array")
	ErrInvalidNewsID    = errors.New("news id must be positive")
	ErrDuplicateNewsID  = errors.New("duplicate news id")
	ErrMissingTopic     = errors.New("news topic is required")
	ErrInvalidCommentID = errors.New("comment id must be positive")
)

// ValidateItems checks a news collection loaded from a fixture.
func ValidateItems(items []*models.NewsItem) error {
	if items == nil {
		return ErrMissingNewsArray
	}

	seen := make(map[int]struct{}, len(items))

	for i, item := range items {
		if item == nil || item.ID <= 0 {
			return fmt.Errorf("%w at index %d", ErrInvalidNewsID, i)
		}

		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w %d at index %d", ErrDuplicateNewsID, item.ID, i)
		}

		seen[item.ID] = struct{}{}

		if item.Topic == "" {
			return fmt.Errorf("%w: news %d", ErrMissingTopic, item.ID)
		}

		for j, c := range item.Comments {
			if c.ID <= 0 {
				return fmt.Errorf("%w: news %d comment %d", ErrInvalidCommentID, item.ID, j)
			}

			if !c.Vote.Valid() {
				return fmt.Errorf("%w: news %d comment %d", models.ErrInvalidVote, item.ID, c.ID)
			}
		}
	}

	return nil
}
