package normalizer

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"antifakenews/internal/models"
	"antifakenews/internal/source"
)

// Transformer applies the fixture rewrite rules in place.
type Transformer struct {
	// RecountVotes replaces each tally with the verdicts of its comments.
	RecountVotes bool
}

// NewTransformer creates a transformer that keeps existing tallies.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform trims text fields, orders comments and news newest first and
// derives every status from the comments.
func (t *Transformer) Transform(items []*models.NewsItem) Report {
	report := Report{Items: len(items)}

	for _, item := range items {
		item.Topic = strings.TrimSpace(item.Topic)
		item.ShortDetail = strings.TrimSpace(item.ShortDetail)
		item.FullDetail = strings.TrimSpace(item.FullDetail)
		item.Reporter = strings.TrimSpace(item.Reporter)

		if item.Comments == nil {
			item.Comments = []models.Comment{}
		}

		report.Comments += len(item.Comments)

		if sortCommentsByDateDesc(item.Comments) {
			report.CommentsReordered++
		}

		if status := models.StatusFromComments(item.Comments); status != item.Status {
			item.Status = status
			report.StatusChanged++
		}

		if t.RecountVotes {
			if votes := models.VotesFromComments(item.Comments); votes != item.Votes {
				item.Votes = votes
				report.VotesRecounted++
			}
		}
	}

	source.SortByDateDesc(items)

	return report
}

// sortCommentsByDateDesc orders comments newest first, unparseable dates last,
// and reports whether the order changed.
func sortCommentsByDateDesc(comments []models.Comment) bool {
	type keyed struct {
		at time.Time
		ok bool
	}

	keys := make([]keyed, len(comments))

	for i, c := range comments {
		at, err := dateparse.ParseAny(c.Date)
		keys[i] = keyed{at: at, ok: err == nil}
	}

	order := make([]int, len(comments))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := keys[order[i]], keys[order[j]]
		if a.ok != b.ok {
			return a.ok
		}

		return a.at.After(b.at)
	})

	changed := false

	sorted := make([]models.Comment, len(comments))
	for i, idx := range order {
		sorted[i] = comments[idx]

		if idx != i {
			changed = true
		}
	}

	copy(comments, sorted)

	return changed
}
