// Package normalizer rewrites news fixtures into the canonical form the client
// expects: validated, statuses derived from comments, newest first.
package normalizer

import (
	"fmt"

	"antifakenews/internal/models"
	"antifakenews/internal/source"
)

// Report summarises what a run changed.
type Report struct {
	Items             int
	Comments          int
	StatusChanged     int
	VotesRecounted    int
	CommentsReordered int
}

// String returns a one-line summary of the report.
func (r Report) String() string {
	return fmt.Sprintf(
		"%d items, %d comments, %d statuses fixed, %d tallies recounted, %d comment lists reordered",
		r.Items,
		r.Comments,
		r.StatusChanged,
		r.VotesRecounted,
		r.CommentsReordered,
	)
}

// Processor validates then transforms a fixture.
type Processor struct {
	transformer *Transformer
}

// NewProcessor creates a processor with the default transformer.
func NewProcessor() *Processor {
	return NewProcessorWithTransformer(NewTransformer())
}

// NewProcessorWithTransformer creates a processor with a custom transformer.
func NewProcessorWithTransformer(t *Transformer) *Processor {
	return &Processor{transformer: t}
}

// Process returns a normalized copy of doc. The input is not modified.
func (p *Processor) Process(doc *source.FixtureDocument) (*source.FixtureDocument, Report, error) {
	// 1. Validate the input data
	if err := source.ValidateItems(doc.News); err != nil {
		return nil, Report{}, fmt.Errorf("validation failed: %w", err)
	}

	// 2. Transform a copy
	items := make([]*models.NewsItem, 0, len(doc.News))
	for _, item := range doc.News {
		items = append(items, item.Clone())
	}

	report := p.transformer.Transform(items)

	return &source.FixtureDocument{News: items}, report, nil
}
