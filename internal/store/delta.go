package store

import (
	"encoding/json"
	"fmt"

	"antifakenews/internal/models"
)

// Delta is the locally added content, kept apart from server data so it can be
// persisted and replayed over a fresh fetch.
type Delta struct {
	Enabled  bool                     `json:"enabled"`
	Votes    map[int]models.Votes     `json:"votes"`
	Comments map[int][]models.Comment `json:"comments"`
}

// NewDelta returns an empty delta with persistence enabled.
func NewDelta() *Delta {
	return &Delta{
		Enabled:  true,
		Votes:    make(map[int]models.Votes),
		Comments: make(map[int][]models.Comment),
	}
}

// Clone returns a deep copy of the delta.
func (d *Delta) Clone() *Delta {
	out := &Delta{
		Enabled:  d.Enabled,
		Votes:    make(map[int]models.Votes, len(d.Votes)),
		Comments: make(map[int][]models.Comment, len(d.Comments)),
	}

	for id, v := range d.Votes {
		out.Votes[id] = v
	}

	for id, c := range d.Comments {
		out.Comments[id] = models.CloneComments(c)
	}

	return out
}

// Reset drops every added vote and comment. The enabled flag is kept.
func (d *Delta) Reset() {
	d.Votes = make(map[int]models.Votes)
	d.Comments = make(map[int][]models.Comment)
}

// Empty reports whether the delta holds no added content.
func (d *Delta) Empty() bool {
	return len(d.Votes) == 0 && len(d.Comments) == 0
}

// EncodeDelta serializes a delta to its stored JSON form.
func EncodeDelta(d *Delta) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delta: %w", err)
	}

	return data, nil
}

// DecodeDelta parses a stored delta. Absent maps decode as empty ones and
// comments carrying an unknown vote are dropped.
func DecodeDelta(data []byte) (*Delta, error) {
	var d Delta
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDelta, err)
	}

	if d.Votes == nil {
		d.Votes = make(map[int]models.Votes)
	}

	if d.Comments == nil {
		d.Comments = make(map[int][]models.Comment)
	}

	for id, comments := range d.Comments {
		kept := comments[:0]

		for _, c := range comments {
			if c.Vote.Valid() {
				kept = append(kept, c)
			}
		}

		if len(kept) == 0 {
			delete(d.Comments, id)

			continue
		}

		d.Comments[id] = kept
	}

	return &d, nil
}
