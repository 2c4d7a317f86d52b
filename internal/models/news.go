// Package models defines the news, comment and vote records shared by the
// data sources and the news store.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// VoteKey is the verdict a reader attaches to a vote or comment.
type VoteKey string

// Vote verdicts.
const (
	VoteFake    VoteKey = "fake"
	VoteNotFake VoteKey = "not-fake"
)

// Filter selects news items by their derived status.
type Filter string

// List filters.
const (
	FilterAll     Filter = "all"
	FilterFake    Filter = "fake"
	FilterNotFake Filter = "not-fake"
)

// Model errors.
var (
	ErrInvalidVote   = errors.New("vote must be 'fake' or 'not-fake'")
	ErrInvalidFilter = errors.New("filter must be 'all', 'fake' or 'not-fake'")
)

// ParseVoteKey converts user input into a VoteKey.
func ParseVoteKey(s string) (VoteKey, error) {
	switch VoteKey(strings.ToLower(strings.TrimSpace(s))) {
	case VoteFake:
		return VoteFake, nil
	case VoteNotFake:
		return VoteNotFake, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidVote, s)
}

// Valid reports whether v is one of the two verdicts.
func (v VoteKey) Valid() bool {
	return v == VoteFake || v == VoteNotFake
}

// ParseFilter converts user input into a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterFake:
		return FilterFake, nil
	case FilterNotFake:
		return FilterNotFake, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

// Matches reports whether an item with the given status passes the filter.
func (f Filter) Matches(status VoteKey) bool {
	switch f {
	case FilterFake:
		return status == VoteFake
	case FilterNotFake:
		return status == VoteNotFake
	default:
		return true
	}
}

// Votes is a fake / not-fake tally.
type Votes struct {
	Fake    int `json:"fake"`
	NotFake int `json:"not-fake"`
}

// Add increments the bucket for key.
func (v *Votes) Add(key VoteKey) {
	if key == VoteFake {
		v.Fake++

		return
	}

	v.NotFake++
}

// Plus returns the sum of two tallies.
func (v Votes) Plus(o Votes) Votes {
	return Votes{Fake: v.Fake + o.Fake, NotFake: v.NotFake + o.NotFake}
}

// Status is the majority verdict. Ties resolve to not-fake.
func (v Votes) Status() VoteKey {
	if v.Fake > v.NotFake {
		return VoteFake
	}

	return VoteNotFake
}

// Comment is a reader comment carrying a verdict.
type Comment struct {
	ID       int     `json:"id"`
	User     string  `json:"user"`
	Comment  string  `json:"comment"`
	Vote     VoteKey `json:"vote"`
	ImageURL *string `json:"imageUrl"`
	Date     string  `json:"date"`
}

// NewComment is the caller-supplied part of a comment; the store assigns the
// id and date.
type NewComment struct {
	User     string
	Comment  string
	Vote     VoteKey
	ImageURL *string
}

// Vote is a single vote record as served by the votes endpoint.
type Vote struct {
	ID     int     `json:"id"`
	NewsID int     `json:"newsId"`
	Vote   VoteKey `json:"vote"`
	User   string  `json:"user"`
}

// NewsItem is a news story with its verdict tally and comments (newest first).
type NewsItem struct {
	ID          int       `json:"id"`
	Topic       string    `json:"topic"`
	ShortDetail string    `json:"shortDetail"`
	FullDetail  string    `json:"fullDetail"`
	Status      VoteKey   `json:"status"`
	Reporter    string    `json:"reporter"`
	Date        string    `json:"date"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Votes       Votes     `json:"votes"`
	Comments    []Comment `json:"comments"`
}

// Clone returns a deep copy so callers can keep a baseline that later
// mutations of the original do not touch.
func (n *NewsItem) Clone() *NewsItem {
	c := *n
	c.Comments = CloneComments(n.Comments)

	return &c
}

// CloneComments copies a comment slice, including optional image pointers.
func CloneComments(in []Comment) []Comment {
	if in == nil {
		return nil
	}

	out := make([]Comment, len(in))
	copy(out, in)

	for i := range out {
		if out[i].ImageURL != nil {
			img := *out[i].ImageURL
			out[i].ImageURL = &img
		}
	}

	return out
}

// VotesFromComments tallies the verdicts carried by comments.
func VotesFromComments(comments []Comment) Votes {
	var v Votes

	for _, c := range comments {
		switch c.Vote {
		case VoteFake:
			v.Fake++
		case VoteNotFake:
			v.NotFake++
		}
	}

	return v
}

// StatusFromComments is the majority verdict over comments. Ties, including no
// comments at all, resolve to not-fake.
func StatusFromComments(comments []Comment) VoteKey {
	return VotesFromComments(comments).Status()
}
