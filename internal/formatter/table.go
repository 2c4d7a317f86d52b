// Package formatter renders news, comments and source stats as aligned text
// tables for the terminal.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"antifakenews/internal/models"
	"antifakenews/internal/source"
)

// Cell width limits.
const (
	DefaultMaxCellWidth = 48
	minColumnWidth      = 3
	ellipsis            = "..."
)

// Table is a header row plus data rows.
type Table struct {
	Header       []string
	Rows         [][]string
	MaxCellWidth int
}

// NewTable creates a table with the given header and the default cell limit.
func NewTable(header ...string) *Table {
	return &Table{Header: header, MaxCellWidth: DefaultMaxCellWidth}
}

// Append adds a data row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Lines renders the table as pipe-delimited lines padded by display width, so
// Thai and CJK text lines up with ASCII.
func (t *Table) Lines() []string {
	rows := make([][]string, 0, len(t.Rows)+1)
	rows = append(rows, t.clean(t.Header))

	for _, r := range t.Rows {
		rows = append(rows, t.clean(r))
	}

	colCount := 0
	for _, r := range rows {
		colCount = max(colCount, len(r))
	}

	widths := make([]int, colCount)
	for i := range widths {
		widths[i] = minColumnWidth
	}

	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	for i, r := range rows {
		lines = append(lines, joinRow(r, widths))

		if i == 0 {
			sep := make([]string, colCount)
			for j, w := range widths {
				sep[j] = strings.Repeat("-", w)
			}

			lines = append(lines, joinRow(sep, widths))
		}
	}

	return lines
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	for _, line := range t.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// String returns the rendered table.
func (t *Table) String() string {
	return strings.Join(t.Lines(), "\n")
}

func (t *Table) clean(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", "/")
		out[i] = Truncate(NormalizeWhitespace(c), t.MaxCellWidth)
	}

	return out
}

func joinRow(cells []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for i, w := range widths {
		content := ""
		if i < len(cells) {
			content = cells[i]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if pad := w - runewidth.StringWidth(content); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// NormalizeWhitespace replaces runs of whitespace, including newlines, with a
// single space.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most width display columns, ending with "...".
// A width below 1 disables truncation.
func Truncate(s string, width int) string {
	if width < 1 || runewidth.StringWidth(s) <= width {
		return s
	}

	if width <= len(ellipsis) {
		return runewidth.Truncate(s, width, "")
	}

	return runewidth.Truncate(s, width, ellipsis)
}

// statusLabel marks fake items so they stand out in a list.
func statusLabel(status models.VoteKey) string {
	if status == models.VoteFake {
		return "❌ fake"
	}

	return "✅ not-fake"
}

// NewsTable lists news items with their displayed status and tally.
func NewsTable(items []*models.NewsItem) *Table {
	t := NewTable("ID", "Status", "Date", "Topic", "Reporter", "Votes")

	for _, item := range items {
		t.Append(
			strconv.Itoa(item.ID),
			statusLabel(item.Status),
			item.Date,
			item.Topic,
			item.Reporter,
			FormatVotes(item.Votes),
		)
	}

	return t
}

// CommentsTable lists comments in the order given.
func CommentsTable(comments []models.Comment) *Table {
	t := NewTable("ID", "Date", "User", "Vote", "Comment", "Image")

	for _, c := range comments {
		img := ""
		if c.ImageURL != nil {
			img = *c.ImageURL
		}

		t.Append(strconv.Itoa(c.ID), c.Date, c.User, string(c.Vote), c.Comment, img)
	}

	return t
}

// VotesTable lists vote records.
func VotesTable(votes []models.Vote) *Table {
	t := NewTable("ID", "News", "User", "Vote")

	for _, v := range votes {
		t.Append(strconv.Itoa(v.ID), strconv.Itoa(v.NewsID), v.User, string(v.Vote))
	}

	return t
}

// StatsTable lists per-source attempt counts, sources sorted by name.
func StatsTable(stats source.AttemptStats) *Table {
	t := NewTable("Source", "Attempts", "Failures")

	names := make([]string, 0, len(stats.SourceAttempts))
	for name := range stats.SourceAttempts {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		t.Append(name, strconv.Itoa(stats.SourceAttempts[name]), strconv.Itoa(stats.SourceFailures[name]))
	}

	return t
}

// FormatVotes renders a tally as "fake/not-fake".
func FormatVotes(v models.Votes) string {
	return fmt.Sprintf("%d/%d", v.Fake, v.NotFake)
}

// NewsDetail renders one item as labelled lines followed by its full text.
func NewsDetail(item *models.NewsItem) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📰 #%d %s\n", item.ID, item.Topic)
	fmt.Fprintf(&sb, "   Status:   %s\n", statusLabel(item.Status))
	fmt.Fprintf(&sb, "   Reporter: %s\n", item.Reporter)
	fmt.Fprintf(&sb, "   Date:     %s\n", item.Date)
	fmt.Fprintf(&sb, "   Votes:    %d fake, %d not-fake\n", item.Votes.Fake, item.Votes.NotFake)
	fmt.Fprintf(&sb, "   Comments: %d\n", len(item.Comments))

	if item.ImageURL != "" {
		fmt.Fprintf(&sb, "   Image:    %s\n", item.ImageURL)
	}

	if item.ShortDetail != "" {
		fmt.Fprintf(&sb, "\n%s\n", item.ShortDetail)
	}

	if item.FullDetail != "" {
		fmt.Fprintf(&sb, "\n%s\n", item.FullDetail)
	}

	return sb.String()
}
