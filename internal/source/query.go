package source

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"antifakenews/internal/models"
)

// DefaultPageSize is used when a query asks for a non-positive page size.
const DefaultPageSize = 10

// Query selects one page of the news collection.
type Query struct {
	PageSize int
	Page     int
	Filter   models.Filter
	Text     string
}

// Normalize clamps the page and page size to usable values.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}

	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}

	if q.Filter == "" {
		q.Filter = models.FilterAll
	}

	q.Text = strings.TrimSpace(q.Text)

	return q
}

// Offset returns the index of the first item on the page, saturating at
// math.MaxInt for pages too far out to address.
func (q Query) Offset() int {
	n := q.Normalize()
	if n.Page-1 > math.MaxInt/n.PageSize {
		return math.MaxInt
	}

	return (n.Page - 1) * n.PageSize
}

// Bounds returns the slice bounds of the page within a collection of size
// items. A page past the end yields start == end == size.
func (q Query) Bounds(size int) (int, int) {
	n := q.Normalize()
	if size <= 0 || n.Page-1 > (size-1)/n.PageSize {
		return max(size, 0), max(size, 0)
	}

	start := (n.Page - 1) * n.PageSize

	return start, start + min(n.PageSize, size-start)
}

// Apply filters by derived status, searches topic, summary and content
// case-insensitively, sorts newest first and returns the requested page along
// with the size of the filtered set. The input slice is not reordered.
func (q Query) Apply(items []*models.NewsItem) *Page {
	q = q.Normalize()
	needle := strings.ToLower(q.Text)

	matched := make([]*models.NewsItem, 0, len(items))

	for _, item := range items {
		if !q.Filter.Matches(models.StatusFromComments(item.Comments)) {
			continue
		}

		if needle != "" && !containsText(item, needle) {
			continue
		}

		matched = append(matched, item)
	}

	SortByDateDesc(matched)

	page := &Page{Total: len(matched), Items: []*models.NewsItem{}}

	if start, end := q.Bounds(len(matched)); start < end {
		page.Items = matched[start:end]
	}

	return page
}

func containsText(item *models.NewsItem, needle string) bool {
	return strings.Contains(strings.ToLower(item.Topic), needle) ||
		strings.Contains(strings.ToLower(item.ShortDetail), needle) ||
		strings.Contains(strings.ToLower(item.FullDetail), needle)
}

// SortByDateDesc orders items newest first. Items whose date cannot be parsed
// go last; equal dates keep their relative order.
func SortByDateDesc(items []*models.NewsItem) {
	type keyed struct {
		item *models.NewsItem
		at   time.Time
		ok   bool
	}

	keys := make([]keyed, len(items))

	for i, item := range items {
		at, err := dateparse.ParseAny(item.Date)
		keys[i] = keyed{item: item, at: at, ok: err == nil}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].ok != keys[j].ok {
			return keys[i].ok
		}

		return keys[i].at.After(keys[j].at)
	})

	for i := range keys {
		items[i] = keys[i].item
	}
}
