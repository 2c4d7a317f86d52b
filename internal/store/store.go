// Package store holds the canonical in-memory news cache and the locally added
// votes and comments layered over it.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"antifakenews/internal/logger"
	"antifakenews/internal/models"
	"antifakenews/internal/source"
)

// TimestampFormat is the layout of generated comment dates (ISO-8601 UTC with
// milliseconds).
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Store errors.
var (
	ErrNewsNotFound = errors.New("news item not found")
	ErrCorruptDelta = errors.New("stored delta is corrupt")
)

// Fetcher is the read side of the data source adapter.
type Fetcher interface {
	List(ctx context.Context, q source.Query) (*source.Page, error)
	Get(ctx context.Context, id int) (*models.NewsItem, error)
}

// Store owns the id map, the current page list and the delta.
//
// Items handed out by the store are shared: list and detail callers observe
// the same pointer, and the store rewrites it in place whenever server data or
// the delta changes. Every rewrite happens under the store lock.
type Store struct {
	log       *logger.Logger
	fetcher   Fetcher
	persister Persister
	now       func() time.Time

	mu        sync.Mutex
	itemsByID map[int]*models.NewsItem
	baseline  map[int]*models.NewsItem
	list      []*models.NewsItem
	total     int
	loading   int
	delta     *Delta
	lastID    int
}

// NewStore creates a store and hydrates the delta from persister once.
func NewStore(ctx context.Context, log *logger.Logger, fetcher Fetcher, persister Persister) *Store {
	return NewStoreWithClock(ctx, log, fetcher, persister, time.Now)
}

// NewStoreWithClock creates a store whose comment ids and dates come from now.
func NewStoreWithClock(ctx context.Context, log *logger.Logger, fetcher Fetcher, persister Persister, now func() time.Time) *Store {
	s := &Store{
		log:       log.With("component", "store"),
		fetcher:   fetcher,
		persister: persister,
		now:       now,
		itemsByID: make(map[int]*models.NewsItem),
		baseline:  make(map[int]*models.NewsItem),
		delta:     NewDelta(),
	}

	s.hydrate(ctx)

	return s
}

func (s *Store) hydrate(ctx context.Context) {
	if s.persister == nil {
		return
	}

	d, err := s.persister.Load(ctx)
	if err != nil {
		s.log.Warn("ignoring unreadable stored delta", "error", err)

		return
	}

	if d == nil {
		return
	}

	s.delta = d

	for _, comments := range d.Comments {
		for _, c := range comments {
			s.lastID = max(s.lastID, c.ID)
		}
	}

	s.log.Debug("hydrated delta", "enabled", d.Enabled, "votes", len(d.Votes), "comments", len(d.Comments))
}

// FetchList replaces the current page list with one page from the fetcher and
// sets the total. Each item is merged into the id map. An unknown filter
// returns models.ErrInvalidFilter without fetching.
func (s *Store) FetchList(ctx context.Context, pageSize, page int, filter models.Filter, text string) ([]*models.NewsItem, error) {
	filter, err := models.ParseFilter(string(filter))
	if err != nil {
		return nil, err
	}

	s.begin()
	defer s.end()

	res, err := s.fetcher.List(ctx, source.Query{
		PageSize: pageSize,
		Page:     page,
		Filter:   filter,
		Text:     text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.list = make([]*models.NewsItem, 0, len(res.Items))
	for _, raw := range res.Items {
		s.list = append(s.list, s.upsertLocked(raw))
	}

	s.total = res.Total

	return s.listLocked(), nil
}

// FetchOne returns the cached item, fetching and inserting it on a miss. A
// freshly fetched item replaces its slot in the current list.
func (s *Store) FetchOne(ctx context.Context, id int) (*models.NewsItem, error) {
	s.mu.Lock()
	if item, ok := s.itemsByID[id]; ok {
		s.mu.Unlock()

		return item, nil
	}
	s.mu.Unlock()

	s.begin()
	defer s.end()

	raw, err := s.fetcher.Get(ctx, id)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d: %w", ErrNewsNotFound, id, err)
		}

		return nil, fmt.Errorf("failed to fetch news %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shared := s.upsertLocked(raw)

	for i, item := range s.list {
		if item.ID == id {
			s.list[i] = shared
		}
	}

	return shared, nil
}

// AddVote records a local vote for an item.
func (s *Store) AddVote(ctx context.Context, id int, vote models.VoteKey) error {
	if !vote.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidVote, vote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNewsNotFound, id)
	}

	v := s.delta.Votes[id]
	v.Add(vote)
	s.delta.Votes[id] = v

	s.rebuildLocked(item)

	if s.delta.Enabled {
		s.saveLocked(ctx)
	}

	return nil
}

// AddComment prepends a local comment to an item and returns its generated id.
func (s *Store) AddComment(ctx context.Context, id int, in models.NewComment) (int, error) {
	if !in.Vote.Valid() {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidVote, in.Vote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNewsNotFound, id)
	}

	now := s.now().UTC()
	c := models.Comment{
		ID:       s.nextIDLocked(now, item),
		User:     in.User,
		Comment:  in.Comment,
		Vote:     in.Vote,
		ImageURL: in.ImageURL,
		Date:     now.Format(TimestampFormat),
	}

	s.delta.Comments[id] = append([]models.Comment{c}, s.delta.Comments[id]...)

	s.rebuildLocked(item)

	if s.delta.Enabled {
		s.saveLocked(ctx)
	}

	return c.ID, nil
}

// TogglePersist turns persistence on or off. The flag itself is always saved.
func (s *Store) TogglePersist(ctx context.Context, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delta.Enabled = on
	s.saveLocked(ctx)
}

// ClearPersist drops every local vote and comment and saves the empty delta.
func (s *Store) ClearPersist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delta.Reset()

	for _, item := range s.itemsByID {
		s.rebuildLocked(item)
	}

	s.saveLocked(ctx)
}

// GetByID returns the shared cached item.
func (s *Store) GetByID(id int) (*models.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNewsNotFound, id)
	}

	return item, nil
}

// List returns the current page list.
func (s *Store) List() []*models.NewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked()
}

// Total returns the filtered size reported by the last FetchList.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.total
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading > 0
}

// CombinedComments returns local comments followed by server comments, newest
// first, with duplicates removed by id.
func (s *Store) CombinedComments(id int) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return models.CloneComments(s.delta.Comments[id])
	}

	return models.CloneComments(item.Comments)
}

// AggregatedVotes is the vote tally: server votes plus local votes plus the
// verdicts of local comments.
func (s *Store) AggregatedVotes(id int) models.Votes {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.itemsByID[id]; ok {
		return item.Votes
	}

	return s.delta.Votes[id].Plus(models.VotesFromComments(s.delta.Comments[id]))
}

// AggregatedStatus is the majority of AggregatedVotes.
func (s *Store) AggregatedStatus(id int) models.VoteKey {
	return s.AggregatedVotes(id).Status()
}

// VotesFromComments tallies the verdicts of the combined comments.
func (s *Store) VotesFromComments(id int) models.Votes {
	return models.VotesFromComments(s.CombinedComments(id))
}

// StatusFromComments is the majority verdict of the combined comments.
func (s *Store) StatusFromComments(id int) models.VoteKey {
	return s.VotesFromComments(id).Status()
}

// DisplayStatus is the status shown for an item.
func (s *Store) DisplayStatus(id int) models.VoteKey {
	return s.StatusFromComments(id)
}

// AddedVotes returns the local vote tally for an item.
func (s *Store) AddedVotes(id int) models.Votes {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delta.Votes[id]
}

// AddedComments returns the local comments for an item, newest first.
func (s *Store) AddedComments(id int) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.CloneComments(s.delta.Comments[id])
}

// PersistEnabled reports whether mutations are being saved.
func (s *Store) PersistEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delta.Enabled
}

// Delta returns a copy of the current delta.
func (s *Store) Delta() *Delta {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delta.Clone()
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

func (s *Store) listLocked() []*models.NewsItem {
	out := make([]*models.NewsItem, len(s.list))
	copy(out, s.list)

	return out
}

// upsertLocked stores raw as the server baseline for its id and returns the
// shared item, rebuilt in place when it already exists.
func (s *Store) upsertLocked(raw *models.NewsItem) *models.NewsItem {
	s.baseline[raw.ID] = raw.Clone()

	item, ok := s.itemsByID[raw.ID]
	if !ok {
		item = &models.NewsItem{ID: raw.ID}
		s.itemsByID[raw.ID] = item
	}

	s.rebuildLocked(item)

	return item
}

// rebuildLocked rewrites item as its baseline with the delta applied.
func (s *Store) rebuildLocked(item *models.NewsItem) {
	base, ok := s.baseline[item.ID]
	if !ok {
		return
	}

	merged := base.Clone()
	added := s.delta.Comments[item.ID]

	seen := make(map[int]bool, len(added))
	comments := make([]models.Comment, 0, len(added)+len(base.Comments))

	for _, c := range models.CloneComments(added) {
		seen[c.ID] = true
		comments = append(comments, c)
	}

	for _, c := range merged.Comments {
		if !seen[c.ID] {
			comments = append(comments, c)
		}
	}

	merged.Comments = comments
	merged.Votes = base.Votes.
		Plus(s.delta.Votes[item.ID]).
		Plus(models.VotesFromComments(added))
	merged.Status = models.StatusFromComments(comments)

	*item = *merged
}

// nextIDLocked derives a comment id from the clock plus a random offset, then
// bumps it until it is above every id handed out before and unused on item.
func (s *Store) nextIDLocked(now time.Time, item *models.NewsItem) int {
	id := int(now.UnixMilli()) + rand.Intn(1000)
	if id <= s.lastID {
		id = s.lastID + 1
	}

	taken := make(map[int]bool, len(item.Comments))
	for _, c := range item.Comments {
		taken[c.ID] = true
	}

	for taken[id] {
		id++
	}

	s.lastID = id

	return id
}

func (s *Store) saveLocked(ctx context.Context) {
	if s.persister == nil {
		return
	}

	if err := s.persister.Save(ctx, s.delta.Clone()); err != nil {
		s.log.Warn("failed to persist delta", "error", err)
	}
}
