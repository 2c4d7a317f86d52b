package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"antifakenews/internal/models"
)

// TotalCountHeader carries the unpaginated size of a collection.
const TotalCountHeader = "X-Total-Count"

// maxBodyBytes bounds how much of a response body is decoded.
const maxBodyBytes = 8 << 20

// RemoteSource talks to the json-server style mock API. Each call is a single
// attempt; fallback is the adapter's job.
type RemoteSource struct {
	client  *http.Client
	baseURL string
	headers http.Header
}

// NewRemoteSource creates a remote source for baseURL with the given timeout.
func NewRemoteSource(baseURL string, timeout time.Duration) *RemoteSource {
	return NewRemoteSourceWithClient(baseURL, &http.Client{Timeout: timeout})
}

// NewRemoteSourceWithClient creates a remote source using an existing client.
func NewRemoteSourceWithClient(baseURL string, client *http.Client) *RemoteSource {
	return &RemoteSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: BuildHeaders(nil),
	}
}

// BuildHeaders creates request headers with defaults plus custom values.
func BuildHeaders(custom map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", "anti-fake-news/1.0")
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")

	for key, value := range custom {
		headers.Set(key, value)
	}

	return headers
}

// Name implements Source.
func (r *RemoteSource) Name() string {
	return "remote"
}

// BaseURL returns the API root.
func (r *RemoteSource) BaseURL() string {
	return r.baseURL
}

// FetchAll downloads the whole news collection.
func (r *RemoteSource) FetchAll(ctx context.Context) ([]*models.NewsItem, error) {
	var items []*models.NewsItem

	if _, err := r.getJSON(ctx, "/news", nil, &items); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, ErrEmptyCollection
	}

	return items, nil
}

// List implements Source. The full collection is fetched and the query is
// applied locally so remote and fixture listings agree.
func (r *RemoteSource) List(ctx context.Context, q Query) (*Page, error) {
	items, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	return q.Apply(items), nil
}

// Get implements Source.
func (r *RemoteSource) Get(ctx context.Context, id int) (*models.NewsItem, error) {
	var item models.NewsItem

	if _, err := r.getJSON(ctx, fmt.Sprintf("/news/%d", id), nil, &item); err != nil {
		return nil, err
	}

	if item.ID == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return &item, nil
}

// Comments implements Source using server-side pagination.
func (r *RemoteSource) Comments(ctx context.Context, newsID, pageSize, page int) (*CommentPage, error) {
	q := Query{PageSize: pageSize, Page: page}.Normalize()
	params := url.Values{}
	params.Set("newsId", strconv.Itoa(newsID))
	params.Set("_limit", strconv.Itoa(q.PageSize))
	params.Set("_page", strconv.Itoa(q.Page))

	var comments []models.Comment

	header, err := r.getJSON(ctx, "/comments", params, &comments)
	if err != nil {
		return nil, err
	}

	if comments == nil {
		comments = []models.Comment{}
	}

	return &CommentPage{
		Comments: comments,
		Total:    HeaderTotal(header, len(comments)),
	}, nil
}

// Votes implements Source.
func (r *RemoteSource) Votes(ctx context.Context, newsID int) ([]models.Vote, error) {
	params := url.Values{}
	params.Set("newsId", strconv.Itoa(newsID))

	var votes []models.Vote

	if _, err := r.getJSON(ctx, "/votes", params, &votes); err != nil {
		return nil, err
	}

	if votes == nil {
		votes = []models.Vote{}
	}

	return votes, nil
}

// HeaderTotal reads X-Total-Count, returning fallback when it is absent or
// not a non-negative integer.
func HeaderTotal(header http.Header, fallback int) int {
	raw := strings.TrimSpace(header.Get(TotalCountHeader))
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}

	return n
}

func (r *RemoteSource) getJSON(ctx context.Context, path string, params url.Values, out any) (http.Header, error) {
	target := r.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range r.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return resp.Header, nil
}
