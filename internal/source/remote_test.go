package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"antifakenews/internal/models"
)

// newMockAPI serves the testdata fixture the way json-server does.
func newMockAPI(t *testing.T) *httptest.Server {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", "db.json"))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	var doc FixtureDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(doc.News)
	})
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/news/"))
		for _, item := range doc.News {
			if item.ID == id {
				_ = json.NewEncoder(w).Encode(item)

				return
			}
		}

		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		newsID, _ := strconv.Atoi(r.URL.Query().Get("newsId"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("_limit"))
		page, _ := strconv.Atoi(r.URL.Query().Get("_page"))

		var all []models.Comment
		for _, item := range doc.News {
			if item.ID == newsID {
				all = item.Comments
			}
		}

		start := min((page-1)*limit, len(all))
		end := min(start+limit, len(all))

		w.Header().Set(TotalCountHeader, strconv.Itoa(len(all)))
		_ = json.NewEncoder(w).Encode(all[start:end])
	})
	mux.HandleFunc("/votes", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			w.WriteHeader(http.StatusNotAcceptable)

			return
		}

		_ = json.NewEncoder(w).Encode([]models.Vote{
			{ID: 1, NewsID: 1, Vote: models.VoteFake, User: "Nok"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestRemoteSource_List(t *testing.T) {
	srv := newMockAPI(t)
	src := NewRemoteSource(srv.URL+"/", 5*time.Second)

	page, err := src.List(context.Background(), Query{PageSize: 2, Page: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if page.Total != 5 || !equalIDs(ids(page.Items), []int{2, 4}) {
		t.Errorf("List = %v (total %d), want [2 4] (total 5)", ids(page.Items), page.Total)
	}

	page, err = src.List(context.Background(), Query{Filter: models.FilterFake})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if !equalIDs(ids(page.Items), []int{1, 5}) {
		t.Errorf("fake filter = %v, want [1 5]", ids(page.Items))
	}
}

func TestRemoteSource_Get(t *testing.T) {
	srv := newMockAPI(t)
	src := NewRemoteSource(srv.URL, 5*time.Second)

	item, err := src.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if item.Reporter != "Anan K." || len(item.Comments) != 1 {
		t.Errorf("Unexpected item: %+v", item)
	}

	if _, err := src.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(42) error = %v, want ErrNotFound", err)
	}
}

func TestRemoteSource_Comments(t *testing.T) {
	srv := newMockAPI(t)
	src := NewRemoteSource(srv.URL, 5*time.Second)

	page, err := src.Comments(context.Background(), 1, 2, 1)
	if err != nil {
		t.Fatalf("Comments failed: %v", err)
	}

	if page.Total != 3 || len(page.Comments) != 2 || page.Comments[0].ID != 101 {
		t.Errorf("Unexpected comments page: %+v", page)
	}
}

func TestRemoteSource_VotesSendsHeaders(t *testing.T) {
	srv := newMockAPI(t)
	src := NewRemoteSource(srv.URL, 5*time.Second)

	votes, err := src.Votes(context.Background(), 1)
	if err != nil {
		t.Fatalf("Votes failed: %v", err)
	}

	if len(votes) != 1 || votes[0].User != "Nok" {
		t.Errorf("Unexpected votes: %+v", votes)
	}
}

func TestRemoteSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantErr: ErrUnexpectedStatusCode,
		},
		{
			name:    "empty collection",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("[]")) },
			wantErr: ErrEmptyCollection,
		},
		{
			name:    "null collection",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("null")) },
			wantErr: ErrEmptyCollection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewRemoteSource(srv.URL, time.Second).List(context.Background(), Query{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("List error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoteSource_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	if _, err := NewRemoteSource(srv.URL, time.Second).List(context.Background(), Query{}); err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestHeaderTotal(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"present", "12", 12},
		{"padded", " 7 ", 7},
		{"absent", "", 3},
		{"garbage", "many", 3},
		{"negative", "-1", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set(TotalCountHeader, tt.value)
			}

			if got := HeaderTotal(h, 3); got != tt.want {
				t.Errorf("HeaderTotal(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
