package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope-backend/internal/branches/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.gh.BaseURL = base
	return c
}

func TestListBranches_FirstPage(t *testing.T) {
	var metadataCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello-world/branches", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/octocat/hello-world/branches?page=2>; rel="next"`, r.Host))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]string{{"name": "develop"}, {"name": "feature-a"}})
	})
	mux.HandleFunc("/repos/octocat/hello-world", func(w http.ResponseWriter, r *http.Request) {
		metadataCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"default_branch": "main"})
	})

	client := newTestClient(t, mux)

	page, err := client.ListBranches(context.Background(), "octocat", "hello-world", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"develop", "feature-a"}, page.Branches)
	assert.Equal(t, "main", page.DefaultBranch)
	assert.True(t, page.HasMore)
	assert.Equal(t, int32(1), metadataCalls.Load())
}

func TestListBranches_LaterPageSkipsMetadata(t *testing.T) {
	var metadataCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello-world/branches", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]string{{"name": "release"}})
	})
	mux.HandleFunc("/repos/octocat/hello-world", func(w http.ResponseWriter, r *http.Request) {
		metadataCalls.Add(1)
	})

	client := newTestClient(t, mux)

	page, err := client.ListBranches(context.Background(), "octocat", "hello-world", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"release"}, page.Branches)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.DefaultBranch)
	assert.Equal(t, int32(0), metadataCalls.Load())
}

func TestListBranches_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/ghost/missing/branches", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	client := newTestClient(t, mux)

	_, err := client.ListBranches(context.Background(), "ghost", "missing", 1)
	assert.ErrorIs(t, err, domain.ErrRepoNotFound)
}
