package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func githubServer(t *testing.T, blobs map[string]string, tree []treeEntry) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/app/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("recursive") != "1" {
			t.Errorf("tree request without recursive=1")
		}
		json.NewEncoder(w).Encode(treeResponse{Tree: tree})
	})
	mux.HandleFunc("/repos/acme/app/git/blobs/{sha}", func(w http.ResponseWriter, r *http.Request) {
		content, ok := blobs[r.PathValue("sha")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(blobResponse{
			Content:  base64.StdEncoding.EncodeToString([]byte(content)),
			Encoding: "base64",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHub_Load(t *testing.T) {
	srv := githubServer(t,
		map[string]string{"s1": "package main\n", "s2": "# App\n"},
		[]treeEntry{
			{Path: "src", Type: "tree"},
			{Path: "src/main.go", Type: "blob", SHA: "s1", Size: 13},
			{Path: "README.md", Type: "blob", SHA: "s2", Size: 6},
			{Path: "logo.png", Type: "blob", SHA: "s3", Size: 10},
			{Path: "gone.go", Type: "blob", SHA: "missing", Size: 10},
			{Path: "huge.json", Type: "blob", SHA: "s4", Size: maxFileBytes + 1},
		})
	t.Setenv("GITHUB_ACCESS_TOKEN", "test-token")
	t.Setenv("GITHUB_API_URL", srv.URL)

	g, err := NewGitHub("acme/app", "", nil)
	require.NoError(t, err)

	snap, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme/app", snap.Repo)
	assert.Equal(t, "main", snap.Branch)
	assert.Equal(t, []string{"README.md", "src/main.go"}, snap.Paths())
	assert.Equal(t, "package main\n", snap.Files[1].Content)
}

func TestGitHub_LoadAuthFailure(t *testing.T) {
	srv := githubServer(t, nil, nil)
	t.Setenv("GITHUB_ACCESS_TOKEN", "wrong")
	t.Setenv("GITHUB_API_URL", srv.URL)

	g, err := NewGitHub("acme/app", "main", nil)
	require.NoError(t, err)
	_, err = g.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestNewGitHub_Errors(t *testing.T) {
	t.Setenv("GITHUB_ACCESS_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	_, err := NewGitHub("acme/app", "main", nil)
	assert.True(t, errors.Is(err, ErrMissingToken), "got %v", err)

	t.Setenv("GITHUB_TOKEN", "fallback")
	for _, name := range []string{"noslash", "/app", "acme/", "a/b/c"} {
		_, err := NewGitHub(name, "main", nil)
		assert.True(t, errors.Is(err, ErrInvalidRepo), "%q: got %v", name, err)
	}

	g, err := NewGitHub("acme/app", "dev", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", g.token)
	assert.Equal(t, "acme/app", g.FullName())
}
