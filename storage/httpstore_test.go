package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPStoreList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blobs", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(listResponse{Blobs: []BlobInfo{
			{Pathname: "brands.json", URL: "https://cdn.example/brands.json"},
		}})
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "secret", zap.NewNop().Sugar())
	infos, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "brands.json", infos[0].Pathname)
}

func TestHTTPStoreFetchBustsCaches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("timestamp"))
		require.Equal(t, "no-store, max-age=0", r.Header.Get("Cache-Control"))
		w.Write([]byte(`["Prusament"]`))
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", zap.NewNop().Sugar())
	data, err := store.Fetch(context.Background(), server.URL+"/brands.json")
	require.NoError(t, err)
	require.Equal(t, []byte(`["Prusament"]`), data)
}

func TestHTTPStoreFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", zap.NewNop().Sugar())
	_, err := store.Fetch(context.Background(), server.URL+"/missing.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPStorePut(t *testing.T) {
	var gotPath, gotAccess, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.EscapedPath()
		gotAccess = r.Header.Get("X-Blob-Access")
		gotContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "secret", zap.NewNop().Sugar())
	err := store.Put(context.Background(), "alice/brands.json", []byte(`["Prusament"]`), PutOptions{
		Public:      true,
		ContentType: "application/json",
	})
	require.NoError(t, err)
	require.Equal(t, "/blobs/alice%2Fbrands.json", gotPath)
	require.Equal(t, "public", gotAccess)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, `["Prusament"]`, gotBody)
}

func TestCacheBustedURL(t *testing.T) {
	plain := cacheBustedURL("https://cdn.example/brands.json")
	require.Contains(t, plain, "?timestamp=")

	withQuery := cacheBustedURL("https://cdn.example/brands.json?v=2")
	require.Contains(t, withQuery, "&timestamp=")
}
