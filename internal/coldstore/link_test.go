package coldstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateSharedLinkCreates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/sharing/create_shared_link_with_settings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": "https://www.dropbox.com/s/abc/art.png?dl=0",
		})
	}))
	defer srv.Close()

	c := NewClientForEndpoints(srv.URL, srv.URL, srv.URL)
	url, err := c.GetOrCreateSharedLink(context.Background(), "/orders/o1/art.png", testCreds())
	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/s/abc/art.png?raw=1", url)
}

func TestGetOrCreateSharedLinkExistsRecovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/create_shared_link_with_settings":
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"error_summary":"shared_link_already_exists/metadata/"}`)
		case "/2/sharing/list_shared_links":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "/orders/o1/art.png", req["path"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"links": []map[string]string{
					{"url": "https://www.dropbox.com/s/old/art.png?dl=0"},
				},
			})
		default:
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClientForEndpoints(srv.URL, srv.URL, srv.URL)
	url, err := c.GetOrCreateSharedLink(context.Background(), "/orders/o1/art.png", testCreds())
	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/s/old/art.png?raw=1", url)
}

func TestGetOrCreateSharedLinkNoneFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/create_shared_link_with_settings":
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"error_summary":"shared_link_already_exists/"}`)
		case "/2/sharing/list_shared_links":
			_ = json.NewEncoder(w).Encode(map[string]any{"links": []any{}})
		}
	}))
	defer srv.Close()

	c := NewClientForEndpoints(srv.URL, srv.URL, srv.URL)
	url, err := c.GetOrCreateSharedLink(context.Background(), "/x", testCreds())
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestNormalizeSharedLink(t *testing.T) {
	cases := map[string]string{
		"https://www.dropbox.com/s/a/b.png?dl=0":     "https://www.dropbox.com/s/a/b.png?raw=1",
		"https://www.dropbox.com/s/a/b.png?dl=1":     "https://www.dropbox.com/s/a/b.png?raw=1",
		"https://www.dropbox.com/s/a/b.png?raw=1":    "https://www.dropbox.com/s/a/b.png?raw=1",
		"https://www.dropbox.com/s/a/b.png":          "https://www.dropbox.com/s/a/b.png",
		"https://www.dropbox.com/s/a/b.png?dl=0&x=y": "https://www.dropbox.com/s/a/b.png?raw=1&x=y",
		"": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSharedLink(in), "input %q", in)
	}
}
