package gsc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsclens/gsclens/internal/errors"
)

func TestListSitemaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.RequestURI, "https%3A%2F%2Fexample.com%2F")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sitemap": []map[string]interface{}{
				{"path": "https://example.com/sitemap.xml", "isPending": false, "errors": "0"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("https://example.com/", newTestTokenStore(t),
		WithBaseURL(srv.URL))

	sitemaps, err := client.ListSitemaps(context.Background())
	require.NoError(t, err)
	require.Len(t, sitemaps, 1)
	assert.Equal(t, "https://example.com/sitemap.xml", sitemaps[0].Path)
	assert.False(t, sitemaps[0].IsPending)
}

func TestListSitemapsNonSuccessIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "{}", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient("https://example.com/", newTestTokenStore(t),
		WithBaseURL(srv.URL))

	sitemaps, err := client.ListSitemaps(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sitemaps)
}

func TestSubmitAndDeleteSitemap(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		// The sitemap URL is a single encoded path segment.
		assert.Contains(t, r.RequestURI, "https%3A%2F%2Fexample.com%2Fsitemap.xml")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient("https://example.com/", newTestTokenStore(t),
		WithBaseURL(srv.URL))

	ok, err := client.SubmitSitemap(context.Background(), "https://example.com/sitemap.xml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, http.MethodPut, method)

	ok, err = client.DeleteSitemap(context.Background(), "https://example.com/sitemap.xml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, http.MethodDelete, method)
}

func TestSitemapCallsWithoutAuth(t *testing.T) {
	client := NewClient("https://example.com/", newAbsentTokenStore(t))

	// Listing degrades to empty; mutations fail loudly.
	sitemaps, err := client.ListSitemaps(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sitemaps)

	var notAuth *errors.ErrNotAuthorized

	ok, err := client.SubmitSitemap(context.Background(), "https://example.com/sitemap.xml")
	assert.False(t, ok)
	require.ErrorAs(t, err, &notAuth)

	ok, err = client.DeleteSitemap(context.Background(), "https://example.com/sitemap.xml")
	assert.False(t, ok)
	require.ErrorAs(t, err, &notAuth)
}

func TestListSites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"siteEntry": []map[string]string{
				{"siteUrl": "https://example.com/", "permissionLevel": "siteOwner"},
				{"siteUrl": "sc-domain:example.org", "permissionLevel": "siteFullUser"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("https://example.com/", newTestTokenStore(t),
		WithBaseURL(srv.URL))

	sites, err := client.ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "https://example.com/", sites[0].SiteURL)
	assert.Equal(t, "siteOwner", sites[0].PermissionLevel)
}
