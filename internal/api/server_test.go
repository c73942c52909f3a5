package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsclens/gsclens/internal/config"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/token"
)

const testAPIKey = "test-api-key-12345"

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GOOGLE_TOKEN_JSON", "GOOGLE_REFRESH_TOKEN", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"} {
		t.Setenv(name, "")
	}
}

func freshTokenStore(t *testing.T) *token.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	body := `{"token":"ya29.test","refresh_token":"r","token_uri":"https://oauth2.googleapis.com/token","client_id":"id","client_secret":"secret","expiry":"2099-01-01T00:00:00Z"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return token.NewStore(path)
}

func absentTokenStore(t *testing.T) *token.Store {
	t.Helper()
	clearTokenEnv(t)
	return token.NewStore(filepath.Join(t.TempDir(), "missing.json"))
}

// gscBackend fakes the Search Console API surface the handlers reach.
func gscBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "searchAnalytics"):
			w.Write([]byte(`{"rows":[
				{"keys":["2026-08-01"],"clicks":10,"impressions":200,"ctr":0.05,"position":4.0},
				{"keys":["2026-08-02"],"clicks":30,"impressions":400,"ctr":0.075,"position":3.0}
			]}`))
		case strings.Contains(r.URL.Path, "sitemaps"):
			switch r.Method {
			case http.MethodGet:
				w.Write([]byte(`{"sitemap":[{"path":"https://example.com/sitemap.xml","isPending":false}]}`))
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		case strings.Contains(r.URL.Path, "inspect"):
			w.Write([]byte(`{"inspectionResult":{"indexStatusResult":{"coverageState":"Submitted and indexed","indexingState":"INDEXING_ALLOWED"}}}`))
		default:
			w.Write([]byte(`{"siteEntry":[{"siteUrl":"sc-domain:example.com","permissionLevel":"siteOwner"}]}`))
		}
	})
	return httptest.NewServer(mux)
}

type serverOptions struct {
	tokens  *token.Store
	apiKeys []string
}

func newTestServer(t *testing.T, backend *httptest.Server, opts serverOptions) *Server {
	t.Helper()

	tokens := opts.tokens
	if tokens == nil {
		tokens = freshTokenStore(t)
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LevelError))
	client := gsc.NewClient("sc-domain:example.com", tokens,
		gsc.WithBaseURL(backend.URL+"/sites"),
		gsc.WithInspectURL(backend.URL+"/inspect"),
		gsc.WithHTTPClient(backend.Client()),
		gsc.WithLogger(logger),
	)

	cfg := config.ServerConfig{Host: "127.0.0.1", HTTPPort: 0}
	apiCfg := config.APIConfig{
		Enabled:  true,
		BasePath: "/api/v1",
		Auth:     config.AuthConfig{APIKeys: opts.apiKeys, HeaderName: DefaultAPIKeyHeader},
	}
	propCfg := config.PropertyConfig{SiteURL: "sc-domain:example.com", SearchType: "web", RowLimit: 25000}

	return NewServer(cfg, apiCfg, propCfg, client, tokens, nil, nil, logger)
}

func doRequest(s *Server, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func authed(s *Server, method, path, body string) *httptest.ResponseRecorder {
	return doRequest(s, method, path, body, map[string]string{DefaultAPIKeyHeader: testAPIKey})
}

func TestHealthEndpoint(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "sc-domain:example.com")
}

func TestMetricsEndpointNoAuth(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := doRequest(s, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gsclens_")
}

func TestAPIKeyRequired(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	tests := []struct {
		name   string
		header map[string]string
	}{
		{name: "missing key", header: nil},
		{name: "invalid key", header: map[string]string{DefaultAPIKeyHeader: "wrong-key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodGet, "/api/v1/auth/status", "", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "unauthorized", resp.Error)
		})
	}
}

func TestAPIKeyBypassWhenUnconfigured(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{})

	w := doRequest(s, http.MethodGet, "/api/v1/auth/status", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthStatusFresh(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/auth/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fresh", resp.State)
	assert.True(t, resp.Authorized)
}

func TestAuthStatusAbsent(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{
		tokens:  absentTokenStore(t),
		apiKeys: []string{testAPIKey},
	})

	w := authed(s, http.MethodGet, "/api/v1/auth/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "absent", resp["state"])
	assert.Equal(t, false, resp["authorized"])
	assert.NotEmpty(t, resp["detail"])
}

func TestPerformanceReport(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/report/performance?start_date=2026-08-01&end_date=2026-08-02", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2026-08-01", resp.StartDate)
	assert.Equal(t, "2026-08-02", resp.EndDate)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, int64(40), resp.Totals.Clicks)
	assert.Equal(t, int64(600), resp.Totals.Impressions)
}

func TestTopQueriesReport(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/report/queries?start_date=2026-08-01&end_date=2026-08-02", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2)
	// Ranked reports come back sorted by clicks descending.
	assert.GreaterOrEqual(t, resp.Rows[0].Clicks, resp.Rows[1].Clicks)
}

func TestReportParamValidation(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	tests := []struct {
		name  string
		query string
	}{
		{name: "malformed start date", query: "start_date=August&end_date=2026-08-02"},
		{name: "malformed end date", query: "start_date=2026-08-01&end_date=02-08-2026"},
		{name: "start after end", query: "start_date=2026-08-10&end_date=2026-08-02"},
		{name: "negative row limit", query: "start_date=2026-08-01&end_date=2026-08-02&row_limit=-5"},
		{name: "non-numeric row limit", query: "start_date=2026-08-01&end_date=2026-08-02&row_limit=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := authed(s, http.MethodGet, "/api/v1/report/performance?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestExportCSV(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/report/export?start_date=2026-08-01&end_date=2026-08-02&dimensions=date", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "gsc_report_2026-08-01_2026-08-02.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "date,clicks,impressions,ctr,position", lines[0])
}

func TestTipsReport(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/report/tips?start_date=2026-08-01&end_date=2026-08-02", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tips []json.RawMessage `json:"tips"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
}

func TestListSites(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/sites", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sc-domain:example.com")
}

func TestListSitemaps(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/sitemaps", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://example.com/sitemap.xml")
}

func TestSubmitSitemap(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodPut, "/api/v1/sitemaps", `{"sitemap_url":"https://example.com/sitemap.xml"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "submitted")
}

func TestSubmitSitemapRequiresURL(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodPut, "/api/v1/sitemaps", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSitemap(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodDelete, "/api/v1/sitemaps", `{"sitemap_url":"https://example.com/sitemap.xml"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted")
}

func TestInspectURL(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodPost, "/api/v1/inspect", `{"url":"https://example.com/page"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		URL     string `json:"url"`
		Summary struct {
			CoverageState string `json:"coverage_state"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/page", resp.URL)
	assert.Equal(t, "Submitted and indexed", resp.Summary.CoverageState)
}

func TestInspectRequiresURL(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodPost, "/api/v1/inspect", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchInspectValidation(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodPost, "/api/v1/inspect/batch", `{"urls":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchInspect(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodPost, "/api/v1/inspect/batch", `{"urls":["https://example.com/a","https://example.com/b"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []BatchInspectItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		assert.Empty(t, item.Error)
		require.NotNil(t, item.Summary)
	}
}

func TestApplyConfigChangesReportDefaults(t *testing.T) {
	var gotSearchType string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "searchAnalytics") {
			var body struct {
				Type string `json:"type"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode query body: %v", err)
				return
			}
			gotSearchType = body.Type
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[]}`))
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()

	s := newTestServer(t, backend, serverOptions{apiKeys: []string{testAPIKey}})

	w := authed(s, http.MethodGet, "/api/v1/report/performance?start_date=2026-08-01&end_date=2026-08-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "web", gotSearchType)

	// A config reload swaps in new report defaults without a restart.
	s.ApplyConfig(config.PropertyConfig{SiteURL: "sc-domain:example.org", SearchType: "image", RowLimit: 100})

	w = authed(s, http.MethodGet, "/api/v1/report/performance?start_date=2026-08-01&end_date=2026-08-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image", gotSearchType)

	w = doRequest(s, http.MethodGet, "/health", "", nil)
	assert.Contains(t, w.Body.String(), "sc-domain:example.org")
}

func TestReportUnauthorizedBackend(t *testing.T) {
	backend := gscBackend(t)
	defer backend.Close()
	s := newTestServer(t, backend, serverOptions{
		tokens:  absentTokenStore(t),
		apiKeys: []string{testAPIKey},
	})

	// Inspection and sitemap mutations require a credential; reports degrade
	// to empty instead.
	w := authed(s, http.MethodPost, "/api/v1/inspect", `{"url":"https://example.com/page"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = authed(s, http.MethodPut, "/api/v1/sitemaps", `{"sitemap_url":"https://example.com/sitemap.xml"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = authed(s, http.MethodDelete, "/api/v1/sitemaps", `{"sitemap_url":"https://example.com/sitemap.xml"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = authed(s, http.MethodGet, "/api/v1/report/performance?start_date=2026-08-01&end_date=2026-08-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Rows)
}
