package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/models"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// countingTransport fails the test if any request goes out and counts calls.
type countingTransport struct {
	calls int32
	next  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&t.calls, 1)
	if t.next == nil {
		return nil, http.ErrHandlerTimeout
	}
	return t.next.RoundTrip(req)
}

func writeTokenFile(t *testing.T, dir string, tok models.Token) string {
	t.Helper()
	path := filepath.Join(dir, "token.json")
	data, err := tok.MarshalFile()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func clearTokenEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvTokenJSON, "")
	t.Setenv(EnvRefreshToken, "")
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
}

func TestAcquireFreshFileTokenNoNetwork(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(time.Hour)
	path := writeTokenFile(t, t.TempDir(), models.Token{
		AccessToken: "ya29.fresh",
		Expiry:      &expiry,
	})

	transport := &countingTransport{}
	store := NewStore(path,
		WithClock(func() time.Time { return testNow }),
		WithHTTPClient(&http.Client{Transport: transport}),
	)

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.fresh", tok.AccessToken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&transport.calls))
}

func TestAcquireUsesCacheOnSecondCall(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(time.Hour)
	path := writeTokenFile(t, t.TempDir(), models.Token{
		AccessToken: "ya29.fresh",
		Expiry:      &expiry,
	})

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	_, _, err := store.Acquire(context.Background())
	require.NoError(t, err)

	// Remove the file; the cached token must still be served.
	require.NoError(t, os.Remove(path))

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.fresh", tok.AccessToken)
}

func TestAcquireRefreshesStaleToken(t *testing.T) {
	clearTokenEnv(t)

	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse refresh form: %v", err)
			return
		}
		form = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"client_id":     r.PostFormValue("client_id"),
			"refresh_token": r.PostFormValue("refresh_token"),
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.refreshed",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}))
	defer srv.Close()

	expiry := testNow.Add(-time.Hour)
	path := writeTokenFile(t, t.TempDir(), models.Token{
		AccessToken:  "ya29.expired",
		RefreshToken: "1//refresh",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURI:     srv.URL,
		Expiry:       &expiry,
	})

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.refreshed", tok.AccessToken)
	require.NotNil(t, tok.Expiry)
	assert.True(t, tok.Expiry.Equal(testNow.Add(time.Hour)))

	assert.Equal(t, "refresh_token", form["grant_type"])
	assert.Equal(t, "client-id", form["client_id"])
	assert.Equal(t, "1//refresh", form["refresh_token"])

	// The refreshed token is persisted back to the file source.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	persisted, err := models.ParseToken(data)
	require.NoError(t, err)
	assert.Equal(t, "ya29.refreshed", persisted.AccessToken)
}

func TestAcquireRefreshFailureKeepsStaleToken(t *testing.T) {
	clearTokenEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	expiry := testNow.Add(-time.Hour)
	path := writeTokenFile(t, t.TempDir(), models.Token{
		AccessToken:  "ya29.old",
		RefreshToken: "1//refresh",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURI:     srv.URL,
		Expiry:       &expiry,
	})

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	assert.Equal(t, StaleButUsable, state)
	require.NotNil(t, tok)
	assert.Equal(t, "ya29.old", tok.AccessToken)

	var refreshErr *errors.ErrTokenRefresh
	require.ErrorAs(t, err, &refreshErr)
}

func TestAcquireRefreshFailureWithoutAccessTokenIsAbsent(t *testing.T) {
	clearTokenEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	path := writeTokenFile(t, t.TempDir(), models.Token{
		RefreshToken: "1//refresh",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURI:     srv.URL,
	})

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	assert.Equal(t, Absent, state)
	assert.Nil(t, tok)
	require.Error(t, err)
}

func TestAcquireNoSourcesIsAbsent(t *testing.T) {
	clearTokenEnv(t)
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"),
		WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	assert.Equal(t, Absent, state)
	assert.Nil(t, tok)

	var noSource *errors.ErrNoTokenSource
	require.ErrorAs(t, err, &noSource)
}

func TestAcquireStaleWithoutRefreshCredentials(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(-time.Hour)
	path := writeTokenFile(t, t.TempDir(), models.Token{
		AccessToken: "ya29.old",
		Expiry:      &expiry,
	})

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	assert.Equal(t, StaleButUsable, state)
	require.NotNil(t, tok)

	var notPossible *errors.ErrRefreshNotPossible
	require.ErrorAs(t, err, &notPossible)
	assert.Contains(t, notPossible.Missing, "refresh_token")
}

func TestEnvJSONSourceStripsControlChars(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(time.Hour)
	raw, err := (&models.Token{AccessToken: "ya29.env", Expiry: &expiry}).MarshalFile()
	require.NoError(t, err)

	// Simulate a paste with embedded control characters.
	corrupted := string(raw[:10]) + "\x00\x08" + string(raw[10:])
	t.Setenv(EnvTokenJSON, corrupted)

	store := NewStore(filepath.Join(t.TempDir(), "missing.json"),
		WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.env", tok.AccessToken)
}

func TestEnvVarsSourceRefreshes(t *testing.T) {
	clearTokenEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.from-env",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	t.Setenv(EnvRefreshToken, "1//refresh")
	t.Setenv(EnvClientID, "client-id")
	t.Setenv(EnvClientSecret, "client-secret")

	path := filepath.Join(t.TempDir(), "missing.json")
	store := NewStore(path,
		WithClock(func() time.Time { return testNow }),
		WithHTTPClient(srv.Client()),
	)

	// The env-vars source carries no access token and points at the real
	// Google endpoint, so redirect the refresh to the test server manually.
	tok, origin, err := store.load()
	require.NoError(t, err)
	assert.Equal(t, OriginEnvVars, origin)
	assert.Empty(t, tok.AccessToken)

	tok.TokenURI = srv.URL
	require.NoError(t, store.refresh(context.Background(), tok))
	assert.Equal(t, "ya29.from-env", tok.AccessToken)

	// The env origin must never write a token file.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSourceOrderPrefersFile(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(time.Hour)

	envTok, err := (&models.Token{AccessToken: "ya29.env", Expiry: &expiry}).MarshalFile()
	require.NoError(t, err)
	t.Setenv(EnvTokenJSON, string(envTok))

	path := writeTokenFile(t, t.TempDir(), models.Token{
		AccessToken: "ya29.file",
		Expiry:      &expiry,
	})

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.file", tok.AccessToken)
}

func TestUnreadableFileFallsThroughToEnv(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(time.Hour)

	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	envTok, err := (&models.Token{AccessToken: "ya29.env", Expiry: &expiry}).MarshalFile()
	require.NoError(t, err)
	t.Setenv(EnvTokenJSON, string(envTok))

	store := NewStore(path, WithClock(func() time.Time { return testNow }))

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.env", tok.AccessToken)
}

func TestSaveAndClear(t *testing.T) {
	clearTokenEnv(t)
	expiry := testNow.Add(time.Hour)
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	store := NewStore(path, WithClock(func() time.Time { return testNow }))
	require.NoError(t, store.Save(&models.Token{AccessToken: "ya29.saved", Expiry: &expiry}))

	tok, state, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, state)
	assert.Equal(t, "ya29.saved", tok.AccessToken)

	require.NoError(t, store.Clear())
	_, state, _ = store.Acquire(context.Background())
	assert.Equal(t, Absent, state)

	// Clearing an already-missing file is not an error.
	require.NoError(t, store.Clear())
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	clearTokenEnv(t)
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"))

	// Hold the lock so Acquire has to wait on the context.
	store.mu <- struct{}{}
	defer func() { <-store.mu }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, state, err := store.Acquire(ctx)
	assert.Equal(t, Absent, state)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "stale", StaleButUsable.String())
	assert.Equal(t, "absent", Absent.String())
}
