package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/models"
)

// RefreshMargin is the safety margin before expiry that triggers a proactive
// refresh.
const RefreshMargin = 5 * time.Minute

// State describes how much trust a caller should place in an acquired token.
type State int

const (
	// Absent means no usable credential could be produced.
	Absent State = iota
	// Fresh means the token is valid and not near expiry.
	Fresh
	// StaleButUsable means the token is past (or near) expiry and a refresh
	// failed, but an access token string is still present. The server may
	// still accept it; callers can surface the degraded state.
	StaleButUsable
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case StaleButUsable:
		return "stale"
	default:
		return "absent"
	}
}

// Store loads, refreshes, caches, and persists the OAuth2 credential for the
// configured property. It is caller-owned state, safe for concurrent use;
// the read-check-refresh-write cycle runs under one lock.
type Store struct {
	file   string
	client *http.Client
	logger *logging.Logger
	now    func() time.Time

	mu     chan struct{} // buffered-1 channel used as a context-aware mutex
	cached *models.Token
	origin Origin
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client used for token refresh calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.client = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a credential store reading from the given token file path.
func NewStore(file string, opts ...Option) *Store {
	s := &Store{
		file:   file,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logging.NewLogger(),
		now:    time.Now,
		mu:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns the current credential. The returned state is Fresh for a
// valid token, StaleButUsable when a refresh failed but an old access token
// remains, and Absent when no source yields anything usable. The error
// carries the diagnostic for the Absent and StaleButUsable cases; Acquire
// never fails in a way that should abort the caller.
func (s *Store) Acquire(ctx context.Context) (*models.Token, State, error) {
	select {
	case s.mu <- struct{}{}:
		defer func() { <-s.mu }()
	case <-ctx.Done():
		return nil, Absent, ctx.Err()
	}

	now := s.now()

	if s.cached != nil && !s.cached.StaleWithin(RefreshMargin, now) {
		return s.cached, Fresh, nil
	}

	tok, origin, err := s.load()
	if err != nil {
		return nil, Absent, err
	}

	if !tok.StaleWithin(RefreshMargin, now) {
		s.cached, s.origin = tok, origin
		return tok, Fresh, nil
	}

	if !tok.CanRefresh() {
		missing := missingRefreshParts(tok)
		if tok.AccessToken != "" {
			// Believed expired but present; the server may still accept it.
			s.cached, s.origin = tok, origin
			return tok, StaleButUsable, &errors.ErrRefreshNotPossible{Missing: missing}
		}
		return nil, Absent, &errors.ErrRefreshNotPossible{Missing: missing}
	}

	if err := s.refresh(ctx, tok); err != nil {
		if tok.AccessToken != "" {
			s.cached, s.origin = tok, origin
			s.logger.Warn("token refresh failed, using stale access token", "error", err.Error())
			return tok, StaleButUsable, &errors.ErrTokenRefresh{Err: err}
		}
		return nil, Absent, &errors.ErrTokenRefresh{Err: err}
	}

	if origin == OriginFile {
		// Best effort: a refreshed credential is still usable in-memory even
		// when the file is not writable.
		if err := s.writeFile(tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", "path", s.file, "error", err.Error())
		}
	}

	s.cached, s.origin = tok, origin
	return tok, Fresh, nil
}

// Invalidate drops the cached credential, forcing the next Acquire to probe
// the sources again.
func (s *Store) Invalidate() {
	s.mu <- struct{}{}
	s.cached = nil
	s.origin = ""
	<-s.mu
}

// Save persists a token to the file source, creating parent directories as
// needed.
func (s *Store) Save(tok *models.Token) error {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()
	if err := s.writeFile(tok); err != nil {
		return err
	}
	s.cached, s.origin = tok, OriginFile
	return nil
}

// Clear removes the stored token file and drops the cache.
func (s *Store) Clear() error {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()
	s.cached = nil
	s.origin = ""
	err := os.Remove(s.file)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// load probes the sources in priority order. Probe failures are non-fatal
// and recorded as diagnostics; only when every source comes up empty does
// load return an error.
func (s *Store) load() (*models.Token, Origin, error) {
	var diags []string
	for _, src := range s.sources() {
		tok, err := src.probe()
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: %v", src.origin, err))
			continue
		}
		if tok != nil {
			return tok, src.origin, nil
		}
	}
	return nil, "", &errors.ErrNoTokenSource{Detail: strings.Join(diags, "; ")}
}

func (s *Store) writeFile(tok *models.Token) error {
	dir := filepath.Dir(s.file)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return &errors.ErrDirectoryCreate{Path: dir, Err: err}
		}
	}
	data, err := tok.MarshalFile()
	if err != nil {
		return err
	}
	return os.WriteFile(s.file, data, 0o600)
}

// refreshResponse is the OAuth2 refresh-token grant response.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// refresh performs the OAuth2 refresh-token grant against the token URI and
// mutates the token in place on success.
func (s *Store) refresh(ctx context.Context, tok *models.Token) error {
	form := url.Values{}
	form.Set("client_id", tok.ClientID)
	form.Set("client_secret", tok.ClientSecret)
	form.Set("refresh_token", tok.RefreshToken)
	form.Set("grant_type", "refresh_token")

	endpoint := tok.TokenURI
	if endpoint == "" {
		endpoint = models.GoogleTokenURI
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &errors.ErrAPIStatus{Endpoint: endpoint, Code: resp.StatusCode, Body: string(body)}
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	if parsed.AccessToken == "" {
		return fmt.Errorf("refresh response missing access_token")
	}

	tok.AccessToken = parsed.AccessToken
	if parsed.RefreshToken != "" {
		tok.RefreshToken = parsed.RefreshToken
	}
	if parsed.ExpiresIn > 0 {
		expiry := s.now().UTC().Add(time.Duration(parsed.ExpiresIn) * time.Second)
		tok.Expiry = &expiry
	} else {
		tok.Expiry = nil
	}
	return nil
}

func missingRefreshParts(tok *models.Token) string {
	var missing []string
	if tok.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if tok.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if tok.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	return strings.Join(missing, ", ")
}
