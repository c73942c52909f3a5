package token

import (
	"os"
	"strings"

	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/models"
)

// Origin identifies which source produced a token. Only the file origin is
// written back after a refresh; the environment origins are read-only.
type Origin string

const (
	OriginFile    Origin = "file"
	OriginEnvJSON Origin = "env_json"
	OriginEnvVars Origin = "env_vars"
)

// Environment variables consumed by the environment sources.
const (
	EnvTokenJSON    = "GOOGLE_TOKEN_JSON"
	EnvRefreshToken = "GOOGLE_REFRESH_TOKEN"
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

// source probes one token origin. A nil token with a nil error means the
// source has nothing to offer and the next source should be tried; an error
// is recorded as a diagnostic but still falls through.
type source struct {
	origin Origin
	probe  func() (*models.Token, error)
}

// sources returns the probe list in fixed priority order: token file, JSON
// env blob, discrete env vars.
func (s *Store) sources() []source {
	return []source{
		{OriginFile, s.probeFile},
		{OriginEnvJSON, probeEnvJSON},
		{OriginEnvVars, probeEnvVars},
	}
}

func (s *Store) probeFile() (*models.Token, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errors.ErrFileRead{Path: s.file, Err: err}
	}
	tok, err := models.ParseToken(data)
	if err != nil {
		return nil, &errors.ErrTokenParse{Source: s.file, Err: err}
	}
	return tok, nil
}

func probeEnvJSON() (*models.Token, error) {
	raw := os.Getenv(EnvTokenJSON)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	// Hosting platforms are known to inject control characters into
	// copy-pasted secrets; strip them before parsing.
	tok, err := models.ParseToken([]byte(stripControlChars(raw)))
	if err != nil {
		return nil, &errors.ErrTokenParse{Source: EnvTokenJSON, Err: err}
	}
	return tok, nil
}

func probeEnvVars() (*models.Token, error) {
	refresh := strings.TrimSpace(os.Getenv(EnvRefreshToken))
	clientID := strings.TrimSpace(os.Getenv(EnvClientID))
	clientSecret := strings.TrimSpace(os.Getenv(EnvClientSecret))
	if refresh == "" || clientID == "" || clientSecret == "" {
		return nil, nil
	}
	return &models.Token{
		RefreshToken: refresh,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURI:     models.GoogleTokenURI,
		Scopes:       append([]string(nil), models.DefaultScopes...),
	}, nil
}

// stripControlChars removes control characters while keeping the whitespace
// JSON itself allows.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
