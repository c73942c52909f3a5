package models

import (
	"encoding/json"
	"time"
)

// GoogleTokenURI is the default OAuth2 token endpoint for Google credentials.
const GoogleTokenURI = "https://oauth2.googleapis.com/token"

// DefaultScopes are the Search Console scopes requested during authorization.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/webmasters.readonly",
	"https://www.googleapis.com/auth/webmasters",
}

// Token represents one OAuth2 bearer-token grant for the Search Console API.
// The JSON field names match the on-disk token file.
type Token struct {
	AccessToken  string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// tokenFile mirrors Token with a string expiry so that a missing or malformed
// expiry field degrades to "no expiry" instead of a parse failure.
type tokenFile struct {
	AccessToken  string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry,omitempty"`
}

// ParseToken decodes a token record from JSON. An invalid expiry string is
// tolerated and treated as absent, which forces a refresh attempt downstream.
func ParseToken(data []byte) (*Token, error) {
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	tok := &Token{
		AccessToken:  tf.AccessToken,
		RefreshToken: tf.RefreshToken,
		TokenURI:     tf.TokenURI,
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Scopes:       tf.Scopes,
	}
	if tok.TokenURI == "" {
		tok.TokenURI = GoogleTokenURI
	}
	if len(tok.Scopes) == 0 {
		tok.Scopes = append([]string(nil), DefaultScopes...)
	}
	if tf.Expiry != "" {
		if t, err := parseExpiry(tf.Expiry); err == nil {
			tok.Expiry = &t
		}
	}
	return tok, nil
}

// MarshalFile encodes the token in the on-disk file format with the expiry
// rendered as an RFC 3339 string.
func (t *Token) MarshalFile() ([]byte, error) {
	tf := tokenFile{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenURI:     t.TokenURI,
		ClientID:     t.ClientID,
		ClientSecret: t.ClientSecret,
		Scopes:       t.Scopes,
	}
	if t.Expiry != nil {
		tf.Expiry = t.Expiry.UTC().Format(time.RFC3339)
	}
	return json.MarshalIndent(tf, "", "  ")
}

// parseExpiry accepts RFC 3339 and the zone-less ISO-8601 shape the Google
// client library historically wrote. Timestamps without timezone information
// are treated as UTC.
func parseExpiry(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// CanRefresh reports whether the token carries everything a refresh-token
// grant requires.
func (t *Token) CanRefresh() bool {
	return t.RefreshToken != "" && t.ClientID != "" && t.ClientSecret != ""
}

// StaleWithin reports whether the token is expired or expires within the
// given margin of now. A token without an access token is always stale; a
// token without an expiry is treated as stale so a refresh is attempted.
func (t *Token) StaleWithin(margin time.Duration, now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	if t.Expiry == nil {
		return true
	}
	return t.Expiry.Sub(now) < margin
}
