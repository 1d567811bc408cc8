package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// TokenRecord is the persisted shape of a granted credential. ExpiresAt is
// always computed locally as issue time plus expires_in; the provider's
// relative lifetime is never stored as an absolute value verbatim.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Decode failure kinds, kept distinct so the store can classify a bad file
// as malformed JSON versus a structurally wrong record.
var (
	ErrMalformedJSON      = errors.New("token record is not valid JSON")
	ErrNotAnObject        = errors.New("token record is not a JSON object")
	ErrMissingAccessToken = errors.New("token record is missing access_token")
)

// decodeTokenRecord is the strict deserialization boundary for persisted
// records. It distinguishes malformed JSON, non-object payloads, and records
// without a usable access_token.
func decodeTokenRecord(data []byte) (*TokenRecord, error) {
	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %v", ErrNotAnObject, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	// json.Unmarshal accepts a bare "null" without touching the struct.
	if rec.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}
	return &rec, nil
}

// Valid reports whether the record carries an access token at all. It says
// nothing about expiry; see Expired.
func (r *TokenRecord) Valid() bool {
	return r != nil && r.AccessToken != ""
}

// Expired reports whether the record should no longer be presented as a
// bearer credential at the given instant. A nil record or one without an
// expiry is always expired. The comparison is inclusive: at exactly
// expires_at minus buffer the record counts as expired.
func (r *TokenRecord) Expired(now time.Time, buffer time.Duration) bool {
	if r == nil || r.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() >= r.ExpiresAt-buffer.Milliseconds()
}

// ExpiryTime returns expires_at as a time.Time, or the zero time when the
// record has no expiry.
func (r *TokenRecord) ExpiryTime() time.Time {
	if r == nil || r.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.ExpiresAt)
}

// OAuth2Token converts the record to the x/oauth2 representation so standard
// transport plumbing can consume managed credentials.
func (r *TokenRecord) OAuth2Token() *oauth2.Token {
	if r == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Expiry:       r.ExpiryTime(),
	}
}

// tokenResponse is the provider's successful token endpoint payload for both
// the authorization_code and refresh_token grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// newTokenRecord converts a token endpoint response into a persistable
// record, anchoring expires_at to the local issue time.
func newTokenRecord(resp *tokenResponse, issuedAt time.Time) *TokenRecord {
	return &TokenRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    issuedAt.UnixMilli() + resp.ExpiresIn*1000,
		ExpiresIn:    resp.ExpiresIn,
		Scope:        resp.Scope,
		TokenType:    resp.TokenType,
	}
}
