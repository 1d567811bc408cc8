package auth

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeTokenRecord(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name: "valid record",
			data: `{"access_token":"tok","refresh_token":"ref","expires_at":1700000000000}`,
		},
		{
			name:    "malformed JSON",
			data:    `{this is not json`,
			wantErr: ErrMalformedJSON,
		},
		{
			name:    "truncated JSON",
			data:    `{"access_token":"tok"`,
			wantErr: ErrMalformedJSON,
		},
		{
			name:    "empty input",
			data:    ``,
			wantErr: ErrMalformedJSON,
		},
		{
			name:    "JSON array instead of object",
			data:    `["tok"]`,
			wantErr: ErrNotAnObject,
		},
		{
			name:    "JSON string instead of object",
			data:    `"tok"`,
			wantErr: ErrNotAnObject,
		},
		{
			name:    "wrongly typed field",
			data:    `{"access_token":42}`,
			wantErr: ErrNotAnObject,
		},
		{
			name:    "null payload",
			data:    `null`,
			wantErr: ErrMissingAccessToken,
		},
		{
			name:    "object without access_token",
			data:    `{"refresh_token":"ref","expires_at":1700000000000}`,
			wantErr: ErrMissingAccessToken,
		},
		{
			name:    "empty access_token",
			data:    `{"access_token":""}`,
			wantErr: ErrMissingAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decodeTokenRecord([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("decodeTokenRecord() error = %v, want %v", err, tt.wantErr)
				}
				if rec != nil {
					t.Errorf("decodeTokenRecord() record = %+v, want nil", rec)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeTokenRecord() unexpected error: %v", err)
			}
			if rec.AccessToken != "tok" {
				t.Errorf("AccessToken = %q, want %q", rec.AccessToken, "tok")
			}
		})
	}
}

func TestTokenRecordExpired(t *testing.T) {
	buffer := 5 * time.Minute
	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &TokenRecord{AccessToken: "tok", ExpiresAt: expiry.UnixMilli()}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before the buffer window", expiry.Add(-time.Hour), false},
		{"one millisecond before the window", expiry.Add(-buffer - time.Millisecond), false},
		{"exactly at expires_at minus buffer", expiry.Add(-buffer), true},
		{"inside the buffer window", expiry.Add(-time.Minute), true},
		{"exactly at expires_at", expiry, true},
		{"long after expiry", expiry.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rec.Expired(tt.now, buffer); got != tt.want {
				t.Errorf("Expired(%s) = %v, want %v",
					tt.now.Format(time.RFC3339Nano), got, tt.want)
			}
		})
	}
}

func TestTokenRecordExpiredDegenerate(t *testing.T) {
	now := time.Now()

	var nilRec *TokenRecord
	if !nilRec.Expired(now, 0) {
		t.Error("nil record should count as expired")
	}
	if !(&TokenRecord{AccessToken: "tok"}).Expired(now, 0) {
		t.Error("record without expires_at should count as expired")
	}
}

func TestTokenRecordValid(t *testing.T) {
	var nilRec *TokenRecord
	if nilRec.Valid() {
		t.Error("nil record should not be valid")
	}
	if (&TokenRecord{}).Valid() {
		t.Error("record without access_token should not be valid")
	}
	if !(&TokenRecord{AccessToken: "tok"}).Valid() {
		t.Error("record with access_token should be valid")
	}
}

func TestTokenRecordExpiryTime(t *testing.T) {
	if got := (&TokenRecord{}).ExpiryTime(); !got.IsZero() {
		t.Errorf("ExpiryTime() without expires_at = %v, want zero time", got)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &TokenRecord{AccessToken: "tok", ExpiresAt: at.UnixMilli()}
	if got := rec.ExpiryTime(); !got.Equal(at) {
		t.Errorf("ExpiryTime() = %v, want %v", got, at)
	}
}

func TestNewTokenRecord(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	resp := &tokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		Scope:        "Mail.Read",
		TokenType:    "Bearer",
	}

	rec := newTokenRecord(resp, issuedAt)

	if want := issuedAt.UnixMilli() + 3600*1000; rec.ExpiresAt != want {
		t.Errorf("ExpiresAt = %d, want %d", rec.ExpiresAt, want)
	}
	if rec.AccessToken != "access" || rec.RefreshToken != "refresh" {
		t.Errorf("tokens not carried over: %+v", rec)
	}
	if rec.ExpiresIn != 3600 || rec.Scope != "Mail.Read" || rec.TokenType != "Bearer" {
		t.Errorf("metadata not carried over: %+v", rec)
	}
}

func TestTokenRecordOAuth2Token(t *testing.T) {
	var nilRec *TokenRecord
	if nilRec.OAuth2Token() != nil {
		t.Error("nil record should convert to a nil token")
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &TokenRecord{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresAt:    at.UnixMilli(),
	}

	tok := rec.OAuth2Token()
	if tok.AccessToken != "access" || tok.RefreshToken != "refresh" || tok.TokenType != "Bearer" {
		t.Errorf("OAuth2Token() = %+v, want fields carried over", tok)
	}
	if !tok.Expiry.Equal(at) {
		t.Errorf("Expiry = %v, want %v", tok.Expiry, at)
	}
}
