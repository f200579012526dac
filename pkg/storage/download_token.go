package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DownloadClaims is the payload embedded in a signed download token: which
// report job it belongs to, which stored file it unlocks and until when.
type DownloadClaims struct {
	JobID     string    `json:"jobId"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DownloadSigner mints and verifies HMAC-signed download tokens. Tokens
// are bearer credentials; possession alone authorizes the download.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner builds a signer. A non-positive TTL falls back to one
// day, matching the export retention default.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token binding the job to its stored file.
func (s *DownloadSigner) Sign(jobID, path string) (string, time.Time, error) {
	if jobID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("job id and file path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("download signing secret is not configured")
	}
	claims := DownloadClaims{
		JobID:     jobID,
		Path:      path,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode download claims: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	token := body + "." + s.signature(body)
	return token, claims.ExpiresAt, nil
}

// Verify checks the signature and expiry and returns the claims. Cleanup
// routines pass allowExpired to resolve files behind stale tokens.
func (s *DownloadSigner) Verify(token string, allowExpired bool) (DownloadClaims, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return DownloadClaims{}, fmt.Errorf("malformed download token")
	}
	if !hmac.Equal([]byte(s.signature(body)), []byte(sig)) {
		return DownloadClaims{}, fmt.Errorf("download token signature mismatch")
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return DownloadClaims{}, fmt.Errorf("decode download token: %w", err)
	}
	var claims DownloadClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return DownloadClaims{}, fmt.Errorf("decode download claims: %w", err)
	}
	if claims.JobID == "" || claims.Path == "" {
		return DownloadClaims{}, fmt.Errorf("download token missing claims")
	}
	if !allowExpired && time.Now().After(claims.ExpiresAt) {
		return DownloadClaims{}, fmt.Errorf("download token expired")
	}
	return claims, nil
}

func (s *DownloadSigner) signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
