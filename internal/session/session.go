// Package session implements stateless signed admin tokens. A token is
// base64url(JSON payload) + "." + base64url(HMAC-SHA256 signature); validity
// is fully determined by the signature and the embedded expiry, with no
// server-side session state.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/scrypt"
)

const (
	// TokenTTL is the fixed validity window of an issued token.
	TokenTTL = 24 * time.Hour

	// CookieName carries the token when it is not sent as a bearer header.
	// Extraction matches this name exactly; a cookie with a merely similar
	// name must not be accepted.
	CookieName = "daybook_session"

	// keySalt must differ from the vault key salt so the signing key and the
	// credential encryption key are never interchangeable.
	keySalt = "daybook/session/v1"

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrNoMasterSecret is returned by Issue when no master secret is configured.
var ErrNoMasterSecret = errors.New("master secret is not configured")

// Claims is the decoded token payload.
type Claims struct {
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Authenticator issues and verifies session tokens.
type Authenticator struct {
	secret *memguard.Enclave
	ttl    time.Duration
	now    func() time.Time

	deriveOnce sync.Once
	key        []byte
	deriveErr  error
}

// New creates an authenticator signing with a key derived from masterSecret.
func New(masterSecret string) *Authenticator {
	a := &Authenticator{
		ttl: TokenTTL,
		now: time.Now,
	}
	if masterSecret != "" {
		a.secret = memguard.NewEnclave([]byte(masterSecret))
	}
	return a
}

// Issue creates a signed admin token valid for the fixed TTL.
func (a *Authenticator) Issue(role string) (string, error) {
	key, err := a.signingKey()
	if err != nil {
		return "", err
	}

	now := a.now()
	claims := Claims{
		Role:      role,
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(a.ttl).UnixMilli(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + base64.RawURLEncoding.EncodeToString(sign(key, encoded)), nil
}

// Verify checks structure, signature and expiry. It returns nil for any
// invalid token and never reports why; this is the sole gate in front of
// every privileged operation.
func (a *Authenticator) Verify(token string) *Claims {
	key, err := a.signingKey()
	if err != nil {
		return nil
	}

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	// hmac.Equal is constant-time.
	if !hmac.Equal(sig, sign(key, parts[0])) {
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	if a.now().UnixMilli() > claims.ExpiresAt {
		return nil
	}
	return &claims
}

// ExtractToken pulls a token from the request: bearer-style authorization
// header first, then the session cookie by exact name.
func (a *Authenticator) ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	// http.Request.Cookie matches the cookie name exactly, so a cookie like
	// "daybook_session_old" is never picked up here.
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (a *Authenticator) signingKey() ([]byte, error) {
	a.deriveOnce.Do(func() {
		a.key, a.deriveErr = a.deriveKey()
	})
	return a.key, a.deriveErr
}

func (a *Authenticator) deriveKey() ([]byte, error) {
	if a.secret == nil {
		return nil, ErrNoMasterSecret
	}

	buf, err := a.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("open master secret: %w", err)
	}
	defer buf.Destroy()

	key, err := scrypt.Key(buf.Bytes(), []byte(keySalt), scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

func sign(key []byte, encodedPayload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encodedPayload))
	return mac.Sum(nil)
}
