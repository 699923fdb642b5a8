// Package tokencache persists short-lived provider credentials so that
// repeated runs do not authenticate again while a token is still valid.
package tokencache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"lrcfetch/internal/logger"
	"lrcfetch/pkg/utils"
)

// ErrNoToken is returned when a token could not be obtained or refreshed.
var ErrNoToken = errors.New("no token")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Token is a bearer or session token with an absolute expiry.
type Token struct {
	Value     string
	ExpiresAt int64 // unix seconds

	// Extra holds any other fields found in or destined for the file.
	Extra map[string]interface{}
}

// Valid reports whether the token can still be used right now.
func (t Token) Valid() bool {
	return t.ValidAt(time.Now())
}

// ValidAt reports whether the token can be used at now.
func (t Token) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Unix() < t.ExpiresAt
}

func (t Token) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(t.Extra)+2)
	for k, v := range t.Extra {
		m[k] = v
	}
	m["token"] = t.Value
	m["expires_at"] = t.ExpiresAt
	return json.Marshal(m)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	value, _ := m["token"].(string)
	var expires int64
	switch v := m["expires_at"].(type) {
	case float64:
		expires = int64(v)
	case nil:
	default:
		return fmt.Errorf("expires_at has unexpected type %T", v)
	}
	delete(m, "token")
	delete(m, "expires_at")
	if len(m) == 0 {
		m = nil
	}

	*t = Token{Value: value, ExpiresAt: expires, Extra: m}
	return nil
}

// Load reads the token stored at path. A missing or unreadable file is
// reported as a miss, never as an error.
func Load(path string) (Token, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Token{}, false
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return Token{}, false
	}
	return tok, true
}

// Store replaces the token file at path atomically.
func Store(path string, tok Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// RefreshFunc performs a provider-specific authentication exchange.
type RefreshFunc func(ctx context.Context) (Token, error)

// Cache serves one token file, refreshing it lazily on expiry.
// It is safe for concurrent use; concurrent refreshes are serialized.
type Cache struct {
	path   string
	logger *logger.Logger

	mu       sync.Mutex
	current  Token
	rejected string // value the service refused; the file copy is ignored until overwritten
	now      func() time.Time
}

// New creates a Cache backed by the file at path.
func New(path string, log *logger.Logger) *Cache {
	return &Cache{path: path, logger: log, now: time.Now}
}

// Path returns the backing file.
func (c *Cache) Path() string { return c.path }

// Get returns a valid token value, calling refresh when neither memory nor
// the file holds one. Refresh failures are wrapped in ErrNoToken.
func (c *Cache) Get(ctx context.Context, refresh RefreshFunc) (string, error) {
	tok, err := c.Token(ctx, refresh)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// Token is Get returning the whole token, extra fields included.
func (c *Cache) Token(ctx context.Context, refresh RefreshFunc) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.current.ValidAt(now) {
		return c.current, nil
	}
	if tok, ok := Load(c.path); ok && tok.ValidAt(now) && tok.Value != c.rejected {
		c.current = tok
		return tok, nil
	}

	tok, err := refresh(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	if tok.Value == "" {
		return Token{}, fmt.Errorf("%w: empty token", ErrNoToken)
	}

	c.current = tok
	c.rejected = ""
	if err := Store(c.path, tok); err != nil && c.logger != nil {
		c.logger.Warn("Could not cache token at %s: %v", c.path, err)
	}
	return tok, nil
}

// Invalidate forgets value after the service rejected it, so the next Get
// refreshes even though the file still holds it. A value that has already
// been replaced is left alone.
func (c *Cache) Invalidate(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == "" || (c.current.Value != "" && c.current.Value != value) {
		return
	}
	c.current = Token{}
	c.rejected = value
	if c.logger != nil {
		c.logger.Debug("Token in %s was rejected, refreshing on next use", c.path)
	}
}
