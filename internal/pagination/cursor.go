// Package pagination encodes keyset cursors for lists ordered newest first.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor points just past the last item of a page.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

var ErrInvalidCursor = errors.New("invalid cursor")

// Encode renders c as an opaque URL-safe token.
func Encode(c Cursor) string {
	if c.ID == "" {
		return ""
	}
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode. An empty token is (nil, nil).
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	stamp, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}

// Next returns the token for the page after items, or "" when items is a short
// page and nothing follows.
func Next[T any](items []T, limit int, key func(T) Cursor) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	return Encode(key(items[len(items)-1]))
}
