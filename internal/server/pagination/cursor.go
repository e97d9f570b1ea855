// Package pagination encodes the position of the last item of a page as an
// opaque token.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const cursorSeparator = ","
const timeFormat = time.RFC3339Nano // Use nano for precision

// Cursor points at the last article of a page in (created_at DESC, id DESC) order.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// Encode returns the opaque form of c.
func (c Cursor) Encode() string {
	key := c.CreatedAt.UTC().Format(timeFormat) + cursorSeparator + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Decode parses a token produced by Cursor.Encode.
func Decode(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	ts, idPart, ok := strings.Cut(string(raw), cursorSeparator)
	if !ok {
		return Cursor{}, fmt.Errorf("invalid cursor format")
	}

	createdAt, err := time.Parse(timeFormat, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return Cursor{}, fmt.Errorf("invalid id in cursor")
	}

	return Cursor{CreatedAt: createdAt.UTC(), ID: id}, nil
}
