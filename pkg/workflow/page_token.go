package workflow

import (
	"encoding/base64"
	"strings"
	"time"

	"gorm.io/gorm"
)

// pageCursor is the position after the last row of a page. Rows are ordered
// by created_at then id, both descending, so rows sharing a timestamp are
// still visited exactly once.
type pageCursor struct {
	CreatedAt time.Time
	ID        string
}

func encodePageToken(createdAt time.Time, id string) string {
	raw := createdAt.Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePageToken(token string) (*pageCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalidInput("invalid page token")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, invalidInput("invalid page token")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, invalidInput("invalid page token")
	}
	return &pageCursor{CreatedAt: t, ID: id}, nil
}

// paginate orders query newest first and, when c is set, skips everything up
// to and including the cursor row. table qualifies the columns.
func paginate(query *gorm.DB, table string, c *pageCursor) *gorm.DB {
	createdAt, id := table+".created_at", table+".id"
	query = query.Order(createdAt + " DESC").Order(id + " DESC")
	if c == nil {
		return query
	}
	return query.Where("("+createdAt+" < ? OR ("+createdAt+" = ? AND "+id+" < ?))", c.CreatedAt, c.CreatedAt, c.ID)
}
