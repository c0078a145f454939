package database

import (
	"fmt"
	"time"
)

// Timestamp scans a backend timestamp column: the client-server backend
// returns native time values, the embedded backend returns RFC 3339 text.
type Timestamp struct {
	Time time.Time
}

func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.Time = time.Time{}
		return nil
	case time.Time:
		ts.Time = v
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported source type %T", src)
	}
}

func (ts *Timestamp) parse(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unparseable value %q", s)
}

// BindTimestamp renders t the way the backend's timestamp column expects:
// RFC 3339 text for the embedded backend, a native time value otherwise.
func BindTimestamp(kind Kind, t time.Time) any {
	switch kind {
	case KindEmbedded:
		return t.UTC().Format(time.RFC3339Nano)
	case KindClientServer:
		return t.UTC()
	default:
		return t.UTC()
	}
}
