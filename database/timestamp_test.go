package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietroom/quietroom/database"
)

func TestTimestamp_Scan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  any
		want time.Time
	}{
		{name: "native time", src: now, want: now},
		{name: "rfc3339 text", src: "2025-06-01T12:30:00Z", want: now},
		{name: "rfc3339 bytes", src: []byte("2025-06-01T12:30:00Z"), want: now},
		{name: "engine default format", src: "2025-06-01 12:30:00", want: now},
		{name: "null", src: nil, want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ts database.Timestamp
			require.NoError(t, ts.Scan(tt.src))
			assert.True(t, tt.want.Equal(ts.Time), "got %v, want %v", ts.Time, tt.want)
		})
	}
}

func TestTimestamp_ScanRejectsGarbage(t *testing.T) {
	t.Parallel()

	var ts database.Timestamp
	assert.Error(t, ts.Scan("not a timestamp"))
	assert.Error(t, ts.Scan(42))
}

func TestBindTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)

	embedded := database.BindTimestamp(database.KindEmbedded, now)
	s, ok := embedded.(string)
	require.True(t, ok, "embedded binding is text")
	parsed, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	assert.True(t, now.Equal(parsed))

	clientServer := database.BindTimestamp(database.KindClientServer, now)
	tm, ok := clientServer.(time.Time)
	require.True(t, ok, "client-server binding is a native time")
	assert.True(t, now.Equal(tm))
}
