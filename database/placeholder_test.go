package database_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quietroom/quietroom/database"
)

func TestTranslate_Embedded_Passthrough(t *testing.T) {
	t.Parallel()

	query := `SELECT content FROM posts WHERE user_id = ? AND category = ?`
	got := database.Translate(database.KindEmbedded, query)
	assert.Equal(t, query, got, "embedded backend takes canonical markers natively")
}

func TestTranslate_ClientServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "no markers",
			query: `SELECT COUNT(*) FROM posts`,
			want:  `SELECT COUNT(*) FROM posts`,
		},
		{
			name:  "single marker",
			query: `SELECT * FROM users WHERE user_id = ?`,
			want:  `SELECT * FROM users WHERE user_id = $1`,
		},
		{
			name:  "markers numbered left to right",
			query: `INSERT INTO comments (post_id, user_id, content) VALUES (?, ?, ?)`,
			want:  `INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3)`,
		},
		{
			name:  "marker inside single-quoted literal untouched",
			query: `SELECT * FROM posts WHERE content = 'what?' AND user_id = ?`,
			want:  `SELECT * FROM posts WHERE content = 'what?' AND user_id = $1`,
		},
		{
			name:  "marker inside double-quoted literal untouched",
			query: `SELECT "odd?col" FROM posts WHERE post_id = ?`,
			want:  `SELECT "odd?col" FROM posts WHERE post_id = $1`,
		},
		{
			name:  "doubled quote escape does not end the literal",
			query: `SELECT * FROM posts WHERE content = 'it''s a ?' AND likes > ?`,
			want:  `SELECT * FROM posts WHERE content = 'it''s a ?' AND likes > $1`,
		},
		{
			name:  "marker after closed literal",
			query: `UPDATE posts SET category = 'q&a' WHERE post_id = ?`,
			want:  `UPDATE posts SET category = 'q&a' WHERE post_id = $1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := database.Translate(database.KindClientServer, tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_PreservesMarkerCount(t *testing.T) {
	t.Parallel()

	queries := []string{
		`SELECT 1`,
		`SELECT * FROM users WHERE user_id = ?`,
		`INSERT INTO reactions (user_id, target_type, target_id, reaction_type) VALUES (?, ?, ?, ?)`,
		`UPDATE posts SET status = ?, post_number = ?, channel_message_id = ? WHERE post_id = ? AND status = ?`,
	}

	for _, query := range queries {
		canonical := strings.Count(query, "?")
		translated := database.Translate(database.KindClientServer, query)

		assert.Zero(t, strings.Count(translated, "?"), "no canonical markers remain")
		for i := 1; i <= canonical; i++ {
			assert.Contains(t, translated, "$"+string(rune('0'+i)))
		}
	}
}

func TestTranslate_Memoized(t *testing.T) {
	t.Parallel()

	query := `SELECT * FROM posts WHERE post_id = ? AND status = ?`
	first := database.Translate(database.KindClientServer, query)
	second := database.Translate(database.KindClientServer, query)
	assert.Equal(t, first, second, "translation is deterministic across calls")
}
