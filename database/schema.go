package database

// DefaultSteps is the built-in schema history. Step versions are strictly
// increasing; every step authors both dialect variants by hand. The legacy
// deployment applied its schema ad hoc, file by file — this list is the
// reconstructed, ordered equivalent of that target schema.
func DefaultSteps() []MigrationStep {
	return []MigrationStep{
		{
			Version:     1,
			Description: "create schema version table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS schema_version (
					version INTEGER PRIMARY KEY,
					description TEXT NOT NULL,
					applied_at TEXT NOT NULL
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS schema_version (
					version INTEGER PRIMARY KEY,
					description TEXT NOT NULL,
					applied_at TIMESTAMPTZ NOT NULL
				)`,
			},
		},
		{
			Version:     2,
			Description: "create users table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS users (
					user_id INTEGER PRIMARY KEY,
					username TEXT,
					first_name TEXT,
					last_name TEXT,
					joined_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
					posts_submitted INTEGER NOT NULL DEFAULT 0,
					comments_posted INTEGER NOT NULL DEFAULT 0,
					blocked INTEGER NOT NULL DEFAULT 0
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS users (
					user_id BIGINT PRIMARY KEY,
					username TEXT,
					first_name TEXT,
					last_name TEXT,
					joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					posts_submitted INT NOT NULL DEFAULT 0,
					comments_posted INT NOT NULL DEFAULT 0,
					blocked INT NOT NULL DEFAULT 0
				)`,
			},
		},
		{
			Version:     3,
			Description: "create posts table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS posts (
					post_id INTEGER PRIMARY KEY AUTOINCREMENT,
					public_id TEXT NOT NULL UNIQUE,
					user_id INTEGER NOT NULL,
					content TEXT NOT NULL,
					category TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					submitted_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
					channel_message_id INTEGER NOT NULL DEFAULT 0,
					post_number INTEGER NOT NULL DEFAULT 0,
					likes INTEGER NOT NULL DEFAULT 0,
					flagged INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY(user_id) REFERENCES users(user_id)
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS posts (
					post_id BIGSERIAL PRIMARY KEY,
					public_id TEXT NOT NULL UNIQUE,
					user_id BIGINT NOT NULL REFERENCES users(user_id),
					content TEXT NOT NULL,
					category TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					channel_message_id BIGINT NOT NULL DEFAULT 0,
					post_number BIGINT NOT NULL DEFAULT 0,
					likes INT NOT NULL DEFAULT 0,
					flagged INT NOT NULL DEFAULT 0
				)`,
			},
		},
		{
			Version:     4,
			Description: "create comments table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS comments (
					comment_id INTEGER PRIMARY KEY AUTOINCREMENT,
					post_id INTEGER NOT NULL,
					user_id INTEGER NOT NULL,
					parent_comment_id INTEGER NOT NULL DEFAULT 0,
					content TEXT NOT NULL,
					posted_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
					likes INTEGER NOT NULL DEFAULT 0,
					dislikes INTEGER NOT NULL DEFAULT 0,
					flagged INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY(post_id) REFERENCES posts(post_id),
					FOREIGN KEY(user_id) REFERENCES users(user_id)
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS comments (
					comment_id BIGSERIAL PRIMARY KEY,
					post_id BIGINT NOT NULL REFERENCES posts(post_id),
					user_id BIGINT NOT NULL REFERENCES users(user_id),
					parent_comment_id BIGINT NOT NULL DEFAULT 0,
					content TEXT NOT NULL,
					posted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					likes INT NOT NULL DEFAULT 0,
					dislikes INT NOT NULL DEFAULT 0,
					flagged INT NOT NULL DEFAULT 0
				)`,
			},
		},
		{
			Version:     5,
			Description: "create reactions table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS reactions (
					reaction_id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					target_type TEXT NOT NULL,
					target_id INTEGER NOT NULL,
					reaction_type TEXT NOT NULL,
					reacted_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(user_id, target_type, target_id),
					FOREIGN KEY(user_id) REFERENCES users(user_id)
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS reactions (
					reaction_id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(user_id),
					target_type TEXT NOT NULL,
					target_id BIGINT NOT NULL,
					reaction_type TEXT NOT NULL,
					reacted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, target_type, target_id)
				)`,
			},
		},
		{
			Version:     6,
			Description: "create reports table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS reports (
					report_id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					target_type TEXT NOT NULL,
					target_id INTEGER NOT NULL,
					reason TEXT,
					filed_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY(user_id) REFERENCES users(user_id)
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS reports (
					report_id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(user_id),
					target_type TEXT NOT NULL,
					target_id BIGINT NOT NULL,
					reason TEXT,
					filed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				)`,
			},
		},
		{
			Version:     7,
			Description: "create admin messages table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS admin_messages (
					message_id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					admin_id INTEGER,
					user_message TEXT,
					admin_reply TEXT,
					sent_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
					replied INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY(user_id) REFERENCES users(user_id)
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS admin_messages (
					message_id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(user_id),
					admin_id BIGINT,
					user_message TEXT,
					admin_reply TEXT,
					sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					replied INT NOT NULL DEFAULT 0
				)`,
			},
		},
		{
			Version:     8,
			Description: "create user preferences table",
			Embedded: []string{`
				CREATE TABLE IF NOT EXISTS user_preferences (
					user_id INTEGER PRIMARY KEY,
					notifications_enabled INTEGER NOT NULL DEFAULT 1,
					daily_digest_enabled INTEGER NOT NULL DEFAULT 1,
					language TEXT NOT NULL DEFAULT 'en',
					timezone TEXT NOT NULL DEFAULT 'UTC',
					FOREIGN KEY(user_id) REFERENCES users(user_id)
				)`,
			},
			ClientServer: []string{`
				CREATE TABLE IF NOT EXISTS user_preferences (
					user_id BIGINT PRIMARY KEY REFERENCES users(user_id),
					notifications_enabled INT NOT NULL DEFAULT 1,
					daily_digest_enabled INT NOT NULL DEFAULT 1,
					language TEXT NOT NULL DEFAULT 'en',
					timezone TEXT NOT NULL DEFAULT 'UTC'
				)`,
			},
		},
		{
			Version:     9,
			Description: "add lookup indexes",
			Embedded: []string{
				`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status, submitted_at)`,
				`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, posted_at)`,
				`CREATE INDEX IF NOT EXISTS idx_reactions_target ON reactions (target_type, target_id)`,
			},
			ClientServer: []string{
				`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status, submitted_at)`,
				`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, posted_at)`,
				`CREATE INDEX IF NOT EXISTS idx_reactions_target ON reactions (target_type, target_id)`,
			},
		},
	}
}
