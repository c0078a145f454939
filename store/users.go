package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database"
)

// UserStore persists chat participants keyed by their platform user id.
type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

// Touch records a user on first contact and refreshes their display fields
// on every later one. Counters and the blocked flag are left alone.
func (s *UserStore) Touch(ctx context.Context, u quietroom.User) error {
	const q = `
		INSERT INTO users (user_id, username, first_name, last_name, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name`

	joined := u.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}

	_, err := s.db.Execute(ctx, q,
		u.ID, u.Username, u.FirstName, u.LastName,
		database.BindTimestamp(s.db.Kind(), joined),
	)
	if err != nil {
		return fmt.Errorf("touch user %d: %w", u.ID, err)
	}
	return nil
}

// Get returns one user or quietroom.ErrNotFound.
func (s *UserStore) Get(ctx context.Context, userID int64) (quietroom.User, error) {
	const q = `
		SELECT user_id, username, first_name, last_name, joined_at,
			posts_submitted, comments_posted, blocked
		FROM users WHERE user_id = ?`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return quietroom.User{}, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return quietroom.User{}, err
		}
		return quietroom.User{}, quietroom.ErrNotFound
	}

	var (
		u       quietroom.User
		joined  database.Timestamp
		blocked int
	)
	if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&joined, &u.PostsSubmitted, &u.CommentsPosted, &blocked); err != nil {
		return quietroom.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.JoinedAt = joined.Time
	u.Blocked = blocked != 0
	return u, nil
}

// SetBlocked flips a user's write access.
func (s *UserStore) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	flag := 0
	if blocked {
		flag = 1
	}
	affected, err := s.db.Execute(ctx,
		`UPDATE users SET blocked = ? WHERE user_id = ?`, flag, userID)
	if err != nil {
		return fmt.Errorf("set blocked for user %d: %w", userID, err)
	}
	if affected == 0 {
		return quietroom.ErrNotFound
	}
	return nil
}

// requireActive loads the blocked flag inside an open transaction and
// rejects missing or blocked users.
func requireActive(ctx context.Context, tx quietroom.Querier, userID int64) error {
	rows, err := tx.Query(ctx, `SELECT blocked FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("user %d: %w", userID, quietroom.ErrNotFound)
	}
	var blocked int
	if err := rows.Scan(&blocked); err != nil {
		return err
	}
	if blocked != 0 {
		return quietroom.ErrBlocked
	}
	return nil
}

// scanOneID reads a single id from a RETURNING row sequence.
func scanOneID(rows quietroom.Rows) (int64, error) {
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, errors.New("no id returned")
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
