package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database"
)

// PostStore persists submissions through their moderation lifecycle:
// pending on submit, then approved (and numbered) or rejected.
type PostStore struct {
	db *database.DB
}

func NewPostStore(db *database.DB) *PostStore {
	return &PostStore{db: db}
}

// Submit stores a new pending post and bumps the submitter's counter. The
// submitter must exist and not be blocked.
func (s *PostStore) Submit(ctx context.Context, userID int64, content, category string) (quietroom.Post, error) {
	if strings.TrimSpace(content) == "" {
		return quietroom.Post{}, fmt.Errorf("submit: empty content: %w", quietroom.ErrInvalidInput)
	}
	if category == "" {
		category = "general"
	}

	post := quietroom.Post{
		PublicID:    uuid.New(),
		UserID:      userID,
		Content:     content,
		Category:    category,
		Status:      quietroom.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}

	err := s.db.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		if err := requireActive(ctx, tx, userID); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			INSERT INTO posts (public_id, user_id, content, category, status, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING post_id`,
			post.PublicID.String(), userID, content, category,
			string(post.Status), database.BindTimestamp(s.db.Kind(), post.SubmittedAt),
		)
		if err != nil {
			return err
		}
		post.ID, err = scanOneID(rows)
		if err != nil {
			return err
		}

		_, err = tx.Execute(ctx,
			`UPDATE users SET posts_submitted = posts_submitted + 1 WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return quietroom.Post{}, fmt.Errorf("submit post: %w", err)
	}
	return post, nil
}

// Approve moves a pending post to approved, assigns the next public post
// number, and records the channel message it was published as.
func (s *PostStore) Approve(ctx context.Context, postID, channelMessageID int64) (quietroom.Post, error) {
	var approved quietroom.Post
	err := s.db.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		rows, err := tx.Query(ctx,
			`SELECT COALESCE(MAX(post_number), 0) + 1 FROM posts`)
		if err != nil {
			return err
		}
		next, err := scanOneID(rows)
		if err != nil {
			return err
		}

		affected, err := tx.Execute(ctx, `
			UPDATE posts
			SET status = ?, post_number = ?, channel_message_id = ?
			WHERE post_id = ? AND status = ?`,
			string(quietroom.StatusApproved), next, channelMessageID,
			postID, string(quietroom.StatusPending),
		)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("post %d is not pending: %w", postID, quietroom.ErrNotFound)
		}

		approved, err = getPost(ctx, tx, postID)
		return err
	})
	if err != nil {
		return quietroom.Post{}, fmt.Errorf("approve post: %w", err)
	}
	return approved, nil
}

// Reject moves a pending post to rejected.
func (s *PostStore) Reject(ctx context.Context, postID int64) error {
	affected, err := s.db.Execute(ctx,
		`UPDATE posts SET status = ? WHERE post_id = ? AND status = ?`,
		string(quietroom.StatusRejected), postID, string(quietroom.StatusPending))
	if err != nil {
		return fmt.Errorf("reject post: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post %d is not pending: %w", postID, quietroom.ErrNotFound)
	}
	return nil
}

// Get returns one post or quietroom.ErrNotFound.
func (s *PostStore) Get(ctx context.Context, postID int64) (quietroom.Post, error) {
	var post quietroom.Post
	err := s.db.WithConn(ctx, func(conn quietroom.Connection) error {
		var err error
		post, err = getPost(ctx, conn, postID)
		return err
	})
	if err != nil {
		return quietroom.Post{}, err
	}
	return post, nil
}

// Pending lists posts awaiting moderation, oldest first.
func (s *PostStore) Pending(ctx context.Context) ([]quietroom.Post, error) {
	rows, err := s.db.Query(ctx, selectPost+`
		WHERE status = ? ORDER BY post_id`, string(quietroom.StatusPending))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []quietroom.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}
	return posts, nil
}

// Like records one user's like on a post; repeated likes by the same user
// are ignored. The (user, target) pair is unique in the reactions table.
func (s *PostStore) Like(ctx context.Context, userID, postID int64) error {
	err := s.db.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		if err := requireActive(ctx, tx, userID); err != nil {
			return err
		}

		inserted, err := tx.Execute(ctx, `
			INSERT INTO reactions (user_id, target_type, target_id, reaction_type)
			VALUES (?, 'post', ?, 'like')
			ON CONFLICT (user_id, target_type, target_id) DO NOTHING`,
			userID, postID)
		if err != nil {
			return err
		}
		if inserted == 0 {
			return nil
		}

		affected, err := tx.Execute(ctx,
			`UPDATE posts SET likes = likes + 1 WHERE post_id = ?`, postID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("post %d: %w", postID, quietroom.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	return nil
}

const selectPost = `
	SELECT post_id, public_id, user_id, content, category, status,
		submitted_at, channel_message_id, post_number, likes, flagged
	FROM posts`

func getPost(ctx context.Context, q quietroom.Querier, postID int64) (quietroom.Post, error) {
	rows, err := q.Query(ctx, selectPost+` WHERE post_id = ?`, postID)
	if err != nil {
		return quietroom.Post{}, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return quietroom.Post{}, err
		}
		return quietroom.Post{}, fmt.Errorf("post %d: %w", postID, quietroom.ErrNotFound)
	}
	return scanPost(rows)
}

func scanPost(rows quietroom.Rows) (quietroom.Post, error) {
	var (
		post      quietroom.Post
		publicID  string
		status    string
		submitted database.Timestamp
		flagged   int
	)
	if err := rows.Scan(&post.ID, &publicID, &post.UserID, &post.Content,
		&post.Category, &status, &submitted, &post.ChannelMessageID,
		&post.PostNumber, &post.Likes, &flagged); err != nil {
		return quietroom.Post{}, fmt.Errorf("scan post: %w", err)
	}

	var err error
	post.PublicID, err = uuid.Parse(publicID)
	if err != nil {
		return quietroom.Post{}, fmt.Errorf("scan post: parse public id: %w", err)
	}
	post.Status, err = quietroom.ParsePostStatus(status)
	if err != nil {
		return quietroom.Post{}, fmt.Errorf("scan post: %w", err)
	}
	post.SubmittedAt = submitted.Time
	post.Flagged = flagged != 0
	return post, nil
}
