package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database"
)

// CommentStore persists threaded replies to approved posts.
type CommentStore struct {
	db *database.DB
}

func NewCommentStore(db *database.DB) *CommentStore {
	return &CommentStore{db: db}
}

// Add stores a comment and bumps the author's counter. The target post must
// be approved; ParentID, when non-zero, must name a comment on the same
// post.
func (s *CommentStore) Add(ctx context.Context, c quietroom.Comment) (quietroom.Comment, error) {
	if strings.TrimSpace(c.Content) == "" {
		return quietroom.Comment{}, fmt.Errorf("add comment: empty content: %w", quietroom.ErrInvalidInput)
	}
	c.PostedAt = time.Now().UTC()

	err := s.db.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		if err := requireActive(ctx, tx, c.UserID); err != nil {
			return err
		}
		if err := requireApprovedPost(ctx, tx, c.PostID); err != nil {
			return err
		}
		if c.ParentID != 0 {
			if err := requireParentComment(ctx, tx, c.PostID, c.ParentID); err != nil {
				return err
			}
		}

		rows, err := tx.Query(ctx, `
			INSERT INTO comments (post_id, user_id, parent_comment_id, content, posted_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING comment_id`,
			c.PostID, c.UserID, c.ParentID, c.Content,
			database.BindTimestamp(s.db.Kind(), c.PostedAt),
		)
		if err != nil {
			return err
		}
		c.ID, err = scanOneID(rows)
		if err != nil {
			return err
		}

		_, err = tx.Execute(ctx,
			`UPDATE users SET comments_posted = comments_posted + 1 WHERE user_id = ?`, c.UserID)
		return err
	})
	if err != nil {
		return quietroom.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	return c, nil
}

// ListByPost returns a post's comments oldest first.
func (s *CommentStore) ListByPost(ctx context.Context, postID int64) ([]quietroom.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT comment_id, post_id, user_id, parent_comment_id, content,
			posted_at, likes, dislikes, flagged
		FROM comments WHERE post_id = ? ORDER BY comment_id`, postID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var comments []quietroom.Comment
	for rows.Next() {
		var (
			c       quietroom.Comment
			posted  database.Timestamp
			flagged int
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentID,
			&c.Content, &posted, &c.Likes, &c.Dislikes, &flagged); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.PostedAt = posted.Time
		c.Flagged = flagged != 0
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Flag marks a comment for moderator review.
func (s *CommentStore) Flag(ctx context.Context, commentID int64) error {
	affected, err := s.db.Execute(ctx,
		`UPDATE comments SET flagged = 1 WHERE comment_id = ?`, commentID)
	if err != nil {
		return fmt.Errorf("flag comment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("comment %d: %w", commentID, quietroom.ErrNotFound)
	}
	return nil
}

func requireApprovedPost(ctx context.Context, tx quietroom.Querier, postID int64) error {
	rows, err := tx.Query(ctx, `SELECT status FROM posts WHERE post_id = ?`, postID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("post %d: %w", postID, quietroom.ErrNotFound)
	}
	var status string
	if err := rows.Scan(&status); err != nil {
		return err
	}
	if quietroom.PostStatus(status) != quietroom.StatusApproved {
		return fmt.Errorf("post %d is not approved: %w", postID, quietroom.ErrInvalidInput)
	}
	return nil
}

func requireParentComment(ctx context.Context, tx quietroom.Querier, postID, parentID int64) error {
	rows, err := tx.Query(ctx,
		`SELECT comment_id FROM comments WHERE comment_id = ? AND post_id = ?`, parentID, postID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("parent comment %d: %w", parentID, quietroom.ErrNotFound)
	}
	return nil
}
