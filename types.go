package quietroom

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostStatus is the moderation state of a submitted post.
type PostStatus string

const (
	StatusPending  PostStatus = "pending"
	StatusApproved PostStatus = "approved"
	StatusRejected PostStatus = "rejected"
)

func (s PostStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func ParsePostStatus(s string) (PostStatus, error) {
	status := PostStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid post status: %s (valid: pending, approved, rejected)", s)
	}
	return status, nil
}

// User is a participant identified by the chat platform's numeric user id.
type User struct {
	ID             int64
	Username       string
	FirstName      string
	LastName       string
	JoinedAt       time.Time
	PostsSubmitted int
	CommentsPosted int
	Blocked        bool
}

// Post is a single submission. PublicID is the token shown outside the
// service; the numeric ID never leaves the database layer.
type Post struct {
	ID               int64
	PublicID         uuid.UUID
	UserID           int64
	Content          string
	Category         string
	Status           PostStatus
	SubmittedAt      time.Time
	ChannelMessageID int64
	PostNumber       int64
	Likes            int
	Flagged          bool
}

// Comment is a threaded reply to an approved post. ParentID is zero for
// top-level comments.
type Comment struct {
	ID       int64
	PostID   int64
	UserID   int64
	ParentID int64
	Content  string
	PostedAt time.Time
	Likes    int
	Dislikes int
	Flagged  bool
}

// Reaction records one user's reaction to a post or comment. The
// (user, target type, target id) triple is unique.
type Reaction struct {
	ID         int64
	UserID     int64
	TargetType string
	TargetID   int64
	Kind       string
}

// Report is a user-filed complaint against a post or comment.
type Report struct {
	ID         int64
	UserID     int64
	TargetType string
	TargetID   int64
	Reason     string
	FiledAt    time.Time
}
