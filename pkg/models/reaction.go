package models

import (
	"strings"
	"time"
)

// Reaction content values as delivered by the GitHub API. Content is matched
// by substring because gh-board occasionally wraps the value.
const (
	ReactionThumbsUp   = "THUMBS_UP"
	ReactionThumbsDown = "THUMBS_DOWN"
)

// Reaction represents an emoji reaction on a review comment: the actual
// meta-review. Giver reacted to a comment written by Receiver.
type Reaction struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	GiverLogin    string     `json:"giver_login,omitempty"`
	ReceiverLogin string     `json:"receiver_login,omitempty"`
	CommentID     string     `json:"comment_id"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Positive reports whether the reaction counts as a positive meta-review.
func (r *Reaction) Positive() bool {
	return strings.Contains(r.Content, ReactionThumbsUp)
}

// Negative reports whether the reaction counts as a negative meta-review.
// THUMBS_UP must be checked first: THUMBS_DOWN is not a substring of it,
// but callers rely on the two being mutually exclusive.
func (r *Reaction) Negative() bool {
	return !r.Positive() && strings.Contains(r.Content, ReactionThumbsDown)
}
