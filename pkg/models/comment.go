package models

import (
	"time"
)

// Comment represents a pull request review comment scraped from gh-board.
// Its score aggregates the weighted reactions it received.
type Comment struct {
	ID          string `json:"id"`
	AuthorLogin string `json:"author_login,omitempty"`
	Body        string `json:"body,omitempty"`
	Diff        string `json:"diff,omitempty"`

	Score       float64 `json:"score"`
	Pos         int     `json:"pos"`
	Neg         int     `json:"neg"`
	WeightedPos float64 `json:"weighted_pos"`
	WeightedNeg float64 `json:"weighted_neg"`

	CreatedAt    *time.Time `json:"created_at,omitempty"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty"`
}
