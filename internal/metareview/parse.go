package metareview

import (
	"encoding/json"
	"fmt"
	"time"
)

// The gh-board issues document. Only pull requests carry review comments;
// plain issues are skipped.
//
//	{"issues": [{"issue": {"pullRequest": {"comments": [...]}}}]}
type Document struct {
	Issues []IssueWrapper `json:"issues"`
}

// IssueWrapper is the envelope gh-board puts around each issue
type IssueWrapper struct {
	Issue Issue `json:"issue"`
}

// Issue holds the pull request payload, nil for non-PR issues
type Issue struct {
	PullRequest *PullRequest `json:"pullRequest"`
}

// PullRequest carries the review comments of one pull request
type PullRequest struct {
	Comments []RawComment `json:"comments"`
}

// RawComment is a review comment as scraped by gh-board
type RawComment struct {
	ID           string        `json:"id"`
	BodyText     string        `json:"bodyText"`
	DiffHunk     string        `json:"diffHunk"`
	CreatedAt    *time.Time    `json:"createdAt"`
	LastEditedAt *time.Time    `json:"lastEditedAt"`
	Author       RawUser       `json:"author"`
	Reactions    []RawReaction `json:"reactions"`
}

// RawReaction is an emoji reaction on a review comment
type RawReaction struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt"`
	User      RawUser    `json:"user"`
}

// RawUser identifies a GitHub account. Login is empty when the account has
// been deleted since the comment was written.
type RawUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// ParseDocument decodes a gh-board issues.json payload
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode issues document: %w", err)
	}
	return &doc, nil
}
