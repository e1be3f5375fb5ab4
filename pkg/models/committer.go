package models

// Contributor represents an entry from the community contributors feed.
type Contributor struct {
	Login        string `json:"login"`
	Name         string `json:"name,omitempty"`
	Reviews      int    `json:"reviews"`
	Commits      int    `json:"commits"`
	IssuesOpened int    `json:"issues_opened"`
}

// OutsideCommitter represents a committer reported by the OpenHub API who
// contributes to the organisation's portfolio projects from outside.
type OutsideCommitter struct {
	Name string `json:"name"`
	Org  string `json:"org"`

	// Contribution stats to portfolio projects
	CommitCount  int    `json:"commit_count"`
	ProjectCount int    `json:"project_count"`
	LatestCommit string `json:"latest_commit,omitempty"`
}
