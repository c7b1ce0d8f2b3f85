package models

import "time"

// SyncResult is the outcome of one repository refresh attempt.
type SyncResult struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	ChangesDetected bool      `json:"changes_detected"`
	FilesUpdated    []string  `json:"files_updated"`
	CommitBefore    string    `json:"commit_before,omitempty"`
	CommitAfter     string    `json:"commit_after,omitempty"`
	PullOutput      string    `json:"pull_output,omitempty"`
	SyncTime        time.Time `json:"sync_time"`
	Error           string    `json:"error,omitempty"`
}

// OK reports whether the sync attempt succeeded.
func (r *SyncResult) OK() bool {
	return r.Status == StatusSuccess
}

// File change kinds derived from git diff status letters.
const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
	ChangeRenamed  = "renamed"
	ChangeCopied   = "copied"
	ChangeUnknown  = "unknown"
)

// FileChange describes one path changed between two commits.
type FileChange struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	IsMarkdown bool   `json:"is_markdown"`
}

// SyncHistoryEntry is one diagnostic log record of a sync attempt.
type SyncHistoryEntry struct {
	SyncResult
	SyncCount int       `json:"sync_count"`
	Timestamp time.Time `json:"timestamp"`
}

// RepoStatus is an in-memory snapshot of the sync client.
type RepoStatus struct {
	RepoPath     string     `json:"repo_path"`
	RepoExists   bool       `json:"repo_exists"`
	IsGitRepo    bool       `json:"is_git_repo"`
	LastSync     *time.Time `json:"last_sync"`
	SyncCount    int        `json:"sync_count"`
	HealthStatus string     `json:"health_status"`
}
