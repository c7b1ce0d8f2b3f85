// Package gitsync keeps a local wiki clone up to date by shelling out to git.
//
// All git invocations on one Client are serialized. Commands run with their
// working directory set to the repository; the process working directory is
// never touched.
package gitsync

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/wikifeed/internal/apperr"
	"github.com/starford/wikifeed/internal/models"
)

// DefaultHistoryLimit bounds the in-memory sync history.
const DefaultHistoryLimit = 100

const shortHashLen = 8

// Health values reported by Status.
const (
	HealthHealthy       = "healthy"
	HealthDegraded      = "degraded"
	HealthMissing       = "missing"
	HealthNotRepository = "not_a_repository"
)

// Observer is notified after every sync attempt.
type Observer interface {
	ObserveSync(result models.SyncResult, elapsed time.Duration)
}

// Client pulls a git working copy and records every attempt.
type Client struct {
	repoPath     string
	runner       Runner
	logger       *slog.Logger
	historyLimit int
	now          func() time.Time
	newID        func() string
	observer     Observer

	// opMu serializes git operations; stateMu guards the fields below it so
	// Status never waits on a running pull.
	opMu      sync.Mutex
	stateMu   sync.Mutex
	history   []models.SyncHistoryEntry
	attempts  int
	lastSync  *time.Time
	lastError string
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the git command runner.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHistoryLimit overrides DefaultHistoryLimit. Values below 1 are ignored.
func WithHistoryLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithObserver registers a sync observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the working copy at repoPath.
func NewClient(repoPath string, opts ...Option) *Client {
	c := &Client{
		repoPath:     repoPath,
		runner:       ExecRunner{},
		logger:       slog.Default(),
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepoPath returns the configured working copy path.
func (c *Client) RepoPath() string { return c.repoPath }

// PullUpdates runs git pull and reports what changed. Failures are returned
// as a result with Status "error"; the attempt is always recorded.
func (c *Client) PullUpdates(ctx context.Context) models.SyncResult {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	start := c.now()
	res := c.pull(ctx, start)
	c.record(res)

	if c.observer != nil {
		c.observer.ObserveSync(res, c.now().Sub(start))
	}
	if res.OK() {
		c.logger.Info("gitsync: pull completed",
			slog.String("path", c.repoPath),
			slog.Bool("changes", res.ChangesDetected),
			slog.Int("files", len(res.FilesUpdated)),
			slog.String("commit", res.CommitAfter),
		)
	} else {
		c.logger.Warn("gitsync: pull failed",
			slog.String("path", c.repoPath),
			slog.String("error", res.Error),
		)
	}
	return res
}

// ForceSyncNow is PullUpdates under the name used by manual refresh buttons.
func (c *Client) ForceSyncNow(ctx context.Context) models.SyncResult {
	return c.PullUpdates(ctx)
}

func (c *Client) pull(ctx context.Context, start time.Time) models.SyncResult {
	res := models.SyncResult{
		ID:           c.newID(),
		SyncTime:     start,
		FilesUpdated: []string{},
	}

	if err := c.checkRepo(); err != nil {
		return failed(res, err)
	}

	before, err := c.head(ctx)
	if err != nil {
		return failed(res, err)
	}
	out, err := c.runner.Run(ctx, c.repoPath, "pull")
	if err != nil {
		return failed(res, err)
	}
	after, err := c.head(ctx)
	if err != nil {
		return failed(res, err)
	}

	res.Status = models.StatusSuccess
	res.PullOutput = strings.TrimSpace(out)
	res.CommitBefore = shortHash(before)
	res.CommitAfter = shortHash(after)
	res.ChangesDetected = before != after

	if res.ChangesDetected {
		diff, err := c.runner.Run(ctx, c.repoPath, "diff", "--name-only", before, after)
		if err != nil {
			return failed(res, err)
		}
		res.FilesUpdated = nonEmptyLines(diff)
	}
	return res
}

// DetectFileChanges lists the paths changed between two commits. When either
// hash is empty the two most recent commits are used; a repository with
// fewer than two commits yields an empty list.
func (c *Client) DetectFileChanges(ctx context.Context, before, after string) ([]models.FileChange, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkRepo(); err != nil {
		return nil, err
	}

	if before == "" || after == "" {
		out, err := c.runner.Run(ctx, c.repoPath, "log", "--oneline", "-n", "2")
		if err != nil {
			// git log fails on an unborn branch; no commits means no changes.
			if _, headErr := c.runner.Run(ctx, c.repoPath, "rev-parse", "--verify", "HEAD"); headErr != nil {
				return []models.FileChange{}, nil
			}
			return nil, errors.New(commandMessage(err))
		}
		lines := nonEmptyLines(out)
		if len(lines) < 2 {
			return []models.FileChange{}, nil
		}
		after = strings.Fields(lines[0])[0]
		before = strings.Fields(lines[1])[0]
	}

	out, err := c.runner.Run(ctx, c.repoPath, "diff", "--name-status", before, after)
	if err != nil {
		return nil, errors.New(commandMessage(err))
	}
	return parseNameStatus(out), nil
}

// Status returns an in-memory snapshot. It runs no git commands.
func (c *Client) Status() models.RepoStatus {
	st := models.RepoStatus{RepoPath: c.repoPath}
	if info, err := os.Stat(c.repoPath); err == nil && info.IsDir() {
		st.RepoExists = true
		if _, err := os.Stat(filepath.Join(c.repoPath, ".git")); err == nil {
			st.IsGitRepo = true
		}
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.lastSync != nil {
		t := *c.lastSync
		st.LastSync = &t
	}
	st.SyncCount = len(c.history)

	switch {
	case !st.RepoExists:
		st.HealthStatus = HealthMissing
	case !st.IsGitRepo:
		st.HealthStatus = HealthNotRepository
	case c.lastError != "":
		st.HealthStatus = HealthDegraded
	default:
		st.HealthStatus = HealthHealthy
	}
	return st
}

// History returns the recorded attempts, oldest first.
func (c *Client) History() []models.SyncHistoryEntry {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	out := make([]models.SyncHistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Client) record(res models.SyncResult) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.attempts++
	c.history = append(c.history, models.SyncHistoryEntry{
		SyncResult: res,
		SyncCount:  c.attempts,
		Timestamp:  c.now(),
	})
	if over := len(c.history) - c.historyLimit; over > 0 {
		c.history = append(c.history[:0:0], c.history[over:]...)
	}

	if res.OK() {
		t := res.SyncTime
		c.lastSync = &t
		c.lastError = ""
	} else {
		c.lastError = res.Error
	}
}

func (c *Client) checkRepo() error {
	if _, err := os.Stat(c.repoPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.ErrRepositoryMissing
		}
		return err
	}
	if _, err := os.Stat(filepath.Join(c.repoPath, ".git")); err != nil {
		return apperr.ErrNotRepository
	}
	return nil
}

func (c *Client) head(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func failed(res models.SyncResult, err error) models.SyncResult {
	res.Status = models.StatusError
	res.Error = commandMessage(err)
	res.ChangesDetected = false
	res.FilesUpdated = []string{}
	res.CommitBefore = ""
	res.CommitAfter = ""
	res.PullOutput = ""
	return res
}

// commandMessage prefers git's stderr over the wrapped exit error.
func commandMessage(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		if msg := strings.TrimSpace(cmdErr.Stderr); msg != "" {
			return msg
		}
		return cmdErr.Err.Error()
	}
	return err.Error()
}

func shortHash(h string) string {
	if len(h) > shortHashLen {
		return h[:shortHashLen]
	}
	return h
}

func nonEmptyLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
