// Package history records successive versions of the data file in a git
// repository using go-git (pure Go, no git binary dependency).
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	defaultName  = "productdb"
	defaultEmail = "productdb@localhost"
)

// Commit is one recorded version of the data file.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

// Repo tracks a single file in the git repository rooted at its directory.
type Repo struct {
	dir  string
	file string
	repo *gogit.Repository
	mu   sync.Mutex
}

// Open opens or initializes the repository in the directory of path and
// tracks path in it.
func Open(path string) (*Repo, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Repo{dir: dir, file: filepath.Base(path), repo: repo}, nil
}

// Commit stages the tracked file and commits it if it changed.
//
// It returns false when there was nothing to commit. An empty author uses the
// repository default.
func (r *Repo) Commit(ctx context.Context, author, msg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	w, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(r.file); err != nil {
		return false, fmt.Errorf("failed to stage %s: %w", r.file, err)
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}
	switch status.File(r.file).Staging {
	case gogit.Added, gogit.Modified, gogit.Deleted:
	default:
		return false, nil
	}

	if author == "" {
		author = defaultName
	}
	now := time.Now()
	_, err = w.Commit(msg, &gogit.CommitOptions{
		Author:    &object.Signature{Name: author, Email: defaultEmail, When: now},
		Committer: &object.Signature{Name: defaultName, Email: defaultEmail, When: now},
	})
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Log returns up to n commits touching the tracked file, newest first.
func (r *Repo) Log(ctx context.Context, n int) ([]Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	file := r.file
	iter, err := r.repo.Log(&gogit.LogOptions{FileName: &file})
	if err != nil {
		// No commits yet.
		return []Commit{}, nil
	}
	defer iter.Close()

	commits := []Commit{}
	for len(commits) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}
	return commits, nil
}
