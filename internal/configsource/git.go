package configsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Git reads the config file from the head commit of a branch, ignoring the
// working tree. Publish commits a new version.
type Git struct {
	dir    string
	branch string
	file   string
	mu     sync.Mutex
}

func NewGit(dir, branch, file string) *Git {
	return &Git{dir: dir, branch: branch, file: path.Clean(filepath.ToSlash(file))}
}

func (g *Git) String() string {
	return fmt.Sprintf("git:%s@%s:%s", g.dir, g.branch, g.file)
}

// Revision identifies a published config commit.
type Revision struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (g *Git) Load(ctx context.Context) (json.RawMessage, error) {
	raw, _, err := g.LoadRevision(ctx)
	return raw, err
}

// LoadRevision returns the config together with the commit it came from.
func (g *Git) LoadRevision(ctx context.Context) (json.RawMessage, Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, Revision{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := git.PlainOpen(g.dir)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("open config repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(g.branch), true)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("resolve branch %s: %w", g.branch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, Revision{}, fmt.Errorf("load commit object: %w", err)
	}
	file, err := commitObj.File(g.file)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("load %s from commit: %w", g.file, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, Revision{}, fmt.Errorf("open config reader: %w", err)
	}
	defer reader.Close()

	raw, err := readLimited(reader)
	if err != nil {
		return nil, Revision{}, err
	}
	return raw, toRevision(commitObj), nil
}

// Publish commits raw as the config file on the branch, creating the
// repository and branch when missing.
func (g *Git) Publish(ctx context.Context, raw json.RawMessage, author, message string) (Revision, error) {
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := g.openOrInit()
	if err != nil {
		return Revision{}, err
	}
	if err := checkoutBranch(repo, g.branch); err != nil {
		return Revision{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, fmt.Errorf("open worktree: %w", err)
	}

	target := filepath.Join(worktree.Filesystem.Root(), filepath.FromSlash(g.file))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Revision{}, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(target, append([]byte(strings.TrimSpace(string(raw))), '\n'), 0o644); err != nil {
		return Revision{}, fmt.Errorf("write config: %w", err)
	}
	if _, err := worktree.Add(g.file); err != nil {
		return Revision{}, fmt.Errorf("git add config: %w", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.bugomattic.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return Revision{}, fmt.Errorf("commit config: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

func (g *Git) openOrInit() (*git.Repository, error) {
	repo, err := git.PlainOpen(g.dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open config repo: %w", err)
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config repo dir: %w", err)
	}
	repo, err = git.PlainInit(g.dir, false)
	if err != nil {
		return nil, fmt.Errorf("init config repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(g.branch))); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", g.branch, err)
	}
	return repo, nil
}

// checkoutBranch switches the worktree to branch. An unborn branch (fresh
// repository) needs no checkout; a missing branch is created from HEAD.
func checkoutBranch(repo *git.Repository, branch string) error {
	branchRef := plumbing.NewBranchReferenceName(branch)
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target() == branchRef {
		return nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	_, err = repo.Reference(branchRef, true)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Create: true}); err != nil {
			return fmt.Errorf("create branch checkout %s: %w", branch, err)
		}
	case err != nil:
		return fmt.Errorf("resolve branch %s: %w", branch, err)
	default:
		if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
			return fmt.Errorf("checkout branch %s: %w", branch, err)
		}
	}
	return nil
}

func toRevision(commitObj *object.Commit) Revision {
	return Revision{
		Hash:      commitObj.Hash.String(),
		Author:    commitObj.Author.Name,
		Message:   strings.TrimSpace(commitObj.Message),
		CreatedAt: commitObj.Author.When.UTC(),
	}
}

func sanitizeEmail(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('.')
		}
	}
	if b.Len() == 0 {
		return "bugomattic"
	}
	return b.String()
}
