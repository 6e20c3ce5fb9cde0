package snapshot

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GitDir is the metadata directory of a git work tree.
const GitDir = ".git"

type (
	// Git is an Engine backed by a git repository with a work tree on disk.
	Git struct {
		l           *zap.Logger
		dir         string
		repo        *git.Repository
		authorName  string
		authorEmail string
		mu          sync.Mutex
	}
	GitOption func(*Git)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func GitWithAuthor(name, email string) GitOption {
	return func(o *Git) {
		o.authorName = name
		o.authorEmail = email
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// OpenGit opens the git repository at dir. A missing or empty directory is
// initialized as a new repository.
func OpenGit(l *zap.Logger, dir string, opts ...GitOption) (*Git, error) {
	inst := &Git{
		l:           l.Named("git"),
		dir:         dir,
		authorName:  "gitdb",
		authorEmail: "gitdb@localhost",
	}

	for _, opt := range opts {
		opt(inst)
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(ErrInit, "failed to create %s: %s", dir, err)
		}
		return inst.init()
	case err != nil:
		return nil, errors.Wrapf(ErrInit, "failed to stat %s: %s", dir, err)
	case !info.IsDir():
		return nil, errors.Wrapf(ErrInit, "%s is not a directory", dir)
	}

	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			return nil, errors.Wrapf(ErrInit, "failed to read %s: %s", dir, readErr)
		}
		if len(entries) > 0 {
			return nil, errors.Wrapf(ErrInit, "%s exists and is not a git repository", dir)
		}
		return inst.init()
	} else if err != nil {
		return nil, errors.Wrapf(ErrInit, "failed to open %s: %s", dir, err)
	}
	inst.repo = repo
	inst.l.Debug("opened repository", zap.String("dir", dir))
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (g *Git) ReadFile(_ context.Context, rev, name string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	commit, err := g.commit(rev)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, errors.Wrapf(os.ErrNotExist, "%s: empty history", name)
	}

	file, err := commit.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, errors.Wrapf(os.ErrNotExist, "%s at %s", name, commit.Hash)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to look up %s at %s", name, commit.Hash)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s at %s", name, commit.Hash)
	}
	return []byte(contents), nil
}

func (g *Git) WriteFile(_ context.Context, name string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := filepath.Join(g.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", name)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "failed to write %s", name)
	}
	return nil
}

func (g *Git) Commit(_ context.Context, name, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := os.Stat(filepath.Join(g.dir, filepath.FromSlash(name))); os.IsNotExist(err) {
		return "", errors.Wrap(ErrNothingStaged, name)
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "failed to open work tree")
	}
	if _, err := wt.Add(name); err != nil {
		return "", errors.Wrapf(err, "failed to stage %s", name)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.authorName,
			Email: g.authorEmail,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to commit %s", name)
	}

	g.l.Debug("committed snapshot",
		zap.String("id", hash.String()),
		zap.String("file", name),
	)
	return hash.String(), nil
}

func (g *Git) Resolve(_ context.Context, rev string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	commit, err := g.commit(rev)
	if err != nil || commit == nil {
		return "", err
	}
	return commit.Hash.String(), nil
}

func (g *Git) Log(_ context.Context, name string, limit int) ([]Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	head, err := g.commit(Latest)
	if err != nil || head == nil {
		return nil, err
	}

	opts := &git.LogOptions{From: head.Hash}
	if name != "" {
		opts.FileName = &name
	}
	iter, err := g.repo.Log(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read history")
	}
	defer iter.Close()

	var ret []Snapshot
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(ret) >= limit {
			return storer.ErrStop
		}
		s := Snapshot{
			ID:      c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			Author:  c.Author.Name,
			Time:    c.Author.When,
		}
		if c.NumParents() > 0 {
			s.Parent = c.ParentHashes[0].String()
		}
		ret = append(ret, s)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk history")
	}
	return ret, nil
}

func (g *Git) Close() error {
	if c, ok := g.repo.Storer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (g *Git) init() (*Git, error) {
	repo, err := git.PlainInit(g.dir, false)
	if err != nil {
		return nil, errors.Wrapf(ErrInit, "failed to init %s: %s", g.dir, err)
	}
	g.repo = repo
	g.l.Info("initialized repository", zap.String("dir", g.dir))
	return g, nil
}

// commit resolves rev. HEAD on an empty history yields nil.
func (g *Git) commit(rev string) (*object.Commit, error) {
	rev = Rev(rev)
	if rev == Latest {
		ref, err := g.repo.Head()
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		} else if err != nil {
			return nil, errors.Wrap(err, "failed to resolve HEAD")
		}
		return g.commitObject(rev, ref.Hash())
	}

	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.Wrapf(ErrSnapshotNotFound, "%s: %s", rev, err)
	}
	return g.commitObject(rev, *hash)
}

func (g *Git) commitObject(rev string, hash plumbing.Hash) (*object.Commit, error) {
	commit, err := g.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, errors.Wrap(ErrSnapshotNotFound, rev)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to load snapshot %s", rev)
	}
	return commit, nil
}
