// Package gitmeta resolves the branch and commit a run was made from, using
// CI environment variables first and the local repository second.
package gitmeta

import (
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
)

const (
	DefaultBranch = "MAIN"
	UnknownCommit = "UNKNOWN"
	shortSHA      = 7
)

// Metadata is the branch and short commit of a run.
type Metadata struct {
	Branch string `json:"branch"`
	Commit string `json:"commit"`
}

// Resolver looks up git metadata for the repository containing Dir.
type Resolver struct {
	Dir    string
	Getenv func(string) string
	Logger zerolog.Logger
}

// New returns a resolver over dir using the process environment.
func New(dir string, logger zerolog.Logger) *Resolver {
	return &Resolver{Dir: dir, Getenv: os.Getenv, Logger: logger}
}

// Resolve returns both branch and commit.
func (r *Resolver) Resolve() Metadata {
	m := Metadata{Branch: r.Branch(), Commit: r.Commit()}
	r.Logger.Debug().Str("branch", m.Branch).Str("commit", m.Commit).Msg("git metadata")
	return m
}

// Branch returns the upper-cased branch name from BRANCH, GIT_BRANCH,
// CIRCLE_BRANCH or GITHUB_REF_NAME, falling back to the repository HEAD
// and then to MAIN.
func (r *Resolver) Branch() string {
	for _, key := range []string{"BRANCH", "GIT_BRANCH", "CIRCLE_BRANCH", "GITHUB_REF_NAME"} {
		if b := r.getenv(key); b != "" {
			return strings.ToUpper(strings.TrimPrefix(b, "refs/heads/"))
		}
	}

	repo, err := r.open()
	if err != nil {
		r.Logger.Warn().Err(err).Msg("could not determine git branch, using MAIN")
		return DefaultBranch
	}
	head, err := repo.Head()
	if err != nil {
		r.Logger.Warn().Err(err).Msg("could not read HEAD, using MAIN")
		return DefaultBranch
	}
	if !head.Name().IsBranch() {
		return "HEAD"
	}
	return strings.ToUpper(head.Name().Short())
}

// Commit returns the first seven characters of CIRCLE_SHA1 or GITHUB_SHA,
// else of the repository HEAD, else UNKNOWN.
func (r *Resolver) Commit() string {
	for _, key := range []string{"CIRCLE_SHA1", "GITHUB_SHA"} {
		if c := r.getenv(key); c != "" {
			return short(c)
		}
	}

	repo, err := r.open()
	if err != nil {
		r.Logger.Warn().Err(err).Msg("could not determine commit hash")
		return UnknownCommit
	}
	head, err := repo.Head()
	if err != nil {
		r.Logger.Warn().Err(err).Msg("could not determine commit hash")
		return UnknownCommit
	}
	return short(head.Hash().String())
}

func (r *Resolver) open() (*git.Repository, error) {
	dir := r.Dir
	if dir == "" {
		dir = "."
	}
	return git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
}

func (r *Resolver) getenv(key string) string {
	if r.Getenv == nil {
		return os.Getenv(key)
	}
	return r.Getenv(key)
}

func short(sha string) string {
	if len(sha) > shortSHA {
		return sha[:shortSHA]
	}
	return sha
}
