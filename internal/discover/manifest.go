package discover

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/transport"
	"github.com/brogergvhs/storyd/internal/util"
)

// WriteManifest persists the chapter URLs, one per line, atomically. The
// manifest is the single ordering authority for chapter numbering; it is
// only ever rewritten whole, never appended to.
func WriteManifest(path string, urls []string) error {
	var sb strings.Builder
	for _, u := range urls {
		sb.WriteString(u)
		sb.WriteString("\n")
	}

	return util.WriteFileAtomic(path, []byte(sb.String()), 0644)
}

// ReadManifest loads the chapter URLs back in order, skipping blank lines.
func ReadManifest(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("missing manifest at %s: run discovery first", path)
		}
		return nil, err
	}

	var urls []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}

	return urls, nil
}

// Agent is the discovery half of a site strategy.
type Agent interface {
	Discover(ctx context.Context, tc *transport.Context, seedURL string) (Listing, error)
}

type EnsureOptions struct {
	// Rediscover forces a fresh seed scrape even when a manifest exists.
	Rediscover bool

	// Lock* mark identity fields the user set explicitly; site metadata
	// never overrides a locked field.
	LockName   bool
	LockSlug   bool
	LockAuthor bool
}

// EnsureManifest resolves the run's manifest and final plan identity. An
// existing manifest is authoritative: the plan persisted beside it pins the
// story directory, so discovery (and any metadata-derived renaming) happens
// at most once per story. Hand edits to the manifest survive re-runs.
func EnsureManifest(ctx context.Context, tc *transport.Context, agent Agent, plan story.Plan, opts EnsureOptions) ([]string, story.Plan, error) {
	if saved, ok := story.FindPlan(plan.Root, plan.SeedURL); ok {
		saved.Site = plan.Site
		plan = saved
		// the story directory is pinned once a plan is persisted
		opts.LockSlug = true
	}

	if !opts.Rediscover && util.FileExists(plan.ManifestPath()) {
		urls, err := ReadManifest(plan.ManifestPath())
		return urls, plan, err
	}

	listing, err := agent.Discover(ctx, tc, plan.SeedURL)
	if err != nil {
		return nil, plan, err
	}

	if !opts.LockName && listing.Title != "" {
		plan.Name = listing.Title
		if !opts.LockSlug {
			plan.Slug = story.Slugify(listing.Title)
		}
	}
	if !opts.LockAuthor && listing.Author != "" {
		plan.Author = listing.Author
	}

	if err := story.SavePlan(plan); err != nil {
		return nil, plan, err
	}
	if err := WriteManifest(plan.ManifestPath(), listing.URLs); err != nil {
		return nil, plan, err
	}

	return listing.URLs, plan, nil
}
