package discover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/transport"
)

// countingAgent records Discover calls and returns a fixed listing.
type countingAgent struct {
	calls   *int
	listing Listing
}

func (a countingAgent) Discover(_ context.Context, _ *transport.Context, _ string) (Listing, error) {
	*a.calls++
	return a.listing, nil
}

const ensureSeed = "https://example.com/Story/index.html"

func ensureAgent(calls *int) countingAgent {
	return countingAgent{
		calls: calls,
		listing: Listing{
			URLs: []string{
				ensureSeed,
				"https://example.com/Story/chapter-1.html",
			},
			Title:  "Actual Story Title",
			Author: "Somebody",
		},
	}
}

func TestEnsureManifestDiscoversOnce(t *testing.T) {
	root := t.TempDir()
	calls := 0
	agent := ensureAgent(&calls)

	plan := story.NewPlan(ensureSeed, root, "", "", "")
	urls, resolved, err := EnsureManifest(context.Background(), nil, agent, plan, EnsureOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Len(t, urls, 2)
	assert.Equal(t, "Actual Story Title", resolved.Name)
	assert.Equal(t, "actual-story-title", resolved.Slug)
	assert.Equal(t, "Somebody", resolved.Author)
	assert.FileExists(t, resolved.ManifestPath())
	assert.FileExists(t, resolved.MetaPath())

	// a second run starts from a fresh URL-derived plan but must find the
	// persisted one and skip discovery entirely
	fresh := story.NewPlan(ensureSeed, root, "", "", "")
	urls, again, err := EnsureManifest(context.Background(), nil, agent, fresh, EnsureOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Len(t, urls, 2)
	assert.Equal(t, "actual-story-title", again.Slug)
}

func TestEnsureManifestHonorsHandEdits(t *testing.T) {
	root := t.TempDir()
	calls := 0
	agent := ensureAgent(&calls)

	plan := story.NewPlan(ensureSeed, root, "", "", "")
	_, resolved, err := EnsureManifest(context.Background(), nil, agent, plan, EnsureOptions{})
	require.NoError(t, err)

	edited := []string{"https://example.com/Story/chapter-1.html"}
	require.NoError(t, WriteManifest(resolved.ManifestPath(), edited))

	fresh := story.NewPlan(ensureSeed, root, "", "", "")
	urls, _, err := EnsureManifest(context.Background(), nil, agent, fresh, EnsureOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, edited, urls)
}

func TestEnsureManifestRediscoverRefreshes(t *testing.T) {
	root := t.TempDir()
	calls := 0
	agent := ensureAgent(&calls)

	plan := story.NewPlan(ensureSeed, root, "", "", "")
	_, resolved, err := EnsureManifest(context.Background(), nil, agent, plan, EnsureOptions{})
	require.NoError(t, err)

	require.NoError(t, WriteManifest(resolved.ManifestPath(), []string{"https://example.com/Story/stale.html"}))

	fresh := story.NewPlan(ensureSeed, root, "", "", "")
	urls, again, err := EnsureManifest(context.Background(), nil, agent, fresh, EnsureOptions{Rediscover: true})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Len(t, urls, 2)
	// rediscovery refreshes the URL list but never moves the story dir
	assert.Equal(t, resolved.Slug, again.Slug)
}

func TestEnsureManifestLockedIdentityWins(t *testing.T) {
	root := t.TempDir()
	calls := 0
	agent := ensureAgent(&calls)

	plan := story.NewPlan(ensureSeed, root, "My Name", "my-slug", "Me")
	urls, resolved, err := EnsureManifest(context.Background(), nil, agent, plan, EnsureOptions{
		LockName:   true,
		LockSlug:   true,
		LockAuthor: true,
	})
	require.NoError(t, err)

	assert.Len(t, urls, 2)
	assert.Equal(t, "My Name", resolved.Name)
	assert.Equal(t, "my-slug", resolved.Slug)
	assert.Equal(t, "Me", resolved.Author)
}
