package story

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndFindPlan(t *testing.T) {
	root := t.TempDir()

	p := NewPlan("https://example.com/Story/index.html", root, "The Long Road", "", "Somebody")
	p.Site = "mcstories"
	require.NoError(t, SavePlan(p))

	found, ok := FindPlan(root, "https://example.com/Story/index.html")
	require.True(t, ok)

	assert.Equal(t, "The Long Road", found.Name)
	assert.Equal(t, "the-long-road", found.Slug)
	assert.Equal(t, "Somebody", found.Author)
	assert.Equal(t, "mcstories", found.Site)
	assert.Equal(t, root, found.Root)
	assert.Equal(t, p.ManifestPath(), found.ManifestPath())
}

func TestFindPlanNoMatch(t *testing.T) {
	root := t.TempDir()

	p := NewPlan("https://example.com/Story/index.html", root, "A", "", "")
	require.NoError(t, SavePlan(p))

	_, ok := FindPlan(root, "https://other.com/Story/index.html")
	assert.False(t, ok)

	_, ok = FindPlan(filepath.Join(root, "missing"), "https://example.com/Story/index.html")
	assert.False(t, ok)
}

func TestFindPlanFollowsRenamedDir(t *testing.T) {
	root := t.TempDir()

	p := NewPlan("https://example.com/Story/index.html", root, "Old Name", "", "")
	require.NoError(t, SavePlan(p))

	renamed := filepath.Join(root, "moved-elsewhere")
	require.NoError(t, os.Rename(p.Dir(), renamed))

	found, ok := FindPlan(root, "https://example.com/Story/index.html")
	require.True(t, ok)
	assert.Equal(t, "moved-elsewhere", found.Slug)
	assert.Equal(t, renamed, found.Dir())
}
