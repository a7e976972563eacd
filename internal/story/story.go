// Package story holds the per-run plan: the seed URL, the derived name and
// slug, and every path the pipeline writes. The plan is built once per
// invocation and determines all downstream file locations.
package story

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	ManifestFilename     = "download_urls.txt"
	PlanFilename         = "story.yaml"
	FetchLogFilename     = "fetch.log"
	TransformLogFilename = "transform.log"
	rawDirName           = "html"
	docDirName           = "markdown"
)

type Plan struct {
	Name    string `yaml:"name"`
	Slug    string `yaml:"slug"`
	Author  string `yaml:"author"`
	SeedURL string `yaml:"seed_url"`
	Site    string `yaml:"site,omitempty"`
	Root    string `yaml:"-"`
}

// NewPlan derives name and slug from the seed URL unless explicit values
// are given. Root is the stories root directory.
func NewPlan(seedURL, root, name, slug, author string) Plan {
	if name == "" {
		name = DeriveName(seedURL)
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if author == "" {
		author = "Unknown"
	}
	if root == "" {
		root = "stories"
	}

	return Plan{
		Name:    name,
		Slug:    slug,
		Author:  author,
		SeedURL: seedURL,
		Root:    root,
	}
}

func (p Plan) Dir() string {
	return filepath.Join(p.Root, p.Slug)
}

func (p Plan) RawDir() string {
	return filepath.Join(p.Dir(), rawDirName)
}

func (p Plan) DocDir() string {
	return filepath.Join(p.Dir(), docDirName)
}

func (p Plan) ManifestPath() string {
	return filepath.Join(p.Dir(), ManifestFilename)
}

func (p Plan) FetchLogPath() string {
	return filepath.Join(p.Dir(), FetchLogFilename)
}

func (p Plan) TransformLogPath() string {
	return filepath.Join(p.Dir(), TransformLogFilename)
}

// RawPath is the raw chapter file for the 1-based manifest index.
func (p Plan) RawPath(index int) string {
	return filepath.Join(p.RawDir(), fmt.Sprintf("%s-%03d.html", p.Slug, index))
}

// DocPath mirrors RawPath for the normalized document.
func (p Plan) DocPath(index int) string {
	return filepath.Join(p.DocDir(), fmt.Sprintf("%s-%03d.md", p.Slug, index))
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts arbitrary input to a filesystem-friendly slug.
func Slugify(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(value), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "story"
	}

	return slug
}

// DeriveName builds a title-like name from the URL basename.
func DeriveName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "Story"
	}

	basename := path.Base(parsed.Path)
	if basename == "." || basename == "/" || basename == "" {
		basename = parsed.Host
	}

	if unquoted, err := url.PathUnescape(basename); err == nil {
		basename = unquoted
	}

	if i := strings.LastIndex(basename, "."); i > 0 {
		basename = basename[:i]
	}

	candidate := strings.NewReplacer("-", " ", "_", " ").Replace(basename)
	candidate = strings.Join(strings.Fields(candidate), " ")

	if candidate == "" {
		candidate = parsed.Host
	}
	if candidate == "" {
		return "Story"
	}

	return titleCase(candidate)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
		}
	}

	return strings.Join(words, " ")
}
