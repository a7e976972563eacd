// Package sites maps a seed URL to the discovery and extraction strategy
// for its host. The registry is a closed, ordered rule table: new sites are
// added by appending entries, never by runtime loading.
package sites

import (
	"context"
	"regexp"

	"github.com/brogergvhs/storyd/internal/discover"
	"github.com/brogergvhs/storyd/internal/document"
	"github.com/brogergvhs/storyd/internal/extract"
	"github.com/brogergvhs/storyd/internal/transport"
)

// Discoverer produces the ordered chapter URL listing for a seed URL.
type Discoverer interface {
	Discover(ctx context.Context, tc *transport.Context, seedURL string) (discover.Listing, error)
}

// Extractor turns raw chapter markup into the normalized document.
type Extractor interface {
	Extract(markup []byte) (*document.Document, error)
}

// Rule is one registry entry. Nil agents fall back to the defaults.
type Rule struct {
	Pattern       *regexp.Regexp
	Name          string
	FullName      string
	Documentation string
	Discoverer    Discoverer
	Extractor     Extractor
}

// Bundle is the resolved capability set for one seed URL. Discoverer and
// Extractor are always non-nil.
type Bundle struct {
	Name       string
	FullName   string
	Discoverer Discoverer
	Extractor  Extractor
}

// Resolve scans the registry in order and returns the first matching rule's
// bundle, falling back to the default bundle. It never fails.
func Resolve(seedURL string) Bundle {
	for _, rule := range registry {
		if rule.Pattern.MatchString(seedURL) {
			return rule.bundle()
		}
	}

	return defaultBundle("", "")
}

func (r Rule) bundle() Bundle {
	b := defaultBundle(r.Name, r.FullName)
	if r.Discoverer != nil {
		b.Discoverer = r.Discoverer
	}
	if r.Extractor != nil {
		b.Extractor = r.Extractor
	}

	return b
}

func defaultBundle(name, fullName string) Bundle {
	return Bundle{
		Name:       name,
		FullName:   fullName,
		Discoverer: discover.Default{},
		Extractor:  extract.Extractor{},
	}
}

// Rules exposes the registry for listing commands.
func Rules() []Rule {
	out := make([]Rule, len(registry))
	copy(out, registry)
	return out
}
