package sites

import (
	"regexp"

	"github.com/brogergvhs/storyd/internal/discover"
)

// registry holds the site rules in priority order. First match wins;
// registration order is the tie-break.
var registry = []Rule{
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?literotica\.com/`),
		Name:          "literotica",
		FullName:      "Literotica",
		Documentation: "Stories hosted on literotica.com.",
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?bdsmlibrary\.com/stories/`),
		Name:          "bdsmlibrary",
		FullName:      "BDSM Library",
		Documentation: "Stories hosted on bdsmlibrary.com.",
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?inkitt\.com/stories/`),
		Name:          "inkitt",
		FullName:      "Inkitt",
		Documentation: "Stories hosted on inkitt.com; chapter links are ordered by their trailing chapter number.",
		Discoverer:    discover.Default{Sorter: discover.NumericPathSorter},
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?patreon\.com/collection/\d+`),
		Name:          "patreon",
		FullName:      "Patreon",
		Documentation: "Public Patreon collections (requires cookies for gated posts).",
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?mcstories\.com/`),
		Name:          "mcstories",
		FullName:      "The Erotic Mind-Control Story Archive",
		Documentation: "Stories hosted on mcstories.com.",
		Discoverer:    mcstoriesDiscoverer{},
		Extractor:     mcstoriesExtractor(),
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?wattpad\.com/`),
		Name:          "wattpad",
		FullName:      "Wattpad",
		Documentation: "Stories hosted on wattpad.com.",
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?archiveofourown\.org/`),
		Name:          "ao3",
		FullName:      "Archive of Our Own",
		Documentation: "Stories hosted on archiveofourown.org.",
	},
	{
		Pattern:       regexp.MustCompile(`(?i)^https?://(?:www\.)?fanfiction\.net/`),
		Name:          "fanfiction",
		FullName:      "FanFiction.Net",
		Documentation: "Stories hosted on fanfiction.net.",
	},
}
