package story

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/brogergvhs/storyd/internal/util"
)

// MetaPath is the persisted plan file inside the story directory.
func (p Plan) MetaPath() string {
	return filepath.Join(p.Dir(), PlanFilename)
}

// SavePlan persists the resolved identity next to the manifest, so later
// runs on the same seed URL land in the same directory even when the name
// and slug came from site metadata.
func SavePlan(p Plan) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	return util.WriteFileAtomic(p.MetaPath(), data, 0644)
}

func LoadPlan(path string) (Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, err
	}

	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Plan{}, err
	}

	return p, nil
}

// FindPlan scans the stories root for a persisted plan with the given seed
// URL. The directory the plan was found in is authoritative for the slug,
// so a renamed story directory keeps working.
func FindPlan(root, seedURL string) (Plan, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Plan{}, false
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		p, err := LoadPlan(filepath.Join(root, e.Name(), PlanFilename))
		if err != nil || p.SeedURL != seedURL {
			continue
		}

		p.Root = root
		p.Slug = e.Name()
		return p, true
	}

	return Plan{}, false
}
