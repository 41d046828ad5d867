// Package regions serves the static emergency-contact directory shown next
// to analysis results. The directory is loaded once from YAML at startup and
// immutable afterwards.
package regions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region describes the contact points for one administrative region.
type Region struct {
	Name           string `yaml:"name" json:"name"`
	EmergencyPhone string `yaml:"emergency_phone" json:"emergency_phone"`
	PoliceDept     string `yaml:"police_dept" json:"police_dept"`
	Email          string `yaml:"email" json:"email"`
}

// Directory is an immutable region lookup keyed by region ID.
type Directory struct {
	regions map[string]Region
}

// Load reads the region directory from a YAML file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Directory from YAML bytes. IDs are matched
// case-insensitively.
func Parse(data []byte) (*Directory, error) {
	var raw map[string]Region
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse regions yaml: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("regions file defines no regions")
	}

	regions := make(map[string]Region, len(raw))
	for id, region := range raw {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			return nil, fmt.Errorf("regions file contains an empty region id")
		}
		if region.Name == "" {
			region.Name = id
		}
		regions[key] = region
	}
	return &Directory{regions: regions}, nil
}

// Lookup returns the region for id, reporting whether it exists.
func (d *Directory) Lookup(id string) (Region, bool) {
	region, ok := d.regions[strings.ToLower(strings.TrimSpace(id))]
	return region, ok
}

// IDs returns all known region IDs, sorted.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.regions))
	for id := range d.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
