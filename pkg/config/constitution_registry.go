package config

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/pactaudit/pactaudit/pkg/constitution"
)

// yamlRegistry is the on-disk shape of a supplementary constitution
// registry: additional accepted hashes an operator wants recognized
// beyond the binary's embedded default (e.g. a prior major version
// still being phased out of production).
type yamlRegistry struct {
	Entries []yamlEntry `yaml:"entries"`
}

type yamlEntry struct {
	Version  string `yaml:"version"`
	Hash     string `yaml:"hash"`
	Accepted bool   `yaml:"accepted"`
}

// LoadConstitutionRegistry reads a YAML registry file from path and
// merges it with constitution.DefaultRegistry(), so ops can accept an
// additional hash without a binary rebuild. An empty path returns the
// default registry unchanged.
func LoadConstitutionRegistry(path string) (*constitution.Registry, error) {
	if path == "" {
		return constitution.DefaultRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read constitution registry %s: %w", path, err)
	}

	var doc yamlRegistry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse constitution registry %s: %w", path, err)
	}

	entries := []constitution.Entry{}
	def := constitution.DefaultRegistry()
	for _, h := range def.Hashes() {
		e, _ := def.Lookup(h)
		entries = append(entries, e)
	}
	for _, y := range doc.Entries {
		v, err := semver.NewVersion(y.Version)
		if err != nil {
			return nil, fmt.Errorf("config: constitution registry %s: invalid version %q: %w", path, y.Version, err)
		}
		entries = append(entries, constitution.Entry{Version: v, Hash: y.Hash, Accepted: y.Accepted})
	}

	return constitution.NewRegistry(entries...), nil
}
