package manager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"caduceus-hq/veil/pkg/policy"
)

// SeedDefinition is one bootstrap policy definition read from a YAML file.
type SeedDefinition struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Version     string           `yaml:"version"`
	Tags        policy.TagConfig `yaml:"tags"`

	// SourceFile records where the definition was read from.
	SourceFile string `yaml:"-"`
}

// SeedLoader reads bootstrap policy definitions from a directory of YAML
// files. Each file holds exactly one definition.
type SeedLoader struct {
	path   string
	logger *slog.Logger
}

// NewSeedLoader creates a loader for the given directory.
func NewSeedLoader(path string, logger *slog.Logger) *SeedLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeedLoader{
		path:   path,
		logger: logger.With("component", "policy.seed"),
	}
}

// LoadDirectory reads every .yaml/.yml file in the seed directory, sorted
// by file name. A file that fails to parse or validate is skipped with a
// logged warning; one bad file never blocks the rest.
func (l *SeedLoader) LoadDirectory() ([]SeedDefinition, error) {
	entries, err := os.ReadDir(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory %q: %w", l.path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	definitions := make([]SeedDefinition, 0, len(names))
	for _, name := range names {
		path := filepath.Join(l.path, name)
		def, err := l.loadFile(path)
		if err != nil {
			l.logger.Warn("Skipping invalid seed definition",
				"file", path,
				"error", err,
			)
			continue
		}
		definitions = append(definitions, *def)
	}

	return definitions, nil
}

// loadFile reads and validates a single seed definition.
func (l *SeedLoader) loadFile(path string) (*SeedDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var def SeedDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if def.Name == "" {
		return nil, fmt.Errorf("seed definition has no name")
	}
	if result := policy.ValidateTagConfig(def.Tags); !result.OK {
		return nil, policy.NewTagValidationError(def.Name, result)
	}

	def.SourceFile = path
	return &def, nil
}

// ImportSeeds creates draft policies for seed definitions whose names are
// not yet known to the manager. Existing names are left untouched so a
// re-import never clobbers governed policies. Returns the number of
// policies created.
func (m *Manager) ImportSeeds(ctx context.Context, definitions []SeedDefinition, actor string) (int, error) {
	created := 0
	for _, def := range definitions {
		if _, err := m.PolicyByName(def.Name); err == nil {
			continue
		}

		_, err := m.CreatePolicy(ctx, PolicyInput{
			Name:        def.Name,
			Description: def.Description,
			Version:     def.Version,
			Tags:        def.Tags,
		}, actor)
		if err != nil {
			return created, fmt.Errorf("failed to import seed %q: %w", def.Name, err)
		}

		m.logger.Info("Seed policy imported",
			"policy", def.Name,
			"source", def.SourceFile,
		)
		created++
	}

	return created, nil
}
