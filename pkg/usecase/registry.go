// Package usecase loads and serves the registry of configured use cases.
// A use case names the curated set of tables, descriptions, relationships
// and examples one conversational domain is grounded on.
package usecase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// Registry holds the configured use cases, immutable after load.
type Registry struct {
	byName map[string]*models.UseCase
	names  []string
}

type registryFile struct {
	UseCases []models.UseCase `yaml:"use_cases"`
}

// LoadRegistry reads the use-case registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read use-case registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse use-case registry %s: %w", path, err)
	}

	registry, err := NewRegistry(file.UseCases)
	if err != nil {
		return nil, fmt.Errorf("invalid use-case registry %s: %w", path, err)
	}
	return registry, nil
}

// NewRegistry builds a registry from the given use cases, validating each.
func NewRegistry(useCases []models.UseCase) (*Registry, error) {
	if len(useCases) == 0 {
		return nil, fmt.Errorf("at least one use case is required")
	}

	r := &Registry{
		byName: make(map[string]*models.UseCase, len(useCases)),
		names:  make([]string, 0, len(useCases)),
	}

	for i := range useCases {
		uc := &useCases[i]
		if err := validate(uc); err != nil {
			return nil, err
		}
		if _, exists := r.byName[uc.Name]; exists {
			return nil, fmt.Errorf("duplicate use case name: %s", uc.Name)
		}
		r.byName[uc.Name] = uc
		r.names = append(r.names, uc.Name)
	}

	return r, nil
}

func validate(uc *models.UseCase) error {
	if uc.Name == "" {
		return fmt.Errorf("use case name is required")
	}
	if uc.MainDatasource == "" {
		return fmt.Errorf("use case %s: main_datasource is required", uc.Name)
	}
	if uc.DateColumn == "" {
		return fmt.Errorf("use case %s: date_column is required", uc.Name)
	}
	if len(uc.Tables) == 0 {
		return fmt.Errorf("use case %s: at least one table is required", uc.Name)
	}
	for _, table := range uc.Tables {
		if table.Database == "" || table.Schema == "" || table.Table == "" {
			return fmt.Errorf("use case %s: table %q must have database, schema and table set", uc.Name, table.Table)
		}
	}
	return nil
}

// Get returns the use case by name.
func (r *Registry) Get(name string) (*models.UseCase, error) {
	uc, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownUseCase, name)
	}
	return uc, nil
}

// Names returns the use case names in registration order.
func (r *Registry) Names() []string {
	return r.names
}
