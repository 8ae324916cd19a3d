// Package scenario defines reproducible simulation experiments as YAML
// documents: a process, its parameters, a grid, and an ensemble size.
// A scenario run is fully determined by its seed.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/process"
)

// GridSpec describes a uniform time grid.
type GridSpec struct {
	T0    float64 `yaml:"t0"`
	T1    float64 `yaml:"t1"`
	Steps int     `yaml:"steps"`
}

// Definition is one simulation experiment.
type Definition struct {
	// Name labels the scenario in output and traces.
	Name string `yaml:"name"`

	// Process selects the simulator kind (see process.Kinds).
	Process string `yaml:"process"`

	// Params holds the process parameters by name.
	Params map[string]float64 `yaml:"params"`

	// Grid is the uniform time grid to simulate on.
	Grid GridSpec `yaml:"grid"`

	// Paths is the ensemble size.
	Paths int `yaml:"paths"`

	// Seed determines every path in the run.
	Seed uint64 `yaml:"seed"`
}

// File is the on-disk scenario document.
type File struct {
	Scenarios []Definition `yaml:"scenarios"`
}

// Load reads scenario definitions from a YAML file.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: %s defines no scenarios", models.ErrInvalidParameters, path)
	}
	for i := range f.Scenarios {
		if err := f.Scenarios[i].Validate(); err != nil {
			return nil, fmt.Errorf("scenario %d (%q): %w", i, f.Scenarios[i].Name, err)
		}
	}
	return f.Scenarios, nil
}

// Validate checks the definition without building the simulator.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: scenario name is required", models.ErrInvalidParameters)
	}
	if d.Process == "" {
		return fmt.Errorf("%w: process kind is required", models.ErrInvalidParameters)
	}
	if d.Paths < 1 {
		return fmt.Errorf("%w: paths must be at least 1, got %d", models.ErrInvalidEnsembleSize, d.Paths)
	}
	if d.Grid.Steps < 1 || d.Grid.T1 <= d.Grid.T0 {
		return fmt.Errorf("%w: grid [%v, %v] with %d steps", models.ErrInvalidGrid, d.Grid.T0, d.Grid.T1, d.Grid.Steps)
	}
	return nil
}

// Build constructs the grid and simulator for this definition.
func (d Definition) Build() (models.TimeGrid, process.Simulator, error) {
	if err := d.Validate(); err != nil {
		return models.TimeGrid{}, nil, err
	}
	grid, err := models.NewUniformGrid(d.Grid.T0, d.Grid.T1, d.Grid.Steps)
	if err != nil {
		return models.TimeGrid{}, nil, err
	}
	sim, err := process.FromSpec(d.Process, d.Params)
	if err != nil {
		return models.TimeGrid{}, nil, err
	}
	return grid, sim, nil
}
