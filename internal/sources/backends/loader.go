package backends

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of backends.yaml
type Loader struct {
	filePath string
	validate *validator.Validate
}

// NewLoader creates a new backends loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		validate: validator.New(),
	}
}

// Load reads, parses and validates the backends.yaml file
func (l *Loader) Load() (*BackendsConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backends file: %w", err)
	}

	var config BackendsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse backends yaml: %w", err)
	}

	if err := l.validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid backends config: %w", err)
	}

	return &config, nil
}
