package backends

import (
	"fmt"
	"time"

	"github.com/velodash/velodash/internal/backend"
)

// Mapper converts backend entries to backend.Target values
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapTargets converts a BackendsConfig to []backend.Target.
// Duplicate names are rejected: the orchestrator keys outcomes by name.
func (m *Mapper) MapTargets(config *BackendsConfig) ([]backend.Target, error) {
	seen := make(map[string]struct{}, len(config.Backends))
	targets := make([]backend.Target, 0, len(config.Backends))

	for _, entry := range config.Backends {
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("duplicate backend name %q", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		targets = append(targets, backend.Target{
			Name:    entry.Name,
			Host:    entry.Host,
			Port:    entry.Port,
			Timeout: time.Duration(entry.TimeoutSeconds * float64(time.Second)),
		})
	}

	return targets, nil
}

// Defaults returns the built-in targets used when no backends file is set.
// They match the addresses the sibling services bind to in one process.
func Defaults() []backend.Target {
	return []backend.Target{
		{Name: "weather", Host: "127.0.0.1", Port: 8001, Timeout: 5 * time.Second},
		{Name: "bikes", Host: "127.0.0.1", Port: 8002, Timeout: 5 * time.Second},
	}
}
