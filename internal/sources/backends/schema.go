package backends

// BackendsConfig represents the top-level structure of backends.yaml
type BackendsConfig struct {
	Backends []BackendEntry `yaml:"backends" validate:"required,min=1,dive"`
}

// BackendEntry describes one upstream microservice the gateway fans out to
type BackendEntry struct {
	Name           string  `yaml:"name" validate:"required"`
	Host           string  `yaml:"host" validate:"required"`
	Port           int     `yaml:"port" validate:"required,min=1,max=65535"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" validate:"gt=0"`
}
