package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the host-side session configuration, typically loaded from a
// YAML file next to the plugin artifact.
type Config struct {
	// PluginPath locates the wasm artifact to load.
	PluginPath string `yaml:"plugin_path" validate:"required"`

	// TickRate is the fixed simulation rate in ticks per second.
	TickRate int `yaml:"tick_rate" validate:"min=1,max=240"`

	// MaxClients bounds how many client worlds a session will host.
	MaxClients int `yaml:"max_clients" validate:"min=1,max=64"`

	// MemoryPages caps plugin linear memory in 64 KB pages.
	MemoryPages uint32 `yaml:"memory_pages" validate:"min=1"`

	// RecordsPath is the sqlite database for finish-time records.
	// Empty disables persistence.
	RecordsPath string `yaml:"records_path"`

	// Plugin is passed verbatim to the plugin as its init config.
	Plugin map[string]any `yaml:"plugin"`
}

// DefaultConfig returns a config with workable defaults for everything
// except PluginPath.
func DefaultConfig() Config {
	return Config{
		TickRate:    60,
		MaxClients:  8,
		MemoryPages: DefaultMemoryPages,
	}
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the config against its struct constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PluginConfig marshals the plugin section for the init request.
func (c Config) PluginConfig() (json.RawMessage, error) {
	if c.Plugin == nil {
		return nil, nil
	}
	data, err := json.Marshal(c.Plugin)
	if err != nil {
		return nil, fmt.Errorf("marshaling plugin config: %w", err)
	}
	return data, nil
}
