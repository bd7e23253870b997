package config

import "fmt"

// StoreConfig selects the request and resource store.
type StoreConfig struct {
	Backend string `json:"backend"`
	DSN     string `json:"dsn"`
}

// SetDefaults applies default values for missing fields.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for postgres")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}
