package config

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Address string `json:"address"`
	// AuditToken protects the audit log endpoint when set.
	AuditToken string `json:"audit_token"`
}

// SetDefaults applies default values for missing fields.
func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
}
