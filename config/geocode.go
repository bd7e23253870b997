package config

// GeocodeConfig configures the Nominatim geocoder and its cache.
type GeocodeConfig struct {
	BaseURL        string      `json:"base_url"`
	UserAgent      string      `json:"user_agent"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	Cache          CacheConfig `json:"cache"`
}

// CacheConfig enables the redis geocode cache when RedisURL is set.
type CacheConfig struct {
	RedisURL   string `json:"redis_url"`
	TTLMinutes int    `json:"ttl_minutes"`
}

// SetDefaults applies default values for missing fields.
func (c *GeocodeConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.UserAgent == "" {
		c.UserAgent = "emergency-triage-system"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = 24 * 60
	}
}
