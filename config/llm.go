package config

import "fmt"

// LLMConfig configures the language model used for extraction and
// AI-assisted matching.
type LLMConfig struct {
	Provider    string  `json:"provider"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int32   `json:"max_tokens"`
}

// SetDefaults applies default values for missing fields.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	if c.Model == "" {
		c.Model = "gemini-2.5-flash"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
}

// Enabled reports whether an LLM can be constructed.
func (c LLMConfig) Enabled() bool {
	return c.Provider != "none" && c.APIKey != ""
}

// Validate checks the provider. AI matching needs a usable LLM.
func (c LLMConfig) Validate(aiMatching bool) error {
	switch c.Provider {
	case "gemini", "none":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if aiMatching && !c.Enabled() {
		return fmt.Errorf("ai matching requires an api_key")
	}
	return nil
}
