// Package config reads the runtime configuration from environment variables.
// Loading never fails: missing required keys are recorded on the Config and
// surfaced to the user as typed errors at the point of use, so the server
// always starts and can explain what is misconfigured.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every tunable for the process.
type Config struct {
	// LLM gateway
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Search provider (MCP)
	SearchProviderAPIKey string
	SearchProviderURL    string

	// Geocoding and POIs (same vendor, separate keys allowed)
	GeocoderAPIKey    string
	GeocoderBaseURL   string
	POIProviderAPIKey string

	// Telephony
	TelephonyAPIKey        string
	TelephonyBaseURL       string
	TelephonyAssistantID   string
	TelephonyPhoneNumberID string
	TelephonyTargetPhone   string

	// Server
	ListenPort      string
	SessionCapacity int
	CORSOrigins     []string

	// Listing domains the research agent accepts, in priority order.
	AllowedDomains []string
}

// Load builds a Config from the process environment, applying defaults.
func Load() *Config {
	cfg := &Config{
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMBaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),

		SearchProviderAPIKey: os.Getenv("SEARCH_PROVIDER_API_KEY"),
		SearchProviderURL:    getEnv("SEARCH_PROVIDER_URL", "https://mcp.brightdata.com/mcp"),

		GeocoderAPIKey:    os.Getenv("GEOCODER_API_KEY"),
		GeocoderBaseURL:   getEnv("GEOCODER_BASE_URL", "https://api.mapbox.com"),
		POIProviderAPIKey: os.Getenv("POI_PROVIDER_API_KEY"),

		TelephonyAPIKey:        os.Getenv("TELEPHONY_API_KEY"),
		TelephonyBaseURL:       getEnv("TELEPHONY_BASE_URL", "https://api.vapi.ai"),
		TelephonyAssistantID:   os.Getenv("TELEPHONY_ASSISTANT_ID"),
		TelephonyPhoneNumberID: os.Getenv("TELEPHONY_PHONE_NUMBER_ID"),
		TelephonyTargetPhone:   os.Getenv("TELEPHONY_TARGET_PHONE"),

		ListenPort:      getEnv("LISTEN_PORT", "8080"),
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 1024),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		AllowedDomains:  splitList(getEnv("ALLOWED_DOMAINS", defaultAllowedDomains)),
	}
	if cfg.POIProviderAPIKey == "" {
		cfg.POIProviderAPIKey = cfg.GeocoderAPIKey
	}
	return cfg
}

const defaultAllowedDomains = "idealista.pt,imovirtual.com,casa.sapo.pt,olx.pt,zillow.com,redfin.com"

// RequireLLM reports whether the LLM gateway can be used.
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return &MissingKeyError{Key: "LLM_API_KEY"}
	}
	return nil
}

// RequireSearch reports whether real search results can be produced.
func (c *Config) RequireSearch() error {
	if c.SearchProviderAPIKey == "" {
		return &MissingKeyError{Key: "SEARCH_PROVIDER_API_KEY"}
	}
	return nil
}

// RequireTelephony reports whether the negotiation surface is usable.
func (c *Config) RequireTelephony() error {
	for _, kv := range []struct{ key, val string }{
		{"TELEPHONY_API_KEY", c.TelephonyAPIKey},
		{"TELEPHONY_ASSISTANT_ID", c.TelephonyAssistantID},
		{"TELEPHONY_PHONE_NUMBER_ID", c.TelephonyPhoneNumberID},
	} {
		if kv.val == "" {
			return &MissingKeyError{Key: kv.key}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
