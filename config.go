package pushclient

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables consumed by ConfigFromEnv.
const (
	EnvAPIKey            = "VITE_FCM_API"
	EnvAuthDomain        = "VITE_FCM_DOMAIN"
	EnvProjectID         = "VITE_PROJECT_ID"
	EnvStorageBucket     = "VITE_STORAGE_BUCKET"
	EnvMessagingSenderID = "VITE_SENDER_ID"
	EnvAppID             = "VITE_APP_ID"
	EnvMeasurementID     = "VITE_MEASURE_ID"
	EnvVAPIDKey          = "VITE_VAPID"
)

// Config holds the Firebase project identifiers and credentials a client
// needs. Values are taken as-is; malformed values only surface as failures
// from the transport later on.
type Config struct {
	APIKey            string `toml:"api_key" yaml:"api_key"`
	AuthDomain        string `toml:"auth_domain" yaml:"auth_domain"`
	ProjectID         string `toml:"project_id" yaml:"project_id"`
	StorageBucket     string `toml:"storage_bucket" yaml:"storage_bucket"`
	MessagingSenderID string `toml:"messaging_sender_id" yaml:"messaging_sender_id"`
	AppID             string `toml:"app_id" yaml:"app_id"`
	MeasurementID     string `toml:"measurement_id" yaml:"measurement_id"`
	VAPIDKey          string `toml:"vapid_key" yaml:"vapid_key"`
}

// ConfigFromEnv reads the configuration from the process environment.
func ConfigFromEnv() Config {
	return ConfigFromLookup(os.LookupEnv)
}

// ConfigFromLookup reads the configuration through lookup, which has the
// signature of os.LookupEnv.
func ConfigFromLookup(lookup func(string) (string, bool)) Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Config{
		APIKey:            get(EnvAPIKey),
		AuthDomain:        get(EnvAuthDomain),
		ProjectID:         get(EnvProjectID),
		StorageBucket:     get(EnvStorageBucket),
		MessagingSenderID: get(EnvMessagingSenderID),
		AppID:             get(EnvAppID),
		MeasurementID:     get(EnvMeasurementID),
		VAPIDKey:          get(EnvVAPIDKey),
	}
}

// LoadConfigFile reads a TOML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Merge returns c with every empty field filled from fallback.
func (c Config) Merge(fallback Config) Config {
	pick := func(v, fb string) string {
		if v != "" {
			return v
		}
		return fb
	}
	return Config{
		APIKey:            pick(c.APIKey, fallback.APIKey),
		AuthDomain:        pick(c.AuthDomain, fallback.AuthDomain),
		ProjectID:         pick(c.ProjectID, fallback.ProjectID),
		StorageBucket:     pick(c.StorageBucket, fallback.StorageBucket),
		MessagingSenderID: pick(c.MessagingSenderID, fallback.MessagingSenderID),
		AppID:             pick(c.AppID, fallback.AppID),
		MeasurementID:     pick(c.MeasurementID, fallback.MeasurementID),
		VAPIDKey:          pick(c.VAPIDKey, fallback.VAPIDKey),
	}
}

// Redacted returns a copy safe for display: the API key and VAPID key keep
// only their first and last four characters.
func (c Config) Redacted() Config {
	c.APIKey = mask(c.APIKey)
	c.VAPIDKey = mask(c.VAPIDKey)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
