package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Keys recognised in config.yaml.
const (
	KeyPort                  = "port"
	KeyUploadDir             = "uploadDir"
	KeyMaxUploadBytes        = "maxUploadBytes"
	KeyOpenAIAPIKey          = "openaiApiKey"
	KeyOpenAIBaseURL         = "openaiBaseUrl"
	KeyVisionModel           = "visionModel"
	KeyTextModel             = "textModel"
	KeyMaxTokens             = "maxTokens"
	KeyModelTimeout          = "modelTimeout"
	KeyMaxImageDimension     = "maxImageDimension"
	KeyGoogleMapsAPIKey      = "googleMapsApiKey"
	KeyStreetViewBaseURL     = "streetViewBaseUrl"
	KeyStreetViewMaxAttempts = "streetViewMaxAttempts"
	KeyMapStylePath          = "mapStylePath"
)

// envOverrides maps environment variables onto config keys. Environment wins over the file.
var envOverrides = map[string]string{
	"PORT":                KeyPort,
	"UPLOAD_DIR":          KeyUploadDir,
	"OPENAI_API_KEY":      KeyOpenAIAPIKey,
	"OPENAI_BASE_URL":     KeyOpenAIBaseURL,
	"GOOGLE_MAPS_API_KEY": KeyGoogleMapsAPIKey,
	"MAP_STYLE_PATH":      KeyMapStylePath,
}

type Config struct {
	values map[string]any
}

// Load reads `.env` (if present) into the process environment, then the YAML file at `path`,
// then applies environment overrides. A missing YAML file is not an error: every key has a default.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	config.applyEnv(os.LookupEnv)
	return config, nil
}

// LoadFile reads only the YAML file, without touching the environment.
func LoadFile(path string) (*Config, error) {
	values := make(map[string]any)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{values: values}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return &Config{values: values}, nil
}

// New builds a config from in-memory values.
func New(values map[string]any) *Config {
	if values == nil {
		values = make(map[string]any)
	}
	return &Config{values: values}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, key := range envOverrides {
		if value, ok := lookup(env); ok && value != "" {
			c.values[key] = value
		}
	}
}

// GetString looks up key and returns it only when it holds a string; anything else yields "".
func (c *Config) GetString(key string) string {
	str, _ := c.values[key].(string)
	return str
}

// GetStringOrDefault is GetString with a fallback for unset or blank keys.
func (c *Config) GetStringOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(c.GetString(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetIntOrDefault reads key as an int. Numeric strings count too, because env overrides are strings.
func (c *Config) GetIntOrDefault(key string, defaultValue int) int {
	value, ok := c.values[key]
	if !ok {
		return defaultValue
	}
	switch v := value.(type) {
	case int:
		return v
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return defaultValue
		}
		return parsed
	default:
		return defaultValue
	}
}

// GetDurationOrDefault reads key as a whole number of milliseconds.
func (c *Config) GetDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if ms := c.GetIntOrDefault(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
