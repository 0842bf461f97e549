package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all jarvis configuration.
type Config struct {
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`

	// Timezone used for calendar questions ("qué día es hoy").
	Timezone string `yaml:"timezone"`

	Home          HomeConfig          `yaml:"home"`
	Search        SearchConfig        `yaml:"search"`
	Context       ContextConfig       `yaml:"context"`
	Places        PlacesConfig        `yaml:"places"`
	Notes         NotesConfig         `yaml:"notes"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge"`
	Budget        BudgetConfig        `yaml:"budget"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Server        ServerConfig        `yaml:"server"`
	Digest        DigestConfig        `yaml:"digest"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HomeConfig is the "my area" pseudo-place. All fields are optional.
type HomeConfig struct {
	City      string   `yaml:"city"`
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
	Timezone  string   `yaml:"timezone"`
}

// SearchConfig configures the answer aggregator and its providers.
type SearchConfig struct {
	ProviderTimeout  string   `yaml:"provider_timeout"`
	MaxResults       int      `yaml:"max_results"`
	SummarySentences int      `yaml:"summary_sentences"`
	MaxSources       int      `yaml:"max_sources"`
	MaxImages        int      `yaml:"max_images"`
	CacheTTL         string   `yaml:"cache_ttl"`
	CacheSize        int      `yaml:"cache_size"`
	TrustedDomains   []string `yaml:"trusted_domains"`
	DuckDuckGoURL    string   `yaml:"duckduckgo_url"`
	WikipediaLangs   []string `yaml:"wikipedia_langs"`
	CommonsURL       string   `yaml:"commons_url"`
	UserAgent        string   `yaml:"user_agent"`
}

// ContextConfig bounds the per-sender conversation context store.
type ContextConfig struct {
	Capacity int    `yaml:"capacity"`
	IdleTTL  string `yaml:"idle_ttl"` // empty or "0" disables expiry
}

// PlacesConfig configures geocoding and weather providers.
type PlacesConfig struct {
	GeocodingURL string `yaml:"geocoding_url"`
	ForecastURL  string `yaml:"forecast_url"`
	Language     string `yaml:"language"`
	Timeout      string `yaml:"timeout"`
}

// NotesConfig configures note persistence.
type NotesConfig struct {
	DatabasePath string `yaml:"database_path"` // empty = in-memory
	Driver       string `yaml:"driver"`        // "sqlite" (pure Go) or "sqlite3" (cgo)
	ListLimit    int    `yaml:"list_limit"`
}

// KnowledgeConfig configures the optional local knowledge file.
type KnowledgeConfig struct {
	Path  string `yaml:"path"` // empty disables the knowledge short-circuit
	Watch bool   `yaml:"watch"`
}

// BudgetConfig configures metered usage tracking.
type BudgetConfig struct {
	MonthlyLimit      float64 `yaml:"monthly_limit"`
	TranscriptionCost float64 `yaml:"transcription_cost"`
}

// TranscriptionConfig configures the speech-to-text backend.
type TranscriptionConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port             int    `yaml:"port"`
	Path             string `yaml:"path"`
	MediaTimeout     string `yaml:"media_timeout"`
	TwilioAccountSID string `yaml:"twilio_account_sid"`
	TwilioAuthToken  string `yaml:"twilio_auth_token"`
}

// DigestConfig configures the daily note digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	At      string `yaml:"at"` // HH:MM local time
	Count   int    `yaml:"count"`
}

// DefaultTrustedDomains is the reference/educational/news allow-list.
var DefaultTrustedDomains = []string{
	"wikipedia.org", "britannica.com", "khanacademy.org", "nasa.gov", "esa.int",
	"mit.edu", "stanford.edu", "harvard.edu", "who.int", "nih.gov", "cdc.gov",
	"unesco.org", "nature.com", "science.org", "bbc.com", "reuters.com",
	"nationalgeographic.com", "esawebb.org",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "jarvis",
		DataDir:  ".jarvis",
		Timezone: "Europe/Madrid",

		Search: SearchConfig{
			ProviderTimeout:  "10s",
			MaxResults:       6,
			SummarySentences: 3,
			MaxSources:       3,
			MaxImages:        4,
			CacheTTL:         "300s",
			CacheSize:        512,
			TrustedDomains:   append([]string(nil), DefaultTrustedDomains...),
			DuckDuckGoURL:    "https://html.duckduckgo.com/html/",
			WikipediaLangs:   []string{"es", "en"},
			CommonsURL:       "https://commons.wikimedia.org/w/api.php",
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},

		Context: ContextConfig{
			Capacity: 10000,
			IdleTTL:  "168h",
		},

		Places: PlacesConfig{
			GeocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
			ForecastURL:  "https://api.open-meteo.com/v1/forecast",
			Language:     "es",
			Timeout:      "10s",
		},

		Notes: NotesConfig{
			DatabasePath: "notes.db",
			Driver:       "sqlite",
			ListLimit:    5,
		},

		Knowledge: KnowledgeConfig{
			Watch: true,
		},

		Budget: BudgetConfig{
			MonthlyLimit:      130,
			TranscriptionCost: 0.006,
		},

		Transcription: TranscriptionConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "30s",
		},

		Server: ServerConfig{
			Port:         5000,
			Path:         "/whatsapp",
			MediaTimeout: "30s",
		},

		Digest: DigestConfig{
			Enabled: false,
			At:      "20:00",
			Count:   5,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("HOME_CITY")); v != "" {
		c.Home.City = v
	}
	if v, ok := envFloat("HOME_LAT"); ok {
		c.Home.Latitude = &v
	}
	if v, ok := envFloat("HOME_LON"); ok {
		c.Home.Longitude = &v
	}
	if v := strings.TrimSpace(os.Getenv("HOME_TZ")); v != "" {
		c.Home.Timezone = v
	}
	if v := os.Getenv("JARVIS_TIMEZONE"); v != "" {
		c.Timezone = v
	}

	if v, ok := envFloat("MONTHLY_BUDGET"); ok {
		c.Budget.MonthlyLimit = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.Server.TwilioAccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.Server.TwilioAuthToken = v
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Transcription.APIKey = key
	}

	if path := os.Getenv("JARVIS_DB"); path != "" {
		c.Notes.DatabasePath = path
	}
	if path := os.Getenv("JARVIS_KNOWLEDGE"); path != "" {
		c.Knowledge.Path = path
	}
}

func envFloat(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// GetProviderTimeout returns the per-provider search timeout.
func (c *Config) GetProviderTimeout() time.Duration {
	return parseDuration(c.Search.ProviderTimeout, 10*time.Second)
}

// GetCacheTTL returns the answer cache time-to-live.
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration(c.Search.CacheTTL, 300*time.Second)
}

// GetContextIdleTTL returns the context idle expiry, zero when disabled.
func (c *Config) GetContextIdleTTL() time.Duration {
	if c.Context.IdleTTL == "" {
		return 0
	}
	return parseDuration(c.Context.IdleTTL, 0)
}

// GetPlacesTimeout returns the geocoding/weather HTTP timeout.
func (c *Config) GetPlacesTimeout() time.Duration {
	return parseDuration(c.Places.Timeout, 10*time.Second)
}

// GetTranscriptionTimeout returns the transcription call timeout.
func (c *Config) GetTranscriptionTimeout() time.Duration {
	return parseDuration(c.Transcription.Timeout, 30*time.Second)
}

// GetMediaTimeout returns the inbound media download timeout.
func (c *Config) GetMediaTimeout() time.Duration {
	return parseDuration(c.Server.MediaTimeout, 30*time.Second)
}

// HasHomeCoordinates reports whether the home place is fully configured.
func (c *Config) HasHomeCoordinates() bool {
	return c.Home.Latitude != nil && c.Home.Longitude != nil
}

// ResolveDataPath joins a relative path onto DataDir. Absolute paths and
// the empty string are returned unchanged.
func (c *Config) ResolveDataPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate validates the configuration and reports every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.DataDir == "" {
		result = multierror.Append(result, fmt.Errorf("%w: data_dir is required", ErrInvalidConfig))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err))
	}
	if c.Home.Timezone != "" {
		if _, err := time.LoadLocation(c.Home.Timezone); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: home.timezone %q: %v", ErrInvalidConfig, c.Home.Timezone, err))
		}
	}
	if (c.Home.Latitude == nil) != (c.Home.Longitude == nil) {
		result = multierror.Append(result, fmt.Errorf("%w: home latitude and longitude must be set together", ErrInvalidConfig))
	}
	if c.Search.MaxResults <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: search.max_results must be positive", ErrInvalidConfig))
	}
	if c.Search.SummarySentences <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: search.summary_sentences must be positive", ErrInvalidConfig))
	}
	if c.Context.Capacity <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: context.capacity must be positive", ErrInvalidConfig))
	}
	if c.Notes.Driver != "" && c.Notes.Driver != "sqlite" && c.Notes.Driver != "sqlite3" {
		result = multierror.Append(result, fmt.Errorf("%w: notes.driver %q must be sqlite or sqlite3", ErrInvalidConfig, c.Notes.Driver))
	}
	if c.Budget.MonthlyLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: budget.monthly_limit must not be negative", ErrInvalidConfig))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port))
	}
	if _, err := time.Parse("15:04", c.Digest.At); c.Digest.Enabled && err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: digest.at %q must be HH:MM", ErrInvalidConfig, c.Digest.At))
	}

	return result.ErrorOrNil()
}
