package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"rightmove-scraper/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	GoogleMapsAPIKey string
	GeocodeBaseURL   string
	GeocodeRateLimit int

	SiteOrigin         string
	SearchQuery        string
	LocationIdentifier string
	Search             SearchParams

	PageSize           int
	MaxResults         int
	MaxConcurrency     int
	GeocodeConcurrency int
	MaxRetries         int
	RetryBaseDelay     time.Duration
	RequestTimeout     time.Duration

	OutputDir    string
	ExportFormat string
	ListenAddr   string
	LogLevel     string
}

// SearchParams are the static query parameters sent with every search page request.
type SearchParams struct {
	Channel      string `yaml:"channel"`
	CurrencyCode string `yaml:"currency_code"`
	AreaSizeUnit string `yaml:"area_size_unit"`
	Radius       string `yaml:"radius"`
	SortType     string `yaml:"sort_type"`
	ViewType     string `yaml:"view_type"`
	IncludeSSTC  bool   `yaml:"include_sstc"`
}

// DefaultSearchParams returns the parameters used when no search config file is given.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Channel:      "BUY",
		CurrencyCode: "GBP",
		AreaSizeUnit: "sqft",
		Radius:       "0.0",
		SortType:     "6",
		ViewType:     "LIST",
	}
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		GoogleMapsAPIKey: strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		GeocodeBaseURL:   getEnv("GEOCODE_BASE_URL", ""),
		GeocodeRateLimit: getEnvInt("GEOCODE_RATE_LIMIT", 50),

		SiteOrigin:         strings.TrimRight(getEnv("SITE_ORIGIN", "https://www.rightmove.co.uk"), "/"),
		SearchQuery:        getEnv("SEARCH_QUERY", "marlow"),
		LocationIdentifier: getEnv("LOCATION_IDENTIFIER", ""),
		Search:             DefaultSearchParams(),

		PageSize:           getEnvInt("PAGE_SIZE", 24),
		MaxResults:         getEnvInt("MAX_RESULTS", 1000),
		MaxConcurrency:     getEnvInt("MAX_CONCURRENCY", 0),
		GeocodeConcurrency: getEnvInt("GEOCODE_CONCURRENCY", 0),
		MaxRetries:         getEnvInt("MAX_RETRIES", 1),
		RetryBaseDelay:     time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		OutputDir:    getEnv("OUTPUT_DIR", "./output"),
		ExportFormat: strings.ToLower(getEnv("EXPORT_FORMAT", "xlsx")),
		ListenAddr:   getEnv("LISTEN_ADDR", ":5500"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if path := getEnv("SEARCH_CONFIG", ""); path != "" {
		params, err := LoadSearchParams(path)
		if err != nil {
			log.Printf("[config] Ignoring search config %s: %v", path, err)
		} else {
			cfg.Search = params
		}
	}

	return cfg
}

// LoadSearchParams reads a YAML file of search parameters. Keys absent from the
// file keep their default values.
func LoadSearchParams(path string) (SearchParams, error) {
	params := DefaultSearchParams()

	raw, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("read search config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &params); err != nil {
		return params, fmt.Errorf("parse search config: %w", err)
	}
	params.Channel = strings.ToUpper(params.Channel)
	return params, nil
}

// Validate reports the first setting that would make a run fail. It never
// touches the network, so commands call it before building any client.
func (c *Config) Validate() error {
	switch {
	case c.GoogleMapsAPIKey == "":
		return &models.ConfigurationError{Key: "GOOGLE_MAPS_API_KEY", Reason: "is not set"}
	case c.SiteOrigin == "":
		return &models.ConfigurationError{Key: "SITE_ORIGIN", Reason: "is empty"}
	case c.PageSize <= 0:
		return &models.ConfigurationError{Key: "PAGE_SIZE", Reason: "must be positive"}
	case c.MaxResults <= 0:
		return &models.ConfigurationError{Key: "MAX_RESULTS", Reason: "must be positive"}
	case c.MaxConcurrency < 0 || c.GeocodeConcurrency < 0:
		return &models.ConfigurationError{Key: "MAX_CONCURRENCY", Reason: "must not be negative"}
	case c.MaxRetries < 1:
		return &models.ConfigurationError{Key: "MAX_RETRIES", Reason: "must be at least 1"}
	case c.Search.Channel != "BUY" && c.Search.Channel != "RENT":
		return &models.ConfigurationError{Key: "channel", Reason: fmt.Sprintf("must be BUY or RENT, got %q", c.Search.Channel)}
	case c.ExportFormat != "xlsx" && c.ExportFormat != "csv":
		return &models.ConfigurationError{Key: "EXPORT_FORMAT", Reason: fmt.Sprintf("must be xlsx or csv, got %q", c.ExportFormat)}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
