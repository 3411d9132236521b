package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	OpenWeather struct {
		APIKey  string
		BaseURL string
		GeoURL  string
	}

	HTTP struct {
		RequestTimeout   time.Duration
		ResourceTimeout  time.Duration
		IgnoreLocalCache bool
		Dispatcher       string
	}

	CircuitBreaker struct {
		Enabled   bool
		Threshold int
		Timeout   time.Duration
	}

	Favorites struct {
		Backend        string
		Path           string
		RedisAddr      string
		RedisPassword  string
		RedisDB        int
		DSN            string
		SearchDebounce time.Duration
	}

	Geocoder struct {
		Provider     string
		GoogleAPIKey string
	}

	Defaults struct {
		City      string
		Latitude  float64
		Longitude float64
		Timezone  string
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("FIBER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("FIBER_WRITE_TIMEOUT", "10s"))
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	// OpenWeather configuration
	cfg.OpenWeather.APIKey = getEnv("OPENWEATHER_API_KEY", "")
	cfg.OpenWeather.BaseURL = getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/3.0")
	cfg.OpenWeather.GeoURL = getEnv("OPENWEATHER_GEO_URL", "https://api.openweathermap.org/geo/1.0")

	// Outbound HTTP session
	cfg.HTTP.RequestTimeout = parseDuration(getEnv("HTTP_REQUEST_TIMEOUT", "30s"))
	cfg.HTTP.ResourceTimeout = parseDuration(getEnv("HTTP_RESOURCE_TIMEOUT", "30s"))
	cfg.HTTP.IgnoreLocalCache = parseBool(getEnv("HTTP_IGNORE_CACHE", "true"))
	cfg.HTTP.Dispatcher = getEnv("CALLBACK_DISPATCHER", "immediate")

	// Circuit breaker configuration
	cfg.CircuitBreaker.Enabled = parseBool(getEnv("CIRCUIT_BREAKER_ENABLED", "false"))
	cfg.CircuitBreaker.Threshold = parseInt(getEnv("CIRCUIT_BREAKER_THRESHOLD", "3"))
	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	// Favorites persistence
	cfg.Favorites.Backend = getEnv("FAVORITES_BACKEND", "file")
	cfg.Favorites.Path = getEnv("FAVORITES_PATH", "data/favorites.json")
	cfg.Favorites.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Favorites.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.Favorites.RedisDB = parseInt(getEnv("REDIS_DB", "0"))
	cfg.Favorites.DSN = getEnv("DB_DSN", "")
	cfg.Favorites.SearchDebounce = parseDuration(getEnv("SEARCH_DEBOUNCE", "1s"))

	// Geocoding
	cfg.Geocoder.Provider = getEnv("GEOCODER", "openweather")
	cfg.Geocoder.GoogleAPIKey = getEnv("GOOGLE_GEOCODING_API_KEY", "")

	// Fallback location
	cfg.Defaults.City = getEnv("DEFAULT_CITY", "London")
	cfg.Defaults.Latitude = parseFloat(getEnv("DEFAULT_LATITUDE", "51.5281798"))
	cfg.Defaults.Longitude = parseFloat(getEnv("DEFAULT_LONGITUDE", "-0.4312316"))
	cfg.Defaults.Timezone = getEnv("TIMEZONE", "Local")

	return cfg, nil
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Defaults.Timezone)
	if err != nil {
		zap.L().Warn("Failed to load timezone", zap.String("timezone", c.Defaults.Timezone), zap.Error(err))
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseFloat(value string) float64 {
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		zap.L().Warn("Failed to parse float", zap.String("value", value), zap.Error(err))
		return 0
	}
	return floatValue
}

func parseBool(value string) bool {
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		zap.L().Warn("Failed to parse bool", zap.String("value", value), zap.Error(err))
		return false
	}
	return boolValue
}
