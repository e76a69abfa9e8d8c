package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	MediaDir      string // Root directory of the media collection
	StoreFilename string // Name of the JSON store inside MediaDir
	BackupDir     string // Directory for timestamped store backups; empty means MediaDir

	ServerPort string

	FFprobePath  string        // Path to the ffprobe binary used for video metadata
	ProbeTimeout time.Duration // Per-file ffprobe budget

	GeocodeURL     string        // Reverse geocoding endpoint; empty disables lookups
	GeocodeTimeout time.Duration // Per-lookup budget

	LogLevel      string
	LogOutputPath string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvSeconds gets an environment variable as a number of seconds or
// returns a default value.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		MediaDir:      getEnv("MEDIA_DIR", "."),
		StoreFilename: getEnv("STORE_FILENAME", "annotations.json"),
		BackupDir:     getEnv("BACKUP_DIR", ""),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		FFprobePath:  getEnv("FFPROBE_PATH", "ffprobe"),
		ProbeTimeout: getEnvSeconds("PROBE_TIMEOUT_SECONDS", 10*time.Second),

		GeocodeURL:     getEnv("GEOCODE_URL", ""),
		GeocodeTimeout: getEnvSeconds("GEOCODE_TIMEOUT_SECONDS", 3*time.Second),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE_DAYS", 28),
	}
}
