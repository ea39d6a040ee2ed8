// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	TTS       TTSConfig
	Metadata  MetadataConfig
	Narration NarrationConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds data storage configuration.
type StorageConfig struct {
	// BasePath is the root directory for all server data.
	BasePath string
	// DatabasePath is the SQLite database file (default: {base}/readalong.db).
	DatabasePath string
	// CalibrationPath is the calibration KV store directory (default: {base}/calibration).
	CalibrationPath string
	// AudioPath is the directory for generated narration files (default: {base}/audio).
	AudioPath string
	// SearchPath is the full-text index directory (default: {base}/search).
	SearchPath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// TTSConfig holds text-to-speech provider configuration.
type TTSConfig struct {
	// Provider selects the narration backend (default: openai)
	// Valid values: openai, elevenlabs, none
	Provider string
	// APIKey authenticates against the selected provider.
	APIKey string
	// Model overrides the provider's default model.
	Model string
	// Voice overrides the provider's default voice.
	Voice string
	// BaseURL overrides the provider endpoint (useful for proxies).
	BaseURL string
}

// MetadataConfig holds chapter metadata extraction configuration.
type MetadataConfig struct {
	// APIKey authenticates the extraction model. Falls back to the TTS key
	// when unset; extraction is disabled when both are empty.
	APIKey string
	// Model overrides the default extraction model.
	Model string
	// BaseURL overrides the extraction endpoint.
	BaseURL string
}

// NarrationConfig holds narration generation configuration.
type NarrationConfig struct {
	// KeepRecordings is how many completed recordings to retain (default: 20)
	KeepRecordings int
	// RequestsPerMinute caps generation requests per client (default: 6)
	RequestsPerMinute int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for server data")
	serverName := flag.String("server-name", "", "Name for the server")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// TTS flags
	ttsProvider := flag.String("tts-provider", "", "TTS provider (openai, elevenlabs, none)")
	ttsModel := flag.String("tts-model", "", "TTS model override")
	ttsVoice := flag.String("tts-voice", "", "TTS voice override")

	// Narration flags
	keepRecordings := flag.String("keep-recordings", "", "Completed recordings to retain (default: 20)")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Readalong Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		TTS: TTSConfig{
			Provider: getConfigValue(*ttsProvider, "TTS_PROVIDER", "openai"),
			APIKey:   getConfigValue("", "TTS_API_KEY", ""),
			Model:    getConfigValue(*ttsModel, "TTS_MODEL", ""),
			Voice:    getConfigValue(*ttsVoice, "TTS_VOICE", ""),
			BaseURL:  getConfigValue("", "TTS_BASE_URL", ""),
		},
		Metadata: MetadataConfig{
			APIKey:  getConfigValue("", "METADATA_API_KEY", ""),
			Model:   getConfigValue("", "METADATA_MODEL", ""),
			BaseURL: getConfigValue("", "METADATA_BASE_URL", ""),
		},
		Narration: NarrationConfig{
			KeepRecordings:    getIntConfigValue(*keepRecordings, "NARRATION_KEEP_RECORDINGS", 20),
			RequestsPerMinute: getIntConfigValue("", "NARRATION_REQUESTS_PER_MINUTE", 6),
		},
	}

	// Reuse the OpenAI narration key for extraction when no dedicated key
	// is set.
	if cfg.Metadata.APIKey == "" && cfg.TTS.Provider == "openai" {
		cfg.Metadata.APIKey = cfg.TTS.APIKey
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate data paths.
	if err := cfg.expandStoragePaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	validProviders := map[string]bool{
		"openai":     true,
		"elevenlabs": true,
		"none":       true,
	}
	if !validProviders[c.TTS.Provider] {
		return fmt.Errorf("invalid TTS provider: %s (must be openai, elevenlabs, or none)", c.TTS.Provider)
	}
	if c.TTS.Provider != "none" && c.TTS.APIKey == "" {
		return fmt.Errorf("TTS_API_KEY is required for provider %s", c.TTS.Provider)
	}

	if c.Narration.KeepRecordings < 1 {
		return errors.New("NARRATION_KEEP_RECORDINGS must be at least 1")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStoragePaths expands the base path and derives the database,
// calibration, and audio paths from it when not set explicitly.
func (c *Config) expandStoragePaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Writegeist", "readalong")

	expanded, err := expandPath(c.Storage.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.BasePath = expanded

	if c.Storage.DatabasePath, err = expandPath(
		os.Getenv("DATABASE_PATH"), filepath.Join(expanded, "readalong.db"),
	); err != nil {
		return err
	}
	if c.Storage.CalibrationPath, err = expandPath(
		os.Getenv("CALIBRATION_PATH"), filepath.Join(expanded, "calibration"),
	); err != nil {
		return err
	}
	if c.Storage.AudioPath, err = expandPath(
		os.Getenv("AUDIO_PATH"), filepath.Join(expanded, "audio"),
	); err != nil {
		return err
	}
	if c.Storage.SearchPath, err = expandPath(
		os.Getenv("SEARCH_PATH"), filepath.Join(expanded, "search"),
	); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
