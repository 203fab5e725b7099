package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Klassroom exporter
type Config struct {
	// Klassroom endpoints and session metadata
	Klassroom KlassroomConfig `yaml:"klassroom" json:"klassroom"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// KlassroomConfig holds the front-end/API endpoints and the metadata fields
// every API call carries alongside the session token.
type KlassroomConfig struct {
	WebURL    string `yaml:"web_url" json:"web_url"`
	APIURL    string `yaml:"api_url" json:"api_url"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	Version   string `yaml:"version" json:"version"`
	Culture   string `yaml:"culture" json:"culture"`
	GMTOffset string `yaml:"gmt_offset" json:"gmt_offset"`
	Timezone  string `yaml:"tz" json:"tz"`
	DST       string `yaml:"dst" json:"dst"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	WriteIndex    bool   `yaml:"write_index" json:"write_index"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Klassroom: KlassroomConfig{
			WebURL:    "https://www.klass.ly",
			APIURL:    "https://api2.klassroom.co",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:95.0) Gecko/20100101 Firefox/95.0",
			Version:   "4.0",
			Culture:   "fr",
			GMTOffset: "-60",
			Timezone:  "Europe/Paris",
			DST:       "true",
		},
		Output: OutputConfig{
			BaseDirectory: "./klassroom",
			WriteIndex:    true,
		},
		Download: DownloadConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if webURL := os.Getenv("KLASSDUMP_WEB_URL"); webURL != "" {
		c.Klassroom.WebURL = webURL
	}
	if apiURL := os.Getenv("KLASSDUMP_API_URL"); apiURL != "" {
		c.Klassroom.APIURL = apiURL
	}
	if userAgent := os.Getenv("KLASSDUMP_USER_AGENT"); userAgent != "" {
		c.Klassroom.UserAgent = userAgent
	}
	if culture := os.Getenv("KLASSDUMP_CULTURE"); culture != "" {
		c.Klassroom.Culture = culture
	}
	if tz := os.Getenv("KLASSDUMP_TZ"); tz != "" {
		c.Klassroom.Timezone = tz
	}
	if outputDir := os.Getenv("KLASSDUMP_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if timeout := os.Getenv("KLASSDUMP_DOWNLOAD_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid KLASSDUMP_DOWNLOAD_TIMEOUT: %w", err)
		}
		c.Download.Timeout = d
	}
	if logLevel := os.Getenv("KLASSDUMP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".klassdump.yaml",
		".klassdump.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "klassdump", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "klassdump", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".klassdump.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Klassroom.WebURL == "" {
		errs = append(errs, errors.New("web URL is required"))
	}
	if c.Klassroom.APIURL == "" {
		errs = append(errs, errors.New("API URL is required"))
	}
	if !strings.HasPrefix(c.Klassroom.WebURL, "http") {
		errs = append(errs, errors.New("web URL must be an http(s) URL"))
	}
	if !strings.HasPrefix(c.Klassroom.APIURL, "http") {
		errs = append(errs, errors.New("API URL must be an http(s) URL"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if culture, ok := flags["culture"].(string); ok && culture != "" {
		c.Klassroom.Culture = culture
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if writeIndex, ok := flags["write-index"].(bool); ok {
		c.Output.WriteIndex = writeIndex
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".klassdump.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
