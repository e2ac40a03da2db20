// Manages server configuration stored in server_config.yaml.

package storage

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the configuration file in the data directory.
const ConfigFileName = "server_config.yaml"

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.yaml, created with defaults if missing.
type ServerConfig struct {
	// Storage describes the product data file.
	Storage StorageConfig `yaml:"storage"`

	// Limits defines request limits.
	Limits Limits `yaml:"limits"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `yaml:"rate_limits"`

	// Auth controls bearer token checks on write routes.
	Auth AuthConfig `yaml:"auth"`

	// CORS lists origins allowed to call the API from a browser.
	CORS CORSConfig `yaml:"cors"`
}

// StorageConfig describes the product data file.
type StorageConfig struct {
	// File is the data file, relative to the data directory unless absolute.
	// Defaults to productos.csv or productos.jsonl depending on Format.
	File string `yaml:"file"`

	// Format is "csv" (delimited rows with a header) or "jsonl".
	Format string `yaml:"format"`

	// Delimiter is the single-character field separator for the csv format.
	Delimiter string `yaml:"delimiter"`

	// History commits the data file to a git repository after every change.
	History bool `yaml:"history"`
}

// Path returns the data file path for the given data directory.
func (s *StorageConfig) Path(dataDir string) string {
	name := s.File
	if name == "" {
		name = "productos." + s.format()
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dataDir, name)
}

// Comma returns the field separator.
func (s *StorageConfig) Comma() rune {
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	return r
}

func (s *StorageConfig) format() string {
	if s.Format == "" {
		return "csv"
	}
	return s.Format
}

// Validate checks the storage settings.
func (s *StorageConfig) Validate() error {
	switch s.format() {
	case "csv":
		if utf8.RuneCountInString(s.Delimiter) != 1 {
			return errors.New("delimiter must be exactly one character")
		}
		switch r := s.Comma(); r {
		case '"', '\r', '\n', utf8.RuneError:
			return fmt.Errorf("invalid delimiter %q", r)
		}
	case "jsonl":
	default:
		return fmt.Errorf("unknown format %q", s.Format)
	}
	return nil
}

// Limits defines request limits.
type Limits struct {
	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	// 0 means unlimited.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes"`
}

// Validate checks that limit values are non-negative.
func (l *Limits) Validate() error {
	if l.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	return nil
}

// RateLimits defines rate limiting configuration (requests per minute per
// client IP).
type RateLimits struct {
	// WriteRatePerMin limits write operations (POST/PUT/DELETE).
	// 0 means unlimited.
	WriteRatePerMin int `yaml:"write_rate_per_min"`

	// ReadRatePerMin limits read operations.
	// 0 means unlimited.
	ReadRatePerMin int `yaml:"read_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	return nil
}

// AuthConfig controls bearer token checks.
type AuthConfig struct {
	// RequireToken makes write routes require an HS256 JWT signed with JWTSecret.
	RequireToken bool `yaml:"require_token"`

	// JWTSecret is the base64 encoded signing secret.
	// Auto-generated if empty on first load.
	JWTSecret string `yaml:"jwt_secret"`
}

// Secret returns the decoded signing secret.
func (a *AuthConfig) Secret() []byte {
	b, _ := base64.StdEncoding.DecodeString(a.JWTSecret)
	return b
}

// Validate checks the secret.
func (a *AuthConfig) Validate() error {
	b, err := base64.StdEncoding.DecodeString(a.JWTSecret)
	if err != nil {
		return fmt.Errorf("jwt_secret is not valid base64: %w", err)
	}
	if len(b) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	return nil
}

// CORSConfig lists origins allowed to make cross-origin requests.
type CORSConfig struct {
	// AllowedOrigins is a list of origins, or "*" for any. Empty disables CORS.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultServerConfig returns the configuration written on first start.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Storage: StorageConfig{Format: "csv", Delimiter: ";"},
		Limits:  Limits{MaxRequestBodyBytes: 1 << 20},
		RateLimits: RateLimits{
			WriteRatePerMin: 60,   // 60 req/min for writes
			ReadRatePerMin:  6000, // 6k req/min for reads
		},
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// LoadServerConfig loads configuration from path.
// Creates the file with defaults if it doesn't exist.
// Auto-generates the JWT secret if empty.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	modified := false
	if cfg.Auth.JWTSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.Auth.JWTSecret = base64.StdEncoding.EncodeToString(secret)
		modified = true
	}

	if modified || errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// Save writes the configuration to path.
func (c *ServerConfig) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
