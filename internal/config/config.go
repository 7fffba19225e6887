package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListenAddr      = "127.0.0.1:7410"
	DefaultDBFileName      = "exportal.db"
	DefaultBlobDirName     = "uploads"
	DefaultPublicFilesBase = "/files"
	DefaultLogLevel        = "info"

	DefaultMaxUploadBytes     int64 = 25 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024
	DefaultSessionTTLHours          = 24 * 7

	configPathEnvKey = "EXPORTAL_CONFIG"
)

// UploadConfig bounds multipart request handling.
type UploadConfig struct {
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes  []string `toml:"allowed_media_types"`
}

// Config defines runtime configuration for exportal.
type Config struct {
	ListenAddr      string       `toml:"listen_addr"`
	DBPath          string       `toml:"db_path"`
	BlobRoot        string       `toml:"blob_root"`
	PublicFilesBase string       `toml:"public_files_base"`
	SessionTTLHours int          `toml:"session_ttl_hours"`
	LogLevel        string       `toml:"log_level"`
	Uploads         UploadConfig `toml:"uploads"`
}

// Default returns default configuration values, anchored at dataDir.
func Default(dataDir string) Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		DBPath:          filepath.Join(dataDir, DefaultDBFileName),
		BlobRoot:        filepath.Join(dataDir, DefaultBlobDirName),
		PublicFilesBase: DefaultPublicFilesBase,
		SessionTTLHours: DefaultSessionTTLHours,
		LogLevel:        DefaultLogLevel,
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
		},
	}
}

// Load reads config from an optional TOML file and applies env
// overrides. Resolution order: defaults, file, environment. An
// explicit path that does not exist is an error; the env-supplied
// path is only loaded when present.
func Load(explicitPath string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg := Default(cwd)

	path := strings.TrimSpace(explicitPath)
	required := path != ""
	if path == "" {
		path = strings.TrimSpace(os.Getenv(configPathEnvKey))
	}
	if path != "" {
		info, statErr := os.Stat(path)
		switch {
		case statErr == nil && !info.IsDir():
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case statErr == nil:
			return nil, fmt.Errorf("config path %s is a directory", path)
		case os.IsNotExist(statErr):
			if required {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
		default:
			return nil, statErr
		}
	}

	applyEnvOverrides(&cfg)
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_DB")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_BLOB_ROOT")); v != "" {
		cfg.BlobRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_PUBLIC_FILES_BASE")); v != "" {
		cfg.PublicFilesBase = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_SESSION_TTL_HOURS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.SessionTTLHours = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_MAX_UPLOAD_BYTES")); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			cfg.Uploads.MaxUploadBytes = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("EXPORTAL_ALLOWED_MEDIA_TYPES")); v != "" {
		cfg.Uploads.AllowedMediaTypes = splitCSV(v)
	}
}

func (c *Config) normalize() {
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = DefaultSessionTTLHours
	}
	c.PublicFilesBase = "/" + strings.Trim(strings.TrimSpace(c.PublicFilesBase), "/")
	if c.PublicFilesBase == "/" {
		c.PublicFilesBase = DefaultPublicFilesBase
	}
	c.Uploads.AllowedMediaTypes = normalizeMediaTypes(c.Uploads.AllowedMediaTypes)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if strings.TrimSpace(c.BlobRoot) == "" {
		return fmt.Errorf("blob_root must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// normalizeMediaTypes lowercases, dedupes, and sorts configured media
// types, dropping values that do not parse. nil disables the
// allow-list.
func normalizeMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(parsed)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
