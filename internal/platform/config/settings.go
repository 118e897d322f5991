package config

import (
	"fmt"
	"strings"
	"time"
)

// Environment variable names shared by the poller and the query server.
const (
	EnvStreamBaseURL   = "STREAM_BASE_URL"
	EnvManifestName    = "MANIFEST_NAME"
	EnvTableName       = "TABLE_NAME"
	EnvRedisURL        = "REDIS_URL"
	EnvUserAgent       = "USER_AGENT"
	EnvSegmentTimeout  = "SEGMENT_TIMEOUT"
	EnvManifestTimeout = "MANIFEST_TIMEOUT"
	EnvCandidates      = "SEGMENT_CANDIDATES"
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvLogFile         = "LOG_FILE"
)

const (
	DefaultManifestName = "stream.m3u8"
	DefaultTableName    = "playlisthistory"
	DefaultUserAgent    = "nowplaying/1.0 (+https://github.com/nowplaying)"
	DefaultTimeout      = 10 * time.Second
	DefaultCandidates   = 3
	DefaultPort         = "8080"
)

// ConfigError reports required settings that are missing or invalid.
// It is only ever returned at startup.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

// Logging holds the log settings common to every command.
type Logging struct {
	Level  string
	Format string
	File   string
}

// LoadLogging reads LOG_LEVEL, LOG_FORMAT and LOG_FILE.
func LoadLogging() Logging {
	return Logging{
		Level:  GetEnv(EnvLogLevel, "info"),
		Format: GetEnv(EnvLogFormat, "json"),
		File:   GetEnv(EnvLogFile, ""),
	}
}

// PollerConfig is everything one ingestion cycle needs.
type PollerConfig struct {
	StreamBaseURL   string
	ManifestName    string
	TableName       string
	RedisURL        string
	UserAgent       string
	SegmentTimeout  time.Duration
	ManifestTimeout time.Duration
	Candidates      int
}

// LoadPoller reads the poller settings from the environment. The stream base
// URL, table name and storage URL have no defaults; call Validate before use.
func LoadPoller() PollerConfig {
	return PollerConfig{
		StreamBaseURL:   GetEnv(EnvStreamBaseURL, ""),
		ManifestName:    GetEnv(EnvManifestName, DefaultManifestName),
		TableName:       GetEnv(EnvTableName, ""),
		RedisURL:        GetEnv(EnvRedisURL, ""),
		UserAgent:       GetEnv(EnvUserAgent, DefaultUserAgent),
		SegmentTimeout:  GetEnvDuration(EnvSegmentTimeout, DefaultTimeout),
		ManifestTimeout: GetEnvDuration(EnvManifestTimeout, DefaultTimeout),
		Candidates:      GetEnvInt(EnvCandidates, DefaultCandidates),
	}
}

// Validate returns a *ConfigError naming every required setting that is absent.
func (c PollerConfig) Validate() error {
	var cerr ConfigError
	if c.StreamBaseURL == "" {
		cerr.Missing = append(cerr.Missing, EnvStreamBaseURL)
	}
	if c.TableName == "" {
		cerr.Missing = append(cerr.Missing, EnvTableName)
	}
	if c.RedisURL == "" {
		cerr.Missing = append(cerr.Missing, EnvRedisURL)
	}
	if c.Candidates <= 0 {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%d", EnvCandidates, c.Candidates))
	}
	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return &cerr
	}
	return nil
}

// ServerConfig configures the query service. Every field has a default; an
// empty RedisURL selects the synthetic dataset.
type ServerConfig struct {
	Port      string
	TableName string
	RedisURL  string
}

// LoadServer reads the query service settings from the environment.
func LoadServer() ServerConfig {
	return ServerConfig{
		Port:      GetEnv(EnvPort, DefaultPort),
		TableName: GetEnv(EnvTableName, DefaultTableName),
		RedisURL:  GetEnv(EnvRedisURL, ""),
	}
}
