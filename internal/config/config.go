// Package config parses process configuration for cmd/gatewayd: flags
// with environment variable overrides, plus the AI gateway's profiled
// Portkey environment lookup.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// getenv returns the environment variable's value if set, else defaultVal,
// the same fallback justwatchcom/sql_exporter's config loader uses for its
// template-placeholder substitution.
func getenv(key, defaultVal string) string {
	if val, found := os.LookupEnv(key); found && val != "" {
		return val
	}
	return defaultVal
}

// Config is the resolved process configuration for cmd/gatewayd.
type Config struct {
	// ListenAddr is the HTTP surface's bind address.
	ListenAddr string

	// DriversRoot is the root directory of collector packs
	// (<drivers_root>/<db_type>/*.yaml).
	DriversRoot string

	// SamplersPath is the path to samplers/default.json.
	SamplersPath string

	// LegacyStdio runs the legacy NDJSON stdio worker instead of the HTTP
	// surface, for local single-driver debugging.
	LegacyStdio bool

	// LegacyPool holds the stdio worker's pool limits, distinct from the
	// per-session defaults the HTTP surface uses.
	LegacyPool LegacyPoolConfig

	// Development toggles zap's development logging config.
	Development bool

	AI AIConfig
}

// LegacyPoolConfig mirrors the stdio worker's historical -pool-* flags.
// The stdio surface shares one pool per (driver, connection string) target
// rather than one per session, so its limits are configured separately.
type LegacyPoolConfig struct {
	Enabled         bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Load parses flags (with GATEWAYD_* environment variable fallbacks) into a
// Config. Call after flag.Parse() has not yet run; Load calls it.
func Load() Config {
	listenAddr := flag.String("listen", getenv("GATEWAYD_LISTEN_ADDR", ":8080"), "HTTP listen address")
	driversRoot := flag.String("drivers-root", getenv("GATEWAYD_DRIVERS_ROOT", "./drivers"), "collector pack root directory")
	samplersPath := flag.String("samplers", getenv("GATEWAYD_SAMPLERS_PATH", "./samplers/default.json"), "sampler defaults file")
	legacyStdio := flag.Bool("legacy-stdio", false, "run the legacy NDJSON stdio worker instead of the HTTP surface")
	poolEnabled := flag.Bool("pool", true, "enable connection pooling in legacy stdio mode")
	poolMaxIdle := flag.Int("pool-max-idle", 5, "legacy stdio mode: maximum idle connections per pool")
	poolMaxOpen := flag.Int("pool-max-open", 10, "legacy stdio mode: maximum open connections per pool")
	poolConnLifetime := flag.Duration("pool-conn-lifetime", 5*time.Minute, "legacy stdio mode: maximum connection lifetime")
	poolConnIdle := flag.Duration("pool-conn-idle", time.Minute, "legacy stdio mode: maximum connection idle time")
	development := flag.Bool("dev", getenv("GATEWAYD_DEV", "") != "", "enable development logging")
	flag.Parse()

	return Config{
		ListenAddr:   *listenAddr,
		DriversRoot:  *driversRoot,
		SamplersPath: *samplersPath,
		LegacyStdio:  *legacyStdio,
		LegacyPool: LegacyPoolConfig{
			Enabled:         *poolEnabled,
			MaxIdleConns:    *poolMaxIdle,
			MaxOpenConns:    *poolMaxOpen,
			ConnMaxLifetime: *poolConnLifetime,
			ConnMaxIdleTime: *poolConnIdle,
		},
		Development: *development,
		AI:          LoadAIConfig(),
	}
}

// AIConfig is the AI gateway's Portkey/OpenAI-compatible client
// configuration, read from PORTKEY_* environment variables with optional
// per-profile <KEY>_<PROFILE> overrides.
type AIConfig struct {
	APIKey     string
	VirtualKey string
	Model      string
	BaseURL    string
	TimeoutMs  int
	Profile    string
}

// Enabled reports whether the AI gateway has enough configuration to
// operate: api_key, provider (virtual key), and model all non-blank.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.VirtualKey != "" && c.Model != ""
}

// profiled looks up key + "_" + profile first, falling back to the bare
// key.
func profiled(key, profile string) string {
	if profile != "" {
		if val, ok := os.LookupEnv(key + "_" + profile); ok && val != "" {
			return val
		}
	}
	return os.Getenv(key)
}

// LoadAIConfig reads the PORTKEY_* environment variables.
func LoadAIConfig() AIConfig {
	profile := os.Getenv("PORTKEY_PROFILE")

	timeoutMs := 30000
	if raw := os.Getenv("PORTKEY_TIMEOUT_MS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeoutMs = parsed
		}
	}

	return AIConfig{
		APIKey:     os.Getenv("PORTKEY_API_KEY"),
		VirtualKey: profiled("PORTKEY_VIRTUAL_KEY", profile),
		Model:      profiled("PORTKEY_MODEL", profile),
		BaseURL:    profiled("PORTKEY_BASE_URL", profile),
		TimeoutMs:  timeoutMs,
		Profile:    profile,
	}
}

// Timeout returns TimeoutMs as a time.Duration.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
