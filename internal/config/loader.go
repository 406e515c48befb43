package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYFOLIO_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. An empty path skips the
// file and uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYFOLIO_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.DataHost, "POLYFOLIO_POLYMARKET_DATA_HOST")

	// ── Database ──
	setStr(&cfg.Database.DSN, "POLYFOLIO_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "POLYFOLIO_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "POLYFOLIO_DATABASE_HOST")
	setInt(&cfg.Database.Port, "POLYFOLIO_DATABASE_PORT")
	setStr(&cfg.Database.Database, "POLYFOLIO_DATABASE_NAME")
	setStr(&cfg.Database.User, "POLYFOLIO_DATABASE_USER")
	setStr(&cfg.Database.Password, "POLYFOLIO_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "POLYFOLIO_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "POLYFOLIO_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "POLYFOLIO_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "POLYFOLIO_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYFOLIO_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYFOLIO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYFOLIO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYFOLIO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYFOLIO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYFOLIO_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYFOLIO_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYFOLIO_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYFOLIO_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYFOLIO_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYFOLIO_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYFOLIO_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYFOLIO_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYFOLIO_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYFOLIO_S3_FORCE_PATH_STYLE")

	// ── Sync ──
	setInt(&cfg.Sync.PageSize, "POLYFOLIO_SYNC_PAGE_SIZE")
	setInt(&cfg.Sync.MaxPages, "POLYFOLIO_SYNC_MAX_PAGES")
	setInt(&cfg.Sync.MarketBatchSize, "POLYFOLIO_SYNC_MARKET_BATCH_SIZE")
	setDuration(&cfg.Sync.MarketStaleAfter, "POLYFOLIO_SYNC_MARKET_STALE_AFTER")
	setDuration(&cfg.Sync.LockTTL, "POLYFOLIO_SYNC_LOCK_TTL")
	setInt(&cfg.Sync.RepairPages, "POLYFOLIO_SYNC_REPAIR_PAGES")
	setDuration(&cfg.Sync.SweepInterval, "POLYFOLIO_SYNC_SWEEP_INTERVAL")
	setInt(&cfg.Sync.ArchiveRetentionDays, "POLYFOLIO_SYNC_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Sync.ArchiveInterval, "POLYFOLIO_SYNC_ARCHIVE_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "POLYFOLIO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYFOLIO_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POLYFOLIO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
