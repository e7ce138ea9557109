// Package config loads the client's settings from the environment,
// following the teacher's getEnv*/Load() shape.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds connection, credential, and storage settings for a Client
// (spec.md §6.4).
type Config struct {
	StorageURL string // e.g. sqlite:///var/lib/anidbclient/cache.db
	APIUser    string
	APIPass    string
	APIKey     string // optional; enables AES-encrypted session
	NetrcFile  string // optional; ~/.netrc fallback for APIUser/APIPass

	OutgoingUDPPort int // local port to bind for the UDP socket; 0 = OS-assigned

	DBOnly bool // domain objects read/write only the cache, no live requests

	LogLevel string // "info" | "debug"
	Debug    bool

	ServerHost string // AniDB UDP API host
	ServerPort int    // AniDB UDP API port

	TagPrefix string // prefix used when allocating request tags; default "T"
	BanCap    int    // max ban backoff in seconds, spec.md §4.2; 0 = the pacer's default 48h cap

	KeepaliveInterval time.Duration // PING cadence once NAT is detected, spec.md §4.3
	IdleUptimeAfter   time.Duration // send UPTIME after this much idle time

	CatalogDir         string // directory for cached title/mapping XML
	CatalogMinInterval time.Duration // minimum refresh interval, spec.md supersedes original's 1wk with 36h
}

// Load reads configuration from the environment. It does not read .netrc;
// client.New fills an empty APIUser/APIPass via netrc.ApplyCredentials.
func Load() *Config {
	c := &Config{
		StorageURL:         getEnv("ANIDB_STORAGE_URL", "sqlite:///var/lib/anidbclient/cache.db"),
		APIUser:            os.Getenv("ANIDB_API_USER"),
		APIPass:            os.Getenv("ANIDB_API_PASS"),
		APIKey:             os.Getenv("ANIDB_API_KEY"),
		NetrcFile:          os.Getenv("ANIDB_NETRC_FILE"),
		OutgoingUDPPort:    getEnvInt("ANIDB_OUTGOING_UDP_PORT", 0),
		DBOnly:             getEnvBool("ANIDB_DB_ONLY", false),
		LogLevel:           getEnv("ANIDB_LOGLEVEL", "info"),
		ServerHost:         getEnv("ANIDB_SERVER_HOST", "api.anidb.net"),
		ServerPort:         getEnvInt("ANIDB_SERVER_PORT", 9000),
		TagPrefix:          getEnv("ANIDB_TAG_PREFIX", "T"),
		BanCap:             getEnvInt("ANIDB_BAN_CAP_SECONDS", 0),
		KeepaliveInterval:  getEnvDuration("ANIDB_KEEPALIVE_INTERVAL", 600*time.Second),
		IdleUptimeAfter:    getEnvDuration("ANIDB_IDLE_UPTIME_AFTER", 30*time.Minute),
		CatalogDir:         getEnv("ANIDB_CATALOG_DIR", "/var/lib/anidbclient/catalog"),
		CatalogMinInterval: getEnvDuration("ANIDB_CATALOG_MIN_INTERVAL", 36*time.Hour),
	}
	c.Debug = c.LogLevel == "debug"
	if c.BanCap <= 0 {
		c.BanCap = 0
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
