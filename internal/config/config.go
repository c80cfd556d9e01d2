package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissing = errors.New("required environment variable is missing")

const (
	DefaultSessionFile = "mtproto.session"
	DefaultLedgerPath  = "zipbot.db"
	DefaultArchiveName = "Secure.zip"
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxPartSize = 2000 << 20
	DefaultLogLevel    = "info"
	DefaultRetention   = 90 * 24 * time.Hour
)

type Config struct {
	Token       string
	Authorized  AuthSet
	AppID       int
	AppHash     string
	SessionFile string
	StagingDir  string
	LedgerPath  string
	ArchiveName string
	SessionTTL  time.Duration
	MaxPartSize int64
	Retention   time.Duration
	LogLevel    string
}

// UseMTProto reports whether application credentials for the secondary
// channel were supplied.
func (c Config) UseMTProto() bool {
	return c.AppID != 0 && c.AppHash != ""
}

// Load reads an optional .env file from the working directory and then
// builds the configuration from the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration using getenv as the variable source.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Token:       getenv("BOT_TOKEN"),
		AppHash:     getenv("API_HASH"),
		SessionFile: orDefault(getenv("MTPROTO_SESSION"), DefaultSessionFile),
		StagingDir:  orDefault(getenv("STAGING_DIR"), filepath.Join(os.TempDir(), "zipbot")),
		LedgerPath:  orDefault(getenv("LEDGER_PATH"), DefaultLedgerPath),
		ArchiveName: orDefault(getenv("ARCHIVE_NAME"), DefaultArchiveName),
		SessionTTL:  DefaultSessionTTL,
		MaxPartSize: DefaultMaxPartSize,
		Retention:   DefaultRetention,
		LogLevel:    orDefault(getenv("LOG_LEVEL"), DefaultLogLevel),
	}

	if cfg.Token == "" {
		return Config{}, fmt.Errorf("BOT_TOKEN: %w", ErrMissing)
	}

	users := getenv("AUTHORIZED_USERS")
	if strings.TrimSpace(users) == "" {
		return Config{}, fmt.Errorf("AUTHORIZED_USERS: %w", ErrMissing)
	}
	auth, err := ParseAuthSet(users)
	if err != nil {
		return Config{}, fmt.Errorf("AUTHORIZED_USERS: %w", err)
	}
	cfg.Authorized = auth

	if v := getenv("API_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("API_ID must be a valid integer: %w", err)
		}
		cfg.AppID = id
	}
	if (cfg.AppID == 0) != (cfg.AppHash == "") {
		return Config{}, fmt.Errorf("API_ID and API_HASH must be set together: %w", ErrMissing)
	}

	if v := getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SESSION_TTL: %w", err)
		}
		if ttl < 0 {
			return Config{}, fmt.Errorf("SESSION_TTL must not be negative: %s", v)
		}
		cfg.SessionTTL = ttl
	}

	if v := getenv("LEDGER_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("LEDGER_RETENTION: %w", err)
		}
		cfg.Retention = d
	}

	if v := getenv("MAX_PART_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_PART_SIZE must be a valid integer: %w", err)
		}
		if size <= 0 {
			return Config{}, fmt.Errorf("MAX_PART_SIZE must be positive: %d", size)
		}
		cfg.MaxPartSize = size
	}

	if strings.ContainsAny(cfg.ArchiveName, `/\`) {
		return Config{}, fmt.Errorf("ARCHIVE_NAME must be a bare file name: %q", cfg.ArchiveName)
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
