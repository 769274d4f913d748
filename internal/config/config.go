package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"

	defaultSQLitePath = "univote.db"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

type Config struct {
	Addr                   string
	DatabaseType           string
	DatabaseURL            string
	JWTSecret              string
	BallotSealKey          string
	AcceptPlaintextBallots bool
	RequireAllPositions    bool
	BcryptCost             int
	AuditQueueSize         int
	RecomputeParallelism   int
	LogLevel               string
	LogFormat              string
	AllowedOrigins         []string
}

// Load reads .env when present, then environment variables, then flags.
func Load(name string, args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return Parse(name, args, os.Getenv)
}

func Parse(name string, args []string, getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}
	cfg := &Config{}

	var origins string

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cfg.Addr, "addr", env.lookup("ADDR", "0.0.0.0:8080"), "HTTP listen address")
	flags.StringVar(&cfg.DatabaseType, "db-type", env.lookup("DATABASE_TYPE", DatabasePostgres), "Storage backend: postgres or sqlite")
	flags.StringVar(&cfg.DatabaseURL, "db-url", getenv("DATABASE_URL"), "Postgres connection string or SQLite file path")
	flags.StringVar(&cfg.BallotSealKey, "ballot-seal-key", getenv("BALLOT_SEAL_KEY"), "32-byte ballot sealing key, hex or base64")
	flags.BoolVar(&cfg.AcceptPlaintextBallots, "accept-plaintext-ballots", env.lookupBool("ACCEPT_PLAINTEXT_BALLOTS", false), "Open ballots stored as plaintext before a seal key was set")
	flags.BoolVar(&cfg.RequireAllPositions, "require-all-positions", env.lookupBool("REQUIRE_ALL_POSITIONS", false), "Reject ballots that skip a position")
	flags.IntVar(&cfg.BcryptCost, "bcrypt-cost", env.lookupInt("BCRYPT_COST", 10), "bcrypt cost for voter credentials")
	flags.IntVar(&cfg.AuditQueueSize, "audit-queue-size", env.lookupInt("AUDIT_QUEUE_SIZE", 256), "Pending audit events before new ones are dropped")
	flags.IntVar(&cfg.RecomputeParallelism, "recompute-parallelism", env.lookupInt("RECOMPUTE_PARALLELISM", 4), "Elections recomputed at once")
	flags.StringVar(&cfg.LogLevel, "log-level", env.lookup("LOG_LEVEL", "info"), "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", env.lookup("LOG_FORMAT", "json"), "json or text")
	flags.StringVar(&origins, "allowed-origins", getenv("ALLOWED_ORIGINS"), "Comma-separated CORS origins, empty or * for any")

	if env.err != nil {
		return nil, env.err
	}
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg.JWTSecret = getenv("JWT_SECRET")
	cfg.AllowedOrigins = splitOrigins(origins)

	if cfg.DatabaseURL == "" {
		switch cfg.DatabaseType {
		case DatabasePostgres:
			cfg.DatabaseURL = postgresURL(getenv)
		case DatabaseSQLite:
			cfg.DatabaseURL = defaultSQLitePath
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseType != DatabasePostgres && c.DatabaseType != DatabaseSQLite {
		return fmt.Errorf("unsupported database type %q", c.DatabaseType)
	}
	if c.AuditQueueSize <= 0 {
		return fmt.Errorf("audit queue size must be positive, got %d", c.AuditQueueSize)
	}
	if c.RecomputeParallelism <= 0 {
		return fmt.Errorf("recompute parallelism must be positive, got %d", c.RecomputeParallelism)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

// RequireServerSecrets reports settings the API server cannot start without.
func (c *Config) RequireServerSecrets() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func postgresURL(getenv func(string) string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenv("POSTGRES_USER"), getenv("POSTGRES_PASSWORD")),
		Host:     getenv("POSTGRES_HOST") + ":" + getenv("POSTGRES_PORT"),
		Path:     "/" + getenv("POSTGRES_DB"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return nil
		}
		origins = append(origins, origin)
	}
	return origins
}

// envReader keeps the first malformed value so Parse can report it.
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) lookup(key, fallback string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) lookupInt(key string, fallback int) int {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v)
		return fallback
	}
	return n
}

func (e *envReader) lookupBool(key string, fallback bool) bool {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v)
		return fallback
	}
	return b
}

func (e *envReader) fail(key, value string) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid value %q for %s", value, key)
	}
}
