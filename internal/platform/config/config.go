package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"civicledger/pkg/domain"
	strutil "civicledger/pkg/platform/strings"
)

// Config is the full process configuration, read once at start-up.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Registry  RegistryConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string
	JWTIssuer      string
	JWTAudience    string
	RequestTimeout time.Duration
}

// DatabaseConfig selects the ledger store. An empty URL keeps the ledger in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the snapshot cache. An empty URL keeps it in process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RegistryConfig holds the complaint ledger's economic and authority settings.
type RegistryConfig struct {
	Authorities []domain.Address
	SlashSink   domain.Address
	// DefaultStake is applied when a submission omits its amount, in base units.
	DefaultStake string
	// TokenDecimals overrides the display exponent per checksummed token
	// address. Unlisted tokens use 18.
	TokenDecimals map[string]int
}

// SyncConfig tunes the read-side synchronizer.
type SyncConfig struct {
	Window           int
	MaxWindow        int
	Concurrency      int
	CacheTTL         time.Duration
	RefreshInterval  time.Duration
	FailureThreshold int
}

// RateLimitConfig bounds submissions per caller. A zero limit disables it.
type RateLimitConfig struct {
	SubmitLimit  int
	SubmitWindow time.Duration
}

// Load reads .env (when present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	authorities, err := parseAddresses(os.Getenv("ADMIN_ADDRESSES"))
	if err != nil {
		return Config{}, fmt.Errorf("ADMIN_ADDRESSES: %w", err)
	}

	decimals, err := parseTokenDecimals(os.Getenv("TOKEN_DECIMALS"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_DECIMALS: %w", err)
	}

	sink := domain.Address{}
	if raw := os.Getenv("SLASH_SINK_ADDRESS"); raw != "" {
		sink, err = domain.ParseAddress(raw)
		if err != nil {
			return Config{}, fmt.Errorf("SLASH_SINK_ADDRESS: %w", err)
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; production must override.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	cfg := Config{
		Server: Server{
			Addr:           envString("CIVIC_ADDR", ":8080"),
			JWTSigningKey:  jwtSigningKey,
			JWTIssuer:      envString("JWT_ISSUER", "civicledger"),
			JWTAudience:    envString("JWT_AUDIENCE", "civicledger-api"),
			RequestTimeout: envDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: strutil.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envString("AUDIT_TOPIC", "civic.complaints.audit"),
		},
		Registry: RegistryConfig{
			Authorities:   authorities,
			SlashSink:     sink,
			DefaultStake:  envString("DEFAULT_STAKE_WEI", "100000000000000000"),
			TokenDecimals: decimals,
		},
		Sync: SyncConfig{
			Window:           envInt("SYNC_WINDOW", 20),
			MaxWindow:        envInt("SYNC_MAX_WINDOW", 100),
			Concurrency:      envInt("SYNC_CONCURRENCY", 4),
			CacheTTL:         envDuration("SYNC_CACHE_TTL", 15*time.Second),
			RefreshInterval:  envDuration("SYNC_REFRESH_INTERVAL", 0),
			FailureThreshold: envInt("SYNC_FAILURE_THRESHOLD", 3),
		},
		RateLimit: RateLimitConfig{
			SubmitLimit:  envInt("SUBMIT_RATE_LIMIT", 10),
			SubmitWindow: envDuration("SUBMIT_RATE_WINDOW", time.Hour),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func parseAddresses(raw string) ([]domain.Address, error) {
	var out []domain.Address
	for _, part := range strutil.SplitList(raw) {
		a, err := domain.ParseAddress(part)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// parseTokenDecimals reads "0xToken:6,0xOther:8".
func parseTokenDecimals(raw string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range strutil.SplitList(raw) {
		token, exp, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%q: want <address>:<decimals>", part)
		}
		addr, err := domain.ParseAddress(strings.TrimSpace(token))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(exp))
		if err != nil || n < 0 || n > 77 {
			return nil, fmt.Errorf("%q: decimals must be an integer between 0 and 77", part)
		}
		out[addr.String()] = n
	}
	return out, nil
}
