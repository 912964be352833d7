package internal

import (
	"fmt"
	"time"
)

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	GRPCPort              int           `env:"GRPC_PORT,default=9090"`
	LogLevel              string        `env:"LOG_LEVEL,default=INFO"`
	RedisURL              string        `env:"REDIS_URL"`
	PubSubChannel         string        `env:"PUBSUB_CHANNEL,default=folio-chat:events"`
	StoreDriver           string        `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath        string        `env:"BADGER_FILEPATH,default=./data/badger"`
	PostgresDSN           string        `env:"POSTGRES_DSN"`
	PostgresMaxConns      int           `env:"POSTGRES_MAX_CONNS,default=10"`
	JWTSecret             string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration     time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	TrustClientIdentity   bool          `env:"TRUST_CLIENT_IDENTITY,default=false"`
	SocketTTL             time.Duration `env:"SOCKET_TTL,default=24h"`
	RateLimitWindow       time.Duration `env:"RATE_LIMIT_WINDOW,default=10s"`
	RateLimitMax          int           `env:"RATE_LIMIT_MAX,default=5"`
	ConnectionBufferSize  int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout       time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	RestartInterval       time.Duration `env:"RESTART_INTERVAL,default=1s"`
	HeartbeatInterval     time.Duration `env:"HEARTBEAT_INTERVAL,default=5s"`
	HealthProbeInterval   time.Duration `env:"HEALTH_PROBE_INTERVAL,default=5s"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DefaultPageLimit      int           `env:"DEFAULT_PAGE_LIMIT,default=20"`
	MaxPageLimit          int           `env:"MAX_PAGE_LIMIT,default=100"`
	MaxMessageLength      int           `env:"MAX_MESSAGE_LENGTH,default=2000"`
	ModerationEnabled     bool          `env:"MODERATION_ENABLED,default=false"`
	ModerationReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

// Validate catches combinations the env decoder cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required with STORE_DRIVER=%s", StoreBadger)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.DefaultPageLimit > c.MaxPageLimit {
		return fmt.Errorf("DEFAULT_PAGE_LIMIT (%d) exceeds MAX_PAGE_LIMIT (%d)", c.DefaultPageLimit, c.MaxPageLimit)
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
