// Package config builds runtime configuration from environment variables
// so main stays lean. Every knob has a development default; production
// deployments are expected to override the secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends for the subscription key ledger.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	Addr          string
	JWTSigningKey string

	// Network selects the factory address for the deployment.
	ChainID         uint64
	FactoryOverride string

	// Binding parameters.
	PolicyID               uint64
	Referrer               string
	ReferrerFeeBasisPoints uint16
	TransferPolicy         string
	MechanismVersion       uint64

	// Subscription terms.
	ExpirationDuration time.Duration
	Asset              string
	UnitPrice          uint64
	SupplyCap          uint64
	Manager            string
	DisplayName        string

	Storage  string
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// KafkaConfig holds audit publisher settings. Empty brokers disable the
// Kafka publisher and audit events stay in memory.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            envOr("KEYGATE_ADDR", ":8080"),
		JWTSigningKey:   envOr("KEYGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		FactoryOverride: os.Getenv("KEYGATE_FACTORY_OVERRIDE"),
		Referrer:        os.Getenv("KEYGATE_REFERRER"),
		TransferPolicy:  envOr("KEYGATE_TRANSFER_POLICY", "forbid"),
		Asset:           os.Getenv("KEYGATE_ASSET"),
		Manager:         os.Getenv("KEYGATE_MANAGER"),
		DisplayName:     envOr("KEYGATE_DISPLAY_NAME", "keygate subscription"),
		Storage:         envOr("KEYGATE_STORAGE", StorageMemory),
	}

	var err error
	if cfg.ChainID, err = envUint("KEYGATE_CHAIN_ID", 1); err != nil {
		return Config{}, err
	}
	if cfg.PolicyID, err = envUint("KEYGATE_POLICY_ID", 1); err != nil {
		return Config{}, err
	}
	if cfg.MechanismVersion, err = envUint("KEYGATE_MECHANISM_VERSION", 0); err != nil {
		return Config{}, err
	}
	if cfg.UnitPrice, err = envUint("KEYGATE_UNIT_PRICE", 0); err != nil {
		return Config{}, err
	}
	if cfg.SupplyCap, err = envUint("KEYGATE_SUPPLY_CAP", 0); err != nil {
		return Config{}, err
	}

	fee, err := envUint("KEYGATE_REFERRER_FEE_BPS", 0)
	if err != nil {
		return Config{}, err
	}
	if fee > 10000 {
		return Config{}, fmt.Errorf("KEYGATE_REFERRER_FEE_BPS must be at most 10000, got %d", fee)
	}
	cfg.ReferrerFeeBasisPoints = uint16(fee)

	if cfg.ExpirationDuration, err = envDuration("KEYGATE_EXPIRATION", 30*24*time.Hour); err != nil {
		return Config{}, err
	}

	switch cfg.Storage {
	case StorageMemory, StorageRedis, StoragePostgres:
	default:
		return Config{}, fmt.Errorf("KEYGATE_STORAGE must be %s, %s, or %s, got %q",
			StorageMemory, StorageRedis, StoragePostgres, cfg.Storage)
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("KEYGATE_REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	cfg.Postgres = PostgresConfig{
		URL:          os.Getenv("KEYGATE_POSTGRES_URL"),
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}
	if brokers := os.Getenv("KEYGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: strings.Split(brokers, ","),
			Topic:   envOr("KEYGATE_KAFKA_TOPIC", "keygate.audit"),
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) (uint64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an unsigned integer: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return v, nil
}
