// Package config reads service configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	Templates TemplatesConfig
	Variants  VariantsConfig
	Cluster   ClusterConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
}

// TemplatesConfig locates the template payloads. DatabaseURL switches the
// store from the filesystem to Postgres.
type TemplatesConfig struct {
	Dir         string
	TTL         time.Duration
	DatabaseURL string
}

// VariantsConfig locates the issuer variant rule tables.
type VariantsConfig struct {
	Path string
}

// ClusterConfig tunes batch clustering.
type ClusterConfig struct {
	ResultTTL time.Duration
}

// RedisConfig captures Redis connection settings. An empty URL means Redis is
// not configured and the in-process cache is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the audit sink. No brokers means auditing is off.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("METALAB_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("METALAB_JWT_SIGNING_KEY"),
		Templates: TemplatesConfig{
			Dir:         envOr("METALAB_TEMPLATE_DIR", "./templates"),
			TTL:         durationOr("METALAB_TEMPLATE_TTL", 30*time.Second),
			DatabaseURL: os.Getenv("METALAB_DATABASE_URL"),
		},
		Variants: VariantsConfig{
			Path: envOr("METALAB_VARIANT_RULES", "./config/variants.yaml"),
		},
		Cluster: ClusterConfig{
			ResultTTL: durationOr("METALAB_RESULT_TTL", 15*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("METALAB_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("METALAB_KAFKA_BROKERS")),
			Topic:   envOr("METALAB_AUDIT_TOPIC", "metalab.audit"),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
