package readable

import (
	"context"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "slidecopilot:context:"
	defaultSinkTTL   = 24 * time.Hour
)

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	DB       int           `envconfig:"DB" split_words:"true" default:"0"`
	TTL      time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// SinkOption customizes RedisSink and UpstashSink.
type SinkOption func(*sinkOptions)

type sinkOptions struct {
	keyPrefix string
	ttl       time.Duration
}

func WithKeyPrefix(prefix string) SinkOption {
	return func(o *sinkOptions) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

// WithTTL sets how long mirrored entries live. Zero disables expiry.
func WithTTL(ttl time.Duration) SinkOption {
	return func(o *sinkOptions) {
		o.ttl = ttl
	}
}

func buildSinkOptions(opts []SinkOption) sinkOptions {
	o := sinkOptions{
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultSinkTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.ttl < 0 {
		o.ttl = 0
	}
	return o
}

// RedisSink mirrors each session's context as one Redis hash (label -> value).
type RedisSink struct {
	client *backend.Client
	opts   sinkOptions
}

func NewRedisSink(cfg RedisConfig, opts ...SinkOption) *RedisSink {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisSinkFromClient(client, append([]SinkOption{WithTTL(cfg.TTL)}, opts...)...)
}

func NewRedisSinkFromClient(client *backend.Client, opts ...SinkOption) *RedisSink {
	return &RedisSink{
		client: client,
		opts:   buildSinkOptions(opts),
	}
}

func (s *RedisSink) Key(sessionID string) string {
	return s.opts.keyPrefix + sessionID
}

func (s *RedisSink) Mirror(ctx context.Context, sessionID, label, value string) error {
	key := s.Key(sessionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, label, value)
	if s.opts.ttl > 0 {
		pipe.Expire(ctx, key, s.opts.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror to redis: %w", err)
	}
	return nil
}

// Entries reads back every mirrored label for sessionID.
func (s *RedisSink) Entries(ctx context.Context, sessionID string) (map[string]string, error) {
	out, err := s.client.HGetAll(ctx, s.Key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read redis context: %w", err)
	}
	return out, nil
}

func (s *RedisSink) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear redis context: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
