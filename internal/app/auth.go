// internal/app/auth.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrInvalidToken  = errors.New("invalid token")
)

type Auth struct {
	enabled     bool
	redis       *redis.Client
	keyTemplate string
	tokenHeader string
}

func NewAuth(config *Config) (*Auth, error) {
	if !config.Server.EnableAuth {
		return &Auth{enabled: false, tokenHeader: config.Auth.TokenHeader}, nil
	}

	opt, err := redis.ParseURL(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewAuthWithClient(client, config.Auth.TokenKeyTemplate, config.Auth.TokenHeader), nil
}

func NewAuthWithClient(client *redis.Client, keyTemplate, tokenHeader string) *Auth {
	return &Auth{
		enabled:     true,
		redis:       client,
		keyTemplate: keyTemplate,
		tokenHeader: tokenHeader,
	}
}

func (a *Auth) Enabled() bool {
	return a != nil && a.enabled
}

func (a *Auth) Client() *redis.Client {
	return a.redis
}

func (a *Auth) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func (a *Auth) key(instructor string) string {
	return strings.NewReplacer("{instructor}", instructor).Replace(a.keyTemplate)
}

func (a *Auth) ValidateToken(ctx context.Context, instructor, token string) error {
	if !a.Enabled() {
		return nil
	}

	key := a.key(instructor)
	stored, err := a.redis.HGet(ctx, key, "token").Result()
	if errors.Is(err, redis.Nil) {
		logger.Debug.Printf("Token not found for key: %s", key)
		return ErrTokenNotFound
	}
	if err != nil {
		logger.Debug.Printf("Redis error: %v", err)
		return fmt.Errorf("redis error: %w", err)
	}

	if stored != token {
		logger.Debug.Printf("Token mismatch for instructor %s and what's found in %s", instructor, key)
		return ErrInvalidToken
	}

	a.redis.HIncrBy(ctx, key, "request_count", 1)
	return nil
}
