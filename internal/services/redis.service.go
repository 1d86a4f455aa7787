package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"halmon/internal/config"
	"halmon/internal/models"
)

// RedisBackend stores the alarm list as one JSON value under Key
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend connects lazily; the first Load or Save surfaces connection errors
func NewRedisBackend(cfg config.RedisConfig) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	return &RedisBackend{client: client, key: cfg.Key}
}

func (b *RedisBackend) Name() string {
	return "redis:" + b.key
}

func (b *RedisBackend) Load(ctx context.Context) ([]models.Alarm, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var alarms []models.Alarm
	if err := json.Unmarshal(data, &alarms); err != nil {
		return nil, fmt.Errorf("corrupt alarm record %s: %w", b.key, err)
	}
	return alarms, nil
}

func (b *RedisBackend) Save(ctx context.Context, alarms []models.Alarm) error {
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	data, err := json.Marshal(alarms)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, data, 0).Err()
}

// Close releases the connection pool
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// NewBackend builds the backend selected by cfg
func NewBackend(cfg config.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileBackend(cfg.Path), nil
	case "redis":
		return NewRedisBackend(cfg.Redis), nil
	}
	return nil, fmt.Errorf("unsupported store backend: %q", cfg.Backend)
}
