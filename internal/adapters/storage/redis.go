package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStorage implementa ports.SessionStore sobre Redis. Útil cuando varios
// procesos del dashboard comparten la misma sesión.
type RedisStorage struct {
	client *redis.Client
	keys   keys
}

// NewRedisStorage conecta a addr y verifica la conexión con un PING.
func NewRedisStorage(ctx context.Context, addr string, db int, namespace string) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage.NewRedisStorage: ping %s: %w", addr, err)
	}
	return NewRedisStorageFromClient(client, namespace), nil
}

// NewRedisStorageFromClient envuelve un cliente ya configurado.
func NewRedisStorageFromClient(client *redis.Client, namespace string) *RedisStorage {
	return &RedisStorage{client: client, keys: newKeys(namespace)}
}

func (r *RedisStorage) Load(ctx context.Context) (domain.Session, bool, error) {
	vals, err := r.client.MGet(ctx, r.keys.token, r.keys.email).Result()
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("storage.Load: mget: %w", err)
	}

	var s domain.Session
	if v, ok := vals[0].(string); ok {
		s.Token = v
	}
	if v, ok := vals[1].(string); ok {
		s.Email = v
	}
	return s, s.Active(), nil
}

// Save escribe las dos claves en una transacción MULTI/EXEC.
func (r *RedisStorage) Save(ctx context.Context, s domain.Session) error {
	if !s.Active() {
		return errors.New("storage.Save: empty token")
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.token, s.Token, 0)
		pipe.Set(ctx, r.keys.email, s.Email, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage.Save: %w", err)
	}
	return nil
}

func (r *RedisStorage) SaveToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("storage.SaveToken: empty token")
	}
	if err := r.client.Set(ctx, r.keys.token, token, 0).Err(); err != nil {
		return fmt.Errorf("storage.SaveToken: %w", err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.keys.token, r.keys.email).Err(); err != nil {
		return fmt.Errorf("storage.Clear: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
