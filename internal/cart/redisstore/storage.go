// Package redisstore persists carts in Redis. Carts are stored as JSON under
// "cart:<id>" with a sliding TTL — an abandoned cart expires on its own, a
// live one survives reloads indefinitely.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aldomata/storefront-checkout/internal/cart"
)

const defaultTTL = 30 * 24 * time.Hour

type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cart.Storage = (*Storage)(nil)

func New(client *redis.Client) *Storage {
	return &Storage{client: client, ttl: defaultTTL}
}

func (s *Storage) Load(ctx context.Context, cartID string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, key(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get cart %s: %w", cartID, err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("redisstore: unmarshal cart %s: %w", cartID, err)
	}
	return &c, nil
}

func (s *Storage) Save(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redisstore: marshal cart %s: %w", c.ID, err)
	}
	if err := s.client.Set(ctx, key(c.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set cart %s: %w", c.ID, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, key(cartID)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete cart %s: %w", cartID, err)
	}
	return nil
}

func key(cartID string) string {
	return "cart:" + cartID
}
