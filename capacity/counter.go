// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package capacity

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter counts admitted requests per UTC day.
type Counter interface {
	// IncrementAndRead atomically adds one to today's count and returns it.
	IncrementAndRead(ctx context.Context, now time.Time) (int64, error)
	// Read returns today's count without changing it.
	Read(ctx context.Context, now time.Time) (int64, error)
	// Reset zeroes today's count.
	Reset(ctx context.Context, now time.Time) error
}

// DayKey identifies the counting epoch containing now.
func DayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// NextReset is the next UTC midnight after now.
func NextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// MemoryCounter is a single-process Counter.
type MemoryCounter struct {
	mu    sync.Mutex
	day   string
	count int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

// roll must hold mu. Only the first caller past midnight resets.
func (c *MemoryCounter) roll(now time.Time) {
	if key := DayKey(now); key != c.day {
		c.day = key
		c.count = 0
	}
}

func (c *MemoryCounter) IncrementAndRead(_ context.Context, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	c.count++
	return c.count, nil
}

func (c *MemoryCounter) Read(_ context.Context, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	return c.count, nil
}

func (c *MemoryCounter) Reset(_ context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = DayKey(now)
	c.count = 0
	return nil
}

// Set overwrites today's count.
func (c *MemoryCounter) Set(now time.Time, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = DayKey(now)
	c.count = n
}

var incrementScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIREAT", KEYS[1], ARGV[1])
end
return current
`)

// RedisCounter shares one counter per day key across processes. A new key per
// UTC day makes the reset atomic and idempotent; old keys expire on their own.
type RedisCounter struct {
	Client  *redis.Client
	Prefix  string
	Timeout time.Duration
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{
		Client:  client,
		Prefix:  "capacity:",
		Timeout: 500 * time.Millisecond,
	}
}

func (c *RedisCounter) key(now time.Time) string {
	return c.Prefix + DayKey(now)
}

func (c *RedisCounter) IncrementAndRead(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	// Keep the key an hour past midnight so late readers still see it.
	expireAt := NextReset(now).Add(time.Hour).Unix()
	return incrementScript.Run(ctx, c.Client, []string{c.key(now)}, expireAt).Int64()
}

func (c *RedisCounter) Read(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	raw, err := c.Client.Get(ctx, c.key(now)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (c *RedisCounter) Reset(ctx context.Context, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	return c.Client.Del(ctx, c.key(now)).Err()
}
