// Package banstore keeps banned IPs and fixed-window request counters,
// in Redis when configured and in process memory otherwise.
package banstore

import (
	"context"
	"time"
)

type Store interface {
	Ban(ctx context.Context, ip string, ttl time.Duration) error
	IsBanned(ctx context.Context, ip string) (bool, error)
	Unban(ctx context.Context, ip string) error
	// Allow counts one hit for key in the current window and reports whether
	// the count is still within limit.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

const (
	banPrefix  = "ban:"
	ratePrefix = "rate:"
)
