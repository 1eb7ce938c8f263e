// Copyright 2025 OpenCIE
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@opencie.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config sizes a Limiter's buckets and its global concurrency cap.
type Config struct {
	GlobalTokensPerMinute int
	GlobalMaxConcurrent   int
	TenantTokensPerMinute int
	ModelTokensPerMinute  map[string]int
}

// DefaultConfig mirrors rate_limiter.py's get_rate_limiter defaults.
func DefaultConfig() Config {
	return Config{
		GlobalTokensPerMinute: 10000,
		GlobalMaxConcurrent:   10,
		TenantTokensPerMinute: 1000,
	}
}

// Limiter bounds concurrent calls to an external adapter (embedding/LLM)
// with a global token bucket, a global concurrency semaphore, and
// per-tenant/per-model sub-buckets created lazily on first use.
//
// Unlike rate_limiter.py's RateLimiter, which releases its concurrency
// semaphore as soon as the token buckets are drawn down (before the
// external call is made), Acquire here returns a release func the caller
// defers around the external call itself, so GlobalMaxConcurrent actually
// bounds in-flight external calls rather than just bucket contention.
type Limiter struct {
	mu sync.Mutex

	cfg    Config
	global *tokenBucket
	tenant map[string]*tokenBucket
	model  map[string]*tokenBucket

	slots chan struct{}
	now   func() time.Time
	sleep func(time.Duration)
}

// New returns a Limiter. now and sleep are injected for deterministic
// tests; production callers pass time.Now and time.Sleep.
func New(cfg Config, now func() time.Time, sleep func(time.Duration)) *Limiter {
	if cfg.GlobalMaxConcurrent <= 0 {
		cfg.GlobalMaxConcurrent = 1
	}
	l := &Limiter{
		cfg:    cfg,
		global: newTokenBucket(cfg.GlobalTokensPerMinute, float64(cfg.GlobalTokensPerMinute), now),
		tenant: make(map[string]*tokenBucket),
		model:  make(map[string]*tokenBucket),
		slots:  make(chan struct{}, cfg.GlobalMaxConcurrent),
		now:    now,
		sleep:  sleep,
	}
	for model, limit := range cfg.ModelTokensPerMinute {
		l.model[model] = newTokenBucket(limit, float64(limit), now)
	}
	return l
}

// Acquire blocks until tokens are available in the global bucket, the
// tenant bucket (if tenant is non-empty), and the model bucket (if model
// is non-empty and configured), or ctx is done. On success it returns a
// release func the caller must call when the external request completes,
// freeing the concurrency slot for the next waiter.
func (l *Limiter) Acquire(ctx context.Context, tokens int, tenant, model string) (func(), error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := l.waitAcquire(ctx, l.global, float64(tokens)); err != nil {
		<-l.slots
		return nil, err
	}
	if tenant != "" {
		if err := l.waitAcquire(ctx, l.tenantBucket(tenant), float64(tokens)); err != nil {
			<-l.slots
			return nil, err
		}
	}
	if model != "" {
		if b, ok := l.modelBucket(model); ok {
			if err := l.waitAcquire(ctx, b, float64(tokens)); err != nil {
				<-l.slots
				return nil, err
			}
		}
	}

	released := false
	return func() {
		if !released {
			released = true
			<-l.slots
		}
	}, nil
}

func (l *Limiter) waitAcquire(ctx context.Context, b *tokenBucket, tokens float64) error {
	for {
		l.mu.Lock()
		ok := b.tryAcquire(tokens)
		wait := time.Duration(0)
		if !ok {
			wait = b.waitFor(tokens)
		}
		l.mu.Unlock()
		if ok {
			return nil
		}

		if deadline, has := ctx.Deadline(); has && l.now().Add(wait).After(deadline) {
			return fmt.Errorf("ratelimit: acquiring %v tokens would exceed the deadline: %w", tokens, context.DeadlineExceeded)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.sleep(wait)
	}
}

// TryAcquire is the non-blocking variant: it consumes tokens from every
// applicable bucket only if all of them have enough available, refunding
// any already-consumed bucket otherwise (all-or-nothing).
func (l *Limiter) TryAcquire(tokens int, tenant, model string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := float64(tokens)
	if !l.global.tryAcquire(t) {
		return false
	}
	var tb *tokenBucket
	if tenant != "" {
		tb = l.tenantBucket(tenant)
		if !tb.tryAcquire(t) {
			l.global.refund(t)
			return false
		}
	}
	if model != "" {
		if mb, ok := l.modelBucket(model); ok {
			if !mb.tryAcquire(t) {
				l.global.refund(t)
				if tb != nil {
					tb.refund(t)
				}
				return false
			}
		}
	}
	return true
}

func (l *Limiter) tenantBucket(tenant string) *tokenBucket {
	b, ok := l.tenant[tenant]
	if !ok {
		b = newTokenBucket(l.cfg.TenantTokensPerMinute, float64(l.cfg.TenantTokensPerMinute), l.now)
		l.tenant[tenant] = b
	}
	return b
}

func (l *Limiter) modelBucket(model string) (*tokenBucket, bool) {
	b, ok := l.model[model]
	return b, ok
}

// Stats reports the current token availability per bucket, for a
// `cie status` or diagnostics surface to render.
type Stats struct {
	GlobalAvailable float64
	GlobalCapacity  float64
	TenantAvailable map[string]float64
	ModelAvailable  map[string]float64
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.global.refill()
	s := Stats{
		GlobalAvailable: l.global.tokens,
		GlobalCapacity:  l.global.capacity,
		TenantAvailable: make(map[string]float64, len(l.tenant)),
		ModelAvailable:  make(map[string]float64, len(l.model)),
	}
	for id, b := range l.tenant {
		b.refill()
		s.TenantAvailable[id] = b.tokens
	}
	for id, b := range l.model {
		b.refill()
		s.ModelAvailable[id] = b.tokens
	}
	return s
}
