// Copyright 2025 OpenCIE
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically instead of sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) func(time.Duration) {
	return func(time.Duration) { c.t = c.t.Add(d) }
}

func newTestLimiter(cfg Config, clock *fakeClock) *Limiter {
	return New(cfg, clock.now, clock.advance(0))
}

func TestAcquireSucceedsWithinBudget(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := newTestLimiter(Config{GlobalTokensPerMinute: 60, GlobalMaxConcurrent: 2}, clock)

	release, err := l.Acquire(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
}

func TestAcquireBlocksUntilRefillThenSucceeds(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	sleeps := 0
	l := New(Config{GlobalTokensPerMinute: 60, GlobalMaxConcurrent: 1}, clock.now, func(d time.Duration) {
		sleeps++
		clock.t = clock.t.Add(d)
	})

	// Drain the bucket (capacity == tokens-per-minute == 60).
	if !l.TryAcquire(60, "", "") {
		t.Fatal("expected initial drain to succeed")
	}

	release, err := l.Acquire(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	if sleeps == 0 {
		t.Fatal("expected Acquire to have slept waiting for refill")
	}
}

func TestAcquireRespectsContextDeadline(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(Config{GlobalTokensPerMinute: 6, GlobalMaxConcurrent: 1}, clock.now, func(d time.Duration) {
		clock.t = clock.t.Add(d)
	})
	if !l.TryAcquire(6, "", "") {
		t.Fatal("expected initial drain to succeed")
	}

	ctx, cancel := context.WithDeadline(context.Background(), clock.t.Add(time.Second))
	defer cancel()

	if _, err := l.Acquire(ctx, 1, "", ""); err == nil {
		t.Fatal("expected Acquire to fail once satisfying the request would exceed the deadline")
	}
}

func TestAcquireBoundsConcurrency(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := newTestLimiter(Config{GlobalTokensPerMinute: 600, GlobalMaxConcurrent: 1}, clock)

	release, err := l.Acquire(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	if _, err := l.Acquire(ctx, 1, "", ""); err == nil {
		t.Fatal("expected a second concurrent Acquire to block on the single slot and fail on an expired context")
	}

	release()
	release2, err := l.Acquire(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}

func TestTryAcquireRefundsOnPartialFailure(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(Config{
		GlobalTokensPerMinute: 600,
		GlobalMaxConcurrent:   1,
		TenantTokensPerMinute: 1,
	}, clock.now, func(time.Duration) {})

	if l.TryAcquire(5, "tenant-a", "") {
		t.Fatal("expected TryAcquire to fail when the tenant bucket cannot cover the request")
	}

	stats := l.Stats()
	if stats.GlobalAvailable != stats.GlobalCapacity {
		t.Fatalf("expected the global bucket to be refunded after tenant rejection, got %v/%v", stats.GlobalAvailable, stats.GlobalCapacity)
	}
}

func TestTryAcquirePerModelBucket(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(Config{
		GlobalTokensPerMinute: 600,
		GlobalMaxConcurrent:   1,
		ModelTokensPerMinute:  map[string]int{"gpt-mini": 1},
	}, clock.now, func(time.Duration) {})

	if !l.TryAcquire(1, "", "gpt-mini") {
		t.Fatal("expected the first request against a 1-token model bucket to succeed")
	}
	if l.TryAcquire(1, "", "gpt-mini") {
		t.Fatal("expected the second immediate request to exhaust the model bucket")
	}
}
