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

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestServiceGroupWakesOnSignal(t *testing.T) {
	signal := make(chan struct{}, 1)
	var runs int32

	sg := NewServiceGroup(context.Background())
	sg.Start(Service{
		Name:   "signal-driven",
		Signal: signal,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})

	signal <- struct{}{}
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&runs) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sg.Stop()
	sg.Wait()

	if atomic.LoadInt32(&runs) == 0 {
		t.Fatal("expected the service to run at least once after the signal")
	}
}

func TestServiceGroupWakesOnInterval(t *testing.T) {
	var runs int32
	sg := NewServiceGroup(context.Background())
	sg.Start(Service{
		Name:     "ticking",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&runs) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sg.Stop()
	sg.Wait()

	if atomic.LoadInt32(&runs) < 2 {
		t.Fatalf("expected the interval-driven service to run multiple times, got %d", runs)
	}
}

func TestServiceGroupPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	sg := NewServiceGroup(context.Background())
	sg.Start(Service{
		Name:     "failing",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) error {
			return boom
		},
	})

	if err := sg.Wait(); err == nil {
		t.Fatal("expected Wait to surface the service's error")
	}
}

func TestServiceGroupStopsOnParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sg := NewServiceGroup(ctx)
	sg.Start(Service{
		Name:     "parent-bound",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) error {
			return nil
		},
	})
	cancel()
	if err := sg.Wait(); err != nil {
		t.Fatalf("expected a clean shutdown on parent cancel, got %v", err)
	}
}
