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
	"testing"
	"time"
)

func TestLockManagerAcquireRelease(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewLockManager(func() time.Time { return clock })

	token, err := m.Acquire("snapshot-1", 30)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !m.Held("snapshot-1") {
		t.Fatal("expected the lock to be held after Acquire")
	}
	if err := m.Release("snapshot-1", token); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if m.Held("snapshot-1") {
		t.Fatal("expected the lock to be free after Release")
	}
}

func TestLockManagerRejectsSecondAcquireWhileHeld(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewLockManager(func() time.Time { return clock })

	if _, err := m.Acquire("snapshot-1", 30); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := m.Acquire("snapshot-1", 30); err == nil {
		t.Fatal("expected a second Acquire on a held lock to fail")
	}
}

func TestLockManagerRejectsReleaseWithWrongToken(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewLockManager(func() time.Time { return clock })

	if _, err := m.Acquire("snapshot-1", 30); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := m.Release("snapshot-1", "not-the-real-token"); err == nil {
		t.Fatal("expected Release with a mismatched token to fail")
	}
	if !m.Held("snapshot-1") {
		t.Fatal("expected the lock to remain held after a rejected release")
	}
}

func TestLockManagerExpiresLease(t *testing.T) {
	clock := time.Unix(1000, 0)
	now := func() time.Time { return clock }
	m := NewLockManager(now)

	if _, err := m.Acquire("snapshot-1", 10); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	clock = clock.Add(11 * time.Second)

	if m.Held("snapshot-1") {
		t.Fatal("expected the lease to have expired")
	}
	if _, err := m.Acquire("snapshot-1", 10); err != nil {
		t.Fatalf("expected re-Acquire to succeed after expiry, got %v", err)
	}
}
