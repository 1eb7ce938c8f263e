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

package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LockManager grants advisory, lease-bounded locks keyed by name. A lease
// expires on its own if never released, so a crashed owner cannot wedge a
// snapshot build forever; release is authenticated by the token returned
// from Acquire so only the current owner can release early.
//
// This is the in-process primitive the incremental driver uses to hold a
// snapshot build's advisory lock; a multi-process deployment would swap
// this for a real external lock service behind the same Acquire/Release
// shape.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*lease
	now   func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

// NewLockManager returns a LockManager. now is injected for deterministic
// tests; production callers pass time.Now.
func NewLockManager(now func() time.Time) *LockManager {
	return &LockManager{locks: make(map[string]*lease), now: now}
}

// Acquire grants name for leaseSeconds and returns a release token, or
// an error if name is already held by a live lease.
func (m *LockManager) Acquire(name string, leaseSeconds int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.locks[name]; ok && now.Before(l.expires) {
		return "", fmt.Errorf("cache: lock %q is held until %s", name, l.expires.Format(time.RFC3339))
	}

	token := uuid.NewString()
	m.locks[name] = &lease{token: token, expires: now.Add(time.Duration(leaseSeconds) * time.Second)}
	return token, nil
}

// Release drops name's lock if the caller's token matches the current
// holder (and the lease has not already expired and been reassigned).
// Releasing with a stale or mismatched token is a no-op error, never a
// cross-owner release.
func (m *LockManager) Release(name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[name]
	if !ok {
		return nil
	}
	if l.token != token {
		return fmt.Errorf("cache: release token for lock %q does not match current holder", name)
	}
	delete(m.locks, name)
	return nil
}

// Held reports whether name currently has a live (unexpired) lease.
func (m *LockManager) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	return ok && m.now().Before(l.expires)
}
