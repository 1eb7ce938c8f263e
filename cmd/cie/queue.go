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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// IndexQueue manages the lock file that serializes index runs for one
// project: the git post-commit hook fires `cie index` in the background,
// and a long-running index must not race a concurrent manual run.
type IndexQueue struct {
	projectID string
	baseDir   string // ~/.cie/<project>/
	lockPath  string // ~/.cie/<project>/index.lock
	lockFile  *os.File
}

// LockInfo contains information about the current lock holder.
type LockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// NewIndexQueue creates a new IndexQueue for the given project.
func NewIndexQueue(projectID string) (*IndexQueue, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	baseDir := filepath.Join(homeDir, ".cie", projectID)
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}

	return &IndexQueue{
		projectID: projectID,
		baseDir:   baseDir,
		lockPath:  filepath.Join(baseDir, "index.lock"),
	}, nil
}

// TryAcquireLock attempts to acquire the index lock.
// Returns true if lock was acquired, false if another process holds it.
func (q *IndexQueue) TryAcquireLock() (bool, error) {
	f, err := os.OpenFile(q.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	// Try to acquire exclusive lock (non-blocking)
	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil // Lock is held by another process
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	// Write our PID and start time to the lock file
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	q.lockFile = f
	return true, nil
}

// WaitForLock waits up to timeout for the lock to become available.
// Returns true if lock was acquired, false if timeout.
func (q *IndexQueue) WaitForLock(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		acquired, err := q.TryAcquireLock()
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Wait a bit before retrying
		time.Sleep(500 * time.Millisecond)
	}

	return false, nil
}

// ReleaseLock releases the index lock.
func (q *IndexQueue) ReleaseLock() {
	if q.lockFile != nil {
		_ = syscall.Flock(int(q.lockFile.Fd()), syscall.LOCK_UN)
		_ = q.lockFile.Close()
		q.lockFile = nil
	}
}

// GetLockInfo returns information about the current lock holder, if any.
func (q *IndexQueue) GetLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(q.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pid int
	var timestamp int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &timestamp); err != nil {
		return nil, fmt.Errorf("parse lock info: %w", err)
	}

	return &LockInfo{
		PID:       pid,
		StartedAt: time.Unix(timestamp, 0),
	}, nil
}

// IsLockStale checks if the lock is stale (process no longer exists).
func (q *IndexQueue) IsLockStale() bool {
	info, err := q.GetLockInfo()
	if err != nil || info == nil {
		return false
	}

	// Check if process is still running
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return true // Process not found
	}

	// On Unix, FindProcess always succeeds; use signal 0 to check if process exists
	err = proc.Signal(syscall.Signal(0))
	return err != nil
}

// QueueStatus reports whether a lock is currently held for the project.
type QueueStatus struct {
	LockHeld     bool
	LockPID      int
	LockDuration time.Duration
}

// GetStatus returns the current lock status of the index queue.
func (q *IndexQueue) GetStatus() (*QueueStatus, error) {
	status := &QueueStatus{}

	// Check lock - but verify the process is still alive
	info, _ := q.GetLockInfo()
	if info != nil && !q.IsLockStale() {
		status.LockHeld = true
		status.LockPID = info.PID
		status.LockDuration = time.Since(info.StartedAt)
	}

	return status, nil
}

// FormatDuration formats a duration for human-readable output.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	if d < time.Hour {
		return strconv.Itoa(int(d.Minutes())) + "m " + strconv.Itoa(int(d.Seconds())%60) + "s"
	}
	return strconv.Itoa(int(d.Hours())) + "h " + strconv.Itoa(int(d.Minutes())%60) + "m"
}
