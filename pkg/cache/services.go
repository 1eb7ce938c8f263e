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
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service is one background cooperative-loop task: stale-edge cleanup,
// snapshot GC, embedding refresh, or any other periodic housekeeping that
// must never block the primary analysis pipeline. Domain callers (the
// incremental driver, the evidence store's TTL culler, pkg/llm's
// embedding refresher) construct a Service wired to their own logic;
// this package only supplies the scheduling primitive, so it does not
// import any domain package.
type Service struct {
	Name     string
	Interval time.Duration  // 0 disables the timer; Signal-only
	Signal   <-chan struct{} // optional external wake channel
	Run      func(ctx context.Context) error
}

// ServiceGroup runs a set of Services concurrently, each on its own
// cooperative loop, and reports the first error (if any) from Wait.
// Grounded on golang.org/x/sync/errgroup's context-propagating group:
// one service's fatal error cancels the others' contexts so Stop/Wait
// does not need to interrupt goroutines that block on I/O mid-run.
type ServiceGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
}

// NewServiceGroup returns a ServiceGroup whose services are cancelled
// when parent is done or Stop is called.
func NewServiceGroup(parent context.Context) *ServiceGroup {
	ctx, cancel := context.WithCancel(parent)
	g, ctx := errgroup.WithContext(ctx)
	return &ServiceGroup{ctx: ctx, cancel: cancel, g: g}
}

// Start launches svc's cooperative loop. It wakes on svc.Interval (if
// nonzero), on svc.Signal (if non-nil), or on group shutdown, and
// invokes svc.Run at most once per wake - never concurrently with
// itself, and never blocking the caller.
func (sg *ServiceGroup) Start(svc Service) {
	sg.g.Go(func() error {
		return sg.loop(svc)
	})
}

func (sg *ServiceGroup) loop(svc Service) error {
	var tickC <-chan time.Time
	if svc.Interval > 0 {
		ticker := time.NewTicker(svc.Interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-sg.ctx.Done():
			return nil
		case <-tickC:
		case <-svc.Signal:
		}

		if err := svc.Run(sg.ctx); err != nil {
			return fmt.Errorf("cache: service %q failed: %w", svc.Name, err)
		}
	}
}

// Stop requests every running service to exit at its next wake check.
func (sg *ServiceGroup) Stop() {
	sg.cancel()
}

// Wait blocks until every started service has returned, then returns the
// first non-nil error (if any).
func (sg *ServiceGroup) Wait() error {
	return sg.g.Wait()
}
