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

package incremental

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIncremental holds Prometheus metrics for the incremental
// driver, labeled by stage name so a single set of collectors covers
// every StageName.
type metricsIncremental struct {
	once sync.Once

	stageStarts   *prometheus.CounterVec
	stageErrors   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	filesChanged    *prometheus.CounterVec // labeled by ChangeKind
	affectedSetSize prometheus.Histogram
	tierSelected    *prometheus.CounterVec // labeled by Tier
}

var metrics metricsIncremental

func (m *metricsIncremental) init() {
	m.once.Do(func() {
		m.stageStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_incr_stage_starts_total", Help: "Stage executions started",
		}, []string{"stage"})
		m.stageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_incr_stage_errors_total", Help: "Stage executions that returned a non-skip error",
		}, []string{"stage"})
		buckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}
		m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cie_incr_stage_duration_seconds", Help: "Stage execution duration", Buckets: buckets,
		}, []string{"stage"})

		m.filesChanged = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_incr_files_changed_total", Help: "Files classified by change kind",
		}, []string{"kind"})
		m.affectedSetSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cie_incr_affected_set_size",
			Help:    "Size of the computed affected set per build",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		})
		m.tierSelected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_incr_tier_selected_total", Help: "Builds run at each tier",
		}, []string{"tier"})

		prometheus.MustRegister(
			m.stageStarts, m.stageErrors, m.stageDuration,
			m.filesChanged, m.affectedSetSize, m.tierSelected,
		)
	})
}

func init() {
	metrics.init()
}
