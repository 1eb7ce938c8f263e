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
	"context"
	"log/slog"
	"time"
)

// StageFunc does one stage's work against a build in progress. Returning
// Skip() is not an error: it tells the Pipeline this stage had
// nothing to do (e.g. LspTypes skipped at TierBase), and later stages
// must cope with its outputs being absent.
type StageFunc func(ctx context.Context) error

// errSkipped is the sentinel (returned via Skip) a StageFunc returns to
// mean "legally did nothing", distinct from a real failure.
var errSkipped = skipError{}

type skipError struct{}

func (skipError) Error() string { return "stage skipped" }

// ErrSkipped reports whether to treat a stage as having been
// deliberately skipped rather than failed.
func ErrSkipped(err error) bool {
	_, ok := err.(skipError)
	return ok
}

// Skip is the error value a StageFunc returns to report a legal skip.
func Skip() error { return errSkipped }

// Hooks are invoked around each stage's execution, for logging, metrics,
// or test instrumentation. Any of them may be nil.
type Hooks struct {
	OnStart    func(stage StageName)
	OnComplete func(stage StageName, d time.Duration)
	OnError    func(stage StageName, err error)
	OnSkip     func(stage StageName)
}

// Pipeline runs DefaultStageOrder's stages in sequence, recording
// per-stage metrics and invoking Hooks around each one.
type Pipeline struct {
	Logger   *slog.Logger
	Hooks    Hooks
	FailFast bool

	stages map[StageName]StageFunc
}

// NewPipeline returns a Pipeline with no stages registered; call
// Register for each StageName it should run.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, stages: make(map[StageName]StageFunc)}
}

// Register binds fn to run for stage. Calling Register again for the
// same stage replaces the prior function.
func (p *Pipeline) Register(stage StageName, fn StageFunc) {
	p.stages[stage] = fn
}

// StageResult records one stage's outcome for the caller's summary.
type StageResult struct {
	Stage    StageName
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Run executes every stage in DefaultStageOrder for which a StageFunc
// was registered, in order. A stage with no registered function is
// treated as skipped (legal: e.g. LspTypes has nothing to do at
// TierBase). When FailFast is set, the first stage error stops the run
// and later stages do not execute; otherwise Run continues past errors
// so a caller can see every stage's outcome in one pass.
func (p *Pipeline) Run(ctx context.Context) []StageResult {
	results := make([]StageResult, 0, len(DefaultStageOrder))

	for _, stage := range DefaultStageOrder {
		fn, ok := p.stages[stage]
		if !ok {
			results = append(results, StageResult{Stage: stage, Skipped: true})
			if p.Hooks.OnSkip != nil {
				p.Hooks.OnSkip(stage)
			}
			continue
		}

		if p.Hooks.OnStart != nil {
			p.Hooks.OnStart(stage)
		}
		metrics.stageStarts.WithLabelValues(string(stage)).Inc()

		start := time.Now()
		err := fn(ctx)
		d := time.Since(start)

		switch {
		case err == nil:
			metrics.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
			results = append(results, StageResult{Stage: stage, Duration: d})
			if p.Hooks.OnComplete != nil {
				p.Hooks.OnComplete(stage, d)
			}
		case ErrSkipped(err):
			results = append(results, StageResult{Stage: stage, Skipped: true, Duration: d})
			if p.Hooks.OnSkip != nil {
				p.Hooks.OnSkip(stage)
			}
		default:
			metrics.stageErrors.WithLabelValues(string(stage)).Inc()
			results = append(results, StageResult{Stage: stage, Err: err, Duration: d})
			p.Logger.Error("incremental.stage.error", "stage", stage, "err", err)
			if p.Hooks.OnError != nil {
				p.Hooks.OnError(stage, err)
			}
			if p.FailFast {
				return results
			}
		}
	}

	return results
}
