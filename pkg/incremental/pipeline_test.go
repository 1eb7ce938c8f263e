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

package incremental

import (
	"context"
	"errors"
	"testing"
)

func TestPipelineUnregisteredStageIsSkipped(t *testing.T) {
	p := NewPipeline(nil)
	p.Register(StageStructural, func(ctx context.Context) error { return nil })

	results := p.Run(context.Background())

	for _, r := range results {
		if r.Stage == StageLspTypes && !r.Skipped {
			t.Fatalf("unregistered stage %s should be reported Skipped", r.Stage)
		}
	}
}

func TestPipelineStageFuncSkip(t *testing.T) {
	p := NewPipeline(nil)
	p.Register(StageCache, func(ctx context.Context) error { return Skip() })

	var skipped bool
	p.Hooks.OnSkip = func(stage StageName) {
		if stage == StageCache {
			skipped = true
		}
	}

	results := p.Run(context.Background())
	if !skipped {
		t.Fatal("OnSkip hook was not invoked for a StageFunc that returned Skip()")
	}
	for _, r := range results {
		if r.Stage == StageCache && (!r.Skipped || r.Err != nil) {
			t.Fatalf("StageCache: got %+v, want Skipped with no error", r)
		}
	}
}

func TestPipelineFailFastStopsSubsequentStages(t *testing.T) {
	p := NewPipeline(nil)
	p.FailFast = true

	var ran []StageName
	p.Register(StageCache, func(ctx context.Context) error {
		ran = append(ran, StageCache)
		return errors.New("boom")
	})
	p.Register(StageStructural, func(ctx context.Context) error {
		ran = append(ran, StageStructural)
		return nil
	})

	results := p.Run(context.Background())

	if len(ran) != 1 {
		t.Fatalf("FailFast should stop after the first error, ran: %v", ran)
	}
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected exactly one failed result, got %+v", results)
	}
}

func TestPipelineWithoutFailFastRunsAllStages(t *testing.T) {
	p := NewPipeline(nil)
	p.FailFast = false

	var ran []StageName
	p.Register(StageCache, func(ctx context.Context) error {
		ran = append(ran, StageCache)
		return errors.New("boom")
	})
	p.Register(StageStructural, func(ctx context.Context) error {
		ran = append(ran, StageStructural)
		return nil
	})

	p.Run(context.Background())

	if len(ran) != 2 {
		t.Fatalf("without FailFast every registered stage should run, ran: %v", ran)
	}
}
