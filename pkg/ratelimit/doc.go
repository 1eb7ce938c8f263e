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

// Package ratelimit bounds concurrent calls to external services (the
// embedding/LLM adapters behind pkg/llm) with a three-dimensional token
// bucket: a global bucket, a bucket per tenant, and a bucket per model.
// Acquire blocks until tokens are available or the caller's context is
// done; TryAcquire is the non-blocking variant used for fast-fail paths.
package ratelimit
