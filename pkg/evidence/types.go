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

package evidence

import "time"

// Kind is the closed set of result shapes an Evidence record can back.
type Kind string

const (
	KindTaintFlow      Kind = "TaintFlow"
	KindSlice          Kind = "Slice"
	KindDataflow       Kind = "Dataflow"
	KindImpact         Kind = "Impact"
	KindTypeInference  Kind = "TypeInference"
	KindFixVerification Kind = "FixVerification"
	KindCallChain      Kind = "CallChain"
	KindDataDependency Kind = "DataDependency"
)

// DefaultTTL is the evidence record lifetime used when a caller does not
// specify expires_at explicitly.
const DefaultTTL = 30 * 24 * time.Hour

// GraphRefs is the tuple of node and edge ids a result was derived from;
// every id must resolve in the owning snapshot's IR document.
type GraphRefs struct {
	NodeIDs []string `json:"node_ids"`
	EdgeIDs []string `json:"edge_ids"`
}

// Evidence is an immutable, retrievable proof record for one high-level
// result (a TaintPath, a slice, an impact set, ...).
type Evidence struct {
	EvidenceID        string    `json:"evidence_id"`
	Kind              Kind      `json:"kind"`
	SnapshotID        string    `json:"snapshot_id"`
	GraphRefs         GraphRefs `json:"graph_refs"`
	ConstraintSummary string    `json:"constraint_summary,omitempty"`
	RuleID            string    `json:"rule_id,omitempty"`
	RuleHash          string    `json:"rule_hash,omitempty"`
	PlanHash          string    `json:"plan_hash,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// IsExpired reports whether e's TTL has elapsed as of now.
func (e Evidence) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
