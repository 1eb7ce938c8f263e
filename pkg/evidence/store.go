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

// Package evidence's Store is a sqlite-backed implementation of the
// EvidenceRepository port: save, get_by_id, list_by_snapshot,
// delete_by_snapshot, delete_expired, exists. It keeps its schema in a
// DDL string and guards the connection with a mutex, using database/sql
// over github.com/mattn/go-sqlite3 since evidence is relational (one row per
// record, indexed by snapshot/kind/expiry) rather than graph-shaped.
package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	cieerrors "github.com/opencie/cie/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	evidence_id        TEXT PRIMARY KEY,
	kind               TEXT NOT NULL,
	snapshot_id        TEXT NOT NULL,
	node_ids           TEXT NOT NULL,
	edge_ids           TEXT NOT NULL,
	constraint_summary TEXT NOT NULL DEFAULT '',
	rule_id            TEXT NOT NULL DEFAULT '',
	rule_hash          TEXT NOT NULL DEFAULT '',
	plan_hash          TEXT NOT NULL DEFAULT '',
	created_at         INTEGER NOT NULL,
	expires_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evidence_snapshot_kind ON evidence (snapshot_id, kind);
CREATE INDEX IF NOT EXISTS idx_evidence_expires_at ON evidence (expires_at);
`

// Store is a sqlite-backed EvidenceRepository. A process opens one Store
// per on-disk evidence database; concurrent goroutines share it safely.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	now    func() time.Time
	closed bool
}

// Open creates or opens the sqlite evidence database at path and ensures
// its schema exists.
func Open(path string) (*Store, error) {
	return OpenWithClock(path, time.Now)
}

// OpenWithClock is Open with an injectable clock, for deterministic TTL
// tests.
func OpenWithClock(path string, now func() time.Time) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, cieerrors.NewDatabaseError("failed to open evidence store", path, "check that the parent directory exists and is writable", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, cieerrors.NewDatabaseError("failed to initialize evidence schema", path, "delete the file and retry if it is corrupt", err)
	}
	return &Store{db: db, now: now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// NewID returns a fresh, random evidence id.
func NewID() string {
	return uuid.NewString()
}

// Save persists ev. ev.CreatedAt and ev.ExpiresAt default to now and
// now+DefaultTTL respectively when zero. Saving a duplicate evidence_id is
// a hard EvidenceConflict error: the store is append-only within a
// snapshot.
func (s *Store) Save(ctx context.Context, ev Evidence) error {
	if ev.EvidenceID == "" {
		return cieerrors.NewValidationError("evidence_id must not be empty", "Save", "call evidence.NewID() to generate one", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.ExpiresAt.IsZero() {
		ev.ExpiresAt = ev.CreatedAt.Add(DefaultTTL)
	}

	nodeIDs, err := json.Marshal(ev.GraphRefs.NodeIDs)
	if err != nil {
		return fmt.Errorf("evidence: marshal node_ids: %w", err)
	}
	edgeIDs, err := json.Marshal(ev.GraphRefs.EdgeIDs)
	if err != nil {
		return fmt.Errorf("evidence: marshal edge_ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evidence (
			evidence_id, kind, snapshot_id, node_ids, edge_ids,
			constraint_summary, rule_id, rule_hash, plan_hash,
			created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EvidenceID, string(ev.Kind), ev.SnapshotID, string(nodeIDs), string(edgeIDs),
		ev.ConstraintSummary, ev.RuleID, ev.RuleHash, ev.PlanHash,
		ev.CreatedAt.UnixNano(), ev.ExpiresAt.UnixNano(),
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return cieerrors.NewEvidenceConflictError(
				fmt.Sprintf("evidence_id %q already exists", ev.EvidenceID),
				"Save",
				"generate a fresh evidence id with evidence.NewID()",
			)
		}
		return cieerrors.NewDatabaseError("failed to save evidence", ev.EvidenceID, "", err)
	}
	return nil
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves the evidence record for id. An expired record (as of
// the store's clock) behaves as if it does not exist: (Evidence{}, false,
// nil).
func (s *Store) GetByID(ctx context.Context, id string) (Evidence, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT evidence_id, kind, snapshot_id, node_ids, edge_ids,
		       constraint_summary, rule_id, rule_hash, plan_hash,
		       created_at, expires_at
		FROM evidence WHERE evidence_id = ?`, id)

	ev, err := scanEvidence(row)
	if err == sql.ErrNoRows {
		return Evidence{}, false, nil
	}
	if err != nil {
		return Evidence{}, false, cieerrors.NewDatabaseError("failed to read evidence", id, "", err)
	}
	if ev.IsExpired(s.now()) {
		return Evidence{}, false, nil
	}
	return ev, true, nil
}

// Exists reports whether id is present and unexpired.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.GetByID(ctx, id)
	return ok, err
}

// ListBySnapshot returns every unexpired evidence record owned by
// snapshotID, optionally filtered to one kind, ordered by created_at.
func (s *Store) ListBySnapshot(ctx context.Context, snapshotID string, kind *Kind) ([]Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT evidence_id, kind, snapshot_id, node_ids, edge_ids,
		       constraint_summary, rule_id, rule_hash, plan_hash,
		       created_at, expires_at
		FROM evidence WHERE snapshot_id = ? AND expires_at > ?`
	args := []any{snapshotID, s.now().UnixNano()}
	if kind != nil {
		query += " AND kind = ?"
		args = append(args, string(*kind))
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cieerrors.NewDatabaseError("failed to list evidence", snapshotID, "", err)
	}
	defer rows.Close()

	var out []Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("evidence: scan row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteBySnapshot removes every evidence record owned by snapshotID. The
// incremental driver calls this when a snapshot is torn down, so no
// evidence outlives the IR it references.
func (s *Store) DeleteBySnapshot(ctx context.Context, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return cieerrors.NewDatabaseError("failed to delete evidence for snapshot", snapshotID, "", err)
	}
	return nil
}

// DeleteExpired culls every record whose TTL has elapsed and returns the
// number removed.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, cieerrors.NewDatabaseError("failed to delete expired evidence", "", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evidence: rows affected: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvidence(r rowScanner) (Evidence, error) {
	var (
		ev                            Evidence
		kind                          string
		nodeIDs, edgeIDs              string
		createdAtNs, expiresAtNs      int64
	)
	if err := r.Scan(
		&ev.EvidenceID, &kind, &ev.SnapshotID, &nodeIDs, &edgeIDs,
		&ev.ConstraintSummary, &ev.RuleID, &ev.RuleHash, &ev.PlanHash,
		&createdAtNs, &expiresAtNs,
	); err != nil {
		return Evidence{}, err
	}
	ev.Kind = Kind(kind)
	ev.CreatedAt = time.Unix(0, createdAtNs).UTC()
	ev.ExpiresAt = time.Unix(0, expiresAtNs).UTC()
	if err := json.Unmarshal([]byte(nodeIDs), &ev.GraphRefs.NodeIDs); err != nil {
		return Evidence{}, fmt.Errorf("evidence: unmarshal node_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(edgeIDs), &ev.GraphRefs.EdgeIDs); err != nil {
		return Evidence{}, fmt.Errorf("evidence: unmarshal edge_ids: %w", err)
	}
	return ev, nil
}
