package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/othala/internal/apperr"
)

// WorkRow represents a row in the works table. RegisteredAt is assigned by
// the store when the row is inserted.
type WorkRow struct {
	WorkID       string
	InternalID   uint64
	ProvenanceID string
	Owner        string
	MetadataPtr  string
	RegisteredAt uint64
}

// EdgeRow represents a row in the derivative_edges table. CreatedAt is
// assigned by the store when the row is inserted.
type EdgeRow struct {
	ParentWorkID       string
	ChildWorkID        string
	ParentProvenanceID string
	ChildProvenanceID  string
	Category           string
	CreatedAt          uint64
}

// Payout describes a funded reward transfer to apply alongside an insert.
// A payout whose source balance cannot cover Amount is skipped, not failed:
// funding is advisory, never a dependency of registration correctness.
type Payout struct {
	From   string
	To     string
	Amount uint64
}

// CreateWork inserts a work and applies the optional payout in one
// transaction. It returns the assigned logical timestamp and the amount
// actually paid (0 when the payout was skipped or nil).
func (db *DB) CreateWork(w WorkRow, payout *Payout) (uint64, uint64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	at, err := insertWork(tx, &w)
	if err != nil {
		return 0, 0, err
	}

	var paid uint64
	if payout != nil {
		paid, err = applyPayout(tx, *payout)
		if err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("store: commit: %w", err)
	}
	return at, paid, nil
}

// CreateDerivative inserts the child work, the derivative edge, and the
// payouts (applied sequentially, each subject to its own balance check) in
// a single transaction. The edge's created_at equals the child's
// registered_at: both come from the same clock tick.
func (db *DB) CreateDerivative(child WorkRow, edge EdgeRow, payouts []Payout) (uint64, []uint64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var parentExists bool
	if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM works WHERE work_id = ?)`, edge.ParentWorkID).Scan(&parentExists); err != nil {
		return 0, nil, fmt.Errorf("store: parent lookup: %w", err)
	}
	if !parentExists {
		return 0, nil, apperr.ErrParentNotFound
	}

	var edgeExists bool
	if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM derivative_edges WHERE child_work_id = ?)`, edge.ChildWorkID).Scan(&edgeExists); err != nil {
		return 0, nil, fmt.Errorf("store: edge lookup: %w", err)
	}
	if edgeExists {
		return 0, nil, apperr.ErrDuplicateDerivative
	}

	at, err := insertWork(tx, &child)
	if err != nil {
		return 0, nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO derivative_edges (child_work_id, parent_work_id, parent_provenance_id, child_provenance_id, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, edge.ChildWorkID, edge.ParentWorkID, edge.ParentProvenanceID, edge.ChildProvenanceID, edge.Category, at)
	if err != nil {
		return 0, nil, fmt.Errorf("store: insert edge: %w", err)
	}

	paid := make([]uint64, len(payouts))
	for i, p := range payouts {
		paid[i], err = applyPayout(tx, p)
		if err != nil {
			return 0, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("store: commit: %w", err)
	}
	return at, paid, nil
}

// insertWork assigns the next logical timestamp and inserts the row,
// rejecting duplicates. The row's RegisteredAt is updated in place.
func insertWork(tx *sql.Tx, w *WorkRow) (uint64, error) {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM works WHERE work_id = ?)`, w.WorkID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("store: work lookup: %w", err)
	}
	if exists {
		return 0, apperr.ErrDuplicateWork
	}

	at, err := tick(tx)
	if err != nil {
		return 0, err
	}
	w.RegisteredAt = at

	_, err = tx.Exec(`
		INSERT INTO works (work_id, internal_id, provenance_id, owner, metadata_ptr, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.WorkID, w.InternalID, w.ProvenanceID, w.Owner, w.MetadataPtr, at)
	if err != nil {
		return 0, fmt.Errorf("store: insert work: %w", err)
	}
	return at, nil
}

// GetWork returns the work row for workID, or apperr.ErrNotFound.
func (db *DB) GetWork(workID string) (*WorkRow, error) {
	var w WorkRow
	err := db.conn.QueryRow(`
		SELECT work_id, internal_id, provenance_id, owner, metadata_ptr, registered_at
		FROM works WHERE work_id = ?
	`, workID).Scan(&w.WorkID, &w.InternalID, &w.ProvenanceID, &w.Owner, &w.MetadataPtr, &w.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get work: %w", err)
	}
	return &w, nil
}

// WorkExists reports whether a work row exists for workID.
func (db *DB) WorkExists(workID string) (bool, error) {
	var exists bool
	if err := db.conn.QueryRow(`SELECT EXISTS (SELECT 1 FROM works WHERE work_id = ?)`, workID).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: work exists: %w", err)
	}
	return exists, nil
}

// GetEdge returns the derivative edge owned by childWorkID, or
// apperr.ErrNotFound.
func (db *DB) GetEdge(childWorkID string) (*EdgeRow, error) {
	var e EdgeRow
	err := db.conn.QueryRow(`
		SELECT child_work_id, parent_work_id, parent_provenance_id, child_provenance_id, category, created_at
		FROM derivative_edges WHERE child_work_id = ?
	`, childWorkID).Scan(&e.ChildWorkID, &e.ParentWorkID, &e.ParentProvenanceID, &e.ChildProvenanceID, &e.Category, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get edge: %w", err)
	}
	return &e, nil
}

// EdgeExists reports whether childWorkID already owns a derivative edge.
func (db *DB) EdgeExists(childWorkID string) (bool, error) {
	var exists bool
	if err := db.conn.QueryRow(`SELECT EXISTS (SELECT 1 FROM derivative_edges WHERE child_work_id = ?)`, childWorkID).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: edge exists: %w", err)
	}
	return exists, nil
}

// Children returns the child work ids of parentWorkID in insertion order.
// The result is empty (never nil) when the parent has no children.
func (db *DB) Children(parentWorkID string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT child_work_id FROM derivative_edges WHERE parent_work_id = ? ORDER BY rowid
	`, parentWorkID)
	if err != nil {
		return nil, fmt.Errorf("store: children: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MaxInternalID returns the highest internal id assigned so far, or 0 when
// no works exist. Used to seed the local minter across restarts.
func (db *DB) MaxInternalID() (uint64, error) {
	var max uint64
	if err := db.conn.QueryRow(`SELECT COALESCE(MAX(internal_id), 0) FROM works`).Scan(&max); err != nil {
		return 0, fmt.Errorf("store: max internal id: %w", err)
	}
	return max, nil
}
