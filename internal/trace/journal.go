package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Entry is one published state as stored in the journal.
type Entry struct {
	ReactorID string          `json:"reactor"`
	Name      string          `json:"name,omitempty"`
	Seq       int64           `json:"seq"`
	Cause     string          `json:"cause"`
	Status    string          `json:"status"`
	State     json.RawMessage `json:"state"`
	StateHash string          `json:"state_hash"`
}

// Run is the outcome of one scenario run.
type Run struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// WriteEntries inserts entries in a single transaction.
// Entries already present for the same (reactor_id, seq) are ignored.
func (s *Store) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write entries: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transitions
		(reactor_id, seq, name, cause, status, state, state_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reactor_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write entries: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ReactorID,
			e.Seq,
			e.Name,
			e.Cause,
			e.Status,
			string(e.State),
			e.StateHash,
		); err != nil {
			return fmt.Errorf("write entries: reactor %s seq %d: %w", e.ReactorID, e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write entries: commit: %w", err)
	}
	return nil
}

// Timeline returns the entries of one reactor ordered by seq.
// Returns an empty slice (not nil) if the reactor has no entries.
func (s *Store) Timeline(ctx context.Context, reactorID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reactor_id, seq, name, cause, status, state, state_hash
		FROM transitions
		WHERE reactor_id = ?
		ORDER BY seq ASC
	`, reactorID)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Entries returns every entry ordered by seq, then reactor_id.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reactor_id, seq, name, cause, status, state, state_hash
		FROM transitions
		ORDER BY seq ASC, reactor_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Reactors returns the IDs of journaled reactors in order of first appearance.
func (s *Store) Reactors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reactor_id
		FROM transitions
		GROUP BY reactor_id
		ORDER BY MIN(seq) ASC, reactor_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reactors: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reactor: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactors: %w", err)
	}
	return ids, nil
}

// WriteRun records a scenario outcome. A second write for the same ID replaces it.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	passed := 0
	if run.Passed {
		passed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, passed, error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scenario = excluded.scenario,
			passed = excluded.passed,
			error = excluded.error
	`, run.ID, run.Scenario, passed, run.Error)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// ReadRun returns the run with the given ID. The bool is false if none exists.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, bool, error) {
	var run Run
	var passed int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, passed, error FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Scenario, &passed, &run.Error)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("read run: %w", err)
	}
	run.Passed = passed == 1
	return run, true, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var state string
		if err := rows.Scan(&e.ReactorID, &e.Seq, &e.Name, &e.Cause, &e.Status, &state, &e.StateHash); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.State = json.RawMessage(state)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
