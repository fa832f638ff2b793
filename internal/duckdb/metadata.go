package duckdb

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run describes one completed pipeline run.
type Run struct {
	StartedAt    time.Time
	Limited      bool
	Config       string
	EvidenceRows int
	// Inputs maps an input role ("vcf", "enhancers", ...) to its fingerprint.
	Inputs map[string]FileFingerprint
}

// RecordRun stores run metadata and the fingerprint of every input.
func (s *Store) RecordRun(run Run) error {
	// DuckDB timestamps carry microseconds.
	run.StartedAt = run.StartedAt.UTC().Truncate(time.Microsecond)
	if _, err := s.db.Exec("INSERT INTO runs VALUES (?, ?, ?, ?)",
		run.StartedAt, run.Limited, run.Config, run.EvidenceRows); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if len(run.Inputs) == 0 {
		return nil
	}

	roles := make([]string, 0, len(run.Inputs))
	for role := range run.Inputs {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	return s.appendRows("run_inputs", len(roles), func(i int) []driver.Value {
		fp := run.Inputs[roles[i]]
		return []driver.Value{run.StartedAt, roles[i], fp.Path, fp.Size, fp.ModTime}
	})
}

// LastRun returns the most recent run and its inputs. ok is false when no
// run has been recorded.
func (s *Store) LastRun() (run Run, ok bool, err error) {
	row := s.db.QueryRow("SELECT started_at, limited, config, evidence_rows FROM runs ORDER BY started_at DESC LIMIT 1")
	if err := row.Scan(&run.StartedAt, &run.Limited, &run.Config, &run.EvidenceRows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("query last run: %w", err)
	}

	rows, err := s.db.Query("SELECT role, path, size, mod_time FROM run_inputs WHERE started_at = ? ORDER BY role", run.StartedAt)
	if err != nil {
		return Run{}, false, fmt.Errorf("query run inputs: %w", err)
	}
	defer rows.Close()

	run.Inputs = make(map[string]FileFingerprint)
	for rows.Next() {
		var role string
		var fp FileFingerprint
		if err := rows.Scan(&role, &fp.Path, &fp.Size, &fp.ModTime); err != nil {
			return Run{}, false, fmt.Errorf("scan run input: %w", err)
		}
		run.Inputs[role] = fp
	}
	return run, true, rows.Err()
}
