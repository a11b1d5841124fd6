package cachestore

import (
	"database/sql"
	"errors"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

// RecordOutputFingerprint stores the fingerprint computed over a task's
// declared outputs after it ran, keyed by the task's own hash.
func (s *Store) RecordOutputFingerprint(taskHash, fingerprint string) error {
	_, err := s.exec(
		`INSERT OR REPLACE INTO output_fingerprints (task_hash, fingerprint) VALUES (?, ?)`,
		taskHash, fingerprint,
	)
	return err
}

// GetOutputFingerprint returns the fingerprint last recorded for taskHash,
// and false if none has been recorded.
func (s *Store) GetOutputFingerprint(taskHash string) (string, bool, error) {
	var fingerprint string
	err := s.db.QueryRow(`SELECT fingerprint FROM output_fingerprints WHERE task_hash = ?`, taskHash).Scan(&fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.cacheMisses.Add(1)
			return "", false, nil
		}
		return "", false, &nxerrors.IOError{Op: "read output fingerprint", Err: err}
	}

	s.cacheHits.Add(1)

	return fingerprint, true, nil
}
