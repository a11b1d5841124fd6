package cachestore

import (
	"fmt"
	"strings"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
	"github.com/nrwl-labs/nxcore/internal/projectgraph"
)

// TaskRun is one completed execution of a task, keyed by the fingerprint it
// ran under so repeated runs of the same hash accumulate history.
type TaskRun struct {
	Hash   string
	Status string
	Code   int
	Start  int64
	End    int64
}

// RecordTaskRuns appends one history row per run.
func (s *Store) RecordTaskRuns(runs []TaskRun) error {
	for _, r := range runs {
		if _, err := s.exec(
			`INSERT INTO task_history (hash, status, code, start, end) VALUES (?, ?, ?, ?, ?)`,
			r.Hash, r.Status, r.Code, r.Start, r.End,
		); err != nil {
			return err
		}
	}

	return nil
}

// GetFlakyTasks returns the subset of hashes whose recorded runs disagree
// on exit code - the same fingerprint produced more than one distinct
// result, so its cached output can't be trusted as reproducible.
func (s *Store) GetFlakyTasks(hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(hashes)

	query := fmt.Sprintf(`
		SELECT hash FROM task_history
		WHERE hash IN (%s)
		GROUP BY hash
		HAVING COUNT(DISTINCT code) > 1
	`, placeholders)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &nxerrors.IOError{Op: "query flaky tasks", Err: err}
	}
	defer rows.Close()

	var flaky []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, &nxerrors.IOError{Op: "scan flaky task row", Err: err}
		}
		flaky = append(flaky, hash)
	}

	return flaky, rows.Err()
}

// GetEstimatedTaskTimings returns, for each target with recorded history,
// the average wall-clock duration (end-start) across all its runs, keyed
// by "project:target[:configuration]" regardless of which hash produced
// them - a rough per-target estimate used to schedule the slowest tasks
// first.
func (s *Store) GetEstimatedTaskTimings(targets []projectgraph.TaskTarget) (map[string]float64, error) {
	if len(targets) == 0 {
		return map[string]float64{}, nil
	}

	keys := make([]string, len(targets))
	for i, t := range targets {
		keys[i] = targetKey(t)
	}

	placeholders, args := inClause(keys)

	query := fmt.Sprintf(`
		SELECT
			project || ':' || target ||
				CASE WHEN COALESCE(configuration, '') <> '' THEN ':' || configuration ELSE '' END AS target_string,
			AVG(end - start) AS duration
		FROM task_history
		JOIN task_details ON task_history.hash = task_details.hash
		WHERE (project || ':' || target ||
				CASE WHEN COALESCE(configuration, '') <> '' THEN ':' || configuration ELSE '' END) IN (%s)
		GROUP BY target_string
	`, placeholders)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &nxerrors.IOError{Op: "query estimated task timings", Err: err}
	}
	defer rows.Close()

	timings := make(map[string]float64, len(targets))
	for rows.Next() {
		var targetString string
		var duration float64
		if err := rows.Scan(&targetString, &duration); err != nil {
			return nil, &nxerrors.IOError{Op: "scan estimated timing row", Err: err}
		}
		timings[targetString] = duration
	}

	return timings, rows.Err()
}

func targetKey(t projectgraph.TaskTarget) string {
	if t.Configuration != "" {
		return fmt.Sprintf("%s:%s:%s", t.Project, t.Target, t.Configuration)
	}
	return fmt.Sprintf("%s:%s", t.Project, t.Target)
}

func inClause(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ", "), args
}
