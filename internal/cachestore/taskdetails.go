package cachestore

// HashedTask is one task's resolved identity: the fingerprint it was
// scheduled under, and the target it names, recorded so later queries
// (flaky-task detection, estimated timings) can join back from a hash to
// its project/target/configuration.
type HashedTask struct {
	Hash          string
	Project       string
	Target        string
	Configuration string
}

// RecordTaskDetails upserts each task's hash-to-target mapping.
func (s *Store) RecordTaskDetails(tasks []HashedTask) error {
	for _, t := range tasks {
		var configuration any
		if t.Configuration != "" {
			configuration = t.Configuration
		}

		if _, err := s.exec(
			`INSERT OR REPLACE INTO task_details (hash, project, target, configuration) VALUES (?, ?, ?, ?)`,
			t.Hash, t.Project, t.Target, configuration,
		); err != nil {
			return err
		}
	}

	return nil
}
