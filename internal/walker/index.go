package walker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nrwl-labs/nxcore/internal/contenthash"
)

// Record is one file index entry: the content hash last computed for a
// path, and the modification time it was computed at.
type Record struct {
	Hash    string `json:"hash"`
	ModTime int64  `json:"modTime"`
}

// Index is the persisted map of normalized path to its last known content
// hash and modification time (§4.1). It reconciles against a fresh
// WalkStat pass using mtime to skip re-hashing unchanged files.
type Index map[string]Record

// Reconcile merges stats (a fresh WalkStat result) against the previous
// index: a path whose mtime is unchanged reuses its recorded hash; every
// other path is read and rehashed. Paths present in the previous index but
// absent from stats are dropped. A read failure during reconciliation
// skips that path entirely rather than failing the whole operation.
func Reconcile(stats []Stat, previous Index) Index {
	next := make(Index, len(stats))

	for _, s := range stats {
		if prior, ok := previous[s.Path]; ok && prior.ModTime == s.ModTime {
			next[s.Path] = prior
			continue
		}

		content, err := os.ReadFile(s.AbsPath)
		if err != nil {
			continue
		}

		next[s.Path] = Record{Hash: contenthash.Hash(content), ModTime: s.ModTime}
	}

	return next
}

// WalkAndReconcile walks workspaceRoot and reconciles the result against
// previous in one call, the common entry point for incremental runs.
func WalkAndReconcile(workspaceRoot string, opts Options, previous Index) (Index, error) {
	stats, err := WalkStat(workspaceRoot, opts)
	if err != nil {
		return nil, err
	}

	return Reconcile(stats, previous), nil
}

const indexFilename = "file-index.json"

// LoadIndex restores a previously persisted index from dir. A missing file
// is not an error: it returns an empty index, the natural starting state
// for a workspace never indexed before.
func LoadIndex(dir string) (Index, error) {
	path := filepath.Join(dir, indexFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Index{}, nil
		}
		return nil, fmt.Errorf("reading file index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding file index: %w", err)
	}

	return idx, nil
}

// SaveIndex persists idx to dir, writing to a temporary file first and
// renaming it into place so a reader never observes a partially written
// index.
func SaveIndex(dir string, idx Index) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encoding file index: %w", err)
	}

	final := filepath.Join(dir, indexFilename)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing file index: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("committing file index: %w", err)
	}

	return nil
}
