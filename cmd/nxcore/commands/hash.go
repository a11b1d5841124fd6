// Package commands implements CLI command handlers for nxcore.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nrwl-labs/nxcore/internal/config"
	"github.com/nrwl-labs/nxcore/internal/projectgraph"
	"github.com/nrwl-labs/nxcore/internal/taskhasher"
	"github.com/nrwl-labs/nxcore/internal/taskrunner"
)

// graphDocument is the JSON shape a caller feeds the hash command: a task
// graph's project/task data plus the file index and environment the
// hasher needs to resolve it, serialized the way a JS caller would marshal
// its in-memory graph across the boundary into this core.
type graphDocument struct {
	Task   projectgraph.Task         `json:"task"`
	Graph  projectgraph.ProjectGraph `json:"graph"`
	NxJSON projectgraph.NxJson       `json:"nxJson"`
	Files  []taskhasher.FileEntry    `json:"files"`
	Env    map[string]string         `json:"env"`
}

func loadGraphDocument(path string) (graphDocument, error) {
	var doc graphDocument

	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read graph document: %w", err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse graph document: %w", err)
	}

	return doc, nil
}

// NewHashCommand returns the "hash" command: it prints the fingerprint a
// task would run under, given a graph document.
func NewHashCommand(configPath *string) *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute a task's fingerprint from a task graph document",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			doc, err := loadGraphDocument(graphPath)
			if err != nil {
				return err
			}

			fingerprint, err := taskrunner.HashTask(doc.Task, doc.Graph, doc.NxJSON, taskrunner.ResolveInputs{
				WorkspaceRoot: cfg.WorkspaceRoot,
				Files:         doc.Files,
				Env:           doc.Env,
				Logger:        loggerFromConfig(cfg),
			})
			if err != nil {
				return fmt.Errorf("hash task: %w", err)
			}

			fmt.Println(fingerprint)
			return nil
		},
	}

	cmd.Flags().StringVar(&graphPath, "graph", "", "path to a JSON graph document")
	_ = cmd.MarkFlagRequired("graph")

	return cmd
}
