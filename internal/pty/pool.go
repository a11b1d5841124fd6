package pty

import (
	"fmt"
	"log/slog"
	"sync"
)

// Pool tracks the live Instance for every running task, so the terminal
// UI can look one up by task id to render its pane or route keystrokes to
// it without the caller threading the *Instance through on its own.
type Pool struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	logger    *slog.Logger
}

// NewPool returns an empty pool, logging through logger. A nil logger
// defaults to slog.Default().
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{instances: make(map[string]*Instance), logger: logger}
}

// Start spawns a new Instance for taskID and registers it in the pool.
func (p *Pool) Start(taskID, command, dir string, env map[string]string, size Size) (*Instance, error) {
	inst, err := Start(taskID, command, dir, env, size)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.instances[taskID] = inst
	p.mu.Unlock()

	return inst, nil
}

// Get returns the Instance for taskID, if one is registered.
func (p *Pool) Get(taskID string) (*Instance, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	inst, ok := p.instances[taskID]
	return inst, ok
}

// Remove drops taskID from the pool without touching the Instance itself -
// callers should Kill/Close it first if it's still running.
func (p *Pool) Remove(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.instances, taskID)
}

// ResizeAll applies size to every live instance in the pool, e.g. when the
// real terminal the TUI runs in is resized.
func (p *Pool) ResizeAll(size Size) {
	p.mu.RLock()
	instances := make([]*Instance, 0, len(p.instances))
	for _, inst := range p.instances {
		instances = append(instances, inst)
	}
	p.mu.RUnlock()

	for _, inst := range instances {
		if err := inst.Resize(size); err != nil {
			p.logger.Debug("resize failed for pty instance", "error", err)
		}
	}
}

// CloseAll kills and closes every registered instance, returning the first
// Close error (if any) after attempting all of them; a failed Kill is
// logged at debug and not returned.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	instances := make(map[string]*Instance, len(p.instances))
	for id, inst := range p.instances {
		instances[id] = inst
	}
	p.instances = make(map[string]*Instance)
	p.mu.Unlock()

	var firstErr error
	for id, inst := range instances {
		if err := inst.Kill(); err != nil {
			p.logger.Debug("kill failed for pty instance", "task_id", id, "error", err)
		}
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pty for task %s: %w", id, err)
		}
	}

	return firstErr
}

// Len reports how many instances are currently registered.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}
