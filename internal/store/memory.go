package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forgelabs/gameforge/internal/game"
)

// Memory is an in-memory Store used in tests and keyless dev runs.
type Memory struct {
	mu    sync.RWMutex
	games map[string]game.Game
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{games: make(map[string]game.Game)}
}

// Create stores a new game record.
func (m *Memory) Create(_ context.Context, g game.Game) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return g, nil
}

// Get retrieves a game by ID.
func (m *Memory) Get(_ context.Context, id string) (game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return game.Game{}, ErrNotFound
	}
	return g, nil
}

// List returns all games, newest first.
func (m *Memory) List(_ context.Context) ([]game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a game by ID.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return ErrNotFound
	}
	delete(m.games, id)
	return nil
}

// UpdateResult records a build outcome.
func (m *Memory) UpdateResult(_ context.Context, g game.Game) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.games[g.ID]
	if !ok {
		return game.Game{}, ErrNotFound
	}
	existing.Status = g.Status
	existing.WebGLURL = g.WebGLURL
	existing.APKURL = g.APKURL
	existing.Error = g.Error
	existing.UpdatedAt = time.Now().UTC()
	m.games[g.ID] = existing
	return existing, nil
}
