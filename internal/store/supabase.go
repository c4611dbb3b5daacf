package store

import (
	"context"
	"fmt"
	"time"

	supa "github.com/supabase-community/supabase-go"

	"github.com/forgelabs/gameforge/internal/game"
)

const gamesTable = "games"

// Supabase persists games in a hosted Supabase 'games' table.
type Supabase struct {
	client *supa.Client
}

// NewSupabase connects to the Supabase project.
func NewSupabase(url, key string) (*Supabase, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required")
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to supabase: %w", err)
	}
	return &Supabase{client: client}, nil
}

// Create inserts a new game row.
func (s *Supabase) Create(_ context.Context, g game.Game) (game.Game, error) {
	var inserted []game.Game
	_, err := s.client.From(gamesTable).Insert(g, false, "", "", "").ExecuteTo(&inserted)
	if err != nil {
		return game.Game{}, fmt.Errorf("insert game: %w", err)
	}
	if len(inserted) == 0 {
		return game.Game{}, fmt.Errorf("insert game: no row returned")
	}
	return inserted[0], nil
}

// Get retrieves a game row by ID.
func (s *Supabase) Get(_ context.Context, id string) (game.Game, error) {
	var rows []game.Game
	_, err := s.client.From(gamesTable).Select("*", "exact", false).Eq("id", id).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return game.Game{}, fmt.Errorf("select game: %w", err)
	}
	if len(rows) == 0 {
		return game.Game{}, ErrNotFound
	}
	return rows[0], nil
}

// List returns all game rows.
func (s *Supabase) List(_ context.Context) ([]game.Game, error) {
	var rows []game.Game
	_, err := s.client.From(gamesTable).Select("*", "exact", false).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return rows, nil
}

// Delete removes a game row by ID.
func (s *Supabase) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	var deleted []game.Game
	_, err := s.client.From(gamesTable).Delete("", "").Eq("id", id).ExecuteTo(&deleted)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

// UpdateResult records a build outcome on an existing row.
func (s *Supabase) UpdateResult(_ context.Context, g game.Game) (game.Game, error) {
	patch := map[string]interface{}{
		"status":     g.Status,
		"webgl_url":  g.WebGLURL,
		"apk_url":    g.APKURL,
		"error":      g.Error,
		"updated_at": time.Now().UTC(),
	}

	var updated []game.Game
	_, err := s.client.From(gamesTable).Update(patch, "", "").Eq("id", g.ID).ExecuteTo(&updated)
	if err != nil {
		return game.Game{}, fmt.Errorf("update game: %w", err)
	}
	if len(updated) == 0 {
		return game.Game{}, ErrNotFound
	}
	return updated[0], nil
}
