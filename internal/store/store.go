// Package store persists game records.
package store

import (
	"context"
	"errors"

	"github.com/forgelabs/gameforge/internal/game"
)

// ErrNotFound is returned when no game matches the given ID.
var ErrNotFound = errors.New("game not found")

// Store is the persistence interface for game records.
type Store interface {
	Create(ctx context.Context, g game.Game) (game.Game, error)
	Get(ctx context.Context, id string) (game.Game, error)
	List(ctx context.Context) ([]game.Game, error)
	Delete(ctx context.Context, id string) error
	// UpdateResult records the outcome of a build run: status, artifact
	// URLs and error message.
	UpdateResult(ctx context.Context, g game.Game) (game.Game, error)
}
