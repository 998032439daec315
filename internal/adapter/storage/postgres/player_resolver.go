package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// PlayerResolver implements ports.AccountResolver against the player
// module's players table. An identity is either a player name
// (case-insensitive) or a session token.
type PlayerResolver struct {
	pool Pool
}

// NewPlayerResolver creates a new PlayerResolver.
func NewPlayerResolver(pool Pool) *PlayerResolver {
	return &PlayerResolver{pool: pool}
}

// Resolve maps an identity to its stable account id.
func (r *PlayerResolver) Resolve(ctx context.Context, identity string) (domain.AccountID, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return 0, apperror.ErrAccountNotFound()
	}

	query := `SELECT account_id FROM players
		WHERE lower(name) = lower($1) OR session_token = $1
		LIMIT 1`

	var id int64
	if err := r.pool.QueryRow(ctx, query, identity).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.ErrAccountNotFound()
		}
		return 0, fmt.Errorf("resolve player: %w", err)
	}
	return domain.AccountID(id), nil
}
