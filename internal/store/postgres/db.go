package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MustOpen connects the flow-history pool and fails fast, like the rest of
// the startup wiring: a DSN that is configured but unreachable is a
// deployment problem, not something to limp past. History itself stays
// optional; the caller skips this entirely when no DSN is set.
func MustOpen(ctx context.Context, dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("flow history db connect failed")
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("flow history db unreachable")
	}
	return pool
}
