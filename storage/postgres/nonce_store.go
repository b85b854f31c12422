// Package pgstore persists nonce state in Postgres (see migrations/postgres).
package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NonceStore keeps one row per active nonce in quickauth_nonces.
type NonceStore struct {
	pool *pgxpool.Pool
}

func NewNonceStore(pool *pgxpool.Pool) *NonceStore {
	return &NonceStore{pool: pool}
}

func (s *NonceStore) Put(ctx context.Context, id string, expiresAt int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quickauth_nonces (id, expires_at) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`, id, expiresAt)
	return err
}

func (s *NonceStore) Get(ctx context.Context, id string) (int64, bool, error) {
	var exp int64
	err := s.pool.QueryRow(ctx, `SELECT expires_at FROM quickauth_nonces WHERE id = $1`, id).Scan(&exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return exp, true, nil
}

func (s *NonceStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM quickauth_nonces WHERE id = $1`, id)
	return err
}

// ConsumeActive deletes the row only while it is unexpired; the row lock makes
// concurrent consumers across processes race for a single delete.
func (s *NonceStore) ConsumeActive(ctx context.Context, id string, now int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quickauth_nonces WHERE id = $1 AND expires_at > $2`, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired purges rows whose expiry has passed.
func (s *NonceStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quickauth_nonces WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
