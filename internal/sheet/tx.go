package sheet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// withTx runs fn inside a single all-or-nothing transaction. The pool
// connection is acquired with a bounded wait so a saturated pool fails
// fast instead of blocking indefinitely. The transaction commits on
// normal completion and rolls back on any failure; the connection is
// returned to the pool on every exit path.
func (s *Service) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	conn, err := s.pool.Acquire(acquireCtx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
