package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (s *stubTx) Commit(ctx context.Context) error {
	if s.committed || s.rolledBack {
		return pgx.ErrTxClosed
	}
	s.committed = true
	return nil
}

func (s *stubTx) Rollback(ctx context.Context) error {
	if s.committed || s.rolledBack {
		return pgx.ErrTxClosed
	}
	s.rolledBack = true
	return nil
}

func TestRunInTxCommitsOnSuccess(t *testing.T) {
	tx := &stubTx{}
	err := runInTx(context.Background(), tx, func(ctx context.Context, _ TxRepository) error {
		return nil
	})
	require.NoError(t, err)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	tx := &stubTx{}
	boom := errors.New("boom")
	err := runInTx(context.Background(), tx, func(ctx context.Context, _ TxRepository) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	tx := &stubTx{}
	require.Panics(t, func() {
		_ = runInTx(context.Background(), tx, func(ctx context.Context, _ TxRepository) error {
			panic("nil pointer in a future service change")
		})
	})
	// row locks must be released even when the callback panics
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}
