package db

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_CommitRunsHooks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_log").WithArgs("VIEW_DOSSIER").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	var ran []string
	err = NewTxManager(mock).InTx(context.Background(), func(ctx context.Context) error {
		require.NotNil(t, TxFromContext(ctx))
		AfterCommit(ctx, func(context.Context) { ran = append(ran, "hook") })
		_, err := Conn(ctx, mock).Exec(ctx, "INSERT INTO audit_log (action) VALUES ($1)", "VIEW_DOSSIER")
		ran = append(ran, "body")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "hook"}, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_RollbackDropsHooks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	hookRan := false
	err = NewTxManager(mock).InTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	m := NewTxManager(mock)
	hooks := 0
	err = m.InTx(context.Background(), func(ctx context.Context) error {
		outer := TxFromContext(ctx)
		return m.InTx(ctx, func(inner context.Context) error {
			assert.True(t, outer == TxFromContext(inner))
			AfterCommit(inner, func(context.Context) { hooks++ })
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, hooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAfterCommit_NoTransactionRunsNow(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
	assert.Nil(t, TxFromContext(context.Background()))
}
