package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTxCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tm := NewTxManager(db)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx, db))
		_, err := Conn(ctx, db).ExecContext(ctx, "INSERT INTO payments (id) VALUES (?)", "p1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("membership update failed")
	err = NewTxManager(db).RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := Conn(ctx, db).ExecContext(ctx, "INSERT INTO payments (id) VALUES (?)", "p1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxNestedReusesOuter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := NewTxManager(db)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(inner context.Context) error {
			assert.Same(t, Conn(ctx, db), Conn(inner, db))
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnIgnoresForeignPool(t *testing.T) {
	main, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer main.Close()
	auth, _, err := sqlmock.New()
	require.NoError(t, err)
	defer auth.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = NewTxManager(main).RunInTx(context.Background(), func(ctx context.Context) error {
		assert.False(t, InTx(ctx, auth))
		assert.Same(t, auth, Conn(ctx, auth))
		return nil
	})
	require.NoError(t, err)
}
