package database

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// txState remembers which pool a transaction was opened on so that a
// repository bound to another pool (the auth schema) never joins it.
type txState struct {
	db *sql.DB
	tx *sql.Tx
}

// TxManager runs units of work inside a single database transaction.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx begins a transaction, exposes it to fn through ctx and commits
// when fn returns nil.  Any error or panic rolls the transaction back.
// Nested calls reuse the outer transaction.
func (tm *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if st, ok := ctx.Value(txKey{}).(txState); ok && st.db == tm.db {
		return fn(ctx)
	}
	tx, err := tm.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, txState{db: tm.db, tx: tx})); err != nil {
		return err
	}
	return tx.Commit()
}

// Conn returns the transaction carried by ctx when it belongs to db, and
// db itself otherwise.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if st, ok := ctx.Value(txKey{}).(txState); ok && st.db == db {
		return st.tx
	}
	return db
}

// InTx reports whether ctx carries a transaction opened on db.
func InTx(ctx context.Context, db *sql.DB) bool {
	st, ok := ctx.Value(txKey{}).(txState)
	return ok && st.db == db
}
