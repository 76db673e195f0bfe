package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

// mysqlErrLockWait is MySQL error 1205 (lock wait timeout exceeded).
const mysqlErrLockWait = 1205

type txKey struct{}

// MySQLTxManager runs a function inside one database transaction. The open
// *sql.Tx travels in the context, so repos called with that context join
// the same transaction; any error triggers a full rollback.
type MySQLTxManager struct {
	db *sql.DB
}

func NewMySQLTxManager(db *sql.DB) *MySQLTxManager { return &MySQLTxManager{db: db} }

func (m *MySQLTxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var _ usecase.TxManager = (*MySQLTxManager)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction from ctx when present, the pool otherwise.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// classify maps driver-level failures onto the domain taxonomy so callers
// can tell a transient lock wait from a hard failure.
func classify(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrLockWait {
		return fmt.Errorf("%w: %v", domain.ErrLockWaitTimeout, err)
	}
	return err
}
