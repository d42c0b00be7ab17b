package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// maxTxRetries bounds the automatic replays of a serialization-failed transaction.
const maxTxRetries = 3

// ErrTxAborted is returned once the bounded serialization retries are exhausted.
// The caller may resubmit: no partial state was committed on any attempt.
var ErrTxAborted = errors.New("transaction aborted after conflicting concurrent writes")

// TransactionManager manages database transactions via context injection.
// Transactions run at SERIALIZABLE isolation; the engine's read-plan-apply
// discipline makes each attempt a pure function of its snapshot, so a
// serialization failure is replayed from a fresh read.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txCtx := context.WithValue(ctx, txKey, tx)
			return fn(txCtx)
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if !isSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTxAborted, err)
}

// isSerializationFailure matches Postgres serialization_failure (40001) and
// deadlock_detected (40P01), the two conditions safe to replay.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
