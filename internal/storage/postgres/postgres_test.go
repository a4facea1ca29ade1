package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHasParam(t *testing.T) {
	assert.True(t, hasParam("postgres://u:p@localhost:5432/db?pool_max_conns=10", "pool_max_conns"))
	assert.True(t, hasParam("host=localhost dbname=db pool_max_conns=2", "pool_max_conns"))
	assert.False(t, hasParam("postgres://u:p@localhost:5432/db", "pool_max_conns"))
}

func TestErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation})
	assert.True(t, isDuplicateKeyError(dup))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateKeyError(errors.New("boom")))

	assert.True(t, isNotFoundError(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, isNotFoundError(dup))
}
