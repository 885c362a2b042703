package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openWidgets(t *testing.T) (*Client, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return NewFromConn(conn), conn
}

func countWidgets(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	client, conn := openWidgets(t)
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countWidgets(t, conn))
}

func TestWithTxRollsBackOnErrorAndPanic(t *testing.T) {
	client, conn := openWidgets(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Name: "dropped"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&widget{Name: "also-dropped"}).Error)
			panic("handler bug")
		})
	})
	assert.Zero(t, countWidgets(t, conn))
}

func TestPingAndDialect(t *testing.T) {
	client, _ := openWidgets(t)
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, DriverSQLite, client.Dialect())
}

func TestIsUniqueViolation(t *testing.T) {
	_, conn := openWidgets(t)
	require.NoError(t, conn.Create(&widget{Name: "dup"}).Error)
	assert.True(t, IsUniqueViolation(conn.Create(&widget{Name: "dup"}).Error, ""), "sqlite unique violation")

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "sales_sale_number_key"}
	assert.True(t, IsUniqueViolation(pgErr, "sales_sale_number_key"))
	assert.False(t, IsUniqueViolation(pgErr, "other_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""), "foreign key is not unique")
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsUniqueViolationWithLibPQ(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "accounts_username_key"}
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "accounts_username_key"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23502"}, ""))
}
