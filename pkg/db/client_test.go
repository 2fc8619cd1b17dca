package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type widget struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openWidgets(t *testing.T, cfg *gorm.Config) *gorm.DB {
	t.Helper()
	if cfg == nil {
		cfg = &gorm.Config{SkipDefaultTransaction: true}
	}
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), cfg)
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn
}

func countWidgets(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOrRollsBack(t *testing.T) {
	conn := openWidgets(t, nil)
	client := NewFromGorm(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}))
	assert.EqualValues(t, 1, countWidgets(t, conn))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Name: "dropped"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, countWidgets(t, conn))
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	conn := openWidgets(t, nil)
	client := NewFromGorm(conn)

	assert.PanicsWithValue(t, "boom", func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&widget{Name: "panicky"}).Error)
			panic("boom")
		})
	})
	assert.Zero(t, countWidgets(t, conn))
}

func TestNewOpensSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    "file:db_new?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()))

	var fk int
	require.NoError(t, client.DB().Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)

	_, err = New(context.Background(), config.DBConfig{}, nil)
	assert.Error(t, err)
}

func TestQueryLogReportsFailuresAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	conn := openWidgets(t, &gorm.Config{Logger: newQueryLog(logg, time.Nanosecond)})

	require.NoError(t, conn.Create(&widget{Name: "a"}).Error)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	require.Error(t, conn.Create(&widget{Name: "a"}).Error)
	assert.Contains(t, buf.String(), "query failed")

	buf.Reset()
	quiet := openWidgets(t, &gorm.Config{Logger: newQueryLog(logg, time.Hour)})
	var w widget
	assert.ErrorIs(t, quiet.First(&w, "name = ?", "missing").Error, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openWidgets(t, nil)
	require.NoError(t, conn.Create(&widget{Name: "dup"}).Error)
	assert.True(t, IsUniqueViolation(conn.Create(&widget{Name: "dup"}).Error, ""))

	wrapped := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "users_email_key"))
	assert.False(t, IsUniqueViolation(wrapped, "carts_user_id_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""), "foreign key violation")
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})))
	assert.True(t, IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(nil))
}
