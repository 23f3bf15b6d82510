package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tair/commerce-core/pkg/database/databasetest"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestWithinTransaction_CommitsOnSuccess(t *testing.T) {
	db := databasetest.NewSQLite(t, &widget{})
	tr := NewGormTransactor(db)

	err := tr.WithinTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		return Conn(ctx, db).Create(&widget{Name: "a"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	db := databasetest.NewSQLite(t, &widget{})
	tr := NewGormTransactor(db)
	boom := errors.New("boom")

	err := tr.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if err := Conn(ctx, db).Create(&widget{Name: "a"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithinTransaction_NestedCallJoinsOuter(t *testing.T) {
	db := databasetest.NewSQLite(t, &widget{})
	tr := NewGormTransactor(db)
	boom := errors.New("boom")

	err := tr.WithinTransaction(context.Background(), func(ctx context.Context) error {
		inner := tr.WithinTransaction(ctx, func(ctx context.Context) error {
			return Conn(ctx, db).Create(&widget{Name: "inner"}).Error
		})
		require.NoError(t, inner)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count, "inner write must roll back with the outer transaction")
}

func TestConn_WithoutTransaction(t *testing.T) {
	assert.False(t, InTransaction(context.Background()))
}

func TestForUpdate_RendersRowLockOnPostgres(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	stmt := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var w widget
		return ForUpdate(tx).Where("id = ?", 7).First(&w)
	})

	assert.Contains(t, stmt, "FOR UPDATE")
	assert.Contains(t, stmt, `"widgets"`)
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", cfg.DSN())
}
