// Package testutil はテスト用のDBとゲートウェイのモック。
package testutil

import (
	"testing"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/infra/db"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// NewTestDB はテストごとに空のインメモリSQLiteを作り、マイグレーションまで済ませる。
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), db.Config(zaptest.NewLogger(t)))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	//:memory:は接続ごとに別DBになるので1本に固定
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

// SeedUser はユーザーを1件作る。
func SeedUser(t *testing.T, gdb *gorm.DB, email string, role model.Role) model.User {
	t.Helper()

	u := model.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Enabled:      true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// SeedProduct は販売中の商品を1件作る。
func SeedProduct(t *testing.T, gdb *gorm.DB, name string, price string, stock int64) model.Product {
	t.Helper()

	p := model.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Category:    "general",
		IsAvailable: true,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

// StockOf は商品の現在の在庫を読む。
func StockOf(t *testing.T, gdb *gorm.DB, productID int64) int64 {
	t.Helper()

	var p model.Product
	require.NoError(t, gdb.Unscoped().First(&p, productID).Error)
	return p.Stock
}
