package db

import (
	"fmt"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect はDBに接続して *gorm.DB を返す。
// dsnはconfig.PostgresDSN()の値（DATABASE_URL優先）。
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	//接続前にDSNの書式だけ確認する
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	gdb, err := gorm.Open(postgres.Open(dsn), Config(log))
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

// Config はドライバ共通のgorm設定。
// 一意制約違反をgorm.ErrDuplicatedKeyに変換させる。
func Config(log *zap.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(log),
	}
}

// AutoMigrate は起動時のテーブル作成（本番のマイグレーションツールの代わりではない）
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.CartItem{},
		&model.AuditLog{},
	)
}
