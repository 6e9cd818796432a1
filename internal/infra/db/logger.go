package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/logging"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// zapLogger はgormのログをzapに流す。
// リクエスト中ならctxのロガー（request_id付き）を使う。
type zapLogger struct {
	base          *zap.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

// NewLogger はWarn以上を出すgorm用ロガーを返す。
func NewLogger(base *zap.Logger) logger.Interface {
	if base == nil {
		base = zap.NewNop()
	}
	return &zapLogger{
		base:          base.Named("gorm"),
		level:         logger.Warn,
		slowThreshold: defaultSlowThreshold,
	}
}

func (l *zapLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *zapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.from(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *zapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.from(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *zapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.from(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace はクエリ1本ごとに呼ばれる。
// 404と一意制約違反は業務上の結果なのでエラー扱いしない。
func (l *zapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= logger.Error && !expected(err):
		sql, rows := fc()
		l.from(ctx).Error("gorm query failed",
			zap.Error(err),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		l.from(ctx).Warn("slow query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case l.level >= logger.Info:
		sql, rows := fc()
		l.from(ctx).Debug("gorm query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func (l *zapLogger) from(ctx context.Context) *zap.Logger {
	return logging.FromContextOr(ctx, l.base)
}

func expected(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)
}
