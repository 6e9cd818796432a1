package logging_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs-labo46/ec-shop-api/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Level(t *testing.T) {
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "logs", "app.log"))

	logger, err := logging.NewLogger("ec-shop-api", "test", "warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = logging.NewLogger("ec-shop-api", "test", "loud")
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	l := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx := logging.ContextWithLogger(context.Background(), l)

	assert.Same(t, l, logging.FromContext(ctx))
	assert.Same(t, zap.L(), logging.FromContext(context.Background()))
}
