package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		level   string
		wantErr bool
		enabled zapcore.Level
	}{
		{"production default", "production", "", false, zapcore.InfoLevel},
		{"development default", "development", "", false, zapcore.DebugLevel},
		{"empty mode is development", "", "", false, zapcore.DebugLevel},
		{"explicit level", "prod", "warn", false, zapcore.WarnLevel},
		{"unknown mode", "verbose", "", true, 0},
		{"bad level", "production", "loud", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.mode, tt.level)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestNewGormLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)
	ctx := context.Background()

	gl.Error(ctx, "query failed: %s", "boom")
	gl.Info(ctx, "ignored below warn")
	gl.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, gorm.ErrRecordNotFound)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "query failed: boom")
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "gorm", entry.LoggerName)

	gl.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 2", 0
	}, errors.New("syntax error"))
	require.Equal(t, 2, logs.Len())
	entry = logs.All()[1]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "SELECT 2", entry.ContextMap()["sql"])

	gl.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 3", 1
	}, nil)
	assert.Equal(t, 2, logs.Len())
}

func TestNewGormLogger_SlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Trace(context.Background(), nowMinusSecond(), func() (string, int64) {
		return "SELECT * FROM assets", 0
	}, gorm.ErrRecordNotFound)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "slow query", logs.All()[0].Message)
}

func TestNewGormLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Error)

	gl.Warn(context.Background(), "dropped")
	gl.Trace(context.Background(), nowMinusSecond(), func() (string, int64) { return "SELECT 1", 0 }, nil)
	assert.Zero(t, logs.Len())

	verbose := gl.LogMode(gormlogger.Info)
	verbose.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)

	gl.LogMode(gormlogger.Silent).Error(context.Background(), "dropped")
	assert.Equal(t, 1, logs.Len())
}

func TestNewGormLogger_NilIsDiscard(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, NewGormLogger(nil, gormlogger.Info))
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("info"))
	assert.Equal(t, gormlogger.Error, GormLevel("ERROR"))
}

func nowMinusSecond() time.Time { return time.Now().Add(-time.Second) }
