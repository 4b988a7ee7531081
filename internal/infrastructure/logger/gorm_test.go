package logger

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
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func cityRevenueSQL() (string, int64) {
	return `SELECT city, SUM(total) FROM "Order" GROUP BY city LIMIT 19`, 19
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		took      time.Duration
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{name: "failure", level: gormlogger.Error, err: errors.New("connection refused"), wantMsg: "statement failed", wantLevel: zapcore.ErrorLevel},
		{name: "slow", level: gormlogger.Warn, opts: []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, took: time.Second, wantMsg: "slow statement", wantLevel: zapcore.WarnLevel},
		{name: "slow check disabled", level: gormlogger.Warn, opts: []GormLoggerOption{WithSlowThreshold(0)}, took: time.Second},
		{name: "debug trace", level: gormlogger.Info, wantMsg: "statement", wantLevel: zapcore.DebugLevel},
		{name: "warn hides fast statements", level: gormlogger.Warn},
		{name: "silent", level: gormlogger.Silent, err: errors.New("boom")},
		{name: "record not found ignored", level: gormlogger.Info, err: gormlogger.ErrRecordNotFound},
		{name: "record not found reported", level: gormlogger.Error, opts: []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, err: gormlogger.ErrRecordNotFound, wantMsg: "statement failed", wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gl.Trace(WithQuery(context.Background(), "city_revenue"), time.Now().Add(-tt.took), cityRevenueSQL, tt.err)

			if tt.wantMsg == "" {
				assert.Empty(t, recorded.All())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "city_revenue", entry.ContextMap()["query"])
			assert.Equal(t, int64(19), entry.ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TraceCarriesChatContext(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx, _ := WithChatUser(context.Background(), zap.NewNop(), 42, 4200)
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "req-1")
	gl.Trace(ctx, time.Now(), cityRevenueSQL, nil)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "42", fields["user_id"])
	assert.Equal(t, int64(4200), fields["chat_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.NotContains(t, fields, "query")
}

func TestGormLogger_QueryObserver(t *testing.T) {
	type call struct {
		query string
		err   error
	}
	var calls []call
	gl := NewGormLogger(zap.NewNop(), gormlogger.Silent, WithQueryObserver(func(q string, elapsed time.Duration, err error) {
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		calls = append(calls, call{q, err})
	}))
	boom := errors.New("boom")

	gl.Trace(WithQuery(context.Background(), "totals"), time.Now(), cityRevenueSQL, boom)
	gl.Trace(WithQuery(context.Background(), "top_goods"), time.Now(), cityRevenueSQL, nil)
	gl.Trace(context.Background(), time.Now(), cityRevenueSQL, nil)

	assert.Equal(t, []call{{"totals", boom}, {"top_goods", nil}}, calls)
}

func TestGormLogger_Printf(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Info(context.Background(), "pool %d", 1)
	gl.Warn(context.Background(), "pool %d", 2)
	gl.Error(context.Background(), "pool %d", 3)

	msgs := make([]string, 0, recorded.Len())
	for _, e := range recorded.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"pool 2", "pool 3"}, msgs)
	assert.Equal(t, "gorm", recorded.All()[0].LoggerName)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)

	quiet, ok := gl.LogMode(gormlogger.Silent).(*GormLogger)

	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, quiet.logLevel)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"verbose": gormlogger.Warn,
		"":        gormlogger.Warn,
	}

	for level, want := range tests {
		t.Run(level, func(t *testing.T) {
			assert.Equal(t, want, MapGormLogLevel(level))
		})
	}
}
