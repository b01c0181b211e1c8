package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "scrapdesk/internal/core/context"
	"scrapdesk/internal/core/tenant"
)

func TestWithContext_AddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &Logger{zap.New(core).Sugar()}

	ctx := context.Background()
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "tr-1", RequestID: "rq-1"})
	ctx = tenant.WithTenantID(ctx, "tenant-1")
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "user-1"})

	log.WithContext(ctx).Infow("invoice created", "number", 7)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "tr-1", fields["trace_id"])
	assert.Equal(t, "rq-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.EqualValues(t, 7, fields["number"])
}

func TestFromContext_UsesStoredLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), &Logger{zap.New(core).Sugar()})

	Debug(ctx, "hello", "k", "v")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
}
