package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// swapGlobal installs an observed logger for the duration of a test
func swapGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := globalLogger
	globalLogger = zap.New(core)
	t.Cleanup(func() { globalLogger = prev })
	return logs
}

func TestWithContextAttachesFields(t *testing.T) {
	logs := swapGlobal(t)

	ctx := context.Background()
	ctx = context.WithValue(ctx, JobIDKey, "req-123")
	ctx = context.WithValue(ctx, BucketKey, "landing-zone")
	ctx = context.WithValue(ctx, ObjectKey, "data/file.csv")

	WithContext(ctx).Info("processing")

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["job_id"])
	assert.Equal(t, "landing-zone", fields["bucket"])
	assert.Equal(t, "data/file.csv", fields["object_key"])
}

func TestWithContextEmptyContext(t *testing.T) {
	logs := swapGlobal(t)

	WithContext(context.Background()).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ContextMap())
}

func TestInitRejectsBadLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "shouting", Encoding: "json"})
	require.Error(t, err)
}
