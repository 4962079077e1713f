package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_RoutesThroughInstalledLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Get(CategoryLexer).Debugw("chunk resumed", "offset", 42)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, string(CategoryLexer), entries[0].LoggerName)
	require.Equal(t, "chunk resumed", entries[0].Message)
	require.Equal(t, int64(42), entries[0].ContextMap()["offset"])
}

func TestGet_CachesPerCategory(t *testing.T) {
	SetLogger(zap.NewNop())

	cacheLog := Get(CategoryCache)
	require.Same(t, cacheLog, Get(CategoryCache))
	require.NotSame(t, cacheLog, Get(CategoryQuery))
}

func TestSetLogger_DropsStaleCategoryLoggers(t *testing.T) {
	SetLogger(zap.NewNop())
	stale := Get(CategoryStore)

	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	// The cached nop-backed logger must not survive the swap.
	require.NotSame(t, stale, Get(CategoryStore))
	Get(CategoryStore).Infow("snapshot saved")
	require.Len(t, logs.All(), 1)
}

func TestDefaultLoggerIsSilent(t *testing.T) {
	SetLogger(zap.NewNop())
	// Must not panic or emit anywhere.
	Get(CategoryWatch).Warnw("unwatched", "path", "/tmp/x")
	Sync()
}
