package helpers

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContext(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := WithLogger(context.Background(), logger.WithField("request_id", "rid-1"))

	LogInfo(ctx, "hello", nil)
	LogError(ctx, "boom", assert.AnError, nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "rid-1", entries[0].Data["request_id"])
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, assert.AnError.Error(), entries[1].Data["error"])
}

func TestLoggerFromEmptyContext(t *testing.T) {
	assert.NotNil(t, LoggerFrom(context.Background()))
}
