package ghost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CurationsLA/lemon/internal/logger"
)

func nopLogger() logger.Logger {
	return logger.Nop()
}

func clockAt(t *testing.T, stamp string) func() time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
	return func() time.Time { return parsed }
}
