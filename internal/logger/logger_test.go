package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitRespectsDebug(t *testing.T) {
	cases := []struct {
		name        string
		debug       bool
		enableDebug bool
	}{
		{"debug", true, true},
		{"info", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			Init(tc.debug)
			defer func() { Log = zap.NewNop() }()

			assert.Equal(t, tc.enableDebug, Log.Core().Enabled(zap.DebugLevel))
			assert.True(t, Log.Core().Enabled(zap.InfoLevel))
		})
	}
}

func TestInitLevel(t *testing.T) {
	defer func() { Log = zap.NewNop() }()

	require.NoError(t, InitLevel("warn"))
	assert.False(t, Log.Core().Enabled(zap.InfoLevel))
	assert.True(t, Log.Core().Enabled(zap.WarnLevel))

	require.Error(t, InitLevel("loud"))
}
