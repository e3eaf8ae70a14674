package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakecraft/silversmith/internal/state"
	"github.com/lakecraft/silversmith/pkg/types"
)

func TestNewStateStoreMemory(t *testing.T) {
	store, err := newStateStore(context.Background(), &types.StateConfig{Backend: types.StateMemory, Runs: 5})
	require.NoError(t, err)
	_, ok := store.(*state.MemoryStore)
	assert.True(t, ok)
}

func TestNewStateStoreMissingSubConfig(t *testing.T) {
	for _, backend := range []types.StateBackend{types.StatePostgres, types.StateRedis, types.StateDynamoDB} {
		_, err := newStateStore(context.Background(), &types.StateConfig{Backend: backend})
		assert.Error(t, err, string(backend))
	}

	_, err := newStateStore(context.Background(), &types.StateConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2025-08-18")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-18", day.Format(types.DateLayout))

	_, err = parseDay("18/08/2025")
	assert.Error(t, err)

	today, err := parseDay("")
	require.NoError(t, err)
	assert.Equal(t, 0, today.Hour())
}
