package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/app_registry/internal/app/storage/jsonfile"
	"github.com/R3E-Network/app_registry/internal/app/storage/memory"
	"github.com/R3E-Network/app_registry/internal/config"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	store, err := Open(context.Background(), config.StorageConfig{Driver: config.DriverFile, DataFile: path}, logger.NewNop())
	require.NoError(t, err)
	fs, ok := store.(*jsonfile.Store)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
	assert.NoError(t, Close(store))
}

func TestOpenMemoryStartsEmpty(t *testing.T) {
	store, err := Open(context.Background(), config.StorageConfig{Driver: config.DriverMemory}, logger.NewNop())
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, store)

	apps, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "bolt"}, logger.NewNop())
	assert.Error(t, err)
}
