package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"wisecal/internal/config"
	"wisecal/internal/reconcile"
	"wisecal/internal/settings"
	"wisecal/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forcedOwner = `calendar:
  enabled: true
  owner: ana@example.com
  title: FERI RIT MAG 1
  force_sync: true
  timetable:
    schoolcode: um_feri
    filterId: "0;1;2"
`

func TestNoopWiringIgnoresConfiguredBackend(t *testing.T) {
	w := noopWiring(t.TempDir())
	assert.Equal(t, config.BackendFile, w.backend(config.BackendPostgres))
	assert.Equal(t, config.BackendPostgres, wiring{}.backend(config.BackendPostgres))

	dir := t.TempDir()
	store, calendars := stores(w.backend(config.BackendPostgres), dir)
	require.IsType(t, &state.FileStore{}, store)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ana", reconcile.NewIDSet("a")))
	require.NoError(t, calendars.Set(ctx, "ana", "cal-ana"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "state stays in the throwaway dir")
}

func TestNoopWiringLeavesSettingsUntouched(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ana.yaml")
	require.NoError(t, os.WriteFile(file, []byte(forcedOwner), 0o600))
	d, err := settings.NewDir(dir)
	require.NoError(t, err)

	owners := noopWiring(t.TempDir()).owners(d)
	loaded, err := owners.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	require.NoError(t, owners.ClearForce("ana"))
	require.NoError(t, owners.Disable("ana"))

	body, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, forcedOwner, string(body))

	assert.Same(t, d, wiring{}.owners(d))
}
