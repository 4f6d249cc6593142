package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectsUnknownMode(t *testing.T) {
	rootCmd.SetArgs([]string{"--mode", "kiosk"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		mode = "server"
	})

	err := Execute()
	assert.ErrorContains(t, err, `invalid mode "kiosk"`)
}

func TestNewAppSeedsRegistryFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking.yaml")
	data := `telemetry:
  enabled: false
slots:
  - slotNo: 2
    isEVCharging: true
  - slotNo: 1
    isCovered: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfgPath, port = path, "6060"
	t.Cleanup(func() { cfgPath, port = "", "" })

	a, err := newApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.shutdownTelemetry)

	assert.Equal(t, "6060", a.cfg.Server.Port)
	slots := a.registry.ListAll(context.Background())
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[0].SlotNo)
	assert.Equal(t, 2, slots[0].ID)
}

func TestNewAppRejectsInvalidSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking.yaml")
	data := `telemetry:
  enabled: false
slots:
  - slotNo: 1
    isCovered: true
  - slotNo: 1
    isEVCharging: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfgPath = path
	t.Cleanup(func() { cfgPath = "" })

	_, err := newApp(context.Background())
	assert.ErrorContains(t, err, "seed slot 1")
}
