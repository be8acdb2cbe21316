package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sarchlab/dramctrl/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeBuilderDefaultsBuildCleanly(t *testing.T) {
	cfg, err := config.MakeBuilder().Build()

	require.NoError(t, err)
	assert.Equal(t, config.DRAM, cfg.Protocol)
	assert.Equal(t, 1, cfg.NumRanks)
	assert.False(t, cfg.IsSmartMRAM())
}

func TestWithProtocolSwitchesIsSmartMRAM(t *testing.T) {
	cfg, err := config.MakeBuilder().WithProtocol(config.SmartMRAM).Build()

	require.NoError(t, err)
	assert.True(t, cfg.IsSmartMRAM())
	assert.Equal(t, "smartmram", cfg.Protocol.String())
}

func TestValidateRejectsNonPositiveTopology(t *testing.T) {
	cases := []struct {
		name string
		b    config.Builder
	}{
		{"zero ranks", config.MakeBuilder().WithNumRanks(0)},
		{"zero banks", config.MakeBuilder().WithNumBanks(0)},
		{"zero trans queue depth", config.MakeBuilder().WithTransQueueDepth(0)},
		{"cmd queue depth below two", config.MakeBuilder().WithCmdQueueDepth(1)},
		{"zero burst length", config.MakeBuilder().WithBL(0)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := c.b.Build()
			assert.Error(t, err)
		})
	}
}

func TestFreqIsDerivedFromTCK(t *testing.T) {
	cfg, err := config.MakeBuilder().WithTCK(2.0).Build()
	require.NoError(t, err)

	assert.InDelta(t, 500e6, float64(cfg.Freq()), 1.0)
	assert.EqualValues(t, 10, cfg.CyclesFor(20))
}

func TestLoadEnvAppliesOnlyRecognizedKeysOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dramctrl.env")

	contents := "DRAMCTRL_PROTOCOL=smartmram\nDRAMCTRL_TRCD=99\nIGNORED_KEY=123\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	builder, err := config.LoadEnv(path)
	require.NoError(t, err)

	cfg, err := builder.Build()
	require.NoError(t, err)

	assert.True(t, cfg.IsSmartMRAM())
	assert.EqualValues(t, 99, cfg.TRCD)
	assert.EqualValues(t, 8, cfg.NumBanks, "unset keys keep the MakeBuilder default")
}

func TestLoadEnvRejectsMalformedValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dramctrl.env")

	require.NoError(t, os.WriteFile(path, []byte("DRAMCTRL_NUM_RANKS=notanumber\n"), 0o600))

	_, err := config.LoadEnv(path)
	assert.Error(t, err)
}

func TestEnsureFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.env")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	assert.NoError(t, config.EnsureFileExists(path))
	assert.Error(t, config.EnsureFileExists(filepath.Join(dir, "absent.env")))
}
