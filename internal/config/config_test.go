package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/common"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 7000

[journal]
enabled = true
path = "/var/lib/exchange/journal"

[[symbols]]
id = 241
base = 11
quote = 15
basescale = 1000000
quotescale = 10000
takerfee = 1900
makerfee = 700
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address, "unset fields keep defaults")
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 1024, cfg.Pipeline.CommandBuffer)

	require.Len(t, cfg.Symbols, 1)
	spec := cfg.Symbols[0].Spec()
	assert.Equal(t, common.SymbolID(241), spec.ID)
	assert.Equal(t, common.CurrencyPair, spec.Kind)
	assert.Equal(t, int64(1900), spec.TakerFee)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
