package endpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolWidthFromFrequencyCount(t *testing.T) {
	cases := []struct {
		freqs []float64
		width int
	}{
		{make([]float64, 2), 1},
		{make([]float64, 4), 2},
		{make([]float64, 16), 4},
		{make([]float64, 256), 8},
	}
	for _, c := range cases {
		cfg := Default()
		cfg.Frequencies = c.freqs
		w, err := cfg.SymbolWidth()
		require.NoError(t, err)
		assert.EqualValues(t, c.width, w)
	}

	cfg := Default()
	cfg.Frequencies = make([]float64, 3)
	_, err := cfg.SymbolWidth()
	assert.Error(t, err)
}

func TestValidateRequiresADirection(t *testing.T) {
	cfg := Default()
	cfg.Sender = false
	cfg.Receiver = false
	assert.Error(t, cfg.Validate())
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sofi.yaml")
	contents := "baud: 300\nfrequencies: [2400, 1200, 4800, 3600]\nkeep_open: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadYAML(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.Baud)
	assert.Equal(t, []float64{2400, 1200, 4800, 3600}, cfg.Frequencies)
	assert.True(t, cfg.KeepOpen)
	// Fields absent from the file are untouched.
	assert.Equal(t, 48000, cfg.SampleRate)
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(Default(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
