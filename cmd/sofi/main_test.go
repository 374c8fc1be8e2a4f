package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequenciesValidCounts(t *testing.T) {
	got, err := parseFrequencies("2200,1200")
	require.NoError(t, err)
	assert.Equal(t, []float64{2200, 1200}, got)

	got, err = parseFrequencies("2400, 1200, 4800, 3600")
	require.NoError(t, err)
	assert.Equal(t, []float64{2400, 1200, 4800, 3600}, got)
}

func TestParseFrequenciesRejectsBadCount(t *testing.T) {
	_, err := parseFrequencies("2200,1200,900")
	assert.Error(t, err)
}

func TestParseFrequenciesRejectsNonNumeric(t *testing.T) {
	_, err := parseFrequencies("2200,abc")
	assert.Error(t, err)
}
