package tuner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gib = 1024 * 1024 * 1024

func TestDetect(t *testing.T) {
	res, err := Detect()
	require.NoError(t, err)
	assert.Positive(t, res.CPUCores)
	assert.Positive(t, res.TotalRAM)
	assert.Positive(t, res.AvailableRAM)
	assert.LessOrEqual(t, res.AvailableRAM, res.TotalRAM)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		res      SystemResources
		wantScan int
		wantHash int
	}{
		{"single core", SystemResources{CPUCores: 1, AvailableRAM: 4 * gib}, 4, 2},
		{"eight cores", SystemResources{CPUCores: 8, AvailableRAM: 16 * gib}, 8, 16},
		{"many cores capped", SystemResources{CPUCores: 128, AvailableRAM: 64 * gib}, 64, 64},
		{"thirty two cores hits cap", SystemResources{CPUCores: 32, AvailableRAM: 64 * gib}, 32, 64},
		{"low memory halves hashing", SystemResources{CPUCores: 8, AvailableRAM: 256 * 1024 * 1024}, 8, 8},
		{"unknown cores", SystemResources{}, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.res)
			assert.Equal(t, tt.wantScan, got.ScanWorkers)
			assert.Equal(t, tt.wantHash, got.HashWorkers)
			assert.GreaterOrEqual(t, got.EventBuffer, minEventBuffer)
			assert.LessOrEqual(t, got.EventBuffer, maxEventBuffer)
		})
	}
}

func TestCalculateWithOverrides(t *testing.T) {
	res := SystemResources{CPUCores: 4, AvailableRAM: 8 * gib}

	got := CalculateWithOverrides(res, 0, 0)
	assert.Equal(t, Calculate(res), got)

	got = CalculateWithOverrides(res, 3, 100)
	assert.Equal(t, 3, got.ScanWorkers)
	assert.Equal(t, 64, got.HashWorkers)

	got = CalculateWithOverrides(res, -1, 5)
	assert.Equal(t, Calculate(res).ScanWorkers, got.ScanWorkers)
	assert.Equal(t, 5, got.HashWorkers)
}

func TestCalculateEventBuffer(t *testing.T) {
	assert.Equal(t, minEventBuffer, calculateEventBuffer(0))
	assert.Equal(t, maxEventBuffer, calculateEventBuffer(1024*gib))
}

func TestAuto(t *testing.T) {
	cfg := Auto(0, 7)
	assert.Equal(t, 7, cfg.HashWorkers)
	assert.Positive(t, cfg.ScanWorkers)
}
