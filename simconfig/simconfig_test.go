package simconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExampleSimFileParses(t *testing.T) {
	sc, err := ReadSim(strings.NewReader(ExampleSimFile))
	if err != nil {
		t.Fatalf("Example file failed to parse: %v", err)
	}

	assert.Equal(t, 100, sc.NumParticles)
	assert.Equal(t, 10.0, sc.EnclosureSize)
	assert.Equal(t, 1.0, sc.JitterRange)
	assert.Equal(t, 0.2, sc.CollisionThreshold)
	assert.Equal(t, 10.0, sc.DurationSeconds)
	assert.Equal(t, 1, sc.NumScanners)
	assert.Equal(t, int64(0), sc.Seed)
	assert.Equal(t, time.Duration(0), sc.MonitorInterval())
	assert.Equal(t, "", sc.MonitorAddr)
}

func TestEmptySectionUsesDefaults(t *testing.T) {
	sc, err := ReadSim(strings.NewReader("[Simulation]\n"))
	if err != nil {
		t.Fatalf("Empty section failed to parse: %v", err)
	}

	assert.Equal(t, 100, sc.NumParticles, "default particle count")
	assert.Equal(t, 10.0, sc.EnclosureSize, "default enclosure size")
	assert.Equal(t, 0.2, sc.CollisionThreshold, "default threshold")
	assert.Equal(t, 1, sc.NumScanners, "default scanner count")
}

func TestPartialOverride(t *testing.T) {
	file := `[Simulation]
NumParticles = 4
DurationSeconds = 0.5
NumScanners = 3
Seed = 7
`
	sc, err := ReadSim(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	assert.Equal(t, 4, sc.NumParticles)
	assert.Equal(t, 10.0, sc.EnclosureSize, "unset field keeps default")
	assert.Equal(t, 0.5, sc.DurationSeconds)
	assert.Equal(t, 3, sc.NumScanners)
	assert.Equal(t, int64(7), sc.Seed)
}

func TestSimConfigConversion(t *testing.T) {
	file := `[Simulation]
NumParticles = 50
EnclosureSize = 4.0
JitterRange = 0.25
CollisionThreshold = 0.1
DurationSeconds = 2.5
NumScanners = 2
Seed = 99
`
	sc, err := ReadSim(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	config := sc.SimConfig()
	assert.Equal(t, 50, config.NumParticles)
	assert.Equal(t, 4.0, config.EnclosureSize)
	assert.Equal(t, 0.25, config.JitterRange)
	assert.Equal(t, 0.1, config.CollisionThreshold)
	assert.Equal(t, 2500*time.Millisecond, config.Duration)
	assert.Equal(t, 2, config.NumScanners)
	assert.Equal(t, int64(99), config.Seed)
}

func TestZeroSeedBecomesWallClockSeed(t *testing.T) {
	sc, err := ReadSim(strings.NewReader("[Simulation]\n"))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	config := sc.SimConfig()
	assert.NotEqual(t, int64(0), config.Seed)
}

func TestMonitorServerConfig(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		sc, err := ReadSim(strings.NewReader("[Simulation]\n"))
		if err != nil {
			t.Fatalf("Failed to parse: %v", err)
		}

		_, enabled := sc.MonitorServerConfig()
		assert.False(t, enabled)
	})

	t.Run("Enabled", func(t *testing.T) {
		file := `[Simulation]
MonitorAddr = :9090
MonitorIntervalMs = 250
`
		sc, err := ReadSim(strings.NewReader(file))
		if err != nil {
			t.Fatalf("Failed to parse: %v", err)
		}

		config, enabled := sc.MonitorServerConfig()
		assert.True(t, enabled)
		assert.Equal(t, ":9090", config.Addr)
		assert.Equal(t, 250*time.Millisecond, config.SampleInterval)
	})
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"ZeroParticles", "[Simulation]\nNumParticles = 0\n"},
		{"NegativeEnclosure", "[Simulation]\nEnclosureSize = -1.0\n"},
		{"NegativeJitter", "[Simulation]\nJitterRange = -0.5\n"},
		{"NegativeThreshold", "[Simulation]\nCollisionThreshold = -0.2\n"},
		{"NegativeDuration", "[Simulation]\nDurationSeconds = -1\n"},
		{"ZeroScanners", "[Simulation]\nNumScanners = 0\n"},
		{"NegativeMonitorInterval", "[Simulation]\nMonitorIntervalMs = -10\n"},
		{"MalformedLine", "[Simulation]\nNumParticles = many\n"},
		{"UnknownField", "[Simulation]\nWarpFactor = 9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSim(strings.NewReader(tt.file))
			assert.Error(t, err)
		})
	}
}

func TestReadSimFile(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "run.gcfg")
	if err := os.WriteFile(fname, []byte(ExampleSimFile), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	sc, err := ReadSimFile(fname)
	if err != nil {
		t.Fatalf("ReadSimFile failed: %v", err)
	}
	assert.Equal(t, 100, sc.NumParticles)

	_, err = ReadSimFile(filepath.Join(dir, "missing.gcfg"))
	assert.Error(t, err)
}
