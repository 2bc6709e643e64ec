package simconfig

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/gcfg.v1"

	"github.com/sandeepkv93/particle-enclosure-sim/livemonitor"
	"github.com/sandeepkv93/particle-enclosure-sim/particlesim"
)

// ExampleSimFile documents every field of a [Simulation] run file. All
// fields are optional; unset fields fall back to the classic exercise
// parameters.
const ExampleSimFile = `[Simulation]

# Number of particles in the enclosure. Default is 100.
NumParticles = 100

# Side length of the square enclosure. Default is 10.0.
EnclosureSize = 10.0

# Maximum per-axis displacement of a single move. Each move adds an
# independent random delta in [-JitterRange, +JitterRange] to each
# coordinate. Default is 1.0.
JitterRange = 1.0

# Two particles strictly closer than this distance count as a colliding
# pair. Default is 0.2.
CollisionThreshold = 0.2

# Wall-clock duration of the run, in seconds. Default is 10.
DurationSeconds = 10

# Number of concurrent collision scanner goroutines. Scanners share read
# access with each other and contend with the single mover. Default is 1.
NumScanners = 1

# Seed for the random source. 0 (the default) seeds from the wall clock;
# any other value makes the initial layout reproducible.
Seed = 0

# Interval between live monitor reports, in milliseconds. 0 (the
# default) disables the monitor.
MonitorIntervalMs = 0

# Listen address for the live WebSocket monitor, e.g. ":8080". Empty
# (the default) disables it.
MonitorAddr =
`

// SimulationConfig mirrors the [Simulation] section of a run file
type SimulationConfig struct {
	NumParticles       int
	EnclosureSize      float64
	JitterRange        float64
	CollisionThreshold float64
	DurationSeconds    float64
	NumScanners        int
	Seed               int64
	MonitorIntervalMs  int
	MonitorAddr        string
}

// SimFileWrapper is the gcfg target; the field name selects the section
type SimFileWrapper struct {
	Simulation SimulationConfig
}

func defaultWrapper() *SimFileWrapper {
	defaults := particlesim.DefaultConfig()
	return &SimFileWrapper{
		Simulation: SimulationConfig{
			NumParticles:       defaults.NumParticles,
			EnclosureSize:      defaults.EnclosureSize,
			JitterRange:        defaults.JitterRange,
			CollisionThreshold: defaults.CollisionThreshold,
			DurationSeconds:    defaults.Duration.Seconds(),
			NumScanners:        defaults.NumScanners,
		},
	}
}

// CheckInit validates a parsed section
func (sc *SimulationConfig) CheckInit() error {
	if sc.NumParticles <= 0 {
		return fmt.Errorf("NumParticles must be positive, but is %d", sc.NumParticles)
	}
	if sc.EnclosureSize <= 0 {
		return fmt.Errorf("EnclosureSize must be positive, but is %g", sc.EnclosureSize)
	}
	if sc.JitterRange < 0 {
		return fmt.Errorf("JitterRange must be non-negative, but is %g", sc.JitterRange)
	}
	if sc.CollisionThreshold < 0 {
		return fmt.Errorf("CollisionThreshold must be non-negative, but is %g", sc.CollisionThreshold)
	}
	if sc.DurationSeconds < 0 {
		return fmt.Errorf("DurationSeconds must be non-negative, but is %g", sc.DurationSeconds)
	}
	if sc.NumScanners <= 0 {
		return fmt.Errorf("NumScanners must be positive, but is %d", sc.NumScanners)
	}
	if sc.MonitorIntervalMs < 0 {
		return fmt.Errorf("MonitorIntervalMs must be non-negative, but is %d", sc.MonitorIntervalMs)
	}
	return nil
}

// SimConfig converts the parsed section into a particlesim.Config. A
// zero Seed is replaced with a wall-clock seed.
func (sc *SimulationConfig) SimConfig() particlesim.Config {
	seed := sc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return particlesim.Config{
		NumParticles:       sc.NumParticles,
		EnclosureSize:      sc.EnclosureSize,
		JitterRange:        sc.JitterRange,
		CollisionThreshold: sc.CollisionThreshold,
		Duration:           time.Duration(sc.DurationSeconds * float64(time.Second)),
		NumScanners:        sc.NumScanners,
		Seed:               seed,
	}
}

// MonitorInterval returns the live monitor interval, 0 when disabled
func (sc *SimulationConfig) MonitorInterval() time.Duration {
	return time.Duration(sc.MonitorIntervalMs) * time.Millisecond
}

// MonitorServerConfig returns the live monitor server configuration and
// whether the monitor is enabled at all
func (sc *SimulationConfig) MonitorServerConfig() (livemonitor.ServerConfig, bool) {
	if sc.MonitorAddr == "" {
		return livemonitor.ServerConfig{}, false
	}

	config := livemonitor.DefaultServerConfig()
	config.Addr = sc.MonitorAddr
	if interval := sc.MonitorInterval(); interval > 0 {
		config.SampleInterval = interval
	}
	return config, true
}

// ReadSimFile parses and validates a run file
func ReadSimFile(fname string) (*SimulationConfig, error) {
	wrap := defaultWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, fmt.Errorf("error parsing sim file %s: %w", fname, err)
	}
	if err := wrap.Simulation.CheckInit(); err != nil {
		return nil, err
	}
	return &wrap.Simulation, nil
}

// ReadSim parses and validates a run file from a reader
func ReadSim(r io.Reader) (*SimulationConfig, error) {
	wrap := defaultWrapper()
	if err := gcfg.ReadInto(wrap, r); err != nil {
		return nil, fmt.Errorf("error parsing sim config: %w", err)
	}
	if err := wrap.Simulation.CheckInit(); err != nil {
		return nil, err
	}
	return &wrap.Simulation, nil
}
