package particlesim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Vector2D represents a 2D position or displacement
type Vector2D struct {
	X, Y float64
}

func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{v.X + other.X, v.Y + other.Y}
}

func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{v.X - other.X, v.Y - other.Y}
}

func (v Vector2D) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vector2D) Distance(other Vector2D) float64 {
	return v.Sub(other).Magnitude()
}

// Particle is a point particle confined to a square enclosure
type Particle struct {
	X, Y float64
}

// NewParticle creates a particle at a uniformly random position inside
// the enclosure
func NewParticle(rng *rand.Rand, enclosureSize float64) Particle {
	return Particle{
		X: rng.Float64() * enclosureSize,
		Y: rng.Float64() * enclosureSize,
	}
}

// Move perturbs the particle by an independent random delta in
// [-jitterRange, +jitterRange] on each axis, clamped to the enclosure
func (p *Particle) Move(rng *rand.Rand, jitterRange, enclosureSize float64) {
	dx := (rng.Float64() - 0.5) * 2 * jitterRange
	dy := (rng.Float64() - 0.5) * 2 * jitterRange

	p.X = clamp(p.X+dx, 0, enclosureSize)
	p.Y = clamp(p.Y+dy, 0, enclosureSize)
}

// Collide reports whether the two particles are strictly closer than
// threshold. Symmetric and side-effect free.
func (p Particle) Collide(other Particle, threshold float64) bool {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx+dy*dy) < threshold
}

// Position returns the particle's coordinates
func (p Particle) Position() (float64, float64) {
	return p.X, p.Y
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Config contains configuration for a simulation run
type Config struct {
	NumParticles       int
	EnclosureSize      float64
	JitterRange        float64
	CollisionThreshold float64
	Duration           time.Duration
	NumScanners        int
	Seed               int64
}

// DefaultConfig returns the classic exercise parameters: 100 particles
// in a 10x10 enclosure, 10 seconds, collision threshold 0.2
func DefaultConfig() Config {
	return Config{
		NumParticles:       100,
		EnclosureSize:      10.0,
		JitterRange:        1.0,
		CollisionThreshold: 0.2,
		Duration:           10 * time.Second,
		NumScanners:        1,
		Seed:               time.Now().UnixNano(),
	}
}

// ParticleStore holds a fixed-size particle population shared between a
// mover and one or more collision scanners. Positions are guarded by a
// reader-writer lock; the collision counter is a separate lock-free
// atomic so accumulating scan results never contends with position
// access.
type ParticleStore struct {
	particles          []Particle
	enclosureSize      float64
	jitterRange        float64
	collisionThreshold float64
	mutex              sync.RWMutex
	collisions         atomic.Int64
}

// NewParticleStore creates a store of config.NumParticles particles at
// random positions drawn from rng
func NewParticleStore(config Config, rng *rand.Rand) *ParticleStore {
	particles := make([]Particle, config.NumParticles)
	for i := range particles {
		particles[i] = NewParticle(rng, config.EnclosureSize)
	}

	return &ParticleStore{
		particles:          particles,
		enclosureSize:      config.EnclosureSize,
		jitterRange:        config.JitterRange,
		collisionThreshold: config.CollisionThreshold,
	}
}

// NewParticleStoreWithPositions creates a store with a fixed initial
// layout, mainly for deterministic tests
func NewParticleStoreWithPositions(config Config, positions []Vector2D) *ParticleStore {
	particles := make([]Particle, len(positions))
	for i, pos := range positions {
		particles[i] = Particle{X: pos.X, Y: pos.Y}
	}

	return &ParticleStore{
		particles:          particles,
		enclosureSize:      config.EnclosureSize,
		jitterRange:        config.JitterRange,
		collisionThreshold: config.CollisionThreshold,
	}
}

// Size returns the number of particles; constant for the store's lifetime
func (ps *ParticleStore) Size() int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()
	return len(ps.particles)
}

// MoveAll perturbs every particle once, in index order, under the
// exclusive lock
func (ps *ParticleStore) MoveAll(rng *rand.Rand) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for i := range ps.particles {
		ps.particles[i].Move(rng, ps.jitterRange, ps.enclosureSize)
	}
}

// ScanCollisions counts colliding pairs under the shared read lock and
// returns the count for this single scan. It does not touch the shared
// counter; callers accumulate via AddCollisions after the lock is
// released.
func (ps *ParticleStore) ScanCollisions() int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	count := 0
	for i := 0; i < len(ps.particles); i++ {
		for j := i + 1; j < len(ps.particles); j++ {
			if ps.particles[i].Collide(ps.particles[j], ps.collisionThreshold) {
				count++
			}
		}
	}
	return count
}

// AddCollisions atomically adds n to the shared collision counter.
// Safe to call from any number of scanners with no other locking.
func (ps *ParticleStore) AddCollisions(n int) {
	ps.collisions.Add(int64(n))
}

// TotalCollisions atomically reads the accumulated collision count
func (ps *ParticleStore) TotalCollisions() int64 {
	return ps.collisions.Load()
}

// Positions returns a snapshot of all particle positions, index-ordered
func (ps *ParticleStore) Positions() []Vector2D {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	positions := make([]Vector2D, len(ps.particles))
	for i, p := range ps.particles {
		positions[i] = Vector2D{X: p.X, Y: p.Y}
	}
	return positions
}

// Result holds the outcome of a completed run
type Result struct {
	TotalCollisions int64
	FinalPositions  []Vector2D
	MoveIterations  int64
	ScanIterations  int64
	Elapsed         time.Duration
}

// Simulation orchestrates one mover and NumScanners collision scanners
// over a shared store for a fixed wall-clock duration
type Simulation struct {
	config         Config
	store          *ParticleStore
	moveIterations atomic.Int64
	scanIterations atomic.Int64
}

// NewSimulation creates a simulation with randomized initial positions
// drawn from config.Seed
func NewSimulation(config Config) *Simulation {
	if config.NumScanners < 1 {
		config.NumScanners = 1
	}

	rng := rand.New(rand.NewSource(config.Seed))
	return &Simulation{
		config: config,
		store:  NewParticleStore(config, rng),
	}
}

// Store exposes the shared store for monitors and live observers
func (s *Simulation) Store() *ParticleStore {
	return s.store
}

// MoveIterations returns the number of completed move passes
func (s *Simulation) MoveIterations() int64 {
	return s.moveIterations.Load()
}

// ScanIterations returns the number of completed collision scans
func (s *Simulation) ScanIterations() int64 {
	return s.scanIterations.Load()
}

// Run starts the mover and scanner goroutines, lets each run until its
// own clock exceeds the configured duration, and joins them. If any
// activity fails, Run returns the failure instead of a result so a
// broken run is never reported as a completed one.
func (s *Simulation) Run() (*Result, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, 1+s.config.NumScanners)

	start := time.Now()

	wg.Add(1)
	go s.mover(&wg, errChan)

	for i := 0; i < s.config.NumScanners; i++ {
		wg.Add(1)
		go s.scanner(i, &wg, errChan)
	}

	wg.Wait()
	elapsed := time.Since(start)

	select {
	case err := <-errChan:
		return nil, err
	default:
	}

	return &Result{
		TotalCollisions: s.store.TotalCollisions(),
		FinalPositions:  s.store.Positions(),
		MoveIterations:  s.moveIterations.Load(),
		ScanIterations:  s.scanIterations.Load(),
		Elapsed:         elapsed,
	}, nil
}

// mover repeatedly takes the exclusive lock and perturbs every particle,
// as fast as lock acquisition allows, until its elapsed time runs out
func (s *Simulation) mover(wg *sync.WaitGroup, errChan chan<- error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			errChan <- fmt.Errorf("mover failed: %v", r)
		}
	}()

	rng := rand.New(rand.NewSource(s.config.Seed + 1))
	start := time.Now()

	for time.Since(start) < s.config.Duration {
		s.store.MoveAll(rng)
		s.moveIterations.Add(1)
	}
}

// scanner repeatedly scans all pairs under the read lock, then folds the
// per-scan count into the shared counter outside the lock. Multiple
// scanners may scan concurrently with each other.
func (s *Simulation) scanner(id int, wg *sync.WaitGroup, errChan chan<- error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			errChan <- fmt.Errorf("scanner %d failed: %v", id, r)
		}
	}()

	start := time.Now()

	for time.Since(start) < s.config.Duration {
		count := s.store.ScanCollisions()
		s.store.AddCollisions(count)
		s.scanIterations.Add(1)
	}
}

// Monitor periodically prints live readings from a running simulation
type Monitor struct {
	sim      *Simulation
	interval time.Duration
	stopChan chan bool
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor sampling the simulation at the given interval
func NewMonitor(sim *Simulation, interval time.Duration) *Monitor {
	return &Monitor{
		sim:      sim,
		interval: interval,
		stopChan: make(chan bool),
	}
}

// Start begins monitoring
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fmt.Printf("Collisions: %d, moves: %d, scans: %d\n",
					m.sim.Store().TotalCollisions(),
					m.sim.MoveIterations(),
					m.sim.ScanIterations())
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop stops monitoring and waits for the monitor goroutine to exit
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

func printPositions(positions []Vector2D) {
	for i, pos := range positions {
		fmt.Printf("Particle %d: (%f, %f)\n", i, pos.X, pos.Y)
	}
}

// Example runs the classic exercise: report initial positions, run the
// mover and scanner concurrently for the configured duration, then
// report the collision total and final positions
func Example() {
	fmt.Println("=== Particle Enclosure Simulation ===")

	config := DefaultConfig()
	config.Duration = 2 * time.Second
	sim := NewSimulation(config)

	fmt.Println("Initial positions:")
	printPositions(sim.Store().Positions())

	monitor := NewMonitor(sim, 500*time.Millisecond)
	monitor.Start()

	result, err := sim.Run()
	monitor.Stop()

	if err != nil {
		fmt.Printf("\nRun failed: %v\n", err)
		return
	}

	fmt.Printf("\nTotal collisions: %d\n", result.TotalCollisions)
	fmt.Printf("Moves: %d, scans: %d in %v\n",
		result.MoveIterations, result.ScanIterations, result.Elapsed)

	fmt.Println("\nUpdated positions after simulation:")
	printPositions(result.FinalPositions)
}
