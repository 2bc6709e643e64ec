package livemonitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandeepkv93/particle-enclosure-sim/particlesim"
)

// Snapshot is one observation of a running simulation
type Snapshot struct {
	Timestamp       time.Time              `json:"timestamp"`
	TotalCollisions int64                  `json:"total_collisions"`
	MoveIterations  int64                  `json:"move_iterations"`
	ScanIterations  int64                  `json:"scan_iterations"`
	Positions       []particlesim.Vector2D `json:"positions"`
}

// ServerConfig contains configuration for the live monitor server
type ServerConfig struct {
	Addr           string
	SampleInterval time.Duration
	SendQueueSize  int
}

// DefaultServerConfig returns a monitor sampling every 100ms on an
// ephemeral port
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":0",
		SampleInterval: 100 * time.Millisecond,
		SendQueueSize:  16,
	}
}

// client is one connected WebSocket observer
type client struct {
	conn      *websocket.Conn
	sendQueue chan []byte
}

// Server broadcasts live snapshots of a running simulation over
// WebSocket. It is a pure read-side consumer of the store: sampling
// takes the same shared read access as the collision scanners and never
// blocks the atomic counter.
type Server struct {
	config     ServerConfig
	sim        *particlesim.Simulation
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	mutex      sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
}

// NewServer creates a live monitor for the given simulation
func NewServer(config ServerConfig, sim *particlesim.Simulation) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	if config.SendQueueSize <= 0 {
		config.SendQueueSize = 16
	}
	if config.SampleInterval <= 0 {
		config.SampleInterval = 100 * time.Millisecond
	}

	return &Server{
		config:  config,
		sim:     sim,
		clients: make(map[*client]bool),
		ctx:     ctx,
		cancel:  cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start begins listening and broadcasting
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return errors.New("live monitor is already running")
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("live monitor listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.httpServer = &http.Server{Handler: mux}

	s.running = true

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Live monitor server error: %v", err)
		}
	}()

	s.wg.Add(1)
	go s.broadcaster()

	return nil
}

// Stop shuts the server down and disconnects all observers
func (s *Server) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return errors.New("live monitor is not running")
	}
	s.running = false
	s.mutex.Unlock()

	s.cancel()
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)

	s.mutex.Lock()
	for c := range s.clients {
		close(c.sendQueue)
		delete(s.clients, c)
	}
	s.mutex.Unlock()

	return err
}

// Addr returns the bound listen address, useful with ":0" configs
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ClientCount returns the number of connected observers
func (s *Server) ClientCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

// snapshot samples the simulation under shared read access
func (s *Server) snapshot() *Snapshot {
	store := s.sim.Store()
	return &Snapshot{
		Timestamp:       time.Now(),
		TotalCollisions: store.TotalCollisions(),
		MoveIterations:  s.sim.MoveIterations(),
		ScanIterations:  s.sim.ScanIterations(),
		Positions:       store.Positions(),
	}
}

// broadcaster samples the store on a ticker and fans out to clients.
// Slow clients get dropped rather than blocking the broadcast.
func (s *Server) broadcaster() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			data, err := json.Marshal(s.snapshot())
			if err != nil {
				log.Printf("Live monitor snapshot encode error: %v", err)
				continue
			}

			s.mutex.Lock()
			for c := range s.clients {
				select {
				case c.sendQueue <- data:
				default:
					close(c.sendQueue)
					delete(s.clients, c)
				}
			}
			s.mutex.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Live monitor upgrade error: %v", err)
		return
	}

	c := &client{
		conn:      conn,
		sendQueue: make(chan []byte, s.config.SendQueueSize),
	}

	s.mutex.Lock()
	s.clients[c] = true
	s.mutex.Unlock()

	go s.sender(c)
	go s.reader(c)
}

// sender drains the client's queue onto the wire; a closed queue or a
// failed write ends the connection
func (s *Server) sender(c *client) {
	defer c.conn.Close()

	for data := range c.sendQueue {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.removeClient(c)
			return
		}
	}
}

// reader consumes (and discards) incoming frames so close handshakes
// and pings are processed, and removes the client when it disconnects
func (s *Server) reader(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.removeClient(c)
			return
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.clients[c] {
		close(c.sendQueue)
		delete(s.clients, c)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshot())
}

// Example runs a short simulation with a live monitor attached
func Example() {
	fmt.Println("=== Live Monitored Particle Run ===")

	config := particlesim.DefaultConfig()
	config.Duration = 2 * time.Second
	sim := particlesim.NewSimulation(config)

	server := NewServer(DefaultServerConfig(), sim)
	if err := server.Start(); err != nil {
		fmt.Printf("Monitor failed to start: %v\n", err)
		return
	}
	defer server.Stop()

	fmt.Printf("Live monitor listening on http://%s/snapshot (ws://%s/ws)\n",
		server.Addr(), server.Addr())

	result, err := sim.Run()
	if err != nil {
		fmt.Printf("Run failed: %v\n", err)
		return
	}

	fmt.Printf("Total collisions: %d\n", result.TotalCollisions)
	fmt.Printf("Moves: %d, scans: %d in %v\n",
		result.MoveIterations, result.ScanIterations, result.Elapsed)
}
