package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
)

// Well-known broadcast ports, one per protocol generation.
const (
	Port31 = 6666
	Port33 = 6667
)

// subscriberBuffer is the per-subscriber event channel depth. A consumer
// that falls this far behind starts losing announcements (logged), rather
// than stalling the read loop.
const subscriberBuffer = 64

// readBufferSize comfortably holds any presence datagram.
const readBufferSize = 2048

// Callback receives de-duplicated scan results.
//
// Callbacks run on a dedicated per-subscriber goroutine; a panic inside one
// is recovered and logged and never reaches the socket read loop or other
// subscribers.
type Callback func(ScanResult)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscriber is one registered consumer with its private event queue.
type subscriber struct {
	ch chan ScanResult
}

// Scanner listens for presence broadcasts on both generation ports and fans
// de-duplicated ScanResults out to subscribers.
//
// The sockets are bound lazily when the first subscriber registers and
// closed when the last one is removed; both transitions are idempotent.
type Scanner struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	seen        map[ScanResult]struct{}
	conns       []net.PacketConn
	running     bool

	logger Logger

	// listen is swappable for tests.
	listen func(port int) (net.PacketConn, error)
}

// NewScanner creates a Scanner. No sockets are bound until the first
// subscriber is added.
func NewScanner() *Scanner {
	return &Scanner{
		subscribers: make(map[string]*subscriber),
		seen:        make(map[ScanResult]struct{}),
		listen:      listenBroadcast,
	}
}

// SetLogger sets a logger for dropped datagrams and subscriber overflow.
func (s *Scanner) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Seen returns a snapshot of every unique announcement observed over the
// scanner's lifetime. The set is not cleared when the sockets stop, so a
// result reported once is never reported again by the same scanner.
func (s *Scanner) Seen() []ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]ScanResult, 0, len(s.seen))
	for r := range s.seen {
		results = append(results, r)
	}
	return results
}

// AddListener registers a callback for discovery events and lazily starts
// the broadcast sockets.
//
// Parameters:
//   - cb: Invoked once per unique ScanResult, on a dedicated goroutine
//
// Returns:
//   - func(): Removes the listener; removing the last one stops the sockets
//   - error: ErrListenFailed if the sockets cannot be bound
func (s *Scanner) AddListener(cb Callback) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.startLocked(); err != nil {
		return nil, err
	}

	key := uuid.NewString()
	sub := &subscriber{ch: make(chan ScanResult, subscriberBuffer)}
	s.subscribers[key] = sub

	go s.deliver(sub, cb)

	remove := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if existing, ok := s.subscribers[key]; ok {
			delete(s.subscribers, key)
			close(existing.ch)
		}
		if len(s.subscribers) == 0 {
			s.stopLocked()
		}
	}
	return remove, nil
}

// deliver drains one subscriber's queue, isolating callback panics.
func (s *Scanner) deliver(sub *subscriber, cb Callback) {
	for result := range sub.ch {
		s.invoke(cb, result)
	}
}

// invoke runs a callback, recovering panics so a failing consumer cannot
// break discovery for others.
func (s *Scanner) invoke(cb Callback, result ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			if logger := s.getLogger(); logger != nil {
				logger.Warn("discovery callback panic recovered",
					"device_id", result.GwID,
					"panic", r,
				)
			}
		}
	}()
	cb(result)
}

func (s *Scanner) getLogger() Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// startLocked binds both broadcast sockets and starts their read loops.
// No-op when already running. Caller holds s.mu.
func (s *Scanner) startLocked() error {
	if s.running {
		return nil
	}

	ports := []struct {
		port      int
		encrypted bool
	}{
		{port: Port31, encrypted: false},
		{port: Port33, encrypted: true},
	}

	conns := make([]net.PacketConn, 0, len(ports))
	for _, p := range ports {
		conn, err := s.listen(p.port)
		if err != nil {
			for _, open := range conns {
				open.Close() //nolint:errcheck // unwinding partial start
			}
			return fmt.Errorf("%w: port %d: %w", ErrListenFailed, p.port, err)
		}
		conns = append(conns, conn)
		go s.readLoop(conn, p.encrypted)
	}

	s.conns = conns
	s.running = true
	return nil
}

// stopLocked closes the sockets, ending the read loops. No-op when not
// running. Caller holds s.mu.
func (s *Scanner) stopLocked() {
	if !s.running {
		return
	}
	for _, conn := range s.conns {
		conn.Close() //nolint:errcheck // shutdown path
	}
	s.conns = nil
	s.running = false

	if s.logger != nil {
		s.logger.Debug("discovery stopped")
	}
}

// readLoop receives datagrams until the socket is closed.
func (s *Scanner) readLoop(conn net.PacketConn, encrypted bool) {
	buf := make([]byte, readBufferSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			// Socket closed by stopLocked, or a fatal receive error;
			// either way this loop is done.
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		s.handleDatagram(data, encrypted)
	}
}

// handleDatagram decodes one datagram and publishes the result if it has not
// been seen before. Malformed datagrams are dropped with a debug log; the
// network is full of unrelated broadcast noise.
func (s *Scanner) handleDatagram(data []byte, encrypted bool) {
	result, err := parseDatagram(data, encrypted)
	if err != nil {
		if logger := s.getLogger(); logger != nil {
			logger.Debug("dropping datagram", "error", err)
		}
		return
	}
	s.publish(result)
}

// publish records a new result and fans it out to every subscriber queue.
// Results equal to one already seen are dropped silently.
func (s *Scanner) publish(result ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[result]; dup {
		return
	}
	s.seen[result] = struct{}{}

	for _, sub := range s.subscribers {
		select {
		case sub.ch <- result:
		default:
			if s.logger != nil {
				s.logger.Warn("discovery subscriber queue full, dropping event",
					"device_id", result.GwID,
				)
			}
		}
	}
}

// listenBroadcast binds a broadcast-capable IPv4 UDP socket on the port.
func listenBroadcast(port int) (net.PacketConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
}
