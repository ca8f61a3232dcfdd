package localisation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/hamilton/internal/marker"
)

const (
	// DefaultMulticastAddress is the group the IR tracker broadcasts on.
	DefaultMulticastAddress = "239.0.0.22:7071"
	// QueueSize bounds the observations waiting for the tracker.
	QueueSize = 10
)

// UDPSocket is the subset of *net.UDPConn the listener uses.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// SocketFactory opens the receiving socket for addr.
type SocketFactory func(addr *net.UDPAddr) (UDPSocket, error)

// ListenMulticast joins the multicast group addr on the default interface.
func ListenMulticast(addr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MarkerListenerConfig configures a MarkerListener.
type MarkerListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Listen      SocketFactory
}

// ListenerStats counts datagrams handled by a MarkerListener.
type ListenerStats struct {
	Received     uint64 `json:"received"`
	DecodeErrors uint64 `json:"decode_errors"`
	Dropped      uint64 `json:"dropped"`
}

// MarkerListener receives tracker frames over UDP and queues them as
// observations.
type MarkerListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	listen      SocketFactory
	out         chan Observation

	received     atomic.Uint64
	decodeErrors atomic.Uint64
	dropped      atomic.Uint64
}

// NewMarkerListener applies defaults to cfg.
func NewMarkerListener(cfg MarkerListenerConfig) *MarkerListener {
	if cfg.Address == "" {
		cfg.Address = DefaultMulticastAddress
	}
	if cfg.LogInterval == 0 {
		cfg.LogInterval = time.Minute
	}
	if cfg.Listen == nil {
		cfg.Listen = ListenMulticast
	}
	return &MarkerListener{
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: cfg.LogInterval,
		listen:      cfg.Listen,
		out:         make(chan Observation, QueueSize),
	}
}

// Observations is the channel a Tracker consumes. It is closed when Start
// returns.
func (l *MarkerListener) Observations() <-chan Observation {
	return l.out
}

// Stats returns the counters so far.
func (l *MarkerListener) Stats() ListenerStats {
	return ListenerStats{
		Received:     l.received.Load(),
		DecodeErrors: l.decodeErrors.Load(),
		Dropped:      l.dropped.Load(),
	}
}

// Start receives until ctx is done. It must be called at most once.
func (l *MarkerListener) Start(ctx context.Context) error {
	defer close(l.out)

	addr, err := net.ResolveUDPAddr("udp4", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.listen(addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			logf("Warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}
	logf("marker listener started on %s", l.address)

	lastLog := time.Now()
	buffer := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			logf("marker listener stopping: %v", ctx.Err())
			return ctx.Err()
		default:
		}

		if time.Since(lastLog) >= l.logInterval {
			s := l.Stats()
			logf("marker listener: %d frames, %d undecodable, %d dropped", s.Received, s.DecodeErrors, s.Dropped)
			lastLog = time.Now()
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			logf("UDP read error: %v", err)
			continue
		}

		l.received.Add(1)
		frame, err := marker.Decode(buffer[:n])
		if err != nil {
			l.decodeErrors.Add(1)
			logf("bad frame from %v: %v", from, err)
			continue
		}
		l.enqueue(frame)
	}
}

// enqueue never blocks: when the tracker falls behind the oldest queued
// observation is discarded in favour of the new one.
func (l *MarkerListener) enqueue(obs Observation) {
	for {
		select {
		case l.out <- obs:
			return
		default:
		}
		select {
		case <-l.out:
			l.dropped.Add(1)
		default:
		}
	}
}
