package lidar

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/banshee-data/hamilton/internal/monitoring"
	"github.com/banshee-data/hamilton/internal/serialport"
	"github.com/banshee-data/hamilton/internal/timeutil"
)

const (
	// DefaultScanFreshness is how long a stored scan stays usable.
	DefaultScanFreshness = 500 * time.Millisecond
	// idleInterval is how often a scanner with its motor stopped rechecks
	// whether it should spin again.
	idleInterval = 500 * time.Millisecond

	defaultReopenInitial = 100 * time.Millisecond
	defaultReopenMax     = 5 * time.Second
)

var logf = monitoring.Subsystem("lidar")

// ScannerOptions configures a RangeScanner. Zero values take defaults.
type ScannerOptions struct {
	Port      string
	Freshness time.Duration
	Clock     timeutil.Clock
	// Open defaults to an RPLIDAR on a real serial port.
	Open DeviceOpener
	// ReopenInitial and ReopenMax bound the exponential backoff between
	// attempts to (re)open a failed device.
	ReopenInitial time.Duration
	ReopenMax     time.Duration
}

// RangeScanner owns a background worker that keeps the latest scan of a
// Device. Spinning and shutdown are controlled by two flags the worker
// checks on every pass.
type RangeScanner struct {
	port      string
	open      DeviceOpener
	freshness time.Duration
	clock     timeutil.Clock
	backoff   *backoff.ExponentialBackOff

	shouldExit atomic.Bool
	shouldSpin atomic.Bool
	started    atomic.Bool

	mu   sync.Mutex
	last *Scan

	exit     chan struct{}
	exitOnce sync.Once
	done     chan struct{}

	scans    atomic.Uint64
	restarts atomic.Uint64
}

// NewRangeScanner builds a scanner without starting it. The motor is
// requested to spin.
func NewRangeScanner(opts ScannerOptions) *RangeScanner {
	if opts.Port == "" {
		opts.Port = DefaultPort
	}
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultScanFreshness
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Open == nil {
		opts.Open = RPLidarOpener(serialport.Open)
	}
	if opts.ReopenInitial <= 0 {
		opts.ReopenInitial = defaultReopenInitial
	}
	if opts.ReopenMax <= 0 {
		opts.ReopenMax = defaultReopenMax
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.ReopenInitial
	b.MaxInterval = opts.ReopenMax
	b.Reset()

	s := &RangeScanner{
		port:      opts.Port,
		open:      opts.Open,
		freshness: opts.Freshness,
		clock:     opts.Clock,
		backoff:   b,
		exit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.shouldSpin.Store(true)
	return s
}

// Open builds a scanner and starts its worker.
func Open(opts ScannerOptions) *RangeScanner {
	s := NewRangeScanner(opts)
	s.Start()
	return s
}

// Start launches the worker. Calling it more than once has no effect.
func (s *RangeScanner) Start() {
	if s.started.Swap(true) {
		return
	}
	go s.run()
}

// StartMotor requests the scanner to spin.
func (s *RangeScanner) StartMotor() {
	s.shouldSpin.Store(true)
}

// StopMotor requests the scanner to stop spinning. The last scan ages out.
func (s *RangeScanner) StopMotor() {
	s.shouldSpin.Store(false)
}

// Spinning reports whether spinning is requested.
func (s *RangeScanner) Spinning() bool {
	return s.shouldSpin.Load()
}

// LastScan returns a copy of the stored scan if it is younger than the
// freshness window.
func (s *RangeScanner) LastScan() (Scan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || !timeutil.Fresh(s.clock.Now(), s.last.CapturedAt, s.freshness) {
		return Scan{}, false
	}
	return Scan{Points: slices.Clone(s.last.Points), CapturedAt: s.last.CapturedAt}, true
}

func (s *RangeScanner) store(points []ScanPoint) {
	scan := &Scan{Points: points, CapturedAt: s.clock.Now()}
	s.mu.Lock()
	s.last = scan
	s.mu.Unlock()
	s.scans.Add(1)
}

// Stop asks the worker to exit and waits for it or for ctx.
func (s *RangeScanner) Stop(ctx context.Context) error {
	s.shouldSpin.Store(false)
	s.shouldExit.Store(true)
	s.exitOnce.Do(func() { close(s.exit) })
	if !s.started.Load() {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait sleeps for d on the scanner clock. It returns false if Stop was
// called meanwhile.
func (s *RangeScanner) wait(d time.Duration) bool {
	select {
	case <-s.exit:
		return false
	case <-s.clock.After(d):
		return true
	}
}

func (s *RangeScanner) run() {
	defer close(s.done)
	for !s.shouldExit.Load() {
		logf("opening range scanner on %s", s.port)
		dev, err := s.open(s.port)
		if err != nil {
			logf("failed to open range scanner: %v", err)
		} else {
			var scans int
			scans, err = s.scan(dev)
			if cerr := dev.Close(); cerr != nil {
				logf("closing range scanner: %v", cerr)
			}
			if err == nil {
				continue
			}
			logf("range scanner failed after %d scans: %v", scans, err)
			if scans > 0 {
				s.backoff.Reset()
			}
		}
		if s.shouldExit.Load() {
			return
		}
		s.restarts.Add(1)
		delay := s.backoff.NextBackOff()
		logf("reopening range scanner in %v", delay)
		if !s.wait(delay) {
			return
		}
	}
}

// scan runs the device until exit is requested (nil) or it fails.
func (s *RangeScanner) scan(dev Device) (int, error) {
	scans := 0
	if err := dev.StartMotor(); err != nil {
		return scans, err
	}
	if err := dev.StartScan(); err != nil {
		return scans, err
	}
	spinning := true

	for !s.shouldExit.Load() {
		if s.shouldSpin.Load() {
			if !spinning {
				spinning = true
				if err := dev.StartMotor(); err != nil {
					return scans, err
				}
				if err := dev.StartScan(); err != nil {
					return scans, err
				}
			}
			points, err := dev.GrabScan()
			if errors.Is(err, ErrTimeout) {
				continue
			}
			if err != nil {
				return scans, err
			}
			SortScan(points)
			s.store(points)
			scans++
			continue
		}

		if spinning {
			spinning = false
			if err := dev.StopMotor(); err != nil {
				return scans, err
			}
			if err := dev.Stop(); err != nil {
				return scans, err
			}
		}
		if !s.wait(idleInterval) {
			break
		}
	}

	if spinning {
		if err := dev.Stop(); err != nil {
			logf("stopping scan: %v", err)
		}
		if err := dev.StopMotor(); err != nil {
			logf("stopping scanner motor: %v", err)
		}
	}
	return scans, nil
}

// ScannerStatus summarises the worker for debug pages.
type ScannerStatus struct {
	Port       string        `json:"port"`
	Spinning   bool          `json:"spinning"`
	Scans      uint64        `json:"scans"`
	Restarts   uint64        `json:"restarts"`
	HaveScan   bool          `json:"have_scan"`
	ScanAge    time.Duration `json:"scan_age"`
	ScanPoints int           `json:"scan_points"`
}

// Status reports counters and the age of the stored scan, fresh or not.
func (s *RangeScanner) Status() ScannerStatus {
	st := ScannerStatus{
		Port:     s.port,
		Spinning: s.shouldSpin.Load(),
		Scans:    s.scans.Load(),
		Restarts: s.restarts.Load(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		st.HaveScan = true
		st.ScanAge = s.clock.Since(s.last.CapturedAt)
		st.ScanPoints = len(s.last.Points)
	}
	return st
}
