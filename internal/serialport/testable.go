package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestablePort is an in-memory Port. Reads drain ReadBuffer, writes land in
// WriteBuffer, and OnWrite can script device replies.
type TestablePort struct {
	mu sync.Mutex

	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer

	// OnWrite receives a copy of every write; its result is queued for
	// reading.
	OnWrite func(p []byte) []byte

	// ReadError and WriteError fail the next call only.
	ReadError  error
	WriteError error
	// ShortWrite reports one byte fewer than written.
	ShortWrite bool

	Closed      bool
	DTR         bool
	DTRChanges  []bool
	ReadTimeout time.Duration
	ReadCalls   int
	WriteCalls  int
}

// NewTestablePort returns an empty port.
func NewTestablePort() *TestablePort {
	return &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

// Read drains queued data. With nothing queued it behaves like a serial read
// that hit its timeout and returns 0, nil.
func (t *TestablePort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	if t.ReadBuffer.Len() == 0 {
		return 0, nil
	}
	return t.ReadBuffer.Read(p)
}

// Write records p and queues any scripted reply.
func (t *TestablePort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	t.WriteBuffer.Write(p)
	if t.OnWrite != nil {
		t.ReadBuffer.Write(t.OnWrite(append([]byte(nil), p...)))
	}
	if t.ShortWrite && len(p) > 0 {
		return len(p) - 1, nil
	}
	return len(p), nil
}

// Close marks the port as closed.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return nil
}

// SetReadTimeout implements Port.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// SetDTR implements Port.
func (t *TestablePort) SetDTR(dtr bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.DTR = dtr
	t.DTRChanges = append(t.DTRChanges, dtr)
	return nil
}

// ResetInputBuffer implements Port.
func (t *TestablePort) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Reset()
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
}

// GetWrittenData returns a copy of all data written to the port.
func (t *TestablePort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}

// IsClosed reports whether Close was called.
func (t *TestablePort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Closed
}

// MockOpener hands out a fixed port (or error) and records every call.
type MockOpener struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port Port

	// Error is returned by Open if set
	Error error

	// Calls records the path of every Open call
	Calls []string
}

// Open implements Opener.
func (m *MockOpener) Open(path string, opts PortOptions) (Port, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, path)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Port, nil
}

// CallCount returns the number of Open calls so far.
func (m *MockOpener) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
