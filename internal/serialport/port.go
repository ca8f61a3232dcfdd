// Package serialport abstracts the serial links used by the motor driver and
// the range scanner so both can be exercised without hardware.
package serialport

import (
	"errors"
	"io"
	"time"

	"go.bug.st/serial"
)

var ErrWriteFailed = errors.New("failed to write to serial port")

// Port is the subset of go.bug.st/serial.Port the device drivers rely on.
type Port interface {
	io.ReadWriteCloser
	// SetReadTimeout bounds each Read. A Read that times out returns 0, nil.
	SetReadTimeout(timeout time.Duration) error
	// SetDTR drives the DTR line (RPLIDAR A-series use it as motor enable).
	SetDTR(dtr bool) error
	// ResetInputBuffer discards unread bytes.
	ResetInputBuffer() error
}

// Opener opens a serial port at path with the given options. It is the
// injection point tests use to substitute a TestablePort.
type Opener func(path string, opts PortOptions) (Port, error)

// Open is the production Opener backed by go.bug.st/serial.
func Open(path string, opts PortOptions) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// WriteAll writes p in a single call and reports a short write as
// ErrWriteFailed.
func WriteAll(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrWriteFailed
	}
	return nil
}
