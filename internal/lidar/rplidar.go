package lidar

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/hamilton/internal/serialport"
)

// RPLIDAR A-series serial protocol.
const (
	rpSyncByte     = 0xA5
	rpSyncByte2    = 0x5A
	rpCmdStop      = 0x25
	rpCmdScan      = 0x20
	rpScanDataType = 0x81
	rpNodeSize     = 5
	rpDescSize     = 7

	rpReadTimeout     = 50 * time.Millisecond
	rpDescriptorWait  = time.Second
	rpDefaultScanWait = 2 * time.Second
)

// RPLidar drives an RPLIDAR A1/A2 in legacy scan mode. The motor is switched
// through the adapter's DTR line: low runs the motor.
type RPLidar struct {
	port     serialport.Port
	scanWait time.Duration

	buf     []byte
	pending []ScanPoint
}

// NewRPLidar wraps an open port.
func NewRPLidar(port serialport.Port) (*RPLidar, error) {
	if err := port.SetReadTimeout(rpReadTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &RPLidar{port: port, scanWait: rpDefaultScanWait}, nil
}

// RPLidarOpener adapts a serial opener into a DeviceOpener.
func RPLidarOpener(opener serialport.Opener) DeviceOpener {
	return func(path string) (Device, error) {
		port, err := opener(path, serialport.PortOptions{BaudRate: serialport.DefaultBaudRate})
		if err != nil {
			return nil, err
		}
		d, err := NewRPLidar(port)
		if err != nil {
			port.Close()
			return nil, err
		}
		return d, nil
	}
}

func (d *RPLidar) command(cmd byte) error {
	return serialport.WriteAll(d.port, []byte{rpSyncByte, cmd})
}

// StartMotor implements Device.
func (d *RPLidar) StartMotor() error {
	return d.port.SetDTR(false)
}

// StopMotor implements Device.
func (d *RPLidar) StopMotor() error {
	return d.port.SetDTR(true)
}

// Stop implements Device.
func (d *RPLidar) Stop() error {
	if err := d.command(rpCmdStop); err != nil {
		return err
	}
	d.buf = d.buf[:0]
	d.pending = nil
	return d.port.ResetInputBuffer()
}

// StartScan implements Device. It waits for the response descriptor.
func (d *RPLidar) StartScan() error {
	if err := d.port.ResetInputBuffer(); err != nil {
		return err
	}
	d.buf = d.buf[:0]
	d.pending = nil
	if err := d.command(rpCmdScan); err != nil {
		return err
	}

	deadline := time.Now().Add(rpDescriptorWait)
	for {
		if i := bytes.Index(d.buf, []byte{rpSyncByte, rpSyncByte2}); i >= 0 && len(d.buf)-i >= rpDescSize {
			desc := d.buf[i : i+rpDescSize]
			if desc[6] != rpScanDataType {
				return fmt.Errorf("unexpected scan descriptor % x", desc)
			}
			d.buf = append(d.buf[:0], d.buf[i+rpDescSize:]...)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("scan descriptor: %w", ErrTimeout)
		}
		if err := d.fill(); err != nil {
			return err
		}
	}
}

func (d *RPLidar) fill() error {
	chunk := make([]byte, 256)
	n, err := d.port.Read(chunk)
	if err != nil {
		return err
	}
	d.buf = append(d.buf, chunk[:n]...)
	return nil
}

// decodeNode parses one measurement. ok is false when the check bits are
// inconsistent, meaning the stream is out of step.
func decodeNode(b []byte) (p ScanPoint, start bool, ok bool) {
	s := b[0] & 0x01
	notS := (b[0] >> 1) & 0x01
	if s == notS || b[1]&0x01 != 1 {
		return ScanPoint{}, false, false
	}
	angleQ6 := uint16(b[1])>>1 | uint16(b[2])<<7
	distQ2 := uint16(b[3]) | uint16(b[4])<<8

	deg := float64(angleQ6) / 64
	p = ScanPoint{
		Angle:    math.Mod(deg, 360) * math.Pi / 180,
		Distance: float64(distQ2) / 4 / 1000,
		Quality:  b[0] >> 2,
		Valid:    distQ2 != 0,
	}
	return p, s == 1, true
}

// GrabScan implements Device. A revolution is complete when the next node
// with the start flag arrives.
func (d *RPLidar) GrabScan() ([]ScanPoint, error) {
	deadline := time.Now().Add(d.scanWait)
	for {
		for len(d.buf) >= rpNodeSize {
			p, start, ok := decodeNode(d.buf[:rpNodeSize])
			if !ok {
				d.buf = d.buf[1:]
				continue
			}
			d.buf = d.buf[rpNodeSize:]
			if start && len(d.pending) > 0 {
				scan := d.pending
				d.pending = []ScanPoint{p}
				return scan, nil
			}
			d.pending = append(d.pending, p)
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		if err := d.fill(); err != nil {
			return nil, fmt.Errorf("read scan: %w", err)
		}
	}
}

// Close stops the motor and releases the port.
func (d *RPLidar) Close() error {
	d.port.SetDTR(true)
	return d.port.Close()
}
