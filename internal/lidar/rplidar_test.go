package lidar

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/serialport"
)

var scanDescriptor = []byte{0xA5, 0x5A, 0x05, 0x00, 0x00, 0x40, 0x81}

// node encodes one legacy-scan measurement.
func node(angleDeg, distMM float64, start bool) []byte {
	q6 := uint16(angleDeg * 64)
	d := uint16(distMM * 4)
	b0 := byte(15 << 2)
	if start {
		b0 |= 0x01
	} else {
		b0 |= 0x02
	}
	return []byte{b0, byte(q6&0x7F)<<1 | 0x01, byte(q6 >> 7), byte(d), byte(d >> 8)}
}

func revolution(startDeg float64) []byte {
	var out []byte
	out = append(out, node(startDeg, 1000, true)...)
	out = append(out, node(startDeg+90, 1000, false)...)
	out = append(out, node(startDeg+180, 500, false)...)
	out = append(out, node(startDeg+270, 0, false)...)
	return out
}

func newScanningLidar(t *testing.T, data []byte) (*RPLidar, *serialport.TestablePort) {
	t.Helper()
	port := serialport.NewTestablePort()
	port.OnWrite = func(p []byte) []byte {
		if bytes.Equal(p, []byte{0xA5, 0x20}) {
			return append(append([]byte{}, scanDescriptor...), data...)
		}
		return nil
	}
	d, err := NewRPLidar(port)
	require.NoError(t, err)
	d.scanWait = 50 * time.Millisecond
	require.NoError(t, d.StartScan())
	return d, port
}

func TestDecodeNode(t *testing.T) {
	p, start, ok := decodeNode(node(90, 1000, true))
	require.True(t, ok)
	assert.True(t, start)
	assert.InDelta(t, math.Pi/2, p.Angle, 1e-9)
	assert.InDelta(t, 1.0, p.Distance, 1e-9)
	assert.Equal(t, uint8(15), p.Quality)
	assert.True(t, p.Valid)

	p, _, ok = decodeNode(node(10, 0, false))
	require.True(t, ok)
	assert.False(t, p.IsValid())

	_, _, ok = decodeNode([]byte{0x00, 0x01, 0, 0, 0})
	assert.False(t, ok, "start and inverse start bits equal")
	_, _, ok = decodeNode([]byte{0x01, 0x00, 0, 0, 0})
	assert.False(t, ok, "check bit clear")
}

func TestRPLidar_GrabScan(t *testing.T) {
	data := append(revolution(0), node(1, 1000, true)...)
	d, port := newScanningLidar(t, data)

	assert.Equal(t, []byte{0xA5, 0x20}, port.GetWrittenData())

	scan, err := d.GrabScan()
	require.NoError(t, err)
	require.Len(t, scan, 4)
	assert.InDelta(t, 0, scan[0].Angle, 1e-9)
	assert.InDelta(t, math.Pi, scan[2].Angle, 1e-9)
	assert.InDelta(t, 0.5, scan[2].Distance, 1e-9)
	assert.False(t, scan[3].Valid)
}

func TestRPLidar_GrabScanResyncs(t *testing.T) {
	data := append([]byte{0x00, 0xFC}, revolution(0)...)
	data = append(data, node(1, 1000, true)...)
	d, _ := newScanningLidar(t, data)

	scan, err := d.GrabScan()
	require.NoError(t, err)
	assert.Len(t, scan, 4)
}

func TestRPLidar_GrabScanTimeout(t *testing.T) {
	d, _ := newScanningLidar(t, revolution(0))

	_, err := d.GrabScan()
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRPLidar_StartScanBadDescriptor(t *testing.T) {
	port := serialport.NewTestablePort()
	port.OnWrite = func(p []byte) []byte {
		return []byte{0xA5, 0x5A, 0x14, 0x00, 0x00, 0x00, 0x04}
	}
	d, err := NewRPLidar(port)
	require.NoError(t, err)
	assert.Error(t, d.StartScan())
}

func TestRPLidar_MotorAndStop(t *testing.T) {
	port := serialport.NewTestablePort()
	d, err := NewRPLidar(port)
	require.NoError(t, err)
	assert.Equal(t, rpReadTimeout, port.ReadTimeout)

	require.NoError(t, d.StartMotor())
	require.NoError(t, d.StopMotor())
	assert.Equal(t, []bool{false, true}, port.DTRChanges)

	require.NoError(t, d.Stop())
	assert.Equal(t, []byte{0xA5, 0x25}, port.GetWrittenData())

	require.NoError(t, d.Close())
	assert.True(t, port.IsClosed())
}

func TestRPLidarOpener(t *testing.T) {
	opener := &serialport.MockOpener{Port: serialport.NewTestablePort()}
	dev, err := RPLidarOpener(opener.Open)("/dev/rplidar")
	require.NoError(t, err)
	assert.IsType(t, &RPLidar{}, dev)
	assert.Equal(t, []string{"/dev/rplidar"}, opener.Calls)
}
