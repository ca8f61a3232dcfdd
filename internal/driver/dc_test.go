package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/serialport"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		channels [4]float64
		prefix   []byte
	}{
		{name: "forward saturated", channels: [4]float64{255, 0, 0, 0}, prefix: []byte{3, 1, 255}},
		{name: "reverse saturated", channels: [4]float64{-255, 0, 0, 0}, prefix: []byte{1, 2, 255}},
		{name: "over range clips", channels: [4]float64{1000, 0, 0, 0}, prefix: []byte{3, 1, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := encodeFrame(tt.channels)
			assert.Equal(t, byte(0), frame[len(frame)-1], "frame must end with delimiter")
			assert.Equal(t, tt.prefix, frame[:len(tt.prefix)])
		})
	}
}

func TestDCDriver_SendForward(t *testing.T) {
	port := serialport.NewTestablePort()
	d := NewDCDriver(port, DefaultBodyConfig())

	require.NoError(t, d.Send(context.Background(), motion.FromMove(motion.MoveCommand{Forward: 1})))

	// Channels 1 and 3 are inverted: [255, -255, 255, -255].
	want := []byte{3, 1, 255, 4, 255, 1, 255, 2, 255, 0}
	if diff := cmp.Diff(want, port.GetWrittenData()); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestDCDriver_SendRemapsChannels(t *testing.T) {
	cfg := DefaultBodyConfig()
	cfg.LeftFront.ID, cfg.RightRear.ID = 3, 0
	cfg.RightFront.Inverted, cfg.RightRear.Inverted = false, false

	port := serialport.NewTestablePort()
	d := NewDCDriver(port, cfg)
	require.NoError(t, d.Send(context.Background(), motion.WheelCommand{LeftFront: 1}))

	raw := cobsDecode(port.GetWrittenData()[:len(port.GetWrittenData())-1])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 255}, raw)
}

func TestDCDriver_WriteFailure(t *testing.T) {
	port := serialport.NewTestablePort()
	port.WriteError = errors.New("unplugged")
	d := NewDCDriver(port, DefaultBodyConfig())

	err := d.Send(context.Background(), motion.WheelCommand{})
	assert.ErrorIs(t, err, ErrCommFailed)
}

func TestDCDriver_Unsupported(t *testing.T) {
	d := NewDCDriver(serialport.NewTestablePort(), DefaultBodyConfig())

	v, ok, err := d.ReadVoltage(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v)

	ok, err = d.SetColor(context.Background(), motion.ColorRed)
	assert.NoError(t, err)
	assert.False(t, ok)
}
