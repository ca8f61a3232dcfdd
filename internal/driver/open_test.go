package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/serialport"
)

func TestOpen(t *testing.T) {
	t.Run("arduino", func(t *testing.T) {
		opener := &serialport.MockOpener{Port: serialport.NewTestablePort()}
		d, err := Open(context.Background(), DefaultBodyConfig(), opener.Open)
		require.NoError(t, err)
		assert.IsType(t, &DCDriver{}, d)
		assert.Equal(t, []string{DefaultPort}, opener.Calls)
	})

	t.Run("lss", func(t *testing.T) {
		opener := &serialport.MockOpener{Port: serialport.NewTestablePort()}
		cfg := lssConfig()
		cfg.Port = "/dev/ttyUSB1"
		d, err := Open(context.Background(), cfg, opener.Open)
		require.NoError(t, err)
		assert.IsType(t, &LSSDriver{}, d)
		assert.Equal(t, []string{"/dev/ttyUSB1"}, opener.Calls)
	})

	t.Run("open failure", func(t *testing.T) {
		opener := &serialport.MockOpener{Error: errors.New("no such device")}
		_, err := Open(context.Background(), DefaultBodyConfig(), opener.Open)
		assert.ErrorIs(t, err, ErrOpenFailed)
	})

	t.Run("invalid config is not opened", func(t *testing.T) {
		opener := &serialport.MockOpener{Port: serialport.NewTestablePort()}
		cfg := DefaultBodyConfig()
		cfg.Multiplier = 0
		_, err := Open(context.Background(), cfg, opener.Open)
		assert.Error(t, err)
		assert.Zero(t, opener.CallCount())
	})
}
