package driver

import (
	"context"
	"fmt"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/serialport"
)

// Open validates cfg, opens its serial port with opener and returns the
// matching backend.
func Open(ctx context.Context, cfg BodyConfig, opener serialport.Opener) (motion.Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid body config: %w", err)
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}

	port, err := opener(cfg.Port, serialport.PortOptions{BaudRate: serialport.DefaultBaudRate})
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrOpenFailed, cfg.Port, err)
	}

	switch cfg.Type() {
	case DriverLSS:
		d, err := NewLSSDriver(ctx, port, cfg)
		if err != nil {
			port.Close()
			return nil, err
		}
		return d, nil
	default:
		return NewDCDriver(port, cfg), nil
	}
}
