package driver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/serialport"
)

const (
	lssReadTimeout  = 10 * time.Millisecond
	lssReplyTimeout = 100 * time.Millisecond
)

// LSSDriver drives four Lynxmotion smart servos in wheel mode over a shared
// half-duplex bus. Commands are ASCII: "#<id><CMD><value>\r"; queries answer
// "*<id><CMD><value>\r".
type LSSDriver struct {
	mu           sync.Mutex
	port         serialport.Port
	cfg          BodyConfig
	replyTimeout time.Duration
}

// NewLSSDriver configures every servo's maximum speed to |Multiplier|.
func NewLSSDriver(ctx context.Context, port serialport.Port, cfg BodyConfig) (*LSSDriver, error) {
	d := &LSSDriver{port: port, cfg: cfg, replyTimeout: lssReplyTimeout}
	if err := port.SetReadTimeout(lssReadTimeout); err != nil {
		return nil, fmt.Errorf("%w: set read timeout: %v", ErrCommFailed, err)
	}

	maxSpeed := cfg.Multiplier
	if maxSpeed < 0 {
		maxSpeed = -maxSpeed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range cfg.IDs() {
		if err := d.command(ctx, id, "SD", formatSpeed(maxSpeed)); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// command writes one bus command. Caller holds d.mu.
func (d *LSSDriver) command(ctx context.Context, id uint8, cmd, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := fmt.Sprintf("#%d%s%s\r", id, cmd, value)
	if err := serialport.WriteAll(d.port, []byte(line)); err != nil {
		return fmt.Errorf("%w: %s to servo %d: %v", ErrCommFailed, cmd, id, err)
	}
	return nil
}

// query sends "#<id><cmd>\r" and returns the numeric value of the matching
// "*<id><cmd><value>" reply. Caller holds d.mu.
func (d *LSSDriver) query(ctx context.Context, id uint8, cmd string) (int, error) {
	if err := d.command(ctx, id, cmd, ""); err != nil {
		return 0, err
	}
	reply, err := d.readReply(ctx)
	if err != nil {
		return 0, err
	}
	prefix := fmt.Sprintf("*%d%s", id, cmd)
	if !strings.HasPrefix(reply, prefix) {
		return 0, fmt.Errorf("%w: unexpected reply %q to %s", ErrCommFailed, reply, prefix)
	}
	v, err := strconv.Atoi(strings.TrimSpace(reply[len(prefix):]))
	if err != nil {
		return 0, fmt.Errorf("%w: parse reply %q: %v", ErrCommFailed, reply, err)
	}
	return v, nil
}

// readReply reads up to the next carriage return, polling the port until the
// reply deadline.
func (d *LSSDriver) readReply(ctx context.Context) (string, error) {
	deadline := time.Now().Add(d.replyTimeout)
	var line []byte
	b := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: reply timeout", ErrCommFailed)
		}
		n, err := d.port.Read(b)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCommFailed, err)
		}
		if n == 0 {
			continue
		}
		if b[0] == '\r' {
			return string(line), nil
		}
		line = append(line, b[0])
	}
}

// Send implements motion.Driver using wheel-mode speed in degrees per second.
func (d *LSSDriver) Send(ctx context.Context, cmd motion.WheelCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.cfg.Map(cmd) {
		if err := d.command(ctx, m.ID, "WD", formatSpeed(m.Speed)); err != nil {
			return err
		}
	}
	return nil
}

// ReadVoltage averages the supply voltage reported by the four servos.
func (d *LSSDriver) ReadVoltage(ctx context.Context) (float64, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var sum float64
	ids := d.cfg.IDs()
	for _, id := range ids {
		mv, err := d.query(ctx, id, "QV")
		if err != nil {
			return 0, false, err
		}
		sum += float64(mv) / 1000
	}
	return sum / float64(len(ids)), true, nil
}

// SetColor sets every servo's LED.
func (d *LSSDriver) SetColor(ctx context.Context, color motion.LedColor) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.cfg.IDs() {
		if err := d.command(ctx, id, "LED", strconv.Itoa(int(color))); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Close releases the serial port.
func (d *LSSDriver) Close() error {
	return d.port.Close()
}
