package lidar

import "errors"

// ErrTimeout is returned by Device.GrabScan when no complete revolution
// arrived in time. The scanner worker treats it as "try again".
var ErrTimeout = errors.New("lidar operation timed out")

// DefaultPort is the udev alias of the scanner.
const DefaultPort = "/dev/rplidar"

// Device is a rotating range sensor.
type Device interface {
	StartMotor() error
	StopMotor() error
	StartScan() error
	// Stop ends the current scan; the motor keeps its state.
	Stop() error
	// GrabScan blocks until one full revolution is available.
	GrabScan() ([]ScanPoint, error)
	Close() error
}

// DeviceOpener opens the device at a port path.
type DeviceOpener func(port string) (Device, error)
