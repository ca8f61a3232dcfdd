// Package units provides the angle conventions shared by geometry, sensor and
// control code. Angles are radians unless a name says otherwise.
package units

import "math"

// FullTurn is one revolution in radians.
const FullTurn = 2 * math.Pi

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// WrapRadians maps any finite angle into (-π, π].
func WrapRadians(a float64) float64 {
	if a > -math.Pi && a <= math.Pi {
		return a
	}
	a = math.Mod(a+math.Pi, FullTurn)
	if a <= 0 {
		a += FullTurn
	}
	return a - math.Pi
}

// WrapPositive maps any finite angle into [0, 2π). Range scanners report
// bearings in this interval.
func WrapPositive(a float64) float64 {
	a = math.Mod(a, FullTurn)
	if a < 0 {
		a += FullTurn
	}
	if a >= FullTurn {
		a = 0
	}
	return a
}

// Clamp limits v to [lo, hi]. The bounds may be given in either order.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}
