package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// AngleDiffDeg returns the closest difference between two angles in degrees, in [0, 180].
func AngleDiffDeg(a1, a2 float64) float64 {
	return math.Abs(ModAngDeg(a1-a2+180) - 180)
}

// ModAngDeg returns the angle mod 360 in [0, 360).
func ModAngDeg(ang float64) float64 {
	ang = math.Mod(ang, 360)
	if ang < 0 {
		ang += 360
	}
	return ang
}
