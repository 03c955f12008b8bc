package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/markernav/utils"
)

// SphericalCoord is a point in spherical coordinates. Theta is the polar angle measured from +Z,
// Phi the azimuth measured from +X toward +Y. Angles are in radians.
type SphericalCoord struct {
	Rho   float64
	Theta float64
	Phi   float64
}

// NewSphericalCoordDegrees builds a SphericalCoord from angles in degrees.
func NewSphericalCoordDegrees(rho, thetaDeg, phiDeg float64) SphericalCoord {
	return SphericalCoord{Rho: rho, Theta: utils.DegToRad(thetaDeg), Phi: utils.DegToRad(phiDeg)}
}

// Cartesian converts the coordinate to x, y, z.
func (s SphericalCoord) Cartesian() r3.Vector {
	return r3.Vector{
		X: s.Rho * math.Sin(s.Theta) * math.Cos(s.Phi),
		Y: s.Rho * math.Sin(s.Theta) * math.Sin(s.Phi),
		Z: s.Rho * math.Cos(s.Theta),
	}
}

// SphericalToCartesian converts rho, theta and phi (radians) to x, y, z.
func SphericalToCartesian(rho, theta, phi float64) r3.Vector {
	return SphericalCoord{Rho: rho, Theta: theta, Phi: phi}.Cartesian()
}

// Pose returns a pure translation to the coordinate.
func (s SphericalCoord) Pose() Pose {
	return NewPoseFromPoint(s.Cartesian())
}

// CartesianToSpherical is the inverse of SphericalCoord.Cartesian. The origin maps to the zero coordinate.
func CartesianToSpherical(v r3.Vector) SphericalCoord {
	rho := v.Norm()
	if rho == 0 {
		return SphericalCoord{}
	}
	return SphericalCoord{
		Rho:   rho,
		Theta: math.Acos(v.Z / rho),
		Phi:   math.Atan2(v.Y, v.X),
	}
}
