package aruco

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/utils"
)

const (
	// DefaultOrientationTolerance is the angular tolerance, in degrees, of ValidateOrientation.
	DefaultOrientationTolerance = 4.0
	floorAngleTolerance         = 15.0
	floorLevelTolerance         = 0.2
)

// ClassifyMarker returns the robot-relative direction of each axis of a marker given its pose in
// the robot frame.
func ClassifyMarker(robotToMarker spatialmath.Pose) spatialmath.AxesDirections {
	return spatialmath.ClassifyAxes(robotToMarker.Orientation())
}

// ValidateOrientation reports whether a marker rotation, expressed in the robot frame, matches the
// expected orientation within toleranceDeg degrees. A Horizontal marker has its x axis vertical
// and its y and z axes in the horizontal plane; a Vertical marker has its x and y axes horizontal
// and its z axis vertical.
func ValidateOrientation(rotation quat.Number, expected spatialmath.FrameOrientation, toleranceDeg float64) bool {
	x := spatialmath.RotateVector(rotation, r3.Vector{X: 1})
	y := spatialmath.RotateVector(rotation, r3.Vector{Y: 1})
	z := spatialmath.RotateVector(rotation, r3.Vector{Z: 1})
	if expected == spatialmath.Horizontal {
		return angleToVertical(x) <= toleranceDeg &&
			angleToHorizontalPlane(y) <= toleranceDeg &&
			angleToHorizontalPlane(z) <= toleranceDeg
	}
	return angleToHorizontalPlane(x) <= toleranceDeg &&
		angleToHorizontalPlane(y) <= toleranceDeg &&
		angleToVertical(z) <= toleranceDeg
}

// IsOnFloor reports whether a marker, given its pose in the robot frame, lies flat on the floor.
func IsOnFloor(robotToMarker spatialmath.Pose) bool {
	return ValidateOrientation(robotToMarker.Orientation(), spatialmath.Horizontal, floorAngleTolerance) &&
		math.Abs(robotToMarker.Point().Z) < floorLevelTolerance
}

func angleToHorizontalPlane(v r3.Vector) float64 {
	projected := r3.Vector{X: v.X, Y: v.Y}
	if projected.Norm() == 0 {
		return 90
	}
	return degreesBetween(v, projected.Normalize())
}

func angleToVertical(v r3.Vector) float64 {
	if v.Z == 0 {
		return 90
	}
	return degreesBetween(v, r3.Vector{Z: math.Copysign(1, v.Z)})
}

func degreesBetween(a, b r3.Vector) float64 {
	cos := a.Normalize().Dot(b)
	return utils.RadToDeg(math.Acos(math.Max(-1, math.Min(1, cos))))
}
