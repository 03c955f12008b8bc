package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RobotRelativeDirection names the robot axis a rotated axis is closest to.
// The robot frame has X forward, Y left and Z up.
type RobotRelativeDirection int

// The six robot-relative directions.
const (
	AwayFromRobot RobotRelativeDirection = iota
	TowardRobot
	Up
	Down
	LeftOfRobot
	RightOfRobot
)

var directionVectors = []struct {
	dir RobotRelativeDirection
	vec r3.Vector
}{
	{AwayFromRobot, r3.Vector{X: 1}},
	{TowardRobot, r3.Vector{X: -1}},
	{Up, r3.Vector{Z: 1}},
	{Down, r3.Vector{Z: -1}},
	{LeftOfRobot, r3.Vector{Y: 1}},
	{RightOfRobot, r3.Vector{Y: -1}},
}

func (d RobotRelativeDirection) String() string {
	switch d {
	case AwayFromRobot:
		return "AWAY_FROM_ROBOT"
	case TowardRobot:
		return "TOWARD_ROBOT"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case LeftOfRobot:
		return "LEFT_OF_ROBOT"
	case RightOfRobot:
		return "RIGHT_OF_ROBOT"
	default:
		return "UNKNOWN"
	}
}

// Vector returns the unit vector of the direction in robot coordinates.
func (d RobotRelativeDirection) Vector() r3.Vector {
	for _, dv := range directionVectors {
		if dv.dir == d {
			return dv.vec
		}
	}
	return r3.Vector{}
}

// ClosestDirection returns the direction with the largest dot product with v.
func ClosestDirection(v r3.Vector) RobotRelativeDirection {
	best := AwayFromRobot
	bestDot := math.Inf(-1)
	for _, dv := range directionVectors {
		if dot := dv.vec.Dot(v); dot > bestDot {
			best, bestDot = dv.dir, dot
		}
	}
	return best
}

// FrameOrientation tells whether a marker plane stands up or lies flat.
type FrameOrientation int

// Marker plane orientations.
const (
	Horizontal FrameOrientation = iota
	Vertical
)

func (o FrameOrientation) String() string {
	if o == Vertical {
		return "VERTICAL"
	}
	return "HORIZONTAL"
}

// AxesDirections is the robot-relative direction of each axis of a rotated frame.
type AxesDirections struct {
	X RobotRelativeDirection
	Y RobotRelativeDirection
	Z RobotRelativeDirection
}

// ClassifyAxes rotates the unit axes by q and classifies each against the robot directions.
func ClassifyAxes(q quat.Number) AxesDirections {
	return AxesDirections{
		X: ClosestDirection(RotateVector(q, r3.Vector{X: 1})),
		Y: ClosestDirection(RotateVector(q, r3.Vector{Y: 1})),
		Z: ClosestDirection(RotateVector(q, r3.Vector{Z: 1})),
	}
}

// Orientation is Vertical when the frame's z or y axis points up or down.
func (a AxesDirections) Orientation() FrameOrientation {
	if isVerticalDirection(a.Z) || isVerticalDirection(a.Y) {
		return Vertical
	}
	return Horizontal
}

// IsFloor reports whether the frame lies flat, its x axis pointing up or down.
func (a AxesDirections) IsFloor() bool {
	return isVerticalDirection(a.X)
}

func isVerticalDirection(d RobotRelativeDirection) bool {
	return d == Up || d == Down
}

// AngleToDirection returns the angle between the rotated axis and the direction it was classified as.
func AngleToDirection(axis r3.Vector, d RobotRelativeDirection) float64 {
	return float64(axis.Angle(d.Vector()))
}
