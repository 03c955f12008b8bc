package aruco

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/spatialmath"
)

// markerPlaneCorrection is a half turn about X. The vision library's marker frame has z coming
// out of the marker toward the camera; markers here keep z pointing into the marker.
var markerPlaneCorrection = quat.Number{Imag: 1}

// ToGazeAxes remaps a vector from camera axes (z forward, x right, y down) to gaze axes
// (x forward, y left, z up).
func ToGazeAxes(v r3.Vector) r3.Vector {
	return r3.Vector{X: v.Z, Y: -v.X, Z: -v.Y}
}

// CameraToMarker converts a solver's translation and rotation vectors into the pose of the marker
// in the camera frame, expressed with gaze axes. Rotation vectors too small to carry an axis are
// treated as no rotation.
func CameraToMarker(translation, rotation r3.Vector) spatialmath.Pose {
	rot := spatialmath.R3ToR4(ToGazeAxes(rotation)).ToQuat()
	return spatialmath.NewPose(ToGazeAxes(translation), quat.Mul(rot, markerPlaneCorrection))
}

// GazeToMarker returns the pose of the sampled marker in the gaze frame, given the pose of the
// camera in the gaze frame.
func GazeToMarker(sample DetectionSample, gazeToCamera spatialmath.Pose) spatialmath.Pose {
	if gazeToCamera == nil {
		gazeToCamera = spatialmath.NewZeroPose()
	}
	return spatialmath.Compose(gazeToCamera, CameraToMarker(sample.Translation, sample.Rotation))
}
