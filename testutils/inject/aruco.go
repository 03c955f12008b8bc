package inject

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/vision/aruco"
)

// MarkerDetector is an injected marker detector.
type MarkerDetector struct {
	aruco.Detector
	DetectFunc func(ctx context.Context, img image.Image, dict aruco.Dictionary) ([]aruco.Detection, error)
}

// Detect calls the injected Detect or the real version.
func (d *MarkerDetector) Detect(ctx context.Context, img image.Image, dict aruco.Dictionary) ([]aruco.Detection, error) {
	if d.DetectFunc == nil {
		return d.Detector.Detect(ctx, img, dict)
	}
	return d.DetectFunc(ctx, img, dict)
}

// PoseSolver is an injected marker pose solver.
type PoseSolver struct {
	aruco.PoseSolver
	EstimatePoseFunc func(
		ctx context.Context,
		corners [4]r2.Point,
		markerLength float64,
		intrinsics *transform.PinholeCameraIntrinsics,
		distortion transform.Distortion,
	) (r3.Vector, r3.Vector, error)
}

// EstimatePose calls the injected EstimatePose or the real version.
func (s *PoseSolver) EstimatePose(
	ctx context.Context,
	corners [4]r2.Point,
	markerLength float64,
	intrinsics *transform.PinholeCameraIntrinsics,
	distortion transform.Distortion,
) (r3.Vector, r3.Vector, error) {
	if s.EstimatePoseFunc == nil {
		return s.PoseSolver.EstimatePose(ctx, corners, markerLength, intrinsics, distortion)
	}
	return s.EstimatePoseFunc(ctx, corners, markerLength, intrinsics, distortion)
}
