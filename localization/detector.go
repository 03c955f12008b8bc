package localization

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/vision/aruco"
)

// ErrDetectionInProgress is returned when a detection pass is requested while another one runs on
// the same Detector.
var ErrDetectionInProgress = errors.New("a marker detection is already in progress")

// Detector runs detection passes: it takes a picture, finds markers in it, estimates their poses
// and records them in a registry.
type Detector struct {
	registry *Registry
	camera   actuation.Camera
	markers  aruco.Detector
	solver   aruco.PoseSolver
	logger   logging.Logger

	running atomic.Bool
	passes  atomic.Uint64
}

// NewDetector returns a Detector feeding registry.
func NewDetector(
	registry *Registry,
	camera actuation.Camera,
	markers aruco.Detector,
	solver aruco.PoseSolver,
	logger logging.Logger,
) (*Detector, error) {
	if registry == nil || camera == nil || markers == nil || solver == nil {
		return nil, errors.New("detector needs a registry, a camera, a marker detector and a pose solver")
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Detector{registry: registry, camera: camera, markers: markers, solver: solver, logger: logger}, nil
}

// Registry returns the registry detections are recorded in.
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Passes returns how many detection passes completed.
func (d *Detector) Passes() uint64 {
	return d.passes.Load()
}

// DetectMarkers runs one detection pass and returns the markers seen in the picture, each once.
// A missing calibration for the picture resolution aborts the whole pass.
func (d *Detector) DetectMarkers(ctx context.Context, cfg aruco.DetectionConfig) ([]*aruco.Marker, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrDetectionInProgress
	}
	defer d.running.Store(false)

	if err := cfg.Validate("detection"); err != nil {
		return nil, err
	}
	picture, err := d.camera.TakePicture(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "taking picture")
	}
	if picture.Image == nil {
		return nil, errors.New("camera returned no image")
	}
	bounds := picture.Image.Bounds()
	resolution := transform.Resolution{Width: bounds.Dx(), Height: bounds.Dy()}

	detections, err := d.markers.Detect(ctx, picture.Image, cfg.Dictionary)
	if err != nil {
		return nil, errors.Wrap(err, "detecting markers")
	}
	intrinsics, err := cfg.Camera.IntrinsicsFor(resolution.Width, resolution.Height)
	if err != nil {
		return nil, err
	}

	found := make([]*aruco.Marker, 0, len(detections))
	for _, detection := range detections {
		translation, rotation, err := d.solver.EstimatePose(
			ctx, detection.Corners, cfg.MarkerLength, intrinsics, cfg.Camera.Distortion())
		if err != nil {
			return nil, errors.Wrapf(err, "estimating pose of marker %d", detection.ID)
		}
		d.logger.CDebugw(ctx, "found marker", "id", detection.ID, "resolution", resolution.String())
		marker, err := d.registry.Observe(ctx, aruco.DetectionSample{
			ID:          detection.ID,
			Corners:     detection.Corners,
			Translation: translation,
			Rotation:    rotation,
			Timestamp:   picture.Timestamp,
			Resolution:  resolution,
			Image:       picture.Image,
		}, cfg)
		if err != nil {
			return nil, err
		}
		found = append(found, marker)
	}
	d.passes.Inc()
	return lo.Uniq(found), nil
}
