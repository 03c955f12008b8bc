package aruco

import (
	"context"
	"image"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/markernav/rimage/transform"
)

// LocalizationPolicy selects what a marker's frame is expressed against.
type LocalizationPolicy int

const (
	// Detached markers are placed relative to the gaze frame at detection time and drift with odometry.
	Detached LocalizationPolicy = iota
	// AttachedToMap markers hang off the map origin and are refined on every re-detection.
	AttachedToMap
)

const (
	detachedName      = "DETACHED"
	attachedToMapName = "ATTACHED_TO_MAPFRAME"
)

func (p LocalizationPolicy) String() string {
	if p == AttachedToMap {
		return attachedToMapName
	}
	return detachedName
}

// MarshalText encodes the policy name.
func (p LocalizationPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy name.
func (p *LocalizationPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case detachedName:
		*p = Detached
	case attachedToMapName:
		*p = AttachedToMap
	default:
		return errors.Errorf("unknown localization policy %q", string(text))
	}
	return nil
}

// Detection is one marker found by a Detector: its id and its four corners in pixels, clockwise
// from the top-left corner.
type Detection struct {
	ID      int
	Corners [4]r2.Point
}

// Detector finds markers of a dictionary in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image, dict Dictionary) ([]Detection, error)
}

// PoseSolver estimates the pose of a square planar marker from its corners. The returned
// translation and rotation (axis-angle) vectors use the OpenCV camera convention: z forward,
// x right, y down.
type PoseSolver interface {
	EstimatePose(
		ctx context.Context,
		corners [4]r2.Point,
		markerLength float64,
		intrinsics *transform.PinholeCameraIntrinsics,
		distortion transform.Distortion,
	) (translation, rotation r3.Vector, err error)
}

// DetectionSample is one raw observation of a marker, consumed by the registry.
type DetectionSample struct {
	ID          int
	Corners     [4]r2.Point
	Translation r3.Vector
	Rotation    r3.Vector
	Timestamp   time.Time
	Resolution  transform.Resolution
	Image       image.Image
}
