package fake

import (
	"context"
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/vision/aruco"
)

const (
	defaultMaxRange    = 5.0
	defaultHalfFOVRad  = 30 * math.Pi / 180
	defaultImageWidth  = 640
	defaultImageHeight = 480
)

// blankImage is an image of a given size with no content; the fake vision does not look at pixels.
type blankImage struct {
	rect image.Rectangle
}

func (b blankImage) ColorModel() color.Model { return color.GrayModel }
func (b blankImage) Bounds() image.Rectangle { return b.rect }
func (b blankImage) At(x, y int) color.Color { return color.Gray{} }

// Camera takes blank pictures of the configured resolution, stamped with the robot clock.
type Camera struct {
	robot  *Robot
	Width  int
	Height int
}

var _ actuation.Camera = (*Camera)(nil)

// NewCamera returns a 640x480 camera mounted on robot.
func NewCamera(robot *Robot) *Camera {
	return &Camera{robot: robot, Width: defaultImageWidth, Height: defaultImageHeight}
}

// TakePicture returns a blank picture.
func (c *Camera) TakePicture(ctx context.Context) (actuation.Picture, error) {
	if err := ctx.Err(); err != nil {
		return actuation.Picture{}, err
	}
	return actuation.Picture{
		Image:     blankImage{rect: image.Rect(0, 0, c.Width, c.Height)},
		Timestamp: c.robot.clk.Now(),
	}, nil
}

type solution struct {
	translation r3.Vector
	rotation    r3.Vector
}

// Vision detects the markers placed on a robot that its head camera can see, and solves their
// poses exactly. It implements both aruco.Detector and aruco.PoseSolver.
type Vision struct {
	robot  *Robot
	camera *transform.CameraModel

	// MaxRange is the farthest distance a marker is seen at, in meters.
	MaxRange float64
	// HalfFieldOfView is the largest angle off the optical axis a marker is seen at, in radians.
	HalfFieldOfView float64

	mu        sync.Mutex
	solutions map[[4]r2.Point]solution
}

var (
	_ aruco.Detector   = (*Vision)(nil)
	_ aruco.PoseSolver = (*Vision)(nil)
)

// NewVision returns the vision of robot seen through camera.
func NewVision(robot *Robot, camera *transform.CameraModel) *Vision {
	return &Vision{
		robot:           robot,
		camera:          camera,
		MaxRange:        defaultMaxRange,
		HalfFieldOfView: defaultHalfFOVRad,
		solutions:       map[[4]r2.Point]solution{},
	}
}

// Detect returns the visible markers of dict, sorted by id.
func (v *Vision) Detect(ctx context.Context, img image.Image, dict aruco.Dictionary) ([]aruco.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	intrinsics, err := v.camera.IntrinsicsFor(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	v.robot.mu.Lock()
	worldToCamera := spatialmath.Compose(v.robot.trueGazeToWorld(), v.camera.GazeToCamera())
	markers := make(map[int]spatialmath.Pose, len(v.robot.markers))
	for id, pose := range v.robot.markers {
		markers[id] = pose
	}
	v.robot.mu.Unlock()

	ids := make([]int, 0, len(markers))
	for id := range markers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	v.mu.Lock()
	defer v.mu.Unlock()
	var detections []aruco.Detection
	for _, id := range ids {
		if !dict.ContainsID(id) {
			continue
		}
		cameraToMarker := spatialmath.Compose(spatialmath.PoseInverse(worldToCamera), markers[id])
		p := cameraToMarker.Point()
		if p.X <= 0 || p.Norm() > v.MaxRange || math.Atan2(math.Hypot(p.Y, p.Z), p.X) > v.HalfFieldOfView {
			continue
		}
		// Back to the vision library's convention: z forward, x right, y down.
		center := r3.Vector{X: -p.Y, Y: -p.Z, Z: p.X}
		pixel, err := intrinsics.PointToPixel(center)
		if err != nil {
			continue
		}
		half := math.Max(1, intrinsics.Fx*aruco.DefaultMarkerLength/2/center.Z)
		corners := [4]r2.Point{
			{X: pixel.X - half, Y: pixel.Y - half},
			{X: pixel.X + half, Y: pixel.Y - half},
			{X: pixel.X + half, Y: pixel.Y + half},
			{X: pixel.X - half, Y: pixel.Y + half},
		}
		v.solutions[corners] = solution{translation: center, rotation: rotationVector(cameraToMarker.Orientation())}
		detections = append(detections, aruco.Detection{ID: id, Corners: corners})
	}
	return detections, nil
}

// EstimatePose returns the exact pose of the marker detected at corners.
func (v *Vision) EstimatePose(
	ctx context.Context,
	corners [4]r2.Point,
	markerLength float64,
	intrinsics *transform.PinholeCameraIntrinsics,
	distortion transform.Distortion,
) (r3.Vector, r3.Vector, error) {
	if err := ctx.Err(); err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	sol, ok := v.solutions[corners]
	if !ok {
		return r3.Vector{}, r3.Vector{}, errors.New("no marker detected at these corners")
	}
	return sol.translation, sol.rotation, nil
}

// rotationVector is the inverse of the marker rotation conversion done by aruco.CameraToMarker:
// it undoes the marker plane correction and maps gaze axes back to camera axes.
func rotationVector(cameraToMarker quat.Number) r3.Vector {
	w := spatialmath.QuatToR3AA(quat.Mul(cameraToMarker, quat.Conj(quat.Number{Imag: 1})))
	return r3.Vector{X: -w.Y, Y: -w.Z, Z: w.X}
}
