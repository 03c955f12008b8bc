package navigation

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/vision/aruco"
)

// LookTarget is a point to look at: Pose relative to Base.
type LookTarget struct {
	Base referenceframe.Frame
	Pose spatialmath.Pose
}

// Look-around presets as (theta, phi) degrees on the unit sphere around the gaze height.
var (
	// FloorFrontOnly looks at the floor in front of the robot, insisting straight ahead.
	FloorFrontOnly = sphericalDegrees(
		[2]float64{120, 0}, [2]float64{120, 0}, [2]float64{120, 0},
		[2]float64{120, 15}, [2]float64{120, 15}, [2]float64{120, 30},
		[2]float64{120, 345}, [2]float64{120, 345}, [2]float64{120, 330},
	)

	// FloorFull360 looks at the floor all around the robot. It needs HeadAndBase.
	FloorFull360 = sphericalDegrees(
		[2]float64{120, 0}, [2]float64{120, 15}, [2]float64{120, 30}, [2]float64{120, 45},
		[2]float64{120, 60}, [2]float64{120, 75}, [2]float64{120, 90},
		[2]float64{120, 345}, [2]float64{120, 330}, [2]float64{120, 315}, [2]float64{120, 300},
		[2]float64{120, 285}, [2]float64{120, 270},
		[2]float64{120, 240}, [2]float64{120, 225}, [2]float64{120, 210}, [2]float64{120, 195},
		[2]float64{120, 180}, [2]float64{120, 165}, [2]float64{120, 150}, [2]float64{120, 135},
		[2]float64{120, 120},
	)

	// HorizonSweep looks straight ahead at gaze height from right to left.
	HorizonSweep = sphericalDegrees(
		[2]float64{90, -90}, [2]float64{90, -60}, [2]float64{90, -30}, [2]float64{90, 0},
		[2]float64{90, 30}, [2]float64{90, 60}, [2]float64{90, 90},
	)
)

func sphericalDegrees(angles ...[2]float64) []spatialmath.SphericalCoord {
	return lo.Map(angles, func(a [2]float64, _ int) spatialmath.SphericalCoord {
		return spatialmath.NewSphericalCoordDegrees(1, a[0], a[1])
	})
}

// SphericalTargets returns one target per coordinate, relative to ref.
func SphericalTargets(ref referenceframe.Frame, coords ...spatialmath.SphericalCoord) []LookTarget {
	return lo.Map(coords, func(c spatialmath.SphericalCoord, _ int) LookTarget {
		return LookTarget{Base: ref, Pose: c.Pose()}
	})
}

// GazeHeightReference returns a frame fixed where the robot frame is now, raised to the gaze
// height. Spherical targets built on it do not move with the robot. The caller owns the frame and
// releases it with ReleaseFrame.
func (n *Navigator) GazeHeightReference(ctx context.Context) (referenceframe.Frame, error) {
	robotFrame, err := n.robot.RobotFrame(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting robot frame")
	}
	return n.Registry().DetachedFrame(robotFrame, spatialmath.NewPoseFromPoint(r3.Vector{Z: transform.GazeFrameZ}), time.Time{})
}

// MarkerValidator filters detected markers.
type MarkerValidator func(marker *aruco.Marker) bool

// AcceptAllMarkers is the default validator.
func AcceptAllMarkers(*aruco.Marker) bool {
	return true
}

// OnlyMarker accepts the marker with the given id.
func OnlyMarker(id int) MarkerValidator {
	return func(marker *aruco.Marker) bool { return marker.ID == id }
}

// TerminationPolicy decides, after each detection pass, whether a look-around stops early. found
// holds the valid markers found so far.
type TerminationPolicy func(found []*aruco.Marker) bool

// UntilFinished looks at every target.
func UntilFinished([]*aruco.Marker) bool {
	return false
}

// UntilAnyMarker stops as soon as a valid marker was found.
func UntilAnyMarker(found []*aruco.Marker) bool {
	return len(found) > 0
}

// UntilMarker stops once the marker with the given id was found.
func UntilMarker(id int) TerminationPolicy {
	return func(found []*aruco.Marker) bool {
		return lo.ContainsBy(found, func(m *aruco.Marker) bool { return m.ID == id })
	}
}

// DetectionPass reports the markers detected while looking at one target.
type DetectionPass struct {
	Index   int
	Target  LookTarget
	Markers []*aruco.Marker
	// Settled is false when the gaze did not settle in time and the pass ran anyway.
	Settled bool
}

// LookAroundConfig tunes LookAroundAndDetect. The zero values of Validator and Termination
// accept every marker and look at every target.
type LookAroundConfig struct {
	LookAt      LookAtConfig
	Detection   aruco.DetectionConfig
	Validator   MarkerValidator
	Termination TerminationPolicy
	// Passes, if set, receives one DetectionPass per target looked at. Sends block, so the
	// receiver must keep up or the channel must be buffered.
	Passes chan<- DetectionPass
}

// DefaultLookAroundConfig returns a head-only look-around with the navigator detection settings.
func (n *Navigator) DefaultLookAroundConfig() LookAroundConfig {
	return LookAroundConfig{
		LookAt:      n.cfg.LookAt,
		Detection:   n.detection,
		Validator:   AcceptAllMarkers,
		Termination: UntilFinished,
	}
}

// LookAroundAndDetect looks at each target in turn and runs one detection pass once the gaze has
// settled. It returns the valid markers found, in order of first detection. The look-at is always
// stopped before it returns.
func (n *Navigator) LookAroundAndDetect(ctx context.Context, targets []LookTarget, cfg LookAroundConfig) ([]*aruco.Marker, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	if err := cfg.LookAt.Validate("look_around.look_at"); err != nil {
		return nil, err
	}
	if err := cfg.Detection.Validate("look_around.detection"); err != nil {
		return nil, err
	}
	if cfg.Validator == nil {
		cfg.Validator = AcceptAllMarkers
	}
	if cfg.Termination == nil {
		cfg.Termination = UntilFinished
	}
	for i, target := range targets {
		if target.Base == nil || target.Pose == nil {
			return nil, errors.Wrapf(ErrInvalidTarget, "look target %d", i)
		}
	}

	targetFrame, err := n.graph().MakeFreeFrame()
	if err != nil {
		return nil, errors.Wrap(err, "creating look-at target frame")
	}
	defer n.ReleaseFrame(targetFrame)
	if err := targetFrame.Update(targets[0].Base, targets[0].Pose, time.Time{}); err != nil {
		return nil, errors.Wrapf(ErrInvalidTarget, "placing look target 0: %v", err)
	}

	lookCtx, stopLooking := context.WithCancel(ctx)
	defer stopLooking()
	looking, gctx := errgroup.WithContext(lookCtx)

	looking.Go(func() error {
		err := n.robot.LookAt(gctx, targetFrame, cfg.LookAt.MovementPolicy)
		if gctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("look-at ended by itself")
		}
		return errors.Wrapf(ErrActuationFailed, "looking around: %v", err)
	})

	var found []*aruco.Marker
	looking.Go(func() error {
		defer stopLooking()
		var err error
		found, err = n.scan(gctx, targetFrame, targets, cfg)
		return err
	})

	err = looking.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (n *Navigator) scan(
	ctx context.Context,
	targetFrame referenceframe.FreeFrame,
	targets []LookTarget,
	cfg LookAroundConfig,
) ([]*aruco.Marker, error) {
	var found []*aruco.Marker
	for i, target := range targets {
		if i > 0 {
			if err := targetFrame.Update(target.Base, target.Pose, time.Time{}); err != nil {
				return nil, errors.Wrapf(ErrInvalidTarget, "placing look target %d: %v", i, err)
			}
		}

		settled := true
		if err := n.WaitUntilLookingAt(ctx, targetFrame, cfg.LookAt); err != nil {
			if !errors.Is(err, ErrLookAtTimeout) {
				return nil, err
			}
			// The head may not reach every target; look from as close as it got.
			n.logger.CDebugw(ctx, "look target not reached, detecting anyway", "target", i)
			settled = false
		}

		markers, err := n.detector.DetectMarkers(ctx, cfg.Detection)
		if err != nil {
			return nil, errors.Wrapf(err, "detecting markers at look target %d", i)
		}
		valid := lo.Filter(markers, func(m *aruco.Marker, _ int) bool { return cfg.Validator(m) })
		found = lo.UniqBy(append(found, valid...), func(m *aruco.Marker) int { return m.ID })
		n.logger.CDebugw(ctx, "detection pass", "target", i, "detected", len(markers), "valid", len(valid))

		if cfg.Passes != nil {
			select {
			case cfg.Passes <- DetectionPass{Index: i, Target: target, Markers: valid, Settled: settled}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if cfg.Termination(found) {
			break
		}
	}
	return found, nil
}
