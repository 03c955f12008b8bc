package navigation

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/utils"
	"go.viam.com/markernav/vision/aruco"
)

// Result is the outcome of a go-to-marker action.
type Result struct {
	Reached bool
	// Corrected is the marker if it was detected again on the way, nil otherwise.
	Corrected *aruco.Marker
}

type approachState int

const (
	scanning approachState = iota
	advancing
	finalApproach
	done
)

func (s approachState) String() string {
	switch s {
	case scanning:
		return "scanning"
	case advancing:
		return "advancing"
	case finalApproach:
		return "final_approach"
	case done:
		return "done"
	default:
		return "unknown"
	}
}

// Scan rotations about the robot z axis, applied to the robot-to-marker transform: 15 and 30
// degrees to the left, then to the right.
var scanRotations = []quat.Number{
	spatialmath.RotationAboutZ(utils.DegToRad(15)),
	spatialmath.RotationAboutZ(utils.DegToRad(30)),
	spatialmath.RotationAboutZ(utils.DegToRad(-15)),
	spatialmath.RotationAboutZ(utils.DegToRad(-30)),
}

// GoToMarkerCheckingPositionOnTheWay walks to marker in legs of at most
// cfg.DistanceBetweenStopsM. Before each leg, while farther than cfg.MinViewingDistanceM, it
// looks for the marker again so the pose it walks to is corrected as the robot gets closer.
// The autonomous abilities are held for the whole action.
func (n *Navigator) GoToMarkerCheckingPositionOnTheWay(ctx context.Context, marker *aruco.Marker, cfg GoToMarkerConfig) (Result, error) {
	if marker == nil || marker.Frame == nil {
		return Result{}, ErrInvalidTarget
	}
	if err := cfg.Validate("go_to_marker"); err != nil {
		return Result{}, err
	}
	ctx = logging.WithOperationID(ctx, "")
	release, err := n.abilities.Hold(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	robotFrame, err := n.robot.RobotFrame(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting robot frame")
	}

	var (
		result        Result
		stops         int
		robotToMarker spatialmath.Pose
		distance      float64
	)
	logger := n.logger.Sublogger("go_to_marker")
	state := scanning
	for state != done {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		logger.CDebugw(ctx, "go to marker", "marker", marker.ID, "state", state.String(), "stops", stops)

		switch state {
		case scanning:
			if robotToMarker, distance, err = n.locate(marker.Frame, robotFrame); err != nil {
				return result, err
			}
			if distance > cfg.MinViewingDistanceM {
				seen, err := n.lookForMarker(ctx, marker, robotFrame, robotToMarker)
				if err != nil {
					return result, err
				}
				if seen != nil {
					result.Corrected = seen
					if robotToMarker, distance, err = n.locate(marker.Frame, robotFrame); err != nil {
						return result, err
					}
				}
			}
			state = finalApproach
			if distance > cfg.DistanceBetweenStopsM {
				state = advancing
			}

		case advancing:
			if stops >= cfg.MaxStops {
				return result, errors.Wrapf(ErrTooManyStops, "%d stops toward marker %d", stops, marker.ID)
			}
			walk := math.Min(distance-cfg.MinViewingDistanceM-cfg.StopMarginM, cfg.DistanceBetweenStopsM)
			if walk <= 0 {
				state = finalApproach
				continue
			}
			if err := n.advance(ctx, robotFrame, robotToMarker, distance, walk, cfg); err != nil {
				return result, err
			}
			stops++
			state = scanning

		case finalApproach:
			if err := n.goToMarkerFrame(ctx, marker, robotFrame, cfg); err != nil {
				return result, err
			}
			result.Reached = true
			state = done

		case done:
		}
	}
	logger.CInfow(ctx, "reached marker", "marker", marker.ID, "stops", stops, "corrected", result.Corrected != nil)
	return result, nil
}

// locate returns the pose of frame in the robot frame and its distance on the floor.
func (n *Navigator) locate(frame, robotFrame referenceframe.Frame) (spatialmath.Pose, float64, error) {
	robotToFrame, err := n.graph().ComputeTransform(frame, robotFrame)
	if err != nil {
		return nil, 0, errors.Wrapf(ErrInvalidTarget, "locating %q: %v", frame.Name(), err)
	}
	return robotToFrame, spatialmath.Distance2D(robotToFrame), nil
}

// lookForMarker looks at the known marker pose, then slightly around it, until the marker is
// detected again. It returns nil if the marker was not seen. Actuation failures are not fatal:
// the known pose is kept.
func (n *Navigator) lookForMarker(
	ctx context.Context,
	marker *aruco.Marker,
	robotFrame referenceframe.Frame,
	robotToMarker spatialmath.Pose,
) (*aruco.Marker, error) {
	snapshot, err := n.Registry().DetachedFrame(robotFrame, spatialmath.NewZeroPose(), time.Time{})
	if err != nil {
		return nil, err
	}
	defer n.ReleaseFrame(snapshot)
	onMarker := LookTarget{Base: marker.Frame, Pose: spatialmath.NewZeroPose()}
	targets := []LookTarget{onMarker, onMarker}
	for _, rotation := range scanRotations {
		targets = append(targets, LookTarget{
			Base: snapshot,
			Pose: spatialmath.Compose(spatialmath.NewPoseFromOrientation(rotation), robotToMarker),
		})
	}

	cfg := n.DefaultLookAroundConfig()
	cfg.LookAt.MovementPolicy = actuation.HeadAndBase
	cfg.LookAt.RequireBaseAligned = true
	cfg.Detection = cfg.Detection.WithPolicy(aruco.AttachedToMap)
	cfg.Validator = OnlyMarker(marker.ID)
	cfg.Termination = UntilAnyMarker

	found, err := n.LookAroundAndDetect(ctx, targets, cfg)
	switch {
	case err == nil:
	case errors.Is(err, ErrActuationFailed) && ctx.Err() == nil:
		n.logger.CWarnw(ctx, "could not look for marker, keeping its last pose", "marker", marker.ID, "error", err)
		return nil, nil
	default:
		return nil, errors.Wrapf(err, "looking for marker %d", marker.ID)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// advance walks walk meters along the line to the marker, ending up facing it.
func (n *Navigator) advance(
	ctx context.Context,
	robotFrame referenceframe.Frame,
	robotToMarker spatialmath.Pose,
	distance, walk float64,
	cfg GoToMarkerConfig,
) error {
	p := robotToMarker.Point()
	ratio := walk / distance
	stop := spatialmath.NewPose(
		r3.Vector{X: p.X * ratio, Y: p.Y * ratio},
		spatialmath.RotationAboutZ(math.Atan2(p.Y, p.X)),
	)
	target, err := n.Registry().DetachedFrame(robotFrame, stop, time.Time{})
	if err != nil {
		return errors.Wrap(err, "creating intermediate stop")
	}
	defer n.ReleaseFrame(target)
	return n.alignHeadAndGo(ctx, target, robotFrame, cfg.MaxRetries, actuation.FreeOrientation)
}

// goToMarkerFrame goes to the marker, facing it if cfg.AlignWithMarker. The approach frame is
// the marker frame rotated so its x axis is the marker z axis.
func (n *Navigator) goToMarkerFrame(
	ctx context.Context,
	marker *aruco.Marker,
	robotFrame referenceframe.Frame,
	cfg GoToMarkerConfig,
) error {
	rotation := quat.Mul(spatialmath.RotationAboutX(cfg.MarkerRotationRad), spatialmath.RotationAboutY(-math.Pi/2))
	target, err := n.graph().MakeAttachedFrame(marker.Frame, spatialmath.NewPoseFromOrientation(rotation))
	if err != nil {
		return errors.Wrap(err, "creating marker approach frame")
	}
	defer n.ReleaseFrame(target)
	policy := actuation.FreeOrientation
	if cfg.AlignWithMarker {
		policy = actuation.AlignX
	}
	return n.alignHeadAndGo(ctx, target, robotFrame, cfg.MaxRetries, policy)
}

// alignHeadAndGo straightens the head, then runs a retrying go-to. A head that does not settle
// does not prevent the go-to.
func (n *Navigator) alignHeadAndGo(
	ctx context.Context,
	target, robotFrame referenceframe.Frame,
	maxRetries int,
	policy actuation.OrientationPolicy,
) error {
	ahead, err := n.graph().MakeAttachedFrame(robotFrame, spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Z: transform.GazeFrameZ}))
	if err != nil {
		return errors.Wrap(err, "creating head alignment target")
	}
	defer n.ReleaseFrame(ahead)
	lookAt := n.cfg.LookAt
	lookAt.MovementPolicy = actuation.HeadOnly
	lookAt.RequireBaseAligned = false
	motion, err := n.LookAtUntilStable(ctx, ahead, lookAt)
	switch {
	case err == nil:
		if err := motion.Stop(); err != nil {
			n.logger.CWarnw(ctx, "head alignment failed", "error", err)
		}
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		n.logger.CDebugw(ctx, "head not aligned before go-to", "error", err)
	}

	goTo := n.cfg.GoTo
	goTo.MaxRetries = maxRetries
	goTo.OrientationPolicy = policy
	return n.RetryingGoTo(ctx, target, goTo)
}
