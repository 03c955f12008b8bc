package navigation

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/vision/aruco"
)

// ReturnToMarker brings the robot back to a known marker: it walks to cfg.ApproachDistanceM of
// the marker, turns to look at it until the gaze settles, runs one detection pass to correct the
// marker pose, then goes to the marker.
func (n *Navigator) ReturnToMarker(ctx context.Context, marker *aruco.Marker, cfg GoToMarkerConfig) (Result, error) {
	if marker == nil || marker.Frame == nil {
		return Result{}, ErrInvalidTarget
	}
	if err := cfg.Validate("return_to_marker"); err != nil {
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
	var result Result

	robotToMarker, distance, err := n.locate(marker.Frame, robotFrame)
	if err != nil {
		return result, err
	}
	if walk := distance - cfg.ApproachDistanceM; walk > 0 {
		if err := n.advance(ctx, robotFrame, robotToMarker, distance, walk, cfg); err != nil {
			return result, err
		}
	}

	lookAt := n.cfg.LookAt
	lookAt.MovementPolicy = actuation.HeadAndBase
	lookAt.RequireBaseAligned = true
	motion, err := n.LookAtUntilStable(ctx, marker.Frame, lookAt)
	switch {
	case err == nil:
		seen, detectErr := n.detectAgain(ctx, marker)
		// The look-at runs during the detection so the gaze stays on the marker.
		if stopErr := motion.Stop(); stopErr != nil {
			n.logger.CWarnw(ctx, "look-at failed while detecting", "marker", marker.ID, "error", stopErr)
		}
		if detectErr != nil {
			return result, detectErr
		}
		result.Corrected = seen
	case ctx.Err() != nil:
		return result, ctx.Err()
	default:
		n.logger.CInfow(ctx, "could not look at marker, keeping its last pose", "marker", marker.ID, "error", err)
	}

	if err := n.goToMarkerFrame(ctx, marker, robotFrame, cfg); err != nil {
		return result, err
	}
	result.Reached = true
	return result, nil
}

func (n *Navigator) detectAgain(ctx context.Context, marker *aruco.Marker) (*aruco.Marker, error) {
	markers, err := n.detector.DetectMarkers(ctx, n.detection)
	if err != nil {
		return nil, errors.Wrapf(err, "detecting marker %d", marker.ID)
	}
	for _, m := range markers {
		if m.ID == marker.ID {
			return m, nil
		}
	}
	return nil, nil
}

// DistanceToMarker returns the floor distance between the robot and marker.
func (n *Navigator) DistanceToMarker(ctx context.Context, marker *aruco.Marker) (float64, error) {
	robotFrame, err := n.robot.RobotFrame(ctx)
	if err != nil {
		return math.NaN(), err
	}
	_, distance, err := n.locate(marker.Frame, robotFrame)
	return distance, err
}
