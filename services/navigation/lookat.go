package navigation

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
)

// IsLookingAt reports whether target is in front of the gaze and less than delta meters off its
// x axis.
func IsLookingAt(graph referenceframe.Graph, gaze, target referenceframe.Frame, delta float64) (bool, error) {
	gazeToTarget, err := graph.ComputeTransform(target, gaze)
	if err != nil {
		return false, err
	}
	p := gazeToTarget.Point()
	return p.X > 0 && math.Abs(p.Y) < delta && math.Abs(p.Z) < delta, nil
}

// stillnessWindow keeps the last robot poses to tell whether the base stopped moving. The newest
// pose is compared with the one lag samples earlier, which is less sensitive to noise than
// comparing consecutive samples.
type stillnessWindow struct {
	lag   int
	poses []spatialmath.Pose
}

func newStillnessWindow(lag int) *stillnessWindow {
	return &stillnessWindow{lag: lag}
}

func (w *stillnessWindow) add(pose spatialmath.Pose) {
	w.poses = append(w.poses, pose)
	if len(w.poses) > w.lag+1 {
		w.poses = w.poses[1:]
	}
}

func (w *stillnessWindow) stopped(delta, maxAngle float64) bool {
	if len(w.poses) <= w.lag {
		return false
	}
	translation, angle := spatialmath.PoseDelta(w.poses[0], w.poses[w.lag])
	return math.Abs(translation.X) < delta && math.Abs(translation.Y) < delta && angle < maxAngle
}

// WaitUntilLookingAt polls every cfg.SamplingPeriod until the gaze is on target and, if
// cfg.RequireBaseAligned, the base faces the target or stopped turning. It returns
// ErrLookAtTimeout after cfg.Timeout.
func (n *Navigator) WaitUntilLookingAt(ctx context.Context, target referenceframe.Frame, cfg LookAtConfig) error {
	return n.waitUntilLookingAt(ctx, target, cfg, nil)
}

// waitUntilLookingAt also gives up when motionDone is closed.
func (n *Navigator) waitUntilLookingAt(
	ctx context.Context,
	target referenceframe.Frame,
	cfg LookAtConfig,
	motionDone <-chan struct{},
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gaze, err := n.robot.GazeFrame(ctx)
	if err != nil {
		return errors.Wrap(err, "getting gaze frame")
	}
	robotFrame, err := n.robot.RobotFrame(ctx)
	if err != nil {
		return errors.Wrap(err, "getting robot frame")
	}

	ticker := n.clk.Ticker(cfg.SamplingPeriod())
	defer ticker.Stop()
	timeout := n.clk.Timer(cfg.Timeout())
	defer timeout.Stop()

	window := newStillnessWindow(cfg.StoppedWindow)
	for {
		settled, err := n.settled(target, gaze, robotFrame, cfg, window)
		if err != nil {
			return errors.Wrapf(ErrInvalidTarget, "locating %q: %v", target.Name(), err)
		}
		if settled {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-motionDone:
			if err := ctx.Err(); err != nil {
				return err
			}
			return errors.Errorf("look-at at %q stopped before settling", target.Name())
		case <-timeout.C:
			return errors.Wrapf(ErrLookAtTimeout, "looking at %q for %v", target.Name(), cfg.Timeout())
		case <-ticker.C:
		}
	}
}

// settled records the robot pose only while the gaze is on target, so the base stillness check
// compares poses taken with the head already aligned.
func (n *Navigator) settled(
	target, gaze, robotFrame referenceframe.Frame,
	cfg LookAtConfig,
	window *stillnessWindow,
) (bool, error) {
	graph := n.graph()
	lookingAt, err := IsLookingAt(graph, gaze, target, cfg.AlignedDelta)
	if err != nil || !lookingAt || !cfg.RequireBaseAligned {
		return lookingAt, err
	}

	robotToTarget, err := graph.ComputeTransform(target, robotFrame)
	if err != nil {
		return false, err
	}
	worldToRobot, err := graph.ComputeTransform(robotFrame, graph.World())
	if err != nil {
		return false, err
	}
	window.add(worldToRobot)

	tb := robotToTarget.Point()
	baseAligned := tb.X > 0 && math.Abs(tb.Y) < cfg.AlignedDelta
	return baseAligned || window.stopped(cfg.AlignedDelta, cfg.StoppedAngleRad), nil
}

// LookAtUntilStable starts looking at target and returns the running motion once the gaze
// settled. The caller stops the motion. On any error the motion is already stopped; a settling
// timeout returns ErrLookAtTimeout, which IsCancellation reports as a cancellation.
func (n *Navigator) LookAtUntilStable(ctx context.Context, target referenceframe.Frame, cfg LookAtConfig) (*Motion, error) {
	if target == nil {
		return nil, ErrInvalidTarget
	}
	if err := cfg.Validate("look_at"); err != nil {
		return nil, err
	}
	motion := n.StartLookAt(ctx, target, cfg.MovementPolicy)
	if err := n.waitUntilLookingAt(ctx, target, cfg, motion.Done()); err != nil {
		if motionErr := motion.Stop(); motionErr != nil {
			return nil, motionErr
		}
		return nil, err
	}
	return motion, nil
}
