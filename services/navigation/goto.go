package navigation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/utils"
)

// RetryingGoTo moves the robot to target, retrying backend failures up to cfg.MaxRetries times.
// The target is located again before each attempt since it may move. Each attempt is cancelled
// by a watchdog after cfg.AttemptTimeout; a watchdog expiry counts as a failed attempt.
// Cancelling ctx stops immediately without retrying and returns ctx.Err(). A backend error
// naming a missing or unreachable target is returned at once as ErrInvalidTarget.
func (n *Navigator) RetryingGoTo(ctx context.Context, target referenceframe.Frame, cfg GoToConfig) error {
	if target == nil {
		return ErrInvalidTarget
	}
	if err := cfg.Validate("go_to"); err != nil {
		return err
	}
	robotFrame, err := n.robot.RobotFrame(ctx)
	if err != nil {
		return errors.Wrap(err, "getting robot frame")
	}

	var attemptErrs error
	attempts := cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		robotToTarget, err := n.graph().ComputeTransform(target, robotFrame)
		if err != nil {
			return errors.Wrapf(ErrInvalidTarget, "locating %q: %v", target.Name(), err)
		}
		n.logger.CDebugw(ctx, "going to frame",
			"target", target.Name(), "attempt", attempt, "distance", spatialmath.Distance2D(robotToTarget))

		err = n.goToOnce(ctx, target, cfg, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, ErrActuationFailed) {
			return err
		}
		n.logger.CInfow(ctx, "go-to attempt failed", "target", target.Name(), "attempt", attempt, "error", err)
		multierr.AppendInto(&attemptErrs, err)
	}
	return multierr.Combine(errors.Wrapf(ErrTooManyAttempts, "%q after %d attempts", target.Name(), attempts), attemptErrs)
}

func (n *Navigator) goToOnce(ctx context.Context, target referenceframe.Frame, cfg GoToConfig, attempt int) error {
	attemptCtx, cancel := n.clk.WithTimeout(ctx, cfg.AttemptTimeout())
	defer cancel()
	defer utils.SlowLogger(attemptCtx, n.clk, "waiting for go-to", "attempt", strconv.Itoa(attempt), n.logger)()

	err := n.robot.GoTo(attemptCtx, target, cfg.options())
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case attemptCtx.Err() != nil:
		// Drop the context error so a watchdog expiry is not mistaken for a cancellation.
		return errors.Wrapf(ErrActuationFailed, "attempt %d timed out after %v", attempt, cfg.AttemptTimeout())
	case errors.Is(err, ErrInvalidTarget),
		errors.Is(err, referenceframe.ErrFrameMissing),
		errors.Is(err, referenceframe.ErrCycle):
		return &attemptError{attempt: attempt, kind: ErrInvalidTarget, err: err}
	default:
		return &attemptError{attempt: attempt, kind: ErrActuationFailed, err: err}
	}
}

// attemptError is a failed go-to attempt. It matches kind with errors.Is and unwraps to the
// backend error.
type attemptError struct {
	attempt int
	kind    error
	err     error
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("attempt %d: %v: %v", e.attempt, e.kind, e.err)
}

func (e *attemptError) Is(target error) bool {
	return target == e.kind
}

func (e *attemptError) Unwrap() error {
	return e.err
}

// GoStraightTo moves the robot to x, y (meters) and heading theta (radians) expressed in the
// robot frame as it is now.
func (n *Navigator) GoStraightTo(ctx context.Context, x, y, theta float64, cfg GoToConfig) error {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(theta) {
		return errors.Wrap(ErrInvalidTarget, "coordinates must be numbers")
	}
	robotFrame, err := n.robot.RobotFrame(ctx)
	if err != nil {
		return errors.Wrap(err, "getting robot frame")
	}
	pose := spatialmath.NewPose(r3.Vector{X: x, Y: y}, spatialmath.RotationAboutZ(theta))
	target, err := n.Registry().DetachedFrame(robotFrame, pose, time.Time{})
	if err != nil {
		return errors.Wrap(err, "creating go-to target")
	}
	defer n.ReleaseFrame(target)
	cfg.OrientationPolicy = actuation.AlignX
	return n.RetryingGoTo(ctx, target, cfg)
}
