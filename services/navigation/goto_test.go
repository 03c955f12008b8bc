package navigation

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
)

func goToTarget(t *testing.T, f *fixture, x, y float64) referenceframe.Frame {
	t.Helper()
	target, err := f.registry.DetachedFrame(f.robot.Graph().World(), spatialmath.NewPoseFromPoint(r3.Vector{X: x, Y: y}), timeZero)
	test.That(t, err, test.ShouldBeNil)
	return target
}

func TestRetryingGoToRetryBound(t *testing.T) {
	f := newFixture(t)
	var attempts atomic.Int32
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		attempts.Inc()
		return errors.New("obstacle in the way")
	}

	cfg := DefaultGoToConfig()
	cfg.MaxRetries = 2
	err := f.nav.RetryingGoTo(context.Background(), goToTarget(t, f, 1, 0), cfg)
	test.That(t, attempts.Load(), test.ShouldEqual, 3)
	test.That(t, errors.Is(err, ErrTooManyAttempts), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrActuationFailed), test.ShouldBeTrue)
	test.That(t, IsCancellation(err), test.ShouldBeFalse)
	test.That(t, err.Error(), test.ShouldContainSubstring, "obstacle in the way")
	test.That(t, err.Error(), test.ShouldContainSubstring, "attempt 3")

	var failed *attemptError
	test.That(t, errors.As(err, &failed), test.ShouldBeTrue)
	test.That(t, errors.Is(failed, ErrInvalidTarget), test.ShouldBeFalse)
}

func TestRetryingGoToUnreachableTargetIsNotRetried(t *testing.T) {
	f := newFixture(t)
	for _, backendErr := range []error{
		errors.Wrap(referenceframe.NewFrameMissingError("goal"), "locating go-to target"),
		referenceframe.ErrCycle,
		errors.Wrap(ErrInvalidTarget, "no path"),
	} {
		var attempts atomic.Int32
		f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
			attempts.Inc()
			return backendErr
		}

		cfg := DefaultGoToConfig()
		cfg.MaxRetries = 3
		err := f.nav.RetryingGoTo(context.Background(), goToTarget(t, f, 1, 0), cfg)
		test.That(t, attempts.Load(), test.ShouldEqual, 1)
		test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)
		test.That(t, errors.Is(err, backendErr), test.ShouldBeTrue)
		test.That(t, errors.Is(err, ErrTooManyAttempts), test.ShouldBeFalse)
		test.That(t, errors.Is(err, ErrActuationFailed), test.ShouldBeFalse)
		test.That(t, err.Error(), test.ShouldStartWith, "attempt 1: invalid target frame")
	}
}

func TestRetryingGoToSucceedsOnSecondAttempt(t *testing.T) {
	f := newFixture(t)
	var attempts atomic.Int32
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		if attempts.Inc() == 1 {
			return errors.New("slipped")
		}
		return f.robot.GoTo(ctx, target, opts)
	}

	cfg := DefaultGoToConfig()
	cfg.MaxRetries = 2
	err := f.nav.RetryingGoTo(context.Background(), goToTarget(t, f, 1, 2), cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, attempts.Load(), test.ShouldEqual, 2)
	test.That(t, f.robot.TruePose().Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, f.robot.TruePose().Point().Y, test.ShouldAlmostEqual, 2)
}

func TestRetryingGoToCancellationIsNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		attempts.Inc()
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	err := f.nav.RetryingGoTo(ctx, goToTarget(t, f, 1, 0), DefaultGoToConfig())
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, IsCancellation(err), test.ShouldBeTrue)
	test.That(t, attempts.Load(), test.ShouldEqual, 1)
}

func TestRetryingGoToWatchdog(t *testing.T) {
	f := newFixture(t)
	var attempts atomic.Int32
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		attempts.Inc()
		<-ctx.Done()
		return ctx.Err()
	}

	cfg := DefaultGoToConfig()
	cfg.MaxRetries = 1
	cfg.AttemptTimeoutSec = 0.02
	err := f.nav.RetryingGoTo(context.Background(), goToTarget(t, f, 1, 0), cfg)
	test.That(t, attempts.Load(), test.ShouldEqual, 2)
	test.That(t, errors.Is(err, ErrTooManyAttempts), test.ShouldBeTrue)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeFalse)
	test.That(t, IsCancellation(err), test.ShouldBeFalse)
	test.That(t, err.Error(), test.ShouldContainSubstring, "timed out")
}

func TestRetryingGoToInvalidTarget(t *testing.T) {
	f := newFixture(t)
	err := f.nav.RetryingGoTo(context.Background(), nil, DefaultGoToConfig())
	test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)

	other := referenceframe.NewFrameSystem("other", nil)
	stranger, err := other.MakeFreeFrame()
	test.That(t, err, test.ShouldBeNil)
	err = f.nav.RetryingGoTo(context.Background(), stranger, DefaultGoToConfig())
	test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)
	test.That(t, f.robot.GoToCalls(), test.ShouldEqual, 0)

	bad := DefaultGoToConfig()
	bad.MaxRetries = -1
	err = f.nav.RetryingGoTo(context.Background(), goToTarget(t, f, 1, 0), bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_retries")
}

func TestRetryingGoToFollowsMovingTarget(t *testing.T) {
	f := newFixture(t)
	target, err := f.robot.Graph().MakeFreeFrame()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, target.Update(f.robot.Graph().World(), floorMarker(1, 0), timeZero), test.ShouldBeNil)

	var attempts atomic.Int32
	f.injected.GoToFunc = func(ctx context.Context, frame referenceframe.Frame, opts actuation.GoToOptions) error {
		if attempts.Inc() == 1 {
			// The target walks away during the first attempt.
			test.That(t, target.Update(f.robot.Graph().World(), floorMarker(2, 1), timeZero), test.ShouldBeNil)
			return errors.New("target moved")
		}
		return f.robot.GoTo(ctx, frame, opts)
	}
	test.That(t, f.nav.RetryingGoTo(context.Background(), target, DefaultGoToConfig()), test.ShouldBeNil)
	test.That(t, f.robot.TruePose().Point().X, test.ShouldAlmostEqual, 2)
	test.That(t, f.robot.TruePose().Point().Y, test.ShouldAlmostEqual, 1)
}

func TestGoStraightTo(t *testing.T) {
	f := newFixture(t)
	var opts actuation.GoToOptions
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, o actuation.GoToOptions) error {
		opts = o
		return f.robot.GoTo(ctx, target, o)
	}

	test.That(t, f.nav.GoStraightTo(context.Background(), 1, 1, math.Pi/2, DefaultGoToConfig()), test.ShouldBeNil)
	test.That(t, opts.OrientationPolicy, test.ShouldEqual, actuation.AlignX)
	pose := f.robot.TruePose()
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, pose.Point().Y, test.ShouldAlmostEqual, 1)
	test.That(t, spatialmath.Yaw(pose.Orientation()), test.ShouldAlmostEqual, math.Pi/2)

	// Relative to where the robot now stands, facing +y.
	test.That(t, f.nav.GoStraightTo(context.Background(), 1, 0, 0, DefaultGoToConfig()), test.ShouldBeNil)
	pose = f.robot.TruePose()
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, pose.Point().Y, test.ShouldAlmostEqual, 2)

	err := f.nav.GoStraightTo(context.Background(), math.NaN(), 0, 0, DefaultGoToConfig())
	test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)
}
