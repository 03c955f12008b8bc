package navigation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/actuation/fake"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
)

// humanAt is a standing person at x, y facing -y, towards the line the robot starts on.
func humanAt(x, y float64) spatialmath.Pose {
	return spatialmath.NewPose(r3.Vector{X: x, Y: y, Z: 1.6}, spatialmath.RotationAboutZ(-math.Pi/2))
}

func engageConfig() EngageConfig {
	cfg := DefaultEngageConfig()
	cfg.GreetMs = 10
	return cfg
}

func TestEngageAndReturnFollowsHuman(t *testing.T) {
	f := newFixture(t)
	marker := registerFloorMarker(t, f, 7, 2, 0)
	humans := fake.NewHumans(f.robot)
	test.That(t, humans.Place(humanAt(0, 3)), test.ShouldBeNil)
	frames := len(f.robot.FrameSystem().FrameNames())

	var targets []r3.Vector
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		pose, err := f.robot.Graph().ComputeTransform(target, f.robot.Graph().World())
		if err != nil {
			return err
		}
		targets = append(targets, pose.Point())
		if len(targets) == 1 {
			// The human steps aside while the robot walks to them.
			if err := humans.Place(humanAt(1, 3)); err != nil {
				return err
			}
			return errors.New("human moved")
		}
		return f.robot.GoTo(ctx, target, opts)
	}

	result, err := f.nav.EngageAndReturn(context.Background(), humans, marker, engageConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.ReachedHuman, test.ShouldBeTrue)
	test.That(t, result.Return.Reached, test.ShouldBeTrue)

	test.That(t, len(targets), test.ShouldBeGreaterThanOrEqualTo, 3)
	test.That(t, targets[0].X, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, targets[0].Y, test.ShouldAlmostEqual, 2.5, 1e-6)
	test.That(t, targets[1].X, test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, targets[1].Y, test.ShouldAlmostEqual, 2.5, 1e-6)

	arrived := f.robot.TruePose().Point()
	test.That(t, arrived.X, test.ShouldAlmostEqual, 2, 1e-3)
	test.That(t, arrived.Y, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, f.robot.ActiveLookAts(), test.ShouldEqual, 0)
	test.That(t, f.robot.FrameSystem().FrameNames(), test.ShouldHaveLength, frames)
}

func TestEngageAndReturnUnreachableHuman(t *testing.T) {
	f := newFixture(t)
	marker := registerFloorMarker(t, f, 7, 2, 0)
	humans := fake.NewHumans(f.robot)
	test.That(t, humans.Place(humanAt(0, 3)), test.ShouldBeNil)

	var attempts atomic.Int32
	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		if attempts.Inc() == 1 {
			return errors.Wrap(ErrInvalidTarget, "no path to human")
		}
		return f.robot.GoTo(ctx, target, opts)
	}

	result, err := f.nav.EngageAndReturn(context.Background(), humans, marker, engageConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.ReachedHuman, test.ShouldBeFalse)
	test.That(t, result.Return.Reached, test.ShouldBeTrue)
	arrived := f.robot.TruePose().Point()
	test.That(t, arrived.X, test.ShouldAlmostEqual, 2, 1e-3)
}

func TestEngageAndReturnWaitsForHuman(t *testing.T) {
	f := newFixture(t)
	marker := registerFloorMarker(t, f, 7, 2, 0)
	humans := fake.NewHumans(f.robot)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.nav.EngageAndReturn(ctx, humans, marker, engageConfig())
	test.That(t, IsCancellation(err), test.ShouldBeTrue)
	test.That(t, f.robot.GoToCalls(), test.ShouldEqual, 0)

	_, err = f.nav.EngageAndReturn(context.Background(), nil, marker, engageConfig())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = f.nav.EngageAndReturn(context.Background(), humans, nil, engageConfig())
	test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)
	_, err = f.nav.EngageAndReturn(context.Background(), humans, marker, EngageConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "human_distance_m")
}

// countedHumans hands out the same person for a number of rounds, then cancels the loop.
type countedHumans struct {
	head   referenceframe.Frame
	rounds int32
	calls  atomic.Int32
	cancel context.CancelFunc
}

func (h *countedHumans) WaitForHuman(ctx context.Context) (referenceframe.Frame, error) {
	if h.calls.Inc() > h.rounds {
		h.cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return h.head, nil
}

func TestEngageLoop(t *testing.T) {
	f := newFixture(t)
	marker := registerFloorMarker(t, f, 7, 2, 0)
	room := fake.NewHumans(f.robot)
	test.That(t, room.Place(humanAt(0, 3)), test.ShouldBeNil)
	head, err := room.WaitForHuman(context.Background())
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	humans := &countedHumans{head: head, rounds: 2, cancel: cancel}

	err = f.nav.EngageLoop(ctx, humans, marker, engageConfig())
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, humans.calls.Load(), test.ShouldEqual, 3)
	test.That(t, f.robot.ActiveLookAts(), test.ShouldEqual, 0)
	arrived := f.robot.TruePose().Point()
	test.That(t, arrived.X, test.ShouldAlmostEqual, 2, 1e-3)
	test.That(t, arrived.Y, test.ShouldAlmostEqual, 0, 1e-3)
}
