package navigation

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/actuation/fake"
	"go.viam.com/markernav/localization"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/testutils/inject"
)

var timeZero time.Time

type fixture struct {
	robot    *fake.Robot
	injected *inject.Robot
	registry *localization.Registry
	detector *localization.Detector
	nav      *Navigator
}

// testConfig polls fast so tests driving the fake robot on the wall clock stay quick.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GoTo.AttemptTimeoutSec = 5
	cfg.LookAt.SamplingPeriodMs = 5
	cfg.LookAt.TimeoutMs = 1000
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewTestLogger(t)
	robot, err := fake.NewRobot(nil, logger)
	test.That(t, err, test.ShouldBeNil)
	injected := &inject.Robot{Robot: robot}

	gaze, err := robot.GazeFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	registry, err := localization.NewRegistry(robot.Graph(), gaze, logger)
	test.That(t, err, test.ShouldBeNil)

	camera := transform.PepperHeadCamera()
	vision := fake.NewVision(robot, camera)
	detector, err := localization.NewDetector(registry, fake.NewCamera(robot), vision, vision, logger)
	test.That(t, err, test.ShouldBeNil)

	nav, err := NewNavigator(injected, detector, camera, testConfig(), nil, logger)
	test.That(t, err, test.ShouldBeNil)
	return &fixture{robot: robot, injected: injected, registry: registry, detector: detector, nav: nav}
}

func floorMarker(x, y float64) spatialmath.Pose {
	return spatialmath.NewPoseFromPoint(r3.Vector{X: x, Y: y})
}

func TestNewNavigator(t *testing.T) {
	f := newFixture(t)
	test.That(t, f.nav.Registry(), test.ShouldEqual, f.registry)
	test.That(t, f.nav.DetectionConfig().Policy.String(), test.ShouldEqual, "ATTACHED_TO_MAPFRAME")
	test.That(t, f.nav.Config().GoToMarker.DistanceBetweenStopsM, test.ShouldEqual, 3.0)

	_, err := NewNavigator(nil, f.detector, transform.PepperHeadCamera(), DefaultConfig(), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewNavigator(f.injected, f.detector, nil, DefaultConfig(), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera")

	quiet := logging.NewBlankLogger("navtest").Sublogger("quiet")
	cfg := testConfig()
	cfg.Log = []logging.LoggerPatternConfig{{Pattern: "navtest.*", Level: "ERROR"}}
	_, err = NewNavigator(f.injected, f.detector, transform.PepperHeadCamera(), cfg, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quiet.Level(), test.ShouldEqual, zapcore.ErrorLevel)

	bad := DefaultConfig()
	bad.LookAt.SamplingPeriodMs = 0
	_, err = NewNavigator(f.injected, f.detector, transform.PepperHeadCamera(), bad, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIsCancellation(t *testing.T) {
	test.That(t, IsCancellation(context.Canceled), test.ShouldBeTrue)
	test.That(t, IsCancellation(context.DeadlineExceeded), test.ShouldBeTrue)
	test.That(t, IsCancellation(ErrLookAtTimeout), test.ShouldBeTrue)
	test.That(t, IsCancellation(ErrActuationFailed), test.ShouldBeFalse)
	test.That(t, IsCancellation(ErrTooManyAttempts), test.ShouldBeFalse)
	test.That(t, IsCancellation(nil), test.ShouldBeFalse)
}

func TestAutonomousAbilities(t *testing.T) {
	f := newFixture(t)
	abilities := f.nav.Abilities()

	release, err := abilities.Hold(context.Background())
	test.That(t, err, test.ShouldBeNil)
	for _, ability := range DefaultAbilities {
		test.That(t, f.robot.AbilityEnabled(ability), test.ShouldBeFalse)
	}

	t.Run("exclusive", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := abilities.Hold(ctx)
		test.That(t, err, test.ShouldBeError, context.Canceled)
	})

	release()
	release()
	for _, ability := range DefaultAbilities {
		test.That(t, f.robot.AbilityEnabled(ability), test.ShouldBeTrue)
	}

	t.Run("failure re-enables", func(t *testing.T) {
		f.injected.SetAbilityEnabledFunc = func(ctx context.Context, ability actuation.Ability, enabled bool) error {
			if ability == actuation.AutonomousBlinking && !enabled {
				return ErrActuationFailed
			}
			return f.robot.SetAbilityEnabled(ctx, ability, enabled)
		}
		defer func() { f.injected.SetAbilityEnabledFunc = nil }()

		_, err := abilities.Hold(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "autonomous_blinking")
		test.That(t, f.robot.AbilityEnabled(actuation.BasicAwareness), test.ShouldBeTrue)
		test.That(t, f.robot.AbilityEnabled(actuation.BackgroundMovement), test.ShouldBeTrue)
	})

	release, err = abilities.Hold(context.Background(), actuation.BasicAwareness)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.robot.AbilityEnabled(actuation.BasicAwareness), test.ShouldBeFalse)
	test.That(t, f.robot.AbilityEnabled(actuation.BackgroundMovement), test.ShouldBeTrue)
	release()
}

func TestActionsReleaseTransientFrames(t *testing.T) {
	f := newFixture(t)
	fs := f.robot.FrameSystem()
	marker := registerFloorMarker(t, f, 7, 4.5, 0)
	frames := len(fs.FrameNames())

	for i := 0; i < 5; i++ {
		ref, err := f.nav.GazeHeightReference(context.Background())
		test.That(t, err, test.ShouldBeNil)
		_, err = f.nav.LookAroundAndDetect(context.Background(), SphericalTargets(ref, FloorFrontOnly...), f.nav.DefaultLookAroundConfig())
		test.That(t, err, test.ShouldBeNil)
		f.nav.ReleaseFrame(ref)
		test.That(t, fs.FrameNames(), test.ShouldHaveLength, frames)

		test.That(t, f.nav.GoStraightTo(context.Background(), 0.1, 0, 0, DefaultGoToConfig()), test.ShouldBeNil)
		test.That(t, fs.FrameNames(), test.ShouldHaveLength, frames)
	}

	_, err := f.nav.GoToMarkerCheckingPositionOnTheWay(context.Background(), marker, approachConfig(f))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fs.FrameNames(), test.ShouldHaveLength, frames)

	f.injected.GoToFunc = func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
		return errors.New("stuck")
	}
	cfg := DefaultGoToConfig()
	cfg.MaxRetries = 0
	test.That(t, f.nav.GoStraightTo(context.Background(), 1, 0, 0, cfg), test.ShouldNotBeNil)
	test.That(t, fs.FrameNames(), test.ShouldHaveLength, frames)
}
