package localization

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.viam.com/test"

	"go.viam.com/markernav/actuation/fake"
	"go.viam.com/markernav/logging"
)

func TestSessions(t *testing.T) {
	robot, err := fake.NewRobot(clock.NewMock(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	gaze, err := robot.GazeFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	sessions := NewSessions(robot.Graph(), gaze, logging.NewTestLogger(t))
	fs := robot.FrameSystem()

	_, err = sessions.For(uuid.Nil)
	test.That(t, err, test.ShouldNotBeNil)

	first := NewSessionID()
	registry, err := sessions.For(first)
	test.That(t, err, test.ShouldBeNil)
	_, err = registry.Observe(context.Background(), sample(1), attachedConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fs.FrameNames(), test.ShouldHaveLength, 4)

	same, err := sessions.For(first)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, registry)

	second := NewSessionID()
	fresh, err := sessions.For(second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fresh, test.ShouldNotEqual, registry)
	test.That(t, fresh.Markers(), test.ShouldBeEmpty)
	// The previous map origin and its marker are gone; only the new map origin was added.
	test.That(t, fs.FrameNames(), test.ShouldHaveLength, 3)
	_, err = fs.Frame(registry.MapOrigin().Name())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = fs.Frame(fresh.MapOrigin().Name())
	test.That(t, err, test.ShouldBeNil)

	current, currentRegistry := sessions.Current()
	test.That(t, current, test.ShouldEqual, second)
	test.That(t, currentRegistry, test.ShouldEqual, fresh)
}
