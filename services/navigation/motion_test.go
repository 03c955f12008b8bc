package navigation

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/referenceframe"
)

func TestMotionStop(t *testing.T) {
	f := newFixture(t)
	motion := f.nav.StartLookAt(context.Background(), gazeHeightTarget(t, f, 2, 0, 0), actuation.HeadOnly)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, f.robot.ActiveLookAts(), test.ShouldEqual, 1)
	})
	select {
	case <-motion.Done():
		t.Fatal("motion ended by itself")
	default:
	}

	test.That(t, motion.Stop(), test.ShouldBeNil)
	test.That(t, motion.Stop(), test.ShouldBeNil)
	<-motion.Done()
	test.That(t, f.robot.ActiveLookAts(), test.ShouldEqual, 0)
}

func TestMotionBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.injected.LookAtFunc = func(ctx context.Context, target referenceframe.Frame, policy actuation.MovementPolicy) error {
		return errors.New("joint limit")
	}
	motion := f.nav.StartLookAt(context.Background(), gazeHeightTarget(t, f, 2, 0, 0), actuation.HeadOnly)
	<-motion.Done()
	test.That(t, errors.Is(motion.Err(), ErrActuationFailed), test.ShouldBeTrue)
	test.That(t, motion.Err().Error(), test.ShouldContainSubstring, "joint limit")
	test.That(t, errors.Is(motion.Stop(), ErrActuationFailed), test.ShouldBeTrue)
}

func TestMotionCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	motion := f.nav.StartLookAt(ctx, gazeHeightTarget(t, f, 2, 0, 0), actuation.HeadOnly)
	test.That(t, motion.Stop(), test.ShouldBeNil)
	<-motion.Done()
}
