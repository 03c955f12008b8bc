// Package fake implements a simulated robot, camera and marker vision over an in-memory frame
// system. Odometry error can be injected to exercise drift correction.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
)

const (
	headYawLimit   = 2.0857
	headPitchUp    = -0.7068
	headPitchDown  = 0.6371
	lookAtPeriod   = 10 * time.Millisecond
	minBaseTurnRad = 1e-3
)

var _ actuation.Robot = (*Robot)(nil)

// Robot is a simulated robot. Its true pose lives in a hidden world; the frame graph reports the
// true pose composed with an odometry error, as a real robot's odometry would drift.
type Robot struct {
	clk    clock.Clock
	fs     *referenceframe.SimpleFrameSystem
	robot  *referenceframe.MovingFrame
	gaze   *referenceframe.MovingFrame
	logger logging.Logger

	mu        sync.Mutex
	base      spatialmath.Pose
	odomError spatialmath.Pose
	headYaw   float64
	headPitch float64
	abilities map[actuation.Ability]bool
	markers   map[int]spatialmath.Pose

	// GoToHook, when set, runs before each go-to; a non-nil error fails the go-to without moving.
	GoToHook func(ctx context.Context, attempt int) error
	// GoToDuration is how long a go-to takes on the robot clock.
	GoToDuration time.Duration

	goToCalls     atomic.Int32
	lookAtCalls   atomic.Int32
	activeLookAts atomic.Int32
}

// NewRobot returns a robot standing at the world origin, head straight.
func NewRobot(clk clock.Clock, logger logging.Logger) (*Robot, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = logging.Global()
	}
	fs := referenceframe.NewFrameSystem("fake", clk)
	robotFrame, err := fs.AddMovingFrame("robot", fs.World(), spatialmath.NewZeroPose())
	if err != nil {
		return nil, err
	}
	gaze, err := fs.AddMovingFrame("gaze", robotFrame, spatialmath.NewPoseFromPoint(r3.Vector{Z: transform.GazeFrameZ}))
	if err != nil {
		return nil, err
	}
	r := &Robot{
		clk:       clk,
		fs:        fs,
		robot:     robotFrame,
		gaze:      gaze,
		logger:    logger,
		base:      spatialmath.NewZeroPose(),
		odomError: spatialmath.NewZeroPose(),
		abilities: map[actuation.Ability]bool{},
		markers:   map[int]spatialmath.Pose{},
	}
	if err := r.publishLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

// FrameSystem returns the frame system backing the robot.
func (r *Robot) FrameSystem() *referenceframe.SimpleFrameSystem {
	return r.fs
}

// Graph returns the frame graph.
func (r *Robot) Graph() referenceframe.Graph {
	return r.fs
}

// RobotFrame returns the base frame.
func (r *Robot) RobotFrame(ctx context.Context) (referenceframe.Frame, error) {
	return r.robot, ctx.Err()
}

// GazeFrame returns the head camera mount frame.
func (r *Robot) GazeFrame(ctx context.Context) (referenceframe.Frame, error) {
	return r.gaze, ctx.Err()
}

// PlaceMarker puts a marker in the true world.
func (r *Robot) PlaceMarker(id int, pose spatialmath.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers[id] = pose
}

// TruePose returns the pose of the base in the true world.
func (r *Robot) TruePose() spatialmath.Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base
}

// SetTruePose teleports the base.
func (r *Robot) SetTruePose(pose spatialmath.Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = floorPose(pose.Point(), spatialmath.Yaw(pose.Orientation()))
	return r.publishLocked()
}

// SetOdometryError sets the error between the true base pose and the one reported in the graph.
func (r *Robot) SetOdometryError(pose spatialmath.Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.odomError = pose
	return r.publishLocked()
}

// GoTo moves the base to target. With FreeOrientation the base ends facing its direction of travel.
func (r *Robot) GoTo(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
	attempt := int(r.goToCalls.Inc())
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.GoToHook != nil {
		if err := r.GoToHook(ctx, attempt); err != nil {
			return err
		}
	}
	odomTarget, err := r.fs.ComputeTransform(target, r.fs.World())
	if err != nil {
		return errors.Wrap(err, "locating go-to target")
	}
	if r.GoToDuration > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clk.After(r.GoToDuration):
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	trueTarget := spatialmath.Compose(spatialmath.PoseInverse(r.odomError), odomTarget)
	var yaw float64
	if opts.OrientationPolicy == actuation.AlignX {
		yaw = spatialmath.Yaw(trueTarget.Orientation())
	} else {
		delta := trueTarget.Point().Sub(r.base.Point())
		if math.Hypot(delta.X, delta.Y) > 1e-6 {
			yaw = math.Atan2(delta.Y, delta.X)
		} else {
			yaw = spatialmath.Yaw(r.base.Orientation())
		}
	}
	r.base = floorPose(trueTarget.Point(), yaw)
	r.logger.CDebugw(ctx, "went to", "x", r.base.Point().X, "y", r.base.Point().Y, "yaw", yaw)
	return r.publishLocked()
}

// LookAt aims the head, and the base for HeadAndBase, at target until ctx is cancelled.
func (r *Robot) LookAt(ctx context.Context, target referenceframe.Frame, policy actuation.MovementPolicy) error {
	r.lookAtCalls.Inc()
	r.activeLookAts.Inc()
	defer r.activeLookAts.Dec()
	for {
		if err := r.aim(target, policy); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clk.After(lookAtPeriod):
		}
	}
}

func (r *Robot) aim(target referenceframe.Frame, policy actuation.MovementPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	robotToTarget, err := r.fs.ComputeTransform(target, r.robot)
	if err != nil {
		return errors.Wrap(err, "locating look-at target")
	}
	v := robotToTarget.Point().Sub(r3.Vector{Z: transform.GazeFrameZ})
	yaw := math.Atan2(v.Y, v.X)
	if policy == actuation.HeadAndBase && math.Abs(yaw) > minBaseTurnRad {
		r.base = spatialmath.Compose(r.base, spatialmath.NewPoseFromOrientation(spatialmath.RotationAboutZ(yaw)))
		v = spatialmath.RotateVector(spatialmath.RotationAboutZ(-yaw), v)
		yaw = math.Atan2(v.Y, v.X)
	}
	r.headYaw = clamp(yaw, -headYawLimit, headYawLimit)
	r.headPitch = clamp(math.Atan2(-v.Z, math.Hypot(v.X, v.Y)), headPitchUp, headPitchDown)
	return r.publishLocked()
}

// SetAbilityEnabled records the ability state.
func (r *Robot) SetAbilityEnabled(ctx context.Context, ability actuation.Ability, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abilities[ability] = enabled
	return nil
}

// AbilityEnabled reports an ability state; abilities start enabled.
func (r *Robot) AbilityEnabled(ability actuation.Ability) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	enabled, ok := r.abilities[ability]
	return !ok || enabled
}

// GoToCalls returns how many go-tos were requested.
func (r *Robot) GoToCalls() int {
	return int(r.goToCalls.Load())
}

// LookAtCalls returns how many look-ats were started.
func (r *Robot) LookAtCalls() int {
	return int(r.lookAtCalls.Load())
}

// ActiveLookAts returns how many look-ats are still running.
func (r *Robot) ActiveLookAts() int {
	return int(r.activeLookAts.Load())
}

// reported returns a true world pose as the robot graph sees it.
func (r *Robot) reported(pose spatialmath.Pose) spatialmath.Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return spatialmath.Compose(r.odomError, pose)
}

// trueGazeToWorld returns the true gaze pose. Callers hold mu.
func (r *Robot) trueGazeToWorld() spatialmath.Pose {
	return spatialmath.Compose(r.base, r.headPose())
}

func (r *Robot) headPose() spatialmath.Pose {
	rotation := quat.Mul(spatialmath.RotationAboutZ(r.headYaw), spatialmath.RotationAboutY(r.headPitch))
	return spatialmath.NewPose(r3.Vector{Z: transform.GazeFrameZ}, rotation)
}

func (r *Robot) publishLocked() error {
	now := r.clk.Now()
	if err := r.robot.SetPose(spatialmath.Compose(r.odomError, r.base), now); err != nil {
		return err
	}
	return r.gaze.SetPose(r.headPose(), now)
}

func floorPose(pt r3.Vector, yaw float64) spatialmath.Pose {
	return spatialmath.NewPose(r3.Vector{X: pt.X, Y: pt.Y}, spatialmath.RotationAboutZ(yaw))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
