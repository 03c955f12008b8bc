// Package referenceframe defines the frame graph that marker and robot poses live in.
package referenceframe

import (
	"time"

	"go.viam.com/markernav/spatialmath"
)

// Kind describes how a frame's pose relative to its parent evolves.
type Kind int

const (
	// KindAttached frames are rigidly fixed to their parent by a constant transform.
	KindAttached Kind = iota
	// KindFree frames are re-anchored on demand with FreeFrame.Update.
	KindFree
	// KindMoving frames are driven by an external source such as odometry and keep a pose history.
	KindMoving
)

func (k Kind) String() string {
	switch k {
	case KindAttached:
		return "attached"
	case KindFree:
		return "free"
	case KindMoving:
		return "moving"
	default:
		return "unknown"
	}
}

// Frame is an opaque, named handle to a pose in a frame tree.
type Frame interface {
	Name() string
}

// FreeFrame is a frame whose pose can be re-expressed relative to any other frame.
type FreeFrame interface {
	Frame

	// Update places the frame at pose relative to base as base was at timestamp. A zero timestamp
	// means the latest known pose of base.
	Update(base Frame, pose spatialmath.Pose, timestamp time.Time) error
}

// Graph is the set of frame primitives the localization and navigation layers need from a robot.
type Graph interface {
	// World returns the root of the tree.
	World() Frame

	// MakeFreeFrame returns a new free frame initially placed at the world origin.
	MakeFreeFrame() (FreeFrame, error)

	// MakeAttachedFrame returns a new frame rigidly attached to base at pose.
	MakeAttachedFrame(base Frame, pose spatialmath.Pose) (Frame, error)

	// ComputeTransform returns the pose of frame expressed in base, using the latest poses.
	ComputeTransform(frame, base Frame) (spatialmath.Pose, error)

	// ComputeTransformAt is ComputeTransform evaluated at timestamp. A zero timestamp means latest.
	ComputeTransformAt(frame, base Frame, timestamp time.Time) (spatialmath.Pose, error)

	// RemoveFrame deletes frame and its descendants. Unknown frames are ignored.
	RemoveFrame(frame Frame)
}

type frame struct {
	name string
	kind Kind
}

func (f *frame) Name() string {
	return f.name
}

// Kind returns the kind of the frame.
func (f *frame) Kind() Kind {
	return f.kind
}

type freeFrame struct {
	*frame
	fs *SimpleFrameSystem
}

func (ff *freeFrame) Update(base Frame, pose spatialmath.Pose, timestamp time.Time) error {
	return ff.fs.updateFreeFrame(ff, base, pose, timestamp)
}

// MovingFrame is a frame whose pose relative to its parent is reported over time, for instance the
// robot base driven by odometry.
type MovingFrame struct {
	*frame
	fs *SimpleFrameSystem
}

// SetPose records the frame's pose relative to its parent at timestamp. A zero timestamp uses the
// frame system's clock.
func (mf *MovingFrame) SetPose(pose spatialmath.Pose, timestamp time.Time) error {
	return mf.fs.recordPose(mf.frame, pose, timestamp)
}

type stampedPose struct {
	at   time.Time
	pose spatialmath.Pose
}
