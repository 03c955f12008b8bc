package referenceframe

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/markernav/spatialmath"
)

// World is the string "world", but made into an exported constant.
const World = "world"

// defaultHistoryLength bounds the pose history kept for each moving frame.
const defaultHistoryLength = 512

var _ Graph = (*SimpleFrameSystem)(nil)

// SimpleFrameSystem is an in-memory Graph: a tree of frames rooted at World. It is safe for
// concurrent use.
type SimpleFrameSystem struct {
	mu         sync.RWMutex
	name       string
	clock      clock.Clock
	historyLen int

	world   *frame
	frames  map[string]*frame
	parents map[*frame]*frame
	poses   map[*frame][]stampedPose
}

// NewFrameSystem creates an empty frame system. A nil clock uses the wall clock.
func NewFrameSystem(name string, clk clock.Clock) *SimpleFrameSystem {
	if clk == nil {
		clk = clock.New()
	}
	return &SimpleFrameSystem{
		name:       name,
		clock:      clk,
		historyLen: defaultHistoryLength,
		world:      &frame{name: World, kind: KindAttached},
		frames:     map[string]*frame{},
		parents:    map[*frame]*frame{},
		poses:      map[*frame][]stampedPose{},
	}
}

// Name returns the name of the frame system.
func (sfs *SimpleFrameSystem) Name() string {
	return sfs.name
}

// World returns the base world referenceframe.
func (sfs *SimpleFrameSystem) World() Frame {
	return sfs.world
}

// FrameNames returns the sorted names of all frames except World.
func (sfs *SimpleFrameSystem) FrameNames() []string {
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()
	names := lo.Keys(sfs.frames)
	sort.Strings(names)
	return names
}

// Frame returns the frame with the given name.
func (sfs *SimpleFrameSystem) Frame(name string) (Frame, error) {
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()
	f, err := sfs.lookup(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Parent returns the parent frame of the input referenceframe.
func (sfs *SimpleFrameSystem) Parent(f Frame) (Frame, error) {
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()
	if f == nil {
		return nil, NewParentFrameMissingError()
	}
	node, err := sfs.lookup(f.Name())
	if err != nil {
		return nil, err
	}
	if node == sfs.world {
		return nil, errNoParent
	}
	return sfs.parents[node], nil
}

// AddStaticFrame adds a named frame rigidly attached to parent.
func (sfs *SimpleFrameSystem) AddStaticFrame(name string, parent Frame, pose spatialmath.Pose) (Frame, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	f := &frame{name: name, kind: KindAttached}
	if err := sfs.addFrame(f, parent, pose, time.Time{}); err != nil {
		return nil, err
	}
	return f, nil
}

// AddMovingFrame adds a named frame whose pose relative to parent is recorded over time.
func (sfs *SimpleFrameSystem) AddMovingFrame(name string, parent Frame, initial spatialmath.Pose) (*MovingFrame, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	f := &frame{name: name, kind: KindMoving}
	if err := sfs.addFrame(f, parent, initial, sfs.clock.Now()); err != nil {
		return nil, err
	}
	return &MovingFrame{frame: f, fs: sfs}, nil
}

// MakeFreeFrame returns a new free frame placed at the world origin.
func (sfs *SimpleFrameSystem) MakeFreeFrame() (FreeFrame, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	f := &frame{name: fmt.Sprintf("free-%s", uuid.NewString()), kind: KindFree}
	if err := sfs.addFrame(f, sfs.world, spatialmath.NewZeroPose(), time.Time{}); err != nil {
		return nil, err
	}
	return &freeFrame{frame: f, fs: sfs}, nil
}

// MakeAttachedFrame returns a new frame rigidly attached to base at pose.
func (sfs *SimpleFrameSystem) MakeAttachedFrame(base Frame, pose spatialmath.Pose) (Frame, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	f := &frame{name: fmt.Sprintf("attached-%s", uuid.NewString()), kind: KindAttached}
	if err := sfs.addFrame(f, base, pose, time.Time{}); err != nil {
		return nil, err
	}
	return f, nil
}

// RemoveFrame will delete the given frame and all descendents from the frame system if it exists.
func (sfs *SimpleFrameSystem) RemoveFrame(f Frame) {
	if f == nil {
		return
	}
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	node, ok := sfs.frames[f.Name()]
	if !ok {
		return
	}
	sfs.removeFrame(node)
}

func (sfs *SimpleFrameSystem) removeFrame(node *frame) {
	delete(sfs.frames, node.name)
	delete(sfs.parents, node)
	delete(sfs.poses, node)
	for child, parent := range sfs.parents {
		if parent == node {
			sfs.removeFrame(child)
		}
	}
}

// TracebackFrame traces the parentage of the given frame up to the world, and returns the full list of frames in between.
// The list will include both the query frame and the world referenceframe.
func (sfs *SimpleFrameSystem) TracebackFrame(query Frame) ([]Frame, error) {
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()
	node, err := sfs.lookup(query.Name())
	if err != nil {
		return nil, err
	}
	var chain []Frame
	for ; node != sfs.world; node = sfs.parents[node] {
		chain = append(chain, node)
	}
	return append(chain, sfs.world), nil
}

// ComputeTransform returns the latest pose of f expressed in base.
func (sfs *SimpleFrameSystem) ComputeTransform(f, base Frame) (spatialmath.Pose, error) {
	return sfs.ComputeTransformAt(f, base, time.Time{})
}

// ComputeTransformAt returns the pose of f expressed in base with every moving frame evaluated at
// timestamp. A zero timestamp means latest.
func (sfs *SimpleFrameSystem) ComputeTransformAt(f, base Frame, timestamp time.Time) (spatialmath.Pose, error) {
	if f == nil || base == nil {
		return nil, NewParentFrameMissingError()
	}
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()

	// catch all errors together so both missing frames are reported
	var errAll error
	src, err := sfs.lookup(f.Name())
	multierr.AppendInto(&errAll, err)
	dst, err := sfs.lookup(base.Name())
	multierr.AppendInto(&errAll, err)
	if errAll != nil {
		return nil, errAll
	}

	srcToWorld := sfs.composeTransforms(src, timestamp)
	dstToWorld := sfs.composeTransforms(dst, timestamp)
	return spatialmath.Compose(spatialmath.PoseInverse(dstToWorld), srcToWorld), nil
}

func (sfs *SimpleFrameSystem) lookup(name string) (*frame, error) {
	if name == World {
		return sfs.world, nil
	}
	if f, ok := sfs.frames[name]; ok {
		return f, nil
	}
	return nil, NewFrameMissingError(name)
}

func (sfs *SimpleFrameSystem) addFrame(f *frame, parent Frame, pose spatialmath.Pose, at time.Time) error {
	if parent == nil {
		return NewParentFrameMissingError()
	}
	parentNode, err := sfs.lookup(parent.Name())
	if err != nil {
		return errors.Wrap(err, "parent")
	}
	if _, err := sfs.lookup(f.name); err == nil {
		return NewFrameAlreadyExistsError(f.name)
	}
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	sfs.frames[f.name] = f
	sfs.parents[f] = parentNode
	sfs.poses[f] = []stampedPose{{at: at, pose: pose}}
	return nil
}

func (sfs *SimpleFrameSystem) updateFreeFrame(ff *freeFrame, base Frame, pose spatialmath.Pose, timestamp time.Time) error {
	if base == nil {
		return NewParentFrameMissingError()
	}
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	node, err := sfs.lookup(ff.name)
	if err != nil {
		return err
	}
	baseNode, err := sfs.lookup(base.Name())
	if err != nil {
		return err
	}
	for ancestor := baseNode; ancestor != sfs.world; ancestor = sfs.parents[ancestor] {
		if ancestor == node {
			return errors.Wrapf(ErrCycle, "updating %q relative to %q", node.name, baseNode.name)
		}
	}
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	// Free frames hang off World: the base is resolved now and the result is fixed until the next update.
	sfs.parents[node] = sfs.world
	sfs.poses[node] = []stampedPose{{pose: spatialmath.Compose(sfs.composeTransforms(baseNode, timestamp), pose)}}
	return nil
}

func (sfs *SimpleFrameSystem) recordPose(f *frame, pose spatialmath.Pose, timestamp time.Time) error {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	node, err := sfs.lookup(f.name)
	if err != nil {
		return err
	}
	if timestamp.IsZero() {
		timestamp = sfs.clock.Now()
	}
	history := sfs.poses[node]
	idx := sort.Search(len(history), func(i int) bool { return history[i].at.After(timestamp) })
	history = append(history, stampedPose{})
	copy(history[idx+1:], history[idx:])
	history[idx] = stampedPose{at: timestamp, pose: pose}
	if len(history) > sfs.historyLen {
		history = history[len(history)-sfs.historyLen:]
	}
	sfs.poses[node] = history
	return nil
}

// poseAt returns the pose of node relative to its parent at timestamp: the latest entry not after
// timestamp, or the oldest entry if they are all newer.
func (sfs *SimpleFrameSystem) poseAt(node *frame, timestamp time.Time) spatialmath.Pose {
	history := sfs.poses[node]
	if len(history) == 0 {
		return spatialmath.NewZeroPose()
	}
	if timestamp.IsZero() {
		return history[len(history)-1].pose
	}
	idx := sort.Search(len(history), func(i int) bool { return history[i].at.After(timestamp) })
	if idx == 0 {
		return history[0].pose
	}
	return history[idx-1].pose
}

// compose the poses from the input frame to the world referenceframe.
func (sfs *SimpleFrameSystem) composeTransforms(node *frame, timestamp time.Time) spatialmath.Pose {
	q := spatialmath.NewZeroPose()
	for ; node != sfs.world && node != nil; node = sfs.parents[node] {
		// Add new transforms to the left.
		q = spatialmath.Compose(sfs.poseAt(node, timestamp), q)
	}
	return q
}
