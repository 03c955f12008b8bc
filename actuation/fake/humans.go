package fake

import (
	"context"
	"sync"
	"time"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
)

var _ actuation.HumanAwareness = (*Humans)(nil)

// Humans simulates one person walking around the robot. Their head is a moving frame of the robot
// graph, subject to the same odometry error as the base.
type Humans struct {
	robot *Robot

	mu      sync.Mutex
	head    *referenceframe.MovingFrame
	arrived chan struct{}
}

// NewHumans returns an empty room around robot.
func NewHumans(robot *Robot) *Humans {
	return &Humans{robot: robot, arrived: make(chan struct{})}
}

// Place puts the person's head at pose in the true world, x axis along their gaze. The first call
// makes them appear.
func (h *Humans) Place(pose spatialmath.Pose) error {
	reported := h.robot.reported(pose)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.head != nil {
		return h.head.SetPose(reported, time.Time{})
	}
	head, err := h.robot.fs.AddMovingFrame("human", h.robot.fs.World(), reported)
	if err != nil {
		return err
	}
	h.head = head
	close(h.arrived)
	return nil
}

// WaitForHuman returns the head frame once someone was placed.
func (h *Humans) WaitForHuman(ctx context.Context) (referenceframe.Frame, error) {
	h.mu.Lock()
	arrived := h.arrived
	h.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-arrived:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.head, nil
}
