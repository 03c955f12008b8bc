// Package inject provides mocks of the robot backend whose methods can be replaced per test.
package inject

import (
	"context"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/referenceframe"
)

// Robot is an injected robot.
type Robot struct {
	actuation.Robot
	GraphFunc             func() referenceframe.Graph
	RobotFrameFunc        func(ctx context.Context) (referenceframe.Frame, error)
	GazeFrameFunc         func(ctx context.Context) (referenceframe.Frame, error)
	GoToFunc              func(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error
	LookAtFunc            func(ctx context.Context, target referenceframe.Frame, policy actuation.MovementPolicy) error
	SetAbilityEnabledFunc func(ctx context.Context, ability actuation.Ability, enabled bool) error
}

// Graph calls the injected Graph or the real version.
func (r *Robot) Graph() referenceframe.Graph {
	if r.GraphFunc == nil {
		return r.Robot.Graph()
	}
	return r.GraphFunc()
}

// RobotFrame calls the injected RobotFrame or the real version.
func (r *Robot) RobotFrame(ctx context.Context) (referenceframe.Frame, error) {
	if r.RobotFrameFunc == nil {
		return r.Robot.RobotFrame(ctx)
	}
	return r.RobotFrameFunc(ctx)
}

// GazeFrame calls the injected GazeFrame or the real version.
func (r *Robot) GazeFrame(ctx context.Context) (referenceframe.Frame, error) {
	if r.GazeFrameFunc == nil {
		return r.Robot.GazeFrame(ctx)
	}
	return r.GazeFrameFunc(ctx)
}

// GoTo calls the injected GoTo or the real version.
func (r *Robot) GoTo(ctx context.Context, target referenceframe.Frame, opts actuation.GoToOptions) error {
	if r.GoToFunc == nil {
		return r.Robot.GoTo(ctx, target, opts)
	}
	return r.GoToFunc(ctx, target, opts)
}

// LookAt calls the injected LookAt or the real version.
func (r *Robot) LookAt(ctx context.Context, target referenceframe.Frame, policy actuation.MovementPolicy) error {
	if r.LookAtFunc == nil {
		return r.Robot.LookAt(ctx, target, policy)
	}
	return r.LookAtFunc(ctx, target, policy)
}

// SetAbilityEnabled calls the injected SetAbilityEnabled or the real version.
func (r *Robot) SetAbilityEnabled(ctx context.Context, ability actuation.Ability, enabled bool) error {
	if r.SetAbilityEnabledFunc == nil {
		return r.Robot.SetAbilityEnabled(ctx, ability, enabled)
	}
	return r.SetAbilityEnabledFunc(ctx, ability, enabled)
}
