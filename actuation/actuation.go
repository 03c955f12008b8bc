// Package actuation defines the robot backend the localization and navigation layers drive: a
// frame graph, a base that can go to frames, a head that can look at them, and a camera.
package actuation

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/markernav/referenceframe"
)

// OrientationPolicy tells a go-to whether the final heading matters.
type OrientationPolicy int

const (
	// FreeOrientation lets the base arrive with any heading.
	FreeOrientation OrientationPolicy = iota
	// AlignX makes the base x axis match the target frame x axis on arrival.
	AlignX
)

func (p OrientationPolicy) String() string {
	if p == AlignX {
		return "align_x"
	}
	return "free_orientation"
}

// MarshalText encodes the policy name.
func (p OrientationPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a policy name.
func (p *OrientationPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "free_orientation", "":
		*p = FreeOrientation
	case "align_x":
		*p = AlignX
	default:
		return errors.Errorf("unknown orientation policy %q", string(text))
	}
	return nil
}

// MovementPolicy tells a look-at which joints may move.
type MovementPolicy int

const (
	// HeadOnly keeps the base still.
	HeadOnly MovementPolicy = iota
	// HeadAndBase also rotates the base when the head alone cannot reach the target.
	HeadAndBase
)

func (p MovementPolicy) String() string {
	if p == HeadAndBase {
		return "head_and_base"
	}
	return "head_only"
}

// MarshalText encodes the policy name.
func (p MovementPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a policy name.
func (p *MovementPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "head_only", "":
		*p = HeadOnly
	case "head_and_base":
		*p = HeadAndBase
	default:
		return errors.Errorf("unknown movement policy %q", string(text))
	}
	return nil
}

// Ability is an autonomous behavior of the robot that competes with scripted motion.
type Ability string

// Autonomous abilities that interfere with marker navigation.
const (
	BasicAwareness     Ability = "basic_awareness"
	BackgroundMovement Ability = "background_movement"
	AutonomousBlinking Ability = "autonomous_blinking"
)

// GoToOptions tunes a go-to.
type GoToOptions struct {
	// MaxSpeed in m/s; zero means the backend default.
	MaxSpeed          float64
	OrientationPolicy OrientationPolicy
	// WalkingAnimation names an optional animation played while moving.
	WalkingAnimation string
}

// Robot is the motion backend.
type Robot interface {
	// Graph returns the frame graph the robot frames live in.
	Graph() referenceframe.Graph

	// RobotFrame returns the frame of the mobile base, x forward, y left, z up, on the floor.
	RobotFrame(ctx context.Context) (referenceframe.Frame, error)

	// GazeFrame returns the frame of the head camera mount.
	GazeFrame(ctx context.Context) (referenceframe.Frame, error)

	// GoTo moves the base to target and returns once it arrived or failed.
	GoTo(ctx context.Context, target referenceframe.Frame, opts GoToOptions) error

	// LookAt keeps the gaze on target until ctx is cancelled, then returns ctx.Err().
	LookAt(ctx context.Context, target referenceframe.Frame, policy MovementPolicy) error

	// SetAbilityEnabled turns an autonomous ability on or off.
	SetAbilityEnabled(ctx context.Context, ability Ability, enabled bool) error
}

// HumanAwareness reports the people around the robot.
type HumanAwareness interface {
	// WaitForHuman blocks until someone is around and returns the frame of their head, x axis
	// along their gaze. The frame keeps moving with the person.
	WaitForHuman(ctx context.Context) (referenceframe.Frame, error)
}

// Picture is an image and the time it was captured at.
type Picture struct {
	Image     image.Image
	Timestamp time.Time
}

// Camera takes pictures from the head camera.
type Camera interface {
	TakePicture(ctx context.Context) (Picture, error)
}
