// Package navigation drives a robot relative to Aruco markers: retrying go-tos, look-ats that
// wait until the gaze settles, look-arounds that detect markers, and go-to-marker loops that
// re-check the marker position on the way.
package navigation

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/localization"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/vision/aruco"
)

// Navigator runs navigation actions on one robot. Actions are safe to call concurrently, but the
// go-to-marker actions are exclusive with each other since they hold the autonomous abilities.
type Navigator struct {
	robot     actuation.Robot
	detector  *localization.Detector
	detection aruco.DetectionConfig
	cfg       Config
	abilities *AutonomousAbilities
	clk       clock.Clock
	logger    logging.Logger
}

// NewNavigator returns a Navigator. camera describes the head camera the detector takes pictures
// with. A nil clock uses the wall clock.
func NewNavigator(
	robot actuation.Robot,
	detector *localization.Detector,
	camera *transform.CameraModel,
	cfg Config,
	clk clock.Clock,
	logger logging.Logger,
) (*Navigator, error) {
	if robot == nil || detector == nil {
		return nil, errors.New("navigator needs a robot and a marker detector")
	}
	if err := cfg.Validate("navigation"); err != nil {
		return nil, err
	}
	detection := cfg.DetectionConfig(camera)
	if err := detection.Validate("navigation.detection"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = logging.Global()
	}
	if len(cfg.Log) > 0 {
		if err := logging.UpdateLoggerLevels(cfg.Log); err != nil {
			return nil, err
		}
	}
	return &Navigator{
		robot:     robot,
		detector:  detector,
		detection: detection,
		cfg:       cfg,
		abilities: NewAutonomousAbilities(robot, logger.Sublogger("abilities")),
		clk:       clk,
		logger:    logger,
	}, nil
}

// Config returns the configuration the navigator was built with.
func (n *Navigator) Config() Config {
	return n.cfg
}

// DetectionConfig returns the marker detection configuration used by look-arounds.
func (n *Navigator) DetectionConfig() aruco.DetectionConfig {
	return n.detection
}

// Registry returns the registry detected markers are recorded in.
func (n *Navigator) Registry() *localization.Registry {
	return n.detector.Registry()
}

// Abilities returns the autonomous abilities token.
func (n *Navigator) Abilities() *AutonomousAbilities {
	return n.abilities
}

func (n *Navigator) graph() referenceframe.Graph {
	return n.robot.Graph()
}

// ReleaseFrame removes a transient frame, such as one returned by GazeHeightReference, from the
// robot graph. A nil frame is ignored.
func (n *Navigator) ReleaseFrame(frame referenceframe.Frame) {
	if frame == nil {
		return
	}
	n.graph().RemoveFrame(frame)
}
