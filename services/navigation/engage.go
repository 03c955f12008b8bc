package navigation

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/vision/aruco"
)

// EngageResult is the outcome of one engage-and-return round.
type EngageResult struct {
	// ReachedHuman is false when the robot could not get to the human. It returns to the marker
	// anyway.
	ReachedHuman bool
	Return       Result
}

// EngageAndReturn waits for someone to show up, walks to cfg.HumanDistanceM in front of them
// while looking at them, keeps looking for cfg.Greet, then returns to marker with ReturnToMarker.
// The human may move: the go-to locates them again on each attempt.
func (n *Navigator) EngageAndReturn(
	ctx context.Context,
	humans actuation.HumanAwareness,
	marker *aruco.Marker,
	cfg EngageConfig,
) (EngageResult, error) {
	if humans == nil {
		return EngageResult{}, errors.New("engaging needs human awareness")
	}
	if marker == nil || marker.Frame == nil {
		return EngageResult{}, ErrInvalidTarget
	}
	if err := cfg.Validate("engage"); err != nil {
		return EngageResult{}, err
	}
	ctx = logging.WithOperationID(ctx, "")

	n.logger.CDebugw(ctx, "waiting for a human")
	human, err := humans.WaitForHuman(ctx)
	if err != nil {
		return EngageResult{}, errors.Wrap(err, "waiting for a human")
	}
	if human == nil {
		return EngageResult{}, errors.Wrap(ErrInvalidTarget, "human awareness returned no frame")
	}

	var result EngageResult
	if result.ReachedHuman, err = n.engage(ctx, human, cfg); err != nil {
		return result, err
	}
	result.Return, err = n.ReturnToMarker(ctx, marker, n.cfg.GoToMarker)
	return result, err
}

func (n *Navigator) engage(ctx context.Context, human referenceframe.Frame, cfg EngageConfig) (bool, error) {
	inFront, err := n.graph().MakeAttachedFrame(human, spatialmath.NewPoseFromPoint(r3.Vector{X: cfg.HumanDistanceM}))
	if err != nil {
		return false, errors.Wrapf(ErrInvalidTarget, "placing a stop in front of %q: %v", human.Name(), err)
	}
	defer n.ReleaseFrame(inFront)

	looking := n.StartLookAt(ctx, human, actuation.HeadOnly)
	defer func() {
		if err := looking.Stop(); err != nil {
			n.logger.CDebugw(ctx, "look-at at human failed", "error", err)
		}
	}()

	goTo := n.cfg.GoTo
	goTo.OrientationPolicy = actuation.FreeOrientation
	err = n.RetryingGoTo(ctx, inFront, goTo)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return false, ctx.Err()
	default:
		n.logger.CWarnw(ctx, "could not reach human, going back", "human", human.Name(), "error", err)
		return false, nil
	}

	n.logger.CInfow(ctx, "greeting human", "human", human.Name())
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-looking.Done():
		n.logger.CWarnw(ctx, "stopped looking at human early", "error", looking.Err())
	case <-n.clk.After(cfg.Greet()):
	}
	return true, nil
}

// EngageLoop runs EngageAndReturn over and over, each round starting from the marker pose the
// previous round corrected, until ctx is done or a round fails.
func (n *Navigator) EngageLoop(ctx context.Context, humans actuation.HumanAwareness, marker *aruco.Marker, cfg EngageConfig) error {
	for round := 1; ; round++ {
		result, err := n.EngageAndReturn(ctx, humans, marker, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "engage round %d", round)
		}
		if result.Return.Corrected != nil {
			marker = result.Return.Corrected
		}
		n.logger.CDebugw(ctx, "engage round done",
			"round", round, "reached_human", result.ReachedHuman, "back_at_marker", result.Return.Reached)
	}
}
