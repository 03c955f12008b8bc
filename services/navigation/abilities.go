package navigation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
)

// DefaultAbilities are the abilities held by default: they all move the head or the base.
var DefaultAbilities = []actuation.Ability{
	actuation.BasicAwareness,
	actuation.BackgroundMovement,
	actuation.AutonomousBlinking,
}

// AutonomousAbilities is an exclusive token over the robot autonomous abilities. Holding it
// disables them; releasing it turns them back on.
type AutonomousAbilities struct {
	robot  actuation.Robot
	sem    *semaphore.Weighted
	logger logging.Logger
}

// NewAutonomousAbilities returns the token for robot.
func NewAutonomousAbilities(robot actuation.Robot, logger logging.Logger) *AutonomousAbilities {
	return &AutonomousAbilities{robot: robot, sem: semaphore.NewWeighted(1), logger: logger}
}

// Hold waits for the token, then disables abilities (DefaultAbilities if none are given). The
// returned release re-enables them and frees the token; it may be called more than once.
func (a *AutonomousAbilities) Hold(ctx context.Context, abilities ...actuation.Ability) (func(), error) {
	if len(abilities) == 0 {
		abilities = DefaultAbilities
	}
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	disabled := make([]actuation.Ability, 0, len(abilities))
	enable := func() {
		var errs error
		for _, ability := range disabled {
			// The caller context may be done by now; re-enabling must still happen.
			multierr.AppendInto(&errs, a.robot.SetAbilityEnabled(context.Background(), ability, true))
		}
		if errs != nil {
			a.logger.Warnw("failed to re-enable autonomous abilities", "error", errs)
		}
		a.sem.Release(1)
	}

	for _, ability := range abilities {
		if err := a.robot.SetAbilityEnabled(ctx, ability, false); err != nil {
			enable()
			return nil, errors.Wrapf(err, "disabling %s", ability)
		}
		disabled = append(disabled, ability)
	}
	a.logger.CDebugw(ctx, "holding autonomous abilities", "abilities", abilities)

	var once sync.Once
	return func() { once.Do(enable) }, nil
}
