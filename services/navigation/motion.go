package navigation

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/utils"
)

// Motion is a look-at running in the background.
type Motion struct {
	workers *utils.StoppableWorkers

	mu  sync.Mutex
	err error
}

// StartLookAt starts looking at target. The motion runs until Stop is called, ctx is done or
// the backend gives up.
func (n *Navigator) StartLookAt(ctx context.Context, target referenceframe.Frame, policy actuation.MovementPolicy) *Motion {
	m := &Motion{}
	m.workers = utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		err := n.robot.LookAt(ctx, target, policy)
		if ctx.Err() != nil {
			// Stopped on purpose.
			return
		}
		if err == nil {
			err = errors.New("look-at ended by itself")
		}
		m.mu.Lock()
		m.err = errors.Wrapf(ErrActuationFailed, "looking at %q: %v", target.Name(), err)
		m.mu.Unlock()
	})
	return m
}

// Done is closed once the motion is over.
func (m *Motion) Done() <-chan struct{} {
	return m.workers.Done()
}

// Err returns why the motion ended by itself, or nil if it is still running or was stopped.
func (m *Motion) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Stop cancels the motion and waits for the backend to return. It is safe to call more than once.
func (m *Motion) Stop() error {
	m.workers.Stop()
	return m.Err()
}
