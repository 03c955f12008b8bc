package localization

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
)

// Sessions hands out the registry of the current robot session. A registry only makes sense for
// the frame graph it was built against, so changing session discards it along with its frames.
type Sessions struct {
	graph  referenceframe.Graph
	gaze   referenceframe.Frame
	logger logging.Logger

	mu       sync.Mutex
	current  uuid.UUID
	registry *Registry
}

// NewSessions returns a session tracker building registries on graph and gaze.
func NewSessions(graph referenceframe.Graph, gaze referenceframe.Frame, logger logging.Logger) *Sessions {
	if logger == nil {
		logger = logging.Global()
	}
	return &Sessions{graph: graph, gaze: gaze, logger: logger}
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() uuid.UUID {
	return uuid.New()
}

// For returns the registry of sessionID, creating a new one if the session changed.
func (s *Sessions) For(sessionID uuid.UUID) (*Registry, error) {
	if sessionID == uuid.Nil {
		return nil, errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry != nil && s.current == sessionID {
		return s.registry, nil
	}
	registry, err := NewRegistry(s.graph, s.gaze, s.logger.Sublogger("registry"))
	if err != nil {
		return nil, err
	}
	if s.registry != nil {
		s.logger.Infow("session changed, discarding markers", "previous", s.current.String(), "session", sessionID.String())
		s.registry.Close()
	}
	s.current = sessionID
	s.registry = registry
	return registry, nil
}

// Current returns the current session id and registry, if any.
func (s *Sessions) Current() (uuid.UUID, *Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.registry
}
