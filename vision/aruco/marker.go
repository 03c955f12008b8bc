package aruco

import (
	"fmt"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
)

// Observation is one detection of a marker together with the poses derived from it.
type Observation struct {
	Sample DetectionSample
	// GazeToMarker is the estimated pose of the marker in the gaze frame at detection time.
	GazeToMarker spatialmath.Pose
	// Measured is the marker pose measured against the reference frame the marker is expressed in
	// (map origin or world), before any correction was applied.
	Measured spatialmath.Pose
}

// Marker is a persistent marker owned by a registry. ID, Frame, Policy and Config never change
// after creation; the history grows with each detection.
type Marker struct {
	ID     int
	Frame  referenceframe.Frame
	Policy LocalizationPolicy
	Config DetectionConfig

	mu           sync.Mutex
	markerToBase spatialmath.Pose
	observations []Observation
}

// NewMarker creates a marker. markerToBase is the inverse of the marker pose in the frame it is
// attached to; it is only used for map-attached markers and may be nil otherwise.
func NewMarker(
	id int,
	frame referenceframe.Frame,
	policy LocalizationPolicy,
	config DetectionConfig,
	markerToBase spatialmath.Pose,
) *Marker {
	return &Marker{
		ID:           id,
		Frame:        frame,
		Policy:       policy,
		Config:       config.WithPolicy(policy),
		markerToBase: markerToBase,
	}
}

func (m *Marker) String() string {
	return fmt.Sprintf("marker %d (%s)", m.ID, m.Policy)
}

// MarkerToMap returns the inverse of the marker's pose relative to the map origin.
func (m *Marker) MarkerToMap() (spatialmath.Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Policy != AttachedToMap || m.markerToBase == nil {
		return nil, errors.Errorf("%s is not attached to the map", m)
	}
	return m.markerToBase, nil
}

// AddObservation appends an observation to the marker's history. Only the owning registry
// records observations.
func (m *Marker) AddObservation(obs Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, obs)
}

// Observations returns a copy of the observation history, oldest first.
func (m *Marker) Observations() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Observation(nil), m.observations...)
}

// History returns the detection samples, oldest first.
func (m *Marker) History() []DetectionSample {
	return lo.Map(m.Observations(), func(obs Observation, _ int) DetectionSample { return obs.Sample })
}

// DetectionCount returns how many times the marker was observed.
func (m *Marker) DetectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observations)
}

// LastObservation returns the most recent observation.
func (m *Marker) LastObservation() (Observation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.observations) == 0 {
		return Observation{}, false
	}
	return m.observations[len(m.observations)-1], true
}

// PositionSpread returns the per-axis standard deviation of the measured marker positions. It
// shows how much the reference frame drifted between detections.
func (m *Marker) PositionSpread() (r3.Vector, error) {
	observations := m.Observations()
	if len(observations) < 2 {
		return r3.Vector{}, errors.Errorf("%s needs at least two observations, has %d", m, len(observations))
	}
	xs := make(stats.Float64Data, 0, len(observations))
	ys := make(stats.Float64Data, 0, len(observations))
	zs := make(stats.Float64Data, 0, len(observations))
	for _, obs := range observations {
		pt := obs.Measured.Point()
		xs = append(xs, pt.X)
		ys = append(ys, pt.Y)
		zs = append(zs, pt.Z)
	}
	var spread r3.Vector
	var err error
	if spread.X, err = xs.StandardDeviation(); err != nil {
		return r3.Vector{}, err
	}
	if spread.Y, err = ys.StandardDeviation(); err != nil {
		return r3.Vector{}, err
	}
	if spread.Z, err = zs.StandardDeviation(); err != nil {
		return r3.Vector{}, err
	}
	return spread, nil
}
