// Package localization keeps the markers seen by a robot in a shared frame tree and corrects
// odometry drift each time a map-attached marker is seen again.
package localization

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/spatialmath"
	"go.viam.com/markernav/vision/aruco"
)

// Registry owns the markers of one session and the map origin they are attached to. All
// mutations are serialized: drift correction reads then writes the map origin pose.
type Registry struct {
	graph     referenceframe.Graph
	gaze      referenceframe.Frame
	mapOrigin referenceframe.FreeFrame
	logger    logging.Logger

	mu      sync.Mutex
	markers map[int]*aruco.Marker

	events *broker
}

// NewRegistry returns an empty registry whose map origin starts at the world origin. gaze is the
// frame of the camera mount the detections are relative to.
func NewRegistry(graph referenceframe.Graph, gaze referenceframe.Frame, logger logging.Logger) (*Registry, error) {
	if graph == nil {
		return nil, errors.New("registry needs a frame graph")
	}
	if gaze == nil {
		return nil, referenceframe.NewParentFrameMissingError()
	}
	if logger == nil {
		logger = logging.Global()
	}
	mapOrigin, err := graph.MakeFreeFrame()
	if err != nil {
		return nil, errors.Wrap(err, "creating map origin")
	}
	return &Registry{
		graph:     graph,
		gaze:      gaze,
		mapOrigin: mapOrigin,
		logger:    logger,
		markers:   map[int]*aruco.Marker{},
		events:    newBroker(),
	}, nil
}

// Graph returns the frame graph the registry places markers in.
func (r *Registry) Graph() referenceframe.Graph {
	return r.graph
}

// MapOrigin returns the frame map-attached markers hang off. Its pose is corrected by Observe.
func (r *Registry) MapOrigin() referenceframe.FreeFrame {
	return r.mapOrigin
}

// Marker returns the marker with the given id, if it was seen.
func (r *Registry) Marker(id int) (*aruco.Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	return m, ok
}

// Markers returns every known marker, sorted by id.
func (r *Registry) Markers() []*aruco.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := lo.Keys(r.markers)
	sort.Ints(ids)
	return lo.Map(ids, func(id int, _ int) *aruco.Marker { return r.markers[id] })
}

// DetachedFrame returns a new free frame placed at pose relative to base as it was at timestamp.
// A zero timestamp means now.
func (r *Registry) DetachedFrame(base referenceframe.Frame, pose spatialmath.Pose, timestamp time.Time) (referenceframe.FreeFrame, error) {
	f, err := r.graph.MakeFreeFrame()
	if err != nil {
		return nil, err
	}
	if err := f.Update(base, pose, timestamp); err != nil {
		r.graph.RemoveFrame(f)
		return nil, err
	}
	return f, nil
}

// Close removes the map origin and every marker frame from the graph and forgets the markers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, marker := range r.markers {
		r.graph.RemoveFrame(marker.Frame)
	}
	r.markers = map[int]*aruco.Marker{}
	r.graph.RemoveFrame(r.mapOrigin)
}

// Observe records a detection. An unseen id creates a marker localized with cfg.Policy; a known
// id keeps its marker, and if it is map-attached the map origin is moved so the new observation
// agrees with the stored marker pose. The marker history grows by one either way.
func (r *Registry) Observe(ctx context.Context, sample aruco.DetectionSample, cfg aruco.DetectionConfig) (*aruco.Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate("detection"); err != nil {
		return nil, err
	}
	if _, err := cfg.Camera.IntrinsicsFor(sample.Resolution.Width, sample.Resolution.Height); err != nil {
		return nil, err
	}
	gazeToMarker := aruco.GazeToMarker(sample, cfg.Camera.GazeToCamera())

	r.mu.Lock()
	defer r.mu.Unlock()

	marker, seen := r.markers[sample.ID]
	var (
		measured spatialmath.Pose
		err      error
	)
	if seen {
		measured, err = r.refine(marker, sample, gazeToMarker)
	} else {
		marker, measured, err = r.create(sample, gazeToMarker, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "observing marker %d", sample.ID)
	}
	marker.AddObservation(aruco.Observation{Sample: sample, GazeToMarker: gazeToMarker, Measured: measured})

	kind := MarkerCreated
	if seen {
		kind = MarkerRefined
	} else {
		r.markers[sample.ID] = marker
	}
	r.logger.CDebugw(ctx, "observed marker",
		"id", marker.ID, "policy", marker.Policy.String(), "event", kind.String(), "detections", marker.DetectionCount())
	r.events.publish(Event{Kind: kind, Marker: marker})
	return marker, nil
}

func (r *Registry) create(
	sample aruco.DetectionSample,
	gazeToMarker spatialmath.Pose,
	cfg aruco.DetectionConfig,
) (*aruco.Marker, spatialmath.Pose, error) {
	if cfg.Policy == aruco.AttachedToMap {
		mapToGaze, err := r.graph.ComputeTransformAt(r.gaze, r.mapOrigin, sample.Timestamp)
		if err != nil {
			return nil, nil, err
		}
		mapToMarker := spatialmath.Compose(mapToGaze, gazeToMarker)
		frame, err := r.graph.MakeAttachedFrame(r.mapOrigin, mapToMarker)
		if err != nil {
			return nil, nil, err
		}
		return aruco.NewMarker(sample.ID, frame, cfg.Policy, cfg, spatialmath.PoseInverse(mapToMarker)), mapToMarker, nil
	}

	frame, err := r.DetachedFrame(r.gaze, gazeToMarker, sample.Timestamp)
	if err != nil {
		return nil, nil, err
	}
	worldToMarker, err := r.graph.ComputeTransform(frame, r.graph.World())
	if err != nil {
		r.graph.RemoveFrame(frame)
		return nil, nil, err
	}
	return aruco.NewMarker(sample.ID, frame, cfg.Policy, cfg, nil), worldToMarker, nil
}

// refine applies a new observation of a known marker. Map-attached markers are ground truth: the
// map origin moves to agree with them. Detached markers simply follow the latest observation.
func (r *Registry) refine(marker *aruco.Marker, sample aruco.DetectionSample, gazeToMarker spatialmath.Pose) (spatialmath.Pose, error) {
	if marker.Policy != aruco.AttachedToMap {
		free, ok := marker.Frame.(referenceframe.FreeFrame)
		if !ok {
			return nil, errors.Errorf("%s has no free frame", marker)
		}
		if err := free.Update(r.gaze, gazeToMarker, sample.Timestamp); err != nil {
			return nil, err
		}
		return r.graph.ComputeTransform(marker.Frame, r.graph.World())
	}

	markerToMap, err := marker.MarkerToMap()
	if err != nil {
		return nil, err
	}
	mapToGaze, err := r.graph.ComputeTransformAt(r.gaze, r.mapOrigin, sample.Timestamp)
	if err != nil {
		return nil, err
	}
	measured := spatialmath.Compose(mapToGaze, gazeToMarker)
	if err := r.mapOrigin.Update(r.gaze, spatialmath.Compose(gazeToMarker, markerToMap), sample.Timestamp); err != nil {
		return nil, errors.Wrap(err, "correcting map origin")
	}
	return measured, nil
}

// Restore registers a previously serialized marker, attached to the map origin at the stored pose.
// The camera extrinsic is not part of the document and comes from gazeToCamera.
func (r *Registry) Restore(doc *aruco.MarkerDocument, gazeToCamera spatialmath.Pose) (*aruco.Marker, error) {
	cfg, err := doc.DetectionConfig(gazeToCamera)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[doc.ID]; ok {
		return nil, errors.Errorf("marker %d is already registered", doc.ID)
	}
	mapToMarker := doc.Pose()
	frame, err := r.graph.MakeAttachedFrame(r.mapOrigin, mapToMarker)
	if err != nil {
		return nil, err
	}
	marker := aruco.NewMarker(doc.ID, frame, doc.Policy, cfg, spatialmath.PoseInverse(mapToMarker))
	r.markers[doc.ID] = marker
	r.events.publish(Event{Kind: MarkerCreated, Marker: marker})
	return marker, nil
}

// Marshal serializes a map-attached marker relative to the map origin.
func (r *Registry) Marshal(marker *aruco.Marker) ([]byte, error) {
	return aruco.MarshalMarker(marker, r.graph, r.mapOrigin)
}

// Subscribe returns a channel of registry events and a function that cancels the subscription.
// Events are dropped for a subscriber whose buffer is full.
func (r *Registry) Subscribe(buffer int) (<-chan Event, func()) {
	return r.events.subscribe(buffer)
}

// IsMarkerOnFloor reports whether the marker lies flat on the floor near the robot frame height.
func (r *Registry) IsMarkerOnFloor(marker *aruco.Marker, robot referenceframe.Frame) (bool, error) {
	robotToMarker, err := r.graph.ComputeTransform(marker.Frame, robot)
	if err != nil {
		return false, err
	}
	return aruco.IsOnFloor(robotToMarker), nil
}

// ValidateMarkerOrientation reports whether the marker, seen from robot, matches the expected
// orientation within toleranceDeg degrees.
func (r *Registry) ValidateMarkerOrientation(
	marker *aruco.Marker,
	robot referenceframe.Frame,
	expected spatialmath.FrameOrientation,
	toleranceDeg float64,
) (bool, error) {
	robotToMarker, err := r.graph.ComputeTransform(marker.Frame, robot)
	if err != nil {
		return false, err
	}
	return aruco.ValidateOrientation(robotToMarker.Orientation(), expected, toleranceDeg), nil
}
