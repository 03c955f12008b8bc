package aruco

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/referenceframe"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
)

// ErrNotSerializable is returned when serializing a marker that is not attached to the map.
var ErrNotSerializable = errors.New("only markers attached to the map frame can be serialized")

// ErrDeserialization matches, with errors.Is, every error returned while decoding a marker document.
var ErrDeserialization = errors.New("Deserialization failed")

// FieldError names the document field that made decoding fail.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s, '%s' field is %s", ErrDeserialization, e.Field, e.Reason)
}

// Is lets errors.Is match ErrDeserialization.
func (e *FieldError) Is(target error) bool {
	return target == ErrDeserialization
}

// NewMissingFieldError reports a field absent from a marker document.
func NewMissingFieldError(field string) error {
	return &FieldError{Field: field, Reason: "missing"}
}

// NewInvalidFieldError reports a field of a marker document that holds an unusable value.
func NewInvalidFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: "invalid: " + reason}
}

// CameraMatrix is the camera matrix of one calibrated resolution, row-major.
type CameraMatrix struct {
	Resolution transform.Resolution
	Matrix     [9]float64
}

// MarkerDocument is the persisted form of a map-attached marker. The pose is relative to the map
// frame it was serialized against. Values are kept as read so re-encoding is byte-stable.
type MarkerDocument struct {
	ID             int
	MarkerLength   float64
	Dictionary     Dictionary
	Policy         LocalizationPolicy
	CameraMatrices []CameraMatrix
	Distortion     []float64
	Translation    r3.Vector
	Rotation       quat.Number
}

// NewMarkerDocument captures a marker's configuration and its pose relative to mapFrame.
func NewMarkerDocument(m *Marker, graph referenceframe.Graph, mapFrame referenceframe.Frame) (*MarkerDocument, error) {
	if m.Policy != AttachedToMap {
		return nil, errors.Wrapf(ErrNotSerializable, "%s", m)
	}
	if m.Config.Camera == nil {
		return nil, errors.Errorf("%s has no camera calibration", m)
	}
	pose, err := graph.ComputeTransform(m.Frame, mapFrame)
	if err != nil {
		return nil, errors.Wrapf(err, "locating %s in map frame", m)
	}
	doc := &MarkerDocument{
		ID:           m.ID,
		MarkerLength: m.Config.MarkerLength,
		Dictionary:   m.Config.Dictionary,
		Policy:       m.Policy,
		Distortion:   m.Config.Camera.Distortion(),
		Translation:  pose.Point(),
		Rotation:     pose.Orientation(),
	}
	for _, params := range m.Config.Camera.Intrinsics() {
		doc.CameraMatrices = append(doc.CameraMatrices, CameraMatrix{Resolution: params.Resolution(), Matrix: params.Matrix()})
	}
	return doc, nil
}

// MarshalMarker serializes a map-attached marker to JSON.
func MarshalMarker(m *Marker, graph referenceframe.Graph, mapFrame referenceframe.Frame) ([]byte, error) {
	doc, err := NewMarkerDocument(m, graph, mapFrame)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalMarkerDocument decodes a marker document.
func UnmarshalMarkerDocument(data []byte) (*MarkerDocument, error) {
	var doc MarkerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// Syntax errors are reported by the json package before UnmarshalJSON runs.
		if errors.Is(err, ErrDeserialization) {
			return nil, err
		}
		return nil, fmt.Errorf("%w, %v", ErrDeserialization, err)
	}
	return &doc, nil
}

// Pose returns the marker pose in the map frame.
func (d *MarkerDocument) Pose() spatialmath.Pose {
	return spatialmath.NewPose(d.Translation, d.Rotation)
}

// DetectionConfig rebuilds the detection configuration. The camera extrinsic is not persisted
// and is supplied by the caller.
func (d *MarkerDocument) DetectionConfig(gazeToCamera spatialmath.Pose) (DetectionConfig, error) {
	intrinsics := make([]*transform.PinholeCameraIntrinsics, 0, len(d.CameraMatrices))
	for _, cm := range d.CameraMatrices {
		params, err := transform.NewPinholeCameraIntrinsicsFromMatrix(cm.Resolution.Width, cm.Resolution.Height, cm.Matrix)
		if err != nil {
			return DetectionConfig{}, errors.Wrapf(err, "resolution %s", cm.Resolution)
		}
		intrinsics = append(intrinsics, params)
	}
	camera, err := transform.NewCameraModel(intrinsics, d.Distortion, gazeToCamera)
	if err != nil {
		return DetectionConfig{}, err
	}
	cfg := DetectionConfig{
		MarkerLength: d.MarkerLength,
		Dictionary:   d.Dictionary,
		Camera:       camera,
		Policy:       d.Policy,
	}
	return cfg, cfg.Validate("detectionConfig")
}

type resolutionJSON struct {
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

type cameraMatrixJSON struct {
	Resolution *resolutionJSON `json:"resolution"`
	Matrix     []float64       `json:"matrix"`
}

type detectionConfigJSON struct {
	CameraMatrix       []cameraMatrixJSON `json:"cameraMatrix"`
	Dictionary         *string            `json:"dictionary"`
	DistortionCoefs    []float64          `json:"distortionCoefs"`
	LocalizationPolicy *string            `json:"localizationPolicy"`
	MarkerLength       *float64           `json:"markerLength"`
}

type translationJSON struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type rotationJSON struct {
	W *float64 `json:"w"`
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type frameJSON struct {
	Translation *translationJSON `json:"translation"`
	Rotation    *rotationJSON    `json:"rotation"`
}

type markerJSON struct {
	DetectionConfig *detectionConfigJSON `json:"detectionConfig"`
	Frame           *frameJSON           `json:"frame"`
	ID              *int                 `json:"id"`
}

// MarshalJSON encodes the document. Camera matrices are sorted, largest resolution first.
func (d *MarkerDocument) MarshalJSON() ([]byte, error) {
	if d.Policy != AttachedToMap {
		return nil, errors.Wrapf(ErrNotSerializable, "marker %d", d.ID)
	}
	dictionary := d.Dictionary.String()
	policy := d.Policy.String()
	matrices := append([]CameraMatrix(nil), d.CameraMatrices...)
	sort.SliceStable(matrices, func(i, j int) bool {
		if matrices[i].Resolution.Width != matrices[j].Resolution.Width {
			return matrices[i].Resolution.Width > matrices[j].Resolution.Width
		}
		return matrices[i].Resolution.Height > matrices[j].Resolution.Height
	})

	out := markerJSON{
		DetectionConfig: &detectionConfigJSON{
			CameraMatrix:       make([]cameraMatrixJSON, 0, len(matrices)),
			Dictionary:         &dictionary,
			DistortionCoefs:    append([]float64{}, d.Distortion...),
			LocalizationPolicy: &policy,
			MarkerLength:       &d.MarkerLength,
		},
		Frame: &frameJSON{
			Translation: &translationJSON{X: &d.Translation.X, Y: &d.Translation.Y, Z: &d.Translation.Z},
			Rotation:    &rotationJSON{W: &d.Rotation.Real, X: &d.Rotation.Imag, Y: &d.Rotation.Jmag, Z: &d.Rotation.Kmag},
		},
		ID: &d.ID,
	}
	for _, cm := range matrices {
		width, height := cm.Resolution.Width, cm.Resolution.Height
		out.DetectionConfig.CameraMatrix = append(out.DetectionConfig.CameraMatrix, cameraMatrixJSON{
			Resolution: &resolutionJSON{Width: &width, Height: &height},
			Matrix:     append([]float64(nil), cm.Matrix[:]...),
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a document, failing on the first missing or invalid field.
func (d *MarkerDocument) UnmarshalJSON(data []byte) error {
	var in markerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w, %v", ErrDeserialization, err)
	}
	var doc MarkerDocument

	if in.DetectionConfig == nil {
		return NewMissingFieldError("detectionConfig")
	}
	cfg := in.DetectionConfig
	if cfg.CameraMatrix == nil {
		return NewMissingFieldError("cameraMatrix")
	}
	for i, cm := range cfg.CameraMatrix {
		if cm.Resolution == nil {
			return NewMissingFieldError("resolution")
		}
		if cm.Resolution.Width == nil {
			return NewMissingFieldError("width")
		}
		if cm.Resolution.Height == nil {
			return NewMissingFieldError("height")
		}
		if cm.Matrix == nil {
			return NewMissingFieldError("matrix")
		}
		if len(cm.Matrix) != 9 {
			return NewInvalidFieldError("matrix", fmt.Sprintf("entry %d has %d values, want 9", i, len(cm.Matrix)))
		}
		parsed := CameraMatrix{Resolution: transform.Resolution{Width: *cm.Resolution.Width, Height: *cm.Resolution.Height}}
		copy(parsed.Matrix[:], cm.Matrix)
		doc.CameraMatrices = append(doc.CameraMatrices, parsed)
	}
	if cfg.Dictionary == nil {
		return NewMissingFieldError("dictionary")
	}
	dict, err := ParseDictionary(*cfg.Dictionary)
	if err != nil {
		return NewInvalidFieldError("dictionary", err.Error())
	}
	doc.Dictionary = dict
	if cfg.DistortionCoefs == nil {
		return NewMissingFieldError("distortionCoefs")
	}
	doc.Distortion = cfg.DistortionCoefs
	if cfg.LocalizationPolicy == nil {
		return NewMissingFieldError("localizationPolicy")
	}
	if err := doc.Policy.UnmarshalText([]byte(*cfg.LocalizationPolicy)); err != nil {
		return NewInvalidFieldError("localizationPolicy", err.Error())
	}
	if doc.Policy != AttachedToMap {
		return NewInvalidFieldError("localizationPolicy", ErrNotSerializable.Error())
	}
	if cfg.MarkerLength == nil {
		return NewMissingFieldError("markerLength")
	}
	doc.MarkerLength = *cfg.MarkerLength

	if in.Frame == nil {
		return NewMissingFieldError("frame")
	}
	if err := decodeTranslation(in.Frame.Translation, &doc.Translation); err != nil {
		return err
	}
	if err := decodeRotation(in.Frame.Rotation, &doc.Rotation); err != nil {
		return err
	}

	if in.ID == nil {
		return NewMissingFieldError("id")
	}
	doc.ID = *in.ID

	*d = doc
	return nil
}

func decodeTranslation(in *translationJSON, out *r3.Vector) error {
	if in == nil {
		return NewMissingFieldError("translation")
	}
	for _, f := range []struct {
		name string
		val  *float64
		dst  *float64
	}{{"x", in.X, &out.X}, {"y", in.Y, &out.Y}, {"z", in.Z, &out.Z}} {
		if f.val == nil {
			return NewMissingFieldError(f.name)
		}
		*f.dst = *f.val
	}
	return nil
}

func decodeRotation(in *rotationJSON, out *quat.Number) error {
	if in == nil {
		return NewMissingFieldError("rotation")
	}
	for _, f := range []struct {
		name string
		val  *float64
		dst  *float64
	}{{"w", in.W, &out.Real}, {"x", in.X, &out.Imag}, {"y", in.Y, &out.Jmag}, {"z", in.Z, &out.Kmag}} {
		if f.val == nil {
			return NewMissingFieldError(f.name)
		}
		*f.dst = *f.val
	}
	if quat.Abs(*out) == 0 {
		return NewInvalidFieldError("rotation", "zero quaternion")
	}
	return nil
}
