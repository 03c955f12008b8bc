package transform

import (
	"bytes"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"gopkg.in/yaml.v2"

	"go.viam.com/markernav/spatialmath"
)

const (
	calibrationFileVersion = "1.0"
	// OpenCV FileStorage writes this directive, which yaml.v2 does not understand.
	yamlFilePrefixBytes = "%YAML:1.0\n"
)

// CalibrationFile is the on-disk layout of a CameraModel.
type CalibrationFile struct {
	FileVersion string                  `yaml:"File.version"`
	CamType     string                  `yaml:"Camera.type"`
	Distortion  []float64               `yaml:"Camera.distortion"`
	Extrinsic   *CalibrationExtrinsic   `yaml:"Camera.gazeToCamera,omitempty"`
	Resolutions []CalibrationResolution `yaml:"Camera.resolutions"`
}

// CalibrationResolution is the intrinsics block of one resolution.
type CalibrationResolution struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Fx     float64 `yaml:"fx"`
	Fy     float64 `yaml:"fy"`
	Ppx    float64 `yaml:"cx"`
	Ppy    float64 `yaml:"cy"`
}

// CalibrationExtrinsic is the gaze-to-camera pose.
type CalibrationExtrinsic struct {
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
	Z  float64 `yaml:"z"`
	QW float64 `yaml:"qw"`
	QX float64 `yaml:"qx"`
	QY float64 `yaml:"qy"`
	QZ float64 `yaml:"qz"`
}

// ReadCalibrationYAML loads a CameraModel from a calibration file.
func ReadCalibrationYAML(path string) (*CameraModel, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading calibration file %q", path)
	}
	model, err := ParseCalibrationYAML(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing calibration file %q", path)
	}
	return model, nil
}

// ParseCalibrationYAML decodes a calibration document.
func ParseCalibrationYAML(data []byte) (*CameraModel, error) {
	data = bytes.TrimPrefix(data, []byte(yamlFilePrefixBytes))
	var file CalibrationFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, err
	}
	if file.CamType != "" && file.CamType != "PinHole" {
		return nil, errors.Errorf("unsupported camera type %q", file.CamType)
	}
	if len(file.Resolutions) == 0 {
		return nil, NewNoIntrinsicsError("calibration file has no resolutions")
	}

	intrinsics := make([]*PinholeCameraIntrinsics, 0, len(file.Resolutions))
	for _, res := range file.Resolutions {
		intrinsics = append(intrinsics, &PinholeCameraIntrinsics{
			Width: res.Width, Height: res.Height,
			Fx: res.Fx, Fy: res.Fy,
			Ppx: res.Ppx, Ppy: res.Ppy,
		})
	}

	var gazeToCamera spatialmath.Pose
	if ext := file.Extrinsic; ext != nil {
		gazeToCamera = spatialmath.NewPose(
			r3.Vector{X: ext.X, Y: ext.Y, Z: ext.Z},
			quat.Number{Real: ext.QW, Imag: ext.QX, Jmag: ext.QY, Kmag: ext.QZ},
		)
	}
	return NewCameraModel(intrinsics, file.Distortion, gazeToCamera)
}

// MarshalCalibrationYAML encodes a CameraModel in the calibration file layout.
func MarshalCalibrationYAML(model *CameraModel) ([]byte, error) {
	pose := model.GazeToCamera()
	pt, rot := pose.Point(), pose.Orientation()
	file := CalibrationFile{
		FileVersion: calibrationFileVersion,
		CamType:     "PinHole",
		Distortion:  model.Distortion(),
		Extrinsic: &CalibrationExtrinsic{
			X: pt.X, Y: pt.Y, Z: pt.Z,
			QW: rot.Real, QX: rot.Imag, QY: rot.Jmag, QZ: rot.Kmag,
		},
	}
	for _, params := range model.Intrinsics() {
		file.Resolutions = append(file.Resolutions, CalibrationResolution{
			Width: params.Width, Height: params.Height,
			Fx: params.Fx, Fy: params.Fy,
			Ppx: params.Ppx, Ppy: params.Ppy,
		})
	}
	out, err := yaml.Marshal(&file)
	if err != nil {
		return nil, err
	}
	return append([]byte(yamlFilePrefixBytes), out...), nil
}
