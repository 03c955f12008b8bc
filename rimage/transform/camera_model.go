package transform

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/markernav/spatialmath"
)

// Resolution is an image size in pixels.
type Resolution struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// CameraModel is the static calibration of one camera: intrinsics per resolution, a single set of
// distortion coefficients and the pose of the camera in the robot's gaze frame.
// A CameraModel is not modified after construction.
type CameraModel struct {
	intrinsics   map[Resolution]*PinholeCameraIntrinsics
	distortion   Distortion
	gazeToCamera spatialmath.Pose
}

// NewCameraModel validates the calibration and returns a model. A nil extrinsic is the identity.
func NewCameraModel(
	intrinsics []*PinholeCameraIntrinsics,
	distortion Distortion,
	gazeToCamera spatialmath.Pose,
) (*CameraModel, error) {
	var errAll error
	byResolution := make(map[Resolution]*PinholeCameraIntrinsics, len(intrinsics))
	for _, params := range intrinsics {
		if err := params.CheckValid(); err != nil {
			multierr.AppendInto(&errAll, err)
			continue
		}
		if _, ok := byResolution[params.Resolution()]; ok {
			multierr.AppendInto(&errAll, errors.Errorf("duplicate calibration for resolution %s", params.Resolution()))
			continue
		}
		copied := *params
		byResolution[params.Resolution()] = &copied
	}
	multierr.AppendInto(&errAll, distortion.CheckValid())
	if errAll != nil {
		return nil, errAll
	}
	if gazeToCamera == nil {
		gazeToCamera = spatialmath.NewZeroPose()
	}
	return &CameraModel{
		intrinsics:   byResolution,
		distortion:   distortion.Clone(),
		gazeToCamera: gazeToCamera,
	}, nil
}

// IntrinsicsFor returns the calibration for an image size, or an error wrapping ErrNoIntrinsics.
func (cm *CameraModel) IntrinsicsFor(width, height int) (*PinholeCameraIntrinsics, error) {
	params, ok := cm.intrinsics[Resolution{Width: width, Height: height}]
	if !ok {
		return nil, NewNoIntrinsicsForResolutionError(width, height)
	}
	copied := *params
	return &copied, nil
}

// Resolutions returns the calibrated resolutions, largest first.
func (cm *CameraModel) Resolutions() []Resolution {
	resolutions := lo.Keys(cm.intrinsics)
	sort.Slice(resolutions, func(i, j int) bool {
		if resolutions[i].Width != resolutions[j].Width {
			return resolutions[i].Width > resolutions[j].Width
		}
		return resolutions[i].Height > resolutions[j].Height
	})
	return resolutions
}

// Intrinsics returns every calibration, largest resolution first.
func (cm *CameraModel) Intrinsics() []*PinholeCameraIntrinsics {
	return lo.Map(cm.Resolutions(), func(r Resolution, _ int) *PinholeCameraIntrinsics {
		copied := *cm.intrinsics[r]
		return &copied
	})
}

// Distortion returns a copy of the distortion coefficients.
func (cm *CameraModel) Distortion() Distortion {
	return cm.distortion.Clone()
}

// GazeToCamera returns the pose of the camera in the gaze frame.
func (cm *CameraModel) GazeToCamera() spatialmath.Pose {
	return cm.gazeToCamera
}
