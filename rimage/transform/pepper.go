package transform

import (
	"github.com/golang/geo/r3"

	"go.viam.com/markernav/spatialmath"
)

// GazeFrameZ is the height of the Pepper gaze frame above the robot frame, in meters.
const GazeFrameZ = 1.1165693310431193

// PepperGazeToHeadCamera is the pose of Pepper's top head camera in its gaze frame.
func PepperGazeToHeadCamera() spatialmath.Pose {
	return spatialmath.NewPoseFromPoint(r3.Vector{X: 0.020309998728599843, Z: 0.04393999093233303})
}

// PepperHeadCameraDistortion are the distortion coefficients of Pepper's top head camera.
func PepperHeadCameraDistortion() Distortion {
	return Distortion{
		-8.55109544e+00, -1.33329352e+02, -1.85792215e-03, 4.06427067e-03,
		1.19636779e+03, -8.73892483e+00, -1.29521262e+02, 1.17698249e+03,
	}
}

var pepperHeadCameraMatrices = map[Resolution][9]float64{
	{Width: 1280, Height: 960}: {1213.91824, 0, 657.406192, 0, 1213.91824, 488.498999, 0, 0, 1},
	{Width: 640, Height: 480}:  {606.95912, 0, 328.703096, 0, 606.95912, 244.2494995, 0, 0, 1},
	{Width: 320, Height: 240}:  {303.47956, 0, 164.351548, 0, 303.47956, 122.12474975, 0, 0, 1},
}

// PepperHeadCamera returns the calibration of Pepper's top head camera.
func PepperHeadCamera() *CameraModel {
	intrinsics := make([]*PinholeCameraIntrinsics, 0, len(pepperHeadCameraMatrices))
	for res, matrix := range pepperHeadCameraMatrices {
		params, err := NewPinholeCameraIntrinsicsFromMatrix(res.Width, res.Height, matrix)
		if err != nil {
			panic(err)
		}
		intrinsics = append(intrinsics, params)
	}
	model, err := NewCameraModel(intrinsics, PepperHeadCameraDistortion(), PepperGazeToHeadCamera())
	if err != nil {
		panic(err)
	}
	return model
}
