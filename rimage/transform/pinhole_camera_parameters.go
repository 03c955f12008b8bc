// Package transform holds the camera calibration used to turn marker detections into poses.
package transform

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// NewNoIntrinsicsForResolutionError is returned when a camera has no calibration for a resolution.
func NewNoIntrinsicsForResolutionError(width, height int) error {
	return NewNoIntrinsicsError(fmt.Sprintf("no calibration for resolution %dx%d", width, height))
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewPinholeCameraIntrinsicsFromMatrix builds intrinsics from a row-major 3x3 camera matrix.
func NewPinholeCameraIntrinsicsFromMatrix(width, height int, matrix [9]float64) (*PinholeCameraIntrinsics, error) {
	if matrix[1] != 0 || matrix[3] != 0 || matrix[6] != 0 || matrix[7] != 0 || matrix[8] != 1 {
		return nil, errors.Errorf("camera matrix %v is not a pinhole matrix", matrix)
	}
	params := &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     matrix[0],
		Fy:     matrix[4],
		Ppx:    matrix[2],
		Ppy:    matrix[5],
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// Resolution returns the image size the intrinsics were calibrated for.
func (params *PinholeCameraIntrinsics) Resolution() Resolution {
	return Resolution{Width: params.Width, Height: params.Height}
}

// Matrix returns the row-major 3x3 camera matrix.
func (params *PinholeCameraIntrinsics) Matrix() [9]float64 {
	return [9]float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	}
}

// CameraMatrix returns the camera matrix as a gonum matrix.
func (params *PinholeCameraIntrinsics) CameraMatrix() *mat.Dense {
	m := params.Matrix()
	return mat.NewDense(3, 3, m[:])
}

// PointToPixel projects a point given in camera coordinates (z forward, x right, y down) onto the image.
func (params *PinholeCameraIntrinsics) PointToPixel(pt r3.Vector) (r2.Point, error) {
	if pt.Z <= 0 {
		return r2.Point{}, errors.Errorf("point %v is behind the camera", pt)
	}
	var projected mat.VecDense
	projected.MulVec(params.CameraMatrix(), mat.NewVecDense(3, []float64{pt.X, pt.Y, pt.Z}))
	return r2.Point{X: projected.AtVec(0) / projected.AtVec(2), Y: projected.AtVec(1) / projected.AtVec(2)}, nil
}

// PixelToRay returns the unit-depth point in camera coordinates that projects onto pixel.
func (params *PinholeCameraIntrinsics) PixelToRay(pixel r2.Point) r3.Vector {
	return r3.Vector{
		X: (pixel.X - params.Ppx) / params.Fx,
		Y: (pixel.Y - params.Ppy) / params.Fy,
		Z: 1,
	}
}
