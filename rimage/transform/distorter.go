package transform

import "github.com/pkg/errors"

// Distortion holds OpenCV lens distortion coefficients in OpenCV order:
// k1, k2, p1, p2[, k3[, k4, k5, k6[, s1, s2, s3, s4[, tx, ty]]]].
type Distortion []float64

var validDistortionLengths = map[int]bool{0: true, 4: true, 5: true, 8: true, 12: true, 14: true}

// InvalidDistortionError is used when the distortion coefficients are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion coefficients"), msg)
}

// CheckValid checks the number of coefficients is one OpenCV accepts.
func (d Distortion) CheckValid() error {
	if !validDistortionLengths[len(d)] {
		return InvalidDistortionError(errors.Errorf("got %d coefficients, want 4, 5, 8, 12 or 14", len(d)).Error())
	}
	return nil
}

// Clone returns a copy of the coefficients.
func (d Distortion) Clone() Distortion {
	if d == nil {
		return nil
	}
	return append(Distortion{}, d...)
}

// Transform applies the radial and tangential part of the model to a normalized image point.
func (d Distortion) Transform(x, y float64) (float64, float64) {
	coef := func(i int) float64 {
		if i < len(d) {
			return d[i]
		}
		return 0
	}
	k1, k2, p1, p2, k3 := coef(0), coef(1), coef(2), coef(3), coef(4)
	k4, k5, k6 := coef(5), coef(6), coef(7)

	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radial := (1 + k1*r2 + k2*r4 + k3*r6) / (1 + k4*r2 + k5*r4 + k6*r6)
	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y
	return xd, yd
}
