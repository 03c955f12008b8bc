package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestClassifyAxes(t *testing.T) {
	identity := ClassifyAxes(quat.Number{Real: 1})
	test.That(t, identity, test.ShouldResemble, AxesDirections{X: AwayFromRobot, Y: LeftOfRobot, Z: Up})
	test.That(t, identity.Orientation(), test.ShouldEqual, Vertical)

	flippedX := ClassifyAxes(RotationAboutX(math.Pi))
	test.That(t, flippedX, test.ShouldResemble, AxesDirections{X: AwayFromRobot, Y: RightOfRobot, Z: Down})

	flippedY := ClassifyAxes(RotationAboutY(math.Pi))
	test.That(t, flippedY, test.ShouldResemble, AxesDirections{X: TowardRobot, Y: LeftOfRobot, Z: Down})

	facing := ClassifyAxes(RotationAboutY(-math.Pi / 2))
	test.That(t, facing, test.ShouldResemble, AxesDirections{X: Up, Y: LeftOfRobot, Z: TowardRobot})
	test.That(t, facing.Orientation(), test.ShouldEqual, Horizontal)
}

func TestClosestDirection(t *testing.T) {
	test.That(t, ClosestDirection(r3.Vector{X: 0.1, Y: -0.9, Z: 0.2}), test.ShouldEqual, RightOfRobot)
	test.That(t, ClosestDirection(r3.Vector{X: -0.6, Y: 0.1, Z: 0.5}), test.ShouldEqual, TowardRobot)
	test.That(t, Down.String(), test.ShouldEqual, "DOWN")
	test.That(t, AngleToDirection(r3.Vector{X: 1, Z: 1}, Up), test.ShouldAlmostEqual, math.Pi/4)
}

func TestSphericalRoundTrip(t *testing.T) {
	coord := NewSphericalCoordDegrees(1, 120, 30)
	v := coord.Cartesian()
	test.That(t, v.Z, test.ShouldAlmostEqual, -0.5)
	test.That(t, v.X, test.ShouldAlmostEqual, math.Sin(2*math.Pi/3)*math.Cos(math.Pi/6))

	back := CartesianToSpherical(v)
	test.That(t, back.Rho, test.ShouldAlmostEqual, 1)
	test.That(t, back.Theta, test.ShouldAlmostEqual, coord.Theta)
	test.That(t, back.Phi, test.ShouldAlmostEqual, coord.Phi)

	test.That(t, CartesianToSpherical(r3.Vector{}), test.ShouldResemble, SphericalCoord{})
}

func TestIsFloor(t *testing.T) {
	test.That(t, ClassifyAxes(RotationAboutY(-math.Pi/2)).IsFloor(), test.ShouldBeTrue)
	test.That(t, ClassifyAxes(quat.Number{Real: 1}).IsFloor(), test.ShouldBeFalse)
	test.That(t, SphericalToCartesian(2, math.Pi/2, 0).X, test.ShouldAlmostEqual, 2)
}
