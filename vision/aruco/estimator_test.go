package aruco

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/spatialmath"
)

// Detections of markers held in front of the head camera, with the gaze aligned on the robot
// frame, and the direction each marker axis was seen pointing to.
var orientationCases = []struct {
	translation r3.Vector
	rotation    r3.Vector
	expected    spatialmath.AxesDirections
}{
	{
		r3.Vector{X: -0.04059367148270392, Y: -0.0042877351072176245, Z: 0.6531470343376096},
		r3.Vector{X: 3.1581800164380525, Y: -0.009737187076127246, Z: -0.17236074445411662},
		spatialmath.AxesDirections{X: spatialmath.TowardRobot, Y: spatialmath.RightOfRobot, Z: spatialmath.Up},
	},
	{
		r3.Vector{X: -0.0065799738201712315, Y: -0.04728001631789635, Z: 0.6154773782242214},
		r3.Vector{X: -2.9321697351475327, Y: 1.05357687607394, Z: 0.20378092783132243},
		spatialmath.AxesDirections{X: spatialmath.TowardRobot, Y: spatialmath.RightOfRobot, Z: spatialmath.Up},
	},
	{
		r3.Vector{X: 0.02633380703333648, Y: -0.07620234461276373, Z: 0.6047962955214515},
		r3.Vector{X: 2.187503296551204, Y: -2.211253248464454, Z: -0.022563764848722613},
		spatialmath.AxesDirections{X: spatialmath.TowardRobot, Y: spatialmath.Up, Z: spatialmath.LeftOfRobot},
	},
	{
		r3.Vector{X: 0.024316931604140578, Y: -0.037989984846261066, Z: 0.7739170739242143},
		r3.Vector{X: -0.11085258206779833, Y: -3.0729501033762214, Z: 0.04187114589747818},
		spatialmath.AxesDirections{X: spatialmath.TowardRobot, Y: spatialmath.LeftOfRobot, Z: spatialmath.Down},
	},
	{
		r3.Vector{X: -0.0404276817331526, Y: -0.012954027985346846, Z: 0.7375226634399822},
		r3.Vector{X: 2.7959332709641056, Y: -0.05851947192163478, Z: 1.4143941872217434},
		spatialmath.AxesDirections{X: spatialmath.RightOfRobot, Y: spatialmath.AwayFromRobot, Z: spatialmath.Up},
	},
	{
		r3.Vector{X: -0.011586647576947998, Y: 0.0071068020441877496, Z: 0.4273288072821557},
		r3.Vector{X: -2.767512880657446, Y: 0.32361905505941196, Z: -1.2843125885116533},
		spatialmath.AxesDirections{X: spatialmath.RightOfRobot, Y: spatialmath.AwayFromRobot, Z: spatialmath.Up},
	},
	{
		r3.Vector{X: 0.024432450955777278, Y: -0.00528629075949304, Z: 0.4433741202828122},
		r3.Vector{X: -1.558362048138247, Y: 1.510494574427345, Z: -0.9366239135742951},
		spatialmath.AxesDirections{X: spatialmath.RightOfRobot, Y: spatialmath.Up, Z: spatialmath.TowardRobot},
	},
	{
		r3.Vector{X: -0.005560823622641131, Y: 0.009502341394693125, Z: 0.45606686599444823},
		r3.Vector{X: 0.041183120947138746, Y: 2.052628494492256, Z: 0.03515298832695021},
		spatialmath.AxesDirections{X: spatialmath.RightOfRobot, Y: spatialmath.TowardRobot, Z: spatialmath.Down},
	},
	{
		r3.Vector{X: -0.03176647510338478, Y: 0.020478635063781298, Z: 0.4164881044601403},
		r3.Vector{X: 1.4999971274197659, Y: -1.5934114272981683, Z: 0.9108280374230204},
		spatialmath.AxesDirections{X: spatialmath.Up, Y: spatialmath.AwayFromRobot, Z: spatialmath.LeftOfRobot},
	},
	{
		r3.Vector{X: -0.04072477101727981, Y: 0.038743244580552026, Z: 0.4757404092791874},
		r3.Vector{X: 1.5183977631651149, Y: 1.5473412942709308, Z: -1.0094046166048305},
		spatialmath.AxesDirections{X: spatialmath.Up, Y: spatialmath.TowardRobot, Z: spatialmath.RightOfRobot},
	},
	{
		r3.Vector{X: 0.04272707585794839, Y: 0.012823012388409917, Z: 0.4495808723633766},
		r3.Vector{X: 2.70697536386678, Y: -4.867833456807776e-4, Z: -1.3232219618155134},
		spatialmath.AxesDirections{X: spatialmath.LeftOfRobot, Y: spatialmath.TowardRobot, Z: spatialmath.Up},
	},
}

func TestGazeToMarkerOrientation(t *testing.T) {
	gazeToCamera := transform.PepperGazeToHeadCamera()
	for i, tc := range orientationCases {
		sample := DetectionSample{ID: i, Translation: tc.translation, Rotation: tc.rotation}
		gazeToMarker := GazeToMarker(sample, gazeToCamera)
		test.That(t, ClassifyMarker(gazeToMarker), test.ShouldResemble, tc.expected)
	}
}

func TestGazeToMarkerTranslation(t *testing.T) {
	sample := DetectionSample{
		Translation: r3.Vector{X: 0.1, Y: 0.2, Z: 1.5},
		Rotation:    r3.Vector{X: math.Pi},
	}
	cameraToMarker := CameraToMarker(sample.Translation, sample.Rotation)
	test.That(t, cameraToMarker.Point().X, test.ShouldAlmostEqual, 1.5)
	test.That(t, cameraToMarker.Point().Y, test.ShouldAlmostEqual, -0.1)
	test.That(t, cameraToMarker.Point().Z, test.ShouldAlmostEqual, -0.2)

	gazeToCamera := transform.PepperGazeToHeadCamera()
	gazeToMarker := GazeToMarker(sample, gazeToCamera)
	test.That(t, gazeToMarker.Point().X, test.ShouldAlmostEqual, 1.5+0.020309998728599843)
	test.That(t, gazeToMarker.Point().Z, test.ShouldAlmostEqual, -0.2+0.04393999093233303)
}

func TestGazeToMarkerZeroRotation(t *testing.T) {
	for _, rotation := range []r3.Vector{{}, {X: 1e-15, Y: -1e-15}} {
		pose := GazeToMarker(DetectionSample{Translation: r3.Vector{Z: 1}, Rotation: rotation}, nil)
		q := pose.Orientation()
		test.That(t, math.IsNaN(q.Real) || math.IsNaN(q.Imag), test.ShouldBeFalse)
		// Only the marker plane correction remains.
		test.That(t, spatialmath.QuatAlmostEqual(q, quat.Number{Imag: 1}, 1e-9), test.ShouldBeTrue)
		test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1)
	}
}

func TestToGazeAxes(t *testing.T) {
	test.That(t, ToGazeAxes(r3.Vector{X: 1, Y: 2, Z: 3}), test.ShouldResemble, r3.Vector{X: 3, Y: -1, Z: -2})
}
