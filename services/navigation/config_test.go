package navigation

import (
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/vision/aruco"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("navigation"), test.ShouldBeNil)
	test.That(t, cfg.GoTo.AttemptTimeout(), test.ShouldEqual, 30*time.Second)
	test.That(t, cfg.LookAt.SamplingPeriod(), test.ShouldEqual, 200*time.Millisecond)
	test.That(t, cfg.LookAt.Timeout(), test.ShouldEqual, 5*time.Second)

	detection := cfg.DetectionConfig(transform.PepperHeadCamera())
	test.That(t, detection.Validate("detection"), test.ShouldBeNil)
	test.That(t, detection.Policy, test.ShouldEqual, aruco.AttachedToMap)
	test.That(t, detection.MarkerLength, test.ShouldEqual, aruco.DefaultMarkerLength)
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(map[string]interface{}{
		"dictionary":          "DICT_5X5_100",
		"localization_policy": "DETACHED",
		"go_to": map[string]interface{}{
			"max_retries":        5,
			"orientation_policy": "align_x",
		},
		"look_at": map[string]interface{}{
			"movement_policy": "head_and_base",
			"timeout_ms":      2000,
		},
		"go_to_marker": map[string]interface{}{
			"distance_between_stops_m": 2.5,
		},
		"engage": map[string]interface{}{
			"greet_ms": 500,
		},
		"log": []interface{}{
			map[string]interface{}{"pattern": "markernav.*", "level": "WARN"},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Dictionary, test.ShouldEqual, aruco.Dict5x5_100)
	test.That(t, cfg.LocalizationPolicy, test.ShouldEqual, aruco.Detached)
	test.That(t, cfg.GoTo.MaxRetries, test.ShouldEqual, 5)
	test.That(t, cfg.GoTo.OrientationPolicy, test.ShouldEqual, actuation.AlignX)
	test.That(t, cfg.LookAt.MovementPolicy, test.ShouldEqual, actuation.HeadAndBase)
	test.That(t, cfg.LookAt.TimeoutMs, test.ShouldEqual, 2000)
	test.That(t, cfg.GoToMarker.DistanceBetweenStopsM, test.ShouldEqual, 2.5)
	test.That(t, cfg.Engage.Greet(), test.ShouldEqual, 500*time.Millisecond)
	test.That(t, cfg.Engage.HumanDistanceM, test.ShouldEqual, 0.5)
	test.That(t, cfg.Log, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "markernav.*", Level: "WARN"}})

	// Everything else keeps its default.
	defaults := DefaultConfig()
	test.That(t, cfg.MarkerLengthM, test.ShouldEqual, defaults.MarkerLengthM)
	test.That(t, cfg.GoTo.AttemptTimeoutSec, test.ShouldEqual, defaults.GoTo.AttemptTimeoutSec)
	test.That(t, cfg.LookAt.SamplingPeriodMs, test.ShouldEqual, defaults.LookAt.SamplingPeriodMs)
	test.That(t, cfg.GoToMarker.MinViewingDistanceM, test.ShouldEqual, defaults.GoToMarker.MinViewingDistanceM)
	test.That(t, cfg.GoToMarker.AlignWithMarker, test.ShouldBeTrue)

	cfg, err = DecodeConfig(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *cfg, test.ShouldResemble, defaults)
}

func TestDecodeConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name       string
		attributes map[string]interface{}
		contains   string
	}{
		{"unknown key", map[string]interface{}{"max_speed": 2}, "max_speed"},
		{"unknown dictionary", map[string]interface{}{"dictionary": "DICT_3X3_9"}, "DICT_3X3_9"},
		{"unknown policy", map[string]interface{}{"localization_policy": "FLOATING"}, "FLOATING"},
		{"unknown movement", map[string]interface{}{
			"look_at": map[string]interface{}{"movement_policy": "base_only"},
		}, "base_only"},
		{"zero sampling", map[string]interface{}{
			"look_at": map[string]interface{}{"sampling_period_ms": 0},
		}, "sampling_period_ms"},
		{"negative retries", map[string]interface{}{
			"go_to": map[string]interface{}{"max_retries": -1},
		}, "max_retries"},
		{"bad log pattern", map[string]interface{}{
			"log": []interface{}{map[string]interface{}{"pattern": "a..b", "level": "INFO"}},
		}, "navigation.log.0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeConfig(tc.attributes)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	goTo := DefaultGoToConfig()
	goTo.AttemptTimeoutSec = 0
	err := goTo.Validate("go_to")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "attempt_timeout_sec")

	lookAt := DefaultLookAtConfig()
	lookAt.TimeoutMs = 100
	err = lookAt.Validate("look_at")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "timeout_ms")

	lookAt = DefaultLookAtConfig()
	lookAt.StoppedWindow = 1
	test.That(t, lookAt.Validate("look_at"), test.ShouldNotBeNil)

	approach := DefaultGoToMarkerConfig()
	approach.MinViewingDistanceM = 0
	err = approach.Validate("go_to_marker")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_viewing_distance_m")

	approach = DefaultGoToMarkerConfig()
	approach.ApproachDistanceM = -1
	test.That(t, approach.Validate("go_to_marker"), test.ShouldNotBeNil)

	cfg := DefaultConfig()
	cfg.Dictionary = aruco.Dictionary(99)
	test.That(t, cfg.Validate("navigation"), test.ShouldNotBeNil)

	cfg = DefaultConfig()
	cfg.GoToMarker.MaxStops = 0
	err = cfg.Validate("navigation")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "navigation.go_to_marker")

	cfg = DefaultConfig()
	cfg.Engage.GreetMs = -1
	err = cfg.Validate("navigation")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "navigation.engage")
}

func TestPolicyText(t *testing.T) {
	text, err := actuation.AlignX.MarshalText()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(text), test.ShouldEqual, "align_x")

	var movement actuation.MovementPolicy
	test.That(t, movement.UnmarshalText([]byte("")), test.ShouldBeNil)
	test.That(t, movement, test.ShouldEqual, actuation.HeadOnly)
	test.That(t, movement.UnmarshalText([]byte("head_and_base")), test.ShouldBeNil)
	test.That(t, movement, test.ShouldEqual, actuation.HeadAndBase)
}
