package navigation

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/markernav/actuation"
	"go.viam.com/markernav/logging"
	"go.viam.com/markernav/rimage/transform"
	"go.viam.com/markernav/vision/aruco"
)

// GoToConfig tunes a retrying go-to.
type GoToConfig struct {
	MaxRetries        int                         `json:"max_retries"`
	AttemptTimeoutSec float64                     `json:"attempt_timeout_sec"`
	MaxSpeedMPerSec   float64                     `json:"max_speed_m_per_sec"`
	OrientationPolicy actuation.OrientationPolicy `json:"orientation_policy"`
	WalkingAnimation  string                      `json:"walking_animation,omitempty"`
}

// DefaultGoToConfig returns three retries with a 30 second watchdog.
func DefaultGoToConfig() GoToConfig {
	return GoToConfig{
		MaxRetries:        3,
		AttemptTimeoutSec: 30,
		MaxSpeedMPerSec:   1,
		OrientationPolicy: actuation.FreeOrientation,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg GoToConfig) Validate(path string) error {
	if cfg.MaxRetries < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_retries must not be negative, got %d", cfg.MaxRetries))
	}
	if cfg.AttemptTimeoutSec <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "attempt_timeout_sec")
	}
	if cfg.MaxSpeedMPerSec < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_speed_m_per_sec must not be negative"))
	}
	return nil
}

// AttemptTimeout is the per-attempt watchdog.
func (cfg GoToConfig) AttemptTimeout() time.Duration {
	return time.Duration(cfg.AttemptTimeoutSec * float64(time.Second))
}

func (cfg GoToConfig) options() actuation.GoToOptions {
	return actuation.GoToOptions{
		MaxSpeed:          cfg.MaxSpeedMPerSec,
		OrientationPolicy: cfg.OrientationPolicy,
		WalkingAnimation:  cfg.WalkingAnimation,
	}
}

// LookAtConfig tunes how a look-at is started and when it counts as settled.
type LookAtConfig struct {
	MovementPolicy actuation.MovementPolicy `json:"movement_policy"`
	// RequireBaseAligned also waits for the base to face the target or stop turning.
	RequireBaseAligned bool    `json:"require_base_aligned"`
	AlignedDelta       float64 `json:"aligned_delta_m"`
	SamplingPeriodMs   int     `json:"sampling_period_ms"`
	TimeoutMs          int     `json:"timeout_ms"`
	// StoppedWindow is how many aligned samples back the robot pose is compared with to decide the
	// base stopped moving.
	StoppedWindow   int     `json:"stopped_window"`
	StoppedAngleRad float64 `json:"stopped_angle_rad"`
}

// DefaultLookAtConfig returns a head-only look-at sampled every 200ms for at most 5s.
func DefaultLookAtConfig() LookAtConfig {
	return LookAtConfig{
		MovementPolicy:   actuation.HeadOnly,
		AlignedDelta:     0.1,
		SamplingPeriodMs: 200,
		TimeoutMs:        5000,
		StoppedWindow:    4,
		StoppedAngleRad:  0.01,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg LookAtConfig) Validate(path string) error {
	if cfg.AlignedDelta <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "aligned_delta_m")
	}
	if cfg.SamplingPeriodMs <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "sampling_period_ms")
	}
	if cfg.TimeoutMs < cfg.SamplingPeriodMs {
		return utils.NewConfigValidationError(path,
			errors.Errorf("timeout_ms (%d) must be at least sampling_period_ms (%d)", cfg.TimeoutMs, cfg.SamplingPeriodMs))
	}
	if cfg.StoppedWindow < 2 {
		return utils.NewConfigValidationError(path, errors.Errorf("stopped_window must be at least 2, got %d", cfg.StoppedWindow))
	}
	if cfg.StoppedAngleRad <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "stopped_angle_rad")
	}
	return nil
}

// SamplingPeriod is the polling period.
func (cfg LookAtConfig) SamplingPeriod() time.Duration {
	return time.Duration(cfg.SamplingPeriodMs) * time.Millisecond
}

// Timeout is how long a look-at may take to settle.
func (cfg LookAtConfig) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}

// GoToMarkerConfig tunes GoToMarkerCheckingPositionOnTheWay.
type GoToMarkerConfig struct {
	DistanceBetweenStopsM float64 `json:"distance_between_stops_m"`
	MinViewingDistanceM   float64 `json:"min_viewing_distance_m"`
	// StopMarginM is kept between an intermediate stop and the viewing distance.
	StopMarginM float64 `json:"stop_margin_m"`
	MaxRetries  int     `json:"max_retries"`
	MaxStops    int     `json:"max_stops"`
	// AlignWithMarker makes the robot face the marker at the end of the approach.
	AlignWithMarker bool `json:"align_with_marker"`
	// MarkerRotationRad rotates the approach frame about the marker x axis.
	MarkerRotationRad float64 `json:"marker_rotation_rad"`
	// ApproachDistanceM is how close ReturnToMarker gets before looking at the marker.
	ApproachDistanceM float64 `json:"approach_distance_m"`
}

// DefaultGoToMarkerConfig returns stops every 3m and a 1.2m viewing distance.
func DefaultGoToMarkerConfig() GoToMarkerConfig {
	return GoToMarkerConfig{
		DistanceBetweenStopsM: 3.0,
		MinViewingDistanceM:   1.2,
		StopMarginM:           0.3,
		MaxRetries:            10,
		MaxStops:              20,
		AlignWithMarker:       true,
		ApproachDistanceM:     1.5,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg GoToMarkerConfig) Validate(path string) error {
	if cfg.DistanceBetweenStopsM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "distance_between_stops_m")
	}
	if cfg.MinViewingDistanceM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "min_viewing_distance_m")
	}
	if cfg.StopMarginM < 0 || cfg.MaxRetries < 0 {
		return utils.NewConfigValidationError(path, errors.New("stop_margin_m and max_retries must not be negative"))
	}
	if cfg.MaxStops <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_stops")
	}
	if cfg.ApproachDistanceM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "approach_distance_m")
	}
	return nil
}

// EngageConfig tunes EngageAndReturn.
type EngageConfig struct {
	// HumanDistanceM is how far in front of the human head the robot stops.
	HumanDistanceM float64 `json:"human_distance_m"`
	// GreetMs is how long the robot keeps looking at the human once it arrived.
	GreetMs int `json:"greet_ms"`
}

// DefaultEngageConfig stops half a meter in front of the human and looks at them for 2 seconds.
func DefaultEngageConfig() EngageConfig {
	return EngageConfig{HumanDistanceM: 0.5, GreetMs: 2000}
}

// Validate ensures all parts of the config are valid.
func (cfg EngageConfig) Validate(path string) error {
	if cfg.HumanDistanceM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "human_distance_m")
	}
	if cfg.GreetMs < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("greet_ms must not be negative, got %d", cfg.GreetMs))
	}
	return nil
}

// Greet is how long the robot looks at an engaged human.
func (cfg EngageConfig) Greet() time.Duration {
	return time.Duration(cfg.GreetMs) * time.Millisecond
}

// Config gathers every navigation tunable. It can be decoded from robot config attributes.
type Config struct {
	MarkerLengthM      float64                  `json:"marker_length_m"`
	Dictionary         aruco.Dictionary         `json:"dictionary"`
	LocalizationPolicy aruco.LocalizationPolicy `json:"localization_policy"`

	GoTo       GoToConfig       `json:"go_to"`
	LookAt     LookAtConfig     `json:"look_at"`
	GoToMarker GoToMarkerConfig `json:"go_to_marker"`
	Engage     EngageConfig     `json:"engage"`

	// Log sets logger levels by name pattern when the navigator is created.
	Log []logging.LoggerPatternConfig `json:"log,omitempty"`
}

// DefaultConfig returns the defaults for 15cm DICT_4X4_50 markers attached to the map.
func DefaultConfig() Config {
	return Config{
		MarkerLengthM:      aruco.DefaultMarkerLength,
		Dictionary:         aruco.Dict4x4_50,
		LocalizationPolicy: aruco.AttachedToMap,
		GoTo:               DefaultGoToConfig(),
		LookAt:             DefaultLookAtConfig(),
		GoToMarker:         DefaultGoToMarkerConfig(),
		Engage:             DefaultEngageConfig(),
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.MarkerLengthM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "marker_length_m")
	}
	if !cfg.Dictionary.Valid() {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown dictionary %d", int(cfg.Dictionary)))
	}
	if err := cfg.GoTo.Validate(fmt.Sprintf("%s.%s", path, "go_to")); err != nil {
		return err
	}
	if err := cfg.LookAt.Validate(fmt.Sprintf("%s.%s", path, "look_at")); err != nil {
		return err
	}
	if err := cfg.GoToMarker.Validate(fmt.Sprintf("%s.%s", path, "go_to_marker")); err != nil {
		return err
	}
	if err := cfg.Engage.Validate(fmt.Sprintf("%s.%s", path, "engage")); err != nil {
		return err
	}
	for i, lpc := range cfg.Log {
		if err := lpc.Validate(fmt.Sprintf("%s.log.%d", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// DetectionConfig returns the marker detection configuration for camera.
func (cfg *Config) DetectionConfig(camera *transform.CameraModel) aruco.DetectionConfig {
	return aruco.DetectionConfig{
		MarkerLength: cfg.MarkerLengthM,
		Dictionary:   cfg.Dictionary,
		Camera:       camera,
		Policy:       cfg.LocalizationPolicy,
	}
}

// DecodeConfig decodes attributes over DefaultConfig and validates the result. Policy and
// dictionary names are given as text, e.g. "DICT_4X4_50" or "head_and_base".
func DecodeConfig(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &conf,
		DecodeHook:  mapstructure.TextUnmarshallerHookFunc(),
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding navigation attributes")
	}
	if err := conf.Validate("navigation"); err != nil {
		return nil, err
	}
	return &conf, nil
}
