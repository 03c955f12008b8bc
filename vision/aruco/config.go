package aruco

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/markernav/rimage/transform"
)

// DefaultMarkerLength is the side of the printed markers, in meters.
const DefaultMarkerLength = 0.15

// DetectionConfig describes how markers are detected and localized.
type DetectionConfig struct {
	// MarkerLength is the physical side length of a marker, in meters.
	MarkerLength float64
	Dictionary   Dictionary
	Camera       *transform.CameraModel
	Policy       LocalizationPolicy
}

// DefaultDetectionConfig returns the configuration for 15cm DICT_4X4_50 markers seen by Pepper's
// head camera, localized detached.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MarkerLength: DefaultMarkerLength,
		Dictionary:   Dict4x4_50,
		Camera:       transform.PepperHeadCamera(),
		Policy:       Detached,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg DetectionConfig) Validate(path string) error {
	if cfg.Camera == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "camera")
	}
	if cfg.MarkerLength <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("marker length must be positive, got %v", cfg.MarkerLength))
	}
	if !cfg.Dictionary.Valid() {
		return utils.NewConfigValidationError(path, errors.Wrapf(ErrUnknownDictionary, "%d", int(cfg.Dictionary)))
	}
	if cfg.Policy != Detached && cfg.Policy != AttachedToMap {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown localization policy %d", int(cfg.Policy)))
	}
	return nil
}

// WithPolicy returns a copy of the config using policy.
func (cfg DetectionConfig) WithPolicy(policy LocalizationPolicy) DetectionConfig {
	cfg.Policy = policy
	return cfg
}
