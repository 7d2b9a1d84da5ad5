package visualmap

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Defaults for Config.
const (
	DefaultPyramidLevels         = 4
	DefaultViewpointCosThreshold = 0.5
	DefaultVoxelSize             = 0.5
	DefaultMaxVisibleDistance    = 30.0
	DefaultPatchHalfSize         = 4
)

// Config holds the options recognized by the visual map core.
type Config struct {
	PyramidLevels          int     `json:"pyramid_levels"`
	ViewpointCosThreshold  float64 `json:"viewpoint_cos_threshold"`
	KeepOnlyRefPatchOnCull bool    `json:"keep_only_ref_patch_on_cull"`

	// MaxPoints caps the number of registered points; 0 means unlimited.
	MaxPoints int `json:"max_points,omitempty"`
	// MaxPointAge drops points not observed for this long; 0 disables age pruning.
	MaxPointAge time.Duration `json:"max_point_age,omitempty"`
	// VoxelSize is the edge length in metres of the visibility index cells.
	VoxelSize float64 `json:"voxel_size,omitempty"`
	// MaxVisibleDistance is the radius in metres around the camera searched for visible points.
	MaxVisibleDistance float64 `json:"max_visible_distance,omitempty"`
	// PatchHalfSize is the half side in pixels of the photometric patches handed to the tracker.
	PatchHalfSize int `json:"patch_half_size,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		PyramidLevels:         DefaultPyramidLevels,
		ViewpointCosThreshold: DefaultViewpointCosThreshold,
		VoxelSize:             DefaultVoxelSize,
		MaxVisibleDistance:    DefaultMaxVisibleDistance,
		PatchHalfSize:         DefaultPatchHalfSize,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.PyramidLevels < 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("pyramid_levels must be a positive integer, got %d", conf.PyramidLevels))
	}
	if conf.ViewpointCosThreshold <= 0 || conf.ViewpointCosThreshold > 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("viewpoint_cos_threshold must be in (0, 1], got %v", conf.ViewpointCosThreshold))
	}
	if conf.MaxPoints < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_points cannot be negative, got %d", conf.MaxPoints))
	}
	if conf.MaxPointAge < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_point_age cannot be negative, got %v", conf.MaxPointAge))
	}
	if conf.VoxelSize <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "voxel_size")
	}
	if conf.MaxVisibleDistance <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_visible_distance")
	}
	if conf.PatchHalfSize < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("patch_half_size cannot be negative, got %d", conf.PatchHalfSize))
	}
	return nil
}

// NewConfigFromAttributes decodes an attribute map on top of DefaultConfig and validates the
// result. Durations may be given as strings such as "30s". Unknown keys are rejected.
func NewConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "error decoding visual map config")
	}
	if err := conf.Validate("visual_map"); err != nil {
		return nil, err
	}
	return &conf, nil
}

// NewConfigFromJSONFile reads a JSON object from jsonPath and decodes it like
// NewConfigFromAttributes.
func NewConfigFromJSONFile(jsonPath string) (*Config, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	attributes := map[string]interface{}{}
	if err := json.Unmarshal(byteValue, &attributes); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return NewConfigFromAttributes(attributes)
}
