package navigation

import (
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// ReadConfigFile reads navigation attributes from a JSON5 file, so comments and trailing commas
// are allowed, and decodes them with DecodeConfig.
func ReadConfigFile(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading navigation config")
	}
	return ParseConfig(data)
}

// ParseConfig is ReadConfigFile on bytes already read.
func ParseConfig(data []byte) (*Config, error) {
	var attributes map[string]interface{}
	if err := json5.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrap(err, "parsing navigation config")
	}
	return DecodeConfig(attributes)
}

// ConfigSchema describes the attributes accepted by DecodeConfig.
func ConfigSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
