package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"
)

// LoggerPatternConfig sets the level of every logger whose name matches Pattern. A '*' matches
// one or more name sections, e.g. "markernav.*" or "*.registry".
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// e.g. "go_to_marker".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "go_to_marker" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "markernav.*.registry".
	validLoggerSectionsWithWildcard = validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*`
	validLoggerName                 = `^` + validLoggerSectionsWithWildcard + `$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

// Validate ensures the pattern is well formed and the level known.
func (lpc LoggerPatternConfig) Validate(path string) error {
	if !validatePattern(lpc.Pattern) {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid logger pattern %q", lpc.Pattern))
	}
	if _, err := zapcore.ParseLevel(strings.ToLower(lpc.Level)); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}
