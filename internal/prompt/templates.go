// ABOUTME: Mode instruction templates and temperature mapping
// ABOUTME: Built-in texts can be overridden from a YAML template file

package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Chat modes. Unrecognized modes fall back to the neutral default
// instruction; they are not an error.
const (
	ModeGeneral  = "general"
	ModeCreative = "creative"
	ModeCode     = "code"
)

// builtinTemplates are the fixed per-mode system instructions.
var builtinTemplates = map[string]string{
	ModeGeneral:  "You are a helpful and friendly assistant. Answer clearly and concisely.",
	ModeCreative: "You are a creative and imaginative assistant. Respond with originality and flair.",
	ModeCode:     "You are a helpful coding assistant. Generate and explain code clearly.",
}

// defaultInstruction is used for any unrecognized mode.
const defaultInstruction = "You are a helpful assistant."

// templateFile is the YAML shape of a template override file.
type templateFile struct {
	Modes map[string]string `yaml:"modes"`
}

// LoadTemplates reads mode instruction overrides from a YAML file:
//
//	modes:
//	  general: "..."
//	  creative: "..."
//
// Missing modes keep their built-in texts.
func LoadTemplates(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing template file: %w", err)
	}
	return file.Modes, nil
}

// instructionFor returns the system instruction for a mode, consulting
// overrides first, then the built-ins, then the neutral default.
func (b *Builder) instructionFor(mode string) string {
	mode = strings.ToLower(mode)
	if text, ok := b.templates[mode]; ok && text != "" {
		return text
	}
	if text, ok := builtinTemplates[mode]; ok {
		return text
	}
	return defaultInstruction
}

// TemperatureFor maps a mode to the backend sampling temperature.
func TemperatureFor(mode string) float64 {
	switch strings.ToLower(mode) {
	case ModeCreative:
		return 0.9
	case ModeCode:
		return 0.2
	default:
		return 0.7
	}
}
