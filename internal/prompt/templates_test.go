// ABOUTME: Tests for template overrides and temperature mapping

package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplates_OverridesMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modes:
  general: "Custom general instruction."
`), 0644))

	templates, err := LoadTemplates(path)
	require.NoError(t, err)

	b := NewBuilder(10, templates)
	assert.Equal(t, "Custom general instruction.", b.instructionFor(ModeGeneral))
	// Unlisted modes keep their built-ins
	assert.Equal(t, builtinTemplates[ModeCode], b.instructionFor(ModeCode))
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestTemperatureFor(t *testing.T) {
	assert.InDelta(t, 0.9, TemperatureFor(ModeCreative), 1e-9)
	assert.InDelta(t, 0.2, TemperatureFor(ModeCode), 1e-9)
	assert.InDelta(t, 0.7, TemperatureFor(ModeGeneral), 1e-9)
	assert.InDelta(t, 0.7, TemperatureFor("unknown"), 1e-9)
	assert.InDelta(t, 0.9, TemperatureFor("Creative"), 1e-9)
}
