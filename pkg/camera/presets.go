package camera

import (
	"fmt"
	"sort"
	"strings"
)

// Preset names for common capture resolutions
const (
	PresetQVGA  = "qvga"
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

type resolution struct {
	width, height int
}

var presets = map[string]resolution{
	PresetQVGA:  {320, 240},
	PresetVGA:   {640, 480},
	Preset720p:  {1280, 720},
	Preset1080p: {1920, 1080},
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset sets Width and Height from a named preset.
func (c *Config) ApplyPreset(name string) error {
	r, ok := presets[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown preset: %s (have %s)", name, strings.Join(PresetNames(), ", "))
	}
	c.Width, c.Height = r.width, r.height
	return nil
}
