package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ryanbastic/pixelboard/internal/palette"
)

// PaletteConfig holds the color palettes messages are painted from.
type PaletteConfig struct {
	Palettes []palette.Palette `json:"palettes"`
}

// LoadPaletteConfig reads a JSON palette file and validates it.
func LoadPaletteConfig(path string) (*PaletteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette config: %w", err)
	}

	var cfg PaletteConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse palette config: %w", err)
	}

	if err := palette.Validate(cfg.Palettes); err != nil {
		return nil, fmt.Errorf("palette config: %w", err)
	}

	seen := make(map[string]int, len(cfg.Palettes))
	for i, p := range cfg.Palettes {
		key := strings.ToUpper(strings.Join(p, ","))
		if j, dup := seen[key]; dup {
			return nil, fmt.Errorf("palette config: palette #%d duplicates palette #%d", i, j)
		}
		seen[key] = i
	}

	return &cfg, nil
}
