package factory

import (
	_ "embed"
	"fmt"

	"github.com/petermazzocco/tile-studio-api/models"
	"gopkg.in/yaml.v3"
)

// The front-end palette picker has four slots.
const paletteCount = 4

//go:embed factory.yaml
var document []byte

// Load parses the embedded size and palette table.
func Load() (models.FactoryConfig, error) {
	return Parse(document)
}

func MustLoad() models.FactoryConfig {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func Parse(data []byte) (models.FactoryConfig, error) {
	var cfg models.FactoryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse factory config: %w", err)
	}
	if len(cfg.Sizes) == 0 {
		return cfg, fmt.Errorf("factory config: no sizes")
	}
	if len(cfg.Palettes) != paletteCount {
		return cfg, fmt.Errorf("factory config: want %d palettes, got %d", paletteCount, len(cfg.Palettes))
	}
	for _, p := range cfg.Palettes {
		if p.Name == "" || len(p.Colors) == 0 || p.PriceMultiplier <= 0 {
			return cfg, fmt.Errorf("factory config: invalid palette %q", p.Name)
		}
	}
	return cfg, nil
}
