package building

import (
	_ "embed"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// CostDef is one catalog entry: what a building label costs to place and
// how long it takes to finish and decay.
type CostDef struct {
	Label         string  `yaml:"label"`
	Wood          int     `yaml:"wood"`
	Stone         int     `yaml:"stone"`
	BuildTicks    uint64  `yaml:"build_ticks"`
	MaxDurability float64 `yaml:"max_durability"`
}

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog maps a building key (e.g. "house") to its cost definition.
var Catalog map[string]CostDef

func init() {
	Catalog = make(map[string]CostDef)
	if err := yaml.Unmarshal(catalogYAML, &Catalog); err != nil {
		slog.Error("building: failed to parse cost catalog", "error", err)
	}
}
