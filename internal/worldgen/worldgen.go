// Package worldgen implements the one-shot terrain, resource, and animal
// seeding behind Runner.initializeWorldResources. It never runs again
// after initialization; the kernel treats its output as static.
package worldgen

import (
	"math"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/simkernel/internal/state"
)

// Biome classifies a generated tile.
type Biome string

const (
	BiomeWater    Biome = "water"
	BiomeBeach    Biome = "beach"
	BiomePlains   Biome = "plains"
	BiomeForest   Biome = "forest"
	BiomeMountain Biome = "mountain"
)

// Tile is one cell of the generated terrain grid.
type Tile struct {
	X, Y      int
	Biome     Biome
	Elevation float64
}

// Map is the complete generated terrain, addressable by grid coordinate.
type Map struct {
	Width, Height int
	TileSize      float64
	Tiles         []Tile
}

// Config parameters the generator from §6's initializeWorldResources
// payload.
type Config struct {
	Width, Height int
	TileSize      float64
	Seed          int64

	SeaLevel      float64
	MountainLevel float64
}

// DefaultConfig returns reasonable generation thresholds.
func DefaultConfig(width, height int, tileSize float64) Config {
	return Config{
		Width: width, Height: height, TileSize: tileSize,
		SeaLevel: 0.3, MountainLevel: 0.75,
	}
}

// Generate produces a terrain grid via layered, normalized simplex noise,
// the same multi-octave-then-threshold technique the teacher uses for its
// hex world, applied to a rectangular grid instead.
func Generate(cfg Config) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	elevNoise := opensimplex.NewNormalized(seed)

	m := &Map{Width: cfg.Width, Height: cfg.Height, TileSize: cfg.TileSize}
	m.Tiles = make([]Tile, 0, cfg.Width*cfg.Height)

	for x := 0; x < cfg.Width; x++ {
		for y := 0; y < cfg.Height; y++ {
			elev := octaveNoise(elevNoise, float64(x), float64(y), 4, 0.06, 0.5)

			cx, cy := float64(cfg.Width)/2, float64(cfg.Height)/2
			dist := math.Hypot(float64(x)-cx, float64(y)-cy) / math.Hypot(cx, cy)
			falloff := 1 - math.Pow(dist, 3)
			if falloff < 0 {
				falloff = 0
			}
			elev *= falloff

			m.Tiles = append(m.Tiles, Tile{X: x, Y: y, Elevation: elev, Biome: deriveBiome(elev, cfg)})
		}
	}
	return m
}

func deriveBiome(elev float64, cfg Config) Biome {
	switch {
	case elev < cfg.SeaLevel:
		return BiomeWater
	case elev < cfg.SeaLevel+0.04:
		return BiomeBeach
	case elev > cfg.MountainLevel:
		return BiomeMountain
	case elev > cfg.MountainLevel-0.2:
		return BiomeForest
	default:
		return BiomePlains
	}
}

func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	var total, amplitude, max float64
	amplitude = 1
	for o := 0; o < octaves; o++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		max += amplitude
		amplitude *= persistence
		freq *= 2
	}
	return total / max
}

// Seed populates s with resource zones over producible tiles and animal
// entities over forest tiles, called exactly once during
// initializeWorldResources.
func Seed(s *state.State, m *Map) {
	s.TerrainTiles = m

	seedResourceZones(s, m)
	seedAnimals(s, m)
}

func seedResourceZones(s *state.State, m *Map) {
	const zoneStep = 8 // one resource zone per 8x8 tile block, avoiding a zone-per-tile explosion
	for x := 0; x+zoneStep <= m.Width; x += zoneStep {
		for y := 0; y+zoneStep <= m.Height; y += zoneStep {
			t := tileAt(m, x+zoneStep/2, y+zoneStep/2)
			if t == nil {
				continue
			}
			production, stockpileKind := productionFor(t.Biome)
			if production == "" {
				continue
			}
			zoneID := state.EntityID(uuid.NewString())
			bounds := state.Bounds{
				X: float64(x) * m.TileSize, Y: float64(y) * m.TileSize,
				W: zoneStep * m.TileSize, H: zoneStep * m.TileSize,
			}
			s.Zones[zoneID] = &state.Zone{
				ID:             zoneID,
				Type:           zoneTypeFor(t.Biome),
				Bounds:         bounds,
				Props:          map[string]float64{},
				ProductionType: production,
				BaseYield:      1,
				Stockpiles:     []*state.Stockpile{state.NewStockpile(zoneID, stockpileKind, 500)},
			}
		}
	}
}

func productionFor(b Biome) (string, state.StockpileType) {
	switch b {
	case BiomePlains:
		return string(state.ResourceFood), state.StockpileFood
	case BiomeForest:
		return string(state.ResourceWood), state.StockpileMaterials
	case BiomeMountain:
		return string(state.ResourceStone), state.StockpileMaterials
	default:
		return "", ""
	}
}

func zoneTypeFor(b Biome) state.ZoneType {
	switch b {
	case BiomeWater:
		return state.ZoneWater
	case BiomePlains:
		return state.ZoneFood
	default:
		return state.ZoneWork
	}
}

// seedAnimals places a sparse population of first-class animal entities
// (tagged per the combat resolver's hostility contract) across forest
// tiles.
func seedAnimals(s *state.State, m *Map) {
	const spacing = 20
	for x := 0; x+spacing <= m.Width; x += spacing {
		for y := 0; y+spacing <= m.Height; y += spacing {
			t := tileAt(m, x, y)
			if t == nil || t.Biome != BiomeForest {
				continue
			}
			id := state.EntityID(uuid.NewString())
			s.Entities[id] = &state.Entity{
				ID:       id,
				Type:     state.EntityAnimal,
				Position: state.Point{X: float64(x) * m.TileSize, Y: float64(y) * m.TileSize},
				Stats:    map[string]float64{"health": 40, "stamina": 100},
				Tags:     map[string]bool{"animal": true, "aggressive": true},
			}
		}
	}
}

func tileAt(m *Map, x, y int) *Tile {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return nil
	}
	idx := x*m.Height + y
	if idx < 0 || idx >= len(m.Tiles) {
		return nil
	}
	return &m.Tiles[idx]
}
