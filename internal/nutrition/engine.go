package nutrition

import (
	"io"
	"log/slog"
)

const (
	DefaultMinWeightG       = 0.1
	DefaultMaxCalories      = 10000.0
	DefaultMaxMacroG        = 1000.0
	DefaultCalorieTolerance = 0.05
	DefaultReferenceWeightG = 100.0
	DefaultDensityGML       = 1.0

	zeroEpsilon = 1e-6
)

// Config holds the policy constants of the engine. Zero fields take the defaults above.
type Config struct {
	MinWeightG       float64
	MaxCalories      float64
	MaxMacroG        float64
	CalorieTolerance float64
	ReferenceWeightG float64
	DensityGML       float64
	DefaultUnit      Unit
	CookingFactors   map[CookingMethod]CookingFactor
	Logger           *slog.Logger
}

type Engine struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Engine {
	if cfg.MinWeightG <= 0 {
		cfg.MinWeightG = DefaultMinWeightG
	}
	if cfg.MaxCalories <= 0 {
		cfg.MaxCalories = DefaultMaxCalories
	}
	if cfg.MaxMacroG <= 0 {
		cfg.MaxMacroG = DefaultMaxMacroG
	}
	if cfg.CalorieTolerance <= 0 {
		cfg.CalorieTolerance = DefaultCalorieTolerance
	}
	if cfg.ReferenceWeightG <= 0 {
		cfg.ReferenceWeightG = DefaultReferenceWeightG
	}
	if cfg.DensityGML <= 0 {
		cfg.DensityGML = DefaultDensityGML
	}
	if cfg.DefaultUnit == "" {
		cfg.DefaultUnit = UnitGram
	}
	factors := make(map[CookingMethod]CookingFactor, len(defaultCookingFactors))
	for m, f := range defaultCookingFactors {
		factors[m] = f
	}
	for m, f := range cfg.CookingFactors {
		factors[m] = f
	}
	cfg.CookingFactors = factors
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{cfg: cfg, log: cfg.Logger}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Logger() *slog.Logger {
	return e.log
}
