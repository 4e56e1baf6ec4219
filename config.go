package arbor

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("arbor: invalid config")

// Config holds everything needed to configure a Simulation.
type Config struct {
	// Trees is the number of trees planted at start.
	Trees int `yaml:"trees"`
	// Area is the ground rectangle trees are planted in.
	Area Rect `yaml:"area"`
	// Seed drives every random draw. The same seed grows the same forest.
	Seed uint64 `yaml:"seed"`
	// MaxSegments caps the skeleton. 0 means unbounded.
	MaxSegments int `yaml:"max_segments"`

	Growth    GrowthConfig    `yaml:"growth"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Turntable TurntableConfig `yaml:"turntable"`

	// Debug logs per-tick statistics at debug level.
	Debug bool `yaml:"debug"`
	// Logger receives simulation events. Nil means no logging.
	Logger *zap.Logger `yaml:"-"`
}

// GrowthConfig holds the constants of the branching and thickening rules.
type GrowthConfig struct {
	// Radius added per tick to leader segments, and to every segment of a
	// tree without a leader.
	LeaderThickening float64 `yaml:"leader_thickening"`
	// Radius added per tick to other segments.
	LateralThickening float64 `yaml:"lateral_thickening"`
	// Per-tick probability that a tree's leader dies.
	LeaderDeathChance float64 `yaml:"leader_death_chance"`
	// Probability that a leader tip splits in two.
	LeaderSplitChance float64 `yaml:"leader_split_chance"`
	// Probability that a lateral tip splits in two.
	LateralSplitChance float64 `yaml:"lateral_split_chance"`
	// Radius given to new segments, and the area budget of a split.
	BaseRadius float64 `yaml:"base_radius"`
	// Fraction of BaseRadius drawn for the first child of a lateral split.
	SplitRatio Range `yaml:"split_ratio"`

	LeaderLength     float64 `yaml:"leader_length"`
	LeaderlessLength float64 `yaml:"leaderless_length"`
	LateralLength    float64 `yaml:"lateral_length"`

	LeaderPerturbation  float64 `yaml:"leader_perturbation"`
	LateralPerturbation float64 `yaml:"lateral_perturbation"`

	// Tropism is a constant bias added to every new direction.
	Tropism r3.Vector `yaml:"tropism"`
}

// MeshConfig selects and sizes the emitted primitives.
type MeshConfig struct {
	Leaves  bool `yaml:"leaves"`
	Shadows bool `yaml:"shadows"`
	Ground  bool `yaml:"ground"`

	LeafSize     float64 `yaml:"leaf_size"`
	ShadowY      float64 `yaml:"shadow_y"`
	GroundY      float64 `yaml:"ground_y"`
	GroundRadius float64 `yaml:"ground_radius"`

	BarkColor   Color `yaml:"bark_color"`
	LeafColor   Color `yaml:"leaf_color"`
	ShadowColor Color `yaml:"shadow_color"`
	GroundColor Color `yaml:"ground_color"`
}

// ScheduleConfig controls when growth runs and for how long it may run.
type ScheduleConfig struct {
	// Period is the number of frames between growth ticks.
	Period int `yaml:"period"`
	// Budget is the wall-clock limit of one growth tick including the
	// rebuild of the mesh. 0 disables the limit.
	Budget time.Duration `yaml:"budget"`
	// TicksPerSecond is the frame rate the turntable assumes.
	TicksPerSecond int `yaml:"ticks_per_second"`
}

// TurntableConfig controls the idle rotation.
type TurntableConfig struct {
	RevolutionSeconds float64 `yaml:"revolution_seconds"`
}

// DefaultGrowthConfig returns the standard growth rules.
func DefaultGrowthConfig() GrowthConfig {
	return GrowthConfig{
		LeaderThickening:    0.001,
		LateralThickening:   0.0001,
		LeaderDeathChance:   0.02,
		LeaderSplitChance:   0.2,
		LateralSplitChance:  0.05,
		BaseRadius:          0.01,
		SplitRatio:          Range{Min: 0.5, Max: 1.0},
		LeaderLength:        0.05,
		LeaderlessLength:    0.03,
		LateralLength:       0.01,
		LeaderPerturbation:  0.1,
		LateralPerturbation: 1.0,
		Tropism:             r3.Vector{X: 0, Y: 0.1, Z: 0},
	}
}

// DefaultMeshConfig returns the full geometry set: bark, leaves, shadows and
// ground.
func DefaultMeshConfig() MeshConfig {
	return MeshConfig{
		Leaves:       true,
		Shadows:      true,
		Ground:       true,
		LeafSize:     0.1,
		ShadowY:      -0.05,
		GroundY:      -0.1,
		GroundRadius: 4,
		BarkColor:    ColorBark,
		LeafColor:    ColorLeaf,
		ShadowColor:  ColorShadow,
		GroundColor:  ColorGround,
	}
}

// DefaultConfig returns a three-tree forest with the standard rules.
func DefaultConfig() Config {
	return Config{
		Trees:  3,
		Area:   Rect{X: -1, Y: -1, Width: 2, Height: 2},
		Seed:   1,
		Growth: DefaultGrowthConfig(),
		Mesh:   DefaultMeshConfig(),
		Schedule: ScheduleConfig{
			Period:         60,
			Budget:         100 * time.Millisecond,
			TicksPerSecond: 60,
		},
		Turntable: TurntableConfig{RevolutionSeconds: 30},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Validate checks ranges and returns an error wrapping ErrInvalidConfig.
// NaN and infinite values are rejected everywhere.
func (c Config) Validate() error {
	g := c.Growth
	for _, f := range c.floatFields() {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s = %v is not finite", ErrInvalidConfig, f.name, f.v)
		}
	}
	switch {
	case c.Trees < 1:
		return fmt.Errorf("%w: trees = %d, want >= 1", ErrInvalidConfig, c.Trees)
	case c.Area.Width < 0 || c.Area.Height < 0:
		return fmt.Errorf("%w: area %+v has negative size", ErrInvalidConfig, c.Area)
	case c.MaxSegments < 0:
		return fmt.Errorf("%w: max_segments = %d", ErrInvalidConfig, c.MaxSegments)
	case c.MaxSegments > 0 && c.MaxSegments < c.Trees:
		return fmt.Errorf("%w: max_segments %d cannot hold %d shoots", ErrInvalidConfig, c.MaxSegments, c.Trees)
	case c.Schedule.Period < 1:
		return fmt.Errorf("%w: schedule.period = %d, want >= 1", ErrInvalidConfig, c.Schedule.Period)
	case c.Schedule.Budget < 0:
		return fmt.Errorf("%w: schedule.budget = %v", ErrInvalidConfig, c.Schedule.Budget)
	case c.Schedule.TicksPerSecond < 1:
		return fmt.Errorf("%w: schedule.ticks_per_second = %d", ErrInvalidConfig, c.Schedule.TicksPerSecond)
	case g.BaseRadius <= 0:
		return fmt.Errorf("%w: growth.base_radius = %v", ErrInvalidConfig, g.BaseRadius)
	case g.LeaderThickening < 0 || g.LateralThickening < 0:
		return fmt.Errorf("%w: thickening must not be negative", ErrInvalidConfig)
	case g.SplitRatio.Min < 0 || g.SplitRatio.Min > g.SplitRatio.Max || g.SplitRatio.Max > 1:
		return fmt.Errorf("%w: growth.split_ratio %+v outside [0, 1]", ErrInvalidConfig, g.SplitRatio)
	case g.LeaderLength <= 0 || g.LeaderlessLength <= 0 || g.LateralLength <= 0:
		return fmt.Errorf("%w: segment lengths must be positive", ErrInvalidConfig)
	case g.LeaderPerturbation < 0 || g.LateralPerturbation < 0:
		return fmt.Errorf("%w: perturbation must not be negative", ErrInvalidConfig)
	case c.Mesh.LeafSize < 0 || c.Mesh.GroundRadius < 0:
		return fmt.Errorf("%w: mesh sizes must not be negative", ErrInvalidConfig)
	}
	for name, p := range map[string]float64{
		"leader_death_chance":  g.LeaderDeathChance,
		"leader_split_chance":  g.LeaderSplitChance,
		"lateral_split_chance": g.LateralSplitChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: growth.%s = %v outside [0, 1]", ErrInvalidConfig, name, p)
		}
	}
	return nil
}

type namedFloat struct {
	name string
	v    float64
}

// floatFields lists every float setting by its YAML path.
func (c Config) floatFields() []namedFloat {
	g, m := c.Growth, c.Mesh
	return []namedFloat{
		{"area.x", c.Area.X},
		{"area.y", c.Area.Y},
		{"area.width", c.Area.Width},
		{"area.height", c.Area.Height},
		{"growth.leader_thickening", g.LeaderThickening},
		{"growth.lateral_thickening", g.LateralThickening},
		{"growth.leader_death_chance", g.LeaderDeathChance},
		{"growth.leader_split_chance", g.LeaderSplitChance},
		{"growth.lateral_split_chance", g.LateralSplitChance},
		{"growth.base_radius", g.BaseRadius},
		{"growth.split_ratio.min", g.SplitRatio.Min},
		{"growth.split_ratio.max", g.SplitRatio.Max},
		{"growth.leader_length", g.LeaderLength},
		{"growth.leaderless_length", g.LeaderlessLength},
		{"growth.lateral_length", g.LateralLength},
		{"growth.leader_perturbation", g.LeaderPerturbation},
		{"growth.lateral_perturbation", g.LateralPerturbation},
		{"growth.tropism.x", g.Tropism.X},
		{"growth.tropism.y", g.Tropism.Y},
		{"growth.tropism.z", g.Tropism.Z},
		{"mesh.leaf_size", m.LeafSize},
		{"mesh.shadow_y", m.ShadowY},
		{"mesh.ground_y", m.GroundY},
		{"mesh.ground_radius", m.GroundRadius},
		{"turntable.revolution_seconds", c.Turntable.RevolutionSeconds},
	}
}
