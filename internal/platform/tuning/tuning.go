// Package tuning holds the balance knobs for the simulation.
// Defaults are compiled in and always valid; a YAML file can override any
// subset of them for balance experiments.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("800ms") in YAML, where a raw
// time.Duration would only take integer nanoseconds. Bare integers are
// read as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	return fmt.Errorf("invalid duration value %q", value.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Tuning collects every tunable constant in one place so independent
// simulations can run with different balance without recompiling.
type Tuning struct {
	// Clock
	TickInterval    Duration `yaml:"tick_interval"`
	TicksPerDay     int      `yaml:"ticks_per_day"`
	PlanningDays    int      `yaml:"planning_days"`
	SprintDays      int      `yaml:"sprint_days"`
	MaxCatchUpTicks int      `yaml:"max_catch_up_ticks"` // accumulator clamp, in ticks

	// Throughput
	WIPPenaltyPerExcess float64 `yaml:"wip_penalty_per_excess"` // per story beyond roster size
	WIPFloor            float64 `yaml:"wip_floor"`              // multiplier never drops below this
	MomentumMultiplier  float64 `yaml:"momentum_multiplier"`
	MomentumTicks       int     `yaml:"momentum_ticks"`

	// Disruption
	BlockerChance     float64 `yaml:"blocker_chance"` // per tick
	MaxActiveBlockers int     `yaml:"max_active_blockers"`

	// Contract generation
	StoryCountMin  int `yaml:"story_count_min"`
	StoryCountMax  int `yaml:"story_count_max"`
	StoryPointsMin int `yaml:"story_points_min"`
	StoryPointsMax int `yaml:"story_points_max"`
	SprintsMin     int `yaml:"sprints_min"`
	SprintsMax     int `yaml:"sprints_max"`
	PayoutMin      int `yaml:"payout_min"`
	PayoutMax      int `yaml:"payout_max"`

	// Payout
	CurveExponent    float64 `yaml:"curve_exponent"`
	PerfectBonusFrac float64 `yaml:"perfect_bonus_frac"`
	EarlyBonusPerDay float64 `yaml:"early_bonus_per_day"`
}

// Default returns the balance values the game ships with.
func Default() Tuning {
	return Tuning{
		TickInterval:    Duration(800 * time.Millisecond),
		TicksPerDay:     12,
		PlanningDays:    1,
		SprintDays:      5,
		MaxCatchUpTicks: 10,

		WIPPenaltyPerExcess: 0.15,
		WIPFloor:            0.40,
		MomentumMultiplier:  1.20,
		MomentumTicks:       6,

		BlockerChance:     0.04,
		MaxActiveBlockers: 2,

		StoryCountMin:  4,
		StoryCountMax:  8,
		StoryPointsMin: 3,
		StoryPointsMax: 13,
		SprintsMin:     2,
		SprintsMax:     4,
		PayoutMin:      800,
		PayoutMax:      2400,

		CurveExponent:    1.3,
		PerfectBonusFrac: 0.15,
		EarlyBonusPerDay: 0.05,
	}
}

// Load reads a tuning file over the defaults. Fields absent from the file
// keep their default values.
func Load(path string) (Tuning, error) {
	t := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate rejects values the simulation cannot run with.
func (t Tuning) Validate() error {
	if t.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", t.TickInterval.Std())
	}
	if t.TicksPerDay <= 0 {
		return fmt.Errorf("ticks_per_day must be positive, got %d", t.TicksPerDay)
	}
	if t.SprintDays <= 0 {
		return fmt.Errorf("sprint_days must be positive, got %d", t.SprintDays)
	}
	if t.WIPFloor <= 0 || t.WIPFloor > 1 {
		return fmt.Errorf("wip_floor must be in (0, 1], got %v", t.WIPFloor)
	}
	if t.MaxActiveBlockers < 0 {
		return fmt.Errorf("max_active_blockers must not be negative, got %d", t.MaxActiveBlockers)
	}
	if t.CurveExponent < 1 {
		return fmt.Errorf("curve_exponent must be >= 1, got %v", t.CurveExponent)
	}
	return nil
}
