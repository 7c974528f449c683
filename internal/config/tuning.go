package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TimeoutModeMax = "max" // max(floor, per_step*remaining)
	TimeoutModeSum = "sum" // floor + per_step*remaining

	ReplanToGoal     = "goal"
	ReplanToWaypoint = "waypoint"
)

// Tuning gathers every control constant of the navigation stack. Values not
// present in a tuning file keep their defaults.
type Tuning struct {
	HorizontalTolerance float64 `yaml:"horizontal_tolerance"`
	VerticalTolerance   float64 `yaml:"vertical_tolerance"`
	HorizontalSpeedCap  float64 `yaml:"horizontal_speed_cap"`
	VerticalSpeedCap    float64 `yaml:"vertical_speed_cap"`

	PollInterval       time.Duration `yaml:"poll_interval"`
	PhaseTimeout       time.Duration `yaml:"phase_timeout"`
	ConvergenceTimeout time.Duration `yaml:"convergence_timeout"`

	GlobalTimeoutFloor   time.Duration `yaml:"global_timeout_floor"`
	GlobalTimeoutPerStep time.Duration `yaml:"global_timeout_per_step"`
	GlobalTimeoutMode    string        `yaml:"global_timeout_mode"`
	ReplanTarget         string        `yaml:"replan_target"`

	BreakTimeout time.Duration `yaml:"break_timeout"`
	PlaceTimeout time.Duration `yaml:"place_timeout"`
	PathTimeout  time.Duration `yaml:"path_timeout"`

	EyeHeight          float64 `yaml:"eye_height"`
	FloorMaterial      string  `yaml:"floor_material"`
	ClearHeadroom2     bool    `yaml:"clear_headroom_2"`
	PureAscentShortcut bool    `yaml:"pure_ascent_shortcut"`

	StatusBackoff Backoff `yaml:"status_backoff"`

	SearchRadius int `yaml:"search_radius"`
	PathRadius   int `yaml:"path_radius"`
	ReplanRadius int `yaml:"replan_radius"`
	MaxTries     int `yaml:"max_tries"`
	WanderRange  int `yaml:"wander_range"`
}

// Backoff stretches the wait between block status polls while a break or
// place has not shown up yet.
type Backoff struct {
	Initial    time.Duration `yaml:"initial"`
	Multiplier float64       `yaml:"multiplier"`
	Max        time.Duration `yaml:"max"`
}

func DefaultTuning() Tuning {
	return Tuning{
		HorizontalTolerance: 0.01,
		VerticalTolerance:   0.01,
		HorizontalSpeedCap:  0.2,
		VerticalSpeedCap:    1.0,

		PollInterval:       50 * time.Millisecond,
		PhaseTimeout:       5 * time.Second,
		ConvergenceTimeout: 10 * time.Second,

		GlobalTimeoutFloor:   15 * time.Second,
		GlobalTimeoutPerStep: 200 * time.Second,
		GlobalTimeoutMode:    TimeoutModeMax,
		ReplanTarget:         ReplanToGoal,

		BreakTimeout: 10 * time.Second,
		PlaceTimeout: 1 * time.Second,
		PathTimeout:  5 * time.Second,

		EyeHeight:          1.62,
		FloorMaterial:      "minecraft:dirt",
		ClearHeadroom2:     true,
		PureAscentShortcut: true,

		StatusBackoff: Backoff{
			Initial:    50 * time.Millisecond,
			Multiplier: 1.5,
			Max:        250 * time.Millisecond,
		},

		SearchRadius: 128,
		PathRadius:   256,
		ReplanRadius: 128,
		MaxTries:     10,
		WanderRange:  20,
	}
}

// LoadTuning reads a YAML tuning file on top of DefaultTuning. An empty path
// returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("tuning load failed (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning parse failed (%s): %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning invalid (%s): %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.HorizontalTolerance <= 0 || t.VerticalTolerance <= 0 {
		return fmt.Errorf("tolerances must be positive")
	}
	if t.HorizontalSpeedCap <= 0 || t.VerticalSpeedCap <= 0 {
		return fmt.Errorf("speed caps must be positive")
	}
	if t.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"phase_timeout":       t.PhaseTimeout,
		"convergence_timeout": t.ConvergenceTimeout,
		"break_timeout":       t.BreakTimeout,
		"place_timeout":       t.PlaceTimeout,
		"path_timeout":        t.PathTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if t.GlobalTimeoutFloor <= 0 || t.GlobalTimeoutPerStep < 0 {
		return fmt.Errorf("global timeout floor must be positive and per-step allowance not negative")
	}
	switch t.GlobalTimeoutMode {
	case TimeoutModeMax, TimeoutModeSum:
	default:
		return fmt.Errorf("unknown global_timeout_mode %q", t.GlobalTimeoutMode)
	}
	switch t.ReplanTarget {
	case ReplanToGoal, ReplanToWaypoint:
	default:
		return fmt.Errorf("unknown replan_target %q", t.ReplanTarget)
	}
	if strings.TrimSpace(t.FloorMaterial) == "" {
		return fmt.Errorf("floor_material is required")
	}
	if t.MaxTries <= 0 {
		return fmt.Errorf("max_tries must be positive")
	}
	return nil
}

// GlobalTimeout is the Goto budget for a route with remaining steps left.
// It never shrinks as remaining grows.
func (t Tuning) GlobalTimeout(remaining int) time.Duration {
	if remaining < 0 {
		remaining = 0
	}
	perStep := t.GlobalTimeoutPerStep * time.Duration(remaining)
	if t.GlobalTimeoutMode == TimeoutModeSum {
		return t.GlobalTimeoutFloor + perStep
	}
	return max(t.GlobalTimeoutFloor, perStep)
}
