package config

import (
	"fmt"

	"github.com/milk9111/gamepadmode/gamepad"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the mapper config loaded when none is named.
const DefaultFile = "gamepad.yaml"

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("config: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("config: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// MapperSpec is the yaml form of a gamepad.Config. Anything left out falls
// back to the defaults.
type MapperSpec struct {
	Name                string         `yaml:"name"`
	PointerAcceleration *bool          `yaml:"pointer_acceleration"`
	Buttons             map[string]int `yaml:"buttons"`
	Axes                map[string]int `yaml:"axes"`
	Tuning              TuningSpec     `yaml:"tuning"`
	Script              string         `yaml:"script"`
}

type TuningSpec struct {
	MoveThreshold *float64 `yaml:"move_threshold"`
	AimThreshold  *float64 `yaml:"aim_threshold"`
	Velocity      *float64 `yaml:"velocity"`
	MaxSpeed      *float64 `yaml:"max_speed"`
	AccelStep     *float64 `yaml:"accel_step"`
}

func LoadMapperSpec(name string) (*MapperSpec, error) {
	if name == "" {
		name = DefaultFile
	}
	spec, err := LoadSpec[MapperSpec](name)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func ParseMapperSpec(data []byte) (*MapperSpec, error) {
	var spec MapperSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("config: unmarshal mapper spec: %w", err)
	}
	return &spec, nil
}

// GamepadConfig merges the spec over the defaults and validates the result.
func (s *MapperSpec) GamepadConfig() (gamepad.Config, error) {
	cfg := gamepad.DefaultConfig()
	if s == nil {
		return cfg, nil
	}

	if s.PointerAcceleration != nil {
		cfg.PointerAcceleration = *s.PointerAcceleration
	}
	for role, idx := range s.Buttons {
		cfg.Buttons[gamepad.Role(role)] = idx
	}
	for axis, idx := range s.Axes {
		cfg.Axes[gamepad.Axis(axis)] = idx
	}

	t := s.Tuning
	setFloat(&cfg.Tuning.MoveThreshold, t.MoveThreshold)
	setFloat(&cfg.Tuning.AimThreshold, t.AimThreshold)
	setFloat(&cfg.Tuning.Velocity, t.Velocity)
	setFloat(&cfg.Tuning.MaxSpeed, t.MaxSpeed)
	setFloat(&cfg.Tuning.AccelStep, t.AccelStep)

	if err := cfg.Validate(); err != nil {
		name := s.Name
		if name == "" {
			name = "mapper spec"
		}
		return gamepad.Config{}, fmt.Errorf("config: %s: %w", name, err)
	}
	return cfg, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
