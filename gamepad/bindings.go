package gamepad

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrMissingBinding = errors.New("gamepad: missing binding")
	ErrInvalidBinding = errors.New("gamepad: invalid binding")
	ErrInvalidTuning  = errors.New("gamepad: invalid tuning")
)

// Role names what a button does in the game.
type Role string

const (
	RoleStart          Role = "start"
	RoleSneak          Role = "sneak"
	RoleFieldAlt       Role = "field_alt"
	RoleJump           Role = "jump"
	RoleFireAlt        Role = "fire_alt"
	RolePreviousWeapon Role = "previous_weapon"
	RoleNextWeapon     Role = "next_weapon"
	RoleField          Role = "field"
	RoleFire           Role = "fire"
)

// Roles lists every role a config must bind.
var Roles = []Role{
	RoleStart,
	RoleSneak,
	RoleFieldAlt,
	RoleJump,
	RoleFireAlt,
	RolePreviousWeapon,
	RoleNextWeapon,
	RoleField,
	RoleFire,
}

// Axis names one component of an analog stick.
type Axis string

const (
	AxisMoveX Axis = "move_x"
	AxisMoveY Axis = "move_y"
	AxisAimX  Axis = "aim_x"
	AxisAimY  Axis = "aim_y"
)

var Axes = []Axis{AxisMoveX, AxisMoveY, AxisAimX, AxisAimY}

// maxIndex bounds button and axis indices; no real pad reports more.
const maxIndex = 64

// Bindings maps a role to a hardware button index. Several roles may share
// an index (start and sneak are the same button on a standard pad).
type Bindings map[Role]int

// AxisBindings maps a stick component to a hardware axis index.
type AxisBindings map[Axis]int

// Tuning holds the thresholds and speeds of the mapping curves.
type Tuning struct {
	MoveThreshold float64
	AimThreshold  float64
	Velocity      float64
	MaxSpeed      float64
	AccelStep     float64
}

// Config is everything a Mapper needs besides its collaborators.
type Config struct {
	Buttons             Bindings
	Axes                AxisBindings
	Tuning              Tuning
	PointerAcceleration bool
}

// DefaultBindings is the standard-layout pad: bottom face button starts and
// sneaks, shoulders switch weapons, triggers use the field and fire.
// The left shoulder (4) steps back a weapon and the right shoulder (5) forward.
func DefaultBindings() Bindings {
	return Bindings{
		RoleStart:          0,
		RoleSneak:          0,
		RoleFieldAlt:       1,
		RoleJump:           2,
		RoleFireAlt:        3,
		RolePreviousWeapon: 4,
		RoleNextWeapon:     5,
		RoleField:          6,
		RoleFire:           7,
	}
}

func DefaultAxisBindings() AxisBindings {
	return AxisBindings{
		AxisMoveX: 0,
		AxisMoveY: 1,
		AxisAimX:  2,
		AxisAimY:  3,
	}
}

func DefaultTuning() Tuning {
	return Tuning{
		MoveThreshold: 0.5,
		AimThreshold:  0.1,
		Velocity:      15,
		MaxSpeed:      10,
		AccelStep:     1,
	}
}

func DefaultConfig() Config {
	return Config{
		Buttons:             DefaultBindings(),
		Axes:                DefaultAxisBindings(),
		Tuning:              DefaultTuning(),
		PointerAcceleration: true,
	}
}

// Validate checks that every role and axis is bound to a usable index.
func (b Bindings) Validate() error {
	for _, role := range Roles {
		idx, ok := b[role]
		if !ok {
			return fmt.Errorf("%w: button %q", ErrMissingBinding, role)
		}
		if idx < 0 || idx >= maxIndex {
			return fmt.Errorf("%w: button %q index %d", ErrInvalidBinding, role, idx)
		}
	}
	for role := range b {
		if !knownRole(role) {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidBinding, role)
		}
	}
	return nil
}

func (a AxisBindings) Validate() error {
	for _, axis := range Axes {
		idx, ok := a[axis]
		if !ok {
			return fmt.Errorf("%w: axis %q", ErrMissingBinding, axis)
		}
		if idx < 0 || idx >= maxIndex {
			return fmt.Errorf("%w: axis %q index %d", ErrInvalidBinding, axis, idx)
		}
	}
	for axis := range a {
		if !knownAxis(axis) {
			return fmt.Errorf("%w: unknown axis %q", ErrInvalidBinding, axis)
		}
	}
	return nil
}

func (t Tuning) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"move threshold", t.MoveThreshold},
		{"aim threshold", t.AimThreshold},
		{"velocity", t.Velocity},
		{"max speed", t.MaxSpeed},
		{"accel step", t.AccelStep},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s %v is not finite", ErrInvalidTuning, f.name, f.v)
		}
	}

	switch {
	case t.MoveThreshold < 0 || t.MoveThreshold >= 1:
		return fmt.Errorf("%w: move threshold %v outside [0,1)", ErrInvalidTuning, t.MoveThreshold)
	case t.AimThreshold < 0 || t.AimThreshold >= 1:
		return fmt.Errorf("%w: aim threshold %v outside [0,1)", ErrInvalidTuning, t.AimThreshold)
	case t.Velocity < 0:
		return fmt.Errorf("%w: negative velocity %v", ErrInvalidTuning, t.Velocity)
	case t.MaxSpeed <= 0:
		return fmt.Errorf("%w: max speed %v must be positive", ErrInvalidTuning, t.MaxSpeed)
	case t.AccelStep <= 0:
		return fmt.Errorf("%w: accel step %v must be positive", ErrInvalidTuning, t.AccelStep)
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Buttons.Validate(); err != nil {
		return err
	}
	if err := c.Axes.Validate(); err != nil {
		return err
	}
	return c.Tuning.Validate()
}

// minButtons is the shortest button list a snapshot may carry.
func (b Bindings) minButtons() int {
	n := 0
	for _, idx := range b {
		if idx+1 > n {
			n = idx + 1
		}
	}
	return n
}

func (a AxisBindings) minAxes() int {
	n := 0
	for _, idx := range a {
		if idx+1 > n {
			n = idx + 1
		}
	}
	return n
}

// String renders the bindings in a stable order for logs.
func (b Bindings) String() string {
	roles := make([]string, 0, len(b))
	for role := range b {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for i, role := range roles {
		roles[i] = fmt.Sprintf("%s=%d", role, b[Role(role)])
	}
	return strings.Join(roles, " ")
}

func (b Bindings) clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (a AxisBindings) clone() AxisBindings {
	out := make(AxisBindings, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func knownRole(role Role) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

func knownAxis(axis Axis) bool {
	for _, a := range Axes {
		if a == axis {
			return true
		}
	}
	return false
}
