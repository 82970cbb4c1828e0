package gamepad

import (
	"errors"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrScriptOutput = errors.New("gamepad: script output")

// ScriptSource is a synthetic controller driven by a tengo script. The script
// runs once per snapshot with `frame` (ticks so far) and `device` set, and
// must leave its state in the globals `axes` (numbers) and `buttons`
// (bools or ints).
type ScriptSource struct {
	name     string
	compiled *tengo.Compiled
	frame    int
	logger   zerolog.Logger
}

func NewScriptSource(name string, src []byte) (*ScriptSource, error) {
	script := tengo.NewScript(src)
	_ = script.Add("frame", 0)
	_ = script.Add("device", 0)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("gamepad: compile script %s: %w", name, err)
	}
	return &ScriptSource{name: name, compiled: compiled, logger: log.Logger}, nil
}

func (s *ScriptSource) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

func (s *ScriptSource) Name() string {
	return s.name
}

// Snapshot runs the script and returns false when it fails or its output is
// unusable.
func (s *ScriptSource) Snapshot(device int) (Snapshot, bool) {
	snap, err := s.Run(device)
	if err != nil {
		s.logger.Error().Err(err).Str("script", s.name).Int("frame", s.frame-1).Msg("scripted controller failed")
		return Snapshot{}, false
	}
	return snap, true
}

// Run advances the script by one frame.
func (s *ScriptSource) Run(device int) (Snapshot, error) {
	if s == nil || s.compiled == nil {
		return Snapshot{}, fmt.Errorf("nil script source")
	}
	frame := s.frame
	s.frame++

	if err := s.compiled.Set("frame", frame); err != nil {
		return Snapshot{}, err
	}
	if err := s.compiled.Set("device", device); err != nil {
		return Snapshot{}, err
	}
	if err := s.compiled.Run(); err != nil {
		return Snapshot{}, fmt.Errorf("gamepad: run script %s: %w", s.name, err)
	}

	axes, err := s.floats("axes")
	if err != nil {
		return Snapshot{}, err
	}
	buttons, err := s.bools("buttons")
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Axes: axes, Buttons: buttons}, nil
}

func (s *ScriptSource) floats(name string) ([]float64, error) {
	if !s.compiled.IsDefined(name) {
		return nil, fmt.Errorf("%w: %s undefined", ErrScriptOutput, name)
	}
	values := s.compiled.Get(name).Array()
	if values == nil {
		return nil, fmt.Errorf("%w: %s is not an array", ErrScriptOutput, name)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case float64:
			out[i] = n
		case int64:
			out[i] = float64(n)
		default:
			return nil, fmt.Errorf("%w: %s[%d] is %T", ErrScriptOutput, name, i, v)
		}
	}
	return out, nil
}

func (s *ScriptSource) bools(name string) ([]bool, error) {
	if !s.compiled.IsDefined(name) {
		return nil, fmt.Errorf("%w: %s undefined", ErrScriptOutput, name)
	}
	values := s.compiled.Get(name).Array()
	if values == nil {
		return nil, fmt.Errorf("%w: %s is not an array", ErrScriptOutput, name)
	}
	out := make([]bool, len(values))
	for i, v := range values {
		switch b := v.(type) {
		case bool:
			out[i] = b
		case int64:
			out[i] = b != 0
		default:
			return nil, fmt.Errorf("%w: %s[%d] is %T", ErrScriptOutput, name, i, v)
		}
	}
	return out, nil
}

// Reload recompiles the script in place. The frame counter keeps running so a
// reload mid-game does not replay the start sequence. On error the previous
// script stays active.
func (s *ScriptSource) Reload(src []byte) error {
	next, err := NewScriptSource(s.name, src)
	if err != nil {
		return err
	}
	s.compiled = next.compiled
	return nil
}
