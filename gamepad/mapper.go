package gamepad

import (
	"errors"
	"fmt"
	"math"

	"github.com/milk9111/gamepadmode/common"
	"github.com/milk9111/gamepadmode/frame"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNilSource = errors.New("gamepad: source is nil")
	ErrNilHost   = errors.New("gamepad: host is nil")
)

// accelScale turns the stored acceleration into a fraction of the velocity.
const accelScale = 10

const waitForStartTask = "gamepad.wait_for_start"

// Mapper turns controller snapshots into game input. It is not safe for
// concurrent use; call it from the frame loop only.
type Mapper struct {
	source Source
	host   Host
	sched  *frame.Scheduler
	status StatusIndicator
	logger zerolog.Logger

	cfg Config

	// devices in attach order; the first one is read.
	devices   []DeviceEvent
	connected bool

	accel float64

	// armed while the button is released
	prevArmed bool
	nextArmed bool

	waitTask frame.TaskID
}

func NewMapper(source Source, host Host, sched *frame.Scheduler, cfg Config) (*Mapper, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if host == nil {
		return nil, ErrNilHost
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gamepad: new mapper: %w", err)
	}

	return &Mapper{
		source:    source,
		host:      host,
		sched:     sched,
		logger:    log.Logger,
		cfg:       copyConfig(cfg),
		prevArmed: true,
		nextArmed: true,
	}, nil
}

func (m *Mapper) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// SetStatus attaches the presence indicator and shows the current state.
func (m *Mapper) SetStatus(status StatusIndicator) {
	m.status = status
	m.updateStatus()
}

// Configure swaps bindings and tuning. An invalid config leaves the mapper
// unchanged.
func (m *Mapper) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("gamepad: configure: %w", err)
	}
	m.cfg = copyConfig(cfg)
	m.accel = common.Clamp(m.accel, 0, m.cfg.Tuning.MaxSpeed)
	m.logger.Debug().Stringer("buttons", m.cfg.Buttons).Bool("pointer_acceleration", m.cfg.PointerAcceleration).Msg("gamepad config applied")
	return nil
}

func (m *Mapper) Config() Config {
	return copyConfig(m.cfg)
}

func (m *Mapper) SetPointerAcceleration(enabled bool) {
	m.cfg.PointerAcceleration = enabled
}

func (m *Mapper) PointerAcceleration() bool {
	return m.cfg.PointerAcceleration
}

// Acceleration returns the current aim speed multiplier.
func (m *Mapper) Acceleration() float64 {
	return m.accel
}

func (m *Mapper) Connected() bool {
	return m.connected
}

// Device returns the controller whose input is used.
func (m *Mapper) Device() (DeviceEvent, bool) {
	if len(m.devices) == 0 {
		return DeviceEvent{}, false
	}
	return m.devices[0], true
}

// WaitingForStart reports whether the pre-start loop is registered.
func (m *Mapper) WaitingForStart() bool {
	return m.sched.Active(m.waitTask)
}

// Attach handles a controller being plugged in.
func (m *Mapper) Attach(ev DeviceEvent) {
	if m.indexOf(ev.Index) >= 0 {
		m.logger.Debug().Int("index", ev.Index).Str("id", ev.ID).Msg("controller already attached")
		return
	}
	if m.connected {
		m.logger.Warn().
			Int("index", ev.Index).
			Int("active_index", m.devices[0].Index).
			Msg("two or more controllers were connected; only the first one is used")
	}
	m.logger.Info().Int("index", ev.Index).Str("id", ev.ID).Msg("controller connected")

	m.devices = append(m.devices, ev)
	m.connected = true
	m.updateStatus()

	if m.host.OnTitlePage() {
		m.armWaitForStart()
	}
}

// Detach handles a controller being unplugged.
func (m *Mapper) Detach(ev DeviceEvent) {
	m.logger.Info().Int("index", ev.Index).Str("id", ev.ID).Msg("controller disconnected")

	if i := m.indexOf(ev.Index); i >= 0 {
		m.devices = append(m.devices[:i], m.devices[i+1:]...)
	}
	m.connected = len(m.devices) > 0
	m.updateStatus()
}

// PollFrame maps the current controller state into the host's input. It is a
// no-op while no controller is attached or the controller cannot be read.
func (m *Mapper) PollFrame() {
	if !m.connected {
		return
	}
	snap, ok := m.snapshot()
	if !ok {
		return
	}

	axes := m.cfg.Axes
	move := Stick{X: snap.Axis(axes[AxisMoveX]), Y: snap.Axis(axes[AxisMoveY])}
	aim := Stick{X: snap.Axis(axes[AxisAimX]), Y: snap.Axis(axes[AxisAimY])}

	m.aim(aim)
	m.move(move, snap)
	m.act(snap)
}

func (m *Mapper) armWaitForStart() {
	if m.sched == nil || m.sched.Active(m.waitTask) {
		return
	}
	m.waitTask = m.sched.While(waitForStartTask, m.waitForStart, m.keepWaiting, func() {
		m.waitTask = 0
	})
}

func (m *Mapper) waitForStart() {
	snap, ok := m.snapshot()
	if !ok {
		return
	}
	if snap.Pressed(m.cfg.Buttons[RoleStart]) {
		m.logger.Info().Msg("start pressed on controller")
		m.host.StartGame()
	}
}

func (m *Mapper) keepWaiting() bool {
	return m.connected && m.host.OnTitlePage()
}

func (m *Mapper) move(move Stick, snap Snapshot) {
	in := m.host.Input()
	if in == nil {
		return
	}

	threshold := m.cfg.Tuning.MoveThreshold
	switch {
	case move.X > threshold:
		in.Right, in.Left = true, false
	case move.X < -threshold:
		in.Left, in.Right = true, false
	default:
		in.Left, in.Right = false, false
	}

	in.Down = snap.Pressed(m.cfg.Buttons[RoleSneak])
	in.Up = snap.Pressed(m.cfg.Buttons[RoleJump])
}

func (m *Mapper) aim(aim Stick) {
	t := m.cfg.Tuning
	assist := m.cfg.PointerAcceleration

	if assist && math.Abs(aim.X) < t.AimThreshold && math.Abs(aim.Y) < t.AimThreshold {
		m.accel = 0
		return
	}
	if assist {
		m.accel = math.Min(m.accel+t.AccelStep, t.MaxSpeed)
	}

	cursor := m.host.Cursor()
	if cursor == nil {
		return
	}
	factor := t.Velocity * m.accel / accelScale
	width, height := m.host.Viewport()
	cursor.X = common.Clamp(cursor.X+aim.X*factor, 0, width)
	cursor.Y = common.Clamp(cursor.Y+aim.Y*factor, 0, height)
}

func (m *Mapper) act(snap Snapshot) {
	in := m.host.Input()
	b := m.cfg.Buttons
	if in != nil {
		in.Field = snap.Pressed(b[RoleField]) || snap.Pressed(b[RoleFieldAlt])
		in.Fire = snap.Pressed(b[RoleFire]) || snap.Pressed(b[RoleFireAlt])
	}

	if snap.Pressed(b[RolePreviousWeapon]) {
		if m.prevArmed {
			m.host.PreviousGun()
			m.prevArmed = false
		}
	} else {
		m.prevArmed = true
	}

	if snap.Pressed(b[RoleNextWeapon]) {
		if m.nextArmed {
			m.host.NextGun()
			m.nextArmed = false
		}
	} else {
		m.nextArmed = true
	}
}

func (m *Mapper) snapshot() (Snapshot, bool) {
	dev, ok := m.Device()
	if !m.connected || !ok {
		return Snapshot{}, false
	}
	snap, ok := m.source.Snapshot(dev.Index)
	if !ok {
		m.logger.Debug().Int("index", dev.Index).Msg("controller not readable this frame")
		return Snapshot{}, false
	}
	if len(snap.Axes) < m.cfg.Axes.minAxes() || len(snap.Buttons) < m.cfg.Buttons.minButtons() {
		m.logger.Debug().
			Int("index", dev.Index).
			Int("axes", len(snap.Axes)).
			Int("buttons", len(snap.Buttons)).
			Msg("controller snapshot too short, skipping frame")
		return Snapshot{}, false
	}
	for _, axis := range Axes {
		if v := snap.Axes[m.cfg.Axes[axis]]; math.IsNaN(v) || math.IsInf(v, 0) {
			m.logger.Debug().
				Int("index", dev.Index).
				Str("axis", string(axis)).
				Float64("value", v).
				Msg("controller axis not finite, skipping frame")
			return Snapshot{}, false
		}
	}
	return snap, true
}

func (m *Mapper) updateStatus() {
	if m.status == nil {
		return
	}
	if m.connected {
		m.status.SetStatus(ConnectedMessage)
	} else {
		m.status.SetStatus(DisconnectedMessage)
	}
}

func (m *Mapper) indexOf(index int) int {
	for i, d := range m.devices {
		if d.Index == index {
			return i
		}
	}
	return -1
}

func copyConfig(cfg Config) Config {
	cfg.Buttons = cfg.Buttons.clone()
	cfg.Axes = cfg.Axes.clone()
	return cfg
}
