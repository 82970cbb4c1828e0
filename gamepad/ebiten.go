package gamepad

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EbitenSource reads controllers through ebiten. Pads with a standard layout
// are read in standard order so the default bindings line up; others are
// read raw.
type EbitenSource struct{}

func NewEbitenSource() *EbitenSource {
	return &EbitenSource{}
}

func (s *EbitenSource) Snapshot(device int) (Snapshot, bool) {
	id := ebiten.GamepadID(device)

	if ebiten.IsStandardGamepadLayoutAvailable(id) {
		snap := Snapshot{
			Axes:    make([]float64, ebiten.StandardGamepadAxisMax+1),
			Buttons: make([]bool, ebiten.StandardGamepadButtonMax+1),
		}
		for a := range snap.Axes {
			snap.Axes[a] = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxis(a))
		}
		for b := range snap.Buttons {
			snap.Buttons[b] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButton(b))
		}
		return snap, true
	}

	axes := ebiten.GamepadAxisCount(id)
	buttons := ebiten.GamepadButtonCount(id)
	if axes == 0 && buttons == 0 {
		return Snapshot{}, false
	}
	snap := Snapshot{
		Axes:    make([]float64, axes),
		Buttons: make([]bool, buttons),
	}
	for a := range snap.Axes {
		snap.Axes[a] = ebiten.GamepadAxisValue(id, ebiten.GamepadAxisType(a))
	}
	for b := range snap.Buttons {
		snap.Buttons[b] = ebiten.IsGamepadButtonPressed(id, ebiten.GamepadButton(b))
	}
	return snap, true
}

// DeviceWatcher turns ebiten's per-frame gamepad bookkeeping into attach and
// detach events. Call Update once per frame before polling.
type DeviceWatcher struct {
	logger  zerolog.Logger
	idsBuf  []ebiten.GamepadID
	devices map[ebiten.GamepadID]DeviceEvent
}

func NewDeviceWatcher() *DeviceWatcher {
	return &DeviceWatcher{
		logger:  log.Logger,
		devices: map[ebiten.GamepadID]DeviceEvent{},
	}
}

func (w *DeviceWatcher) SetLogger(logger zerolog.Logger) {
	w.logger = logger
}

// Update reports controllers that appeared or vanished since the last frame.
func (w *DeviceWatcher) Update(attach, detach func(DeviceEvent)) {
	if w.devices == nil {
		w.devices = map[ebiten.GamepadID]DeviceEvent{}
	}

	w.idsBuf = inpututil.AppendJustConnectedGamepadIDs(w.idsBuf[:0])
	for _, id := range w.idsBuf {
		ev := DeviceEvent{Index: int(id), ID: deviceName(id)}
		w.logger.Debug().Int("index", ev.Index).Str("sdl_id", ebiten.GamepadSDLID(id)).Msg("gamepad appeared")
		w.devices[id] = ev
		if attach != nil {
			attach(ev)
		}
	}

	for id, ev := range w.devices {
		if !inpututil.IsGamepadJustDisconnected(id) {
			continue
		}
		delete(w.devices, id)
		if detach != nil {
			detach(ev)
		}
	}
}

func deviceName(id ebiten.GamepadID) string {
	name := ebiten.GamepadName(id)
	if name == "" {
		return fmt.Sprintf("gamepad-%d", id)
	}
	return name
}
