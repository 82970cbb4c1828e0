package gamepad

// Snapshot is one read of a device's axes and buttons. Sources must build a
// new one on every call; some platforms stop updating a retained handle.
type Snapshot struct {
	Axes    []float64
	Buttons []bool
}

// Source reads the current state of a device.
type Source interface {
	// Snapshot returns false when the device cannot be read this frame.
	Snapshot(device int) (Snapshot, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(device int) (Snapshot, bool)

func (f SourceFunc) Snapshot(device int) (Snapshot, bool) {
	return f(device)
}

// Pressed reports whether button idx is held; out of range reads as released.
func (s Snapshot) Pressed(idx int) bool {
	if idx < 0 || idx >= len(s.Buttons) {
		return false
	}
	return s.Buttons[idx]
}

// Axis returns axis idx, or 0 when out of range.
func (s Snapshot) Axis(idx int) float64 {
	if idx < 0 || idx >= len(s.Axes) {
		return 0
	}
	return s.Axes[idx]
}

// Stick is one analog axis pair.
type Stick struct {
	X, Y float64
}
