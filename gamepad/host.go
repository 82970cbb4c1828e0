package gamepad

// Input is the digital input record the game reads each frame.
type Input struct {
	Left  bool
	Right bool
	Up    bool
	Down  bool
	Field bool
	Fire  bool
}

// Cursor is the aim cursor in viewport coordinates.
type Cursor struct {
	X, Y float64
}

// Host is the part of the game the mapper drives.
type Host interface {
	StartGame()
	PreviousGun()
	NextGun()
	OnTitlePage() bool
	Input() *Input
	Cursor() *Cursor
	// Viewport returns the extents the cursor is clamped to.
	Viewport() (width, height float64)
}

// StatusIndicator shows whether a controller is present.
type StatusIndicator interface {
	SetStatus(text string)
}

const (
	DisconnectedMessage = "No gamepad was detected!\nIf you wish to connect a gamepad, pair it with your computer and press any key."
	ConnectedMessage    = "Gamepad connected!"
)

// DeviceEvent describes an attached or detached controller.
type DeviceEvent struct {
	Index int
	ID    string
}
