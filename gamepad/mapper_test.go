package gamepad

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/milk9111/gamepadmode/frame"
	"github.com/rs/zerolog"
)

type fakeHost struct {
	onTitle  bool
	started  int
	prevGuns int
	nextGuns int
	input    Input
	cursor   Cursor
	width    float64
	height   float64
}

func newFakeHost() *fakeHost {
	return &fakeHost{width: 1280, height: 720, cursor: Cursor{X: 640, Y: 360}}
}

func (h *fakeHost) StartGame() {
	h.started++
	h.onTitle = false
}
func (h *fakeHost) PreviousGun() { h.prevGuns++ }
func (h *fakeHost) NextGun() { h.nextGuns++ }
func (h *fakeHost) OnTitlePage() bool { return h.onTitle }
func (h *fakeHost) Input() *Input { return &h.input }
func (h *fakeHost) Cursor() *Cursor { return &h.cursor }
func (h *fakeHost) Viewport() (float64, float64) { return h.width, h.height }

type fakeStatus struct {
	texts []string
}

func (s *fakeStatus) SetStatus(text string) { s.texts = append(s.texts, text) }

func (s *fakeStatus) last() string {
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

// fakePad is a controller the test moves by hand.
type fakePad struct {
	axes    []float64
	buttons []bool
	reads   []int
}

func newFakePad() *fakePad {
	return &fakePad{axes: make([]float64, 4), buttons: make([]bool, 8)}
}

func (p *fakePad) Snapshot(device int) (Snapshot, bool) {
	p.reads = append(p.reads, device)
	return Snapshot{
		Axes:    append([]float64(nil), p.axes...),
		Buttons: append([]bool(nil), p.buttons...),
	}, true
}

func (p *fakePad) move(x, y float64) { p.axes[0], p.axes[1] = x, y }
func (p *fakePad) aim(x, y float64) { p.axes[2], p.axes[3] = x, y }

func newTestMapper(t *testing.T, pad Source, host *fakeHost, sched *frame.Scheduler) *Mapper {
	t.Helper()
	m, err := NewMapper(pad, host, sched, DefaultConfig())
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	m.SetLogger(zerolog.Nop())
	return m
}

func attached(t *testing.T) (*Mapper, *fakePad, *fakeHost) {
	t.Helper()
	pad := newFakePad()
	host := newFakeHost()
	m := newTestMapper(t, pad, host, frame.NewScheduler())
	m.Attach(DeviceEvent{Index: 0, ID: "pad"})
	return m, pad, host
}

func TestNewMapperRejectsBadInput(t *testing.T) {
	if _, err := NewMapper(nil, newFakeHost(), nil, DefaultConfig()); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewMapper(newFakePad(), nil, nil, DefaultConfig()); err != ErrNilHost {
		t.Fatalf("expected ErrNilHost, got %v", err)
	}
	cfg := DefaultConfig()
	delete(cfg.Buttons, RoleFire)
	if _, err := NewMapper(newFakePad(), newFakeHost(), nil, cfg); err == nil {
		t.Fatalf("expected error for missing fire binding")
	}
}

func TestHorizontalMovement(t *testing.T) {
	cases := []struct {
		name        string
		x           float64
		left, right bool
	}{
		{"center", 0, false, false},
		{"small_right", 0.3, false, false},
		{"edge_right", 0.5, false, false},
		{"right", 0.51, false, true},
		{"full_right", 0.99, false, true},
		{"small_left", -0.4, false, false},
		{"edge_left", -0.5, false, false},
		{"left", -0.6, true, false},
		{"full_left", -0.99, true, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, pad, host := attached(t)
			// stale values must be overwritten
			host.input.Left, host.input.Right = !c.left, !c.right

			pad.move(c.x, 0)
			m.PollFrame()

			if host.input.Left != c.left || host.input.Right != c.right {
				t.Fatalf("x=%v: left=%v right=%v, want left=%v right=%v", c.x, host.input.Left, host.input.Right, c.left, c.right)
			}
		})
	}
}

func TestButtonPassthrough(t *testing.T) {
	cases := []struct {
		name    string
		pressed []int
		want    Input
	}{
		{"none", nil, Input{}},
		{"sneak", []int{0}, Input{Down: true}},
		{"jump", []int{2}, Input{Up: true}},
		{"field", []int{6}, Input{Field: true}},
		{"field_alt", []int{1}, Input{Field: true}},
		{"fire", []int{7}, Input{Fire: true}},
		{"fire_alt", []int{3}, Input{Fire: true}},
		{"both_fire", []int{3, 7}, Input{Fire: true}},
		{"everything", []int{0, 1, 2, 3, 6, 7}, Input{Up: true, Down: true, Field: true, Fire: true}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, pad, host := attached(t)
			for _, b := range c.pressed {
				pad.buttons[b] = true
			}
			m.PollFrame()
			if host.input != c.want {
				t.Fatalf("input = %+v, want %+v", host.input, c.want)
			}
		})
	}
}

func TestAimFirstFrame(t *testing.T) {
	m, pad, host := attached(t)
	startX, startY := host.cursor.X, host.cursor.Y

	pad.move(0.9, 0)
	pad.aim(0.9, 0)
	m.PollFrame()

	if !host.input.Right {
		t.Fatalf("expected right")
	}
	if m.Acceleration() != 1 {
		t.Fatalf("accel = %v, want 1", m.Acceleration())
	}
	wantX := startX + 15*1.0/10*0.9
	if math.Abs(host.cursor.X-wantX) > 1e-9 {
		t.Fatalf("cursor x = %v, want %v", host.cursor.X, wantX)
	}
	if host.cursor.Y != startY {
		t.Fatalf("cursor y moved: %v", host.cursor.Y)
	}
}

func TestAccelerationBounded(t *testing.T) {
	m, pad, _ := attached(t)

	// alternate long pushes and rests, checking the bound every frame
	pattern := []struct {
		frames int
		x, y   float64
	}{
		{25, 1, 0},
		{3, 0, 0},
		{4, -0.5, 0.5},
		{1, 0.05, -0.05},
		{40, 0, -1},
	}
	for _, p := range pattern {
		for i := 0; i < p.frames; i++ {
			pad.aim(p.x, p.y)
			m.PollFrame()
			if a := m.Acceleration(); a < 0 || a > 10 {
				t.Fatalf("accel %v out of [0,10]", a)
			}
		}
	}
	if m.Acceleration() != 10 {
		t.Fatalf("accel = %v after a long push, want 10", m.Acceleration())
	}
}

func TestAimDeadZoneResets(t *testing.T) {
	m, pad, host := attached(t)

	pad.aim(1, 1)
	for i := 0; i < 5; i++ {
		m.PollFrame()
	}
	if m.Acceleration() != 5 {
		t.Fatalf("accel = %v, want 5", m.Acceleration())
	}

	before := host.cursor
	pad.aim(0.05, -0.09)
	m.PollFrame()

	if m.Acceleration() != 0 {
		t.Fatalf("accel = %v after dead zone, want 0", m.Acceleration())
	}
	if host.cursor != before {
		t.Fatalf("cursor moved in dead zone: %+v -> %+v", before, host.cursor)
	}
}

func TestAimDeadZoneIsSymmetric(t *testing.T) {
	m, pad, host := attached(t)

	// only y is pushed: still aiming
	pad.aim(0, 0.8)
	m.PollFrame()
	if m.Acceleration() != 1 {
		t.Fatalf("accel = %v, want 1", m.Acceleration())
	}
	if host.cursor.Y <= 360 {
		t.Fatalf("cursor y did not move down: %v", host.cursor.Y)
	}
}

func TestAimClampsToViewport(t *testing.T) {
	m, pad, host := attached(t)
	host.cursor = Cursor{X: 1279, Y: 1}

	pad.aim(1, -1)
	for i := 0; i < 20; i++ {
		m.PollFrame()
	}
	if host.cursor.X != host.width || host.cursor.Y != 0 {
		t.Fatalf("cursor = %+v, want (%v, 0)", host.cursor, host.width)
	}
}

func TestAimWithoutAssist(t *testing.T) {
	m, pad, host := attached(t)

	pad.aim(1, 0)
	for i := 0; i < 4; i++ {
		m.PollFrame()
	}
	m.SetPointerAcceleration(false)

	x := host.cursor.X
	for i := 0; i < 3; i++ {
		m.PollFrame()
	}
	if m.Acceleration() != 4 {
		t.Fatalf("accel changed without assist: %v", m.Acceleration())
	}
	if want := x + 3*15*4.0/10; math.Abs(host.cursor.X-want) > 1e-9 {
		t.Fatalf("cursor x = %v, want %v", host.cursor.X, want)
	}

	// no dead zone without assist: the stored speed keeps applying
	pad.aim(0.05, 0)
	m.PollFrame()
	if m.Acceleration() != 4 {
		t.Fatalf("accel reset without assist: %v", m.Acceleration())
	}
}

func TestWeaponSwitchFiresOncePerPress(t *testing.T) {
	m, pad, host := attached(t)
	next := DefaultBindings()[RoleNextWeapon]

	pad.buttons[next] = true
	for i := 0; i < 30; i++ {
		m.PollFrame()
	}
	if host.nextGuns != 1 {
		t.Fatalf("next guns = %d after holding, want 1", host.nextGuns)
	}

	pad.buttons[next] = false
	m.PollFrame()
	pad.buttons[next] = true
	m.PollFrame()
	m.PollFrame()
	if host.nextGuns != 2 {
		t.Fatalf("next guns = %d after re-press, want 2", host.nextGuns)
	}
	if host.prevGuns != 0 {
		t.Fatalf("previous gun fired: %d", host.prevGuns)
	}
}

func TestWeaponSwitchGuardsAreIndependent(t *testing.T) {
	m, pad, host := attached(t)
	b := DefaultBindings()

	pad.buttons[b[RolePreviousWeapon]] = true
	m.PollFrame()
	pad.buttons[b[RoleNextWeapon]] = true
	m.PollFrame()
	m.PollFrame()
	pad.buttons[b[RolePreviousWeapon]] = false
	m.PollFrame()
	pad.buttons[b[RolePreviousWeapon]] = true
	m.PollFrame()

	if host.prevGuns != 2 || host.nextGuns != 1 {
		t.Fatalf("prev=%d next=%d, want prev=2 next=1", host.prevGuns, host.nextGuns)
	}
	if m.prevArmed || m.nextArmed {
		t.Fatalf("guards should be disarmed while held")
	}
}

func TestDisconnectFreezesInput(t *testing.T) {
	m, pad, host := attached(t)

	pad.move(1, 0)
	pad.buttons[7] = true
	m.PollFrame()

	m.Detach(DeviceEvent{Index: 0, ID: "pad"})
	if m.Connected() {
		t.Fatalf("still connected after detach")
	}

	reads := len(pad.reads)
	pad.move(-1, 0)
	pad.buttons[7] = false
	m.PollFrame()

	if len(pad.reads) != reads {
		t.Fatalf("device read after disconnect")
	}
	if !host.input.Right || host.input.Left || !host.input.Fire {
		t.Fatalf("input changed after disconnect: %+v", host.input)
	}
}

func TestShortSnapshotIsSkipped(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		ok   bool
	}{
		{"unreadable", Snapshot{}, false},
		{"few_axes", Snapshot{Axes: []float64{1, 0}, Buttons: make([]bool, 8)}, true},
		{"few_buttons", Snapshot{Axes: []float64{1, 0, 1, 0}, Buttons: make([]bool, 5)}, true},
		{"nan_aim", Snapshot{Axes: []float64{0, 0, math.NaN(), 0}, Buttons: make([]bool, 8)}, true},
		{"inf_aim", Snapshot{Axes: []float64{0, 0, 1, math.Inf(-1)}, Buttons: make([]bool, 8)}, true},
		{"nan_move", Snapshot{Axes: []float64{math.NaN(), 0, 0, 0}, Buttons: make([]bool, 8)}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			host := newFakeHost()
			source := SourceFunc(func(int) (Snapshot, bool) { return c.snap, c.ok })
			m := newTestMapper(t, source, host, nil)
			m.Attach(DeviceEvent{Index: 0})
			before := host.cursor

			m.PollFrame()

			if host.input != (Input{}) || host.cursor != before || m.Acceleration() != 0 {
				t.Fatalf("short snapshot changed state: input=%+v cursor=%+v accel=%v", host.input, host.cursor, m.Acceleration())
			}
		})
	}
}

func TestNonFiniteAimRecovers(t *testing.T) {
	m, pad, host := attached(t)

	pad.aim(math.NaN(), 0)
	m.PollFrame()
	pad.aim(0.5, 0.5)
	for i := 0; i < 5; i++ {
		m.PollFrame()
	}

	if math.IsNaN(host.cursor.X) || math.IsNaN(host.cursor.Y) {
		t.Fatalf("cursor = %+v", host.cursor)
	}
	if m.Acceleration() != 5 {
		t.Fatalf("accel = %v, want 5", m.Acceleration())
	}
	if host.cursor.X <= 640 || host.cursor.Y <= 360 {
		t.Fatalf("cursor did not move: %+v", host.cursor)
	}
}

func TestPresenceStatus(t *testing.T) {
	pad := newFakePad()
	host := newFakeHost()
	status := &fakeStatus{}
	m := newTestMapper(t, pad, host, nil)

	m.SetStatus(status)
	if status.last() != DisconnectedMessage {
		t.Fatalf("initial status %q", status.last())
	}
	m.Attach(DeviceEvent{Index: 3, ID: "pad"})
	if status.last() != ConnectedMessage {
		t.Fatalf("status after attach %q", status.last())
	}
	m.Detach(DeviceEvent{Index: 3, ID: "pad"})
	if status.last() != DisconnectedMessage {
		t.Fatalf("status after detach %q", status.last())
	}
}

func TestFirstDeviceStaysAuthoritative(t *testing.T) {
	pad := newFakePad()
	host := newFakeHost()
	m := newTestMapper(t, pad, host, nil)
	var buf bytes.Buffer
	m.SetLogger(zerolog.New(&buf))

	m.Attach(DeviceEvent{Index: 2, ID: "first"})
	if levels := logLevels(t, &buf); strings.Contains(levels, "warn") {
		t.Fatalf("warned on the first controller: %s", levels)
	}
	m.Attach(DeviceEvent{Index: 5, ID: "second"})
	if levels := logLevels(t, &buf); levels != "warn info" {
		t.Fatalf("log levels = %q, want a warning for the second controller", levels)
	}
	m.Attach(DeviceEvent{Index: 2, ID: "first"})
	m.PollFrame()

	if dev, _ := m.Device(); dev.Index != 2 {
		t.Fatalf("device = %d, want 2", dev.Index)
	}
	if got := pad.reads[len(pad.reads)-1]; got != 2 {
		t.Fatalf("read device %d, want 2", got)
	}

	m.Detach(DeviceEvent{Index: 2, ID: "first"})
	if !m.Connected() {
		t.Fatalf("disconnected while the second device is attached")
	}
	m.PollFrame()
	if got := pad.reads[len(pad.reads)-1]; got != 5 {
		t.Fatalf("read device %d after first left, want 5", got)
	}
}

func TestWaitForStart(t *testing.T) {
	pad := newFakePad()
	host := newFakeHost()
	host.onTitle = true
	sched := frame.NewScheduler()
	m := newTestMapper(t, pad, host, sched)

	m.Attach(DeviceEvent{Index: 0, ID: "pad"})
	if !m.WaitingForStart() {
		t.Fatalf("pre-start loop not armed on title page")
	}

	for i := 0; i < 3; i++ {
		sched.Tick()
	}
	if host.started != 0 {
		t.Fatalf("started without start button")
	}

	pad.buttons[DefaultBindings()[RoleStart]] = true
	sched.Tick()
	if host.started != 1 {
		t.Fatalf("started = %d, want 1", host.started)
	}
	if m.WaitingForStart() {
		t.Fatalf("pre-start loop still armed after the game started")
	}

	sched.Tick()
	if host.started != 1 {
		t.Fatalf("loop kept polling after start: %d", host.started)
	}
}

// Controllers are picked up by a frame system, so the pre-start loop armed
// there first polls on the following frame.
func TestWaitForStartBeginsNextFrame(t *testing.T) {
	pad := newFakePad()
	pad.buttons[DefaultBindings()[RoleStart]] = true
	host := newFakeHost()
	host.onTitle = true
	sched := frame.NewScheduler()
	m := newTestMapper(t, pad, host, sched)

	sched.Add(frame.SystemFunc(func() {
		if sched.Frame() == 1 {
			m.Attach(DeviceEvent{Index: 0, ID: "pad"})
		}
	}))

	sched.Tick()
	if host.started != 0 || len(pad.reads) != 0 {
		t.Fatalf("pre-start loop ran in the attach frame: started=%d reads=%d", host.started, len(pad.reads))
	}
	sched.Tick()
	if host.started != 1 {
		t.Fatalf("started = %d on the frame after attach, want 1", host.started)
	}
}

func TestWaitForStartStopsOnDetach(t *testing.T) {
	pad := newFakePad()
	host := newFakeHost()
	host.onTitle = true
	sched := frame.NewScheduler()
	m := newTestMapper(t, pad, host, sched)

	m.Attach(DeviceEvent{Index: 0})
	m.Attach(DeviceEvent{Index: 1})
	if sched.Len() != 1 {
		t.Fatalf("tasks = %d, want a single pre-start loop", sched.Len())
	}

	sched.Tick()
	m.Detach(DeviceEvent{Index: 0})
	m.Detach(DeviceEvent{Index: 1})
	reads := len(pad.reads)

	pad.buttons[0] = true
	sched.Tick()
	if host.started != 0 {
		t.Fatalf("started after detach")
	}
	if len(pad.reads) != reads {
		t.Fatalf("device read after detach")
	}
	if m.WaitingForStart() || sched.Len() != 0 {
		t.Fatalf("pre-start loop survived detach")
	}
}

func TestNoWaitLoopInGame(t *testing.T) {
	sched := frame.NewScheduler()
	m := newTestMapper(t, newFakePad(), newFakeHost(), sched)
	m.Attach(DeviceEvent{Index: 0})
	if m.WaitingForStart() || sched.Len() != 0 {
		t.Fatalf("pre-start loop armed outside the title page")
	}
}

func TestConfigure(t *testing.T) {
	m, pad, host := attached(t)

	pad.aim(1, 0)
	for i := 0; i < 10; i++ {
		m.PollFrame()
	}

	cfg := DefaultConfig()
	cfg.Tuning.MaxSpeed = 4
	cfg.Buttons[RoleFire] = 9
	pad.buttons = make([]bool, 10)
	if err := m.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if m.Acceleration() != 4 {
		t.Fatalf("accel = %v, want clamped to 4", m.Acceleration())
	}

	pad.buttons[9] = true
	m.PollFrame()
	if !host.input.Fire {
		t.Fatalf("rebound fire button ignored")
	}

	bad := DefaultConfig()
	bad.Tuning.MaxSpeed = 0
	if err := m.Configure(bad); err == nil {
		t.Fatalf("expected error for zero max speed")
	}
	if m.Config().Tuning.MaxSpeed != 4 {
		t.Fatalf("bad config was applied")
	}

	// the mapper keeps its own copy
	cfg.Buttons[RoleFire] = 1
	if m.Config().Buttons[RoleFire] != 9 {
		t.Fatalf("caller mutation leaked into the mapper")
	}
}

// logLevels drains buf and returns the level of each JSON log line.
func logLevels(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	var levels []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		levels = append(levels, entry.Level)
	}
	buf.Reset()
	return strings.Join(levels, " ")
}
