package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/gamepadmode/config"
	"github.com/milk9111/gamepadmode/frame"
	"github.com/milk9111/gamepadmode/gamepad"
	"github.com/rs/zerolog"
)

const (
	baseWidth  = 1280
	baseHeight = 720
)

var guns = []string{"nail gun", "shotgun", "laser", "grenades", "wave beam"}

type Options struct {
	ConfigName string
	ScriptName string
	Watch      bool
	NoAccel    bool
}

// Game is a stand-in for the real game: a title page, a gun list and an aim
// cursor, driven by keyboard or controller.
type Game struct {
	frames int

	onTitlePage bool
	gun         int
	input       gamepad.Input
	cursor      gamepad.Cursor

	sched   *frame.Scheduler
	mapper  *gamepad.Mapper
	devices *gamepad.DeviceWatcher
	script  *gamepad.ScriptSource
	watcher *config.Watcher
	status  *statusUI

	opts   Options
	logger zerolog.Logger
}

func NewGame(opts Options, logger zerolog.Logger) (*Game, error) {
	g := &Game{
		onTitlePage: true,
		cursor:      gamepad.Cursor{X: baseWidth / 2, Y: baseHeight / 2},
		sched:       frame.NewScheduler(),
		status:      newStatusUI(),
		opts:        opts,
		logger:      logger,
	}

	cfg, scriptName, err := loadMapperConfig(opts)
	if err != nil {
		return nil, err
	}

	var source gamepad.Source
	if scriptName != "" {
		src, err := config.LoadScript(scriptName)
		if err != nil {
			return nil, fmt.Errorf("load script %s: %w", scriptName, err)
		}
		g.script, err = gamepad.NewScriptSource(scriptName, src)
		if err != nil {
			return nil, err
		}
		g.script.SetLogger(logger)
		source = g.script
	} else {
		g.devices = gamepad.NewDeviceWatcher()
		g.devices.SetLogger(logger)
		source = gamepad.NewEbitenSource()
	}

	g.mapper, err = gamepad.NewMapper(source, g, g.sched, cfg)
	if err != nil {
		return nil, err
	}
	g.mapper.SetLogger(logger.With().Str("component", "gamepad").Logger())
	g.mapper.SetStatus(g.status)

	g.sched.Add(frame.SystemFunc(g.pollDevices))
	g.sched.Add(frame.SystemFunc(g.pollController))

	if g.script != nil {
		g.mapper.Attach(gamepad.DeviceEvent{Index: 0, ID: "script:" + scriptName})
	}

	if opts.Watch {
		g.watcher = newConfigWatcher(logger)
		if g.watcher != nil {
			g.watcher.Track(g.configName())
			if g.script != nil {
				g.watcher.Track(g.script.Name())
			}
		}
	}

	return g, nil
}

// newConfigWatcher watches the on-disk overrides; without them there is
// nothing to reload.
func newConfigWatcher(logger zerolog.Logger) *config.Watcher {
	var dirs []string
	for _, dir := range []string{config.Dir, filepath.Join(config.Dir, "scripts")} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		logger.Warn().Str("dir", config.Dir).Msg("config dir missing, hot reload disabled")
		return nil
	}
	w, err := config.NewWatcher(dirs...)
	if err != nil {
		logger.Error().Err(err).Msg("config watcher failed, hot reload disabled")
		return nil
	}
	return w
}

func loadMapperConfig(opts Options) (gamepad.Config, string, error) {
	spec, err := config.LoadMapperSpec(opts.ConfigName)
	if err != nil {
		return gamepad.Config{}, "", err
	}
	cfg, err := spec.GamepadConfig()
	if err != nil {
		return gamepad.Config{}, "", err
	}
	if opts.NoAccel {
		cfg.PointerAcceleration = false
	}
	scriptName := opts.ScriptName
	if scriptName == "" {
		scriptName = spec.Script
	}
	return cfg, scriptName, nil
}

func (g *Game) Update() error {
	g.frames++

	g.reloadChanged()

	if g.onTitlePage && inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.StartGame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		g.mapper.SetPointerAcceleration(!g.mapper.PointerAcceleration())
	}

	g.sched.Tick()
	g.status.Update()

	return nil
}

// pollDevices runs as a frame system so a pre-start loop armed on attach
// starts on the next tick.
func (g *Game) pollDevices() {
	if g.devices == nil {
		return
	}
	g.devices.Update(g.mapper.Attach, g.mapper.Detach)
}

func (g *Game) pollController() {
	if g.onTitlePage {
		return
	}
	g.mapper.PollFrame()
}

func (g *Game) reloadChanged() {
	if g.watcher == nil {
		return
	}
	for _, name := range g.watcher.Poll() {
		base := filepath.Base(name)
		switch {
		case config.IsConfigFile(name):
			cfg, _, err := loadMapperConfig(g.opts)
			if err == nil {
				err = g.mapper.Configure(cfg)
			}
			if err != nil {
				g.logger.Error().Err(err).Str("file", base).Msg("config reload failed, keeping previous config")
				continue
			}
			g.logger.Info().Str("file", base).Msg("config reloaded")
		case config.IsScriptFile(name) && g.script != nil:
			src, err := config.LoadScript(g.script.Name())
			if err == nil {
				err = g.script.Reload(src)
			}
			if err != nil {
				g.logger.Error().Err(err).Str("file", base).Msg("script reload failed, keeping previous script")
				continue
			}
			g.logger.Info().Str("file", base).Msg("script reloaded")
		}
	}
}

func (g *Game) configName() string {
	if g.opts.ConfigName == "" {
		return config.DefaultFile
	}
	return g.opts.ConfigName
}

func (g *Game) Close() error {
	if g.watcher == nil {
		return nil
	}
	return g.watcher.Close()
}

func (g *Game) StartGame() {
	if !g.onTitlePage {
		return
	}
	g.logger.Info().Msg("game started")
	g.onTitlePage = false
}

func (g *Game) PreviousGun() {
	g.gun = (g.gun + len(guns) - 1) % len(guns)
	g.logger.Debug().Str("gun", guns[g.gun]).Msg("previous gun")
}

func (g *Game) NextGun() {
	g.gun = (g.gun + 1) % len(guns)
	g.logger.Debug().Str("gun", guns[g.gun]).Msg("next gun")
}

func (g *Game) OnTitlePage() bool {
	return g.onTitlePage
}

func (g *Game) Input() *gamepad.Input {
	return &g.input
}

func (g *Game) Cursor() *gamepad.Cursor {
	return &g.cursor
}

func (g *Game) Viewport() (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrint(screen, fmt.Sprintf("Frames: %d    FPS: %.2f", g.frames, ebiten.ActualFPS()))

	if g.onTitlePage {
		ebitenutil.DebugPrintAt(screen, "press START on the controller or Enter to begin", baseWidth/2-170, baseHeight/2)
	} else {
		in := g.input
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf(
			"gun: %s\nleft:%v right:%v up:%v down:%v\nfield:%v fire:%v\naccel: %.0f (assist %v, F2 toggles)",
			guns[g.gun], in.Left, in.Right, in.Up, in.Down, in.Field, in.Fire,
			g.mapper.Acceleration(), g.mapper.PointerAcceleration(),
		), 0, 20)
		ebitenutil.DebugPrintAt(screen, "+", int(g.cursor.X)-3, int(g.cursor.Y)-8)
	}

	g.status.Draw(screen)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
