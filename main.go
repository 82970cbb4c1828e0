package main

import (
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configName := flag.String("config", "", "mapper config in config/ (default gamepad.yaml)")
	scriptName := flag.String("script", "", "drive a synthetic controller from a tengo script in config/scripts/")
	watch := flag.Bool("watch", false, "reload config and scripts when they change on disk")
	noAccel := flag.Bool("no-accel", false, "disable pointer acceleration for aiming")
	verbose := flag.Bool("v", false, "debug logging")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("gamepadmode")

	game, err := NewGame(Options{
		ConfigName: *configName,
		ScriptName: *scriptName,
		Watch:      *watch,
		NoAccel:    *noAccel,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init game")
	}
	defer game.Close()

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal().Err(err).Msg("run game")
	}
}
