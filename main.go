package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hardmode/server/internal/combat"
	"hardmode/server/internal/latency"
	gamenet "hardmode/server/internal/net"
	"hardmode/server/internal/sim"
)

var CLI struct {
	Addr     string `help:"Listen address." default:":8080"`
	TickRate int    `help:"Simulation ticks per second." default:"20"`
	XPCurve  string `help:"Progression curve (linear or progressive)." default:"progressive"`
	Monsters int    `help:"Monsters to seed at startup." default:"6"`
	Debug    bool   `help:"Whether to enable debug logging."`
}

// seedMonsters scatters the starting population away from the spawn point.
func seedMonsters(world *sim.World, cfg sim.Config, count int) {
	classes := []string{"rat", "rat", "skeleton", "skeleton", "ogre"}
	for i := 0; i < count; i++ {
		class := classes[i%len(classes)]
		x := cfg.SpawnX + 400 + float64(i%4)*350
		y := cfg.SpawnY + 300 + float64(i/4)*400
		world.SpawnMonster(class, x, y)
	}
}

func run() error {
	curve, ok := combat.ParseCurveMode(CLI.XPCurve)
	if !ok {
		return fmt.Errorf("unknown xp curve %q", CLI.XPCurve)
	}
	if CLI.TickRate <= 0 || CLI.TickRate > 120 {
		return fmt.Errorf("tick rate %d out of range", CLI.TickRate)
	}

	cfg := sim.DefaultConfig()
	cfg.TickRate = CLI.TickRate
	cfg.Combat.Progression = combat.DefaultProgression(curve)

	mask := sim.RectMask{
		Rects: []sim.Rect{
			{X: 700, Y: 500, Width: 200, Height: 600},
			{X: 1400, Y: 900, Width: 500, Height: 160},
			{X: 400, Y: 1600, Width: 300, Height: 300},
		},
		Half: 16,
	}

	tracker := latency.NewTracker()
	world := sim.NewWorld(cfg, mask, tracker, log.Logger)
	seedMonsters(world, cfg, CLI.Monsters)

	hub := gamenet.NewHub(cfg, world, tracker, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	srv := &http.Server{Addr: CLI.Addr, Handler: hub.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", CLI.Addr).
		Int("tickRate", cfg.TickRate).
		Str("xpCurve", string(curve)).
		Str("configHash", cfg.Hash()).
		Msg("server listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kong.Parse(&CLI,
		kong.Name("hardmode"),
		kong.Description("authoritative game synchronization server"),
		kong.UsageOnError())

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if err := run(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
