// Command lotterysim runs the Cosmic Lottery simulation: a swarm of
// particles swirling in a box, a publicly verifiable draw, and the
// numerological reading of the winners, served over HTTP.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/cosmic-lottery/internal/api"
	"github.com/talgya/cosmic-lottery/internal/entropy"
	"github.com/talgya/cosmic-lottery/internal/oracle"
	"github.com/talgya/cosmic-lottery/internal/persistence"
	"github.com/talgya/cosmic-lottery/internal/sim"
)

type settings struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	DBPath       string `env:"LOTTERY_DB" envDefault:"data/lottery.db"`
	Seed         int64  `env:"LOTTERY_SEED" envDefault:"42"`
	AdminKey     string `env:"LOTTERY_ADMIN_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	RandomOrgKey string `env:"RANDOM_ORG_KEY"`
	Debug        bool   `env:"LOTTERY_DEBUG"`
}

func main() {
	var cfg settings
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse environment", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Cosmic Lottery simulation")

	// ── Draw ledger ───────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("ledger opened", "path", cfg.DBPath)

	// ── Entropy ───────────────────────────────────────────────────────
	src := entropy.Pick(entropy.NewClient(cfg.RandomOrgKey))
	slog.Info("entropy source", "name", src.Name())

	// ── Oracle ────────────────────────────────────────────────────────
	oracleClient := oracle.NewClient(cfg.AnthropicKey)
	if oracleClient.Enabled() {
		slog.Info("oracle enabled")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, oracle features disabled")
	}

	// ── Session ───────────────────────────────────────────────────────
	simCfg := sim.DefaultConfig()
	if err := simCfg.Validate(); err != nil {
		slog.Error("default config invalid", "error", err)
		os.Exit(1)
	}

	session := sim.NewSession(simCfg, sim.SystemClock(), src, cfg.Seed)
	session.OnDraw = func(r sim.DrawResult) {
		if err := db.RecordDraw(r); err != nil {
			slog.Error("ledger write failed", "draw", r.ID, "error", err)
		}
	}

	loop := sim.NewLoop(session)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("LOTTERY_ADMIN_KEY not set, control endpoints disabled")
	}
	server := &api.Server{
		Session:  session,
		Loop:     loop,
		Oracle:   oracleClient,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	server.Start()

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		loop.Stop()
	}()

	slog.Info("particles ready",
		"count", simCfg.Count,
		"box", simCfg.HalfExtent*2,
		"draw_size", simCfg.SelectCount,
		"policy", simCfg.Policy,
	)
	loop.Run()
}
