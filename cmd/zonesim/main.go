// Command zonesim runs a colony world and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/civilzones/internal/api"
	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/engine"
	"github.com/talgya/civilzones/internal/persistence"
	"github.com/talgya/civilzones/internal/persistence/snapshot"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("zonesim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("ZONESIM_CONFIG")
	dbPath := envOr("ZONESIM_DB", "data/zonesim.db")
	apiPort, err := strconv.Atoi(envOr("ZONESIM_PORT", "8080"))
	if err != nil {
		return fmt.Errorf("ZONESIM_PORT: %w", err)
	}

	// ── Config ────────────────────────────────────────────────────────
	cfg := config.Default()
	if cfgPath != "" {
		if cfg, err = config.Load(cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		slog.Info("config loaded", "path", cfgPath)
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Load or Generate World ────────────────────────────────────────
	var sim *engine.Simulation
	if path := os.Getenv("ZONESIM_IMPORT"); path != "" {
		if sim, err = importWorld(path); err != nil {
			return err
		}
		if err := db.SaveWorldState(sim); err != nil {
			return fmt.Errorf("save imported world: %w", err)
		}
	} else if sim, err = loadOrCreate(db, cfg); err != nil {
		return err
	}
	st := sim.Stats()
	slog.Info("world ready",
		"world_id", st.WorldID,
		"tick", humanize.Comma(int64(st.Tick)),
		"size", fmt.Sprintf("%dx%d", st.Width, st.Height),
		"tiles", humanize.Comma(int64(st.Width*st.Height)),
		"creatures", st.Creatures,
		"nomads", st.Nomads,
		"phase", st.Phase,
	)

	eng := engine.NewEngine(sim, sim.Config().Clock)
	eng.OnAutosave = func(tick uint64) {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("autosave failed", "tick", tick, "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("ZONESIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("ZONESIM_ADMIN_KEY not set, commands and admin POST endpoints are disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	err = eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	if path := os.Getenv("ZONESIM_EXPORT"); path != "" {
		if err := exportWorld(sim, path); err != nil {
			return err
		}
	}
	st = sim.Stats()
	fmt.Printf("Simulation stopped at year %d with %s people. World state saved.\n",
		st.Year, humanize.Comma(int64(st.Population)))
	return nil
}

// loadOrCreate resumes the newest save, or starts a fresh world when the
// database is empty or the saved world has ended.
func loadOrCreate(db *persistence.DB, cfg config.Config) (*engine.Simulation, error) {
	snap, info, err := db.LatestSnapshot()
	switch {
	case errors.Is(err, persistence.ErrNoSave):
		slog.Info("no saved world found, generating new world...")
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	default:
		sim, err := engine.Restore(snap)
		if err != nil {
			return nil, fmt.Errorf("restore save %d: %w", info.ID, err)
		}
		if !sim.Halted() {
			slog.Info("world state restored",
				"save", info.ID,
				"tick", info.Tick,
				"saved", humanize.Time(info.Created),
				"size", humanize.Bytes(uint64(info.Size)),
			)
			return sim, nil
		}
		slog.Info("saved world has ended, generating new world...", "cause", sim.Cause().String())
	}

	sim, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	return sim, nil
}

// importWorld restores a world from a snapshot file. The header is read
// first so a foreign or newer file is reported before the body is decoded.
func importWorld(path string) (*engine.Simulation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	h, err := snapshot.ReadHeader(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	if h.Version != snapshot.Version {
		return nil, fmt.Errorf("import %s: %w", path, snapshot.ErrVersion)
	}
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	sim, err := engine.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	slog.Info("world imported", "path", path, "world_id", h.WorldID, "tick", humanize.Comma(int64(h.Tick)))
	return sim, nil
}

// exportWorld writes the current world to a snapshot file.
func exportWorld(sim *engine.Simulation, path string) error {
	snap, err := sim.ExportSnapshot()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := snapshot.WriteFile(path, snap); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	slog.Info("world exported", "path", path, "tick", snap.Header.Tick)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
