package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
	coresys "github.com/l1jgo/engine/internal/core/system"
	"github.com/l1jgo/engine/internal/inspector"
	"github.com/l1jgo/engine/internal/persist"
	"github.com/l1jgo/engine/internal/scene"
	"github.com/l1jgo/engine/internal/scripting"
)

// Providers are listed leaf first. Optional services return nil when their
// config section disables them, with a no-op cleanup.

func noop() {}

func ProvideRegistry() (*ecs.Registry, error) {
	return component.NewRegistry()
}

func ProvideWorld(cfg *config.Config, reg *ecs.Registry) *ecs.World {
	return ecs.NewWorld(ecs.WithRegistry(reg), ecs.WithCapacity(cfg.Engine.InitialCapacity))
}

func ProvideBus() *event.Bus {
	return event.NewBus()
}

func ProvideScheduler(cfg *config.Config, log *zap.Logger) (*coresys.Scheduler, error) {
	strategy, err := coresys.ParseStrategy(cfg.Engine.Ordering)
	if err != nil {
		return nil, err
	}
	return coresys.NewScheduler(strategy, log.Named("scheduler"),
		coresys.WithFixedStep(cfg.Engine.FixedStep, cfg.Engine.MaxFixedSteps)), nil
}

func ProvideScripts(cfg *config.Config, log *zap.Logger) (*scripting.Engine, func(), error) {
	e, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return nil, nil, fmt.Errorf("scripting: %w", err)
	}
	return e, e.Close, nil
}

func ProvideDB(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persist.DB, func(), error) {
	if cfg.Database.DSN == "" {
		return nil, noop, nil
	}
	db, err := persist.NewDB(ctx, cfg.Database, log.Named("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := persist.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return db, db.Close, nil
}

func ProvideSnapshotStore(db *persist.DB) *persist.SnapshotRepo {
	if db == nil {
		return nil
	}
	return persist.NewSnapshotRepo(db)
}

func ProvideInspector(cfg *config.Config, log *zap.Logger) (*inspector.Server, func(), error) {
	if !cfg.Inspector.Enabled {
		return nil, noop, nil
	}
	s := inspector.NewServer(cfg.Inspector, log.Named("inspector"))
	if err := s.Start(); err != nil {
		return nil, nil, fmt.Errorf("inspector: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Inspector.ReplyTimeout)
		defer cancel()
		_ = s.Shutdown(ctx)
	}
	return s, cleanup, nil
}

func ProvideWatcher(cfg *config.Config, log *zap.Logger) (*scene.Watcher, func(), error) {
	if !cfg.Scene.Watch || cfg.Scene.Path == "" {
		return nil, noop, nil
	}
	w, err := scene.NewWatcher(log.Named("scene"))
	if err != nil {
		return nil, nil, fmt.Errorf("scene watcher: %w", err)
	}
	return w, func() { _ = w.Close() }, nil
}
