package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/engine/internal/app"
	"github.com/l1jgo/engine/internal/config"
	coresys "github.com/l1jgo/engine/internal/core/system"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// hashPassword prints a bcrypt hash for inspector.password_hash.
func hashPassword(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: engine hash-password <password>")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, strategy string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            Whale Engine  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        ECS world · phase scheduler        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mworld:\033[0m %s \033[90m(ordering: %s)\033[0m\n\n", name, strategy)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ──────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Engine.Name, cfg.Engine.Ordering)

	// 3. Build the engine (database, scripts, inspector, systems)
	ctx := context.Background()
	printSection("Boot")
	eng, cleanup, err := app.InitializeEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	if eng.Store != nil {
		printOK("PostgreSQL connected, migrations applied")
	}
	printOK("Lua scripts loaded")
	printStat("Component types", eng.Registry.Len())
	for _, p := range coresys.Phases() {
		if n := eng.Scheduler.Len(p); n > 0 {
			printStat("Systems in "+p.String(), n)
		}
	}

	// 4. World content: latest snapshot first, then the scene file
	printSection("World")
	restored, spawned, err := eng.LoadWorld(ctx)
	if err != nil {
		return err
	}
	if restored > 0 {
		printStat("Entities restored", restored)
	} else if spawned > 0 {
		printStat("Entities spawned", spawned)
	}

	// 5. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	if eng.Inspector != nil {
		printReady(fmt.Sprintf("inspector on ws://%s/ws", eng.Inspector.Addr()))
	}
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Engine.TickRate))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := eng.Tick(dt); err != nil {
				if cfg.Engine.HaltOnError {
					eng.Shutdown(ctx)
					return fmt.Errorf("tick %d: %w", eng.Ticks(), err)
				}
				log.Error("tick failed", zap.Uint64("tick", eng.Ticks()), zap.Error(err))
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			eng.Shutdown(ctx)
			log.Info("engine stopped", zap.Uint64("ticks", eng.Ticks()))
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
