package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fzracing/fz/engine"
	"github.com/fzracing/fz/engine/hostfuncs"
	"github.com/fzracing/fz/engine/records"
)

func newRunCommand() *cobra.Command {
	var (
		configPath string
		clients    int
		ticks      uint64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a game session",
		Long: `Run loads the configured plugin, spawns the server instance plus the
requested number of clients, and ticks the session until interrupted
(or until --ticks elapses).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := engine.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if clients > cfg.MaxClients {
				return fmt.Errorf("--clients %d exceeds max_clients %d", clients, cfg.MaxClients)
			}
			return runSession(cmd.Context(), cfg, clients, ticks)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "fz.yaml", "session config file")
	cmd.Flags().IntVar(&clients, "clients", 1, "client instances to spawn")
	cmd.Flags().Uint64Var(&ticks, "ticks", 0, "stop after this many ticks (0 runs forever)")

	return cmd
}

func runSession(ctx context.Context, cfg engine.Config, clients int, ticks uint64) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	wasmBytes, err := os.ReadFile(cfg.PluginPath)
	if err != nil {
		return fmt.Errorf("reading plugin: %w", err)
	}

	sink := hostfuncs.DiscardEvents
	if cfg.RecordsPath != "" {
		store, err := records.Open(cfg.RecordsPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store.Sink()
	}

	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
		hostfuncs.WithBundle(hostfuncs.EventBundle(sink)),
	)
	if err != nil {
		return err
	}

	exec, err := engine.NewExecutor(ctx,
		engine.WithHostFunctions(registry),
		engine.WithLogger(logger),
		engine.WithMemoryLimitPages(cfg.MemoryPages),
	)
	if err != nil {
		return err
	}
	defer exec.Close(context.Background())

	pluginCfg, err := cfg.PluginConfig()
	if err != nil {
		return err
	}

	session, err := engine.NewSession(ctx, exec.Factory(wasmBytes),
		engine.WithSessionLogger(logger),
		engine.WithPluginConfig(pluginCfg),
		engine.WithMaxClients(cfg.MaxClients),
	)
	if err != nil {
		return err
	}
	defer session.Close(context.Background())

	for i := 0; i < clients; i++ {
		id, err := session.AddClient(ctx)
		if err != nil {
			return fmt.Errorf("adding client: %w", err)
		}
		logger.Info("client joined", "client", id)
	}

	logger.Info("session running",
		"plugin", session.PluginName(),
		"tick_rate", cfg.TickRate,
		"clients", clients,
	)

	dt := float32(1) / float32(cfg.TickRate)
	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("session stopped", "ticks", session.TickCount())
			return nil
		case <-ticker.C:
			if err := session.Tick(ctx, dt); err != nil {
				return fmt.Errorf("tick %d: %w", session.TickCount(), err)
			}
			if ticks > 0 && session.TickCount() >= ticks {
				logger.Info("session finished", "ticks", session.TickCount())
				return nil
			}
		}
	}
}
