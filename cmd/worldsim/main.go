// Command worldsim runs the tick-driven multi-agent world simulation kernel.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/simkernel/internal/command"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/runner"
	"github.com/talgya/simkernel/internal/worldgen"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("world simulation kernel starting")

	dbPath := "data/world.db"
	population := 10
	transportPort := 4222

	os.MkdirAll("data", 0755)

	r := runner.New()
	err := r.Initialize(runner.Config{
		DBPath:            dbPath,
		InitialPopulation: population,
		EnableTransport:   envFlag("WORLDSIM_TRANSPORT", true),
		TransportPort:     transportPort,
	})
	if err != nil {
		slog.Error("initialize failed", "error", err)
		os.Exit(1)
	}

	r.InitializeWorldResources(worldgen.DefaultConfig(64, 64, 10))

	_ = r.On(eventbus.EventAgentBorn, func(ev eventbus.Event) {
		slog.Debug("agent born", "payload", ev.Payload)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		r.Stop()
		os.Exit(0)
	}()

	r.Start()

	fmt.Printf("world simulation running: %d agents spawned, player id %s\n", population, r.GetPlayerId())
	if envFlag("WORLDSIM_TRANSPORT", true) {
		fmt.Printf("observer transport listening on loopback port %d\n", transportPort)
	}
	fmt.Println("ctrl+c to stop")

	r.EnqueueCommand(command.Command{ID: "startup-ping", Kind: command.KindPing})

	select {}
}

func envFlag(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v == "1" || v == "true"
}
