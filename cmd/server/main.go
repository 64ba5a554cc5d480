package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/gochat-rooms/internal/server"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	flagSet := pflag.NewFlagSet("gochat-rooms", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Port, "port", cfg.Port, "listen address (host:port or :port)")
	flagSet.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "origins allowed to open WebSocket connections (* for any)")
	flagSet.StringSliceVar(&cfg.DefaultRooms, "rooms", cfg.DefaultRooms, "rooms that exist at start-up")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flagSet.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown bound")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg = cfg.Sanitize()

	logger := server.NewLogger(os.Stderr, cfg.LogLevel)
	logger.Info("Starting chat server", "rooms", cfg.DefaultRooms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := server.NewLoop(cfg, logger)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	app := server.NewApp(cfg, loop, logger)
	httpServer := server.CreateServer(cfg.Port, app.Routes())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(httpServer, logger)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case err := <-errChan:
		stopLoop()
		<-loop.Done()
		return err
	}

	shutdownErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger)
	stopLoop()
	<-loop.Done()
	if err := app.Wait(cfg.ShutdownTimeout); err != nil {
		logger.Warn("Clients did not finish in time", "error", err)
	}
	logger.Info("Program stopped cleanly")
	return shutdownErr
}
