package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/webterm/internal/config"
	"github.com/GriffinCanCode/webterm/internal/logging"
	"github.com/GriffinCanCode/webterm/internal/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		port       string
		host       string
		shell      string
		dev        bool
	)

	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML or TOML configuration profile")
	flagSet.StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	flagSet.StringVar(&host, "host", "", "listen host (overrides HOST)")
	flagSet.StringVar(&shell, "shell", "", "shell to spawn (overrides WEBTERM_SHELL)")
	flagSet.BoolVar(&dev, "dev", false, "development logging")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("port") {
		cfg.Server.Port = port
	}
	if flagSet.Changed("host") {
		cfg.Server.Host = host
	}
	if flagSet.Changed("shell") {
		cfg.Terminal.Shell = shell
	}
	if flagSet.Changed("dev") {
		cfg.Logging.Development = dev
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
