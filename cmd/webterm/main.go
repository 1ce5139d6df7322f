package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/webterm/internal/client"
	"github.com/GriffinCanCode/webterm/internal/config"
	"github.com/GriffinCanCode/webterm/internal/headless"
	"github.com/GriffinCanCode/webterm/internal/logging"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "\r\nwebterm: %v\r\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logFile    string
		url        string
		mode       string
		content    string
		rows       int
		cols       int
	)

	flagSet := pflag.NewFlagSet("webterm", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML or TOML configuration profile")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON logs to this file")
	flagSet.StringVarP(&url, "url", "u", "", "server base URL (overrides WEBTERM_URL)")
	flagSet.StringVarP(&mode, "mode", "m", "", "transport: rpc or stream (overrides WEBTERM_MODE)")
	flagSet.StringVar(&content, "content", "", "paint content policy: trusted or sanitized")
	flagSet.IntVar(&rows, "rows", 0, "terminal rows")
	flagSet.IntVar(&cols, "cols", 0, "terminal columns")

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
	if flagSet.Changed("url") {
		cfg.Client.URL = url
	}
	if flagSet.Changed("mode") {
		cfg.Client.Mode = mode
	}
	if flagSet.Changed("content") {
		cfg.Client.Content = content
	}
	if flagSet.Changed("rows") {
		cfg.Client.Rows = rows
	}
	if flagSet.Changed("cols") {
		cfg.Client.Cols = cols
	}

	logger := logging.Nop()
	if logFile != "" {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			OutputPaths: []string{logFile},
		})
		if err != nil {
			return err
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	host := headless.NewHost(headless.Config{
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: logger,
	})

	err = client.Run(ctx, cfg.Client, host, logger)
	if closeErr := host.Close(); closeErr != nil {
		logger.Warn("Restoring console failed", zap.Error(closeErr))
	}
	return err
}
