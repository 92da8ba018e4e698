package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"cryptoconverter/config"
	"cryptoconverter/internal/binance/collector"
	"cryptoconverter/internal/binance/stream"
	"cryptoconverter/logger"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configFile := pflag.String("config", "", "path to config.yaml (searched next to the binary by default)")
	pflag.Parse()

	// viper config
	cfg, err := config.Load(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log, "consumer")
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run consumer until the stream fails or a signal arrives
	if err := collector.Run(ctx, cfg, log); err != nil {
		var transportErr *stream.TransportError
		if errors.As(err, &transportErr) {
			log.Error("upstream connection lost", zap.String("op", transportErr.Op), zap.Error(err))
		} else {
			log.Error("consumer failed", zap.Error(err))
		}
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("consumer stopped")
}
