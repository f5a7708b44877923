package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/e2b-dev/infra/packages/scull/internal/cfg"
	"github.com/e2b-dev/infra/packages/scull/pkg/block"
	"github.com/e2b-dev/infra/packages/scull/pkg/logger"
	"github.com/e2b-dev/infra/packages/scull/pkg/nbd"
	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
	"github.com/e2b-dev/infra/packages/scull/pkg/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	config, err := cfg.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)

		os.Exit(1)
	}

	l, err := logger.NewLogger(ctx, logger.LoggerConfig{
		ServiceName:   config.ServiceName,
		IsDevelopment: config.IsLocal(),
		IsDebug:       config.Debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)

		os.Exit(1)
	}
	defer l.Sync()

	err = run(ctx, config, l)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error("scull nbd server failed", zap.Error(err))

		os.Exit(1)
	}
}

func run(ctx context.Context, config cfg.Config, l *zap.Logger) error {
	meterProvider := sdkmetric.NewMeterProvider()
	defer meterProvider.Shutdown(context.Background())

	metrics, err := telemetry.NewMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("error creating metrics: %w", err)
	}

	device := scull.New(
		config.NewAllocator(),
		config.MaxBlocks,
		scull.MultiObserver(logger.NewObserver(l), metrics.Observer()),
	)

	l.Info("created device",
		zap.Stringer("device_id", device.ID()),
		zap.String("allocator", config.Allocator),
		zap.String("max_size", humanize.IBytes(uint64(config.MaxBlocks*block.Size))),
		zap.String("export_size", humanize.IBytes(uint64(config.ExportSize))),
	)

	server := nbd.NewServer(device, config.SocketPath, config.ExportName, config.ExportSize, l)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-server.Ready():
		}

		l.Info("nbd export ready",
			zap.String("socket", server.SocketPath()),
			zap.String("connect", fmt.Sprintf("nbd-client -unix %s /dev/nbdX -N %s", server.SocketPath(), config.ExportName)),
		)

		return nil
	})

	waitErr := g.Wait()

	stats := device.Stats()
	l.Info("device stats",
		zap.Int64("rows", stats.Rows),
		zap.Int64("materialized", stats.Materialized),
		zap.Int64("written", stats.Written),
		zap.String("logical_size", humanize.IBytes(uint64(stats.LogicalSize))),
	)

	closeErr := device.Close()
	removeErr := os.Remove(config.SocketPath)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}

	return errors.Join(waitErr, closeErr, removeErr)
}
