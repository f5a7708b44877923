package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
	"github.com/e2b-dev/infra/packages/scull/pkg/blockio"
	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
	"github.com/e2b-dev/infra/packages/scull/pkg/telemetry"
)

const (
	targetScull = "scull"
	targetNull  = "null"
)

type options struct {
	target    string
	allocator block.Allocator
	workers   int
	ops       int
	size      int64
}

type report struct {
	summaries []telemetry.Summary
	stats     block.Stats
}

type target interface {
	blockio.Reader
	blockio.Writer
	io.Closer
}

// observed reports calls on a target that has no handle of its own.
type observed struct {
	target   scull.Null
	observer scull.Observer
	id       uuid.UUID
}

func (o observed) Read(p []byte, off int64) (n int, err error) {
	done := o.observer.Begin(scull.Call{Device: o.id, Op: scull.OpRead, Offset: off, Length: int64(len(p))})
	defer func() {
		done(int64(n), err)
	}()

	return o.target.Read(p, off)
}

func (o observed) Write(p []byte, off int64) (n int, err error) {
	done := o.observer.Begin(scull.Call{Device: o.id, Op: scull.OpWrite, Offset: off, Length: int64(len(p))})
	defer func() {
		done(int64(n), err)
	}()

	return o.target.Write(p, off)
}

func (o observed) Close() error {
	return nil
}

func runBenchmark(ctx context.Context, opts options) (report, error) {
	if opts.workers <= 0 || opts.ops <= 0 || opts.size <= 0 {
		return report{}, fmt.Errorf("workers, ops and size must be positive")
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := telemetry.NewMetrics(provider)
	if err != nil {
		return report{}, fmt.Errorf("error creating metrics: %w", err)
	}

	var device *scull.Device
	var open func() (target, error)

	switch opts.target {
	case targetScull:
		device = scull.New(opts.allocator, 0, metrics.Observer())
		defer device.Close()

		open = func() (target, error) {
			h, err := device.Open()
			if err != nil {
				return nil, err
			}

			return h, nil
		}
	case targetNull:
		id := uuid.New()
		open = func() (target, error) {
			return observed{observer: metrics.Observer(), id: id}, nil
		}
	default:
		return report{}, fmt.Errorf("unknown target %q", opts.target)
	}

	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < opts.workers; w++ {
		g.Go(func() error {
			t, err := open()
			if err != nil {
				return fmt.Errorf("worker %d failed to open target: %w", w, err)
			}
			defer t.Close()

			return work(ctx, t, w, opts)
		})
	}

	if err := g.Wait(); err != nil {
		return report{}, err
	}

	summaries, err := telemetry.Summarize(context.Background(), reader)
	if err != nil {
		return report{}, err
	}

	r := report{summaries: summaries}
	if device != nil {
		r.stats = device.Stats()
	}

	return r, nil
}

// work writes ops buffers into the worker's own region and reads them back.
func work(ctx context.Context, t target, worker int, opts options) error {
	region := int64(worker) * int64(opts.ops) * opts.size

	data := make([]byte, opts.size)
	out := make([]byte, opts.size)

	for i := 0; i < opts.ops; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		off := region + int64(i)*opts.size
		for j := range data {
			data[j] = byte(worker + i + j)
		}

		_, err := blockio.WriteFull(t, data, off)
		if err != nil {
			return fmt.Errorf("worker %d failed to write at %d: %w", worker, off, err)
		}

		_, err = blockio.ReadFull(t, out, off)
		if errors.Is(err, io.EOF) && opts.target == targetNull {
			continue
		}

		if err != nil {
			return fmt.Errorf("worker %d failed to read at %d: %w", worker, off, err)
		}

		if !bytes.Equal(data, out) {
			return fmt.Errorf("worker %d: data mismatch at %d", worker, off)
		}
	}

	return nil
}
