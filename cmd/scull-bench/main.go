package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
)

func main() {
	targetName := flag.String("target", targetScull, "device to benchmark: scull or null")
	allocator := flag.String("allocator", "heap", "block allocator: heap or mmap")
	workers := flag.Int("workers", 4, "number of concurrent handles")
	ops := flag.Int("ops", 1000, "write+read pairs per worker")
	size := flag.Int64("size", block.Size, "bytes per operation")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := options{
		target:  *targetName,
		workers: *workers,
		ops:     *ops,
		size:    *size,
	}

	switch *allocator {
	case "heap":
		opts.allocator = block.NewHeapAllocator(0)
	case "mmap":
		opts.allocator = block.NewMmapAllocator()
	default:
		fmt.Fprintf(os.Stderr, "unknown allocator %q\n", *allocator)

		os.Exit(2)
	}

	r, err := runBenchmark(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)

		os.Exit(1)
	}

	fmt.Printf("target %s, %d workers x %d ops of %s\n\n", opts.target, opts.workers, opts.ops, humanize.IBytes(uint64(opts.size)))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tRESULT\tCOUNT\tMIN (us)\tMAX (us)\tMEAN (us)")
	for _, s := range r.summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.2f\n", s.Metric, s.Result, s.Count, s.Min, s.Max, s.Mean)
	}
	tw.Flush()

	if opts.target == targetScull {
		fmt.Printf("\nrows %d, materialized %d, written %d, logical size %s\n",
			r.stats.Rows,
			r.stats.Materialized,
			r.stats.Written,
			humanize.IBytes(uint64(r.stats.LogicalSize)),
		)
	}
}
