package cfg

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
)

const (
	AllocatorHeap = "heap"
	AllocatorMmap = "mmap"
)

type Config struct {
	Allocator   string `env:"SCULL_ALLOCATOR"   envDefault:"heap"`
	Debug       bool   `env:"E2B_DEBUG"         envDefault:"false"`
	Environment string `env:"ENVIRONMENT"       envDefault:"local"`
	ExportName  string `env:"SCULL_EXPORT_NAME" envDefault:"scull"`
	ExportSize  int64  `env:"SCULL_EXPORT_SIZE" envDefault:"67108864"`
	MaxBlocks   int64  `env:"SCULL_MAX_BLOCKS"  envDefault:"262144"`
	ServiceName string `env:"SERVICE_NAME"      envDefault:"scull"`
	SocketPath  string `env:"SCULL_SOCKET_PATH" envDefault:"/tmp/scull.sock"`
}

func Parse() (Config, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.Allocator != AllocatorHeap && c.Allocator != AllocatorMmap {
		return fmt.Errorf("unknown allocator %q", c.Allocator)
	}

	if c.MaxBlocks <= 0 {
		return fmt.Errorf("max blocks must be positive, got %d", c.MaxBlocks)
	}

	if c.ExportSize <= 0 || c.ExportSize%block.Size != 0 {
		return fmt.Errorf("export size %d must be a positive multiple of %d", c.ExportSize, block.Size)
	}

	if c.ExportSize/block.Size > c.MaxBlocks {
		return fmt.Errorf("export size %d does not fit in %d blocks", c.ExportSize, c.MaxBlocks)
	}

	return nil
}

func (c Config) IsLocal() bool {
	return c.Environment == "local"
}

// NewAllocator returns the allocator selected by the config.
func (c Config) NewAllocator() block.Allocator {
	if c.Allocator == AllocatorMmap {
		return block.NewMmapAllocator()
	}

	return block.NewHeapAllocator(c.MaxBlocks)
}
