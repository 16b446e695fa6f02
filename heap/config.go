package heap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
)

// ErrInvalidConfig indicates a Config that cannot be used to build an allocator.
var ErrInvalidConfig = errors.New("heap: invalid config")

// logAlloc enables debug logging to stderr when no logger is configured.
var logAlloc = os.Getenv("HEAP2D_LOG_ALLOC") != ""

// Config defines the allocator geometry.
type Config struct {
	// Name for this configuration (shown in dumps)
	Name string

	ArenaPages    int // pages per object/varlen arena, power of two
	MaxObjectSize int // largest request served by the fixed tiers, multiple of 8

	TableBuckets int // initial type table buckets, power of two
	TableMaxLoad int // entries per bucket before the table doubles; 0 = never grow

	// Logger receives debug events. Nil discards them unless HEAP2D_LOG_ALLOC
	// is set.
	Logger *slog.Logger
}

// Predefined configurations.
var (
	// ConfigDefault: 64 KiB arenas, 64 fixed tiers up to 512 bytes.
	ConfigDefault = Config{
		Name:          "Default",
		ArenaPages:    format.DefaultArenaPages,
		MaxObjectSize: format.DefaultObjectMaxSize,
		TableBuckets:  format.DefaultTableBuckets,
		TableMaxLoad:  1,
	}

	// ConfigCompact: small arenas and a small fixed table for tests and tools
	// that create many allocators.
	ConfigCompact = Config{
		Name:          "Compact",
		ArenaPages:    4,
		MaxObjectSize: 256,
		TableBuckets:  64,
		TableMaxLoad:  1,
	}

	// ConfigLarge: 256 KiB arenas with fixed tiers up to 2 KiB.
	ConfigLarge = Config{
		Name:          "Large",
		ArenaPages:    64,
		MaxObjectSize: 2048,
		TableBuckets:  format.DefaultTableBuckets,
		TableMaxLoad:  1,
	}
)

// DefaultConfig returns ConfigDefault.
func DefaultConfig() Config {
	return ConfigDefault
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if _, err := format.NewLayout(c.ArenaPages, c.MaxObjectSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if arenaSize := c.ArenaPages * format.PageSize; arenaSize%pages.OSPageSize() != 0 {
		return fmt.Errorf("%w: arena size %d is not a multiple of the OS page size %d",
			ErrInvalidConfig, arenaSize, pages.OSPageSize())
	}
	if !format.IsPow2(c.TableBuckets) {
		return fmt.Errorf("%w: table buckets %d must be a power of two", ErrInvalidConfig, c.TableBuckets)
	}
	if c.TableMaxLoad < 0 {
		return fmt.Errorf("%w: table max load %d must not be negative", ErrInvalidConfig, c.TableMaxLoad)
	}
	return nil
}

func (c Config) layout() format.Layout {
	l, err := format.NewLayout(c.ArenaPages, c.MaxObjectSize)
	if err != nil {
		panic(err) // Validate ran first
	}
	return l
}

func (c Config) logger() *slog.Logger {
	switch {
	case c.Logger != nil:
		return c.Logger
	case logAlloc:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
