//go:build linux || darwin

package pages

import (
	"errors"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/stats"
)

var (
	// ErrMapFailed indicates the OS refused an anonymous mapping.
	ErrMapFailed = errors.New("pages: mmap failed")

	// ErrUnmapFailed indicates the OS refused to release a mapping.
	ErrUnmapFailed = errors.New("pages: munmap failed")

	// ErrNotPow2 indicates an aligned request for a page count that is not a power of two.
	ErrNotPow2 = errors.New("pages: aligned page count must be a power of two")
)

const (
	mapProt  = unix.PROT_READ | unix.PROT_WRITE
	mapFlags = unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_NORESERVE
)

// Provider maps and unmaps whole pages.
type Provider struct {
	stats *stats.Counters
	log   *slog.Logger
}

// NewProvider creates a provider that records every mapping in st.
func NewProvider(st *stats.Counters, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Provider{stats: st, log: log}
}

// OSPageSize returns the page size of the running system.
func OSPageSize() int {
	return unix.Getpagesize()
}

// Map returns the address of count fresh zeroed pages.
func (p *Provider) Map(count int) uintptr {
	if count <= 0 {
		format.Fatalf(ErrMapFailed, "invalid page count %d", count)
	}
	length := uintptr(count) * format.PageSize
	ptr, err := unix.MmapPtr(-1, 0, nil, length, mapProt, mapFlags)
	if err != nil {
		p.log.Error("mmap failed", "pages", count, "error", err)
		format.Fatalf(ErrMapFailed, "%d pages: %v", count, err)
	}
	p.stats.MapCalls++
	p.stats.MappedPages += uint64(count)
	return uintptr(ptr)
}

// MapAligned maps 2*count pages and returns the first address inside the
// mapping that is aligned to count pages, together with the raw base that must
// later be handed to Unmap. count must be a power of two.
func (p *Provider) MapAligned(count int) (aligned, base uintptr) {
	if !format.IsPow2(count) {
		format.Fatalf(ErrNotPow2, "count %d", count)
	}
	base = p.Map(2 * count)
	aligned = format.AlignPtr(base, uintptr(count)*format.PageSize)
	return aligned, base
}

// Unmap releases count pages starting at addr.
func (p *Provider) Unmap(addr uintptr, count int) {
	length := uintptr(count) * format.PageSize
	if err := unix.MunmapPtr(Pointer(addr), length); err != nil {
		p.log.Error("munmap failed", "addr", addr, "pages", count, "error", err)
		format.Fatalf(ErrUnmapFailed, "0x%X (%d pages): %v", addr, count, err)
	}
	p.stats.UnmapCalls++
	p.stats.UnmappedPages += uint64(count)
}

// Stats returns the counters this provider updates.
func (p *Provider) Stats() *stats.Counters {
	return p.stats
}
