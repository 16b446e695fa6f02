package heap

import (
	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/stats"
)

// Stats is a snapshot of the allocator's event counters.
type Stats = stats.Counters

// Stats returns a copy of the current counters.
func (a *Allocator) Stats() Stats {
	return *a.src.Stats
}

// NetMappedPages returns pages mapped from the OS minus pages returned.
func (a *Allocator) NetMappedPages() int64 {
	return a.src.Stats.NetMappedPages()
}

// TableBucketCount returns the number of buckets in the type table.
func (a *Allocator) TableBucketCount() int {
	a.checkOpen()
	return a.types.BucketCount()
}

// TableEntryCount returns the number of typed size classes in the table.
func (a *Allocator) TableEntryCount() int {
	a.checkOpen()
	return a.types.EntryCount()
}

// Config returns the configuration the allocator was built with.
func (a *Allocator) Config() Config {
	return a.cfg
}

// Geometry is the derived layout of an allocator's arenas and tiers.
type Geometry struct {
	PageSize         int
	ArenaPages       int
	ArenaSize        int
	ClassCount       int // fixed tiers
	ObjectMaxSize    int
	VarlenMaxPayload int // largest request served by a varlen arena
	SplitThreshold   int
}

// Geometry reports the layout derived from the allocator's Config.
func (a *Allocator) Geometry() Geometry {
	l := a.layout
	return Geometry{
		PageSize:         format.PageSize,
		ArenaPages:       l.ArenaPages,
		ArenaSize:        l.ArenaSize,
		ClassCount:       l.ClassCount,
		ObjectMaxSize:    l.ObjectMaxSize,
		VarlenMaxPayload: l.VarlenMaxPayload,
		SplitThreshold:   l.SplitThreshold,
	}
}
