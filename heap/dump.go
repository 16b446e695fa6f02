package heap

import (
	"errors"
	"fmt"
	"io"

	humanize "github.com/dustin/go-humanize"

	"github.com/joshuapare/heap2d/heap/sizeclass"
	"github.com/joshuapare/heap2d/internal/format"
)

// DumpConfig writes the allocator geometry to w.
func (a *Allocator) DumpConfig(w io.Writer) {
	l := a.layout
	fmt.Fprintf(w, "config %q\n", a.cfg.Name)
	fmt.Fprintf(w, "  page size        %s\n", humanize.IBytes(format.PageSize))
	fmt.Fprintf(w, "  arena            %d pages (%s)\n", l.ArenaPages, humanize.IBytes(uint64(l.ArenaSize)))
	fmt.Fprintf(w, "  arena header     %d bytes\n", format.ArenaHeaderSize)
	fmt.Fprintf(w, "  fixed tiers      %d (%d..%d bytes, step %d)\n",
		l.ClassCount, format.ClassIncrement, l.ObjectMaxSize, format.ClassIncrement)
	fmt.Fprintf(w, "  varlen ceiling   %s (block header %d bytes, split above %d)\n",
		humanize.IBytes(uint64(l.VarlenMaxPayload)), format.BlockHeaderSize, l.SplitThreshold)
	fmt.Fprintf(w, "  class record     %d bytes (meta tier %d)\n", format.ClassRecordSize, format.MetaClassIndex)
	fmt.Fprintf(w, "  table            %d buckets, max load %d\n", a.cfg.TableBuckets, a.cfg.TableMaxLoad)
}

// DumpStats writes the event counters to w.
func (a *Allocator) DumpStats(w io.Writer) {
	s := a.src.Stats
	net := s.NetMappedPages()
	fmt.Fprintf(w, "alloc %d free %d\n", s.AllocCalls, s.FreeCalls)
	fmt.Fprintf(w, "mmap %d (%d pages) munmap %d (%d pages) net %d pages (%s)\n",
		s.MapCalls, s.MappedPages, s.UnmapCalls, s.UnmappedPages,
		net, humanize.IBytes(uint64(max(net, 0))*format.PageSize))
	fmt.Fprintf(w, "class init %d free %d\n", s.ClassInits, s.ClassFrees)
	fmt.Fprintf(w, "arena init %d free %d\n", s.ArenaInits, s.ArenaFrees)
	fmt.Fprintf(w, "arena curr->full %d full->free %d free->curr %d\n",
		s.ArenaCurrToFull, s.ArenaFullToFree, s.ArenaFreeToCurr)
	if a.types != nil {
		fmt.Fprintf(w, "table buckets %d entries %d evictions %d resizes %d\n",
			a.types.BucketCount(), a.types.EntryCount(), s.TableEvictions, s.TableResizes)
	}
}

// Dump writes every size class and arena the allocator tracks to w. Classes
// that have never served an allocation are skipped.
func (a *Allocator) Dump(w io.Writer) {
	a.checkOpen()
	a.eachRoot(func(c sizeclass.Class) {
		if c.Count() == 0 && len(c.Arenas(a.src)) <= 1 {
			return
		}
		c.Dump(w, a.src)
	})
	a.types.Dump(w)
}

// Check verifies every class, arena and table chain, returning all
// inconsistencies joined. It never modifies allocator state.
func (a *Allocator) Check() error {
	a.checkOpen()
	var errs []error
	a.eachRoot(func(c sizeclass.Class) {
		if err := c.Verify(a.src); err != nil {
			errs = append(errs, err)
		}
	})
	if err := a.types.Verify(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// eachRoot calls fn for the untyped tiers, then meta, varlen and huge.
func (a *Allocator) eachRoot(fn func(sizeclass.Class)) {
	for i := 0; i < a.layout.ClassCount; i++ {
		fn(a.untyped(i))
	}
	fn(a.meta)
	fn(a.varlen)
	fn(a.huge)
}
