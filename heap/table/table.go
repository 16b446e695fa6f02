// Package table maps (type tag, tier index) pairs to typed size classes.
//
// Buckets live in mapped pages and hold the address of the first record of a
// singly linked chain threaded through the records' next field. Lookups
// evict every empty class they walk past, so classes whose population drops
// to zero are reclaimed lazily without a separate sweep.
//
// Not thread-safe.
package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/heap2d/heap/arena"
	"github.com/joshuapare/heap2d/heap/sizeclass"
	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
)

const (
	bucketSize = 8
	indexBits  = 9 // fixed tiers never exceed MaxObjectMaxSize/ClassIncrement = 512
)

var (
	// ErrBadBuckets indicates a bucket count that is not a power of two.
	ErrBadBuckets = errors.New("table: bucket count must be a power of two")

	// ErrCorrupt reports an inconsistency found by Verify.
	ErrCorrupt = errors.New("table: inconsistent chains")
)

// Table is the type-keyed size class table.
type Table struct {
	src  *arena.Source
	meta sizeclass.Class

	addr    uintptr // bucket array mapping
	mapped  int     // pages backing the bucket array
	buckets []byte
	mask    uint64

	entries int
	maxLoad int // entries per bucket before doubling, 0 = fixed
}

// New creates a table with the given number of buckets. Records for new
// classes are allocated from meta.
func New(src *arena.Source, meta sizeclass.Class, buckets, maxLoad int) (*Table, error) {
	if !format.IsPow2(buckets) {
		return nil, fmt.Errorf("%w: %d", ErrBadBuckets, buckets)
	}
	if maxLoad < 0 {
		return nil, fmt.Errorf("table: negative max load %d", maxLoad)
	}
	t := &Table{src: src, meta: meta, maxLoad: maxLoad}
	t.addr, t.mapped, t.buckets = mapBuckets(src, buckets)
	t.mask = uint64(buckets - 1)
	return t, nil
}

func mapBuckets(src *arena.Source, n int) (uintptr, int, []byte) {
	count := format.PagesFor(n * bucketSize)
	addr := src.Pages.Map(count)
	return addr, count, pages.Bytes(addr, n*bucketSize)
}

// Hash mixes a type tag and tier index into a 64-bit hash.
func Hash(typeID uint64, index int) uint64 {
	h := typeID<<indexBits | uint64(index)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// Bucket returns the bucket a key hashes to.
func (t *Table) Bucket(typeID uint64, index int) int {
	return int(Hash(typeID, index) & t.mask)
}

func (t *Table) head(b int) uintptr { return format.ReadAddr(t.buckets, b*bucketSize) }
func (t *Table) setHead(b int, a uintptr) { format.PutAddr(t.buckets, b*bucketSize, a) }

// BucketCount returns the number of buckets.
func (t *Table) BucketCount() int { return len(t.buckets) / bucketSize }

// EntryCount returns the number of classes in the table.
func (t *Table) EntryCount() int { return t.entries }

// FindOrCreate returns the class for (typeID, index), creating it when
// absent. Empty classes passed during the chain walk are freed.
func (t *Table) FindOrCreate(typeID uint64, index int) sizeclass.Class {
	b := t.Bucket(typeID, index)
	if c := t.find(b, typeID, index); !c.IsNil() {
		return c
	}
	c := sizeclass.New(t.src, t.meta, typeID, index)
	c.SetNext(t.head(b))
	t.setHead(b, c.Addr())
	t.entries++
	if t.maxLoad > 0 && t.entries > t.BucketCount()*t.maxLoad {
		t.grow()
	}
	return c
}

// find walks bucket b, evicting empty classes that do not match.
func (t *Table) find(b int, typeID uint64, index int) sizeclass.Class {
	prev := sizeclass.Class{}
	for c := sizeclass.At(t.head(b)); !c.IsNil(); {
		if c.TypeID() == typeID && c.Index() == index {
			return c
		}
		if c.Count() != 0 {
			prev = c
			c = sizeclass.At(c.Next())
			continue
		}
		next := c.Next()
		if prev.IsNil() {
			t.setHead(b, next)
		} else {
			prev.SetNext(next)
		}
		t.evict(c)
		c = sizeclass.At(next)
	}
	return sizeclass.Class{}
}

func (t *Table) evict(c sizeclass.Class) {
	t.src.Log.Debug("size class evicted", "type", c.TypeID(), "index", c.Index())
	sizeclass.Free(t.src, c)
	t.entries--
	t.src.Stats.TableEvictions++
}

// Lookup returns the class for (typeID, index) without creating or evicting
// anything.
func (t *Table) Lookup(typeID uint64, index int) sizeclass.Class {
	for c := sizeclass.At(t.head(t.Bucket(typeID, index))); !c.IsNil(); c = sizeclass.At(c.Next()) {
		if c.TypeID() == typeID && c.Index() == index {
			return c
		}
	}
	return sizeclass.Class{}
}

// grow doubles the bucket array and rehashes every chain.
func (t *Table) grow() {
	oldAddr, oldMapped, old := t.addr, t.mapped, t.buckets
	n := 2 * t.BucketCount()
	t.addr, t.mapped, t.buckets = mapBuckets(t.src, n)
	t.mask = uint64(n - 1)
	for b := 0; b < len(old)/bucketSize; b++ {
		for c := sizeclass.At(format.ReadAddr(old, b*bucketSize)); !c.IsNil(); {
			next := c.Next()
			nb := t.Bucket(c.TypeID(), c.Index())
			c.SetNext(t.head(nb))
			t.setHead(nb, c.Addr())
			c = sizeclass.At(next)
		}
	}
	t.src.Pages.Unmap(oldAddr, oldMapped)
	t.src.Stats.TableResizes++
	t.src.Log.Debug("table grown", "buckets", n, "entries", t.entries)
}

// Each calls fn for every class in bucket order.
func (t *Table) Each(fn func(b int, c sizeclass.Class)) {
	for b := 0; b < t.BucketCount(); b++ {
		for c := sizeclass.At(t.head(b)); !c.IsNil(); c = sizeclass.At(c.Next()) {
			fn(b, c)
		}
	}
}

// Release frees every class and unmaps the bucket array. The table must not
// be used afterwards.
func (t *Table) Release() {
	for b := 0; b < t.BucketCount(); b++ {
		for c := sizeclass.At(t.head(b)); !c.IsNil(); {
			next := c.Next()
			sizeclass.Free(t.src, c)
			c = sizeclass.At(next)
		}
	}
	t.src.Pages.Unmap(t.addr, t.mapped)
	t.buckets = nil
	t.entries = 0
}

// Verify checks that every class sits in the bucket its key hashes to, that
// keys are unique, and that the entry count matches.
func (t *Table) Verify() error {
	var errs []error
	type key struct {
		typeID uint64
		index  int
	}
	seen := make(map[key]struct{}, t.entries)
	n := 0
	t.Each(func(b int, c sizeclass.Class) {
		n++
		k := key{c.TypeID(), c.Index()}
		if want := t.Bucket(k.typeID, k.index); want != b {
			errs = append(errs, fmt.Errorf("%w: class (%d, %d) in bucket %d, hashes to %d",
				ErrCorrupt, k.typeID, k.index, b, want))
		}
		if _, dup := seen[k]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate class (%d, %d)", ErrCorrupt, k.typeID, k.index))
		}
		seen[k] = struct{}{}
		if err := c.Verify(t.src); err != nil {
			errs = append(errs, err)
		}
	})
	if n != t.entries {
		errs = append(errs, fmt.Errorf("%w: %d classes chained, entry count %d", ErrCorrupt, n, t.entries))
	}
	return errors.Join(errs...)
}

// Dump writes every chained class and its arenas to w.
func (t *Table) Dump(w io.Writer) {
	fmt.Fprintf(w, "table buckets %d entries %d\n", t.BucketCount(), t.entries)
	t.Each(func(b int, c sizeclass.Class) {
		fmt.Fprintf(w, "bucket %d: ", b)
		c.Dump(w, t.src)
	})
}
