package sizeclass

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/heap2d/heap/arena"
)

// ErrCorrupt reports an inconsistency found by Verify.
var ErrCorrupt = errors.New("sizeclass: inconsistent metadata")

// Arenas returns the arenas the class owns: the current arena first, then
// the free list and the full list in order.
func (c Class) Arenas(src *arena.Source) []arena.Arena {
	var out []arena.Arena
	if cur := c.Current(); cur != 0 {
		out = append(out, src.At(cur))
	}
	for _, head := range []uintptr{c.FreeList(), c.FullList()} {
		for n, addr := 0, head; addr != 0 && n <= 1<<20; n++ {
			a := src.At(addr)
			out = append(out, a)
			addr = a.Next()
		}
	}
	return out
}

func (c Class) wantMode() arena.Mode {
	switch c.Index() {
	case Varlen:
		return arena.ModeVarlen
	case Huge:
		return arena.ModeHuge
	default:
		return arena.ModeObject
	}
}

// Verify checks the class record and every tracked arena without modifying
// anything.
func (c Class) Verify(src *arena.Source) error {
	var errs []error
	addr := c.Addr()
	want := c.wantMode()

	if c.Index() != Huge && c.Current() == 0 {
		errs = append(errs, fmt.Errorf("%w: class 0x%X has no current arena", ErrCorrupt, addr))
	}
	if c.Index() == Huge && c.Current() != 0 {
		errs = append(errs, fmt.Errorf("%w: huge class 0x%X has a current arena", ErrCorrupt, addr))
	}

	back := uintptr(0)
	listed := 0
	for a := src.At(c.FreeList()); !a.IsNil(); a = src.At(a.Next()) {
		if a.Prev() != back {
			errs = append(errs, fmt.Errorf("%w: class 0x%X arena 0x%X back link 0x%X, want 0x%X",
				ErrCorrupt, addr, a.Addr(), a.Prev(), back))
		}
		if a.Addr() == c.Current() {
			errs = append(errs, fmt.Errorf("%w: class 0x%X current arena 0x%X is on the free list",
				ErrCorrupt, addr, a.Addr()))
		}
		if want == arena.ModeObject && a.IsFull() {
			errs = append(errs, fmt.Errorf("%w: class 0x%X full arena 0x%X is on the free list",
				ErrCorrupt, addr, a.Addr()))
		}
		back = a.Addr()
		listed++
		if listed > 1<<20 {
			errs = append(errs, fmt.Errorf("%w: class 0x%X free list cycles", ErrCorrupt, addr))
			break
		}
	}
	full := uintptr(0)
	for a, n := src.At(c.FullList()), 0; !a.IsNil(); a, n = src.At(a.Next()), n+1 {
		if want != arena.ModeObject {
			errs = append(errs, fmt.Errorf("%w: class 0x%X is not a fixed tier but tracks full arena 0x%X",
				ErrCorrupt, addr, a.Addr()))
			break
		}
		if a.Prev() != full {
			errs = append(errs, fmt.Errorf("%w: class 0x%X full arena 0x%X back link 0x%X, want 0x%X",
				ErrCorrupt, addr, a.Addr(), a.Prev(), full))
		}
		if !a.IsFull() || a.Addr() == c.Current() {
			errs = append(errs, fmt.Errorf("%w: class 0x%X arena 0x%X on the full list has %d free slots",
				ErrCorrupt, addr, a.Addr(), a.FreeCount()))
		}
		full = a.Addr()
		if n > 1<<20 {
			errs = append(errs, fmt.Errorf("%w: class 0x%X full list cycles", ErrCorrupt, addr))
			break
		}
	}
	if c.Index() == Huge && uint64(listed) != c.Count() {
		errs = append(errs, fmt.Errorf("%w: huge class 0x%X tracks %d arenas, count %d",
			ErrCorrupt, addr, listed, c.Count()))
	}

	live := uint64(0)
	for _, a := range c.Arenas(src) {
		if a.Mode() != want {
			errs = append(errs, fmt.Errorf("%w: class 0x%X arena 0x%X is %s, want %s",
				ErrCorrupt, addr, a.Addr(), a.Mode(), want))
			continue
		}
		if a.Owner() != addr {
			errs = append(errs, fmt.Errorf("%w: class 0x%X arena 0x%X owned by 0x%X",
				ErrCorrupt, addr, a.Addr(), a.Owner()))
		}
		if err := a.Verify(); err != nil {
			errs = append(errs, err)
		}
		if want == arena.ModeObject {
			live += uint64(a.MaxCount() - a.FreeCount())
		}
	}
	if want == arena.ModeObject && live != c.Count() {
		errs = append(errs, fmt.Errorf("%w: class 0x%X arenas hold %d objects, count %d",
			ErrCorrupt, addr, live, c.Count()))
	}
	return errors.Join(errs...)
}

// Describe returns a one-line summary of the class.
func (c Class) Describe(src *arena.Source) string {
	switch c.Index() {
	case Varlen:
		return fmt.Sprintf("class (varlen) 0x%X count %d current 0x%X free list 0x%X",
			c.Addr(), c.Count(), c.Current(), c.FreeList())
	case Huge:
		return fmt.Sprintf("class (huge) 0x%X count %d", c.Addr(), c.Count())
	default:
		return fmt.Sprintf("class (object) 0x%X type %d index %d size %d count %d current 0x%X free list 0x%X",
			c.Addr(), c.TypeID(), c.Index(), src.Layout.ClassObjectSize(c.Index()), c.Count(), c.Current(), c.FreeList())
	}
}

// Dump writes the class summary followed by each tracked arena.
func (c Class) Dump(w io.Writer, src *arena.Source) {
	fmt.Fprintln(w, c.Describe(src))
	for _, a := range c.Arenas(src) {
		a.Dump(w)
	}
}
