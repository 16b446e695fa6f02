//go:build linux || darwin

package heap

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type liveAlloc struct {
	ptr  uintptr
	size int
	seed byte
}

// Test_Property_RandomWorkload drives a seeded mix of typed, untyped, varlen
// and huge requests, checking contents and metadata as it goes.
func Test_Property_RandomWorkload(t *testing.T) {
	for _, seed := range []int64{1, 42, 2024} {
		t.Run("", func(t *testing.T) {
			runRandomWorkload(t, seed, 4000)
		})
	}
}

func runRandomWorkload(t *testing.T, seed int64, ops int) {
	cfg := ConfigCompact
	cfg.TableBuckets = 8
	a := newTestAllocator(t, cfg)
	rng := rand.New(rand.NewSource(seed))
	l := a.layout

	randomSize := func() int {
		switch r := rng.Intn(100); {
		case r < 70:
			return rng.Intn(l.ObjectMaxSize + 1)
		case r < 95:
			return l.ObjectMaxSize + 1 + rng.Intn(l.VarlenMaxPayload-l.ObjectMaxSize)
		default:
			return l.VarlenMaxPayload + 1 + rng.Intn(2*l.ArenaSize)
		}
	}

	var live []liveAlloc
	for i := 0; i < ops; i++ {
		if len(live) > 0 && rng.Intn(100) < 45 {
			j := rng.Intn(len(live))
			x := live[j]
			requirePattern(t, a, x.ptr, x.size, x.seed)
			a.Dealloc(x.ptr)
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			size := randomSize()
			var p uintptr
			if rng.Intn(2) == 0 {
				p = a.TypedAlloc(uint64(rng.Intn(16)), size)
			} else {
				p = a.Alloc(size)
			}
			require.NotZero(t, p)
			require.Zero(t, p%8)
			require.GreaterOrEqual(t, a.AllocationSize(p), size)
			x := liveAlloc{ptr: p, size: size, seed: byte(rng.Intn(256))}
			fill(a, x.ptr, x.size, x.seed)
			live = append(live, x)
		}
		if i%500 == 0 {
			require.NoError(t, a.Check(), "op %d", i)
		}
	}

	for _, x := range live {
		requirePattern(t, a, x.ptr, x.size, x.seed)
		a.Dealloc(x.ptr)
	}
	require.NoError(t, a.Check())
	s := a.Stats()
	require.Equal(t, s.AllocCalls, s.FreeCalls)
}

func Test_Locked_Concurrent(t *testing.T) {
	a, err := New(ConfigCompact)
	require.NoError(t, err)
	l := NewLocked(a)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(g)))
			var mine []uintptr
			for i := 0; i < 500; i++ {
				if len(mine) > 0 && rng.Intn(3) == 0 {
					l.Dealloc(mine[len(mine)-1])
					mine = mine[:len(mine)-1]
					continue
				}
				size := 1 + rng.Intn(2048)
				if g%2 == 0 {
					mine = append(mine, l.TypedAlloc(uint64(g), size))
				} else {
					mine = append(mine, l.Alloc(size))
				}
			}
			for _, p := range mine {
				l.Dealloc(p)
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, l.Check())
	s := l.Stats()
	require.Equal(t, s.AllocCalls, s.FreeCalls)
	l.Do(func(a *Allocator) {
		require.Positive(t, a.TableEntryCount())
	})
	require.NoError(t, l.Close())
	require.Zero(t, a.NetMappedPages())
}
