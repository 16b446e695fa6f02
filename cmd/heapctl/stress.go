package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heap2d/heap"
)

var (
	stressOps        int
	stressSeed       int64
	stressMaxSize    int
	stressTypes      int
	stressFreePct    int
	stressHugePct    int
	stressCheckEvery int
	stressDump       bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 100000, "Number of alloc/free operations")
	cmd.Flags().Int64Var(&stressSeed, "seed", 42, "Random seed")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 4096, "Largest non-huge request size in bytes")
	cmd.Flags().IntVar(&stressTypes, "types", 16, "Distinct type tags for typed requests (0 = untyped only)")
	cmd.Flags().IntVar(&stressFreePct, "free-pct", 45, "Percent of operations that free a live allocation")
	cmd.Flags().IntVar(&stressHugePct, "huge-pct", 1, "Percent of allocations forced onto the huge path")
	cmd.Flags().IntVar(&stressCheckEvery, "check-every", 0, "Run the consistency check every N operations (0 = only at the end)")
	cmd.Flags().BoolVar(&stressDump, "dump", false, "Dump size classes and arenas before releasing live allocations")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a random allocation workload",
		Long: `The stress command drives a seeded mix of typed and untyped requests of
random size through a fresh allocator, frees everything that is still live,
and reports the allocator counters.

Example:
  heapctl stress --ops 1000000
  heapctl stress --config compact --types 0 --check-every 1000
  heapctl stress --huge-pct 10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

// allocator is the part of the heap API a workload needs. Both *heap.Allocator
// and *heap.Locked satisfy it.
type allocator interface {
	Alloc(size int) uintptr
	TypedAlloc(typeID uint64, size int) uintptr
	Dealloc(ptr uintptr)
	AllocationSize(ptr uintptr) int
	Check() error
}

type workload struct {
	Ops        int   `json:"ops"`
	Seed       int64 `json:"seed"`
	MaxSize    int   `json:"max_size"`
	Types      int   `json:"types"`
	FreePct    int   `json:"free_pct"`
	HugePct    int   `json:"huge_pct"`
	CheckEvery int   `json:"check_every"`
}

func (w workload) validate() error {
	switch {
	case w.Ops < 0:
		return fmt.Errorf("ops %d must not be negative", w.Ops)
	case w.MaxSize < 1:
		return fmt.Errorf("max size %d must be positive", w.MaxSize)
	case w.Types < 0:
		return fmt.Errorf("types %d must not be negative", w.Types)
	case w.FreePct < 0 || w.FreePct > 100:
		return fmt.Errorf("free percent %d out of range", w.FreePct)
	case w.HugePct < 0 || w.HugePct > 100:
		return fmt.Errorf("huge percent %d out of range", w.HugePct)
	case w.CheckEvery < 0:
		return fmt.Errorf("check interval %d must not be negative", w.CheckEvery)
	}
	return nil
}

type workloadResult struct {
	Allocs       int   `json:"allocs"`
	Frees        int   `json:"frees"`
	ObjectAllocs int   `json:"object_allocs"`
	VarlenAllocs int   `json:"varlen_allocs"`
	HugeAllocs   int   `json:"huge_allocs"`
	Requested    int64 `json:"requested_bytes"`
	Served       int64 `json:"served_bytes"`
	PeakLive     int   `json:"peak_live"`
	Checks       int   `json:"checks"`

	live []uintptr
}

// run executes w against a, leaving the surviving allocations in r.live.
func (w workload) run(a allocator, g heap.Geometry) (*workloadResult, error) {
	rng := rand.New(rand.NewSource(w.Seed))
	r := &workloadResult{}

	for i := 0; i < w.Ops; i++ {
		if len(r.live) > 0 && rng.Intn(100) < w.FreePct {
			j := rng.Intn(len(r.live))
			a.Dealloc(r.live[j])
			r.live[j] = r.live[len(r.live)-1]
			r.live = r.live[:len(r.live)-1]
			r.Frees++
		} else {
			size := 1 + rng.Intn(w.MaxSize)
			if rng.Intn(100) < w.HugePct {
				size = g.VarlenMaxPayload + 1 + rng.Intn(g.ArenaSize)
			}

			var p uintptr
			if w.Types > 0 && rng.Intn(2) == 0 {
				p = a.TypedAlloc(uint64(1+rng.Intn(w.Types)), size)
			} else {
				p = a.Alloc(size)
			}
			served := a.AllocationSize(p)
			if served < size {
				return r, fmt.Errorf("op %d: request of %d bytes served with %d", i, size, served)
			}

			switch {
			case size <= g.ObjectMaxSize:
				r.ObjectAllocs++
			case size <= g.VarlenMaxPayload:
				r.VarlenAllocs++
			default:
				r.HugeAllocs++
			}
			r.Allocs++
			r.Requested += int64(size)
			r.Served += int64(served)
			r.live = append(r.live, p)
			r.PeakLive = max(r.PeakLive, len(r.live))
		}

		if w.CheckEvery > 0 && (i+1)%w.CheckEvery == 0 {
			r.Checks++
			if err := a.Check(); err != nil {
				return r, fmt.Errorf("op %d: %w", i, err)
			}
		}
	}
	return r, nil
}

// release frees every allocation still live in r.
func (r *workloadResult) release(a allocator) {
	for _, p := range r.live {
		a.Dealloc(p)
		r.Frees++
	}
	r.live = nil
}

type stressReport struct {
	Workload workload       `json:"workload"`
	Result   workloadResult `json:"result"`
	Stats    statsSnapshot  `json:"stats"`
}

func runStress() error {
	cfg, err := selectedConfig()
	if err != nil {
		return err
	}
	w := workload{
		Ops:        stressOps,
		Seed:       stressSeed,
		MaxSize:    stressMaxSize,
		Types:      stressTypes,
		FreePct:    stressFreePct,
		HugePct:    stressHugePct,
		CheckEvery: stressCheckEvery,
	}
	if err := w.validate(); err != nil {
		return fmt.Errorf("invalid workload: %w", err)
	}

	a, err := heap.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build allocator: %w", err)
	}
	defer a.Close()

	printVerbose("Running %s operations with config %s (seed %d)\n", formatNumber(w.Ops), cfg.Name, w.Seed)

	r, runErr := w.run(a, a.Geometry())
	if stressDump && !jsonOut && !quiet {
		a.Dump(os.Stdout)
	}
	r.release(a)
	r.Checks++
	if err := errors.Join(runErr, a.Check()); err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}

	report := stressReport{Workload: w, Result: *r, Stats: snapshot(a)}
	if jsonOut {
		return printJSON(report)
	}
	printWorkload(report)
	printStats(report.Stats)
	return nil
}

func printWorkload(rep stressReport) {
	r := rep.Result
	printInfo("\nWorkload:\n")
	printInfo("  Operations: %s (seed %d)\n", formatNumber(rep.Workload.Ops), rep.Workload.Seed)
	printInfo("  Allocations: %s (object %s, varlen %s, huge %s)\n",
		formatNumber(r.Allocs), formatNumber(r.ObjectAllocs), formatNumber(r.VarlenAllocs), formatNumber(r.HugeAllocs))
	printInfo("  Frees: %s\n", formatNumber(r.Frees))
	printInfo("  Peak live: %s\n", formatNumber(r.PeakLive))
	if r.Requested > 0 {
		printInfo("  Requested: %s bytes, served %s bytes (%.1f%% slack)\n",
			formatNumber(r.Requested), formatNumber(r.Served),
			float64(r.Served-r.Requested)*100/float64(r.Requested))
	}
	printInfo("  Checks passed: %s\n", formatNumber(r.Checks))
}
