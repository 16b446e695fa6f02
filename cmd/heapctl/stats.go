package main

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/joshuapare/heap2d/heap"
)

var (
	statsURL string
)

func init() {
	cmd := newStatsCmd()
	cmd.Flags().StringVar(&statsURL, "url", "http://127.0.0.1:8077/stats", "Stats endpoint of a running heapctl serve")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics from a running allocator",
		Long: `The stats command fetches the counters of an allocator hosted by
"heapctl serve" and prints mapping, arena and size class activity.

Example:
  heapctl stats
  heapctl stats --url http://10.0.0.5:8077/stats --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

// statsSnapshot is the body served on /stats.
type statsSnapshot struct {
	Config         string     `json:"config"`
	PageSize       int        `json:"page_size"`
	NetMappedPages int64      `json:"net_mapped_pages"`
	TableBuckets   int        `json:"table_buckets"`
	TableEntries   int        `json:"table_entries"`
	Counters       heap.Stats `json:"counters"`
}

func snapshot(a *heap.Allocator) statsSnapshot {
	return statsSnapshot{
		Config:         a.Config().Name,
		PageSize:       a.Geometry().PageSize,
		NetMappedPages: a.NetMappedPages(),
		TableBuckets:   a.TableBucketCount(),
		TableEntries:   a.TableEntryCount(),
		Counters:       a.Stats(),
	}
}

func runStats() error {
	printVerbose("Fetching %s\n", statsURL)

	status, body, err := fasthttp.Get(nil, statsURL)
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}
	if status != fasthttp.StatusOK {
		return fmt.Errorf("stats endpoint returned %d: %s", status, strings.TrimSpace(string(body)))
	}

	var s statsSnapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return fmt.Errorf("failed to decode stats: %w", err)
	}

	if jsonOut {
		return printJSON(s)
	}
	printStats(s)
	return nil
}

// printStats writes the text rendition of s.
func printStats(s statsSnapshot) {
	c := s.Counters
	net := max(s.NetMappedPages, 0)

	printInfo("\nAllocator Statistics: %s\n", s.Config)
	printInfo("%s\n\n", strings.Repeat("=", 40))

	printInfo("Calls:\n")
	printInfo("  Alloc: %s\n", formatNumber(c.AllocCalls))
	printInfo("  Free: %s\n", formatNumber(c.FreeCalls))
	printInfo("  Live: %s\n\n", formatNumber(int64(c.AllocCalls)-int64(c.FreeCalls)))

	printInfo("Mappings:\n")
	printInfo("  mmap: %s calls, %s pages\n", formatNumber(c.MapCalls), formatNumber(c.MappedPages))
	printInfo("  munmap: %s calls, %s pages\n", formatNumber(c.UnmapCalls), formatNumber(c.UnmappedPages))
	printInfo("  Resident: %s pages (%s)\n\n",
		formatNumber(net), humanize.IBytes(uint64(net)*uint64(s.PageSize)))

	printInfo("Size Classes:\n")
	printInfo("  Created: %s\n", formatNumber(c.ClassInits))
	printInfo("  Released: %s\n", formatNumber(c.ClassFrees))
	printInfo("  Table: %s entries in %s buckets (%s evictions, %s resizes)\n\n",
		formatNumber(s.TableEntries), formatNumber(s.TableBuckets),
		formatNumber(c.TableEvictions), formatNumber(c.TableResizes))

	printInfo("Arenas:\n")
	printInfo("  Created: %s\n", formatNumber(c.ArenaInits))
	printInfo("  Released: %s\n", formatNumber(c.ArenaFrees))
	printInfo("  Current -> full: %s\n", formatNumber(c.ArenaCurrToFull))
	printInfo("  Full -> free list: %s\n", formatNumber(c.ArenaFullToFree))
	printInfo("  Free list -> current: %s\n", formatNumber(c.ArenaFreeToCurr))
}
