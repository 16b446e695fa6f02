package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heap2d/heap"
)

func init() {
	rootCmd.AddCommand(newConfCmd())
}

func newConfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conf",
		Short: "Show the allocator geometry for a configuration",
		Long: `The conf command builds an allocator from the selected configuration
and prints the geometry it derives: arena size, fixed tiers, varlen ceiling
and type table sizing.

Example:
  heapctl conf
  heapctl conf --config compact --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConf()
		},
	}
	return cmd
}

type confReport struct {
	Name         string        `json:"name"`
	TableBuckets int           `json:"table_buckets"`
	TableMaxLoad int           `json:"table_max_load"`
	Geometry     heap.Geometry `json:"geometry"`
}

func runConf() error {
	cfg, err := selectedConfig()
	if err != nil {
		return err
	}
	a, err := heap.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build allocator: %w", err)
	}
	defer a.Close()

	if jsonOut {
		return printJSON(confReport{
			Name:         cfg.Name,
			TableBuckets: cfg.TableBuckets,
			TableMaxLoad: cfg.TableMaxLoad,
			Geometry:     a.Geometry(),
		})
	}
	if !quiet {
		a.DumpConfig(os.Stdout)
	}
	return nil
}
