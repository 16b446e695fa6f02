package main

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heap2d/heap"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configName string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Exercise and inspect the heap2d allocator",
	Long: `heapctl builds a heap2d allocator from one of the predefined
configurations, drives synthetic workloads through it, and reports the
resulting arena and size class statistics.`,
	Version: "0.1.0",
}

var json = jsoniter.Config{
	EscapeHTML:    true,
	SortMapKeys:   true,
	CaseSensitive: true,
}.Froze()

var printer = message.NewPrinter(language.English)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVarP(&configName, "config", "c", "default", "Allocator configuration (default, compact, large)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configs lists the predefined allocator configurations by flag name.
var configs = map[string]heap.Config{
	"default": heap.ConfigDefault,
	"compact": heap.ConfigCompact,
	"large":   heap.ConfigLarge,
}

// selectedConfig resolves the --config flag.
func selectedConfig() (heap.Config, error) {
	cfg, ok := configs[strings.ToLower(configName)]
	if !ok {
		return heap.Config{}, fmt.Errorf("unknown config %q (want default, compact or large)", configName)
	}
	return cfg, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", out)
	return err
}

// formatNumber groups digits the way the English locale does.
func formatNumber[T int | int64 | uint64](n T) string {
	return printer.Sprintf("%d", n)
}
