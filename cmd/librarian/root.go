package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/andreyvit/librarian"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	storePath   string
	engine      string
	encoding    string
	indexes     []string
	concurrency int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Write and query indexed documents in a bolt or pebble store",
	Long: `librarian stores JSON documents in an ordered key-value store together
with secondary index entries, and answers exact and range queries over them.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "librarian.db", "Path of the bolt file or pebble directory")
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "bolt", "Storage engine: bolt or pebble")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "msgpack", "Document value encoding: msgpack or json")
	rootCmd.PersistentFlags().StringArrayVarP(&indexes, "index", "i", nil, "Index definition, comma-separated paths for a composite index (repeatable)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 1, "Documents resolved in parallel while reading")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every read and write")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (librarian.Store, error) {
	switch engine {
	case "bolt":
		return librarian.OpenBolt(storePath, librarian.BoltOptions{})
	case "pebble":
		return librarian.OpenPebble(storePath, librarian.PebbleOptions{Sync: true})
	default:
		return nil, fmt.Errorf("unknown engine %q, wanted bolt or pebble", engine)
	}
}

// parseFieldsFlag turns "a,b" into a composite definition and "a" into a
// single-field one.
func parseFieldsFlag(s string) librarian.Fields {
	if strings.Contains(s, ",") {
		return librarian.Composite(strings.Split(s, ",")...)
	}
	return librarian.Single(s)
}

func newConfig(store librarian.Store) (librarian.Config, error) {
	enc, err := librarian.ParseEncoding(encoding)
	if err != nil {
		return librarian.Config{}, err
	}
	cfg := librarian.Config{
		Store:       store,
		Encoding:    enc,
		Concurrency: concurrency,
		Verbose:     verbose,
	}
	for _, s := range indexes {
		cfg.Indexes = append(cfg.Indexes, parseFieldsFlag(s))
	}
	if verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
