package main

import (
	"fmt"

	"github.com/andreyvit/librarian"
	"github.com/spf13/cobra"
)

var (
	dumpDocuments bool
	dumpStatsOnly bool
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().BoolVar(&dumpDocuments, "documents", true, "Include primary documents")
	cmd.Flags().BoolVar(&dumpStatsOnly, "stats", false, "Print only key counts and sizes")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the store's documents and decoded index entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump()
		},
	}
	return cmd
}

func runDump() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if dumpStatsOnly {
		s, err := librarian.Stats(store)
		if err != nil {
			return err
		}
		return printJSON(s)
	}

	enc, err := librarian.ParseEncoding(encoding)
	if err != nil {
		return err
	}
	flags := librarian.DumpAll
	if !dumpDocuments {
		flags &^= librarian.DumpDocuments
	}
	out, err := librarian.Dump(store, enc, flags)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
