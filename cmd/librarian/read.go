package main

import (
	"encoding/json"
	"fmt"

	"github.com/andreyvit/librarian"
	"github.com/spf13/cobra"
)

var (
	readValues  string
	readReverse bool
	readPeek    string
	readLimit   int
)

func init() {
	cmd := newReadCmd()
	cmd.Flags().StringVar(&readValues, "v", "", "Query values as JSON: a scalar, a [lo, hi] range for a single field, or a list whose elements are values or [lo, hi] ranges")
	cmd.Flags().BoolVar(&readReverse, "reverse", false, "Return documents in descending key order")
	cmd.Flags().StringVar(&readPeek, "peek", "", "Return only the first or last entry of the range")
	cmd.Flags().IntVar(&readLimit, "limit", 0, "Stop after this many documents")
	rootCmd.AddCommand(cmd)
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <fields>",
		Short: "Query an index",
		Long: `The read command scans the index named by <fields> (comma-separated for a
composite index) and prints the matching documents as JSON.

Example:
  librarian read name --v '"Ann"'
  librarian read age --v '[18, 30]' --reverse
  librarian read city,age --v '["Oslo", [18, 30]]'
  librarian read createdAt --peek last`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(args)
		},
	}
	return cmd
}

func runRead(args []string) error {
	var rawValues any
	if readValues != "" {
		if err := json.Unmarshal([]byte(readValues), &rawValues); err != nil {
			return fmt.Errorf("--v: %w", err)
		}
	}
	q, err := librarian.ParseQuery(parseFieldsFlag(args[0]), rawValues)
	if err != nil {
		return err
	}
	q.Peek, err = librarian.ParsePeek(readPeek)
	if err != nil {
		return err
	}
	q.Reverse = readReverse

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	cfg, err := newConfig(store)
	if err != nil {
		return err
	}

	cursor, err := librarian.Read(cfg, q)
	if err != nil {
		return err
	}
	var n int
	for doc, err := range cursor.All() {
		if err != nil {
			return err
		}
		if err := printJSON(jsonDocument{Key: doc.Key, Value: doc.Value}); err != nil {
			return err
		}
		n++
		if readLimit > 0 && n >= readLimit {
			break
		}
	}
	return nil
}
