package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andreyvit/librarian"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newWriteCmd())
}

func newWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write [file]",
		Short: "Write documents and their index entries",
		Long: `The write command reads a stream of JSON objects of the form
{"key": "...", "value": ...} from a file or stdin and writes each of them
together with an entry in every --index.

Example:
  librarian write -i name -i age,..key people.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(args)
		},
	}
	return cmd
}

type jsonDocument struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func runWrite(args []string) error {
	var r io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	cfg, err := newConfig(store)
	if err != nil {
		return err
	}

	var count int
	var decodeErr error
	dec := json.NewDecoder(r)
	docs := func(yield func(librarian.Document) bool) {
		for {
			var jd jsonDocument
			err := dec.Decode(&jd)
			if errors.Is(err, io.EOF) {
				return
			} else if err != nil {
				decodeErr = fmt.Errorf("document %d: %w", count+1, err)
				return
			}
			count++
			if !yield(librarian.Document{Key: jd.Key, Value: jd.Value}) {
				return
			}
		}
	}
	err = librarian.Write(cfg, docs)
	if err != nil {
		return err
	}
	if decodeErr != nil {
		return decodeErr
	}
	fmt.Fprintf(os.Stderr, "wrote %d documents\n", count)
	return nil
}
