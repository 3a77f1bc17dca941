package librarian

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// resolved is the outcome of looking up the document an index entry points
// at. A stale entry has no document.
type resolved struct {
	doc   Document
	stale bool
}

// resolveWindow fetches the documents keyed by docKeys, at most limit at a
// time. Results are in the order of docKeys regardless of completion order.
func resolveWindow(ctx context.Context, store Store, enc Encoding, docKeys [][]byte, limit int) ([]resolved, error) {
	out := make([]resolved, len(docKeys))
	if len(docKeys) == 1 || limit <= 1 {
		for i, k := range docKeys {
			r, err := resolveOne(store, enc, k)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, k := range docKeys {
		g.Go(func() error {
			r, err := resolveOne(store, enc, k)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func resolveOne(store Store, enc Encoding, docKey []byte) (resolved, error) {
	raw, err := store.Get(docKey)
	if errors.Is(err, ErrNotFound) {
		return resolved{doc: Document{Key: string(docKey)}, stale: true}, nil
	} else if err != nil {
		return resolved{}, storeErrf("get", docKey, err)
	}
	value, err := enc.DecodeValue(raw)
	if err != nil {
		return resolved{}, err
	}
	return resolved{doc: Document{Key: string(docKey), Value: value}}, nil
}
