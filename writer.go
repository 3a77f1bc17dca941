package librarian

import (
	"context"
	"iter"
	"log/slog"
)

// BuildBatch returns the store operations that write doc: one index entry per
// definition, in order, followed by the primary document. Nothing is returned
// unless every part can be encoded.
func BuildBatch(doc Document, defs []Definition, enc Encoding) ([]Op, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	pk := []byte(doc.Key)

	ops := make([]Op, 0, len(defs)+1)
	for _, def := range defs {
		key, err := EncodeIndexKey(def, def.project(doc), doc.Key)
		if err != nil {
			return nil, err
		}
		ops = append(ops, PutOp(key, pk))
	}

	value, err := enc.EncodeValue(nil, doc.Value)
	if err != nil {
		return nil, validationErrf("document value", err, "%q", doc.Key)
	}
	ops = append(ops, PutOp(pk, value))
	return ops, nil
}

// Write stores every document of docs together with its entries in
// cfg.Indexes, one atomic batch per document. It stops at the first error;
// documents already written stay written. Entries written for an earlier
// version of a document are left in place.
func Write(cfg Config, docs iter.Seq[Document]) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	defs, err := resolveDefinitions(cfg.Indexes)
	if err != nil {
		return err
	}
	logger := cfg.logger()
	for doc := range docs {
		err := writeDoc(&cfg, defs, doc, logger)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteOne is Write for a single document.
func WriteOne(cfg Config, doc Document) error {
	return Write(cfg, func(yield func(Document) bool) {
		yield(doc)
	})
}

func writeDoc(cfg *Config, defs []Definition, doc Document, logger *slog.Logger) error {
	ops, err := BuildBatch(doc, defs, cfg.Encoding)
	if err != nil {
		return err
	}
	err = cfg.Store.Batch(ops)
	if err != nil {
		return cfg.Metrics.storeError(storeErrf("batch", []byte(doc.Key), err))
	}
	cfg.Metrics.wrote(defs)
	if cfg.Verbose {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "WRITE", slog.String("key", doc.Key), slog.Int("entries", len(defs)), slog.String("value", loggableVal(doc.Value)))
	}
	return nil
}
