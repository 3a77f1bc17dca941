package librarian

import "log/slog"

// Document is a primary record: a non-empty key and an arbitrary value that
// index paths project into.
type Document struct {
	Key   string
	Value any
}

func (d Document) validate() error {
	if d.Key == "" {
		return validationErrf("document key", nil, "empty")
	}
	if d.Key[0] == indexMarker[0] {
		return validationErrf("document key", nil, "%q starts with reserved byte 0x%02x", d.Key, indexMarker[0])
	}
	return nil
}

// Config is passed to every read and write. The zero values of all fields
// except Store are usable.
type Config struct {
	Store Store

	// Indexes lists the index definitions maintained by Write. Each element is
	// anything ParseFields accepts.
	Indexes []any

	// Encoding of primary document values; MsgPack by default.
	Encoding Encoding

	// Concurrency is the number of primary lookups a reader runs at once.
	// Zero means 1.
	Concurrency int

	Logger  *slog.Logger
	Verbose bool

	// Metrics, if set, receives read and write counters.
	Metrics *Metrics
}

func (cfg *Config) validate() error {
	if isNilInterface(cfg.Store) {
		return configErrf("store is required")
	}
	if cfg.Concurrency < 0 {
		return configErrf("concurrency must be >= 0, got %d", cfg.Concurrency)
	}
	if !cfg.Encoding.valid() {
		return configErrf("unknown encoding %v", cfg.Encoding)
	}
	return nil
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

func (cfg *Config) concurrency() int {
	if cfg.Concurrency == 0 {
		return 1
	}
	return cfg.Concurrency
}
