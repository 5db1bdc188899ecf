package dotosu

import "log/slog"

type decodeOptions struct {
	version      int
	applyOffsets bool
	lenient      bool
	migrate      bool
	logger       *slog.Logger
}

type DecodeOption func(*decodeOptions)

// WithFormatVersion decodes as version v regardless of the file header.
func WithFormatVersion(v int) DecodeOption {
	return func(o *decodeOptions) { o.version = v }
}

// WithOffsets shifts times of files older than v5 by
// EARLY_VERSION_TIMING_OFFSET.
func WithOffsets(apply bool) DecodeOption {
	return func(o *decodeOptions) { o.applyOffsets = apply }
}

// WithLenient makes malformed lines a logged warning instead of an error.
func WithLenient(lenient bool) DecodeOption {
	return func(o *decodeOptions) { o.lenient = lenient }
}

// WithoutMigration leaves sample and difficulty state in the control points
// instead of moving it onto hit objects.
func WithoutMigration() DecodeOption {
	return func(o *decodeOptions) { o.migrate = false }
}

func WithLogger(l *slog.Logger) DecodeOption {
	return func(o *decodeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func newDecodeOptions(opts []DecodeOption) decodeOptions {
	o := decodeOptions{migrate: true, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
