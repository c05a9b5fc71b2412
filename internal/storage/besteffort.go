package storage

import (
	"sync/atomic"

	"ranked-crawler/internal/logging"
)

// BestEffortSink wraps a secondary output whose failures must not stop a
// crawl. Errors are logged at warn level and counted instead of returned.
type BestEffortSink struct {
	sink     Sink
	name     string
	logger   *logging.Logger
	failures atomic.Int64
}

func NewBestEffortSink(name string, sink Sink, logger *logging.Logger) *BestEffortSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &BestEffortSink{sink: sink, name: name, logger: logger}
}

func (b *BestEffortSink) Write(rec Record) error {
	if err := b.sink.Write(rec); err != nil {
		b.fail("write", err, "category", string(rec.Category), "key", rec.Key)
	}
	return nil
}

func (b *BestEffortSink) Commit() error {
	if err := b.sink.Commit(); err != nil {
		b.fail("commit", err)
	}
	return nil
}

func (b *BestEffortSink) Close() error {
	if err := b.sink.Close(); err != nil {
		b.fail("close", err)
	}
	return nil
}

// Failures returns how many operations failed so far.
func (b *BestEffortSink) Failures() int64 { return b.failures.Load() }

func (b *BestEffortSink) fail(op string, err error, args ...any) {
	b.failures.Add(1)
	args = append([]any{"sink", b.name, "op", op}, args...)
	args = append(args, "error", err)
	b.logger.Warn("mirror output failed", args...)
}
