package storage

import "github.com/cockroachdb/errors"

// MultiSink fans records out to several sinks in order. The first sink is the
// primary output; an error from any sink is returned to the caller.
type MultiSink []Sink

func (m MultiSink) Write(rec Record) error {
	for _, s := range m {
		if err := s.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Commit() error {
	for _, s := range m {
		if err := s.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, even when an earlier one fails.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
