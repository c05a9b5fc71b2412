package db

import (
	"context"

	"github.com/cockroachdb/errors"

	"ranked-crawler/internal/storage"
)

const insertBatchSize = 100

const insertRecordSQL = `INSERT INTO crawl_records
	(category, record_key, league, region, queue_type, crawl_date, payload)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`

// InsertRecords writes records for a run in batches, one transaction per batch.
// Records already present for the same run are left untouched.
func (s *Store) InsertRecords(ctx context.Context, run storage.RunInfo, records []storage.Record) error {
	query := s.rebind(insertRecordSQL)

	for i := 0; i < len(records); i += insertBatchSize {
		end := min(i+insertBatchSize, len(records))
		batch := records[i:end]

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin insert")
		}

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "prepare insert")
		}

		for _, rec := range batch {
			if _, err := stmt.ExecContext(ctx,
				string(rec.Category), rec.Key,
				run.League, run.Region, run.QueueType, run.Date,
				string(rec.Payload),
			); err != nil {
				stmt.Close()
				tx.Rollback()
				return errors.Wrapf(err, "insert %s record %s", rec.Category, rec.Key)
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, "commit insert")
		}
	}
	return nil
}

// RecordSink buffers records between commits and mirrors each committed
// group into the store. Records never committed are dropped on Close.
type RecordSink struct {
	ctx     context.Context
	store   *Store
	run     storage.RunInfo
	pending []storage.Record
}

// Sink returns a storage.Sink mirroring a run into the store. The store
// stays open after the sink is closed.
func (s *Store) Sink(ctx context.Context, run storage.RunInfo) *RecordSink {
	return &RecordSink{ctx: ctx, store: s, run: run}
}

func (r *RecordSink) Write(rec storage.Record) error {
	r.pending = append(r.pending, rec)
	return nil
}

func (r *RecordSink) Commit() error {
	if len(r.pending) == 0 {
		return nil
	}
	// a group that fails to insert is dropped, not retried on the next commit
	defer func() { r.pending = r.pending[:0] }()
	return r.store.InsertRecords(r.ctx, r.run, r.pending)
}

func (r *RecordSink) Close() error {
	r.pending = nil
	return nil
}
