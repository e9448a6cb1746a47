package store

import (
	"context"
	"fmt"
	"time"

	"github.com/christopherklint97/marvinr/internal/productivity"
)

// RecordRun stores the metadata of one report request. It satisfies
// productivity.Recorder.
func (db *DB) RecordRun(ctx context.Context, run productivity.Run) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO report_runs (requested_at, start_date, end_date, total_days, total_completed, api_calls, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RequestedAt.UTC().Format(time.RFC3339),
		run.StartDate, run.EndDate,
		run.TotalDays, run.TotalCompleted, run.APICalls,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting report run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]productivity.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT requested_at, start_date, end_date, total_days, total_completed, api_calls, error
		 FROM report_runs
		 ORDER BY requested_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying report runs: %w", err)
	}
	defer rows.Close()

	var runs []productivity.Run
	for rows.Next() {
		var r productivity.Run
		var requested string
		if err := rows.Scan(&requested, &r.StartDate, &r.EndDate, &r.TotalDays, &r.TotalCompleted, &r.APICalls, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning report run: %w", err)
		}
		t, err := time.Parse(time.RFC3339, requested)
		if err != nil {
			return nil, fmt.Errorf("parsing report run time %q: %w", requested, err)
		}
		r.RequestedAt = t
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneRuns deletes runs requested before cutoff and returns how many went.
func (db *DB) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM report_runs WHERE requested_at < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning report runs: %w", err)
	}
	return res.RowsAffected()
}
