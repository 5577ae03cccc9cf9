package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"skyreel/internal/services"
)

const runColumns = "id, run_trigger, status, started_at, finished_at, local_date, content_type, title, media_id, video_path, error_kind, error_message"

const dateLayout = "2006-01-02"

// Start records a new running post and returns it.
func (s *Store) Start(ctx context.Context, trigger Trigger) (*Run, error) {
	started := s.now().UTC()
	run := &Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: started,
		LocalDate: started.In(s.location).Format(dateLayout),
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, run_trigger, status, started_at, local_date) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Trigger), string(run.Status), started.Format(time.RFC3339Nano), run.LocalDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// MarkPosted finishes run as posted.
func (s *Store) MarkPosted(ctx context.Context, run *Run) error {
	run.Status = StatusPosted
	run.ErrorKind = ""
	run.ErrorMessage = ""
	return s.finish(ctx, run)
}

// MarkFailed finishes run as failed with cause.
func (s *Store) MarkFailed(ctx context.Context, run *Run, cause error) error {
	run.Status = StatusFailed
	if cause != nil {
		run.ErrorKind = services.FailureKind(cause)
		run.ErrorMessage = cause.Error()
	}
	return s.finish(ctx, run)
}

func (s *Store) finish(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("finish run: missing id")
	}
	run.FinishedAt = s.now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, content_type = ?, title = ?, media_id = ?,
            video_path = ?, error_kind = ?, error_message = ? WHERE id = ?`,
		string(run.Status),
		run.FinishedAt.Format(time.RFC3339Nano),
		nullableString(run.ContentType),
		nullableString(run.Title),
		nullableString(run.MediaID),
		nullableString(run.VideoPath),
		nullableString(run.ErrorKind),
		nullableString(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, services.ErrNotFound)
	}
	return nil
}

// Get returns the run with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastPosted returns the most recent successful run, or nil.
func (s *Store) LastPosted(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1", string(StatusPosted))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// PostedOn reports whether a reel was posted on the local calendar day of t.
func (s *Store) PostedOn(ctx context.Context, t time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM runs WHERE local_date = ? AND status = ?",
		t.In(s.location).Format(dateLayout), string(StatusPosted),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count posted runs: %w", err)
	}
	return count > 0, nil
}

// FailInterrupted marks runs left in the running state by a crashed process
// as failed and returns how many were updated. Scheduled runs are always
// stale once the caller holds the scheduler lock. Manual runs may still be
// live in another process, so only those started before manualCutoff are
// failed.
func (s *Store) FailInterrupted(ctx context.Context, manualCutoff time.Time) (int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE status = ?", string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("query running runs: %w", err)
	}
	var stale []string
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan running run: %w", err)
		}
		if run.Trigger == TriggerManual && !run.StartedAt.Before(manualCutoff) {
			continue
		}
		stale = append(stale, run.ID)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate running runs: %w", err)
	}

	finished := s.now().UTC().Format(time.RFC3339Nano)
	var total int64
	for _, id := range stale {
		res, err := s.execWithRetry(ctx,
			`UPDATE runs SET status = ?, finished_at = ?, error_kind = ?, error_message = ? WHERE id = ? AND status = ?`,
			string(StatusFailed), finished, "interrupted", "process exited before the run finished",
			id, string(StatusRunning),
		)
		if err != nil {
			return total, fmt.Errorf("fail interrupted run %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		trigger      string
		status       string
		startedRaw   string
		finishedRaw  sql.NullString
		contentType  sql.NullString
		title        sql.NullString
		mediaID      sql.NullString
		videoPath    sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&trigger,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.LocalDate,
		&contentType,
		&title,
		&mediaID,
		&videoPath,
		&errorKind,
		&errorMessage,
	); err != nil {
		return nil, err
	}
	run.Trigger = Trigger(trigger)
	run.Status = Status(status)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.ContentType = contentType.String
	run.Title = title.String
	run.MediaID = mediaID.String
	run.VideoPath = videoPath.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	return &run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
