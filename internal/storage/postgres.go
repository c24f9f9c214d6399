package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourname/timetracker/internal"
)

const uniqueViolation = "23505"

// schema carries the constraints the invariants depend on:
// time_entries_one_running makes a second concurrent start an insert
// conflict, and idle_notifications_one_pending deduplicates detector
// output regardless of how often a scan runs.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	token TEXT UNIQUE NOT NULL,
	name  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS time_entries (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	task_id          TEXT NOT NULL,
	task_name        TEXT NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ,
	duration_seconds BIGINT,
	is_running       BOOLEAN NOT NULL,
	billable_rate    DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency         TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS time_entries_one_running
	ON time_entries (user_id) WHERE is_running;
CREATE TABLE IF NOT EXISTS idle_notifications (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	entry_id        TEXT NOT NULL REFERENCES time_entries(id),
	idle_start_time TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	action          TEXT NOT NULL DEFAULT 'none',
	action_at       TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idle_notifications_one_pending
	ON idle_notifications (entry_id) WHERE action = 'none';
CREATE TABLE IF NOT EXISTS time_preferences (
	user_id                   TEXT PRIMARY KEY,
	idle_threshold_minutes    INT NOT NULL,
	rounding_interval_minutes INT NOT NULL,
	rounding_method           TEXT NOT NULL
);
`

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Errorf("failed to apply schema: %v", err)
		pool.Close()
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) Close() {
	p.pool.Close()
}

// --- EntryRepository ---

func (p *PostgresStorage) StartEntry(ctx context.Context, entry *internal.TimeEntry) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO time_entries
		(id, user_id, task_id, task_name, start_time, is_running, billable_rate, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.TaskID, entry.TaskName, entry.StartTime,
		entry.BillableRate, entry.Currency, entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return internal.ErrTimerConflict
		}
		p.logger.Errorf("failed to insert time entry: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) FinishEntry(ctx context.Context, entryID string, endTime time.Time, duration time.Duration) error {
	tag, err := p.pool.Exec(ctx, `UPDATE time_entries
		SET end_time = $2, duration_seconds = $3, is_running = FALSE
		WHERE id = $1 AND is_running`,
		entryID, endTime, int64(duration.Seconds()))
	if err != nil {
		p.logger.Errorf("failed to finish time entry: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_entries WHERE id = $1)`, entryID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return internal.ErrNotFound
		}
		return internal.ErrTimerNotRunning
	}
	return nil
}

const entryColumns = `id, user_id, task_id, task_name, start_time, end_time, duration_seconds, is_running, billable_rate, currency, created_at`

func scanEntry(row pgx.Row) (*internal.TimeEntry, error) {
	var e internal.TimeEntry
	err := row.Scan(&e.ID, &e.UserID, &e.TaskID, &e.TaskName, &e.StartTime,
		&e.EndTime, &e.DurationSeconds, &e.IsRunning, &e.BillableRate, &e.Currency, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *PostgresStorage) GetEntry(ctx context.Context, entryID string) (*internal.TimeEntry, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = $1`, entryID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to get time entry: %v", err)
		return nil, err
	}
	return e, nil
}

func (p *PostgresStorage) GetActiveEntry(ctx context.Context, userID string) (*internal.TimeEntry, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE user_id = $1 AND is_running`, userID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		p.logger.Errorf("failed to get active entry: %v", err)
		return nil, err
	}
	return e, nil
}

func (p *PostgresStorage) ListActiveEntries(ctx context.Context) ([]internal.TimeEntry, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE is_running ORDER BY start_time`)
	if err != nil {
		p.logger.Errorf("failed to query active entries: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (p *PostgresStorage) ListEntries(ctx context.Context, userID string, limit int) ([]internal.TimeEntry, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+entryColumns+` FROM time_entries
		WHERE user_id = $1 ORDER BY start_time DESC LIMIT $2`, userID, limit)
	if err != nil {
		p.logger.Errorf("failed to query time entries: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]internal.TimeEntry, error) {
	var entries []internal.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// --- NotificationRepository ---

func (p *PostgresStorage) CreatePending(ctx context.Context, n *internal.IdleNotification) error {
	// The partial unique index makes a duplicate pending insert a
	// conflict; DO NOTHING keeps the operation idempotent.
	_, err := p.pool.Exec(ctx, `INSERT INTO idle_notifications
		(id, user_id, entry_id, idle_start_time, created_at, action)
		VALUES ($1, $2, $3, $4, $5, 'none')
		ON CONFLICT (entry_id) WHERE action = 'none' DO NOTHING`,
		n.ID, n.UserID, n.EntryID, n.IdleStartTime, n.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert idle notification: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) HasPending(ctx context.Context, entryID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(
		SELECT 1 FROM idle_notifications WHERE entry_id = $1 AND action = 'none')`, entryID).Scan(&exists)
	if err != nil {
		p.logger.Errorf("failed to check pending notification: %v", err)
		return false, err
	}
	return exists, nil
}

const notificationColumns = `id, user_id, entry_id, idle_start_time, created_at, action, action_at`

func scanNotification(row pgx.Row) (*internal.IdleNotification, error) {
	var n internal.IdleNotification
	var action string
	err := row.Scan(&n.ID, &n.UserID, &n.EntryID, &n.IdleStartTime, &n.CreatedAt, &action, &n.ActionAt)
	if err != nil {
		return nil, err
	}
	n.Action = internal.NotificationAction(action)
	return &n, nil
}

func (p *PostgresStorage) ListPending(ctx context.Context, userID string) ([]internal.IdleNotification, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+notificationColumns+` FROM idle_notifications
		WHERE user_id = $1 AND action = 'none' ORDER BY created_at`, userID)
	if err != nil {
		p.logger.Errorf("failed to query pending notifications: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []internal.IdleNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (p *PostgresStorage) GetNotification(ctx context.Context, id string) (*internal.IdleNotification, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM idle_notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to get notification: %v", err)
		return nil, err
	}
	return n, nil
}

func (p *PostgresStorage) ResolveNotification(ctx context.Context, id string, action internal.NotificationAction, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE idle_notifications
		SET action = $2, action_at = $3
		WHERE id = $1 AND action = 'none'`,
		id, string(action), at)
	if err != nil {
		p.logger.Errorf("failed to resolve notification: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM idle_notifications WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return internal.ErrNotFound
		}
		return internal.ErrNotificationActioned
	}
	return nil
}

// --- PreferencesRepository ---

func (p *PostgresStorage) GetPreferences(ctx context.Context, userID string) (*internal.TimePreferences, error) {
	row := p.pool.QueryRow(ctx, `SELECT user_id, idle_threshold_minutes, rounding_interval_minutes, rounding_method
		FROM time_preferences WHERE user_id = $1`, userID)
	var prefs internal.TimePreferences
	var method string
	err := row.Scan(&prefs.UserID, &prefs.IdleThresholdMinutes, &prefs.RoundingIntervalMinutes, &method)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.DefaultPreferences(userID), nil
	}
	if err != nil {
		p.logger.Errorf("failed to get preferences: %v", err)
		return nil, err
	}
	prefs.RoundingMethod = internal.RoundingMethod(method)
	return &prefs, nil
}

// --- UserRepository ---

func (p *PostgresStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, token, name FROM users WHERE token = $1`, token)
	var u internal.User
	if err := row.Scan(&u.ID, &u.Token, &u.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		p.logger.Errorf("failed to look up user: %v", err)
		return nil, err
	}
	return &u, nil
}

// --- Compile-time assertions ---
var _ EntryRepository = (*PostgresStorage)(nil)
var _ NotificationRepository = (*PostgresStorage)(nil)
var _ PreferencesRepository = (*PostgresStorage)(nil)
var _ UserRepository = (*PostgresStorage)(nil)
