package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"parallax/internal/config"
	"parallax/internal/services"
)

// ErrLocked indicates another process holds the queue directory.
var ErrLocked = errors.New("queue is locked by another process")

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open initializes or connects to the queue database. A non-blocking file
// lock is taken first so two batch runners never share a queue directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.QueueDir, "queue.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire queue lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	dbPath := filepath.Join(cfg.Paths.QueueDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, lock: lock, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the queue lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// NewMerge enqueues a merge of a capture pair.
func (s *Store) NewMerge(ctx context.Context, leftPath, rightPath, outputPath string) (*Item, error) {
	return s.insert(ctx, &Item{
		Kind:       KindMerge,
		LeftPath:   leftPath,
		RightPath:  rightPath,
		OutputPath: outputPath,
	})
}

// NewConvert enqueues a format conversion of a side-by-side master.
func (s *Store) NewConvert(ctx context.Context, sourcePath, outputPath, format string) (*Item, error) {
	return s.insert(ctx, &Item{
		Kind:       KindConvert,
		SourcePath: sourcePath,
		OutputPath: outputPath,
		Format:     format,
	})
}

func (s *Store) insert(ctx context.Context, item *Item) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_items (
            kind, left_path, right_path, source_path, output_path, format,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Kind,
		nullableString(item.LeftPath),
		nullableString(item.RightPath),
		nullableString(item.SourcePath),
		item.OutputPath,
		nullableString(item.Format),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert %s item: %w", item.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one item.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM queue_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get", fmt.Sprintf("item %d", id), nil)
	}
	return item, err
}

// List returns all items in insertion order.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM queue_items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextPending returns the oldest pending item, or nil when the queue is
// drained.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+" FROM queue_items WHERE status = ? ORDER BY id LIMIT 1", StatusPending)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// Update persists the item's mutable fields.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if _, err := ParseStatus(string(item.Status)); err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET
            status = ?, stage = ?, error_message = ?, diagnostics_json = ?,
            run_id = ?, output_path = ?, updated_at = ?
        WHERE id = ?`,
		item.Status,
		nullableString(item.Stage),
		nullableString(item.ErrorMessage),
		nullableString(item.DiagnosticsJSON),
		nullableString(item.RunID),
		item.OutputPath,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update queue item %d: %w", item.ID, err)
	}
	return nil
}

// ResetProcessing rolls items a dead runner left in-flight back to pending.
// Called on open by the batch runner before draining.
func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE queue_items SET status = ?, stage = NULL, updated_at = ? WHERE status = ?",
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset processing items: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes items. With no statuses given, everything goes; otherwise
// only items in one of the given states are removed.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := "DELETE FROM queue_items"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (?" + repeatPlaceholder(len(statuses)-1) + ")"
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `SELECT id, kind, left_path, right_path, source_path, output_path,
    format, status, stage, error_message, diagnostics_json, run_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item        Item
		left        sql.NullString
		right       sql.NullString
		source      sql.NullString
		format      sql.NullString
		stage       sql.NullString
		errMsg      sql.NullString
		diagnostics sql.NullString
		runID       sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(
		&item.ID, &item.Kind, &left, &right, &source, &item.OutputPath,
		&format, &item.Status, &stage, &errMsg, &diagnostics, &runID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.LeftPath = left.String
	item.RightPath = right.String
	item.SourcePath = source.String
	item.Format = format.String
	item.Stage = stage.String
	item.ErrorMessage = errMsg.String
	item.DiagnosticsJSON = diagnostics.String
	item.RunID = runID.String
	item.CreatedAt = parseTimestamp(createdAt)
	item.UpdatedAt = parseTimestamp(updatedAt)
	return &item, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
