package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/vovakirdan/timetable-server/internal/store"
	"github.com/vovakirdan/timetable-server/internal/store/sqlite/migrations"
)

const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// goose keeps its dialect and base FS in package state.
var gooseMu sync.Mutex

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies pending migrations.
func New(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	s, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Open opens the database at dbPath without touching the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies every pending embedded migration.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// translateError maps constraint violations to store sentinel errors.
func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %v", store.ErrInvalidReference, err)
	}
	return err
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

func newID() string {
	return uuid.NewString()
}

// ==== UserStore implementation ====

const userColumns = `id, email, password_hash, provider_id, nickname, color_id, is_active, is_superuser, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var (
		user       store.User
		email      sql.NullString
		providerID sql.NullInt64
		colorID    sql.NullInt64
	)
	err := row.Scan(
		&user.ID,
		&email,
		&user.PasswordHash,
		&providerID,
		&user.Nickname,
		&colorID,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		user.Email = &email.String
	}
	if providerID.Valid {
		user.ProviderID = &providerID.Int64
	}
	user.ColorID = colorID.Int64
	return &user, nil
}

// CreateUser inserts a user. An empty ID is generated.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) (*store.User, error) {
	id := user.ID
	if id == "" {
		id = newID()
	}
	var email any
	if user.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*user.Email))
	}
	query := `
		INSERT INTO users (id, email, password_hash, provider_id, nickname, color_id, is_active, is_superuser)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id, email, user.PasswordHash, user.ProviderID, user.Nickname, user.ColorID, user.IsActive, user.IsSuperuser,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", translateError(err))
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// GetUserByEmail retrieves a password account by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// GetUserByProviderID retrieves a user by external login id.
func (s *SQLiteStore) GetUserByProviderID(ctx context.Context, providerID int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, providerID))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// UpdateUser stores nickname, color and flags of an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *store.User) (*store.User, error) {
	query := `
		UPDATE users
		SET nickname = ?, color_id = ?, is_active = ?, is_superuser = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, user.Nickname, user.ColorID, user.IsActive, user.IsSuperuser, user.ID)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", translateError(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("user: %w", store.ErrNotFound)
	}
	return s.GetUserByID(ctx, user.ID)
}

// ListColors returns every display color.
func (s *SQLiteStore) ListColors(ctx context.Context) ([]*store.Color, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, hex FROM colors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query colors: %w", err)
	}
	defer rows.Close()

	colors := make([]*store.Color, 0, 10)
	for rows.Next() {
		var c store.Color
		if err := rows.Scan(&c.ID, &c.Name, &c.Hex); err != nil {
			return nil, fmt.Errorf("scan color: %w", err)
		}
		colors = append(colors, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate colors: %w", err)
	}
	return colors, nil
}

// ==== TimetableStore implementation ====

const timetableColumns = `id, title, description, owner_id, created_at`

func scanTimetable(row rowScanner) (*store.Timetable, error) {
	var tt store.Timetable
	if err := row.Scan(&tt.ID, &tt.Title, &tt.Description, &tt.OwnerID, &tt.CreatedAt); err != nil {
		return nil, err
	}
	return &tt, nil
}

// CreateTimetable inserts a timetable. An empty ID is generated.
func (s *SQLiteStore) CreateTimetable(ctx context.Context, tt *store.Timetable) (*store.Timetable, error) {
	id := tt.ID
	if id == "" {
		id = newID()
	}
	query := `
		INSERT INTO timetables (id, title, description, owner_id)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, tt.Title, tt.Description, tt.OwnerID); err != nil {
		return nil, fmt.Errorf("insert timetable: %w", translateError(err))
	}
	return s.GetTimetable(ctx, id)
}

// GetTimetable retrieves a timetable by ID.
func (s *SQLiteStore) GetTimetable(ctx context.Context, id string) (*store.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE id = ?`
	tt, err := scanTimetable(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "timetable")
	}
	return tt, nil
}

// ListTimetablesByOwner lists timetables created by a user, newest first.
func (s *SQLiteStore) ListTimetablesByOwner(ctx context.Context, ownerID string) ([]*store.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE owner_id = ? ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query timetables: %w", err)
	}
	defer rows.Close()

	var timetables []*store.Timetable
	for rows.Next() {
		tt, err := scanTimetable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timetable: %w", err)
		}
		timetables = append(timetables, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timetables: %w", err)
	}
	return timetables, nil
}

// UpdateTimetable stores title and description.
func (s *SQLiteStore) UpdateTimetable(ctx context.Context, tt *store.Timetable) (*store.Timetable, error) {
	query := `UPDATE timetables SET title = ?, description = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, tt.Title, tt.Description, tt.ID)
	if err != nil {
		return nil, fmt.Errorf("update timetable: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("timetable: %w", store.ErrNotFound)
	}
	return s.GetTimetable(ctx, tt.ID)
}

// ==== ScheduleBlockStore implementation ====

const blockColumns = `id, timetable_id, user_id, day, start_hour, start_minute, end_hour, end_minute, label, created_at`

func scanBlock(row rowScanner) (*store.ScheduleBlock, error) {
	var b store.ScheduleBlock
	err := row.Scan(
		&b.ID,
		&b.TimetableID,
		&b.UserID,
		&b.Day,
		&b.StartHour,
		&b.StartMinute,
		&b.EndHour,
		&b.EndMinute,
		&b.Label,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) queryBlocks(ctx context.Context, query string, args ...any) ([]*store.ScheduleBlock, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedule blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*store.ScheduleBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule blocks: %w", err)
	}
	return blocks, nil
}

// CreateBlock inserts a block. An empty ID is generated.
func (s *SQLiteStore) CreateBlock(ctx context.Context, block *store.ScheduleBlock) (*store.ScheduleBlock, error) {
	id := block.ID
	if id == "" {
		id = newID()
	}
	query := `
		INSERT INTO schedule_blocks (id, timetable_id, user_id, day, start_hour, start_minute, end_hour, end_minute, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id, block.TimetableID, block.UserID, block.Day,
		block.StartHour, block.StartMinute, block.EndHour, block.EndMinute, block.Label,
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule block: %w", translateError(err))
	}
	return s.GetBlock(ctx, id)
}

// GetBlock retrieves a block by ID.
func (s *SQLiteStore) GetBlock(ctx context.Context, id string) (*store.ScheduleBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM schedule_blocks WHERE id = ?`
	b, err := scanBlock(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "schedule block")
	}
	return b, nil
}

// ListBlocks lists every block of a timetable ordered by day and start time.
func (s *SQLiteStore) ListBlocks(ctx context.Context, timetableID string) ([]*store.ScheduleBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM schedule_blocks
		WHERE timetable_id = ?
		ORDER BY day, start_hour, start_minute, created_at`
	return s.queryBlocks(ctx, query, timetableID)
}

// ListUserBlocks lists the blocks a user placed on a timetable.
func (s *SQLiteStore) ListUserBlocks(ctx context.Context, timetableID, userID string) ([]*store.ScheduleBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM schedule_blocks
		WHERE timetable_id = ? AND user_id = ?
		ORDER BY day, start_hour, start_minute, created_at`
	return s.queryBlocks(ctx, query, timetableID, userID)
}

// UpdateBlocks stores the time range and label of every block in one transaction.
func (s *SQLiteStore) UpdateBlocks(ctx context.Context, blocks []*store.ScheduleBlock) error {
	query := `
		UPDATE schedule_blocks
		SET day = ?, start_hour = ?, start_minute = ?, end_hour = ?, end_minute = ?, label = ?
		WHERE id = ?
	`
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, b := range blocks {
			result, err := tx.ExecContext(ctx, query,
				b.Day, b.StartHour, b.StartMinute, b.EndHour, b.EndMinute, b.Label, b.ID,
			)
			if err != nil {
				return fmt.Errorf("update schedule block %s: %w", b.ID, translateError(err))
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("schedule block %s: %w", b.ID, store.ErrNotFound)
			}
		}
		return nil
	})
}

// DeleteBlock removes a block by ID.
func (s *SQLiteStore) DeleteBlock(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM schedule_blocks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule block: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("schedule block: %w", store.ErrNotFound)
	}
	return nil
}

// DeleteUserBlocks removes a user's blocks on a timetable, optionally for one day only.
func (s *SQLiteStore) DeleteUserBlocks(ctx context.Context, timetableID, userID string, day *int) (int64, error) {
	query := `DELETE FROM schedule_blocks WHERE timetable_id = ? AND user_id = ?`
	args := []any{timetableID, userID}
	if day != nil {
		query += ` AND day = ?`
		args = append(args, *day)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete schedule blocks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
