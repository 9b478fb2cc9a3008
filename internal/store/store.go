package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
	// ErrInvalidReference is returned when a write points at a missing parent record.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// User represents an account. Email and password are set for password
// accounts, ProviderID for accounts created through the external login.
type User struct {
	ID           string
	Email        *string
	PasswordHash string
	ProviderID   *int64
	Nickname     string
	ColorID      int64
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
}

// Color is a display color assigned to users.
type Color struct {
	ID   int64
	Name string
	Hex  string
}

// Timetable is a shared weekly board owned by its creator.
type Timetable struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	CreatedAt   time.Time
}

// ScheduleBlock is one user's interval on a timetable for a day of the week.
// End may be earlier than start when the block wraps past midnight.
type ScheduleBlock struct {
	ID          string
	TimetableID string
	UserID      string
	Day         int
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Label       string
	CreatedAt   time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a user. An empty ID is generated.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a password account by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByProviderID retrieves a user by external login id.
	GetUserByProviderID(ctx context.Context, providerID int64) (*User, error)

	// UpdateUser stores nickname, color and flags of an existing user.
	UpdateUser(ctx context.Context, user *User) (*User, error)

	// ListColors returns every display color.
	ListColors(ctx context.Context) ([]*Color, error)
}

// TimetableStore handles timetable persistence.
type TimetableStore interface {
	// CreateTimetable inserts a timetable. An empty ID is generated.
	CreateTimetable(ctx context.Context, tt *Timetable) (*Timetable, error)

	// GetTimetable retrieves a timetable by ID.
	GetTimetable(ctx context.Context, id string) (*Timetable, error)

	// ListTimetablesByOwner lists timetables created by a user, newest first.
	ListTimetablesByOwner(ctx context.Context, ownerID string) ([]*Timetable, error)

	// UpdateTimetable stores title and description.
	UpdateTimetable(ctx context.Context, tt *Timetable) (*Timetable, error)
}

// ScheduleBlockStore handles schedule block persistence.
type ScheduleBlockStore interface {
	// CreateBlock inserts a block. Duplicate (timetable, user, start, end, day)
	// tuples yield ErrConflict.
	CreateBlock(ctx context.Context, block *ScheduleBlock) (*ScheduleBlock, error)

	// GetBlock retrieves a block by ID.
	GetBlock(ctx context.Context, id string) (*ScheduleBlock, error)

	// ListBlocks lists every block of a timetable.
	ListBlocks(ctx context.Context, timetableID string) ([]*ScheduleBlock, error)

	// ListUserBlocks lists the blocks a user placed on a timetable.
	ListUserBlocks(ctx context.Context, timetableID, userID string) ([]*ScheduleBlock, error)

	// UpdateBlocks stores the time range and label of every block in one transaction.
	UpdateBlocks(ctx context.Context, blocks []*ScheduleBlock) error

	// DeleteBlock removes a block by ID.
	DeleteBlock(ctx context.Context, id string) error

	// DeleteUserBlocks removes a user's blocks on a timetable, restricted to one
	// day when day is non-nil. Returns the number of removed blocks.
	DeleteUserBlocks(ctx context.Context, timetableID, userID string, day *int) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	TimetableStore
	ScheduleBlockStore

	// Close closes the underlying database connection.
	Close() error
}
