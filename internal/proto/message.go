// Package proto defines the JSON shapes shared by the REST API and the
// change notifications relayed over the real-time channel.
package proto

import (
	"encoding/json"
	"time"

	"github.com/vovakirdan/timetable-server/internal/store"
)

// Change notification kinds.
const (
	EventTimetableUpdated      = "timetable_updated"
	EventScheduleBlockCreated  = "scheduleblock_created"
	EventScheduleBlocksUpdated = "scheduleblocks_updated"
	EventScheduleBlockDeleted  = "scheduleblock_deleted"
	EventScheduleBlocksDeleted = "scheduleblocks_deleted"
)

// ChangeEvent is published to real-time subscribers after a successful mutation.
type ChangeEvent struct {
	Event       string `json:"event"`
	TimetableID string `json:"timetable_id"`
	Data        any    `json:"data,omitempty"`
}

// Encode renders the event as the opaque payload handed to the hub.
func (e ChangeEvent) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// BlocksDeleted describes a bulk removal of one user's blocks.
type BlocksDeleted struct {
	UserID  string `json:"user_id"`
	Day     *int   `json:"day,omitempty"`
	Deleted int64  `json:"deleted"`
}

// BlockDeleted identifies a removed block.
type BlockDeleted struct {
	ID string `json:"id"`
}

// User is the public view of an account.
type User struct {
	ID          string  `json:"id"`
	Email       *string `json:"email,omitempty"`
	Nickname    string  `json:"nickname"`
	ColorID     int64   `json:"color_id"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
}

// Color is a display color.
type Color struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Timetable is the public view of a timetable.
type Timetable struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CreateUserID string `json:"create_user_id"`
	CreatedAt    string `json:"created_at"`
}

// ScheduleBlock is the public view of a schedule block.
type ScheduleBlock struct {
	ID          string `json:"id"`
	TableID     string `json:"table_id"`
	UserID      string `json:"user_id"`
	Day         int    `json:"day"`
	StartTime   int    `json:"start_time"`
	StartMinute int    `json:"start_minute"`
	EndTime     int    `json:"end_time"`
	EndMinute   int    `json:"end_minute"`
	Label       string `json:"label"`
	CreatedAt   string `json:"created_at"`
}

// UserFromStore converts a stored user.
func UserFromStore(u *store.User) User {
	return User{
		ID:          u.ID,
		Email:       u.Email,
		Nickname:    u.Nickname,
		ColorID:     u.ColorID,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

// ColorsFromStore converts stored colors.
func ColorsFromStore(colors []*store.Color) []Color {
	out := make([]Color, 0, len(colors))
	for _, c := range colors {
		out = append(out, Color{ID: c.ID, Name: c.Name, Hex: c.Hex})
	}
	return out
}

// TimetableFromStore converts a stored timetable.
func TimetableFromStore(tt *store.Timetable) Timetable {
	return Timetable{
		ID:           tt.ID,
		Title:        tt.Title,
		Description:  tt.Description,
		CreateUserID: tt.OwnerID,
		CreatedAt:    tt.CreatedAt.Format(time.RFC3339),
	}
}

// TimetablesFromStore converts stored timetables.
func TimetablesFromStore(tts []*store.Timetable) []Timetable {
	out := make([]Timetable, 0, len(tts))
	for _, tt := range tts {
		out = append(out, TimetableFromStore(tt))
	}
	return out
}

// BlockFromStore converts a stored block.
func BlockFromStore(b *store.ScheduleBlock) ScheduleBlock {
	return ScheduleBlock{
		ID:          b.ID,
		TableID:     b.TimetableID,
		UserID:      b.UserID,
		Day:         b.Day,
		StartTime:   b.StartHour,
		StartMinute: b.StartMinute,
		EndTime:     b.EndHour,
		EndMinute:   b.EndMinute,
		Label:       b.Label,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
}

// BlocksFromStore converts stored blocks.
func BlocksFromStore(blocks []*store.ScheduleBlock) []ScheduleBlock {
	out := make([]ScheduleBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, BlockFromStore(b))
	}
	return out
}
