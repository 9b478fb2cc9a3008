package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/go-faker/faker/v4"

	"github.com/vovakirdan/timetable-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createRandomUser(t *testing.T, s *SQLiteStore) *store.User {
	t.Helper()

	email := faker.Email()
	user, err := s.CreateUser(context.Background(), &store.User{
		Email:        &email,
		PasswordHash: "hash",
		Nickname:     faker.Username(),
		ColorID:      3,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createRandomTimetable(t *testing.T, s *SQLiteStore) *store.Timetable {
	t.Helper()

	owner := createRandomUser(t, s)
	tt, err := s.CreateTimetable(context.Background(), &store.Timetable{
		Title:       faker.Word(),
		Description: faker.Sentence(),
		OwnerID:     owner.ID,
	})
	if err != nil {
		t.Fatalf("failed to create timetable: %v", err)
	}
	return tt
}

func TestMigrationsApplied(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}

	colors, err := s.ListColors(ctx)
	if err != nil {
		t.Fatalf("list colors: %v", err)
	}
	if len(colors) != 10 {
		t.Fatalf("expected 10 seeded colors, got %d", len(colors))
	}

	// Applying again is a no-op.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createRandomUser(t, s)
	if user.ID == "" || user.Email == nil {
		t.Fatalf("unexpected user: %+v", user)
	}

	byEmail, err := s.GetUserByEmail(ctx, *user.Email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected %s, got %s", user.ID, byEmail.ID)
	}

	email := *user.Email
	if _, err := s.CreateUser(ctx, &store.User{Email: &email, PasswordHash: "x"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	providerID := int64(424242)
	provUser, err := s.CreateUser(ctx, &store.User{ProviderID: &providerID, Nickname: "kim"})
	if err != nil {
		t.Fatalf("create provider user: %v", err)
	}
	if provUser.Email != nil {
		t.Fatalf("provider user must not have an email")
	}
	got, err := s.GetUserByProviderID(ctx, providerID)
	if err != nil {
		t.Fatalf("get by provider id: %v", err)
	}
	if got.ID != provUser.ID || got.Nickname != "kim" {
		t.Fatalf("unexpected provider user: %+v", got)
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createRandomUser(t, s)
	user.Nickname = "renamed"
	user.ColorID = 7
	user.IsActive = true

	updated, err := s.UpdateUser(ctx, user)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Nickname != "renamed" || updated.ColorID != 7 || !updated.IsActive {
		t.Fatalf("unexpected user after update: %+v", updated)
	}

	if _, err := s.UpdateUser(ctx, &store.User{ID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTimetableCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tt := createRandomTimetable(t, s)

	got, err := s.GetTimetable(ctx, tt.ID)
	if err != nil {
		t.Fatalf("get timetable: %v", err)
	}
	if got.Title != tt.Title || got.OwnerID != tt.OwnerID {
		t.Fatalf("unexpected timetable: %+v", got)
	}

	got.Title = "weekly sync"
	got.Description = ""
	updated, err := s.UpdateTimetable(ctx, got)
	if err != nil {
		t.Fatalf("update timetable: %v", err)
	}
	if updated.Title != "weekly sync" || updated.Description != "" {
		t.Fatalf("unexpected timetable after update: %+v", updated)
	}

	list, err := s.ListTimetablesByOwner(ctx, tt.OwnerID)
	if err != nil {
		t.Fatalf("list timetables: %v", err)
	}
	if len(list) != 1 || list[0].ID != tt.ID {
		t.Fatalf("unexpected owner list: %+v", list)
	}

	if _, err := s.CreateTimetable(ctx, &store.Timetable{Title: "orphan", OwnerID: "missing"}); !errors.Is(err, store.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestScheduleBlocks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tt := createRandomTimetable(t, s)
	user := createRandomUser(t, s)
	other := createRandomUser(t, s)

	inputs := []store.ScheduleBlock{
		{Day: 1, StartHour: 0, StartMinute: 0, EndHour: 1, EndMinute: 59},
		{Day: 2, StartHour: 2, StartMinute: 0, EndHour: 3, EndMinute: 59},
		{Day: 6, StartHour: 23, StartMinute: 59, EndHour: 1, EndMinute: 59},
	}
	var created []*store.ScheduleBlock
	for _, in := range inputs {
		in.TimetableID = tt.ID
		in.UserID = user.ID
		in.Label = faker.Word()
		b, err := s.CreateBlock(ctx, &in)
		if err != nil {
			t.Fatalf("create block: %v", err)
		}
		created = append(created, b)
	}
	if _, err := s.CreateBlock(ctx, &store.ScheduleBlock{
		TimetableID: tt.ID, UserID: other.ID, Day: 1, EndHour: 1, EndMinute: 59,
	}); err != nil {
		t.Fatalf("create other user's block: %v", err)
	}

	dup := inputs[0]
	dup.TimetableID = tt.ID
	dup.UserID = user.ID
	if _, err := s.CreateBlock(ctx, &dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate block, got %v", err)
	}

	all, err := s.ListBlocks(ctx, tt.ID)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(all))
	}

	mine, err := s.ListUserBlocks(ctx, tt.ID, user.ID)
	if err != nil {
		t.Fatalf("list user blocks: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(mine))
	}

	created[0].Label = "gym"
	created[0].EndHour = 2
	if err := s.UpdateBlocks(ctx, []*store.ScheduleBlock{created[0]}); err != nil {
		t.Fatalf("update blocks: %v", err)
	}
	got, err := s.GetBlock(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if got.Label != "gym" || got.EndHour != 2 {
		t.Fatalf("unexpected block after update: %+v", got)
	}

	// A missing block rolls back the whole batch.
	created[1].Label = "should not stick"
	err = s.UpdateBlocks(ctx, []*store.ScheduleBlock{created[1], {ID: "missing"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ = s.GetBlock(ctx, created[1].ID)
	if got.Label == "should not stick" {
		t.Fatalf("batch update was not rolled back")
	}

	day := 2
	n, err := s.DeleteUserBlocks(ctx, tt.ID, user.ID, &day)
	if err != nil || n != 1 {
		t.Fatalf("delete by day: n=%d err=%v", n, err)
	}

	if err := s.DeleteBlock(ctx, created[0].ID); err != nil {
		t.Fatalf("delete block: %v", err)
	}
	if err := s.DeleteBlock(ctx, created[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	n, err = s.DeleteUserBlocks(ctx, tt.ID, user.ID, nil)
	if err != nil || n != 1 {
		t.Fatalf("delete all: n=%d err=%v", n, err)
	}

	left, _ := s.ListBlocks(ctx, tt.ID)
	if len(left) != 1 || left[0].UserID != other.ID {
		t.Fatalf("expected only the other user's block, got %+v", left)
	}
}
