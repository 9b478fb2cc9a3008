package timetables

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/proto"
	"github.com/vovakirdan/timetable-server/internal/store"
)

// Common errors for timetable operations.
var (
	ErrForbidden    = errors.New("not enough permissions")
	ErrInvalidBlock = errors.New("invalid schedule block")
	ErrEmptyUpdate  = errors.New("no schedule blocks to update")
)

// Store is the persistence the service needs.
type Store interface {
	store.TimetableStore
	store.ScheduleBlockStore
}

// Notifier relays a payload to the real-time subscribers of a timetable.
type Notifier interface {
	Publish(timetableID, payload string) int
}

// BlockInput describes a new schedule block.
type BlockInput struct {
	TimetableID string
	Day         int
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Label       string
}

// BlockUpdate replaces the time range and label of an existing block.
type BlockUpdate struct {
	ID          string
	Day         int
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Label       string
}

// Service provides timetable and schedule block business logic.
type Service struct {
	store    Store
	notifier Notifier
	log      *zerolog.Logger
}

// New creates a timetable service. A nil notifier disables change notifications.
func New(st Store, notifier Notifier, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:    st,
		notifier: notifier,
		log:      logger,
	}
}

// CreateTimetable creates a timetable owned by ownerID.
func (s *Service) CreateTimetable(ctx context.Context, ownerID, title, description string) (*store.Timetable, error) {
	tt, err := s.store.CreateTimetable(ctx, &store.Timetable{
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create timetable: %w", err)
	}
	return tt, nil
}

// GetTimetable returns a timetable by id.
func (s *Service) GetTimetable(ctx context.Context, id string) (*store.Timetable, error) {
	return s.store.GetTimetable(ctx, id)
}

// ListTimetablesByOwner lists the timetables created by ownerID.
func (s *Service) ListTimetablesByOwner(ctx context.Context, ownerID string) ([]*store.Timetable, error) {
	return s.store.ListTimetablesByOwner(ctx, ownerID)
}

// UpdateTimetable changes title and description. Only the owner may do so.
func (s *Service) UpdateTimetable(ctx context.Context, actorID, id, title, description string) (*store.Timetable, error) {
	tt, err := s.store.GetTimetable(ctx, id)
	if err != nil {
		return nil, err
	}
	if tt.OwnerID != actorID {
		return nil, ErrForbidden
	}

	tt.Title = title
	tt.Description = description
	updated, err := s.store.UpdateTimetable(ctx, tt)
	if err != nil {
		return nil, fmt.Errorf("update timetable: %w", err)
	}

	s.notify(updated.ID, proto.EventTimetableUpdated, proto.TimetableFromStore(updated))
	return updated, nil
}

// CreateBlock places a block for actorID on an existing timetable.
func (s *Service) CreateBlock(ctx context.Context, actorID string, in BlockInput) (*store.ScheduleBlock, error) {
	if err := validateRange(in.Day, in.StartHour, in.StartMinute, in.EndHour, in.EndMinute); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTimetable(ctx, in.TimetableID); err != nil {
		return nil, err
	}

	block, err := s.store.CreateBlock(ctx, &store.ScheduleBlock{
		TimetableID: in.TimetableID,
		UserID:      actorID,
		Day:         in.Day,
		StartHour:   in.StartHour,
		StartMinute: in.StartMinute,
		EndHour:     in.EndHour,
		EndMinute:   in.EndMinute,
		Label:       in.Label,
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule block: %w", err)
	}

	s.notify(block.TimetableID, proto.EventScheduleBlockCreated, proto.BlockFromStore(block))
	return block, nil
}

// GetBlock returns a block by id.
func (s *Service) GetBlock(ctx context.Context, id string) (*store.ScheduleBlock, error) {
	return s.store.GetBlock(ctx, id)
}

// ListBlocks lists every block on a timetable.
func (s *Service) ListBlocks(ctx context.Context, timetableID string) ([]*store.ScheduleBlock, error) {
	return s.store.ListBlocks(ctx, timetableID)
}

// ListUserBlocks lists the blocks userID placed on a timetable.
func (s *Service) ListUserBlocks(ctx context.Context, timetableID, userID string) ([]*store.ScheduleBlock, error) {
	return s.store.ListUserBlocks(ctx, timetableID, userID)
}

// UpdateBlocks applies every update or none. Each block must exist and
// belong to actorID.
func (s *Service) UpdateBlocks(ctx context.Context, actorID string, updates []BlockUpdate) ([]*store.ScheduleBlock, error) {
	if len(updates) == 0 {
		return nil, ErrEmptyUpdate
	}

	blocks := make([]*store.ScheduleBlock, 0, len(updates))
	for _, u := range updates {
		if err := validateRange(u.Day, u.StartHour, u.StartMinute, u.EndHour, u.EndMinute); err != nil {
			return nil, err
		}
		block, err := s.store.GetBlock(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("schedule block %s: %w", u.ID, err)
		}
		if block.UserID != actorID {
			return nil, fmt.Errorf("schedule block %s: %w", u.ID, ErrForbidden)
		}
		block.Day = u.Day
		block.StartHour = u.StartHour
		block.StartMinute = u.StartMinute
		block.EndHour = u.EndHour
		block.EndMinute = u.EndMinute
		block.Label = u.Label
		blocks = append(blocks, block)
	}

	if err := s.store.UpdateBlocks(ctx, blocks); err != nil {
		return nil, fmt.Errorf("update schedule blocks: %w", err)
	}

	byTimetable := make(map[string][]*store.ScheduleBlock)
	var order []string
	for _, b := range blocks {
		if _, ok := byTimetable[b.TimetableID]; !ok {
			order = append(order, b.TimetableID)
		}
		byTimetable[b.TimetableID] = append(byTimetable[b.TimetableID], b)
	}
	for _, id := range order {
		s.notify(id, proto.EventScheduleBlocksUpdated, proto.BlocksFromStore(byTimetable[id]))
	}

	return blocks, nil
}

// DeleteBlock removes a block owned by actorID.
func (s *Service) DeleteBlock(ctx context.Context, actorID, id string) error {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return err
	}
	if block.UserID != actorID {
		return ErrForbidden
	}
	if err := s.store.DeleteBlock(ctx, id); err != nil {
		return fmt.Errorf("delete schedule block: %w", err)
	}

	s.notify(block.TimetableID, proto.EventScheduleBlockDeleted, proto.BlockDeleted{ID: id})
	return nil
}

// DeleteUserBlocksByDay removes actorID's blocks on one day of a timetable.
func (s *Service) DeleteUserBlocksByDay(ctx context.Context, actorID, timetableID string, day int) (int64, error) {
	if day < 0 || day > 6 {
		return 0, fmt.Errorf("%w: day must be between 0 and 6", ErrInvalidBlock)
	}
	return s.deleteUserBlocks(ctx, actorID, timetableID, &day)
}

// DeleteUserBlocks removes every block actorID placed on a timetable.
func (s *Service) DeleteUserBlocks(ctx context.Context, actorID, timetableID string) (int64, error) {
	return s.deleteUserBlocks(ctx, actorID, timetableID, nil)
}

func (s *Service) deleteUserBlocks(ctx context.Context, actorID, timetableID string, day *int) (int64, error) {
	if _, err := s.store.GetTimetable(ctx, timetableID); err != nil {
		return 0, err
	}

	n, err := s.store.DeleteUserBlocks(ctx, timetableID, actorID, day)
	if err != nil {
		return 0, fmt.Errorf("delete schedule blocks: %w", err)
	}
	if n > 0 {
		s.notify(timetableID, proto.EventScheduleBlocksDeleted, proto.BlocksDeleted{
			UserID:  actorID,
			Day:     day,
			Deleted: n,
		})
	}
	return n, nil
}

func (s *Service) notify(timetableID, event string, data any) {
	if s.notifier == nil {
		return
	}
	payload, err := proto.ChangeEvent{Event: event, TimetableID: timetableID, Data: data}.Encode()
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("encode change notification")
		return
	}
	delivered := s.notifier.Publish(timetableID, payload)
	s.log.Debug().
		Str("event", event).
		Str("timetable_id", timetableID).
		Int("delivered", delivered).
		Msg("change notification published")
}

// validateRange checks day and clock bounds. End before start is allowed.
func validateRange(day, startHour, startMinute, endHour, endMinute int) error {
	switch {
	case day < 0 || day > 6:
		return fmt.Errorf("%w: day must be between 0 and 6", ErrInvalidBlock)
	case startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23:
		return fmt.Errorf("%w: hour must be between 0 and 23", ErrInvalidBlock)
	case startMinute < 0 || startMinute > 59 || endMinute < 0 || endMinute > 59:
		return fmt.Errorf("%w: minute must be between 0 and 59", ErrInvalidBlock)
	}
	return nil
}
