package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"arise/internal/storage"
)

const (
	FocusModePomodoro = "pomodoro"
	FocusModeDeep     = "deep"
	FocusModeCustom   = "custom"
)

type FocusInput struct {
	Mode    string
	Minutes int
	// TaskID optionally ties the session to a task.
	TaskID string
}

type FocusResult struct {
	Session *storage.FocusSession
	Changed bool
	XP      XPChange
}

func (s *Service) StartFocusSession(ctx context.Context, in FocusInput) (*storage.FocusSession, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	mode := strings.TrimSpace(strings.ToLower(in.Mode))
	switch mode {
	case "":
		mode = FocusModePomodoro
	case FocusModePomodoro, FocusModeDeep, FocusModeCustom:
	default:
		return nil, ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown focus mode %q", in.Mode)}
	}
	if in.Minutes <= 0 {
		return nil, ValidationError{Field: "minutes", Reason: "must be positive"}
	}

	ins := storage.FocusInsert{UserID: userID, Mode: mode, Duration: in.Minutes, StartedAt: s.now()}
	if in.TaskID != "" {
		t, err := s.getTask(ctx, userID, in.TaskID)
		if err != nil {
			return nil, err
		}
		ins.TaskID = &t.ID
		ins.TaskTitle = &t.Title
	}
	id, err := s.store.Focus.Insert(ctx, ins)
	if err != nil {
		return nil, err
	}
	return s.store.Focus.Get(ctx, userID, id)
}

// CompleteFocusSession finishes a session and grants focus XP once.
func (s *Service) CompleteFocusSession(ctx context.Context, id string, completedMinutes int) (*FocusResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if completedMinutes < 0 {
		return nil, ValidationError{Field: "minutes", Reason: "must not be negative"}
	}
	fs, err := s.store.Focus.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, NotFoundError{Kind: "focus session", ID: id}
	}
	if fs.Completed {
		return &FocusResult{Session: fs}, nil
	}

	changed, err := s.store.Focus.MarkCompleted(ctx, userID, id, completedMinutes, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return &FocusResult{Session: fs}, nil
	}
	xp, err := s.applyXP(ctx, userID, EventFocusCompleted, Decide(LedgerEvent{Kind: EventFocusCompleted}).Delta)
	if err != nil {
		if rerr := s.store.Focus.Reopen(ctx, userID, id); rerr != nil {
			s.log.Error("revert focus completion", zap.String("session_id", id), zap.Error(rerr))
		}
		return nil, fmt.Errorf("award focus xp: %w", err)
	}
	if fs, err = s.store.Focus.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return &FocusResult{Session: fs, Changed: true, XP: xp}, nil
}

// RecordFocusSession logs a finished session in one step.
func (s *Service) RecordFocusSession(ctx context.Context, in FocusInput) (*FocusResult, error) {
	fs, err := s.StartFocusSession(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.CompleteFocusSession(ctx, fs.ID, in.Minutes)
}

func (s *Service) ListFocusSessions(ctx context.Context) ([]storage.FocusSession, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Focus.ListAll(ctx, userID)
}

type MoodInput struct {
	Mood   int
	Energy int
	Note   string
}

// LogMood records today's mood. Energy is optional (0 = unset).
func (s *Service) LogMood(ctx context.Context, in MoodInput) (*storage.MoodLog, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if err := validateMood("mood", in.Mood, false); err != nil {
		return nil, err
	}
	if err := validateMood("energy", in.Energy, true); err != nil {
		return nil, err
	}
	m := storage.MoodLog{UserID: userID, Mood: in.Mood, LogDate: s.Today(), Note: optionalString(in.Note)}
	if in.Energy != 0 {
		e := in.Energy
		m.Energy = &e
	}
	id, err := s.store.Moods.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return &m, nil
}

func (s *Service) RecentMoods(ctx context.Context, limit int) ([]storage.MoodLog, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Moods.ListRecent(ctx, userID, limit)
}

func (s *Service) AddCategory(ctx context.Context, name, color string) (*storage.Category, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Field: "name", Reason: "name is required"}
	}
	if color == "" {
		color = DefaultColor
	}
	return s.store.Categories.Upsert(ctx, userID, name, color)
}

func (s *Service) ListCategories(ctx context.Context) ([]storage.Category, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Categories.ListAll(ctx, userID)
}

// DeleteCategory removes the category; tasks and habits keep their label.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	userID, err := s.requireUser()
	if err != nil {
		return err
	}
	ok, err := s.store.Categories.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundError{Kind: "category", ID: id}
	}
	return nil
}
