package engine

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"arise/internal/notify"
	"arise/internal/storage"
)

// Session supplies the signed-in user. ok is false when there is no session;
// every operation is then disabled.
type Session interface {
	UserID() (id string, ok bool)
}

// StaticSession is a fixed user id; the empty string means signed out.
type StaticSession string

func (s StaticSession) UserID() (string, bool) { return string(s), s != "" }

type Service struct {
	store     *storage.Store
	session   Session
	notifier  notify.Scheduler
	log       *zap.Logger
	now       func() time.Time
	loc       *time.Location
	reminders ReminderSchedule
	newKey    func() string
}

type Option func(*Service)

func WithSession(s Session) Option { return func(svc *Service) { svc.session = s } }

// WithNotifier replaces the default reminders outbox.
func WithNotifier(n notify.Scheduler) Option { return func(svc *Service) { svc.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(svc *Service) { svc.log = l } }

func WithClock(now func() time.Time) Option { return func(svc *Service) { svc.now = now } }

func WithLocation(loc *time.Location) Option { return func(svc *Service) { svc.loc = loc } }

func WithReminderSchedule(rs ReminderSchedule) Option {
	return func(svc *Service) { svc.reminders = rs }
}

// NewService wires the engine over store. Without WithSession every
// operation is a no-op.
func NewService(store *storage.Store, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		session:   StaticSession(""),
		notifier:  store.Notifications,
		log:       zap.NewNop(),
		now:       time.Now,
		loc:       time.Local,
		reminders: DefaultReminderSchedule,
		newKey:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Store() *storage.Store { return s.store }

func (s *Service) Location() *time.Location { return s.loc }

// Today is the current calendar day in the service's time zone.
func (s *Service) Today() civil.Date {
	return DayOf(s.now(), s.loc)
}

func (s *Service) userID() (string, bool) {
	if s.session == nil {
		return "", false
	}
	return s.session.UserID()
}

// requireUser gates mutations.
func (s *Service) requireUser() (string, error) {
	id, ok := s.userID()
	if !ok {
		return "", ErrNoSession
	}
	return id, nil
}

func (s *Service) dispatch(ctx context.Context, userID string, reqs ...notify.Request) {
	notify.Dispatch(ctx, s.notifier, s.log, userID, reqs...)
}

// applyXP records delta under a fresh idempotency key. A zero delta reads
// the current total without writing an event.
func (s *Service) applyXP(ctx context.Context, userID string, kind EventKind, delta int) (XPChange, error) {
	if delta == 0 {
		st, err := s.store.Stats.GetOrCreate(ctx, userID)
		if err != nil {
			return XPChange{}, err
		}
		return NewXPChange(kind, st.XP, st.XP), nil
	}

	ev, _, err := s.store.Stats.ApplyXP(ctx, userID, s.newKey(), string(kind), delta)
	if err != nil {
		return XPChange{}, err
	}
	change := NewXPChange(kind, ev.XPBefore, ev.XPAfter)
	if change.LevelUp {
		s.log.Info("level up",
			zap.String("user_id", userID),
			zap.Int("level", change.LevelAfter),
			zap.String("rank", string(change.Info.Rank)),
		)
	}
	return change, nil
}

// afterTaskMutation re-evaluates the daily task summary.
func (s *Service) afterTaskMutation(ctx context.Context, userID string) {
	n, err := s.store.Tasks.CountIncomplete(ctx, userID)
	if err != nil {
		s.log.Warn("count incomplete tasks", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.dispatch(ctx, userID, TaskSummaryDecision(n, s.reminders))
}

// afterJournalMutation re-evaluates the evening journal reminder.
func (s *Service) afterJournalMutation(ctx context.Context, userID string) {
	today := s.Today()
	n, err := s.store.Journal.CountCreatedBetween(ctx, userID, StartOfDay(today, s.loc), StartOfDay(today.AddDays(1), s.loc))
	if err != nil {
		s.log.Warn("count journal entries", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.dispatch(ctx, userID, JournalReminderDecision(n > 0, s.reminders))
}

// LevelInfo returns the progression view of the current user.
func (s *Service) LevelInfo(ctx context.Context) (LevelInfo, error) {
	userID, ok := s.userID()
	if !ok {
		return CalculateLevelInfo(0), nil
	}
	st, err := s.store.Stats.GetOrCreate(ctx, userID)
	if err != nil {
		return LevelInfo{}, err
	}
	return CalculateLevelInfo(st.XP), nil
}

// RecentXP lists the latest XP events, newest first.
func (s *Service) RecentXP(ctx context.Context, limit int) ([]storage.XPEvent, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Stats.ListEvents(ctx, userID, limit)
}

// Reminders lists the notifications currently held in the outbox.
func (s *Service) Reminders(ctx context.Context) ([]storage.ScheduledNotification, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Notifications.ListAll(ctx, userID)
}

// DeleteAllData removes every record of the current user and cancels their
// notifications. Unlike other mutations, failures are reported.
func (s *Service) DeleteAllData(ctx context.Context) error {
	userID, err := s.requireUser()
	if err != nil {
		return err
	}
	tasks, err := s.store.Tasks.ListAll(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUserData(ctx, userID); err != nil {
		return err
	}

	reqs := []notify.Request{notify.Cancel(notify.TaskSummaryID), notify.Cancel(notify.JournalReminderID)}
	for _, t := range tasks {
		if t.ReminderTime != nil {
			reqs = append(reqs, CancelTaskReminder(t.ID))
		}
	}
	s.dispatch(ctx, userID, reqs...)
	s.log.Info("user data deleted", zap.String("user_id", userID), zap.Int("tasks", len(tasks)))
	return nil
}
