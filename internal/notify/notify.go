// Package notify defines the contract between the engine and an external
// local-notification scheduler: the requests the engine emits, the stable
// numeric ids they carry, and a dispatcher that never lets a scheduler
// failure reach the caller.
package notify

import (
	"context"
	"fmt"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"
)

// Fixed ids of the daily summaries.
const (
	TaskSummaryID     int64 = 10001
	JournalReminderID int64 = 10002
)

type Kind int

const (
	KindRepeating Kind = iota + 1 // every day at Hour:Minute
	KindOneShot                   // once at At
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindRepeating:
		return "repeating"
	case KindOneShot:
		return "one-shot"
	case KindCancel:
		return "cancel"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request is a single scheduling decision.
type Request struct {
	Kind   Kind
	ID     int64
	Title  string
	Body   string
	Hour   int
	Minute int
	At     time.Time
	// TaskID is set for per-task reminders.
	TaskID string
}

func Cancel(id int64) Request {
	return Request{Kind: KindCancel, ID: id}
}

// Scheduler is the external collaborator. Scheduling an id that is already
// scheduled replaces it.
type Scheduler interface {
	Schedule(ctx context.Context, userID string, req Request) error
	Cancel(ctx context.Context, userID string, id int64) error
}

// ID maps an opaque entity id to a stable notification id: the 32-bit
// string hash h = h*31 + c over UTF-16 code units, made non-negative.
func ID(entityID string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(entityID)) {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// Dispatch applies reqs in order. Failures are logged and swallowed so a
// scheduler problem never blocks the data mutation that produced them.
func Dispatch(ctx context.Context, s Scheduler, log *zap.Logger, userID string, reqs ...Request) {
	if s == nil {
		return
	}
	for _, req := range reqs {
		var err error
		switch req.Kind {
		case KindCancel:
			err = s.Cancel(ctx, userID, req.ID)
		case KindRepeating, KindOneShot:
			err = s.Schedule(ctx, userID, req)
		default:
			err = fmt.Errorf("unknown notification kind %v", req.Kind)
		}
		if err != nil {
			log.Warn("notification dispatch failed",
				zap.String("user_id", userID),
				zap.Int64("notification_id", req.ID),
				zap.Stringer("kind", req.Kind),
				zap.Error(err),
			)
			continue
		}
		log.Debug("notification dispatched",
			zap.String("user_id", userID),
			zap.Int64("notification_id", req.ID),
			zap.Stringer("kind", req.Kind),
		)
	}
}
