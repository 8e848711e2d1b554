package engine

import (
	"context"
	"fmt"
	"strings"

	"arise/internal/storage"
)

type JournalInput struct {
	Title   string
	Content string
	// Mood is 1..5; 0 means unset.
	Mood int
	Tags []string
}

type JournalResult struct {
	Entry *storage.JournalEntry
	XP    XPChange
}

// SentimentOf maps a 1..5 mood onto the stored sentiment label.
func SentimentOf(mood int) string {
	switch {
	case mood <= 0:
		return DefaultSentiment
	case mood <= 2:
		return "negative"
	case mood == 3:
		return "neutral"
	default:
		return "positive"
	}
}

func validateMood(field string, v int, optional bool) error {
	if optional && v == 0 {
		return nil
	}
	if v < 1 || v > 5 {
		return ValidationError{Field: field, Reason: fmt.Sprintf("%d is outside 1..5", v)}
	}
	return nil
}

func cleanTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// AddJournalEntry stores an entry, grants journal XP and drops tonight's
// journal reminder.
func (s *Service) AddJournalEntry(ctx context.Context, in JournalInput) (*JournalResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateMood("mood", in.Mood, true); err != nil {
		return nil, err
	}

	id, err := s.store.Journal.Insert(ctx, storage.JournalInsert{
		UserID:    userID,
		Title:     title,
		Content:   in.Content,
		Mood:      in.Mood,
		Tags:      cleanTags(in.Tags),
		Sentiment: SentimentOf(in.Mood),
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	xp, err := s.applyXP(ctx, userID, EventJournalCreated, Decide(LedgerEvent{Kind: EventJournalCreated}).Delta)
	if err != nil {
		if _, rerr := s.store.Journal.Delete(ctx, userID, id); rerr != nil {
			return nil, fmt.Errorf("award journal xp: %w (revert: %v)", err, rerr)
		}
		return nil, fmt.Errorf("award journal xp: %w", err)
	}

	e, err := s.store.Journal.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.afterJournalMutation(ctx, userID)
	return &JournalResult{Entry: e, XP: xp}, nil
}

func (s *Service) UpdateJournalEntry(ctx context.Context, id string, in JournalInput) (*storage.JournalEntry, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	e, err := s.store.Journal.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, NotFoundError{Kind: "journal entry", ID: id}
	}
	if in.Title != "" {
		if e.Title, err = normalizeTitle(in.Title); err != nil {
			return nil, err
		}
	}
	if in.Content != "" {
		e.Content = in.Content
	}
	if in.Mood != 0 {
		if err := validateMood("mood", in.Mood, false); err != nil {
			return nil, err
		}
		e.Mood = in.Mood
	}
	if in.Tags != nil {
		e.Tags = cleanTags(in.Tags)
	}
	if err := s.store.Journal.Update(ctx, *e); err != nil {
		return nil, err
	}
	s.afterJournalMutation(ctx, userID)
	return e, nil
}

// DeleteJournalEntry removes an entry. Journal XP has no deduction path.
func (s *Service) DeleteJournalEntry(ctx context.Context, id string) error {
	userID, err := s.requireUser()
	if err != nil {
		return err
	}
	ok, err := s.store.Journal.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundError{Kind: "journal entry", ID: id}
	}
	s.afterJournalMutation(ctx, userID)
	return nil
}

func (s *Service) ListJournal(ctx context.Context) ([]storage.JournalEntry, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Journal.ListAll(ctx, userID)
}
