package root

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"arise/internal/config"
	"arise/internal/engine"
	"arise/internal/logging"
	"arise/internal/storage"
)

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		cfg.Database.Path = flags.dbPath
	}
	if flags.userID != "" {
		cfg.Session.UserID = flags.userID
	}
	if flags.verbose {
		cfg.Log.Mode = "development"
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func reminderSchedule(cfg *config.Config) (engine.ReminderSchedule, error) {
	th, tm, err := engine.ParseClock(cfg.Notifications.TaskSummary)
	if err != nil {
		return engine.ReminderSchedule{}, fmt.Errorf("notifications.task_summary: %w", err)
	}
	jh, jm, err := engine.ParseClock(cfg.Notifications.JournalReminder)
	if err != nil {
		return engine.ReminderSchedule{}, fmt.Errorf("notifications.journal_reminder: %w", err)
	}
	return engine.ReminderSchedule{
		TaskSummaryHour:       th,
		TaskSummaryMinute:     tm,
		JournalReminderHour:   jh,
		JournalReminderMinute: jm,
	}, nil
}

// now is the clock of every service the CLI opens.
var now = time.Now

// buildService wires config, logger, store and service without touching
// any data.
func buildService(ctx context.Context, flags *globalFlags) (*engine.Service, *zap.Logger, func(), error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, err
	}
	rs, err := reminderSchedule(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	path := cfg.Database.Path
	if path == "" {
		if path, err = storage.ResolveDBPath(); err != nil {
			return nil, nil, nil, err
		}
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Debug("database opened", zap.String("path", path))

	retry := storage.DefaultRetryPolicy
	retry.MaxTries = cfg.Store.RetryMaxTries
	store := storage.NewStore(db, engine.LevelForTotalXP, retry)

	svc := engine.NewService(store,
		engine.WithSession(engine.StaticSession(cfg.Session.UserID)),
		engine.WithLogger(log),
		engine.WithLocation(loc),
		engine.WithReminderSchedule(rs),
		engine.WithClock(now),
	)
	cleanup := func() {
		_ = db.Close()
		_ = log.Sync()
	}
	return svc, log, cleanup, nil
}

// openService builds the service and brings today's habit tasks up to date,
// so every command sees the current day. A failed refresh is not fatal.
func openService(ctx context.Context, flags *globalFlags) (*engine.Service, func(), error) {
	svc, log, cleanup, err := buildService(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.RefreshHabitTasks(ctx)
	if err != nil {
		log.Warn("refresh habit tasks", zap.Error(err))
	} else if len(res.Created) > 0 {
		log.Debug("habit tasks created", zap.Int("count", len(res.Created)))
	}
	return svc, cleanup, nil
}

// resolveID expands a unique id prefix, as shown by list commands.
func resolveID(kind, prefix string, ids []string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}
	var match string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("%s id %q is ambiguous", kind, prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", engine.NotFoundError{Kind: kind, ID: prefix}
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
