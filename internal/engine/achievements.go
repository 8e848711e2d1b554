package engine

import "context"

// Achievement represents a badge the hunter can earn.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Earned      bool
}

// AchievementChecker calculates which achievements are earned from the
// user's derived stats.
type AchievementChecker struct {
	stats Stats
}

func NewAchievementChecker(stats Stats) *AchievementChecker {
	return &AchievementChecker{stats: stats}
}

// GetAchievements returns all achievements with their earned status.
func (c *AchievementChecker) GetAchievements() []Achievement {
	return []Achievement{
		// Level milestones
		c.levelAchievement("awakened", "Awakened", "Reach level 1", "🌱", 1),
		c.levelAchievement("level_10", "Rising Hunter", "Reach level 10", "⭐", 10),
		c.levelAchievement("level_25", "Seasoned Hunter", "Reach level 25", "🌟", 25),

		// Rank promotions
		c.rankAchievement("rank_d", "Striker", "Reach rank D", "🗡", RankD),
		c.rankAchievement("rank_c", "Elite", "Reach rank C", "⚔", RankC),
		c.rankAchievement("rank_b", "Authority", "Reach rank B", "🛡", RankB),
		c.rankAchievement("rank_a", "Monarch", "Reach rank A", "👑", RankA),
		c.rankAchievement("rank_s", "Sovereign", "Reach rank S", "💫", RankS),

		// Task completion milestones
		c.countAchievement("first_task", "First Quest", "Complete 1 task", "✓", c.stats.CompletedTasks, 1),
		c.countAchievement("productive", "Productive", "Complete 10 tasks", "📋", c.stats.CompletedTasks, 10),
		c.countAchievement("achiever", "Achiever", "Complete 50 tasks", "🏅", c.stats.CompletedTasks, 50),
		c.countAchievement("powerhouse", "Powerhouse", "Complete 100 tasks", "🏆", c.stats.CompletedTasks, 100),

		// Habits
		c.countAchievement("habit_former", "Habit Former", "Create a habit", "🔁", c.stats.Habits, 1),
		c.countAchievement("week_streak", "Unbroken Week", "Reach a 7 day habit streak", "🔥", c.stats.BestHabitStreak, 7),
		c.countAchievement("month_streak", "Iron Will", "Reach a 30 day habit streak", "🌋", c.stats.BestHabitStreak, 30),

		// Journal and focus
		c.countAchievement("first_entry", "Chronicler", "Write a journal entry", "📓", c.stats.JournalEntries, 1),
		c.countAchievement("journal_30", "Archivist", "Write 30 journal entries", "📚", c.stats.JournalEntries, 30),
		c.countAchievement("first_focus", "In the Zone", "Complete a focus session", "⏱", c.stats.FocusSessions, 1),
		c.countAchievement("focus_600", "Deep Diver", "Focus for 600 minutes", "🧠", c.stats.FocusMinutes, 600),
	}
}

// CountEarned returns how many achievements have been earned.
func (c *AchievementChecker) CountEarned() int {
	count := 0
	for _, a := range c.GetAchievements() {
		if a.Earned {
			count++
		}
	}
	return count
}

// CountTotal returns total number of achievements.
func (c *AchievementChecker) CountTotal() int {
	return len(c.GetAchievements())
}

func (c *AchievementChecker) levelAchievement(id, name, desc, icon string, level int) Achievement {
	earned := c.stats.Level.Level >= level
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) rankAchievement(id, name, desc, icon string, rank Rank) Achievement {
	earned := false
	for _, tier := range RankTiers {
		if tier.Rank == rank {
			earned = c.stats.Level.Level >= tier.MinLevel
			break
		}
	}
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) countAchievement(id, name, desc, icon string, have, want int) Achievement {
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: have >= want}
}

// Achievements is a convenience wrapper loading a fresh snapshot.
func (s *Service) Achievements(ctx context.Context) ([]Achievement, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	checker := NewAchievementChecker(ComputeStats(snap, s.Today(), s.loc))
	return checker.GetAchievements(), nil
}
