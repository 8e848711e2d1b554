package engine

const (
	// BaseXPPerLevel is the XP span of every level: level 1 is 0-99 XP,
	// level 2 is 100-199 XP, and so on.
	BaseXPPerLevel = 100

	// MaxLevel caps progression. XP past the level-1000 threshold still
	// accumulates but yields no further level.
	MaxLevel = 1000
)

// Rank is the coarse tier derived from level.
type Rank string

const (
	RankE Rank = "E"
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

// RankTier is an inclusive level range mapped to a rank.
type RankTier struct {
	MinLevel int
	MaxLevel int
	Rank     Rank
	Title    string
}

// RankTiers is ordered, contiguous and exhaustive over [1, MaxLevel].
var RankTiers = []RankTier{
	{MinLevel: 1, MaxLevel: 49, Rank: RankE, Title: "The Awakened"},
	{MinLevel: 50, MaxLevel: 149, Rank: RankD, Title: "Striker"},
	{MinLevel: 150, MaxLevel: 299, Rank: RankC, Title: "Elite"},
	{MinLevel: 300, MaxLevel: 499, Rank: RankB, Title: "Authority"},
	{MinLevel: 500, MaxLevel: 899, Rank: RankA, Title: "Monarch"},
	{MinLevel: 900, MaxLevel: 1000, Rank: RankS, Title: "Sovereign"},
}

// LevelInfo is the full progression view of an XP total.
type LevelInfo struct {
	Level     int
	Rank      Rank
	RankTitle string
	// CurrentLevelXP is the XP earned inside the current level.
	CurrentLevelXP int
	// NextLevelXP is the total XP at which the next level starts.
	NextLevelXP int
	// Progress is CurrentLevelXP as a percentage of BaseXPPerLevel, capped at 100.
	Progress int
}

// LevelForTotalXP is the one place a level is derived from XP.
// Negative XP is treated as 0.
func LevelForTotalXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	level := totalXP/BaseXPPerLevel + 1
	if level > MaxLevel {
		level = MaxLevel
	}
	return level
}

// XPRequiredForLevel returns the total XP at which level starts.
func XPRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return (level - 1) * BaseXPPerLevel
}

// RankForLevel returns the first tier containing level, or the lowest tier
// when none does.
func RankForLevel(level int) RankTier {
	for _, tier := range RankTiers {
		if level >= tier.MinLevel && level <= tier.MaxLevel {
			return tier
		}
	}
	return RankTiers[0]
}

func CalculateLevelInfo(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelForTotalXP(totalXP)
	tier := RankForLevel(level)

	current := totalXP - XPRequiredForLevel(level)
	progress := (current*100 + BaseXPPerLevel/2) / BaseXPPerLevel
	if progress > 100 {
		progress = 100
	}

	return LevelInfo{
		Level:          level,
		Rank:           tier.Rank,
		RankTitle:      tier.Title,
		CurrentLevelXP: current,
		NextLevelXP:    level * BaseXPPerLevel,
		Progress:       progress,
	}
}
