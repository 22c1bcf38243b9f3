package progression

import (
	"fmt"
	"strings"
	"sync"
)

// Type classifies an achievement.
type Type string

const (
	TypeBadge     Type = "badge"
	TypeLevel     Type = "level"
	TypeMilestone Type = "milestone"
	TypeStreak    Type = "streak"
	TypeSession   Type = "session"
	TypePhoto     Type = "photo"
	TypeTime      Type = "time"
)

// IsValid reports whether t is one of the known achievement types.
func (t Type) IsValid() bool {
	switch t {
	case TypeBadge, TypeLevel, TypeMilestone, TypeStreak, TypeSession, TypePhoto, TypeTime:
		return true
	default:
		return false
	}
}

// Context is the snapshot of user activity that trigger predicates look at.
type Context struct {
	CompletedSessionCount int `json:"completed_session_count"`
	CurrentStreak         int `json:"current_streak"`
	PhotoSessionCount     int `json:"photo_session_count"`
	TotalPracticeMinutes  int `json:"total_practice_minutes"`
	// Level is filled in by the engine from the stored progression.
	Level int `json:"level"`
}

func (c Context) validate() error {
	if c.CompletedSessionCount < 0 || c.CurrentStreak < 0 || c.PhotoSessionCount < 0 || c.TotalPracticeMinutes < 0 {
		return fmt.Errorf("%w: context counters must not be negative", ErrInvalidArgument)
	}
	return nil
}

// Trigger decides whether a definition is earned for a context.
type Trigger func(Context) bool

// Definition describes one achievement.
type Definition struct {
	BadgeID     string  `json:"badge_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Type        Type    `json:"type"`
	XPReward    int     `json:"xp_reward"`
	Trigger     Trigger `json:"-"`
}

// Catalog is an immutable set of definitions keyed by badge ID.
type Catalog struct {
	ordered []Definition
	byID    map[string]Definition
}

// NewCatalog validates defs and builds a catalog preserving their order.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]Definition, 0, len(defs)),
		byID:    make(map[string]Definition, len(defs)),
	}
	for _, d := range defs {
		d.BadgeID = strings.TrimSpace(d.BadgeID)
		switch {
		case d.BadgeID == "":
			return nil, fmt.Errorf("%w: achievement without badge id", ErrInvalidArgument)
		case d.Trigger == nil:
			return nil, fmt.Errorf("%w: achievement %q has no trigger", ErrInvalidArgument, d.BadgeID)
		case d.XPReward < 0:
			return nil, fmt.Errorf("%w: achievement %q has negative reward", ErrInvalidArgument, d.BadgeID)
		case !d.Type.IsValid():
			return nil, fmt.Errorf("%w: achievement %q has unknown type %q", ErrInvalidArgument, d.BadgeID, d.Type)
		}
		if _, dup := c.byID[d.BadgeID]; dup {
			return nil, fmt.Errorf("%w: duplicate badge id %q", ErrInvalidArgument, d.BadgeID)
		}
		c.byID[d.BadgeID] = d
		c.ordered = append(c.ordered, d)
	}
	return c, nil
}

// Lookup returns the definition for badgeID.
func (c *Catalog) Lookup(badgeID string) (Definition, bool) {
	d, ok := c.byID[badgeID]
	return d, ok
}

// All returns the definitions in catalog order. The slice is a copy.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.ordered) }

func sessionsAtLeast(n int) Trigger {
	return func(c Context) bool { return c.CompletedSessionCount >= n }
}

func streakAtLeast(n int) Trigger {
	return func(c Context) bool { return c.CurrentStreak >= n }
}

func levelAtLeast(n int) Trigger {
	return func(c Context) bool { return c.Level >= n }
}

func photosAtLeast(n int) Trigger {
	return func(c Context) bool { return c.PhotoSessionCount >= n }
}

func minutesAtLeast(n int) Trigger {
	return func(c Context) bool { return c.TotalPracticeMinutes >= n }
}

// DefaultDefinitions is the built-in achievement table.
func DefaultDefinitions() []Definition {
	return []Definition{
		{BadgeID: "first_steps", Name: "First Steps", Description: "Complete your first practice session", Icon: "session", Type: TypeSession, XPReward: 100, Trigger: sessionsAtLeast(1)},
		{BadgeID: "dedicated_learner", Name: "Dedicated Learner", Description: "Complete 10 practice sessions", Icon: "session", Type: TypeSession, XPReward: 200, Trigger: sessionsAtLeast(10)},
		{BadgeID: "practice_centurion", Name: "Practice Centurion", Description: "Complete 100 practice sessions", Icon: "TrophyIcon", Type: TypeMilestone, XPReward: 1000, Trigger: sessionsAtLeast(100)},
		{BadgeID: "streak_starter", Name: "Streak Starter", Description: "Maintain a 3-day streak", Icon: "FireIcon", Type: TypeStreak, XPReward: 150, Trigger: streakAtLeast(3)},
		{BadgeID: "streak_warrior", Name: "Streak Warrior", Description: "Maintain a 7-day streak", Icon: "FireIcon", Type: TypeStreak, XPReward: 350, Trigger: streakAtLeast(7)},
		{BadgeID: "streak_master", Name: "Streak Master", Description: "Maintain a 30-day streak", Icon: "FireIcon", Type: TypeStreak, XPReward: 1000, Trigger: streakAtLeast(30)},
		{BadgeID: "rising_star", Name: "Rising Star", Description: "Reach level 5", Icon: "StarIcon", Type: TypeLevel, XPReward: 0, Trigger: levelAtLeast(5)},
		{BadgeID: "shutterbug", Name: "Shutterbug", Description: "Attach a photo to a practice session", Icon: "CameraIcon", Type: TypePhoto, XPReward: 50, Trigger: photosAtLeast(1)},
		{BadgeID: "marathon", Name: "Marathon", Description: "Practice for 10 hours in total", Icon: "ClockIcon", Type: TypeTime, XPReward: 300, Trigger: minutesAtLeast(600)},
	}
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := NewCatalog(DefaultDefinitions()...)
	if err != nil {
		panic(fmt.Sprintf("progression: invalid built-in catalog: %v", err))
	}
	return c
})

// DefaultCatalog returns the process-wide built-in catalog. It is built on first use.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}
