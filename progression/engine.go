package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Observer is told about committed progression changes. Calls happen after the
// unit of work has been persisted.
type Observer interface {
	CheckedIn(t Transition)
	Redeemed()
	Unlocked(badgeID string, t Type)
	LeveledUp(levels int)
}

type nopObserver struct{}

func (nopObserver) CheckedIn(Transition)  {}
func (nopObserver) Redeemed()             {}
func (nopObserver) Unlocked(string, Type) {}
func (nopObserver) LeveledUp(int)         {}

// Engine applies progression events to a Store.
type Engine struct {
	store    Store
	catalog  *Catalog
	tracker  StreakTracker
	now      func() time.Time
	log      *zap.Logger
	observer Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCatalog replaces the built-in catalog.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithStreakTracker sets the grace window and time zone used for check-ins.
func WithStreakTracker(t StreakTracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithObserver registers an observer for committed changes.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine returns an engine over store using the default catalog, a 30h/UTC
// streak tracker and the wall clock unless overridden.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		catalog:  DefaultCatalog(),
		tracker:  NewStreakTracker(DefaultStreakGrace, time.UTC),
		now:      time.Now,
		log:      zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine evaluates.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Grant is one achievement granted by the engine.
type Grant struct {
	Unlock   Unlock `json:"achievement"`
	XPReward int    `json:"xp_reward"`
}

// EvaluateResult is the outcome of Evaluate.
type EvaluateResult struct {
	Granted     []Grant     `json:"new_achievements"`
	Progression Progression `json:"progression"`
	Gain        LevelGain   `json:"gain"`
}

// UnlockResult is the outcome of an explicit unlock.
type UnlockResult struct {
	Unlock          Unlock      `json:"achievement"`
	AlreadyUnlocked bool        `json:"already_unlocked"`
	Progression     Progression `json:"progression"`
	Gain            LevelGain   `json:"gain"`
}

// CheckInResult is the outcome of a check-in.
type CheckInResult struct {
	Streak     Streak     `json:"streak"`
	Transition Transition `json:"transition"`
}

// SessionReward is what a completed practice session pays before achievements.
type SessionReward struct {
	XP    int `json:"xp"`
	Coins int `json:"coins"`
}

// SessionResult is the outcome of RecordSession.
type SessionResult struct {
	Progression Progression `json:"progression"`
	Gain        LevelGain   `json:"gain"`
	Granted     []Grant     `json:"new_achievements"`
}

// committed collects observer notifications until the unit of work succeeds.
type committed []func(Observer)

func (c *committed) add(f func(Observer)) { *c = append(*c, f) }

func (e *Engine) run(ctx context.Context, userID uint, fn func(tx Tx, events *committed) error) error {
	var events committed
	err := e.store.Do(ctx, userID, func(tx Tx) error {
		events = events[:0]
		return fn(tx, &events)
	})
	if err != nil {
		return err
	}
	for _, f := range events {
		f(e.observer)
	}
	return nil
}

func addGain(total, g LevelGain) LevelGain {
	total.LevelsGained += g.LevelsGained
	total.CoinsGained += g.CoinsGained
	return total
}

func unlockFor(userID uint, d Definition, at time.Time) Unlock {
	return Unlock{
		UserID:      userID,
		BadgeID:     d.BadgeID,
		Type:        d.Type,
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		UnlockedAt:  at,
	}
}

func (e *Engine) tryCreate(ctx context.Context, tx Tx, u Unlock) (bool, error) {
	created, err := tx.TryCreateUnlock(ctx, u)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	return created, err
}

// grant applies the reward for a freshly created unlock.
func grant(p Progression, badgeID string, xp int) (Progression, LevelGain, error) {
	p = p.WithBadge(badgeID)
	return ApplyExperience(p, xp)
}

// evaluate runs the catalog against c until no more definitions fire.
// c.Level tracks p.Level between passes so level badges cascade.
func (e *Engine) evaluate(ctx context.Context, tx Tx, userID uint, p Progression, c Context, events *committed) (Progression, []Grant, LevelGain, error) {
	unlocked, err := tx.UnlockedBadgeIDs(ctx)
	if err != nil {
		return p, nil, LevelGain{}, err
	}

	var (
		granted []Grant
		total   LevelGain
		now     = e.now()
	)
	for {
		c.Level = p.Level
		fired := false
		for _, d := range e.catalog.ordered {
			if _, ok := unlocked[d.BadgeID]; ok {
				continue
			}
			if !d.Trigger(c) {
				continue
			}
			// one attempt per badge per call, whatever the outcome
			unlocked[d.BadgeID] = struct{}{}

			u := unlockFor(userID, d, now)
			created, err := e.tryCreate(ctx, tx, u)
			if err != nil {
				return p, nil, LevelGain{}, fmt.Errorf("create unlock %s: %w", d.BadgeID, err)
			}
			if !created {
				e.log.Debug("unlock already recorded", zap.Uint("user_id", userID), zap.String("badge_id", d.BadgeID))
				continue
			}

			var g LevelGain
			p, g, err = grant(p, d.BadgeID, d.XPReward)
			if err != nil {
				return p, nil, LevelGain{}, err
			}
			total = addGain(total, g)
			granted = append(granted, Grant{Unlock: u, XPReward: d.XPReward})
			fired = true

			badge, typ := d.BadgeID, d.Type
			events.add(func(o Observer) { o.Unlocked(badge, typ) })
		}
		if !fired {
			break
		}
	}
	return p, granted, total, nil
}

// Evaluate grants every catalog achievement whose trigger holds for c and that
// the user does not have yet. Rewards go through the ledger and are persisted
// together with the unlock records.
func (e *Engine) Evaluate(ctx context.Context, userID uint, c Context) (EvaluateResult, error) {
	if err := c.validate(); err != nil {
		return EvaluateResult{}, err
	}

	var res EvaluateResult
	err := e.run(ctx, userID, func(tx Tx, events *committed) error {
		p, err := tx.LoadProgression(ctx)
		if err != nil {
			return err
		}
		p, granted, gain, err := e.evaluate(ctx, tx, userID, p, c, events)
		if err != nil {
			return err
		}
		if len(granted) > 0 {
			if err := tx.SaveProgression(ctx, p); err != nil {
				return err
			}
		}
		if gain.LevelsGained > 0 {
			n := gain.LevelsGained
			events.add(func(o Observer) { o.LeveledUp(n) })
		}
		res = EvaluateResult{Granted: granted, Progression: p, Gain: gain}
		return nil
	})
	if err != nil {
		return EvaluateResult{}, err
	}
	for _, g := range res.Granted {
		e.log.Info("achievement unlocked",
			zap.Uint("user_id", userID),
			zap.String("badge_id", g.Unlock.BadgeID),
			zap.Int("xp_reward", g.XPReward))
	}
	return res, nil
}

// Unlock grants badgeID explicitly, skipping its trigger. A second call for the
// same badge returns the stored record with AlreadyUnlocked set and awards nothing.
func (e *Engine) Unlock(ctx context.Context, userID uint, badgeID string, xpReward int) (UnlockResult, error) {
	d, ok := e.catalog.Lookup(badgeID)
	if !ok {
		return UnlockResult{}, fmt.Errorf("%w: achievement %q", ErrNotFound, badgeID)
	}
	if xpReward < 0 || xpReward > MaxAward {
		return UnlockResult{}, fmt.Errorf("%w: xp reward %d is outside 0..%d", ErrInvalidArgument, xpReward, MaxAward)
	}

	var res UnlockResult
	err := e.run(ctx, userID, func(tx Tx, events *committed) error {
		p, err := tx.LoadProgression(ctx)
		if err != nil {
			return err
		}
		existing, found, err := tx.FindUnlock(ctx, badgeID)
		if err != nil {
			return err
		}
		if found {
			res = UnlockResult{Unlock: existing, AlreadyUnlocked: true, Progression: p}
			return nil
		}

		u := unlockFor(userID, d, e.now())
		created, err := e.tryCreate(ctx, tx, u)
		if err != nil {
			return fmt.Errorf("create unlock %s: %w", badgeID, err)
		}
		if !created {
			existing, _, err := tx.FindUnlock(ctx, badgeID)
			if err != nil {
				return err
			}
			res = UnlockResult{Unlock: existing, AlreadyUnlocked: true, Progression: p}
			return nil
		}

		p, gain, err := grant(p, badgeID, xpReward)
		if err != nil {
			return err
		}
		if err := tx.SaveProgression(ctx, p); err != nil {
			return err
		}
		events.add(func(o Observer) { o.Unlocked(d.BadgeID, d.Type) })
		if gain.LevelsGained > 0 {
			events.add(func(o Observer) { o.LeveledUp(gain.LevelsGained) })
		}
		res = UnlockResult{Unlock: u, Progression: p, Gain: gain}
		return nil
	})
	if err != nil {
		return UnlockResult{}, err
	}
	if !res.AlreadyUnlocked {
		e.log.Info("achievement unlocked",
			zap.Uint("user_id", userID),
			zap.String("badge_id", badgeID),
			zap.Int("xp_reward", xpReward))
	}
	return res, nil
}

// RecordSession pays a completed session's XP and coins and then evaluates the
// catalog against c, all in one unit of work.
func (e *Engine) RecordSession(ctx context.Context, userID uint, reward SessionReward, c Context) (SessionResult, error) {
	if reward.XP < 0 || reward.Coins < 0 || reward.XP > MaxAward || reward.Coins > MaxAward {
		return SessionResult{}, fmt.Errorf("%w: session reward must be within 0..%d", ErrInvalidArgument, MaxAward)
	}
	if err := c.validate(); err != nil {
		return SessionResult{}, err
	}

	var res SessionResult
	err := e.run(ctx, userID, func(tx Tx, events *committed) error {
		p, err := tx.LoadProgression(ctx)
		if err != nil {
			return err
		}
		p, gain, err := ApplyExperience(p, reward.XP)
		if err != nil {
			return err
		}
		if p, err = AwardCoins(p, reward.Coins); err != nil {
			return err
		}
		p, granted, more, err := e.evaluate(ctx, tx, userID, p, c, events)
		if err != nil {
			return err
		}
		gain = addGain(gain, more)
		if err := tx.SaveProgression(ctx, p); err != nil {
			return err
		}
		if gain.LevelsGained > 0 {
			n := gain.LevelsGained
			events.add(func(o Observer) { o.LeveledUp(n) })
		}
		res = SessionResult{Progression: p, Gain: gain, Granted: granted}
		return nil
	})
	if err != nil {
		return SessionResult{}, err
	}
	return res, nil
}

// CheckIn records a daily check-in.
func (e *Engine) CheckIn(ctx context.Context, userID uint) (CheckInResult, error) {
	var res CheckInResult
	err := e.run(ctx, userID, func(tx Tx, events *committed) error {
		s, err := tx.LoadStreak(ctx)
		if err != nil {
			return err
		}
		s, transition := e.tracker.CheckIn(s, e.now())
		if err := tx.SaveStreak(ctx, s); err != nil {
			return err
		}
		events.add(func(o Observer) { o.CheckedIn(transition) })
		res = CheckInResult{Streak: s, Transition: transition}
		return nil
	})
	if err != nil {
		return CheckInResult{}, err
	}
	e.log.Debug("check-in recorded",
		zap.Uint("user_id", userID),
		zap.String("transition", string(res.Transition)),
		zap.Int("current_streak", res.Streak.Current))
	return res, nil
}

// Redeem spends a redemption token to extend the streak.
func (e *Engine) Redeem(ctx context.Context, userID uint) (Streak, error) {
	var out Streak
	err := e.run(ctx, userID, func(tx Tx, events *committed) error {
		s, err := tx.LoadStreak(ctx)
		if err != nil {
			return err
		}
		s, err = e.tracker.Redeem(s, e.now())
		if err != nil {
			return err
		}
		if err := tx.SaveStreak(ctx, s); err != nil {
			return err
		}
		events.add(func(o Observer) { o.Redeemed() })
		out = s
		return nil
	})
	return out, err
}

// GrantTokens adds redemption tokens to a user's streak.
func (e *Engine) GrantTokens(ctx context.Context, userID uint, count int) (Streak, error) {
	var out Streak
	err := e.run(ctx, userID, func(tx Tx, _ *committed) error {
		s, err := tx.LoadStreak(ctx)
		if err != nil {
			return err
		}
		if s, err = GrantTokens(s, count); err != nil {
			return err
		}
		if err := tx.SaveStreak(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// Progress returns the stored progression.
func (e *Engine) Progress(ctx context.Context, userID uint) (Progression, error) {
	var out Progression
	err := e.store.Do(ctx, userID, func(tx Tx) error {
		p, err := tx.LoadProgression(ctx)
		out = p
		return err
	})
	return out, err
}

// StreakStatus returns the stored streak.
func (e *Engine) StreakStatus(ctx context.Context, userID uint) (Streak, error) {
	var out Streak
	err := e.store.Do(ctx, userID, func(tx Tx) error {
		s, err := tx.LoadStreak(ctx)
		out = s
		return err
	})
	return out, err
}

// Achievements lists the user's unlocks, oldest first.
func (e *Engine) Achievements(ctx context.Context, userID uint) ([]Unlock, error) {
	var out []Unlock
	err := e.store.Do(ctx, userID, func(tx Tx) error {
		list, err := tx.ListUnlocks(ctx)
		out = list
		return err
	})
	return out, err
}
