package progression

import (
	"context"
	"sort"
	"sync"
)

type memoryRecord struct {
	progression Progression
	streak      Streak
	unlocks     map[string]Unlock
}

func (r *memoryRecord) clone() *memoryRecord {
	out := &memoryRecord{
		progression: r.progression,
		streak:      r.streak,
		unlocks:     make(map[string]Unlock, len(r.unlocks)),
	}
	out.progression.Badges = append([]string(nil), r.progression.Badges...)
	if r.streak.LastCheckIn != nil {
		t := *r.streak.LastCheckIn
		out.streak.LastCheckIn = &t
	}
	for k, v := range r.unlocks {
		out.unlocks[k] = v
	}
	return out
}

// MemoryStore keeps every user in process memory behind a per-user mutex.
// Users are created on first access. It backs tests only.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[uint]*sync.Mutex
	records map[uint]*memoryRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[uint]*sync.Mutex),
		records: make(map[uint]*memoryRecord),
	}
}

func (m *MemoryStore) userLock(userID uint) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *MemoryStore) snapshot(userID uint) *memoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok {
		return &memoryRecord{progression: NewProgression(), unlocks: map[string]Unlock{}}
	}
	return r.clone()
}

func (m *MemoryStore) commit(userID uint, r *memoryRecord) {
	m.mu.Lock()
	m.records[userID] = r
	m.mu.Unlock()
}

// Do implements Store.
func (m *MemoryStore) Do(ctx context.Context, userID uint, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	tx := &memoryTx{userID: userID, rec: m.snapshot(userID)}
	if err := fn(tx); err != nil {
		return err
	}
	m.commit(userID, tx.rec)
	return nil
}

type memoryTx struct {
	userID uint
	rec    *memoryRecord
}

func (t *memoryTx) LoadProgression(context.Context) (Progression, error) {
	p := t.rec.progression
	p.Badges = append([]string{}, p.Badges...)
	return p, nil
}

func (t *memoryTx) SaveProgression(_ context.Context, p Progression) error {
	p.Badges = append([]string{}, p.Badges...)
	t.rec.progression = p
	return nil
}

func (t *memoryTx) LoadStreak(context.Context) (Streak, error) {
	return t.rec.streak, nil
}

func (t *memoryTx) SaveStreak(_ context.Context, s Streak) error {
	t.rec.streak = s
	return nil
}

func (t *memoryTx) TryCreateUnlock(_ context.Context, u Unlock) (bool, error) {
	if _, ok := t.rec.unlocks[u.BadgeID]; ok {
		return false, nil
	}
	u.UserID = t.userID
	t.rec.unlocks[u.BadgeID] = u
	return true, nil
}

func (t *memoryTx) UnlockedBadgeIDs(context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(t.rec.unlocks))
	for id := range t.rec.unlocks {
		out[id] = struct{}{}
	}
	return out, nil
}

func (t *memoryTx) FindUnlock(_ context.Context, badgeID string) (Unlock, bool, error) {
	u, ok := t.rec.unlocks[badgeID]
	return u, ok, nil
}

func (t *memoryTx) ListUnlocks(context.Context) ([]Unlock, error) {
	out := make([]Unlock, 0, len(t.rec.unlocks))
	for _, u := range t.rec.unlocks {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].BadgeID < out[j].BadgeID
		}
		return out[i].UnlockedAt.Before(out[j].UnlockedAt)
	})
	return out, nil
}
