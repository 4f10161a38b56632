package client

import (
	"time"

	"habitTrackerAPI/internal/types/completion"
	"habitTrackerAPI/internal/types/habit"
)

// State is the last known server view the app renders from. It is passed
// around explicitly and only replaced through Reconcile or the Apply methods.
type State struct {
	My         []*habit.HabitSummary `json:"my"`
	Subscribed []*habit.HabitSummary `json:"subscribed"`
	SyncedAt   time.Time             `json:"synced_at"`
}

// Summary is the header line of the habit list.
type Summary struct {
	Total      int `json:"total"`
	DoneToday  int `json:"done_today"`
	BestStreak int `json:"best_streak"`
}

func NewState() *State {
	return &State{
		My:         []*habit.HabitSummary{},
		Subscribed: []*habit.HabitSummary{},
	}
}

// Reconcile replaces the cached lists with the server's. The server is
// authoritative, so local edits made since the last sync are dropped.
func (s *State) Reconcile(list *habit.HabitList, at time.Time) {
	s.My = copySummaries(list.My)
	s.Subscribed = copySummaries(list.Subscribed)
	s.SyncedAt = at
}

func (s *State) Find(habitID int64) *habit.HabitSummary {
	for _, h := range s.all() {
		if h.ID == habitID {
			return h
		}
	}
	return nil
}

// ApplyToggle records a toggle result on the cached habit. It reports false
// when the habit is not cached.
func (s *State) ApplyToggle(habitID int64, result *completion.ToggleResult) bool {
	h := s.Find(habitID)
	if h == nil {
		return false
	}
	h.CompletedToday = result.Completed
	h.Streak = result.Streak
	return true
}

// ApplyCreate prepends a new habit, matching the server's newest-first order.
func (s *State) ApplyCreate(h *habit.HabitSummary) {
	c := *h
	s.My = append([]*habit.HabitSummary{&c}, s.My...)
}

// ApplyDelete drops a habit from both lists.
func (s *State) ApplyDelete(habitID int64) {
	s.My = without(s.My, habitID)
	s.Subscribed = without(s.Subscribed, habitID)
}

func (s *State) IsCompletedToday(habitID int64) bool {
	h := s.Find(habitID)
	return h != nil && h.CompletedToday
}

func (s *State) Stats() Summary {
	var sum Summary
	for _, h := range s.all() {
		sum.Total++
		if h.CompletedToday {
			sum.DoneToday++
		}
		sum.BestStreak = max(sum.BestStreak, h.Streak)
	}
	return sum
}

func (s *State) Clone() *State {
	return &State{
		My:         copySummaries(s.My),
		Subscribed: copySummaries(s.Subscribed),
		SyncedAt:   s.SyncedAt,
	}
}

func (s *State) all() []*habit.HabitSummary {
	all := make([]*habit.HabitSummary, 0, len(s.My)+len(s.Subscribed))
	all = append(all, s.My...)
	return append(all, s.Subscribed...)
}

func copySummaries(in []*habit.HabitSummary) []*habit.HabitSummary {
	out := make([]*habit.HabitSummary, 0, len(in))
	for _, h := range in {
		if h == nil {
			continue
		}
		c := *h
		out = append(out, &c)
	}
	return out
}

func without(in []*habit.HabitSummary, habitID int64) []*habit.HabitSummary {
	out := in[:0:0]
	for _, h := range in {
		if h.ID != habitID {
			out = append(out, h)
		}
	}
	return out
}
