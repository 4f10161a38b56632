package client

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"habitTrackerAPI/internal/types/completion"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/types/subscription"
)

// API is the part of Client a Session drives.
type API interface {
	ListHabits(ctx context.Context) (*habit.HabitList, error)
	CreateHabit(ctx context.Context, req *habit.CreateHabitRequest) (*habit.HabitSummary, error)
	DeleteHabit(ctx context.Context, habitID int64) error
	ToggleCompletion(ctx context.Context, habitID int64) (*completion.ToggleResult, error)
	Subscribe(ctx context.Context, habitID int64) (*subscription.SubscriptionResult, error)
	Unsubscribe(ctx context.Context, habitID int64) (*subscription.SubscriptionResult, error)
}

type Cache interface {
	Load() (*State, error)
	Save(state *State) error
}

// Session applies mutations one at a time and resyncs the full habit list
// after each. A failed call leaves the state and the cache as they were.
type Session struct {
	mu    sync.Mutex
	api   API
	cache Cache
	state *State
	now   func() time.Time
}

// NewSession starts from the cached state. cache may be nil. An unreadable
// cache is logged and the session starts empty.
func NewSession(api API, cache Cache) *Session {
	state := NewState()
	if cache != nil {
		cached, err := cache.Load()
		if err != nil {
			log.Warnf("Client: ignoring unreadable cache: %v", err)
		} else {
			state = cached
		}
	}
	return &Session{api: api, cache: cache, state: state, now: time.Now}
}

// State returns a copy of the current state.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx)
}

func (s *Session) CreateHabit(ctx context.Context, req *habit.CreateHabitRequest) (*habit.HabitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.api.CreateHabit(ctx, req)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, func(st *State) { st.ApplyCreate(created) })
	return created, nil
}

func (s *Session) DeleteHabit(ctx context.Context, habitID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.DeleteHabit(ctx, habitID); err != nil {
		return err
	}
	s.afterMutation(ctx, func(st *State) { st.ApplyDelete(habitID) })
	return nil
}

func (s *Session) ToggleCompletion(ctx context.Context, habitID int64) (*completion.ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.api.ToggleCompletion(ctx, habitID)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, func(st *State) { st.ApplyToggle(habitID, result) })
	return result, nil
}

func (s *Session) Subscribe(ctx context.Context, habitID int64) (*subscription.SubscriptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.api.Subscribe(ctx, habitID)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, nil)
	return result, nil
}

func (s *Session) Unsubscribe(ctx context.Context, habitID int64) (*subscription.SubscriptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.api.Unsubscribe(ctx, habitID)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, func(st *State) {
		st.Subscribed = without(st.Subscribed, habitID)
	})
	return result, nil
}

// afterMutation resyncs. When the resync fails the local patch is applied
// instead so the state still reflects the mutation the server accepted.
func (s *Session) afterMutation(ctx context.Context, patch func(*State)) {
	err := s.sync(ctx)
	if err == nil {
		return
	}

	log.Warnf("Client: resync after mutation failed: %v", err)
	if patch == nil {
		return
	}
	next := s.state.Clone()
	patch(next)
	s.commit(next)
}

// sync must be called with mu held.
func (s *Session) sync(ctx context.Context) error {
	list, err := s.api.ListHabits(ctx)
	if err != nil {
		return err
	}

	next := s.state.Clone()
	next.Reconcile(list, s.now())
	s.commit(next)
	return nil
}

// commit must be called with mu held. A cache write failure is logged; the
// in-memory state still advances.
func (s *Session) commit(next *State) {
	s.state = next
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(next); err != nil {
		log.Warnf("Client: failed to save cache: %v", err)
	}
}
