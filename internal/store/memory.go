package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/types/calendar"
	"habitTrackerAPI/internal/types/friendship"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/types/subscription"
	"habitTrackerAPI/internal/user"
)

var _ Store = (*MemoryStore)(nil)

type completionKey struct {
	habitID int64
	userID  int64
	date    string
}

type subscriptionKey struct {
	userID  int64
	habitID int64
}

// MemoryStore keeps everything in process memory. It enforces the same
// uniqueness, foreign key and cascade rules as the Postgres schema.
type MemoryStore struct {
	mu sync.Mutex

	now    func() time.Time
	nextID int64

	users         map[int64]*user.User
	habits        map[int64]*habit.Habit
	completions   map[completionKey]time.Time
	subscriptions map[subscriptionKey]time.Time
	settings      map[int64]*notification.Settings
	devices       map[string]*notification.DeviceToken
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:           now,
		users:         make(map[int64]*user.User),
		habits:        make(map[int64]*habit.Habit),
		completions:   make(map[completionKey]time.Time),
		subscriptions: make(map[subscriptionKey]time.Time),
		settings:      make(map[int64]*notification.Settings),
		devices:       make(map[string]*notification.DeviceToken),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() {}

func (m *MemoryStore) UpsertUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[u.TelegramID]; ok {
		existing.FirstName = u.FirstName
		existing.LastName = u.LastName
		existing.Username = u.Username
		return nil
	}
	stored := *u
	stored.CreatedAt = m.now()
	m.users[u.TelegramID] = &stored
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, telegramID int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) CreateHabit(_ context.Context, h *habit.Habit) (*habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[h.OwnerID]; !ok {
		return nil, fmt.Errorf("failed to create habit: owner %d does not exist", h.OwnerID)
	}
	if !h.Frequency.Valid() {
		return nil, fmt.Errorf("failed to create habit: invalid frequency %q", h.Frequency)
	}

	m.nextID++
	created := *h
	created.ID = m.nextID
	created.CreatedAt = m.now()
	m.habits[created.ID] = &created

	cp := created
	return &cp, nil
}

func (m *MemoryStore) GetHabit(_ context.Context, habitID int64) (*habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[habitID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *MemoryStore) DeleteOwnedHabit(_ context.Context, habitID, ownerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[habitID]
	if !ok || h.OwnerID != ownerID {
		return false, nil
	}

	delete(m.habits, habitID)
	for k := range m.completions {
		if k.habitID == habitID {
			delete(m.completions, k)
		}
	}
	for k := range m.subscriptions {
		if k.habitID == habitID {
			delete(m.subscriptions, k)
		}
	}
	return true, nil
}

func (m *MemoryStore) Relationship(_ context.Context, habitID, userID int64) (habit.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[habitID]
	switch {
	case !ok:
		return habit.RoleNone, nil
	case h.OwnerID == userID:
		return habit.RoleOwner, nil
	}
	if _, ok := m.subscriptions[subscriptionKey{userID, habitID}]; ok {
		return habit.RoleSubscriber, nil
	}
	return habit.RoleNone, nil
}

func (m *MemoryStore) ListOwnedHabits(_ context.Context, userID int64) ([]*habit.Listed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	habits := []*habit.Listed{}
	for _, h := range m.habits {
		if h.OwnerID == userID {
			habits = append(habits, m.listed(h, habit.RoleOwner))
		}
	}
	sortListed(habits)
	return habits, nil
}

func (m *MemoryStore) ListSubscribedHabits(_ context.Context, userID int64) ([]*habit.Listed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	habits := []*habit.Listed{}
	for k := range m.subscriptions {
		if k.userID != userID {
			continue
		}
		if h, ok := m.habits[k.habitID]; ok {
			habits = append(habits, m.listed(h, habit.RoleSubscriber))
		}
	}
	sortListed(habits)
	return habits, nil
}

// listed must be called with mu held.
func (m *MemoryStore) listed(h *habit.Habit, role habit.Role) *habit.Listed {
	l := &habit.Listed{
		Habit:           *h,
		Role:            role,
		SubscriberCount: m.subscriberCount(h.ID),
	}
	if owner, ok := m.users[h.OwnerID]; ok {
		l.OwnerName = owner.DisplayName()
		l.OwnerUsername = owner.Username
	}
	return l
}

func sortListed(habits []*habit.Listed) {
	sort.Slice(habits, func(i, j int) bool {
		if !habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].CreatedAt.After(habits[j].CreatedAt)
		}
		return habits[i].ID > habits[j].ID
	})
}

func (m *MemoryStore) ToggleCompletion(_ context.Context, habitID, userID int64, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.habits[habitID]; !ok {
		return false, fmt.Errorf("failed to toggle completion: habit %d does not exist", habitID)
	}
	if _, ok := m.users[userID]; !ok {
		return false, fmt.Errorf("failed to toggle completion: user %d does not exist", userID)
	}

	key := completionKey{habitID, userID, date}
	if _, ok := m.completions[key]; ok {
		delete(m.completions, key)
		return false, nil
	}
	m.completions[key] = m.now()
	return true, nil
}

func (m *MemoryStore) CompletedHabitIDs(_ context.Context, userID int64, date string) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := make(map[int64]bool)
	for k := range m.completions {
		if k.userID == userID && k.date == date {
			done[k.habitID] = true
		}
	}
	return done, nil
}

func (m *MemoryStore) RecentCompletionDates(_ context.Context, habitID, userID int64, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dates := m.datesFor(habitID, userID)
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if limit >= 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (m *MemoryStore) CountCompletions(_ context.Context, habitID, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.datesFor(habitID, userID)), nil
}

// datesFor must be called with mu held.
func (m *MemoryStore) datesFor(habitID, userID int64) []string {
	dates := []string{}
	for k := range m.completions {
		if k.habitID == habitID && k.userID == userID {
			dates = append(dates, k.date)
		}
	}
	return dates
}

func (m *MemoryStore) MonthCompletions(_ context.Context, habitID, userID int64, month string) (*calendar.MonthCompletions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &calendar.MonthCompletions{My: []string{}, Friends: []*calendar.FriendCompletion{}}
	for k := range m.completions {
		if k.habitID != habitID || (month != "" && !strings.HasPrefix(k.date, month+"-")) {
			continue
		}
		if k.userID == userID {
			result.My = append(result.My, k.date)
			continue
		}
		fc := &calendar.FriendCompletion{Date: k.date, TelegramID: k.userID}
		if u, ok := m.users[k.userID]; ok {
			fc.FirstName = u.FirstName
		}
		result.Friends = append(result.Friends, fc)
	}

	sort.Strings(result.My)
	sort.Slice(result.Friends, func(i, j int) bool {
		a, b := result.Friends[i], result.Friends[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.TelegramID < b.TelegramID
	})
	return result, nil
}

func (m *MemoryStore) ListDiscoverable(_ context.Context, userID int64) ([]*friendship.Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[int64]int)
	for _, h := range m.habits {
		if h.IsPublic && h.OwnerID != userID {
			counts[h.OwnerID]++
		}
	}

	friends := []*friendship.Friend{}
	for id, n := range counts {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		friends = append(friends, &friendship.Friend{
			ID:         u.TelegramID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Username:   u.Username,
			HabitCount: n,
		})
	}
	sort.Slice(friends, func(i, j int) bool {
		if friends[i].FirstName != friends[j].FirstName {
			return friends[i].FirstName < friends[j].FirstName
		}
		return friends[i].ID < friends[j].ID
	})
	return friends, nil
}

func (m *MemoryStore) ListPublicHabits(_ context.Context, ownerID, viewerID int64) ([]*friendship.FriendHabit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	habits := []*friendship.FriendHabit{}
	for _, h := range m.habits {
		if h.OwnerID != ownerID || !h.IsPublic {
			continue
		}
		_, subscribed := m.subscriptions[subscriptionKey{viewerID, h.ID}]
		habits = append(habits, &friendship.FriendHabit{
			Habit:           *h,
			SubscriberCount: m.subscriberCount(h.ID),
			IsSubscribed:    subscribed,
		})
	}
	sort.Slice(habits, func(i, j int) bool {
		if !habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].CreatedAt.After(habits[j].CreatedAt)
		}
		return habits[i].ID > habits[j].ID
	})
	return habits, nil
}

func (m *MemoryStore) AddSubscription(_ context.Context, userID, habitID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return fmt.Errorf("failed to subscribe: user %d does not exist", userID)
	}
	if _, ok := m.habits[habitID]; !ok {
		return fmt.Errorf("failed to subscribe: habit %d does not exist", habitID)
	}

	key := subscriptionKey{userID, habitID}
	if _, ok := m.subscriptions[key]; !ok {
		m.subscriptions[key] = m.now()
	}
	return nil
}

func (m *MemoryStore) RemoveSubscription(_ context.Context, userID, habitID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subscriptions, subscriptionKey{userID, habitID})
	return nil
}

func (m *MemoryStore) SubscriberCount(_ context.Context, habitID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.subscriberCount(habitID), nil
}

// subscriberCount must be called with mu held.
func (m *MemoryStore) subscriberCount(habitID int64) int {
	n := 0
	for k := range m.subscriptions {
		if k.habitID == habitID {
			n++
		}
	}
	return n
}

func (m *MemoryStore) InvitePreview(_ context.Context, habitID int64) (*subscription.InvitePreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[habitID]
	if !ok || !h.IsPublic {
		return nil, ErrNotFound
	}
	owner, ok := m.users[h.OwnerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &subscription.InvitePreview{
		ID:              h.ID,
		Name:            h.Name,
		Icon:            h.Icon,
		Frequency:       h.Frequency,
		Description:     h.Description,
		OwnerName:       owner.DisplayName(),
		OwnerID:         owner.TelegramID,
		SubscriberCount: m.subscriberCount(h.ID),
	}, nil
}

func (m *MemoryStore) GetNotificationSettings(_ context.Context, telegramID int64) (*notification.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.settings[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ns
	return &cp, nil
}

func (m *MemoryStore) UpsertNotificationSettings(_ context.Context, ns *notification.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[ns.TelegramID]; !ok {
		return fmt.Errorf("failed to save notification settings: user %d does not exist", ns.TelegramID)
	}
	if ns.RemindTime < 0 || ns.RemindTime > 23 {
		return fmt.Errorf("failed to save notification settings: remind_time %d out of range", ns.RemindTime)
	}

	ns.UpdatedAt = m.now()
	cp := *ns
	m.settings[ns.TelegramID] = &cp
	return nil
}

func (m *MemoryStore) UpsertDeviceToken(_ context.Context, t *notification.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[t.UserID]; !ok {
		return fmt.Errorf("failed to register device: user %d does not exist", t.UserID)
	}

	if existing, ok := m.devices[t.Token]; ok {
		existing.UserID = t.UserID
		existing.Platform = t.Platform
		t.CreatedAt = existing.CreatedAt
		return nil
	}
	t.CreatedAt = m.now()
	cp := *t
	m.devices[t.Token] = &cp
	return nil
}

func (m *MemoryStore) DeviceTokens(_ context.Context, userID int64) ([]*notification.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tokens []*notification.DeviceToken
	for _, t := range m.devices {
		if t.UserID == userID {
			cp := *t
			tokens = append(tokens, &cp)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return tokens, nil
}

func (m *MemoryStore) ReminderRecipients(_ context.Context) ([]*notification.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var recipients []*notification.Recipient
	for id, ns := range m.settings {
		u, ok := m.users[id]
		if !ok || !ns.Enabled {
			continue
		}
		recipients = append(recipients, &notification.Recipient{
			TelegramID:     id,
			FirstName:      u.FirstName,
			RemindTime:     ns.RemindTime,
			TimezoneOffset: ns.TimezoneOffset,
		})
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].TelegramID < recipients[j].TelegramID })
	return recipients, nil
}

func (m *MemoryStore) OutstandingHabits(_ context.Context, userID int64, date string) ([]*notification.OutstandingHabit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var habits []*notification.OutstandingHabit
	for _, h := range m.habits {
		_, subscribed := m.subscriptions[subscriptionKey{userID, h.ID}]
		if h.OwnerID != userID && !subscribed {
			continue
		}
		if _, done := m.completions[completionKey{h.ID, userID, date}]; done {
			continue
		}
		habits = append(habits, &notification.OutstandingHabit{ID: h.ID, Name: h.Name, Icon: h.Icon})
	}
	sort.Slice(habits, func(i, j int) bool { return habits[i].ID < habits[j].ID })
	return habits, nil
}
