package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/types/calendar"
	"habitTrackerAPI/internal/types/friendship"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/types/subscription"
	"habitTrackerAPI/internal/user"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (s *PostgresStore) UpsertUser(ctx context.Context, u *user.User) error {
	query := `
	INSERT INTO users (telegram_id, first_name, last_name, username)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (telegram_id) DO UPDATE SET
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		username = EXCLUDED.username
	`

	if _, err := s.db.Exec(ctx, query, u.TelegramID, u.FirstName, u.LastName, u.Username); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, telegramID int64) (*user.User, error) {
	query := `
	SELECT telegram_id, first_name, last_name, username, created_at
	FROM users
	WHERE telegram_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, telegramID).Scan(
		&u.TelegramID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// -----------------------------------------------------------------------------
// Habits
// -----------------------------------------------------------------------------

func (s *PostgresStore) CreateHabit(ctx context.Context, h *habit.Habit) (*habit.Habit, error) {
	query := `
	INSERT INTO habits (owner_id, name, description, icon, frequency, is_public)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`

	created := *h
	err := s.db.QueryRow(ctx, query,
		h.OwnerID,
		h.Name,
		h.Description,
		h.Icon,
		h.Frequency,
		h.IsPublic,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetHabit(ctx context.Context, habitID int64) (*habit.Habit, error) {
	query := `
	SELECT id, owner_id, name, description, icon, frequency, is_public, created_at
	FROM habits
	WHERE id = $1
	`

	h := &habit.Habit{}
	err := s.db.QueryRow(ctx, query, habitID).Scan(
		&h.ID,
		&h.OwnerID,
		&h.Name,
		&h.Description,
		&h.Icon,
		&h.Frequency,
		&h.IsPublic,
		&h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) DeleteOwnedHabit(ctx context.Context, habitID, ownerID int64) (bool, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND owner_id = $2`, habitID, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete habit: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (s *PostgresStore) Relationship(ctx context.Context, habitID, userID int64) (habit.Role, error) {
	query := `
	SELECT CASE
		WHEN h.owner_id = $2 THEN 'owner'
		WHEN EXISTS (
			SELECT 1 FROM subscriptions s WHERE s.habit_id = h.id AND s.user_id = $2
		) THEN 'subscriber'
		ELSE ''
	END
	FROM habits h
	WHERE h.id = $1
	`

	var role string
	err := s.db.QueryRow(ctx, query, habitID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return habit.RoleNone, nil
		}
		return habit.RoleNone, fmt.Errorf("failed to resolve habit relationship: %w", err)
	}
	return habit.Role(role), nil
}

func listHabitsQuery() sq.SelectBuilder {
	return psql.Select(
		"h.id",
		"h.owner_id",
		"h.name",
		"h.description",
		"h.icon",
		"h.frequency",
		"h.is_public",
		"h.created_at",
		"COALESCE(NULLIF(u.first_name, ''), u.username)",
		"u.username",
		"(SELECT COUNT(*) FROM subscriptions s WHERE s.habit_id = h.id) AS subscriber_count",
	).
		From("habits h").
		Join("users u ON u.telegram_id = h.owner_id").
		OrderBy("h.created_at DESC", "h.id DESC")
}

func (s *PostgresStore) ListOwnedHabits(ctx context.Context, userID int64) ([]*habit.Listed, error) {
	q := listHabitsQuery().Where(sq.Eq{"h.owner_id": userID})
	return s.queryListed(ctx, q, habit.RoleOwner)
}

func (s *PostgresStore) ListSubscribedHabits(ctx context.Context, userID int64) ([]*habit.Listed, error) {
	q := listHabitsQuery().
		Join("subscriptions sub ON sub.habit_id = h.id").
		Where(sq.Eq{"sub.user_id": userID})
	return s.queryListed(ctx, q, habit.RoleSubscriber)
}

func (s *PostgresStore) queryListed(ctx context.Context, q sq.SelectBuilder, role habit.Role) ([]*habit.Listed, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build habits query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.Listed{}
	for rows.Next() {
		h := &habit.Listed{Role: role}
		err := rows.Scan(
			&h.ID,
			&h.OwnerID,
			&h.Name,
			&h.Description,
			&h.Icon,
			&h.Frequency,
			&h.IsPublic,
			&h.CreatedAt,
			&h.OwnerName,
			&h.OwnerUsername,
			&h.SubscriberCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

// -----------------------------------------------------------------------------
// Completions
// -----------------------------------------------------------------------------

func (s *PostgresStore) ToggleCompletion(ctx context.Context, habitID, userID int64, date string) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin toggle: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes concurrent flips of the same (habit, user) pair until commit.
	lockKey := fmt.Sprintf("completion:%d:%d", habitID, userID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return false, fmt.Errorf("failed to lock completion: %w", err)
	}

	query := `
	WITH removed AS (
		DELETE FROM completions
		WHERE habit_id = $1 AND user_id = $2 AND date = $3
		RETURNING id
	), added AS (
		INSERT INTO completions (habit_id, user_id, date)
		SELECT $1::bigint, $2::bigint, $3::text
		WHERE NOT EXISTS (SELECT 1 FROM removed)
		ON CONFLICT (habit_id, user_id, date) DO NOTHING
		RETURNING id
	)
	SELECT EXISTS (SELECT 1 FROM added)
	`

	var completed bool
	if err := tx.QueryRow(ctx, query, habitID, userID, date).Scan(&completed); err != nil {
		return false, fmt.Errorf("failed to toggle completion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit toggle: %w", err)
	}
	return completed, nil
}

func (s *PostgresStore) CompletedHabitIDs(ctx context.Context, userID int64, date string) (map[int64]bool, error) {
	rows, err := s.db.Query(ctx, `SELECT habit_id FROM completions WHERE user_id = $1 AND date = $2`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get today's completions: %w", err)
	}
	defer rows.Close()

	done := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}

func (s *PostgresStore) RecentCompletionDates(ctx context.Context, habitID, userID int64, limit int) ([]string, error) {
	query := `
	SELECT date FROM completions
	WHERE habit_id = $1 AND user_id = $2
	ORDER BY date DESC
	LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, habitID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion dates: %w", err)
	}
	dates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan completion dates: %w", err)
	}
	return dates, nil
}

func (s *PostgresStore) CountCompletions(ctx context.Context, habitID, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM completions WHERE habit_id = $1 AND user_id = $2`,
		habitID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MonthCompletions(ctx context.Context, habitID, userID int64, month string) (*calendar.MonthCompletions, error) {
	mine := psql.Select("date").
		From("completions").
		Where(sq.Eq{"habit_id": habitID, "user_id": userID}).
		OrderBy("date")

	friends := psql.Select("c.date", "u.first_name", "u.telegram_id").
		From("completions c").
		Join("users u ON u.telegram_id = c.user_id").
		Where(sq.Eq{"c.habit_id": habitID}).
		Where(sq.NotEq{"c.user_id": userID}).
		OrderBy("c.date", "u.telegram_id")

	if month != "" {
		mine = mine.Where(sq.Like{"date": month + "-%"})
		friends = friends.Where(sq.Like{"c.date": month + "-%"})
	}

	query, args, err := mine.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build completions query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get completions: %w", err)
	}
	myDates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan completions: %w", err)
	}

	query, args, err = friends.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build friend completions query: %w", err)
	}
	rows, err = s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get friend completions: %w", err)
	}
	defer rows.Close()

	result := &calendar.MonthCompletions{My: myDates, Friends: []*calendar.FriendCompletion{}}
	for rows.Next() {
		fc := &calendar.FriendCompletion{}
		if err := rows.Scan(&fc.Date, &fc.FirstName, &fc.TelegramID); err != nil {
			return nil, fmt.Errorf("failed to scan friend completion: %w", err)
		}
		result.Friends = append(result.Friends, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friend completions: %w", err)
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Friends and subscriptions
// -----------------------------------------------------------------------------

func (s *PostgresStore) ListDiscoverable(ctx context.Context, userID int64) ([]*friendship.Friend, error) {
	query := `
	SELECT u.telegram_id, u.first_name, u.last_name, u.username, COUNT(h.id) AS habit_count
	FROM users u
	JOIN habits h ON h.owner_id = u.telegram_id AND h.is_public
	WHERE u.telegram_id <> $1
	GROUP BY u.telegram_id, u.first_name, u.last_name, u.username
	ORDER BY u.first_name, u.telegram_id
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discoverable users: %w", err)
	}
	defer rows.Close()

	friends := []*friendship.Friend{}
	for rows.Next() {
		f := &friendship.Friend{}
		if err := rows.Scan(&f.ID, &f.FirstName, &f.LastName, &f.Username, &f.HabitCount); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		friends = append(friends, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return friends, nil
}

func (s *PostgresStore) ListPublicHabits(ctx context.Context, ownerID, viewerID int64) ([]*friendship.FriendHabit, error) {
	query := `
	SELECT h.id, h.owner_id, h.name, h.description, h.icon, h.frequency, h.is_public, h.created_at,
		(SELECT COUNT(*) FROM subscriptions s WHERE s.habit_id = h.id) AS subscriber_count,
		EXISTS (SELECT 1 FROM subscriptions s WHERE s.habit_id = h.id AND s.user_id = $2) AS is_subscribed
	FROM habits h
	WHERE h.owner_id = $1 AND h.is_public
	ORDER BY h.created_at DESC, h.id DESC
	`

	rows, err := s.db.Query(ctx, query, ownerID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public habits: %w", err)
	}
	defer rows.Close()

	habits := []*friendship.FriendHabit{}
	for rows.Next() {
		h := &friendship.FriendHabit{}
		err := rows.Scan(
			&h.ID,
			&h.OwnerID,
			&h.Name,
			&h.Description,
			&h.Icon,
			&h.Frequency,
			&h.IsPublic,
			&h.CreatedAt,
			&h.SubscriberCount,
			&h.IsSubscribed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return habits, nil
}

func (s *PostgresStore) AddSubscription(ctx context.Context, userID, habitID int64) error {
	query := `
	INSERT INTO subscriptions (user_id, habit_id)
	VALUES ($1, $2)
	ON CONFLICT (user_id, habit_id) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, userID, habitID); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveSubscription(ctx context.Context, userID, habitID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1 AND habit_id = $2`, userID, habitID); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

func (s *PostgresStore) SubscriberCount(ctx context.Context, habitID int64) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE habit_id = $1`, habitID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InvitePreview(ctx context.Context, habitID int64) (*subscription.InvitePreview, error) {
	query := `
	SELECT h.id, h.name, h.icon, h.frequency, h.description,
		COALESCE(NULLIF(u.first_name, ''), u.username) AS owner_name, u.telegram_id AS owner_id,
		(SELECT COUNT(*) FROM subscriptions s WHERE s.habit_id = h.id) AS subscriber_count
	FROM habits h
	JOIN users u ON h.owner_id = u.telegram_id
	WHERE h.id = $1 AND h.is_public
	`

	p := &subscription.InvitePreview{}
	err := s.db.QueryRow(ctx, query, habitID).Scan(
		&p.ID,
		&p.Name,
		&p.Icon,
		&p.Frequency,
		&p.Description,
		&p.OwnerName,
		&p.OwnerID,
		&p.SubscriberCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invite preview: %w", err)
	}
	return p, nil
}

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

func (s *PostgresStore) GetNotificationSettings(ctx context.Context, telegramID int64) (*notification.Settings, error) {
	query := `
	SELECT telegram_id, enabled, remind_time, timezone_offset, updated_at
	FROM notification_settings
	WHERE telegram_id = $1
	`

	ns := &notification.Settings{}
	err := s.db.QueryRow(ctx, query, telegramID).Scan(
		&ns.TelegramID,
		&ns.Enabled,
		&ns.RemindTime,
		&ns.TimezoneOffset,
		&ns.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return ns, nil
}

func (s *PostgresStore) UpsertNotificationSettings(ctx context.Context, ns *notification.Settings) error {
	query := `
	INSERT INTO notification_settings (telegram_id, enabled, remind_time, timezone_offset, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (telegram_id) DO UPDATE SET
		enabled = EXCLUDED.enabled,
		remind_time = EXCLUDED.remind_time,
		timezone_offset = EXCLUDED.timezone_offset,
		updated_at = NOW()
	RETURNING updated_at
	`

	err := s.db.QueryRow(ctx, query, ns.TelegramID, ns.Enabled, ns.RemindTime, ns.TimezoneOffset).Scan(&ns.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save notification settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform)
	VALUES ($1, $2, $3)
	ON CONFLICT (token) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		platform = EXCLUDED.platform
	RETURNING created_at
	`

	if err := s.db.QueryRow(ctx, query, t.UserID, t.Token, t.Platform).Scan(&t.CreatedAt); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeviceTokens(ctx context.Context, userID int64) ([]*notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, token, platform, created_at FROM device_tokens WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*notification.DeviceToken
	for rows.Next() {
		t := &notification.DeviceToken{}
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) ReminderRecipients(ctx context.Context) ([]*notification.Recipient, error) {
	query := `
	SELECT ns.telegram_id, u.first_name, ns.remind_time, ns.timezone_offset
	FROM notification_settings ns
	JOIN users u ON ns.telegram_id = u.telegram_id
	WHERE ns.enabled
	ORDER BY ns.telegram_id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder recipients: %w", err)
	}
	defer rows.Close()

	var recipients []*notification.Recipient
	for rows.Next() {
		r := &notification.Recipient{}
		if err := rows.Scan(&r.TelegramID, &r.FirstName, &r.RemindTime, &r.TimezoneOffset); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (s *PostgresStore) OutstandingHabits(ctx context.Context, userID int64, date string) ([]*notification.OutstandingHabit, error) {
	query := `
	SELECT h.id, h.name, h.icon FROM habits h
	LEFT JOIN completions c
		ON c.habit_id = h.id AND c.user_id = $1 AND c.date = $2
	WHERE h.owner_id = $1 AND c.id IS NULL

	UNION

	SELECT h.id, h.name, h.icon FROM habits h
	JOIN subscriptions s ON s.habit_id = h.id AND s.user_id = $1
	LEFT JOIN completions c
		ON c.habit_id = h.id AND c.user_id = $1 AND c.date = $2
	WHERE c.id IS NULL

	ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get outstanding habits: %w", err)
	}
	defer rows.Close()

	var habits []*notification.OutstandingHabit
	for rows.Next() {
		h := &notification.OutstandingHabit{}
		if err := rows.Scan(&h.ID, &h.Name, &h.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan outstanding habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}
