package helpers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"habitTrackerAPI/internal/migrations"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/telegram"
)

// TestBotToken signs init data in integration tests.
const TestBotToken = "123456:TEST-integration-token"

var userSeq atomic.Int64

// SetupTestDB migrates TEST_DATABASE_URL and returns a store on it. The test
// is skipped when the variable is unset.
func SetupTestDB(t *testing.T) (*store.PostgresStore, *pgxpool.Pool) {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := migrations.MigrateUp(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return store.NewPostgresStore(pool), pool
}

// NewUserID returns a telegram id no other test run is using.
func NewUserID() int64 {
	return 9_000_000_000_000 + time.Now().UnixMilli()%1_000_000_000*1000 + userSeq.Add(1)
}

// CleanupTestDB removes everything owned by the given users and closes the pool.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool, userIDs ...int64) {
	ctx := context.Background()

	for _, q := range []string{
		"DELETE FROM completions WHERE user_id = ANY($1)",
		"DELETE FROM subscriptions WHERE user_id = ANY($1)",
		"DELETE FROM habits WHERE owner_id = ANY($1)",
		"DELETE FROM notification_settings WHERE telegram_id = ANY($1)",
		"DELETE FROM users WHERE telegram_id = ANY($1)",
	} {
		if _, err := pool.Exec(ctx, q, userIDs); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
	pool.Close()
}

// SignedInitData builds init data for a user the way the mini-app platform does.
func SignedInitData(telegramID int64, firstName string) string {
	values := url.Values{}
	values.Set("auth_date", fmt.Sprint(time.Now().Unix()))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", fmt.Sprintf(`{"id":%d,"first_name":%q,"last_name":"Test","username":"user%d"}`, telegramID, firstName, telegramID))
	return telegram.Sign(values, TestBotToken)
}
