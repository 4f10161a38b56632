package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitTrackerAPI/handlers"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
	"habitTrackerAPI/tests/helpers"
)

func newRouter(db store.Store) http.Handler {
	habits := services.NewHabitService(db, nil)
	return handlers.NewRouter(handlers.RouterConfig{
		Store:          db,
		Habits:         habits,
		Users:          services.NewUserService(db, habits),
		Social:         services.NewSocialService(db),
		Notification:   services.NewNotificationService(db),
		Auth:           middleware.NewTelegramAuth(helpers.TestBotToken, time.Hour, db),
		AllowedOrigins: []string{"*"},
	})
}

func TestInitData_UpsertsUser(t *testing.T) {
	db, pool := helpers.SetupTestDB(t)
	userID := helpers.NewUserID()
	defer helpers.CleanupTestDB(t, pool, userID)

	router := newRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/api/habits", nil)
	req.Header.Set(middleware.InitDataHeader, helpers.SignedInitData(userID, "Alice"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"my":[],"subscribed":[]}`, rr.Body.String())

	u, err := db.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FirstName)

	req = httptest.NewRequest(http.MethodGet, "/api/habits", nil)
	req.Header.Set(middleware.InitDataHeader, helpers.SignedInitData(userID, "Alicia"))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	u, err = db.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.FirstName)
}

func TestInitData_Rejected(t *testing.T) {
	db, pool := helpers.SetupTestDB(t)
	userID := helpers.NewUserID()
	defer helpers.CleanupTestDB(t, pool, userID)

	router := newRouter(db)

	tests := []struct {
		name     string
		initData string
	}{
		{"missing", ""},
		{"tampered", helpers.SignedInitData(userID, "Alice") + "&extra=1"},
		{"garbage", "not-init-data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/habits", nil)
			if tt.initData != "" {
				req.Header.Set(middleware.InitDataHeader, tt.initData)
			}
			req.Header.Set(middleware.DevUserHeader, "1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())
		})
	}

	_, err := db.GetUser(context.Background(), userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
