package handlers

import (
	"net/http"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

type RouterConfig struct {
	Store        store.Store
	Habits       *services.HabitService
	Social       *services.SocialService
	Notification *services.NotificationService
	Users        *services.UserService
	Auth         *middleware.TelegramAuth
	RateLimiter  *middleware.RateLimiter

	MetricsUser    string
	MetricsPass    string
	AllowedOrigins []string
}

// NewRouter wires every route and wraps the result in CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	habitHandler := NewHabitHandler(cfg.Habits)
	completionHandler := NewCompletionHandler(cfg.Habits)
	friendHandler := NewFriendHandler(cfg.Social)
	inviteHandler := NewInviteHandler(cfg.Social)
	notificationHandler := NewNotificationHandler(cfg.Notification)
	userHandler := NewUserHandler(cfg.Users)
	healthHandler := NewHealthHandler(cfg.Store)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(middleware.RequestLogger)
	if cfg.RateLimiter != nil {
		standardRouter.Use(cfg.RateLimiter.Middleware)
	}
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler())).Methods("GET")

	// -------------------------------------------------------------------------
	// PUBLIC API
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")
	api.HandleFunc("/invite/{habitId}", inviteHandler.GetInvite).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE INIT DATA)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(cfg.Auth.Middleware)

	protected.HandleFunc("/me", userHandler.GetProfile).Methods("GET")

	protected.HandleFunc("/habits", habitHandler.ListHabits).Methods("GET")
	protected.HandleFunc("/habits", habitHandler.CreateHabit).Methods("POST")
	protected.HandleFunc("/habits/{id}", habitHandler.DeleteHabit).Methods("DELETE")
	protected.HandleFunc("/habits/{id}/stats", habitHandler.GetHabitStats).Methods("GET")

	protected.HandleFunc("/completions", completionHandler.ToggleCompletion).Methods("POST")
	protected.HandleFunc("/completions/{habitId}", completionHandler.GetMonthCompletions).Methods("GET")

	protected.HandleFunc("/friends", friendHandler.ListFriends).Methods("GET")
	protected.HandleFunc("/friends/{id}/habits", friendHandler.GetFriendHabits).Methods("GET")
	protected.HandleFunc("/friends/subscribe/{habitId}", friendHandler.Subscribe).Methods("POST")
	protected.HandleFunc("/friends/subscribe/{habitId}", friendHandler.Unsubscribe).Methods("DELETE")

	protected.HandleFunc("/notifications", notificationHandler.GetSettings).Methods("GET")
	protected.HandleFunc("/notifications", notificationHandler.UpdateSettings).Methods("POST")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", middleware.InitDataHeader, middleware.DevUserHeader}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", middleware.RequestIDHeader}),
	)

	return corsHandler(r)
}
