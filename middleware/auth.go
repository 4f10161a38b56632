package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/telegram"
	"habitTrackerAPI/internal/user"
)

type contextKey string

const IdentityKey contextKey = "identity"

const (
	InitDataHeader = "X-Telegram-Init-Data"
	DevUserHeader  = "X-Dev-User-Id"

	DefaultDevUserID int64 = 12345678
)

// TelegramAuth resolves the caller from signed mini-app init data and upserts
// them. Without a bot token it runs in development mode and trusts DevUserHeader.
type TelegramAuth struct {
	botToken string
	maxAge   time.Duration
	users    store.UserStore
	now      func() time.Time
}

func NewTelegramAuth(botToken string, maxAge time.Duration, users store.UserStore) *TelegramAuth {
	return &TelegramAuth{
		botToken: botToken,
		maxAge:   maxAge,
		users:    users,
		now:      time.Now,
	}
}

func (a *TelegramAuth) DevMode() bool {
	return a.botToken == ""
}

func (a *TelegramAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var identity *user.Identity

		if a.DevMode() {
			identity = devIdentity(r.Header.Get(DevUserHeader))
			log.Debugf("Auth: dev mode user_id=%d", identity.ID)
		} else {
			var err error
			identity, err = telegram.Validate(r.Header.Get(InitDataHeader), a.botToken, a.maxAge, a.now())
			if err != nil {
				log.WithField("path", r.URL.Path).Debugf("Auth: rejected init data: %v", err)
				authRejections.WithLabelValues("invalid_init_data").Inc()
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		if err := a.users.UpsertUser(r.Context(), identity.ToUser()); err != nil {
			log.Errorf("Auth: failed to upsert user %d: %v", identity.ID, err)
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func devIdentity(header string) *user.Identity {
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil || id == 0 {
		id = DefaultDevUserID
	}
	return &user.Identity{
		ID:        id,
		FirstName: "Dev",
		LastName:  "User",
		Username:  "dev_user",
	}
}

func WithIdentity(ctx context.Context, identity *user.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity extracts the authenticated caller from context
func GetIdentity(ctx context.Context) (*user.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*user.Identity)
	return identity, ok && identity != nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
