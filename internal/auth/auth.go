package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"giveawaybot/internal/logger"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// ContextKey is the key type for context values
type ContextKey string

const (
	// UserIDKey is the context key for user ID
	UserIDKey ContextKey = "user_id"

	// InitDataHeader carries the raw Mini App init data
	InitDataHeader = "X-Telegram-Init-Data"
)

var errNoUser = errors.New("user not found in init data")

// ValidateInitData checks the init data signature and age against the bot token
// and returns the Telegram id of the user it was issued for
func ValidateInitData(raw, botToken string, expIn time.Duration) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty init data")
	}
	if err := initdata.Validate(raw, botToken, expIn); err != nil {
		return 0, fmt.Errorf("invalid init data: %w", err)
	}
	parsed, err := initdata.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse init data: %w", err)
	}
	if parsed.User.ID == 0 {
		return 0, errNoUser
	}
	return parsed.User.ID, nil
}

// Middleware validates Telegram init data from the X-Telegram-Init-Data header
// (or the init_data query parameter) and puts the user id into the request context.
func Middleware(botToken string, expIn time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(InitDataHeader)
			if raw == "" {
				raw = r.URL.Query().Get("init_data")
			}
			if raw == "" {
				http.Error(w, "Unauthorized: missing X-Telegram-Init-Data header", http.StatusUnauthorized)
				return
			}

			userID, err := ValidateInitData(raw, botToken, expIn)
			if err != nil {
				logger.Debug(0, "auth_failed", fmt.Sprintf("path=%s error=%v", r.URL.Path, err))
				http.Error(w, "Unauthorized: invalid initData", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser only lets through requests authenticated as userID
func RequireUser(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: user not in context", http.StatusUnauthorized)
				return
			}
			if id != userID {
				logger.Debug(id, "auth_forbidden", "path="+r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// contextWithUserID adds the user ID to the context
func contextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithUserID returns a copy of ctx carrying userID, as the middleware does
func WithUserID(ctx context.Context, userID int64) context.Context {
	return contextWithUserID(ctx, userID)
}

// GetUserIDFromContext retrieves the user ID from the context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
