package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

const bearerPrefix = "Bearer "

type ctxKey struct{}

// TokenDecoder resolves a bearer token to a user id.
type TokenDecoder interface {
	Decode(token string) (int64, error)
}

// SessionLookup finds the user whose stored session token equals token.
// Implementations return sql.ErrNoRows when no such pair exists.
type SessionLookup interface {
	GetByIDAndToken(ctx context.Context, id int64, token string) (*entity.User, error)
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the user attached by Guard, if any.
func UserFromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}

// Guard returns a middleware admitting only requests whose bearer token is
// valid and still the stored session of its user. Every rejection gets the
// same 401 body.
func Guard(tokens TokenDecoder, sessions SessionLookup, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				unauthorized(w)
				return
			}
			token := strings.TrimSpace(header[len(bearerPrefix):])
			if token == "" {
				unauthorized(w)
				return
			}

			userID, err := tokens.Decode(token)
			if err != nil {
				logger.Debugw("token rejected", "err", err)
				unauthorized(w)
				return
			}

			u, err := sessions.GetByIDAndToken(r.Context(), userID, token)
			if err != nil || u == nil {
				if err != nil && !errors.Is(err, sql.ErrNoRows) {
					logger.Warnw("session lookup failed", "user_id", userID, "err", err)
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	utilities.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
}
