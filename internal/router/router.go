package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/avatar"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level, server errors at warn.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. The API
// only serves JSON and avatar images, so the policy allows nothing else.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'")
			if r.TLS != nil {
				// 30 days
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RecoverMiddleware turns a panic in a handler into a logged 500.
func RecoverMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Errorw("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", rec)
					utilities.WriteMessage(w, http.StatusInternalServerError, "Something went wrong")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Deps carries the handlers and settings the route table is built from.
type Deps struct {
	Users    *user.Handler
	Contacts *contact.Handler
	Avatars  *avatar.Handler
	// Guard admits only requests with a live session.
	Guard       func(http.Handler) http.Handler
	AvatarDir   string
	CORSOrigins []string
	// Ping backs the health endpoint; nil reports healthy.
	Ping func(ctx context.Context) error
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()
	guarded := func(h http.HandlerFunc) http.Handler { return d.Guard(h) }

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				utilities.WriteMessage(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		utilities.WriteMessage(w, http.StatusOK, "ok")
	})

	// users
	mux.HandleFunc("POST /api/users/signup", d.Users.Signup)
	mux.HandleFunc("POST /api/users/login", d.Users.Login)
	mux.Handle("GET /api/users/logout", guarded(d.Users.Logout))
	mux.Handle("GET /api/users/current", guarded(d.Users.Current))
	mux.Handle("PATCH /api/users", guarded(d.Users.UpdateSubscription))
	mux.HandleFunc("GET /api/users/verify/{token}", d.Users.Verify)
	mux.HandleFunc("POST /api/users/verify", d.Users.ResendVerification)

	// contacts
	mux.HandleFunc("GET /api/contacts", d.Contacts.List)
	mux.HandleFunc("POST /api/contacts", d.Contacts.Add)
	mux.HandleFunc("GET /api/contacts/{id}", d.Contacts.Get)
	mux.HandleFunc("PUT /api/contacts/{id}", d.Contacts.Update)
	mux.HandleFunc("DELETE /api/contacts/{id}", d.Contacts.Delete)
	mux.HandleFunc("PATCH /api/contacts/{id}/favorite", d.Contacts.UpdateFavorite)

	// avatars
	mux.Handle("PATCH /api/avatars", guarded(d.Avatars.Update))
	mux.Handle("GET "+avatar.URLPrefix, http.StripPrefix(avatar.URLPrefix, http.FileServer(http.Dir(d.AvatarDir))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		utilities.WriteMessage(w, http.StatusNotFound, "Not found")
	})

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsMW := cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	// cors outermost so preflight never reaches the mux
	return corsMW(LoggingMiddleware(logger)(RecoverMiddleware(logger)(SecurityHeadersMiddleware()(mux))))
}
