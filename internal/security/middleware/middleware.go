package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/observability/metrics"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security"
	"github.com/cloudylake/tenantapi/internal/security/auth"
)

// maxBodyBytes caps JSON request bodies so parsing cannot stall on
// unbounded input.
const maxBodyBytes = 1 << 20

type userContextKey struct{}
type tenantContextKey struct{}
type claimsContextKey struct{}
type requestIDKey struct{}

// Middleware is a standard net/http middleware
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares left to right around a final handler
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Auth bundles the dependencies of the authentication middleware
type Auth struct {
	users   domain.UserRepository
	tokens  *auth.TokenManager
	respond *respond.Responder
	logger  *slog.Logger
}

// NewAuth creates the authentication middleware set
func NewAuth(users domain.UserRepository, tokens *auth.TokenManager, responder *respond.Responder, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{users: users, tokens: tokens, respond: responder, logger: logger}
}

// ResolveTenant determines the acting tenant identifier and attaches it
// to the request context. Precedence, stopping at the first success:
//
//  1. bearer token from the Authorization header, or the jwt cookie;
//  2. explicit tenantId in the request body, query string, or path.
//
// A token that is present but fails verification is a 401, never a
// silent fallback. With no tenant found, required routes fail 400 and
// tolerant routes proceed unscoped. The resolver is idempotent and has
// no side effect beyond context attachment.
func (a *Auth) ResolveTenant(required bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := a.resolveTenantID(r)
			if err != nil {
				a.respond.Error(w, r, err)
				return
			}

			if tenantID == "" {
				if required {
					a.respond.Error(w, r, apperror.MissingTenant())
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), tenantContextKey{}, tenantID),
			))
		})
	}
}

func (a *Auth) resolveTenantID(r *http.Request) (string, error) {
	// Already resolved earlier in the chain.
	if t := TenantFromContext(r.Context()); t != "" {
		return t, nil
	}

	if tokenString, ok := bearerOrCookie(r); ok {
		claims, err := a.tokens.Verify(tokenString)
		if err != nil {
			return "", err
		}
		if claims.TenantID != "" {
			return claims.TenantID, nil
		}
	}

	if t := tenantFromBody(r); t != "" {
		return t, nil
	}
	if t := r.URL.Query().Get("tenantId"); t != "" {
		return t, nil
	}
	if t := r.PathValue("tenantId"); t != "" {
		return t, nil
	}
	return "", nil
}

// bearerOrCookie finds a token in the Authorization header first, then
// in the jwt cookie.
func bearerOrCookie(r *http.Request) (string, bool) {
	if token, ok := auth.ExtractBearer(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if c, err := r.Cookie("jwt"); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// tenantFromBody sniffs a tenantId field out of a JSON body and puts
// the body back for downstream handlers.
func tenantFromBody(r *http.Request) string {
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ""
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var probe struct {
		TenantID string `json:"tenantId"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.TenantID
}

// Protect authenticates the request. The token must come from the
// Authorization header, verify against the signing secret, reference a
// user that still exists, and predate no credential change. On success
// the resolved user and acting tenant land in the request context.
func (a *Auth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := auth.ExtractBearer(r.Header.Get("Authorization"))
		if !ok {
			metrics.ObserveAuthFailure("missing_token")
			a.respond.Error(w, r, apperror.Unauthorized("not logged in"))
			return
		}

		claims, err := a.tokens.Verify(tokenString)
		if err != nil {
			metrics.ObserveAuthFailure("invalid_token")
			a.respond.Error(w, r, apperror.Unauthorized("invalid or expired session"))
			return
		}

		user, err := a.users.GetByID(r.Context(), claims.UserID, false)
		if err != nil || user == nil {
			metrics.ObserveAuthFailure("unknown_user")
			a.respond.Error(w, r, apperror.Unauthorized("user no longer exists"))
			return
		}

		if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
			metrics.ObserveAuthFailure("stale_token")
			a.respond.Error(w, r, apperror.Unauthorized("session invalidated by credential change"))
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		ctx = context.WithValue(ctx, claimsContextKey{}, claims)
		if claims.TenantID != "" {
			ctx = context.WithValue(ctx, tenantContextKey{}, claims.TenantID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireTenantMember denies with 403 unless the authenticated user
// belongs to the resolved tenant. Super-admins operate across tenants.
// Must run after Protect and ResolveTenant; a token carrying no tenant
// binding cannot reach another tenant through the fallback chain.
func (a *Auth) RequireTenantMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			a.respond.Error(w, r, apperror.Unauthorized("not logged in"))
			return
		}
		if err := security.ValidateTenantAccess(user, TenantFromContext(r.Context())); err != nil {
			metrics.ObserveAuthFailure("foreign_tenant")
			a.logger.Warn("tenant access denied",
				slog.String("user_id", user.ID),
				slog.String("tenant_id", TenantFromContext(r.Context())),
				slog.String("path", r.URL.Path),
			)
			a.respond.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole denies with 403 unless the authenticated user's role
// meets the minimum. Must run after Protect.
func (a *Auth) RequireRole(min domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				a.respond.Error(w, r, apperror.Unauthorized("not logged in"))
				return
			}
			if err := security.Authorize(user, min); err != nil {
				metrics.ObserveAuthFailure("insufficient_role")
				a.logger.Warn("permission denied",
					slog.String("user_id", user.ID),
					slog.String("role", string(user.Role)),
					slog.String("required", string(min)),
					slog.String("path", r.URL.Path),
				)
				a.respond.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userContextKey{}).(*domain.User); ok {
		return u
	}
	return nil
}

// ClaimsFromContext returns the verified token claims, or nil
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// TenantFromContext returns the resolved acting tenant id, or ""
func TenantFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tenantContextKey{}).(string); ok {
		return t
	}
	return ""
}

// RequestIDFromContext returns the request id, or ""
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID attaches an id to the context and response headers and logs
// request completion.
func RequestID(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := uuid.NewString()
			w.Header().Set("X-Request-ID", reqID)

			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			start := time.Now()

			next.ServeHTTP(w, r.WithContext(ctx))

			logger.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// CORS honors the configured origins
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// LimitBody caps request body sizes before handlers read them. JSON
// bodies get maxBodyBytes; multipart uploads get the configured upload
// cap.
func LimitBody(maxUploadBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				limit := int64(maxBodyBytes)
				if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
					limit = maxUploadBytes
				}
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
