package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/observability/metrics"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/security/ratelimit"
)

// RouterDeps bundles everything the route table needs
type RouterDeps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Tenants   *TenantHandler
	Posts     *PostHandler
	Configs   *ConfigHandler
	Employees *EmployeeHandler
	PriceList *PriceListHandler
	Categories *CategoryHandler
	Gallery   *GalleryHandler
	Images    *ImageHandler
	Health    *HealthHandler

	AuthMW    *middleware.Auth
	Limiter   *ratelimit.Limiter
	Responder *respond.Responder
}

// RateLimit rejects requests over the per-tenant budget. It must run
// after tenant resolution; unresolved requests pass through.
func RateLimit(limiter *ratelimit.Limiter, responder *respond.Responder) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := middleware.TenantFromContext(r.Context())
			if !limiter.Allow(r.Context(), tenantID) {
				metrics.ObserveRateLimited(tenantID)
				responder.JSON(w, http.StatusTooManyRequests, respond.Envelope{
					Status:  "fail",
					Message: "Too many requests, please try again later!",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter builds the full route table. Route policy lives here and
// nowhere else: public reads resolve a tenant and nothing more, content
// writes need editor or better, user administration needs admin, and
// tenant deletion is reserved to super-admins.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	auth := d.AuthMW
	limited := RateLimit(d.Limiter, d.Responder)

	// Public reads: a tenant must resolve, then the rate limit applies.
	public := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, auth.ResolveTenant(true), limited)
	}
	// Authenticated routes without a tenant requirement.
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, auth.Protect, limited)
	}
	// Authenticated tenant-scoped routes with a minimum role. The
	// member check keeps a user from acting in a tenant the fallback
	// chain resolved but the user does not belong to.
	scoped := func(min domain.Role, h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, auth.Protect, auth.ResolveTenant(true), auth.RequireTenantMember, limited, auth.RequireRole(min))
	}

	// Session and credential lifecycle
	mux.Handle("POST /api/v1/users/signup", middleware.Chain(http.HandlerFunc(d.Auth.Signup), auth.ResolveTenant(false), limited))
	mux.Handle("POST /api/v1/users/login", middleware.Chain(http.HandlerFunc(d.Auth.Login), auth.ResolveTenant(false), limited))
	mux.Handle("GET /api/v1/users/logout", http.HandlerFunc(d.Auth.Logout))
	mux.Handle("POST /api/v1/users/forgotPassword", middleware.Chain(http.HandlerFunc(d.Auth.ForgotPassword), limited))
	mux.Handle("PATCH /api/v1/users/resetPassword/{token}", middleware.Chain(http.HandlerFunc(d.Auth.ResetPassword), limited))
	mux.Handle("GET /api/v1/users/checkToken", protected(d.Auth.CheckToken))
	mux.Handle("PATCH /api/v1/users/updateMyPassword", protected(d.Auth.UpdatePassword))

	// Profile self-service
	mux.Handle("GET /api/v1/users/me", protected(d.Users.Me))
	mux.Handle("PATCH /api/v1/users/updateMe", protected(d.Users.UpdateMe))
	mux.Handle("DELETE /api/v1/users/deleteMe", protected(d.Users.DeleteMe))

	// User administration
	mux.Handle("POST /api/v1/users/invite", scoped(domain.RoleManager, d.Tenants.Invite))
	mux.Handle("GET /api/v1/users", scoped(domain.RoleAdmin, d.Users.List))
	mux.Handle("GET /api/v1/users/{id}", scoped(domain.RoleAdmin, d.Users.Get))
	mux.Handle("PATCH /api/v1/users/{id}", scoped(domain.RoleAdmin, d.Users.Update))
	mux.Handle("DELETE /api/v1/users/{id}", scoped(domain.RoleAdmin, d.Users.Delete))

	// Tenants
	mux.Handle("POST /api/v1/tenants", protected(d.Tenants.Create))
	mux.Handle("GET /api/v1/tenants", middleware.Chain(http.HandlerFunc(d.Tenants.List), auth.Protect, limited, auth.RequireRole(domain.RoleSuperAdmin)))
	mux.Handle("GET /api/v1/tenants/{tenantId}", protected(d.Tenants.Get))
	mux.Handle("PATCH /api/v1/tenants/{tenantId}", scoped(domain.RoleAdmin, d.Tenants.Update))
	mux.Handle("DELETE /api/v1/tenants/{tenantId}", middleware.Chain(http.HandlerFunc(d.Tenants.Delete), auth.Protect, limited, auth.RequireRole(domain.RoleSuperAdmin)))
	mux.Handle("GET /api/v1/tenants/{tenantId}/users", scoped(domain.RoleAdmin, d.Tenants.ListUsers))
	mux.Handle("POST /api/v1/tenants/{tenantId}/invite", scoped(domain.RoleManager, d.Tenants.Invite))
	mux.Handle("POST /api/v1/tenants/{tenantId}/users/{id}", scoped(domain.RoleAdmin, d.Tenants.AttachUser))
	mux.Handle("DELETE /api/v1/tenants/{tenantId}/users/{id}", scoped(domain.RoleAdmin, d.Tenants.DetachUser))

	// Posts
	mux.Handle("GET /api/v1/posts", public(d.Posts.List))
	mux.Handle("GET /api/v1/posts/{id}", public(d.Posts.Get))
	mux.Handle("POST /api/v1/posts", scoped(domain.RoleEditor, d.Posts.Create))
	mux.Handle("PATCH /api/v1/posts/{id}", scoped(domain.RoleEditor, d.Posts.Update))
	mux.Handle("DELETE /api/v1/posts/{id}", scoped(domain.RoleEditor, d.Posts.Delete))
	mux.Handle("POST /api/v1/posts/{id}/image", scoped(domain.RoleEditor, d.Posts.UploadImage))

	// Configs
	mux.Handle("GET /api/v1/configs", public(d.Configs.List))
	mux.Handle("GET /api/v1/configs/{key}", public(d.Configs.Get))
	mux.Handle("POST /api/v1/configs", scoped(domain.RoleEditor, d.Configs.Create))
	mux.Handle("PATCH /api/v1/configs/{key}", scoped(domain.RoleEditor, d.Configs.Update))
	mux.Handle("DELETE /api/v1/configs/{key}", scoped(domain.RoleEditor, d.Configs.Delete))

	// Employees
	mux.Handle("GET /api/v1/employees", public(d.Employees.List))
	mux.Handle("GET /api/v1/employees/{id}", public(d.Employees.Get))
	mux.Handle("POST /api/v1/employees", scoped(domain.RoleEditor, d.Employees.Create))
	mux.Handle("PATCH /api/v1/employees/{id}", scoped(domain.RoleEditor, d.Employees.Update))
	mux.Handle("DELETE /api/v1/employees/{id}", scoped(domain.RoleEditor, d.Employees.Delete))
	mux.Handle("POST /api/v1/employees/{id}/image", scoped(domain.RoleEditor, d.Employees.UploadImage))

	// Price list
	mux.Handle("GET /api/v1/pricelist", public(d.PriceList.List))
	mux.Handle("GET /api/v1/pricelist/{id}", public(d.PriceList.Get))
	mux.Handle("POST /api/v1/pricelist", scoped(domain.RoleEditor, d.PriceList.Create))
	mux.Handle("PUT /api/v1/pricelist/order", scoped(domain.RoleEditor, d.PriceList.UpdateOrder))
	mux.Handle("PATCH /api/v1/pricelist/{id}", scoped(domain.RoleEditor, d.PriceList.Update))
	mux.Handle("DELETE /api/v1/pricelist/{id}", scoped(domain.RoleEditor, d.PriceList.Delete))

	// Categories
	mux.Handle("GET /api/v1/categories", public(d.Categories.List))
	mux.Handle("GET /api/v1/categories/{id}", public(d.Categories.Get))
	mux.Handle("POST /api/v1/categories", scoped(domain.RoleEditor, d.Categories.Create))
	mux.Handle("PUT /api/v1/categories/order", scoped(domain.RoleEditor, d.Categories.UpdateOrder))
	mux.Handle("PATCH /api/v1/categories/{id}", scoped(domain.RoleEditor, d.Categories.Update))
	mux.Handle("DELETE /api/v1/categories/{id}", scoped(domain.RoleEditor, d.Categories.Delete))

	// Gallery
	mux.Handle("GET /api/v1/gallery", public(d.Gallery.List))
	mux.Handle("GET /api/v1/gallery/{id}", public(d.Gallery.Get))
	mux.Handle("POST /api/v1/gallery", scoped(domain.RoleEditor, d.Gallery.Upload))
	mux.Handle("PUT /api/v1/gallery/order", scoped(domain.RoleEditor, d.Gallery.UpdateOrder))
	mux.Handle("DELETE /api/v1/gallery/{id}", scoped(domain.RoleEditor, d.Gallery.Delete))

	// Stored images
	mux.Handle("GET /api/v1/images/{name}", public(d.Images.Serve))

	// Operational endpoints, outside the API chains
	mux.HandleFunc("GET /healthz", d.Health.Live)
	mux.HandleFunc("GET /readyz", d.Health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
