package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/analytics"
	"github.com/vitalpages/server/internal/api/handlers"
	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/config"
	"github.com/vitalpages/server/internal/domain/backups"
	"github.com/vitalpages/server/internal/domain/blog"
	"github.com/vitalpages/server/internal/domain/campaigns"
	"github.com/vitalpages/server/internal/domain/contacts"
	"github.com/vitalpages/server/internal/domain/content"
	"github.com/vitalpages/server/internal/domain/monitor"
	"github.com/vitalpages/server/internal/domain/navigation"
	"github.com/vitalpages/server/internal/domain/plugins"
	"github.com/vitalpages/server/internal/domain/seo"
	"github.com/vitalpages/server/internal/domain/users"
	"github.com/vitalpages/server/internal/domain/webhooks"
	"github.com/vitalpages/server/internal/jobs"
	"github.com/vitalpages/server/internal/metrics"
)

// Dependencies carries the constructed services into the router. The caller
// (cmd/server) owns their lifecycles.
type Dependencies struct {
	Pool       *pgxpool.Pool
	JWTManager *auth.JWTManager
	Audit      *audit.Logger
	Analytics  *analytics.Client
	Enqueuer   *jobs.Enqueuer
	Hub        *monitor.Hub
	Collector  *monitor.Collector

	Users      *users.Service
	Content    *content.Service
	Blog       *blog.Service
	Navigation *navigation.Service
	Contacts   *contacts.Service
	Campaigns  *campaigns.Service
	Webhooks   *webhooks.Service
	SEO        *seo.Service
	Plugins    *plugins.Service
	Backups    *backups.Service

	Version string
}

// NewRouter assembles the public site API, the admin API, and the operational
// endpoints behind the shared middleware chain.
func NewRouter(cfg config.Config, deps Dependencies, logger zerolog.Logger) http.Handler {
	env := cfg.Environment
	secure := env == "production"

	// Typed-nil guard: a nil *analytics.Client must stay a nil Tracker so
	// the handlers' nil checks hold.
	var tracker handlers.Tracker
	if deps.Analytics != nil {
		tracker = deps.Analytics
	}

	healthHandler := handlers.NewHealthHandler(deps.Pool, deps.Version)
	authHandler := handlers.NewAdminAuthHandler(deps.Users, deps.JWTManager, deps.Audit, env, secure, cfg.Auth.SessionExpiry)
	usersHandler := handlers.NewAdminUsersHandler(deps.Users, deps.Audit, env)
	pagesHandler := handlers.NewPagesHandler(deps.Content, tracker, deps.Audit, env)
	postsHandler := handlers.NewPostsHandler(deps.Blog, tracker, deps.Audit, env)
	navHandler := handlers.NewNavigationHandler(deps.Navigation, deps.Audit, env)
	contactsHandler := handlers.NewContactsHandler(deps.Contacts, tracker, deps.Audit, env)
	campaignsHandler := handlers.NewCampaignsHandler(deps.Campaigns, deps.Audit, env)
	webhooksHandler := handlers.NewWebhooksHandler(deps.Webhooks, deps.Audit, env)
	pluginsHandler := handlers.NewPluginsHandler(deps.Plugins, deps.Audit, env)
	backupsHandler := handlers.NewBackupsHandler(deps.Backups, deps.Enqueuer, deps.Audit, env)
	seoHandler := handlers.NewSEOHandler(deps.SEO, deps.Blog, seo.Organization{
		Name:      cfg.Site.Name,
		URL:       cfg.Server.BaseURL,
		LogoURL:   cfg.Site.LogoURL,
		Telephone: cfg.Site.Telephone,
		Street:    cfg.Site.Street,
		Locality:  cfg.Site.Locality,
		Region:    cfg.Site.Region,
		PostCode:  cfg.Site.PostCode,
	}, cfg.Server.BaseURL, deps.Audit, env)

	session := middleware.SessionAuth(deps.JWTManager, env)
	adminOnly := middleware.RequireRole(env, string(auth.RoleAdmin))
	editors := middleware.RequireRole(env, string(auth.RoleAdmin), string(auth.RoleEditor))
	anyStaff := middleware.RequireRole(env, string(auth.RoleAdmin), string(auth.RoleEditor), string(auth.RoleViewer))
	adminTier := middleware.WithRateLimitTierHandler(middleware.TierAdmin)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)
	adminBody := middleware.AdminRequestSize()
	publicBody := middleware.PublicRequestSize()

	// CSRF applies to the cookie-authenticated admin surface when a key is
	// configured. Clients echo the X-CSRF-Token header.
	csrfProtect := func(next http.Handler) http.Handler { return next }
	if cfg.Auth.CSRFKey != "" {
		csrfProtect = middleware.CSRFProtection([]byte(cfg.Auth.CSRFKey), secure)
	}

	admin := func(role func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
		return adminTier(adminBody(csrfProtect(session(role(h)))))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Public site surface.
	mux.HandleFunc("GET /api/v1/pages/{slug}", pagesHandler.GetPublished)
	mux.HandleFunc("GET /api/v1/posts", postsHandler.ListPublished)
	mux.HandleFunc("GET /api/v1/posts/{slug}", postsHandler.GetPublished)
	mux.HandleFunc("GET /api/v1/navigation", navHandler.PublicTree)
	mux.HandleFunc("GET /api/v1/seo", seoHandler.GetByPath)
	mux.HandleFunc("GET /api/v1/seo/jsonld/organization", seoHandler.OrganizationJSONLD)
	mux.HandleFunc("GET /api/v1/seo/jsonld/articles/{slug}", seoHandler.ArticleJSONLD)
	mux.Handle("POST /api/v1/contact", publicBody(http.HandlerFunc(contactsHandler.Submit)))
	mux.Handle("POST /api/v1/invitations/accept", publicBody(loginTier(http.HandlerFunc(usersHandler.AcceptInvitation))))

	// Authentication.
	mux.Handle("POST /api/v1/admin/login", publicBody(loginTier(http.HandlerFunc(authHandler.Login))))
	mux.Handle("POST /api/v1/admin/login/2fa", publicBody(loginTier(http.HandlerFunc(authHandler.Verify2FA))))
	mux.Handle("POST /api/v1/admin/logout", admin(anyStaff, authHandler.Logout))
	mux.Handle("GET /api/v1/admin/me", admin(anyStaff, authHandler.Me))

	// Two-factor self-service.
	mux.Handle("POST /api/v1/admin/me/2fa/setup", admin(anyStaff, usersHandler.BeginTwoFactorSetup))
	mux.Handle("POST /api/v1/admin/me/2fa/confirm", admin(anyStaff, usersHandler.ConfirmTwoFactorSetup))
	mux.Handle("POST /api/v1/admin/me/2fa/backup-codes", admin(anyStaff, usersHandler.RegenerateBackupCodes))

	// User management (admin only).
	mux.Handle("POST /api/v1/admin/users", admin(adminOnly, usersHandler.Create))
	mux.Handle("GET /api/v1/admin/users", admin(adminOnly, usersHandler.List))
	mux.Handle("GET /api/v1/admin/users/{id}", admin(adminOnly, usersHandler.Get))
	mux.Handle("PUT /api/v1/admin/users/{id}", admin(adminOnly, usersHandler.Update))
	mux.Handle("DELETE /api/v1/admin/users/{id}", admin(adminOnly, usersHandler.Delete))
	mux.Handle("PUT /api/v1/admin/users/{id}/active", admin(adminOnly, usersHandler.SetActive))
	mux.Handle("POST /api/v1/admin/users/{id}/invitations", admin(adminOnly, usersHandler.ResendInvitation))
	mux.Handle("DELETE /api/v1/admin/users/{id}/2fa", admin(adminOnly, usersHandler.DisableTwoFactor))

	// Pages.
	mux.Handle("POST /api/v1/admin/pages", admin(editors, pagesHandler.Create))
	mux.Handle("GET /api/v1/admin/pages", admin(anyStaff, pagesHandler.List))
	mux.Handle("GET /api/v1/admin/pages/{id}", admin(anyStaff, pagesHandler.Get))
	mux.Handle("PUT /api/v1/admin/pages/{id}", admin(editors, pagesHandler.Update))
	mux.Handle("DELETE /api/v1/admin/pages/{id}", admin(editors, pagesHandler.Delete))
	mux.Handle("POST /api/v1/admin/pages/{id}/publish", admin(editors, pagesHandler.Publish))
	mux.Handle("POST /api/v1/admin/pages/{id}/unpublish", admin(editors, pagesHandler.Unpublish))
	mux.Handle("GET /api/v1/admin/pages/{id}/revisions", admin(anyStaff, pagesHandler.ListRevisions))
	mux.Handle("GET /api/v1/admin/pages/{id}/revisions/diff", admin(anyStaff, pagesHandler.DiffRevisions))
	mux.Handle("POST /api/v1/admin/pages/{id}/revisions/{revisionID}/restore", admin(editors, pagesHandler.RestoreRevision))

	// Blog.
	mux.Handle("POST /api/v1/admin/posts", admin(editors, postsHandler.Create))
	mux.Handle("GET /api/v1/admin/posts", admin(anyStaff, postsHandler.List))
	mux.Handle("GET /api/v1/admin/posts/{id}", admin(anyStaff, postsHandler.Get))
	mux.Handle("PUT /api/v1/admin/posts/{id}", admin(editors, postsHandler.Update))
	mux.Handle("DELETE /api/v1/admin/posts/{id}", admin(editors, postsHandler.Delete))
	mux.Handle("POST /api/v1/admin/posts/{id}/publish", admin(editors, postsHandler.Publish))
	mux.Handle("POST /api/v1/admin/posts/{id}/unpublish", admin(editors, postsHandler.Unpublish))

	// Navigation.
	mux.Handle("GET /api/v1/admin/navigation", admin(anyStaff, navHandler.List))
	mux.Handle("POST /api/v1/admin/navigation", admin(editors, navHandler.Create))
	mux.Handle("PUT /api/v1/admin/navigation/{id}", admin(editors, navHandler.Update))
	mux.Handle("DELETE /api/v1/admin/navigation/{id}", admin(editors, navHandler.Delete))
	mux.Handle("POST /api/v1/admin/navigation/reorder", admin(editors, navHandler.Reorder))

	// Contact inbox.
	mux.Handle("GET /api/v1/admin/contacts", admin(anyStaff, contactsHandler.List))
	mux.Handle("GET /api/v1/admin/contacts/{id}", admin(anyStaff, contactsHandler.Get))
	mux.Handle("PUT /api/v1/admin/contacts/{id}/read", admin(anyStaff, contactsHandler.MarkRead))
	mux.Handle("DELETE /api/v1/admin/contacts/{id}", admin(adminOnly, contactsHandler.Delete))

	// Campaigns.
	mux.Handle("POST /api/v1/admin/campaigns", admin(editors, campaignsHandler.Create))
	mux.Handle("GET /api/v1/admin/campaigns", admin(anyStaff, campaignsHandler.List))
	mux.Handle("GET /api/v1/admin/campaigns/{id}", admin(anyStaff, campaignsHandler.Get))
	mux.Handle("PUT /api/v1/admin/campaigns/{id}", admin(editors, campaignsHandler.Update))
	mux.Handle("DELETE /api/v1/admin/campaigns/{id}", admin(editors, campaignsHandler.Delete))
	mux.Handle("POST /api/v1/admin/campaigns/{id}/send", admin(adminOnly, campaignsHandler.Send))
	mux.Handle("GET /api/v1/admin/campaigns/{id}/results", admin(anyStaff, campaignsHandler.Results))

	// Webhooks.
	mux.Handle("POST /api/v1/admin/webhooks", admin(adminOnly, webhooksHandler.Create))
	mux.Handle("GET /api/v1/admin/webhooks", admin(anyStaff, webhooksHandler.List))
	mux.Handle("GET /api/v1/admin/webhooks/{id}", admin(anyStaff, webhooksHandler.Get))
	mux.Handle("PUT /api/v1/admin/webhooks/{id}", admin(adminOnly, webhooksHandler.Update))
	mux.Handle("DELETE /api/v1/admin/webhooks/{id}", admin(adminOnly, webhooksHandler.Delete))
	mux.Handle("GET /api/v1/admin/webhooks/{id}/deliveries", admin(anyStaff, webhooksHandler.Deliveries))
	mux.Handle("GET /api/v1/admin/webhooks/{id}/attempts", admin(anyStaff, webhooksHandler.Attempts))

	// Plugins.
	mux.Handle("POST /api/v1/admin/plugins", admin(adminOnly, pluginsHandler.Install))
	mux.Handle("GET /api/v1/admin/plugins", admin(anyStaff, pluginsHandler.List))
	mux.Handle("GET /api/v1/admin/plugins/jobs", admin(anyStaff, pluginsHandler.Jobs))
	mux.Handle("GET /api/v1/admin/plugins/jobs/{jobID}", admin(anyStaff, pluginsHandler.JobStatus))
	mux.Handle("DELETE /api/v1/admin/plugins/jobs/{jobID}", admin(adminOnly, pluginsHandler.CancelJob))
	mux.Handle("GET /api/v1/admin/plugins/{id}", admin(anyStaff, pluginsHandler.Get))
	mux.Handle("PUT /api/v1/admin/plugins/{id}/enabled", admin(adminOnly, pluginsHandler.SetEnabled))
	mux.Handle("DELETE /api/v1/admin/plugins/{id}", admin(adminOnly, pluginsHandler.Uninstall))
	mux.Handle("POST /api/v1/admin/plugins/{id}/run", admin(adminOnly, pluginsHandler.Run))

	// SEO management.
	mux.Handle("GET /api/v1/admin/seo", admin(anyStaff, seoHandler.List))
	mux.Handle("PUT /api/v1/admin/seo", admin(editors, seoHandler.Upsert))
	mux.Handle("DELETE /api/v1/admin/seo", admin(editors, seoHandler.Delete))
	mux.Handle("POST /api/v1/admin/seo/analyze", admin(anyStaff, seoHandler.Analyze))

	// Backups.
	mux.Handle("POST /api/v1/admin/backups", admin(adminOnly, backupsHandler.Run))
	mux.Handle("GET /api/v1/admin/backups", admin(adminOnly, backupsHandler.List))
	mux.Handle("POST /api/v1/admin/backups/prune", admin(adminOnly, backupsHandler.Prune))

	// Live monitoring stream. Browsers authenticate via the session cookie.
	if deps.Hub != nil {
		mux.Handle("GET /api/v1/admin/monitor/ws", session(anyStaff(deps.Hub)))
	}

	var root http.Handler = mux
	if deps.Collector != nil {
		collector := deps.Collector
		root = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			collector.CountRequest()
			mux.ServeHTTP(w, r)
		})
	}

	chain := middleware.CorrelationID(logger)(
		middleware.RequestLogging(logger)(
			metrics.HTTPMiddleware(
				middleware.SecurityHeaders(secure)(
					middleware.CORS(cfg.CORS, logger)(
						middleware.RateLimit(cfg.RateLimit)(root))))))
	return chain
}
