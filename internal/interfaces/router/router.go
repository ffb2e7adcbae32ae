package router

import (
	"context"
	"net/http"
	"time"

	authsvc "soa-backend/internal/application/auth"
	"soa-backend/internal/application/drafts"
	emailsvc "soa-backend/internal/application/emails"
	healthsvc "soa-backend/internal/application/health"
	icsvc "soa-backend/internal/application/invitecodes"
	joinsvc "soa-backend/internal/application/join"
	"soa-backend/internal/application/maintenance"
	membersvc "soa-backend/internal/application/members"
	orgsvc "soa-backend/internal/application/org"
	uploadsvc "soa-backend/internal/application/uploads"
	"soa-backend/internal/config"
	"soa-backend/internal/infrastructure/database"
	"soa-backend/internal/infrastructure/supabase"
	authhandler "soa-backend/internal/interfaces/handlers/auth"
	healthhandler "soa-backend/internal/interfaces/handlers/health"
	ichandler "soa-backend/internal/interfaces/handlers/invitecodes"
	joinhandler "soa-backend/internal/interfaces/handlers/join"
	memberhandler "soa-backend/internal/interfaces/handlers/members"
	orghandler "soa-backend/internal/interfaces/handlers/org"
	uploadhandler "soa-backend/internal/interfaces/handlers/uploads"
	"soa-backend/internal/middleware"
	"soa-backend/internal/pkg/constants"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// publicRequestsPerMinute bounds each client IP on the unauthenticated join surface.
const publicRequestsPerMinute = 30

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping(ctx context.Context) error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Runtime is everything CreateApp built that the caller has to start or close.
type Runtime struct {
	App       *fiber.App
	DB        *gorm.DB
	Rdb       *redis.Client
	Scheduler *maintenance.Scheduler // nil without a database
}

// backends are the identity, registration and usage implementations
// selected by REGISTRATION_MODE.
type backends struct {
	identities joinsvc.IdentityProvider
	registrar  joinsvc.MemberRegistrar
	usage      joinsvc.UsageCounter
	users      authsvc.UserFinder
	signer     uploadsvc.Signer
	upstreams  map[string]healthsvc.Pinger
}

func newBackends(cfg *config.Config, db *gorm.DB) *backends {
	b := &backends{upstreams: map[string]healthsvc.Pinger{}}
	var sb *supabase.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseSecretKey != "" {
		sb = supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseSecretKey)
		b.signer = &supabase.StorageClient{Client: sb}
		b.upstreams["supabase"] = sb
	}

	if cfg.RegistrationMode == config.RegistrationModeLocal {
		ids := &membersvc.GormIdentities{DB: db}
		b.identities = ids
		b.users = &authsvc.GormUserFinder{DB: db}
		b.registrar = &membersvc.GormRegistrar{DB: db, Identities: ids}
		b.usage = &icsvc.GormUsageCounter{DB: db}
		return b
	}
	auth := supabase.NewAuthClient(sb, cfg.SupabaseAnonKey, cfg.SupabaseAuthRPS)
	rest := &supabase.RESTClient{Client: sb}
	b.identities = auth
	b.users = &authsvc.SupabaseUserFinder{DB: db, Auth: auth}
	b.registrar = rest
	b.usage = rest
	return b
}

func rateLimited() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        publicRequestsPerMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, "Too many requests, please try again later", fiber.StatusTooManyRequests, nil)
		},
	})
}

func CreateApp(cfg *config.Config) (*Runtime, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Metrics())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	rt := &Runtime{App: app, Rdb: rdb}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if cfg.DatabaseURL == "" {
		return rt, nil
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	rt.DB = db
	hh.DB = &gormDBPinger{db: db}

	be := newBackends(cfg, db)
	hh.Upstreams = be.upstreams

	var emailSender emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		emailSender = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}

	codes := &icsvc.Service{DB: db, EmailSender: emailSender, JoinBaseURL: cfg.JoinBaseURL}
	rt.Scheduler = maintenance.NewScheduler(db, rdb, be.usage, codes)

	// Auth
	ah := &authhandler.Handlers{
		UserFinder: be.users,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", rateLimited(), ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	// Invite codes
	ich := &ichandler.Handlers{Service: codes}
	icg := app.Group("/api/v1/invite-codes", middleware.RequireAuth())
	icg.Post("/create-code", middleware.AuthorizePermission(constants.IssueInviteCode), ich.CreateCode)
	icg.Get("/view-codes", middleware.AuthorizePermission(constants.ViewInviteCodes), ich.ViewCodes)
	icg.Patch("/toggle-code/:id", middleware.AuthorizePermission(constants.IssueInviteCode), ich.ToggleCode)
	icg.Post("/share-code/:id", middleware.AuthorizePermission(constants.IssueInviteCode), ich.ShareCode)

	// Public join flow
	verifier := &joinsvc.Verifier{DB: db}
	redeemer := &joinsvc.Redeemer{
		DB:          db,
		Verifier:    verifier,
		Identities:  be.identities,
		Registrar:   be.registrar,
		Usage:       be.usage,
		EmailSender: emailSender,
	}
	if q := rt.Scheduler.Queue(); q != nil {
		redeemer.RetryQueue = q
	}
	jh := &joinhandler.Handlers{Verifier: verifier, Redeemer: redeemer, Drafts: &drafts.RedisStore{Rdb: rdb}}
	jg := app.Group("/api/v1/join/public", rateLimited())
	jg.Post("/verify-code", jh.VerifyCode)
	jg.Post("/redeem-code", jh.RedeemCode)
	jg.Put("/drafts/:key", jh.SaveDraft)
	jg.Get("/drafts/:key", jh.LoadDraft)
	jg.Delete("/drafts/:key", jh.ClearDraft)

	// Members
	mh := &memberhandler.Handlers{Service: &membersvc.Service{DB: db}}
	mg := app.Group("/api/v1/members", middleware.RequireAuth())
	mg.Get("/view-members", middleware.AuthorizePermission(constants.ViewMembers), mh.ViewMembers)

	// Org and regions
	oh := &orghandler.Handlers{Service: &orgsvc.Service{DB: db}}
	og := app.Group("/api/v1/orgs", middleware.RequireAuth())
	og.Get("/view-org", oh.ViewOrg)
	og.Patch("/toggle-region/:id", middleware.AuthorizePermission(constants.ManageRegions), oh.ToggleRegion)

	// Uploads: only with Supabase Storage configured
	if be.signer != nil {
		uph := &uploadhandler.Handlers{Service: &uploadsvc.Service{Signer: be.signer}}
		app.Post("/api/v1/uploads/id-document", rateLimited(), uph.IDDocument)
	}

	return rt, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
