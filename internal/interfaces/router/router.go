package router

import (
	"context"

	auctionsvc "hodhod-backend/internal/application/auctions"
	authsvc "hodhod-backend/internal/application/auth"
	"hodhod-backend/internal/application/emails"
	"hodhod-backend/internal/application/events"
	"hodhod-backend/internal/application/ledger"
	"hodhod-backend/internal/application/payments"
	"hodhod-backend/internal/application/queries"
	"hodhod-backend/internal/application/reminders"
	"hodhod-backend/internal/application/sweeper"
	"hodhod-backend/internal/config"
	"hodhod-backend/internal/infrastructure/database"
	auctionhandler "hodhod-backend/internal/interfaces/handlers/auctions"
	authhandler "hodhod-backend/internal/interfaces/handlers/auth"
	healthhandler "hodhod-backend/internal/interfaces/handlers/health"
	payhandler "hodhod-backend/internal/interfaces/handlers/payments"
	"hodhod-backend/internal/middleware"
	"hodhod-backend/internal/pkg/clock"
	"hodhod-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all middleware and routes wired, opens
// the database and Redis connections, and constructs (but does not start) the
// background sweeper.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, *sweeper.Sweeper, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Webhook is mounted before the session middleware: the gateway sends no
	// cookies and signature verification needs the raw body.
	gatewayWebhook := &payhandler.WebhookHandler{WebhookSecret: cfg.PaymentWebhookSecret}
	app.Post("/api/v1/payments/webhook", func(c *fiber.Ctx) error {
		return gatewayWebhook.HandleWebhook(c)
	})

	sessionHandler, redisClient, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	rdb := redisClient
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
		gatewayWebhook.DB = db
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	var sw *sweeper.Sweeper
	if db != nil && rdb != nil {
		sysClock := clock.System()
		eventPub := &events.Publisher{DB: db, Rdb: rdb}
		bidLedger := &ledger.BidLedger{DB: db}
		var provider payments.Provider = payments.NewSandbox()
		if cfg.PaymentGatewayURL != "" && cfg.PaymentGatewayKey != "" {
			provider = &payments.GatewayClient{BaseURL: cfg.PaymentGatewayURL, APIKey: cfg.PaymentGatewayKey}
		}
		depositLedger := &ledger.DepositLedger{DB: db, Provider: provider}
		mailer := &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}

		as := &auctionsvc.Service{
			DB:            db,
			Bids:          bidLedger,
			Deposits:      depositLedger,
			Events:        eventPub,
			Clock:         sysClock,
			Mailer:        mailer,
			MaxExtensions: cfg.MaxExtensions,
			RetryLimit:    cfg.BidRetryLimit,
		}
		qs := &queries.Service{DB: db, Bids: bidLedger, Clock: sysClock}
		auh := &auctionhandler.Handlers{Service: as, Queries: qs}

		ag := app.Group("/api/v1/auctions", middleware.RequireAuth())
		ag.Post("/create-auction", middleware.AuthorizePermission(constants.CreateAuction), auh.CreateAuction)
		ag.Post("/place-bid", middleware.AuthorizePermission(constants.PlaceBid), auh.PlaceBid)
		ag.Post("/cancel-auction", middleware.AuthorizePermission(constants.CancelAuction), auh.CancelAuction)
		ag.Post("/close-auction", middleware.AuthorizePermission(constants.CloseAuction), auh.CloseAuction)
		ag.Get("/get-auction/:auction_id", auh.GetAuction)
		ag.Get("/get-auction-bids/:auction_id", auh.GetAuctionBids)
		ag.Get("/get-all-active-auctions", auh.GetAllActiveAuctions)
		ag.Get("/get-seller-auctions", auh.GetSellerAuctions)

		rs := &reminders.Scheduler{
			DB:      db,
			Rdb:     rdb,
			Events:  eventPub,
			Clock:   sysClock,
			Offsets: cfg.ReminderOffsets,
			Mailer:  mailer,
		}
		sw = sweeper.New(as, rs, context.Background())
	}

	return app, db, rdb, sw, nil
}
