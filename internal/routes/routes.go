package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kudipay/kudipay/internal/apikey"
	"github.com/kudipay/kudipay/internal/auth"
	"github.com/kudipay/kudipay/internal/config"
	"github.com/kudipay/kudipay/internal/deposit"
	"github.com/kudipay/kudipay/internal/identity"
	"github.com/kudipay/kudipay/internal/ledger"
	"github.com/kudipay/kudipay/internal/logging"
	"github.com/kudipay/kudipay/internal/middleware"
	"github.com/kudipay/kudipay/internal/notification"
	"github.com/kudipay/kudipay/internal/paystack"
	"github.com/kudipay/kudipay/internal/transfer"
	"github.com/kudipay/kudipay/internal/wallet"
	"github.com/kudipay/kudipay/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// or cache (dev only) the volatile in-memory backends take their place.
func Setup(app *fiber.App, d Deps) error {
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Storage backends
	var (
		store      ledger.Store
		walletRepo wallet.Repository
		userRepo   identity.Repository
		keyRepo    apikey.Repository
		events     webhook.Store
	)
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		userRepo = identity.NewPostgresRepository(d.DB)
		keyRepo = apikey.NewPostgresRepository(d.DB)
		events = webhook.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		userRepo = identity.NewMemoryRepository()
		keyRepo = apikey.NewMemoryRepository()
		events = webhook.NewMemoryStore()
	}

	// Services
	walletSvc := wallet.NewService(walletRepo, store)
	userSvc := identity.NewService(userRepo)
	keySvc := apikey.NewService(keyRepo)
	notifier := notification.NewLoggerNotifier(d.Logger)
	provider := paystack.NewClient(d.Cfg.PaystackBaseURL, d.Cfg.PaystackSecretKey, d.Cfg.ProviderTimeout)
	tokenSvc := auth.NewTokenService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	googleVerifier := auth.NewGoogleVerifier("", d.Cfg.GoogleClientID, d.Cfg.ProviderTimeout)
	transferSvc := transfer.NewService(walletSvc, store, notifier, logging.WithComponent(d.Logger, "transfer"))
	depositSvc := deposit.NewService(walletSvc, store, events, userRepo, provider, notifier, d.Cfg.MinDepositAmount, logging.WithComponent(d.Logger, "deposit"))

	// Handlers
	authHandler := auth.NewHandler(userSvc, tokenSvc, googleVerifier, walletSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	transferHandler := transfer.NewHandler(transferSvc)
	depositHandler := deposit.NewHandler(depositSvc, provider, logging.WithComponent(d.Logger, "webhook"))
	keyHandler := apikey.NewHandler(keySvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes. The webhook authenticates by signature, not session, and
	// must stay outside the idempotency middleware: the (provider, reference)
	// guard owns replay handling there.
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	RegisterWebhookRoute(api, depositHandler)

	// Protected routes
	protected := api.Group("", middleware.Authenticate(tokenSvc, keySvc))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterWalletRoutes(protected, walletHandler)
	RegisterDepositRoutes(protected, depositHandler)
	RegisterTransferRoutes(protected, transferHandler)
	RegisterKeyRoutes(protected, keyHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
