package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobly/api/handler"
	apiMiddleware "jobly/api/middleware"
	"jobly/api/routes"
	"jobly/config"
	"jobly/internal/repository"
	"jobly/internal/service"
	"jobly/internal/utils"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	tokenIssuer    = "jobly"
	janitorEvery   = 10 * time.Minute
	requestTimeout = 15 * time.Second
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectionDb(cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("database unavailable")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("database handle")
	}
	defer sqlDB.Close()
	if err := config.RunMigrations(ctx, sqlDB); err != nil {
		logger.WithError(err).Fatal("migrations failed")
	}

	rdb, err := config.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	var mailer service.EmailSender
	switch cfg.Mail.Provider {
	case "smtp":
		mailer = service.NewSMTPEmailSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort,
			cfg.Mail.SMTPUsername, cfg.Mail.SMTPPassword, cfg.Mail.From, cfg.AppBaseURL)
	default:
		mailer = service.NewResendEmailSender(cfg.Mail.ResendAPIKey, cfg.Mail.From, cfg.AppBaseURL)
	}
	dispatcher := service.NewEmailDispatcher(mailer, logger, service.DispatcherConfig{
		RatePerSecond: cfg.Mail.RatePerSecond,
	})
	dispatcher.Start()
	defer dispatcher.Close()

	clock := service.RealClock{}
	sessionTokens := &utils.SessionTokenManager{
		Secret: cfg.SessionSecret,
		Issuer: tokenIssuer,
		TTL:    config.SessionTTL,
		Now:    clock.Now,
	}
	sessions := service.NewSessionService(
		service.JWTSessionIssuer{Manager: sessionTokens},
		repository.NewSessionRepository(rdb),
		clock,
	)
	mfaTokens := service.MFATokenIssuerJWT{
		Secret: cfg.MFASecret,
		Issuer: tokenIssuer,
		TTL:    5 * time.Minute,
		Clock:  clock,
	}

	var oauth service.OAuthProvider
	if cfg.GitHub.Enabled() {
		oauth = service.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	repos := repository.NewManager(db)
	authService := service.NewAuthService(
		repos,
		sessions,
		dispatcher,
		service.BcryptPasswordHasher{Cost: cfg.BcryptCost},
		mfaTokens,
		service.NewTOTPProvider(cfg.MFAIssuer),
		oauth,
		clock,
		service.AuthConfig{
			VerificationCodeTTL: 15 * time.Minute,
			ResetTokenTTL:       time.Hour,
			MFATokenTTL:         5 * time.Minute,
			MFAIssuer:           cfg.MFAIssuer,
			MaxCodeAttempts:     5,
		},
		logger,
	)
	marketService := service.NewMarketplaceService(repos)

	validate := handler.NewValidator()
	cookie := handler.DefaultSessionCookie()
	cookie.Domain = cfg.CookieDomain
	cookie.Secure = cfg.CookieSecure

	authHandler := handler.NewAuthHandler(authService, validate, logger)
	authHandler.Cookie = cookie
	csrf := apiMiddleware.NewCSRF(cfg.CSRFSecret)
	csrf.Domain = cfg.CookieDomain
	csrf.Secure = cfg.CookieSecure

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.HTTPErrorHandler = handler.HTTPErrorHandler(logger)
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":     v.Status,
				"method":     v.Method,
				"uri":        v.URI,
				"ip":         v.RemoteIP,
				"request_id": v.RequestID,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	app.Use(echoMiddleware.ContextTimeoutWithConfig(echoMiddleware.ContextTimeoutConfig{
		Timeout: requestTimeout,
	}))

	router := &routes.Router{
		Echo:           app,
		Auth:           authHandler,
		OAuth:          handler.NewOAuthHandler(authService, cookie),
		Account:        handler.NewAccountHandler(authService, validate, cookie),
		Marketplace:    handler.NewMarketplaceHandler(marketService, validate),
		AuthMiddleware: apiMiddleware.AuthMiddleware{Sessions: sessions, Cookie: cookie},
		Accounts:       apiMiddleware.AccountMiddleware{Users: authService},
		CSRF:           csrf,
		AuthRate: apiMiddleware.NewRateLimiter(
			repository.NewRateLimitRepository(rdb), "auth", 5, time.Minute, logger),
	}
	router.RegisterRoutes()

	go runJanitor(ctx, authService, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server stopped")
}

func runJanitor(ctx context.Context, auth *service.AuthService, logger logrus.FieldLogger) {
	ticker := time.NewTicker(janitorEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, tokens, err := auth.PurgeExpired(ctx)
			if err != nil {
				logger.WithError(err).Error("purge expired records")
				continue
			}
			if pending > 0 || tokens > 0 {
				logger.WithFields(logrus.Fields{"pending": pending, "tokens": tokens}).Info("purged expired records")
			}
		}
	}
}
