package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

const pruneInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	if missing := cfg.Validate(); len(missing) > 0 {
		log.Fatalf("missing required env: %s", strings.Join(missing, ", "))
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pkgdb.Migrate(ctx, db, models.All()...)
	}
	cancel()
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	r := repo.New(db)

	var publisher service.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer producer.Close()
		publisher = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS not set")
	}

	catalog := &service.CatalogService{Repo: r, Publisher: publisher}
	searchSvc := &service.SearchService{Catalog: catalog}
	if cfg.ESURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		es, err := search.NewClient(ctx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		cancel()
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "error", err)
		} else {
			catalog.Indexer = es
			searchSvc.Searcher = es
		}
	}

	dashboard := &service.DashboardService{
		Repo:              r,
		CacheTTL:          cfg.DashboardCacheTTL,
		LowStockThreshold: cfg.LowStockThreshold,
	}
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedis(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logger.Warn("redis_unavailable", "error", err)
		} else {
			defer rdb.Close()
			dashboard.Cache = rdb
		}
	}

	authSvc := &service.AuthService{
		Repo:          r,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Publisher:     publisher,
	}
	if cfg.AdminEmail != "" {
		config.MustNonEmpty(cfg.AdminPassword, "ADMIN_PASSWORD")
		if err := authSvc.SeedAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
	}

	cart := &service.CartService{Repo: r}
	reviews := &service.ReviewService{Repo: r}
	orders := &service.OrderService{Repo: r, Publisher: publisher}
	sales := &service.SaleService{Repo: r, Catalog: catalog}
	newsletter := &service.NewsletterService{Repo: r, Publisher: publisher}

	bg, stopBackground := context.WithCancel(logging.IntoContext(context.Background(), logger))
	defer stopBackground()
	go sales.RunActivator(bg, cfg.SaleActivatorInterval)
	go pruneRefreshTokens(bg, authSvc, pruneInterval)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	} else {
		e.Use(echomw.CORS())
	}

	deps := &httpserver.Deps{
		Auth:    &httpserver.AuthHTTP{Svc: authSvc, Cart: cart, CookieSecure: cfg.CookieSecure},
		Catalog: &httpserver.CatalogHTTP{Svc: catalog, Search: searchSvc, Reviews: reviews},
		Cart:    &httpserver.CartHTTP{Svc: cart},
		Orders: &httpserver.OrderHTTP{
			Checkout: &service.CheckoutService{Repo: r, Publisher: publisher},
			Orders:   orders,
		},
		Account: &httpserver.AccountHTTP{
			Profile:  &service.ProfileService{Repo: r},
			Reviews:  reviews,
			Payments: &service.PaymentService{Repo: r},
		},
		Newsletter: &httpserver.NewsletterHTTP{Svc: newsletter},
		Admin: &httpserver.AdminHTTP{
			Catalog:    catalog,
			Orders:     orders,
			Carts:      cart,
			Reviews:    reviews,
			Sales:      sales,
			Reports:    &service.ReportService{Repo: r},
			Settings:   &service.SettingsService{Repo: r},
			Newsletter: newsletter,
			Dashboard:  dashboard,
		},
		JWTSecret:    cfg.JWTAccessSecret,
		CookieSecure: cfg.CookieSecure,
		Ready:        func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
	}
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.CookieSecure
		deps.CSRF = &c
	}
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopBackground()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("server_stopped")
}

func pruneRefreshTokens(ctx context.Context, svc *service.AuthService, every time.Duration) {
	l := logging.FromContext(ctx).With("job", "prune_refresh_tokens")
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PruneRefreshTokens(ctx)
			if err != nil {
				l.Warn("prune_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("pruned", "count", n)
			}
		}
	}
}
