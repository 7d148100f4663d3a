package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/factcheck/internal/application"
	appfc "github.com/bryanwahyu/factcheck/internal/application/factcheck"
	"github.com/bryanwahyu/factcheck/internal/config"
	"github.com/bryanwahyu/factcheck/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/factcheck/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/factcheck/internal/infra/db/postgres"
	"github.com/bryanwahyu/factcheck/internal/infra/fetch"
	"github.com/bryanwahyu/factcheck/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/factcheck/internal/infra/storage"
	"github.com/bryanwahyu/factcheck/internal/logging"
	"github.com/bryanwahyu/factcheck/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		logrus.Fatalf("logger init error: %v", err)
	}

	ctx := context.Background()

	analyzer := openai.NewClient(openai.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		TextModel:   cfg.LLM.TextModel,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: float32(cfg.LLM.Temperature),
	})

	limits := appfc.Limits{
		MaxTextLength:       cfg.Limits.MaxTextLength,
		MaxContextLength:    cfg.Limits.MaxContextLength,
		MaxURLContentLength: cfg.Limits.MaxURLContentLength,
		MaxImageBytes:       cfg.MaxImageBytes(),
	}
	svc := &appfc.Service{
		Analyzer: analyzer,
		Fetcher:  fetch.New(cfg.URLTimeout(), cfg.FetchCacheTTL(), log.WithField("component", "fetch")),
		Clock:    application.SystemClock{},
		Limits:   limits,
		Timeout:  cfg.LLMTimeout(),
		Logger:   log.WithField("component", "factcheck"),
	}

	checkers := map[string]middleware.HealthChecker{
		middleware.LLMCheck: middleware.CheckerFunc(analyzer.Ping),
	}

	// optional audit store
	db, err := openAuditStore(ctx, cfg, svc)
	if err != nil {
		log.WithError(err).Fatal("audit store init error")
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		log.WithField("driver", cfg.Database.Driver).Info("audit store enabled")
	}

	// optional image archive
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.WithError(err).Fatal("minio init error")
		}
		svc.Images = store
		log.WithField("bucket", cfg.Minio.BucketName).Info("image archive enabled")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		proxies, err := middleware.ParseProxies(cfg.RateLimit.TrustedProxies)
		if err != nil {
			log.WithError(err).Fatal("rate limit init error")
		}
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst).TrustProxies(proxies)
		defer limiter.Close()
	}

	handler := httpserver.NewRouter(httpserver.Options{
		Service:     svc,
		Logger:      log,
		ServiceName: cfg.App.Title,
		Version:     cfg.App.Version,
		Checkers:    checkers,
		CORSOrigins: cfg.CORS.Origins,
		Limiter:     limiter,
		AuditKeys:   cfg.Audit.APIKeys,
	})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		// a URL check may fetch a page and then wait on the LLM
		WriteTimeout: cfg.URLTimeout() + cfg.LLMTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.WithFields(logrus.Fields{
			"addr":       addr,
			"text_model": cfg.LLM.TextModel,
			"base_url":   cfg.LLM.BaseURL,
		}).Infof("%s %s listening", cfg.App.Title, cfg.App.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}

// openAuditStore connects the configured database, creates the schema and
// attaches the repositories to svc. It returns nil when auditing is off.
func openAuditStore(ctx context.Context, cfg *config.Config, svc *appfc.Service) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), mysqlp.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
		})
		if err != nil {
			return nil, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		svc.Audit = mysqlp.NewAuditRepository(db)
		svc.Failures = mysqlp.NewFailureRepository(db)
		return db, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN(), pgp.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
		})
		if err != nil {
			return nil, err
		}
		if err := pgp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		svc.Audit = pgp.NewAuditRepository(db)
		svc.Failures = pgp.NewFailureRepository(db)
		return db, nil
	default:
		return nil, nil
	}
}
