package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/api"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/config"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/fixtures"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/logging"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/metrics"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/provider"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/pub"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/secrets"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/service"
)

const feedCredential = "bank-feed"

const usage = `usage: vermieter [command]

commands:
  serve            run the HTTP API and the sync scheduler (default)
  sync             sync every connected bank once and exit
  seed <user-id>   create a demo organization owned by user-id
  token <user-id>  print a 24h API token for user-id
  store-key <key>  keep the bank feed API key in the local credential store
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warn: .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logCfg := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	logCfg.Development = cfg.Log.Development
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetGlobal(logger)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	arg := ""
	if len(os.Args) > 2 {
		arg = os.Args[2]
	}

	if cmd == "token" {
		if arg == "" || cfg.Auth.JWTSecret == "" {
			log.Fatalf("token needs a user id and auth.jwt_secret")
		}
		token, err := api.IssueToken([]byte(cfg.Auth.JWTSecret), arg, 24*time.Hour)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if cmd == "store-key" {
		store, err := secrets.DefaultStore()
		if err != nil || arg == "" {
			log.Fatalf("store-key needs a key and a config dir (%v)", err)
		}
		if err := store.Put(feedCredential, arg); err != nil {
			log.Fatalf("store key: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	app, err := wire(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("wire services", zap.Error(err))
	}
	defer app.close()

	switch cmd {
	case "serve":
		if err := serve(ctx, cfg, app, logger); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	case "sync":
		n := app.scheduler.RunOnce(ctx)
		logger.Info("sync finished", zap.Int("connections", n))
	case "seed":
		if arg == "" {
			log.Fatal(usage)
		}
		demo, err := fixtures.SeedDemo(ctx, fixtures.Repos{
			Organizations: app.repos.orgs,
			Directory:     app.repos.dir,
			Connections:   app.repos.conns,
			Accounts:      app.repos.accounts,
		}, arg)
		if err != nil {
			logger.Fatal("seed", zap.Error(err))
		}
		logger.Info("demo data created",
			zap.String("organization_id", demo.OrganizationID),
			zap.String("connection_id", demo.ConnectionID),
			zap.String("account_id", demo.AccountID),
		)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func openDatabase(cfg config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		return nil, err
	}
	return database.Open(cfg.Database.Path)
}

type repos struct {
	orgs     *repository.OrganizationRepo
	conns    *repository.ConnectionRepo
	accounts *repository.AccountRepo
	txs      *repository.TransactionRepo
	rules    *repository.RuleRepo
	dir      *repository.DirectoryRepo
}

type application struct {
	repos     repos
	deps      api.Deps
	scheduler *service.Scheduler
	redis     redis.UniversalClient
}

func (a *application) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func wire(ctx context.Context, cfg config.Config, db *sql.DB, logger *zap.Logger) (*application, error) {
	r := repos{
		orgs:     repository.NewOrganizationRepo(db),
		conns:    repository.NewConnectionRepo(db),
		accounts: repository.NewAccountRepo(db),
		txs:      repository.NewTransactionRepo(db),
		rules:    repository.NewRuleRepo(db),
		dir:      repository.NewDirectoryRepo(db),
	}
	app := &application{repos: r}

	var collector metrics.Collector = metrics.NoOpCollector{}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		pc, err := metrics.NewPrometheusCollector(cfg.Metrics.Namespace, reg)
		if err != nil {
			return nil, err
		}
		collector = pc
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	var events pub.Publisher = pub.NopPublisher{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, events will be dropped until it recovers", zap.Error(err))
		}
		cancel()
		app.redis = rdb
		events = pub.NewRedisPublisher(rdb, cfg.Redis.Channel, logger.Named("events"))
	}

	var feed provider.Feed
	switch cfg.Provider.Mode {
	case "http":
		feed = provider.NewHTTPFeed(cfg.Provider.BaseURL, resolveAPIKey(cfg, logger), cfg.Provider.Timeout)
	default:
		feed = &provider.Simulated{}
	}
	feed = provider.NewBreaker(feed, provider.BreakerConfig{
		MaxRequests:         cfg.Breaker.MaxRequests,
		Interval:            cfg.Breaker.Interval,
		Timeout:             cfg.Breaker.Timeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		CallTimeout:         cfg.Provider.Timeout,
	}, logger.Named("feed"))

	syncSvc := &service.SyncService{
		Organizations: r.orgs,
		Connections:   r.conns,
		Accounts:      r.accounts,
		Transactions:  r.txs,
		Rules:         r.rules,
		Directory:     r.dir,
		Feed:          feed,
		Stats:         &service.RuleStats{Rules: r.rules, Metrics: collector, Logger: logger.Named("rules")},
		Metrics:       collector,
		Events:        events,
		Logger:        logger.Named("sync"),
	}
	app.scheduler = service.NewScheduler(syncSvc, r.conns, logger.Named("scheduler"))
	app.deps = api.Deps{
		Sync: syncSvc,
		Override: &service.OverrideService{
			Organizations: r.orgs,
			Accounts:      r.accounts,
			Transactions:  r.txs,
			Rules:         r.rules,
			Directory:     r.dir,
			Events:        events,
			Logger:        logger.Named("override"),
		},
		Rules:        &service.RuleService{Organizations: r.orgs, Rules: r.rules, Directory: r.dir},
		Connections:  &service.ConnectionService{DB: db, Organizations: r.orgs, Connections: r.conns, Accounts: r.accounts, Logger: logger.Named("connections")},
		Suggest:      &service.SuggestService{Organizations: r.orgs, Accounts: r.accounts, Transactions: r.txs, Directory: r.dir},
		Transactions: &service.TransactionService{Organizations: r.orgs, Transactions: r.txs},
		Metrics:      metricsHandler,
		JWTSecret:    []byte(cfg.Auth.JWTSecret),
		Logger:       logger.Named("http"),
	}
	return app, nil
}

// resolveAPIKey prefers the configured key and falls back to the credential store.
func resolveAPIKey(cfg config.Config, logger *zap.Logger) string {
	if cfg.Provider.APIKey != "" {
		return cfg.Provider.APIKey
	}
	store, err := secrets.DefaultStore()
	if err != nil {
		logger.Warn("credential store unavailable", zap.Error(err))
		return ""
	}
	key, err := store.Get(feedCredential)
	if err != nil {
		logger.Warn("no bank feed API key configured", zap.Error(err))
		return ""
	}
	return key
}

func serve(ctx context.Context, cfg config.Config, app *application, logger *zap.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if cfg.Sync.Enabled {
		if err := app.scheduler.Start(cfg.Sync.Schedule); err != nil {
			return err
		}
		defer app.scheduler.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewServer(app.deps).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr), zap.String("provider", cfg.Provider.Mode))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
