package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/kerjago/kerjago/pkg/config"
	"github.com/kerjago/kerjago/pkg/email"
	"github.com/kerjago/kerjago/pkg/httpserver"
	"github.com/kerjago/kerjago/pkg/httpx"
	"github.com/kerjago/kerjago/pkg/logger"
	appmongo "github.com/kerjago/kerjago/pkg/mongo"
	appredis "github.com/kerjago/kerjago/pkg/redis"
	"github.com/kerjago/kerjago/pkg/respcache"
	"github.com/kerjago/kerjago/pkg/sse"
	"github.com/kerjago/kerjago/pkg/token"

	billingmod "github.com/kerjago/kerjago/modules/billing"
	jobsmod "github.com/kerjago/kerjago/modules/jobs"
	notifymod "github.com/kerjago/kerjago/modules/notify"

	"github.com/kerjago/kerjago/svc/billing"
	"github.com/kerjago/kerjago/svc/jobs"
	"github.com/kerjago/kerjago/svc/notify"
	"github.com/kerjago/kerjago/svc/users"
)

type appConfig struct {
	Log      logger.Config
	HTTP     httpserver.Config
	Mongo    appmongo.Config
	Redis    appredis.Config
	Cache    respcache.Config
	Token    token.Config
	Email    email.Config
	Midtrans billing.MidtransConfig
	Sweep    sweepConfig
}

type sweepConfig struct {
	// Cron schedules use the standard five-field format.
	ExpireSchedule string `env:"SWEEP_EXPIRE_CRON" envDefault:"0 * * * *"`
	RemindSchedule string `env:"SWEEP_REMIND_CRON" envDefault:"0 9 * * *"`
	// StartupDelay postpones the catch-up sweep so a crash-looping process
	// does not hammer the store.
	StartupDelay time.Duration `env:"SWEEP_STARTUP_DELAY" envDefault:"10s"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log, "kerjago-api")
	logger.SetAsDefault(log)

	ctx := context.Background()

	db, err := appmongo.ConnectDatabase(ctx, cfg.Mongo)
	if err != nil {
		log.Error("failed to connect to mongodb", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	userStore := users.NewMongoStore(db)
	subStore := billing.NewMongoStore(db)
	jobStore := jobs.NewMongoStore(db)
	notifStore := notify.NewMongoStorage(db)

	for _, ensure := range []func(context.Context) error{
		userStore.EnsureIndexes,
		subStore.EnsureIndexes,
		jobStore.EnsureIndexes,
		notifStore.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Error("failed to ensure indexes", logger.Error(err))
			os.Exit(1)
		}
	}

	cache := buildCache(ctx, cfg, log)

	tokenSvc, err := token.New(cfg.Token)
	if err != nil {
		log.Error("failed to create token service", logger.Error(err))
		os.Exit(1)
	}

	gateway, err := billing.NewMidtransGateway(cfg.Midtrans)
	if err != nil {
		log.Error("failed to create payment gateway", logger.Error(err))
		os.Exit(1)
	}

	registry := sse.NewRegistry(16)
	defer registry.Close()

	notifier := notify.NewManager(notifStore, notify.NewStreamDeliverer(registry),
		notify.WithManagerLogger(log))

	billingSvc := billing.NewService(subStore, userStore, gateway, notifier,
		billing.WithLogger(log),
		billing.WithMailer(buildMailer(cfg.Email, log)),
	)
	sweeper := billing.NewSweeper(subStore, userStore, notifier,
		billing.WithSweeperLogger(log))
	jobsSvc := jobs.NewService(jobStore, userStore, cache, jobs.WithLogger(log))

	stopSweeps := startSweeps(cfg.Sweep, sweeper, log)
	defer stopSweeps()

	auth := tokenSvc.Middleware()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/billing", billingmod.Router(billingmod.RouterOptions{
			Service: billingSvc,
			Auth:    auth,
			Logger:  log,
		}))
		api.Mount("/jobs", jobsmod.Router(jobsmod.RouterOptions{
			Service: jobsSvc,
			Cache:   cache.Middleware("jobs"),
			Auth:    auth,
		}))
		api.Mount("/notifications", notifymod.Router(notifymod.RouterOptions{
			Manager:  notifier,
			Registry: registry,
			Auth:     auth,
			Logger:   log,
		}))
	})

	if err := httpserver.New(cfg.HTTP, log).Run(ctx, r); err != nil {
		log.Error("http server failed", logger.Error(err))
		os.Exit(1)
	}
}

// buildCache connects to Redis when caching is enabled. A failed connection
// degrades to pass-through instead of blocking startup: listings work
// uncached until the backend returns.
func buildCache(ctx context.Context, cfg appConfig, log *slog.Logger) *respcache.Cache {
	if !cfg.Cache.Enabled {
		return respcache.New(nil, cfg.Cache, log)
	}

	client, err := appredis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, response cache disabled", logger.Error(err))
		return respcache.New(nil, cfg.Cache, log)
	}
	return respcache.New(client, cfg.Cache, log)
}

func buildMailer(cfg email.Config, log *slog.Logger) email.EmailSender {
	if cfg.PostmarkServerToken == "" {
		log.Info("postmark not configured, using dev email sender")
		return email.NewDevSender(log)
	}
	mailer, err := email.NewPostmarkClient(cfg)
	if err != nil {
		log.Error("failed to create postmark client", logger.Error(err))
		os.Exit(1)
	}
	return mailer
}

// startSweeps schedules the hourly expiration sweep and the daily reminder
// sweep, plus a one-shot catch-up run shortly after startup so downtime
// longer than a schedule interval cannot leave overdue records unexpired.
func startSweeps(cfg sweepConfig, sweeper *billing.Sweeper, log *slog.Logger) func() {
	runExpire := func() {
		n, err := sweeper.ExpireOverdue(context.Background())
		if err != nil {
			log.Error("expiration sweep failed", logger.Error(err))
			return
		}
		log.Info("expiration sweep finished", slog.Int("expired", n))
	}
	runRemind := func() {
		n, err := sweeper.RemindExpiring(context.Background())
		if err != nil {
			log.Error("reminder sweep failed", logger.Error(err))
			return
		}
		log.Info("reminder sweep finished", slog.Int("reminders", n))
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ExpireSchedule, runExpire); err != nil {
		log.Error("invalid expire schedule", logger.Error(err))
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.RemindSchedule, runRemind); err != nil {
		log.Error("invalid remind schedule", logger.Error(err))
		os.Exit(1)
	}
	c.Start()

	catchUp := time.AfterFunc(cfg.StartupDelay, func() {
		runExpire()
		runRemind()
	})

	return func() {
		catchUp.Stop()
		<-c.Stop().Done()
	}
}

func handleHealth(db *mongo.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Client().Ping(ctx, nil); err != nil {
			httpx.Error(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
