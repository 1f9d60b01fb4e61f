package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chicken/VenaaRauhassa/internal/cache"
	"github.com/Chicken/VenaaRauhassa/internal/config"
	"github.com/Chicken/VenaaRauhassa/internal/db"
	"github.com/Chicken/VenaaRauhassa/internal/digitraffic"
	"github.com/Chicken/VenaaRauhassa/internal/metrics"
	"github.com/Chicken/VenaaRauhassa/internal/notify"
	"github.com/Chicken/VenaaRauhassa/internal/quirks"
	"github.com/Chicken/VenaaRauhassa/internal/session"
	"github.com/Chicken/VenaaRauhassa/internal/status"
	"github.com/Chicken/VenaaRauhassa/internal/train"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
	"github.com/Chicken/VenaaRauhassa/internal/vr"
)

// App holds the wired components shared by the API server and the CLI
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Reporter notify.Reporter
	Policy   quirks.Policy

	Sessions    session.Store
	Auth        *vr.AuthManager
	Digitraffic *digitraffic.Client
	Assembler   *train.Assembler
	Trains      *train.CachedAssembler
	Status      *status.Checker

	// HealthChecks covers the storage backends the app depends on
	HealthChecks map[string]func(ctx context.Context) error

	closers []func()
}

// New wires every component from cfg and connects the session store
func New(cfg *config.Config) (*App, error) {
	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	a := &App{
		Config:       cfg,
		Registry:     registry,
		Metrics:      m,
		Reporter:     notify.NewWebhookReporter(cfg.ErrorWebhook),
		Policy:       quirks.Default,
		HealthChecks: map[string]func(ctx context.Context) error{},
	}

	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sessions = store

	client := upstream.NewClient(cfg.RequestTimeout, m)
	vrConfig := cfg.VRConfig()
	policy := a.Policy

	a.Auth = vr.NewAuthManager(store, vr.NewIdentity(client, vrConfig), vr.AuthOptions{Metrics: m})
	seatMaps := vr.NewSeatMapClient(client, vrConfig, a.Auth)
	a.Digitraffic = digitraffic.NewClient(client, cfg.DigitrafficConfig(), policy)

	cacheOpts := cache.Options{Reporter: a.Reporter, Metrics: m}
	a.Assembler = train.NewAssembler(a.Digitraffic, a.Auth, seatMaps, train.Options{
		Policy:        policy,
		MaxFailedLegs: cfg.Train.MaxFailedLegs,
		Reporter:      a.Reporter,
	})
	a.Trains = train.NewCachedAssembler(a.Assembler, cfg.Train.CacheFresh, cfg.Train.CacheStale, cacheOpts)
	a.Status = status.NewChecker(client, cfg.StatusConfig(), cacheOpts)

	return a, nil
}

func (a *App) openStore() (session.Store, error) {
	switch a.Config.SessionStore {
	case config.StorePostgres:
		pool, err := db.GetDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.HealthChecks["database"] = db.HealthCheck
		log.Println("✓ Session store: PostgreSQL")
		return session.NewPostgresStore(pool), nil

	case config.StoreRedis:
		client, err := cache.GetClient()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
		a.HealthChecks["redis"] = cache.HealthCheck
		log.Println("✓ Session store: Redis")
		return session.NewRedisStore(client, session.DefaultRedisKey), nil

	case config.StoreMemory:
		log.Println("⚠ Session store: in-memory, sessions are lost on restart")
		return session.NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown session store %q", a.Config.SessionStore)
}

// MetricsHandler serves the app registry in the Prometheus text format
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
}

// FeedbackSender returns the feedback webhook, or nil when none is configured
func (a *App) FeedbackSender() notify.Sender {
	if a.Config.FeedbackWebhook == "" {
		return nil
	}
	return &notify.WebhookReporter{
		URL:    a.Config.FeedbackWebhook,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Close releases the store connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
