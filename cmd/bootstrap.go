package cmd

import (
	"context"
	"os"
	"strings"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/database"
	"example.com/connectsphere/internal/messaging"
	"example.com/connectsphere/internal/metrics"
	"example.com/connectsphere/internal/notifications"
	"example.com/connectsphere/internal/realtime"
	"example.com/connectsphere/internal/search"
	"example.com/connectsphere/internal/services"
	"example.com/connectsphere/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Only the worker command forwards notifications to Service Bus
const (
	apiForwarding    = false
	workerForwarding = true
)

// app holds the collaborators shared by the long-running commands
type app struct {
	cfg        config.Config
	db         *gorm.DB
	readOnlyDB *gorm.DB
	store      cache.Store
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
	hub        *realtime.Hub
	scheduler  *services.PollScheduler
	dispatcher *services.Dispatcher
	forwarder  messaging.ServiceBusClient
	services   *services.Services
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return cfg, err
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg config.Config) {
	if cfg.Environment == "development" || cfg.Logging.Format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("instance", cfg.InstanceID).Logger()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// bootstrap connects every dependency and wires the services. withForwarding
// also connects the Service Bus sender used by the notification worker; only
// the worker command asks for it.
func bootstrap(cfg config.Config, withForwarding bool) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.NewMetrics()}

	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	a.db, a.readOnlyDB = db, readOnlyDB

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			a.close()
			return nil, err
		}
	}

	store, err := cache.NewStore(cfg.Redis)
	if err != nil {
		a.close()
		return nil, errors.Wrap(err, "failed to initialize store")
	}
	a.store = store

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Disabled()
	}
	a.tracer = tracer

	a.hub = realtime.NewHub(cfg.Realtime, a.metrics)
	a.dispatcher = services.NewDispatcher(store, a.hub, cfg.InstanceID, a.metrics)

	deps := services.Deps{
		DB:         db,
		ReadOnlyDB: readOnlyDB,
		Store:      store,
		Dispatcher: a.dispatcher,
		Tracer:     tracer,
		Metrics:    a.metrics,
	}

	if cfg.Elastic.Enabled {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing with database search")
		} else {
			deps.Indexer = elasticClient
		}
	}

	if cfg.Scheduler.Enabled {
		scheduler, err := services.NewPollScheduler()
		if err != nil {
			a.close()
			return nil, err
		}
		a.scheduler = scheduler
	}

	a.forwarder = connectForwarder(cfg, withForwarding)

	a.services = services.New(deps, services.AuthOptions{
		Secret:     cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, a.scheduler)
	a.hub.SetJoinPolicy(services.JoinPolicy(deps))

	return a, nil
}

// connectForwarder returns the Service Bus sender, or nil when the command
// does not forward or forwarding is off
func connectForwarder(cfg config.Config, withForwarding bool) messaging.ServiceBusClient {
	if !withForwarding || !cfg.Notifications.ForwardEnabled {
		return nil
	}
	forwarder, err := messaging.NewServiceBusClient(cfg.Azure, cfg.InstanceID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus client, notifications will not be forwarded")
		return nil
	}
	return forwarder
}

// notificationWorker builds the worker, leaving the forwarder out when none is connected
func (a *app) notificationWorker() *notifications.Worker {
	var forwarder notifications.Forwarder
	if a.forwarder != nil {
		forwarder = a.forwarder
	}
	return notifications.NewWorker(a.db, a.readOnlyDB, a.store, a.hub, forwarder, a.metrics)
}

// runScheduler recovers overdue polls, starts the sweep and blocks until ctx is done
func (a *app) runScheduler(ctx context.Context) error {
	if a.scheduler == nil {
		<-ctx.Done()
		return nil
	}

	sweep := func() {
		if _, err := a.services.Polls.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("Poll sweep failed")
		}
	}
	sweep()

	if err := a.scheduler.Every(a.cfg.Scheduler.SweepInterval, sweep); err != nil {
		return err
	}
	a.scheduler.Start()
	log.Info().Dur("sweep_interval", a.cfg.Scheduler.SweepInterval).Msg("Poll scheduler started")

	<-ctx.Done()
	return a.scheduler.Shutdown()
}

func (a *app) close() {
	if a.forwarder != nil {
		if err := a.forwarder.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Service Bus client")
		}
	}
	if a.tracer != nil {
		a.tracer.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}
	if err := database.Close(a.db, a.readOnlyDB); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
