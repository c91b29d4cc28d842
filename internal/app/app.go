package app

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kwendataxi/kwenda-sub010/config"
	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/http/server"
	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/kafka"
	repo "github.com/Kwendataxi/kwenda-sub010/internal/adapter/postgres"
	rabbitadapter "github.com/Kwendataxi/kwenda-sub010/internal/adapter/rabbit"
	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/redisgeo"
	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/stream"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/auth"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/booking"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/dispatch"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/location"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/pricing"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/relay"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	"github.com/Kwendataxi/kwenda-sub010/pkg/postgres"
	"github.com/Kwendataxi/kwenda-sub010/pkg/rabbit"
	"github.com/Kwendataxi/kwenda-sub010/pkg/trm"
	wsHub "github.com/Kwendataxi/kwenda-sub010/pkg/wsHub"
)

// App owns every long-lived resource of the dispatch service and wires
// the booking, dispatch, location and relay components together.
type App struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ
	archiver   *kafka.LocationProducer
	hub        *wsHub.ConnectionHub
	relay      *relay.Relay
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	if cfg.Database.Migrate {
		if err := postgres.RunMigrations(cfg.Database.MigrationsDir, cfg.Database.GetDSN()); err != nil {
			log.Error(ctx, "failed to run migrations", err)
			return nil, err
		}
	}

	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to setup database", err)
		return nil, err
	}

	txMgr := trm.New(postgresDB.Pool)
	bookingRepo := repo.NewBookingRepo(postgresDB.Pool)
	cancellationRepo := repo.NewCancellationRepo(postgresDB.Pool)
	eventRepo := repo.NewBookingEventRepo(postgresDB.Pool)
	driverRepo := repo.NewDriverRepo(postgresDB.Pool)

	engine := pricing.NewEngine(cfg.Pricing.CancellationFeePercent)

	// The geo index is Redis-backed when an address is configured and
	// in-process otherwise. Both honor the same freshness window.
	var index geo.Index
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Error(ctx, "failed to connect to redis", err)
			return nil, err
		}
		index = redisgeo.New(client, cfg.Redis.GeoKey, cfg.Location.FreshnessWindow)
	} else {
		index = geo.NewMemoryIndex(cfg.Location.FreshnessWindow)
	}

	bookingService := booking.NewService(bookingRepo, cancellationRepo, eventRepo, txMgr, engine, log)

	reservations := dispatch.NewRegistry()
	matcher := dispatch.NewMatcher(index, bookingService, reservations, dispatch.Options{
		InitialRadiusKm: cfg.Dispatch.InitialRadiusKm,
		MaxRounds:       cfg.Dispatch.MaxRounds,
		CandidateLimit:  cfg.Dispatch.CandidateLimit,
	}, log)
	bookingService.SetDispatcher(matcher)
	bookingService.SetReleaser(reservations)
	bookingService.SetCoalesceWindow(cfg.Dispatch.CoalesceWindow)

	hub := wsHub.NewConnHub(log)
	hubSink := stream.NewHubSink(hub)

	rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "failed to connect to RabbitMQ", err)
		return nil, err
	}

	broker, err := rabbitadapter.NewBookingBroker(rabbitMQ, log)
	if err != nil {
		log.Error(ctx, "failed to declare booking exchange", err)
		return nil, err
	}

	relayService := relay.New(eventRepo, []relay.Sink{broker, hubSink}, cfg.Relay.PollInterval, cfg.Relay.BatchSize, log)

	var archiver *kafka.LocationProducer
	var locationArchiver location.Archiver = nopArchiver{}
	if cfg.Kafka.Brokers != "" {
		archiver = kafka.NewLocationProducer(strings.Split(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic)
		locationArchiver = archiver
	}

	locationService := location.NewService(
		index,
		driverRepo,
		bookingRepo,
		locationArchiver,
		hubSink,
		reservations,
		cfg.Location.FreshnessWindow,
		log,
	)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, 24*time.Hour)

	httpServer, err := server.New(cfg, bookingService, locationService, hub, tokens, log)
	if err != nil {
		log.Error(ctx, "failed to setup http server", err)
		return nil, err
	}

	return &App{
		postgresDB: postgresDB,
		rabbitMQ:   rabbitMQ,
		archiver:   archiver,
		hub:        hub,
		relay:      relayService,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

// Run starts the HTTP server and the outbox relay, then blocks until a
// shutdown signal arrives or a component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	a.httpServer.Run(ctx, errCh)

	go a.relay.Run(ctx)

	defer func() {
		a.close(context.WithoutCancel(ctx))
		a.log.Info(ctx, "dispatch service closed")
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "failed to close RabbitMQ connection", "error", err.Error())
		}
	}

	if a.archiver != nil {
		if err := a.archiver.Close(); err != nil {
			a.log.Warn(ctx, "failed to close kafka producer", "error", err.Error())
		}
	}

	if a.postgresDB != nil {
		a.postgresDB.Close()
	}
}

// nopArchiver drops location reports when no Kafka brokers are
// configured.
type nopArchiver struct{}

func (nopArchiver) Archive(ctx context.Context, loc models.DriverLocation) error { return nil }
