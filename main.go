package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/johnboyce/golf-outing-manager/internal/clickhouse"
	"github.com/johnboyce/golf-outing-manager/internal/config"
	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/foursomes"
	grpcserver "github.com/johnboyce/golf-outing-manager/internal/grpc"
	"github.com/johnboyce/golf-outing-manager/internal/handlers"
	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/metrics"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
	"github.com/johnboyce/golf-outing-manager/internal/roster"
	"github.com/johnboyce/golf-outing-manager/internal/seed"
	"github.com/johnboyce/golf-outing-manager/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger first
	logger.Init()

	cfg := config.Load()
	logger.Info("Starting golf outing manager", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Data store
	store, dbCheck := openStore(ctx, cfg)
	defer store.Close()

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			logger.Error("Failed to read seed file", "error", err, "path", cfg.SeedFile)
			log.Fatalf("Failed to read seed file: %v", err)
		}
		if err := f.Apply(ctx, store); err != nil {
			logger.Error("Failed to apply seed file", "error", err)
			log.Fatalf("Failed to apply seed file: %v", err)
		}
	}

	// Metrics
	rec, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	})
	if err != nil {
		logger.Error("Failed to initialize metrics", "error", err)
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Pub/sub: external NATS when configured, embedded NATS in development,
	// in-process fan-out otherwise.
	events, brokerCheck, closeEvents := openEvents(cfg)
	defer closeEvents()

	// Handicap sync (production with ClickHouse only)
	var chClient *clickhouse.Client
	if cfg.ClickHouse.Addr != "" && cfg.IsProduction() {
		chClient, err = clickhouse.NewClient(ctx, cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.Username, cfg.ClickHouse.Password)
		if err != nil {
			logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouse.Addr)
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer chClient.Close()
		logger.Info("Connected to ClickHouse", "address", cfg.ClickHouse.Addr, "database", cfg.ClickHouse.Database)

		syncer := clickhouse.NewSyncer(chClient, store, events, rec)
		go syncer.Run(ctx, cfg.ClickHouse.SyncInterval)
	} else {
		logger.Info("Skipping handicap sync (ClickHouse not configured)")
	}

	// Draft session
	ctl := session.New(rosterSource(ctx, cfg, store), store, events, rec, newAllocator(cfg))
	if err := ctl.LoadRoster(ctx); err != nil {
		// The roster can be reloaded through the API once the store recovers.
		logger.Warn("Initial roster load failed", "error", err)
	}

	// gRPC
	lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
	if err != nil {
		logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
		log.Fatalf("Failed to listen for gRPC: %v", err)
	}
	grpcServer := grpc.NewServer()
	grpcserver.RegisterDraftServiceServer(grpcServer, grpcserver.NewServer(ctl, events))
	go func() {
		logger.Info("gRPC server starting", "address", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", "error", err)
		}
	}()

	// HTTP
	api := handlers.NewAPIHandlers(ctl, store, events)
	if dbCheck != nil {
		api.AddCheck("database", true, dbCheck)
	}
	if brokerCheck != nil {
		api.AddCheck("nats", true, brokerCheck)
	}
	if chClient != nil {
		api.AddCheck("clickhouse", false, chClient.Ping)
	}

	mux := http.NewServeMux()
	api.Register(mux)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           metrics.Middleware(rec, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(httpServer, "HTTP")

	var metricsServer *http.Server
	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		metricsServer = &http.Server{
			Addr:              ":" + cfg.Metrics.Port,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serve(metricsServer, "metrics")
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics shutdown incomplete", "error", err)
		}
	}
	grpcServer.GracefulStop()
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown incomplete", "error", err)
	}
}

func serve(srv *http.Server, name string) {
	logger.Info("Server starting", "server", name, "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "server", name, "error", err)
		log.Fatal(err)
	}
}

// openStore selects the data store by DB_DRIVER. Default records are seeded
// only when no seed file is configured. The returned check is nil for the
// in-memory store.
func openStore(ctx context.Context, cfg config.Config) (dal.OutingDAL, handlers.Check) {
	seedDefaults := cfg.SeedFile == ""

	switch cfg.DBDriver {
	case "memory":
		logger.Info("Using in-memory data store")
		if seedDefaults {
			return dal.NewMemoryDAL(), nil
		}
		return dal.NewEmptyMemoryDAL(), nil
	case "sqlite":
		s, err := dal.NewSQLiteDAL(cfg.SQLiteFile, seedDefaults)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err, "file", cfg.SQLiteFile)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Using SQLite data store", "file", cfg.SQLiteFile)
		return s, s.DB().PingContext
	case "postgres":
		if cfg.DatabaseURL == "" {
			logger.Error("DATABASE_URL environment variable is required for postgres driver")
			log.Fatal("DATABASE_URL environment variable is required for postgres driver")
		}
		p, err := dal.NewPostgresDAL(ctx, cfg.DatabaseURL, seedDefaults)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Using Postgres data store")
		return p, p.DB().PingContext
	default:
		log.Fatalf("Unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", cfg.DBDriver)
		return nil, nil
	}
}

// openEvents returns the broker handed to the session and transports, a
// connectivity check when NATS is in use, and a close function.
func openEvents(cfg config.Config) (*pubsub.PubSub, handlers.Check, func()) {
	if cfg.NATS.URL != "" {
		nps, err := pubsub.NewNATSPubSub(pubsub.NATSOptions{
			URL:        cfg.NATS.URL,
			Subject:    cfg.NATS.Subject,
			StreamName: pubsub.DefaultStreamName,
		})
		if err != nil {
			logger.Error("Failed to initialize NATS", "error", err)
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		return pubsub.NewWithUpstream(nps), natsCheck(nps.Connected), nps.Close
	}

	if !cfg.IsProduction() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATS.Subject
		enps, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		logger.Info("Embedded NATS server ready", "url", enps.ServerURL())
		return pubsub.NewWithUpstream(enps), natsCheck(enps.Connected), enps.Close
	}

	logger.Info("Using in-process event fan-out")
	return pubsub.New(), nil, func() {}
}

func natsCheck(connected func() bool) handlers.Check {
	return func(context.Context) error {
		if !connected() {
			return errors.New("not connected")
		}
		return nil
	}
}

// rosterSource reads from ROSTER_URL when set and from the local store
// otherwise, retrying transient failures either way.
func rosterSource(ctx context.Context, cfg config.Config, store dal.OutingDAL) roster.Source {
	var src roster.Source = store
	if cfg.Roster.URL != "" {
		src = roster.NewHTTPSource(ctx, roster.HTTPConfig{
			BaseURL:      cfg.Roster.URL,
			ClientID:     cfg.Roster.ClientID,
			ClientSecret: cfg.Roster.ClientSecret,
			TokenURL:     cfg.Roster.TokenURL,
		})
		logger.Info("Using remote roster store", "url", cfg.Roster.URL, "auth", cfg.Roster.RosterAuthEnabled())
	}
	return roster.NewRetryingSource(src, cfg.Roster.RetryAttempts, 0)
}

func newAllocator(cfg config.Config) *foursomes.Allocator {
	if cfg.AllocationSeed != nil {
		logger.Info("Using fixed allocation seed", "seed", *cfg.AllocationSeed)
		return foursomes.NewAllocator(foursomes.WithSeed(*cfg.AllocationSeed))
	}
	return foursomes.NewAllocator()
}
