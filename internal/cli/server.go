package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/app"
	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/auth"
	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/config"
	filestore "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/infra/file"
	pgstore "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/infra/postgres"
	redisstore "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/infra/redis"
	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/logging"
	transport "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the classroom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	store, cleanup, err := buildSnapshotStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	session := app.NewClassSession()
	snap, err := store.Load(ctx)
	if err != nil {
		// A broken snapshot should not keep the class from starting.
		log.Warn("snapshot load failed, starting empty", zap.Error(err))
	} else {
		session.SeedFromSnapshot(snap)
		log.Info("snapshot loaded", zap.Int("students", len(snap.Students)))
	}

	flusher := app.NewFlusher(store, log)
	service := app.NewClassService(session, flusher, log)
	validator := auth.NewValidator(cfg.Auth.TeacherSecret)

	mux := http.NewServeMux()
	transport.NewHandler(service, validator, log).Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived WebSocket connections.
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting classroom server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	flusher.Close()
	return err
}

// buildSnapshotStore picks the persistence backend: postgres when a URL is
// configured, otherwise redis when an address is configured, otherwise the
// flat JSON file.
func buildSnapshotStore(ctx context.Context, cfg config.Config, log *zap.Logger) (app.SnapshotStore, func(), error) {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres snapshot store", zap.String("class", cfg.Class.ID))
		return pgstore.NewSnapshotStore(pool, cfg.Class.ID), pool.Close, nil
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Redis.TTL, 0)
		log.Info("using redis snapshot store", zap.String("addr", cfg.Redis.Addr))
		return redisstore.NewSnapshotStore(client, cfg.Class.ID, ttl), func() { _ = client.Close() }, nil
	}
	log.Info("using file snapshot store", zap.String("path", cfg.Snapshot.Path))
	return filestore.NewSnapshotStore(cfg.Snapshot.Path), func() {}, nil
}
