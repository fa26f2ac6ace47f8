package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/app"
	"github.com/gmpapad/phronesis-engine/internal/config"
	"github.com/gmpapad/phronesis-engine/internal/infra/fs"
	"github.com/gmpapad/phronesis-engine/internal/infra/memory"
	"github.com/gmpapad/phronesis-engine/internal/infra/postgres"
	rediscontent "github.com/gmpapad/phronesis-engine/internal/infra/redis"
	transport "github.com/gmpapad/phronesis-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the engine.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	contentDir := cfg.Content.Dir
	if contentDir == "" {
		contentDir = "content"
	}
	fsLoader := fs.NewLoader(contentDir, log)

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var contentRepo app.ContentRepository
	switch {
	case pool != nil && redisClient != nil:
		contentRepo = rediscontent.NewContentRepository(redisClient, postgres.NewDocumentLoader(pool, log), contentTTL)
	case pool != nil:
		contentRepo = memory.NewContentRepository(postgres.NewDocumentLoader(pool, log), contentTTL)
	case redisClient != nil:
		contentRepo = rediscontent.NewContentRepository(redisClient, fsLoader, contentTTL)
	default:
		contentRepo = memory.NewContentRepository(fsLoader, contentTTL)
	}

	var (
		progressStore app.ProgressStore
		artifactStore app.ArtifactStore
		reviewStore   app.ReviewStore
		eventStore    app.EventStore
		docs          app.DocumentWriter
	)
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		progressStore = postgres.NewProgressStore(db)
		artifactStore = postgres.NewArtifactStore(db)
		reviewStore = postgres.NewReviewStore(db)
		eventStore = postgres.NewEventStore(db)
		docs = postgres.NewDocumentStore(db)
	} else {
		artifacts := memory.NewArtifactStore()
		progressStore = memory.NewProgressStore()
		artifactStore = artifacts
		reviewStore = memory.NewReviewStore(artifacts)
		eventStore = memory.NewEventStore()
		docs = fsLoader
	}

	recorder := app.NewRecorder(eventStore, log)
	tracker := app.NewTracker(progressStore, recorder)
	grader := app.NewGrader(contentRepo, tracker, recorder)
	assigner := app.NewAssigner(artifactStore, reviewStore, recorder)

	handler := transport.NewHandler(contentRepo, tracker, grader, assigner, recorder, docs, log)
	feed := transport.NewEventsFeed(recorder, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/events", feed.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infow("starting engine", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Infow("shutting down")
	case <-ctx.Done():
		log.Infow("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
