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

	"sanad-exam-service/internal/app"
	"sanad-exam-service/internal/config"
	"sanad-exam-service/internal/domain"
	"sanad-exam-service/internal/infra/memory"
	pgstore "sanad-exam-service/internal/infra/postgres"
	redisstore "sanad-exam-service/internal/infra/redis"
	"sanad-exam-service/internal/logging"
	"sanad-exam-service/internal/refdata"
	transport "sanad-exam-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the grading service",
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

	var store app.DocumentStore
	if redisClient != nil {
		store = redisstore.NewDocStore(redisClient)
	} else {
		store = memory.NewDocStore()
	}

	testsTTL := config.TTLDuration(cfg.Tests.TTL, 10*time.Minute)
	var loader memory.TestLoader = memory.NewStaticTestLoader(sampleTests())
	if pool != nil {
		loader = pgstore.NewTestLoader(pool)
	}
	var tests app.TestRepository
	if redisClient != nil {
		tests = redisstore.NewTestCache(redisClient, loader, testsTTL)
	} else {
		tests = memory.NewTestRepository(loader, testsTTL)
	}

	refTTL := config.TTLDuration(cfg.RefData.TTL, 10*time.Minute)
	refCache := refdata.NewCache(refdata.NewDocLoader(store), refTTL)

	opts := []app.Option{
		app.WithReviewerPIN(cfg.Review.PIN),
		app.WithLogger(log),
	}
	if pool != nil {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		opts = append(opts, app.WithReportSink(pgstore.NewAnswerSink(db)))
	}
	service := app.NewReviewService(store, tests, opts...)

	handler := transport.NewHandler(service, refCache, log)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/review", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting exam service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleTests provides minimal content for the no-Postgres dev path.
func sampleTests() map[string]domain.Test {
	return map[string]domain.Test{
		"test-1": {
			ID:    "test-1",
			Title: "أربعون النووية - اختبار تجريبي",
			Questions: domain.NewQuestionSet([]domain.Question{
				{
					ID:     "q1",
					Type:   domain.MultipleChoice,
					Text:   "كم عدد أركان الإسلام؟",
					Points: 4,
					Options: []domain.Option{
						{Text: "أربعة", IsCorrect: false},
						{Text: "خمسة", IsCorrect: true},
					},
				},
				{
					ID:              "q2",
					Type:            domain.NarratorReference,
					Text:            "من راوي حديث إنما الأعمال بالنيات؟",
					Points:          4,
					CorrectNarrator: "عمر بن الخطاب",
				},
			}),
		},
	}
}
