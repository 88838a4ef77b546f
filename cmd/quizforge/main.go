package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	extractadapter "github.com/ericfisherdev/quizforge/internal/adapter/driven/extract"
	githubadapter "github.com/ericfisherdev/quizforge/internal/adapter/driven/github"
	openaiadapter "github.com/ericfisherdev/quizforge/internal/adapter/driven/openai"
	sqliteadapter "github.com/ericfisherdev/quizforge/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/quizforge/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/quizforge/internal/adapter/driving/web"
	"github.com/ericfisherdev/quizforge/internal/application"
	"github.com/ericfisherdev/quizforge/internal/config"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"model", cfg.Model,
		"sweep_interval", cfg.SweepInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	encryptionKey, err := cfg.EncryptionKey()
	if err != nil {
		return err
	}
	quizStore := sqliteadapter.NewQuizRepo(db)
	documentStore := sqliteadapter.NewDocumentRepo(db)
	usageStore := sqliteadapter.NewUsageRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, encryptionKey)

	// 6. Create model client (may be nil if no credentials configured).
	// Resolve credentials: a stored API key takes priority over env vars.
	apiKey := cfg.OpenAIAPIKey
	if storedKey, err := credentialStore.Get(ctx, "openai"); err == nil && storedKey != "" {
		apiKey = storedKey
	}

	var modelClient driven.ChatModel
	var fallbackClient driven.ChatModel
	if cfg.OpenAIAPIKey != "" {
		fallbackClient = openaiadapter.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model)
	}
	if apiKey != "" {
		modelClient = openaiadapter.NewClient(cfg.OpenAIBaseURL, apiKey, cfg.Model)
		slog.Info("model client created", "model", cfg.Model)
	} else {
		slog.Info("no model API key configured, generation disabled until a key is provided via the GUI")
	}

	// 6b. Create ModelClientProvider for hot-swap.
	provider := application.NewModelClientProvider(modelClient, cfg.Model)

	// 7. Create and start the generation worker.
	generationSvc := application.NewGenerationService(
		provider,
		quizStore,
		documentStore,
		usageStore,
		cfg.Temperature,
		cfg.SweepInterval,
	)
	go generationSvc.Start(ctx)

	// 7b. Create quiz service. The GitHub fetcher works unauthenticated for
	// public repositories; a token raises the rate limit and adds private
	// repository access.
	fetcher := githubadapter.NewSourceClient(cfg.GitHubToken)
	quizSvc := application.NewQuizService(
		quizStore,
		documentStore,
		usageStore,
		extractadapter.New(),
		fetcher,
		generationSvc,
	)

	// 7c. Create health service.
	healthSvc := application.NewHealthService(quizStore, provider)

	newModelClient := func(key string) driven.ChatModel {
		return openaiadapter.NewClient(cfg.OpenAIBaseURL, key, cfg.Model)
	}

	// 7.5. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(
		quizSvc,
		healthSvc,
		credentialStore,
		provider,
		newModelClient,
		fallbackClient,
		cfg.Model,
		cfg.MaxUploadBytes,
		cfg.DefaultQuestions,
		slog.Default(),
	)
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 7.6. Create web handler and register GUI routes.
	renderer, err := webhandler.NewRenderer()
	if err != nil {
		return err
	}
	webHandler := webhandler.NewHandler(
		quizSvc,
		healthSvc,
		credentialStore,
		provider,
		renderer,
		newModelClient,
		fallbackClient,
		cfg.Model,
		cfg.MaxUploadBytes,
		cfg.DefaultQuestions,
		slog.Default(),
	)
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("quizforge started",
		"listen_addr", cfg.ListenAddr,
		"model", cfg.Model,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
