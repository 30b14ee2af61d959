package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"receptionist/internal/http/handlers"
	httpapi "receptionist/internal/http/httpapi"
	"receptionist/internal/infra"
	"receptionist/internal/infra/credentials"
	"receptionist/internal/infra/geoip"
	"receptionist/internal/providers/analysis"
	"receptionist/internal/providers/chat"
	"receptionist/internal/providers/genai"
	"receptionist/internal/providers/image"
	"receptionist/internal/providers/video"
	"receptionist/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey, err := credentials.LookupGeminiAPIKey(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load gemini api key")
	}
	if apiKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; generation endpoints will answer 503")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.ProviderHTTPTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	jobs := video.NewJobClient(
		video.NewVeoBackend(client, video.VeoOptions{Model: cfg.VeoModel, Resolution: cfg.VeoResolution}),
		video.Options{PollInterval: cfg.VeoPollInterval, Timeout: cfg.VeoTimeout, Logger: &logger},
	)

	app := &handlers.App{
		Logger: &logger,
		Assistant: chat.NewAssistant(client, chat.Options{
			FastModel:      cfg.ChatFastModel,
			ThinkingModel:  cfg.ChatThinkingModel,
			ThinkingBudget: cfg.ChatThinkingBudget,
			Logger:         &logger,
		}),
		Analyzer:       analysis.NewAnalyzer(client, cfg.AnalysisModel, &logger),
		Images:         image.NewGeminiGenerator(client, cfg.ImageModel, cfg.ImageSize, &logger),
		Videos:         jobs,
		Store:          store,
		StorageBaseURL: cfg.StorageBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		VideoTimeout:   cfg.VeoTimeout,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticPath:      cfg.StorageBaseURL,
		StaticDir:       store.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Str("veo_model", cfg.VeoModel).Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
