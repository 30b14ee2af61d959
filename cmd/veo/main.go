package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
	"receptionist/internal/infra/credentials"
	"receptionist/internal/providers/genai"
	"receptionist/internal/providers/video"
	"receptionist/internal/storage"
)

func main() {
	_ = godotenv.Load()

	var (
		imagePath string
		prompt    string
		aspect    string
		outPath   string
		timeout   time.Duration
	)
	flag.StringVar(&imagePath, "image", "", "reference image to animate (required)")
	flag.StringVar(&prompt, "prompt", "", "optional prompt (defaults to \""+domain.DefaultVideoPrompt+"\")")
	flag.StringVar(&aspect, "aspect", "16:9", "aspect ratio; anything other than 9:16-like ratios becomes 16:9")
	flag.StringVar(&outPath, "out", "", "output file (defaults to a new key under STORAGE_PATH/videos)")
	flag.DurationVar(&timeout, "timeout", 0, "give up after this long (defaults to VEO_TIMEOUT_SECONDS)")
	flag.Parse()

	if strings.TrimSpace(imagePath) == "" {
		fmt.Fprintln(os.Stderr, "-image is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "veo").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read image")
	}
	mime := strings.SplitN(http.DetectContentType(data), ";", 2)[0]

	apiKey, err := credentials.LookupGeminiAPIKey(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("load gemini api key")
	}
	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.ProviderHTTPTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create gemini client")
	}

	if timeout <= 0 {
		timeout = cfg.VeoTimeout
	}
	jobs := video.NewJobClient(
		video.NewVeoBackend(client, video.VeoOptions{Model: cfg.VeoModel, Resolution: cfg.VeoResolution}),
		video.Options{PollInterval: cfg.VeoPollInterval, Timeout: timeout, Logger: &logger},
	)

	req := domain.NewGenerationRequest(prompt, domain.ReferenceImage{Data: data, MIMEType: mime}, aspect)
	logger.Info().Str("image", imagePath).Str("aspect_ratio", string(req.AspectRatio)).Msg("submitting video job")

	start := time.Now()
	result, err := jobs.Generate(ctx, req)
	if err != nil {
		exitFor(logger, err)
	}
	clip, clipMIME, err := jobs.Fetch(ctx, result)
	if err != nil {
		exitFor(logger, err)
	}

	written, err := write(ctx, cfg, outPath, clipMIME, clip)
	if err != nil {
		logger.Fatal().Err(err).Msg("write video")
	}
	logger.Info().Str("path", written).Int("bytes", len(clip)).Dur("elapsed", time.Since(start)).Msg("video ready")
	fmt.Println(written)
}

func write(ctx context.Context, cfg *infra.Config, outPath, mime string, data []byte) (string, error) {
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return "", err
		}
		return outPath, os.WriteFile(outPath, data, 0o644)
	}
	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return "", err
	}
	key, err := store.Write(ctx, storage.NewKey("videos", mime, time.Now()), data)
	if err != nil {
		return "", err
	}
	return filepath.Join(store.BasePath(), filepath.FromSlash(key)), nil
}

// exitFor logs err and exits with a code per failure kind so scripts can
// tell a rejected job from a slow one.
func exitFor(logger infra.Logger, err error) {
	code := 1
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMissingAPIKey):
		code = 2
	case errors.Is(err, domain.ErrTimeout):
		code = 3
	case errors.Is(err, domain.ErrNetwork):
		code = 4
	}
	logger.Error().Err(err).Int("exit_code", code).Msg("video generation failed")
	os.Exit(code)
}
