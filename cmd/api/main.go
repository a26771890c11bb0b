package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/haley/backend/internal/config"
	"github.com/zhouzirui/haley/backend/internal/handler"
	"github.com/zhouzirui/haley/backend/internal/handler/debug"
	"github.com/zhouzirui/haley/backend/internal/handler/voice"
	"github.com/zhouzirui/haley/backend/internal/model/persona"
	"github.com/zhouzirui/haley/backend/internal/service/ai"
	"github.com/zhouzirui/haley/backend/internal/service/chat"
	"github.com/zhouzirui/haley/backend/internal/service/speech"
	"github.com/zhouzirui/haley/backend/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	for _, w := range cfg.Warnings() {
		log.Printf("warning: %s", w)
	}

	pages, err := web.Templates()
	if err != nil {
		log.Fatalf("failed to parse page templates: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	assistant, ok := personaStore.FindByID(persona.DefaultID)
	if !ok {
		log.Fatalf("persona %q not found", persona.DefaultID)
	}

	var relay http.Handler
	switch cfg.Relay.Mode {
	case config.RelayModePipeline:
		relay = newPipelineRelay(ctx, cfg, assistant)
	default:
		relay = voice.NewEVIHandler(cfg.Hume, nil)
		log.Printf("EVI relay enabled, upstream %s", cfg.Hume.URL)
	}

	router := handler.NewRouter(cfg, pages, personaStore, relay, newProber(ctx, cfg))

	startServer(ctx, cfg.Server, router)
}

// newPipelineRelay builds the LLM + TTS relay. A model that fails to
// initialise leaves the relay running with fallback replies.
func newPipelineRelay(ctx context.Context, cfg *config.Config, assistant persona.Persona) http.Handler {
	var responder voice.Responder
	if cfg.AI.Enabled() {
		chatModel, err := ai.NewChatModel(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize %s chat model: %v", cfg.AI.Provider, err)
		} else if svc, err := ai.NewService(ctx, chatModel, assistant, cfg.AI.HistoryLimit); err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
		} else {
			responder = svc
			log.Printf("AI service initialized with provider %s", cfg.AI.Provider)
		}
	}
	if responder == nil {
		log.Println("continuing without AI functionality, replies will use the fallback text")
	}

	voiceID := cfg.TTS.Voice
	if assistant.VoiceID != "" {
		voiceID = assistant.VoiceID
	}

	return voice.NewPipelineHandler(chat.NewService(), responder, speech.NewClient(cfg.TTS), voiceID)
}

func newProber(ctx context.Context, cfg *config.Config) debug.Prober {
	if !cfg.Debug.Enabled || cfg.AI.GeminiAPIKey == "" {
		return nil
	}
	client, err := ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey)
	if err != nil {
		log.Printf("warning: debug endpoint disabled: %v", err)
		return nil
	}
	log.Println("debug endpoint enabled at /debug")
	return ai.NewProber(client)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Haley backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
