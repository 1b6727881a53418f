// Command streamlined is the chat streaming server daemon.
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/streamlinechat/streamline/internal/bootstrap"
	"github.com/streamlinechat/streamline/internal/config"
	"github.com/streamlinechat/streamline/internal/httpserver"
	"github.com/streamlinechat/streamline/internal/logging"
	"github.com/streamlinechat/streamline/internal/version"
)

func main() {
	// Optional .env for local development; real environments set variables
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	const maxLogBytes = int64(100 * 1024 * 1024)
	if logTarget := strings.TrimSpace(cfg.LogFileServer); logTarget != "" {
		rot, err := logging.NewRotatingWriter(logTarget, maxLogBytes)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		// Mirror to stdout as well for foreground runs
		log.SetOutput(io.MultiWriter(os.Stdout, rot))
		defer rot.Close()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix("[streamlined] ")
	log.Printf("streamlined %s", version.FullInfo())

	ctx := context.Background()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatalf("open conversation store: %v", err)
	}
	defer store.Close()
	log.Printf("conversation store: %s", cfg.StoreBackend)

	profile, err := bootstrap.ResolveProfile(cfg)
	if err != nil {
		log.Fatalf("resolve model profile: %v", err)
	}

	provider, err := bootstrap.BuildProvider(ctx, cfg, profile)
	if err != nil {
		log.Fatalf("init %s provider: %v", profile.Provider, err)
	}
	defer provider.Close()
	log.Printf("upstream provider: %s model=%s", profile.Provider, profile.Model)

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = profile.ResolvedSystemPrompt()
	}

	srv, err := httpserver.New(httpserver.Config{
		Provider:     provider,
		SystemPrompt: systemPrompt,
		Store:        store,
		Logger:       log.Default(),
		Debug:        strings.EqualFold(cfg.LogLevel, "debug"),
	})
	if err != nil {
		log.Fatalf("init http server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
		// No WriteTimeout: chat responses are long-lived event streams and a
		// write deadline would sever them mid-answer.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("streamline server listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
