// Package main provides the entry point for the OllamaBot HTTP server,
// the thin surface SPEC_FULL.md §2 describes exposing the Orchestrator's
// operations to external front-ends (the terminal/GUI/IDE consumers
// named in spec.md's Non-goals).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	port    = flag.Int("port", 8080, "Server port")
	version = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ollamabot-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx := context.Background()
	orch, store, watcher, err := bootstrap(ctx)
	if err != nil {
		log.Fatalf("ollamabot-server: %v", err)
	}
	defer watcher.Close()

	cfg := defaultConfig()
	cfg.Port = *port
	srv := newServer(cfg, orch, store)

	go func() {
		log.Printf("ollamabot-server listening on http://localhost:%d", *port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ollamabot-server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("ollamabot-server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ollamabot-server: shutdown error: %v", err)
	}
}
