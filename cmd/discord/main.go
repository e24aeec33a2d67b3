package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gatebot/internal/command"
	"gatebot/internal/config"
	"gatebot/internal/core"
	"gatebot/internal/discord"
	"gatebot/internal/retention"
	"gatebot/internal/storage"
)

func main() {
	log.Println("[INFO] Starting gatebot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}

	sys := core.NewSystem(cfg, store, command.All())
	if err := sys.Init(); err != nil {
		log.Fatal(err)
	}
	defer sys.Shutdown()

	sweeper := retention.NewSweeper(store, cfg.RetentionMaxAge, cfg.RetentionInterval)
	go sweeper.Run(ctx)

	bot := discord.NewBot(cfg, sys)
	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] gatebot exited cleanly")
}
