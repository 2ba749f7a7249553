// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"domme-chat/internal/ai"
	"domme-chat/internal/config"
	"domme-chat/internal/delivery"
	"domme-chat/internal/discord"
	"domme-chat/internal/guard"
	"domme-chat/internal/logging"
	"domme-chat/internal/mind"
	"domme-chat/internal/responder"
	"domme-chat/internal/storage"
	"domme-chat/pkg/jobmgr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	closer := logging.Setup(cfg.LogPath, logging.Options{})
	defer closer.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	log.Println("[INFO] Starting chat bot...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	jobs := jobmgr.NewManager(func(msg string) { log.Println("[JOB]", msg) })
	defer jobs.StopAll()
	if err := jobs.Start(ctx, "cooldown-cleaner", func(ctx context.Context) error {
		storage.RunCooldownCleaner(ctx, store, time.Minute)
		return nil
	}); err != nil {
		log.Println("[ERR] Failed to start cooldown cleaner:", err)
	}

	provider, err := ai.NewMultiProvider(cfg.AIProviders)
	if err != nil {
		log.Fatal(err)
	}
	client := ai.NewClient(provider, cfg.AIPromptPath, cfg.GuildPromptDir)

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	gateway := discord.NewGateway(dg)

	seed := time.Now().UnixNano()
	engine := delivery.NewEngine(gateway, delivery.RealClock{}, rand.New(rand.NewSource(seed)), cfg.Delivery())
	decider := mind.NewController(cfg.Decision(), client, store, cfg.Limiter(), rand.New(rand.NewSource(seed+1)))

	rcfg := responder.DefaultConfig()
	rcfg.HistoryLimit = cfg.Chat.HistoryLimit
	rcfg.ApologyText = cfg.Chat.ApologyText

	r := responder.New(responder.Deps{
		Platform:  gateway,
		Settings:  store,
		Cooldowns: store,
		Generator: client,
		Decider:   decider,
		Engine:    engine,
		Guard:     guard.New(),
	}, rcfg)

	bot := discord.NewBot(dg, r, cfg.BotAliases)
	if err := bot.Run(ctx); err != nil {
		log.Println("[ERR] Discord bot error:", err)
		return
	}
	log.Println("[INFO] Discord bot exited cleanly")
}
