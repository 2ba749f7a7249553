package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"domme-chat/internal/chat"
)

// Handler receives every guild message the bot sees.
type Handler interface {
	HandleMessage(ctx context.Context, msg chat.InboundMessage)
	SetIdentity(id chat.BotIdentity)
}

// Bot is a Discord bot
type Bot struct {
	dg      *discordgo.Session
	handler Handler
	aliases []string

	runCtx context.Context
}

// NewBot wraps an unopened session. The handler is called from discordgo's event goroutines.
func NewBot(dg *discordgo.Session, handler Handler, aliases []string) *Bot {
	return &Bot{dg: dg, handler: handler, aliases: aliases, runCtx: context.Background()}
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.runCtx = ctx
	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onGuildCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")
	return nil
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		log.Println("[WARN] Ready event without a user")
		return
	}
	b.handler.SetIdentity(toIdentity(r.User, b.aliases))
	log.Printf("[INFO] ✅ Discord bot %v is running in %d guilds.", r.User.Username, len(r.Guilds))
}

// onMessageCreate is called when a message is created
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}
	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if m.Author.ID == botID {
		return
	}
	b.handler.HandleMessage(b.runCtx, toInbound(m.Message, botID))
}

// onGuildCreate is called when a guild is created
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("[INFO] Bot available in guild: %s (%s)", g.Guild.ID, g.Guild.Name)
}
