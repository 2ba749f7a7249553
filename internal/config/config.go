// Package config loads settings from defaults, an optional YAML tuning file,
// a .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"domme-chat/internal/delivery"
	"domme-chat/internal/mind"
)

type Config struct {
	DiscordToken   string   `yaml:"-" env:"DISCORD_TOKEN"`
	StoragePath    string   `yaml:"storage_path" env:"STORAGE_PATH"`
	LogPath        string   `yaml:"log_path" env:"LOG_PATH"`
	AIProviders    []string `yaml:"ai_providers" env:"AI_PROVIDERS"`
	AIPromptPath   string   `yaml:"ai_prompt_path" env:"AI_PROMPT_PATH"`
	GuildPromptDir string   `yaml:"guild_prompt_dir" env:"AI_GUILD_PROMPT_DIR"`
	DenyUserIDs    []string `yaml:"deny_user_ids" env:"DENY_USER_IDS"`
	BotAliases     []string `yaml:"bot_aliases" env:"BOT_ALIASES"`

	Chat Chat `yaml:"chat" envPrefix:"CHAT_"`
}

// Chat tunes admission and delivery.
type Chat struct {
	TypingSpeed        float64       `yaml:"typing_speed" env:"TYPING_SPEED"`
	MinTypingDelay     time.Duration `yaml:"min_typing_delay" env:"MIN_TYPING_DELAY"`
	MaxTypingDelay     time.Duration `yaml:"max_typing_delay" env:"MAX_TYPING_DELAY"`
	Jitter             float64       `yaml:"jitter" env:"JITTER"`
	LongPause          time.Duration `yaml:"long_pause" env:"LONG_PAUSE"`
	TypoChance         float64       `yaml:"typo_chance" env:"TYPO_CHANCE"`
	ChunkLimit         int           `yaml:"chunk_limit" env:"CHUNK_LIMIT"`
	FallbackText       string        `yaml:"fallback_text" env:"FALLBACK_TEXT"`
	ApologyText        string        `yaml:"apology_text" env:"APOLOGY_TEXT"`
	HistoryLimit       int           `yaml:"history_limit" env:"HISTORY_LIMIT"`
	MinRelevance       float64       `yaml:"min_relevance" env:"MIN_RELEVANCE"`
	SaturateRelevance  float64       `yaml:"saturate_relevance" env:"SATURATE_RELEVANCE"`
	NeutralProbability float64       `yaml:"neutral_probability" env:"NEUTRAL_PROBABILITY"`
	LLMPerMinute       int           `yaml:"llm_per_minute" env:"LLM_PER_MINUTE"`
	LLMPerHour         int           `yaml:"llm_per_hour" env:"LLM_PER_HOUR"`
	LLMGuildGap        time.Duration `yaml:"llm_guild_gap" env:"LLM_GUILD_GAP"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := delivery.DefaultConfig()
	m := mind.DefaultDecisionConfig()
	return Config{
		StoragePath:    "datastore.json",
		AIProviders:    []string{"g4f:gpt-oss-120b", "pollinations"},
		AIPromptPath:   "data/mind/core/identity.md",
		GuildPromptDir: "data",
		Chat: Chat{
			TypingSpeed:        d.TypingSpeed,
			MinTypingDelay:     d.MinTypingDelay,
			MaxTypingDelay:     d.MaxTypingDelay,
			Jitter:             d.Jitter,
			LongPause:          d.LongPause,
			TypoChance:         d.TypoChance,
			ChunkLimit:         d.ChunkLimit,
			FallbackText:       d.FallbackText,
			ApologyText:        "Something broke on my side. Try me again in a bit.",
			HistoryLimit:       20,
			MinRelevance:       m.MinRelevance,
			SaturateRelevance:  m.SaturateRelevance,
			NeutralProbability: m.NeutralProbability,
			LLMPerMinute:       12,
			LLMPerHour:         120,
			LLMGuildGap:        5 * time.Second,
		},
	}
}

// Load builds the configuration. The YAML file named by CHAT_CONFIG_PATH is
// optional; environment variables always win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg := Default()
	if path := os.Getenv("CHAT_CONFIG_PATH"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[WARN] config file %s not found, using defaults", path)
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks what the bot process needs to start.
func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	if len(c.AIProviders) == 0 {
		return errors.New("AI_PROVIDERS is empty")
	}
	if c.Chat.ChunkLimit > 2000 {
		return fmt.Errorf("CHAT_CHUNK_LIMIT %d exceeds the platform limit of 2000", c.Chat.ChunkLimit)
	}
	return nil
}

// Delivery maps the chat tuning onto the delivery engine's config.
func (c Config) Delivery() delivery.Config {
	d := delivery.DefaultConfig()
	d.TypingSpeed = c.Chat.TypingSpeed
	d.MinTypingDelay = c.Chat.MinTypingDelay
	d.MaxTypingDelay = c.Chat.MaxTypingDelay
	d.Jitter = c.Chat.Jitter
	d.LongPause = c.Chat.LongPause
	d.TypoChance = c.Chat.TypoChance
	d.ChunkLimit = c.Chat.ChunkLimit
	d.FallbackText = c.Chat.FallbackText
	return d
}

// Decision maps the chat tuning onto the admission thresholds.
func (c Config) Decision() mind.DecisionConfig {
	return mind.DecisionConfig{
		DenyAuthorIDs:      c.DenyUserIDs,
		MinRelevance:       c.Chat.MinRelevance,
		SaturateRelevance:  c.Chat.SaturateRelevance,
		NeutralProbability: c.Chat.NeutralProbability,
	}
}

// Limiter builds the relevance-scoring budget.
func (c Config) Limiter() *mind.LLMRateLimiter {
	return mind.NewLLMLimiter(c.Chat.LLMPerMinute, c.Chat.LLMPerHour, c.Chat.LLMGuildGap)
}
