package iufi

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/iufi-bot/iufi/iufi/assets"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/database"
	"github.com/iufi-bot/iufi/iufi/economy/claim"
	"github.com/iufi-bot/iufi/iufi/interfaces"
	"github.com/iufi-bot/iufi/iufi/logger"
	"github.com/iufi-bot/iufi/iufi/services"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

// Bot holds the long lived services every command handler works with.
type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB       *database.DB
	Store    interfaces.Store
	Assets   assets.Source
	Pool     *cardpool.Pool
	Renderer *cardpool.Renderer
	Claims   *claim.Manager
	Cards    *services.CardOperationsService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("IUFI is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.Int("cards", b.Pool.Len()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithListeningActivity("/roll"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		logger.LogError(logger.AttrSystem, "Failed to set presence", err)
	}
}
