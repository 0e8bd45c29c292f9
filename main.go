package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/iufi-bot/iufi/iufi"
	"github.com/iufi-bot/iufi/iufi/assets"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/commands"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/database"
	"github.com/iufi-bot/iufi/iufi/database/repositories"
	"github.com/iufi-bot/iufi/iufi/economy/claim"
	"github.com/iufi-bot/iufi/iufi/logger"
	"github.com/iufi-bot/iufi/iufi/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler()))

	cfg, err := iufi.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	logOpts := []logger.Option{logger.WithLevel(cfg.Log.Level)}
	if cfg.Log.NoColor {
		logOpts = append(logOpts, logger.WithColor(false))
	}
	slog.SetDefault(slog.New(logger.NewHandler(logOpts...)))

	logger.LogSystem("Starting IUFI",
		slog.String("version", version),
		slog.String("commit", commit),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.LogError(logger.AttrDB, "Database connection failed", err,
			slog.Duration("attempted_for", time.Since(dbStartTime)),
		)
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		logger.LogError(logger.AttrDB, "Failed to initialize database schema", err)
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("type", logger.AttrDB),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)),
	)

	b := iufi.New(*cfg, version, commit)
	b.DB = db
	b.Store = repositories.NewStore(db.BunDB(), config.UserCacheSize)

	switch cfg.Assets.Source {
	case iufi.AssetSourceSpaces:
		src, err := assets.NewSpacesSource(ctx, cfg.Spaces, cfg.Assets.Extensions)
		if err != nil {
			logger.LogError(logger.AttrSystem, "Failed to create spaces asset source", err)
			os.Exit(-1)
		}
		b.Assets = src
	default:
		b.Assets = assets.NewLocalSource(cfg.Assets.Root, cfg.Assets.Extensions)
	}

	// Validate already checked both.
	rates, _ := cfg.Pool.Rates()
	prices, _ := cfg.Pool.TierPrices()
	b.Pool, err = cardpool.New(cardpool.WithRates(rates), cardpool.WithPrices(prices))
	if err != nil {
		logger.LogError(logger.AttrPool, "Failed to create card pool", err)
		os.Exit(-1)
	}

	stats, err := services.NewCardLoader(b.Pool, b.Store, b.Assets).Load(ctx)
	if err != nil {
		logger.LogError(logger.AttrPool, "Failed to load cards", err)
		os.Exit(-1)
	}
	logger.LogPool("Cards loaded",
		slog.Int("assets", stats.Assets),
		slog.Int("loaded", stats.Loaded),
		slog.Int("created", stats.Created),
		slog.Int("skipped", stats.Skipped),
		slog.Int("orphaned", stats.Orphaned),
		slog.Int("frames", stats.Frames),
		slog.Duration("took", stats.Took),
	)
	if err := b.Pool.CheckInvariants(); err != nil {
		logger.LogError(logger.AttrPool, "Card pool is inconsistent after loading", err)
		os.Exit(-1)
	}
	b.Pool.LogStats()

	b.Renderer = cardpool.NewRenderer(b.Assets, cfg.Pool.RenderConcurrency)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	b.Claims = claim.NewManager(b.Pool, b.Store, cfg.Claim.ManagerConfig(cfg.Pool.RollAmount))
	b.Claims.StartCleanupRoutine(runCtx)
	b.Cards = services.NewCardOperationsService(b.Pool, b.Store, b.Claims, cfg.Claim.TradeCooldown.Duration)

	h := handler.New()
	commands.Register(h, b)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		logger.LogError(logger.AttrSystem, "Failed to setup bot", err,
			slog.String("error_details", fmt.Sprintf("%+v", err)),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		logger.LogSystem("Syncing commands",
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			logger.LogError(logger.AttrSystem, "Failed to sync commands", err)
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		logger.LogError(logger.AttrSystem, "Failed to open gateway", err)
		os.Exit(-1)
	}

	logger.LogSystem("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	logger.LogSystem("Shutting down bot...")
}
