package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/logger"
)

// WrapWithLogging wraps a command handler with start, completion and timeout logging.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return run(logger.AttrCommand, "Command", name, e.User(), e.GuildID(), e.ChannelID(), func() error { return h(e) })
	}
}

// WrapComponentWithLogging is WrapWithLogging for button and select interactions.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return run(logger.AttrComponent, "Component interaction", name, e.User(), e.GuildID(), e.ChannelID(), func() error { return h(e) })
	}
}

func run(logType, label, name string, user discord.User, guildID *snowflake.ID, channelID snowflake.ID, fn func() error) error {
	start := time.Now()
	attrs := []any{
		slog.String("name", name),
		slog.String("user_id", user.ID.String()),
		slog.String("user_name", user.Username),
	}
	slog.Debug(label+" started", append([]any{slog.String("type", logType)}, append(attrs,
		slog.String("guild_id", guild(guildID)),
		slog.String("channel_id", channelID.String()),
	)...)...)

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		logger.LogInteraction(logType, label, time.Since(start), err, attrs...)
		return err

	case <-time.After(config.CommandExecutionTimeout):
		err := fmt.Errorf("%s %s timed out after %s", label, name, config.CommandExecutionTimeout)
		logger.LogError(logType, label+" timed out", err, append(attrs,
			slog.String("status", "timeout"),
			slog.Duration("timeout", config.CommandExecutionTimeout),
		)...)
		return err
	}
}

func guild(id *snowflake.ID) string {
	if id == nil {
		return "dm"
	}
	return id.String()
}
