package utils

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/database/repositories"
	"github.com/iufi-bot/iufi/iufi/economy/claim"
	"github.com/iufi-bot/iufi/iufi/services"
)

// ResponseHandler provides standardized response methods for commands and components
type ResponseHandler struct{}

var EH = &ResponseHandler{}

// ErrorType represents different categories of errors for consistent handling
type ErrorType int

const (
	// UserError - invalid input, bad tag, unknown frame
	UserError ErrorType = iota
	// SystemError - database or asset failures
	SystemError
	// NotFoundError - the card does not exist
	NotFoundError
	// PermissionError - the card belongs to someone else
	PermissionError
	// BusinessLogicError - cooldowns, empty tiers, missing candies
	BusinessLogicError
)

func (t ErrorType) prefix() string {
	switch t {
	case UserError:
		return "⚠️"
	case SystemError:
		return "🔧"
	case NotFoundError:
		return "🔍"
	case PermissionError:
		return "🚫"
	case BusinessLogicError:
		return "⏰"
	default:
		return "❌"
	}
}

func (t ErrorType) color() int {
	switch t {
	case UserError, BusinessLogicError:
		return config.WarningColor
	case NotFoundError:
		return config.InfoColor
	default:
		return config.ErrorColor
	}
}

var (
	userErrors = []error{
		cardpool.ErrDuplicatedTag,
		cardpool.ErrInvalidTag,
		cardpool.ErrAlreadyTagged,
		cardpool.ErrUnknownFrame,
		cardpool.ErrUnknownTier,
		services.ErrNotTagged,
		services.ErrNoCards,
		services.ErrMaxStars,
		services.ErrTierMismatch,
		services.ErrUpgradeSelf,
		services.ErrSelfTrade,
		services.ErrInvalidPrice,
		claim.ErrInvalidSlot,
	}
	businessErrors = []error{
		cardpool.ErrTierExhausted,
		cardpool.ErrNoCardsAvailable,
		services.ErrInsufficientCandies,
		claim.ErrUserBusy,
	}
)

// Classify maps a domain error to the category it is shown as.
func Classify(err error) ErrorType {
	var (
		cooldown      *claim.CooldownError
		tradeCooldown *services.TradeCooldownError
	)
	switch {
	case errors.Is(err, cardpool.ErrCardNotFound), repositories.IsNotFound(err):
		return NotFoundError
	case errors.Is(err, services.ErrNotOwner):
		return PermissionError
	case errors.As(err, &cooldown), errors.As(err, &tradeCooldown):
		return BusinessLogicError
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return BusinessLogicError
		}
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return UserError
		}
	}
	return SystemError
}

// UserMessage is the text shown for err. System errors are not spelled out.
func UserMessage(err error) string {
	var imgErr *cardpool.ImageLoadError
	if errors.As(err, &imgErr) {
		return fmt.Sprintf("The image for card `%s` could not be loaded right now. Please try again later.", imgErr.CardID)
	}
	if Classify(err) == SystemError {
		return "Something went wrong on our side. Please try again later."
	}
	return err.Error()
}

func errorEmbed(t ErrorType, message string) discord.Embed {
	return discord.Embed{
		Description: t.prefix() + " " + message,
		Color:       t.color(),
	}
}

// CreateErrorEmbed creates a standard error embed for command events
func (h *ResponseHandler) CreateErrorEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       config.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

// CreateSuccessEmbed creates a standard success embed for command events
func (h *ResponseHandler) CreateSuccessEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: "✅ " + message,
			Color:       config.SuccessColor,
		}},
	})
}

// CreateEphemeralError creates an ephemeral error message for component events
func (h *ResponseHandler) CreateEphemeralError(event *handler.ComponentEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: "❌ " + message,
		Flags:   discord.MessageFlagEphemeral,
	})
}

// CreateEphemeralSuccess creates an ephemeral success message for component events
func (h *ResponseHandler) CreateEphemeralSuccess(event *handler.ComponentEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: "✅ " + message,
		Flags:   discord.MessageFlagEphemeral,
	})
}

// HandleError answers the interaction with a classified error. System errors are
// returned as well so the logging wrapper records them.
func (h *ResponseHandler) HandleError(event any, err error) error {
	t := Classify(err)
	embed := errorEmbed(t, UserMessage(err))

	var respErr error
	switch e := event.(type) {
	case *handler.CommandEvent:
		respErr = e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed},
			Flags:  discord.MessageFlagEphemeral,
		})
	case *handler.ComponentEvent:
		respErr = e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed},
			Flags:  discord.MessageFlagEphemeral,
		})
	default:
		return fmt.Errorf("unsupported event type %T for error handling", event)
	}
	if t == SystemError {
		return errors.Join(err, respErr)
	}
	return respErr
}

// UpdateWithError replaces a deferred command response with a classified error.
func (h *ResponseHandler) UpdateWithError(event *handler.CommandEvent, err error) error {
	t := Classify(err)
	embeds := []discord.Embed{errorEmbed(t, UserMessage(err))}
	_, respErr := event.UpdateInteractionResponse(discord.MessageUpdate{Embeds: &embeds})
	if t == SystemError {
		return errors.Join(err, respErr)
	}
	return respErr
}
