package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/iufi-bot/iufi/iufi"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/utils"
)

func cardOption(description string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:        "card",
		Description: description,
		Required:    true,
	}
}

var SetTag = discord.SlashCommandCreate{
	Name:        "settag",
	Description: "🏷️ Tag one of your cards so you can find it by name",
	Options: []discord.ApplicationCommandOption{
		cardOption("Card id or current tag"),
		discord.ApplicationCommandOptionString{
			Name:        "tag",
			Description: "New tag, letters, digits and spaces",
			Required:    true,
			MaxLength:   intPtr(32),
		},
	},
}

var RemoveTag = discord.SlashCommandCreate{
	Name:        "removetag",
	Description: "🏷️ Remove the tag from one of your cards",
	Options:     []discord.ApplicationCommandOption{cardOption("Card id or tag")},
}

var SetFrame = discord.SlashCommandCreate{
	Name:        "setframe",
	Description: "🖼️ Put a frame on one of your cards",
	Options: []discord.ApplicationCommandOption{
		cardOption("Card id or tag"),
		discord.ApplicationCommandOptionString{
			Name:         "frame",
			Description:  "Frame name, leave empty to remove the frame",
			Required:     false,
			Autocomplete: true,
		},
	},
}

func intPtr(v int) *int { return &v }

func SetTagHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		c, err := b.Cards.SetTag(ctx, e.User().ID, data.String("card"), data.String("tag"))
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("%s is now tagged %s", c.DisplayID(), c.DisplayTag()))
	}
}

func RemoveTagHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		c, err := b.Cards.RemoveTag(ctx, e.User().ID, e.SlashCommandInteractionData().String("card"))
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Removed the tag from %s", c.DisplayID()))
	}
}

func SetFrameHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		frame, _ := data.OptString("frame")
		c, err := b.Cards.SetFrame(ctx, e.User().ID, data.String("card"), frame)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		if c.Frame() == "" {
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Removed the frame from %s", c.DisplayID()))
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("%s now uses %s", c.DisplayID(), c.DisplayFrame()))
	}
}

// FrameAutocompleteHandler suggests registered frames matching the typed prefix.
func FrameAutocompleteHandler(b *iufi.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		typed := strings.ToLower(e.Data.String("frame"))
		choices := make([]discord.AutocompleteChoice, 0, 25)
		for _, f := range b.Pool.Frames() {
			if len(choices) == 25 {
				break
			}
			if strings.HasPrefix(strings.ToLower(f), typed) {
				choices = append(choices, discord.AutocompleteChoiceString{Name: f, Value: f})
			}
		}
		return e.AutocompleteResult(choices)
	}
}
