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

var Convert = discord.SlashCommandCreate{
	Name:        "convert",
	Description: "🍬 Turn cards back into candies",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "cards",
			Description: "Card ids or tags separated by spaces",
			Required:    true,
		},
	},
}

var Upgrade = discord.SlashCommandCreate{
	Name:        "upgrade",
	Description: "⭐ Feed cards of the same tier into a card, one star each",
	Options: []discord.ApplicationCommandOption{
		cardOption("Card id or tag to upgrade"),
		discord.ApplicationCommandOptionString{
			Name:        "fodder",
			Description: "Card ids or tags to consume, separated by spaces",
			Required:    true,
		},
	},
}

var Trade = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "🤝 Sell one of your cards to another user",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Who receives the card",
			Required:    true,
		},
		cardOption("Card id or tag"),
		discord.ApplicationCommandOptionInt{
			Name:        "price",
			Description: "Candies the buyer pays, 0 to gift",
			Required:    false,
			MinValue:    intPtr(0),
		},
	},
}

// splitIdentifiers splits a space separated list of ids and single word tags.
func splitIdentifiers(raw string) []string {
	return strings.Fields(strings.ReplaceAll(raw, ",", " "))
}

func ConvertHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		ids := splitIdentifiers(e.SlashCommandInteractionData().String("cards"))
		res, err := b.Cards.Convert(ctx, e.User().ID, ids)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Converted %d card(s) into 🍬 `%d`. You now have 🍬 `%d`.",
			len(res.CardIDs), res.Candies, res.User.Candies))
	}
}

func UpgradeHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		fodder := splitIdentifiers(data.String("fodder"))
		if len(fodder) > config.MaxUpgradeFodder {
			return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("You can use at most %d cards per upgrade.", config.MaxUpgradeFodder))
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		res, err := b.Cards.Upgrade(ctx, e.User().ID, data.String("card"), fodder)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("%s is now %s (used %d card(s))",
			res.Card.DisplayID(), res.Card.DisplayStars(), len(res.Consumed)))
	}
}

func TradeHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		buyer := data.User("user")
		if buyer.Bot {
			return utils.EH.CreateErrorEmbed(e, "Bots cannot own cards.")
		}
		price, _ := data.OptInt("price")

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		c, err := b.Cards.Trade(ctx, e.User().ID, buyer.ID, data.String("card"), int64(price))
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("%s %s now belongs to %s for 🍬 `%d`",
			c.Tier().Emoji(), c.DisplayID(), utils.Mention(buyer.ID), price))
	}
}
