package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/iufi-bot/iufi/iufi"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/utils"
)

var CardInfo = discord.SlashCommandCreate{
	Name:        "cardinfo",
	Description: "🔎 Show a card by id or tag",
	Options:     []discord.ApplicationCommandOption{cardOption("Card id or tag")},
}

var Collection = discord.SlashCommandCreate{
	Name:        "collection",
	Description: "📚 Browse a card collection",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose collection to show, yours by default",
			Required:    false,
		},
	},
}

func CardInfoHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		identifier := e.SlashCommandInteractionData().String("card")
		c := b.Pool.GetCard(identifier)
		if c == nil {
			msg := fmt.Sprintf("No card matches `%s`.", identifier)
			if suggestions := b.Pool.SuggestTags(identifier, config.MaxTagSuggestions); len(suggestions) > 0 {
				msg += "\nDid you mean: `" + strings.Join(suggestions, "`, `") + "`?"
			}
			return utils.EH.CreateErrorEmbed(e, "🔍 "+msg)
		}

		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf("%s Card info", c.Tier().Emoji())).
			SetDescription(utils.FormatCardDetails(c, b.Pool.Price(c.Tier()))).
			SetColor(utils.TierColor(c.Tier()))
		update := discord.MessageUpdate{}

		image, err := c.ImageBytes(ctx, b.Renderer)
		if err != nil {
			slog.Warn("Card image unavailable",
				slog.String("type", "cmd"),
				slog.String("name", "cardinfo"),
				slog.String("card", c.ID()),
				slog.Any("error", err),
			)
			embed.SetFooter(utils.UserMessage(err), "")
		} else {
			name := fmt.Sprintf("card_%s.png", c.ID())
			embed.SetImage("attachment://" + name)
			update.Files = []*discord.File{{Name: name, Reader: bytes.NewReader(image)}}
		}
		update.Embeds = &[]discord.Embed{embed.Build()}

		_, err = e.UpdateInteractionResponse(update)
		return err
	}
}

func CollectionHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		owner := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			owner = u
		}

		cards := b.Pool.CardsOwnedBy(owner.ID)
		if len(cards) == 0 {
			return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("%s has no cards yet. Try `/roll`!", owner.Username))
		}
		ids := make([]string, len(cards))
		for i, c := range cards {
			ids[i] = c.ID()
		}

		totalPages := int(math.Ceil(float64(len(ids)) / float64(config.CardsPerPage)))
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * config.CardsPerPage
				end := min(start+config.CardsPerPage, len(ids))

				var desc strings.Builder
				for _, id := range ids[start:end] {
					// Cards may have changed hands since the listing was built.
					c := b.Pool.GetCard(id)
					if c == nil || c.OwnerID() != owner.ID {
						fmt.Fprintf(&desc, "~~%s~~\n", cardpool.NormalizeID(id))
						continue
					}
					desc.WriteString(utils.FormatCardLine(c))
					desc.WriteByte('\n')
				}

				embed.
					SetTitle(fmt.Sprintf("📚 %s's collection", owner.Username)).
					SetDescription(desc.String()).
					SetColor(config.EmbedDefaultColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d cards", page+1, totalPages, len(ids)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
