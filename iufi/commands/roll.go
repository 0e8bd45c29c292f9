package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"golang.org/x/sync/errgroup"

	"github.com/iufi-bot/iufi/iufi"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/economy/claim"
	"github.com/iufi-bot/iufi/iufi/logger"
	"github.com/iufi-bot/iufi/iufi/utils"
)

var Roll = discord.SlashCommandCreate{
	Name:        "roll",
	Description: "🎲 Roll photocards and race to claim them",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "tier",
			Description: "Guarantee one card of this tier",
			Required:    false,
			Choices:     tierChoices(),
		},
	},
}

func tierChoices() []discord.ApplicationCommandOptionChoiceString {
	choices := make([]discord.ApplicationCommandOptionChoiceString, 0, len(cardpool.Tiers())-1)
	for _, t := range cardpool.Tiers()[1:] {
		choices = append(choices, discord.ApplicationCommandOptionChoiceString{
			Name:  t.Emoji() + " " + t.String(),
			Value: t.String(),
		})
	}
	return choices
}

const rollImageName = "roll.png"

func RollHandler(b *iufi.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		var tier *cardpool.Tier
		if name, ok := e.SlashCommandInteractionData().OptString("tier"); ok {
			t, err := cardpool.ParseTier(name)
			if err != nil {
				return utils.EH.HandleError(e, err)
			}
			tier = &t
		}

		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		session, err := b.Claims.Roll(ctx, e.User().ID, tier)
		if err != nil {
			return utils.EH.UpdateWithError(e, err)
		}

		cards := make([]*cardpool.Card, len(session.CardIDs))
		for i, id := range session.CardIDs {
			cards[i] = b.Pool.GetCard(id)
		}
		image, err := rollImage(ctx, b.Renderer, cards)
		if err != nil {
			// The session stays open; claiming works without the picture.
			logger.LogError(logger.AttrCommand, "Failed to render roll", err, slog.String("session", session.ID))
		}

		expires := session.CreatedAt.Add(b.Claims.Config().Window)
		embed := rollEmbed(e.User().Username, cards, expires, image != nil)
		update := discord.MessageUpdate{
			Embeds:     &[]discord.Embed{embed},
			Components: &[]discord.ContainerComponent{slotButtons(session, false)},
		}
		if image != nil {
			update.Files = []*discord.File{{Name: rollImageName, Reader: bytes.NewReader(image)}}
		}
		if _, err := e.UpdateInteractionResponse(update); err != nil {
			b.Claims.Expire(session.ID)
			return err
		}

		appID, token := e.ApplicationID(), e.Token()
		time.AfterFunc(time.Until(expires), func() {
			b.Claims.Expire(session.ID)
			_, err := b.Client.Rest().UpdateInteractionResponse(appID, token, discord.MessageUpdate{
				Components: &[]discord.ContainerComponent{slotButtons(session, true)},
			})
			if err != nil {
				slog.Warn("Failed to lock roll buttons",
					slog.String("type", "cmd"),
					slog.String("session", session.ID),
					slog.Any("error", err),
				)
			}
		})
		return nil
	}
}

// rollImage renders the rolled cards side by side.
func rollImage(ctx context.Context, r *cardpool.Renderer, cards []*cardpool.Card) ([]byte, error) {
	images := make([][]byte, len(cards))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cards {
		if c == nil {
			return nil, fmt.Errorf("%w: slot %d", cardpool.ErrCardNotFound, i+1)
		}
		g.Go(func() error {
			img, err := c.ImageBytes(gctx, r)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cardpool.ComposeGrid(images)
}

func rollEmbed(username string, cards []*cardpool.Card, expires time.Time, withImage bool) discord.Embed {
	var desc strings.Builder
	rarest := cardpool.TierCommon
	for i, c := range cards {
		if c == nil {
			continue
		}
		fmt.Fprintf(&desc, "`%d.` %s %s\n", i+1, c.Tier().Emoji(), c.DisplayID())
		if c.Tier() > rarest {
			rarest = c.Tier()
		}
	}
	fmt.Fprintf(&desc, "\nClaim closes <t:%d:R>", expires.Unix())

	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🎲 %s's roll", username)).
		SetDescription(desc.String()).
		SetColor(utils.TierColor(rarest))
	if withImage {
		builder.SetImage("attachment://" + rollImageName)
	}
	return builder.Build()
}

// slotButtons renders one claim button per card. Claimed slots and every slot of
// a closed roll are disabled.
func slotButtons(s *claim.Session, closed bool) discord.ActionRowComponent {
	slots := s.Slots()
	buttons := make([]discord.InteractiveComponent, len(slots))
	for i, slot := range slots {
		label := strconv.Itoa(i + 1)
		btn := discord.NewSecondaryButton(label, fmt.Sprintf("/claim/%s/%d", s.ID, i))
		if slot.Winner != 0 {
			btn = discord.NewSuccessButton(label+" ✔", fmt.Sprintf("/claim/%s/%d", s.ID, i)).WithDisabled(true)
		}
		if closed {
			btn = btn.WithDisabled(true)
		}
		buttons[i] = btn
	}
	return discord.NewActionRow(buttons...)
}

func ClaimButtonHandler(b *iufi.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		sessionID := e.Vars["session"]
		slot, err := strconv.Atoi(e.Vars["slot"])
		if err != nil {
			return utils.EH.HandleError(e, fmt.Errorf("%w: %q", claim.ErrInvalidSlot, e.Vars["slot"]))
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		res, err := b.Claims.Claim(ctx, sessionID, slot, e.User().ID)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}

		now := time.Now()
		switch res.Status {
		case claim.StatusClaimed:
			if session, ok := b.Claims.Session(sessionID); ok {
				if err := e.UpdateMessage(discord.MessageUpdate{
					Components: &[]discord.ContainerComponent{slotButtons(session, false)},
				}); err != nil {
					return err
				}
			} else if err := e.DeferUpdateMessage(); err != nil {
				return err
			}
			_, err := e.CreateFollowupMessage(discord.MessageCreate{
				Content: fmt.Sprintf("%s claimed %s %s", utils.Mention(e.User().ID), res.Card.Tier().Emoji(), res.Card.DisplayID()),
			})
			return err
		case claim.StatusTaken:
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("This card was already claimed by %s.", utils.Mention(res.Winner)))
		case claim.StatusAlreadyClaimed:
			return utils.EH.CreateEphemeralError(e, "You already claimed a card from this roll.")
		case claim.StatusPriority:
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("The roller has priority on this card until %s.", utils.FormatRemaining(now, res.Remaining)))
		case claim.StatusBusy:
			return utils.EH.CreateEphemeralError(e, "Finish your current action before claiming.")
		case claim.StatusCooldown:
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("You can claim again %s.", utils.FormatRemaining(now, res.Remaining)))
		default:
			return utils.EH.CreateEphemeralError(e, "This roll has expired.")
		}
	}
}
