package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/iufi-bot/iufi/iufi"
	"github.com/iufi-bot/iufi/iufi/handlers"
)

var Commands = []discord.ApplicationCommandCreate{
	Roll,
	SetTag,
	RemoveTag,
	SetFrame,
	Convert,
	Upgrade,
	Trade,
	CardInfo,
	Collection,
}

// Register routes every command and component to its handler.
func Register(h handler.Router, b *iufi.Bot) {
	h.Command("/roll", handlers.WrapWithLogging("roll", RollHandler(b)))
	h.Component("/claim/{session}/{slot}", handlers.WrapComponentWithLogging("claim", ClaimButtonHandler(b)))

	h.Command("/settag", handlers.WrapWithLogging("settag", SetTagHandler(b)))
	h.Command("/removetag", handlers.WrapWithLogging("removetag", RemoveTagHandler(b)))
	h.Command("/setframe", handlers.WrapWithLogging("setframe", SetFrameHandler(b)))
	h.Autocomplete("/setframe", FrameAutocompleteHandler(b))

	h.Command("/convert", handlers.WrapWithLogging("convert", ConvertHandler(b)))
	h.Command("/upgrade", handlers.WrapWithLogging("upgrade", UpgradeHandler(b)))
	h.Command("/trade", handlers.WrapWithLogging("trade", TradeHandler(b)))

	h.Command("/cardinfo", handlers.WrapWithLogging("cardinfo", CardInfoHandler(b)))
	h.Command("/collection", handlers.WrapWithLogging("collection", CollectionHandler(b)))
}
