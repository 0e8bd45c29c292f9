package cardpool

import (
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrDuplicatedCard   = errors.New("card already registered")
	ErrDuplicatedTag    = errors.New("tag already taken")
	ErrCardNotFound     = errors.New("card not found")
	ErrAlreadyClaimed   = errors.New("card already claimed")
	ErrNotOwned         = errors.New("card has no owner")
	ErrNotOwner         = errors.New("you do not own this card")
	ErrAlreadyTagged    = errors.New("card already has a tag")
	ErrInvalidTag       = errors.New("invalid tag")
	ErrUnknownFrame     = errors.New("unknown frame")
	ErrUnknownTier      = errors.New("unknown tier")
	ErrInvalidRates     = errors.New("invalid drop rates")
	ErrInvalidAmount    = errors.New("roll amount must be positive")
	ErrTierExhausted    = errors.New("no cards left in tier")
	ErrNoCardsAvailable = errors.New("no cards available")
)

// ClaimedError reports who won a card that another caller tried to claim.
type ClaimedError struct {
	CardID string
	Owner  snowflake.ID
}

func (e *ClaimedError) Error() string {
	return fmt.Sprintf("card %s already claimed by %s", e.CardID, e.Owner)
}

func (e *ClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed
}

// ImageLoadError is returned when a card image asset is missing or cannot be decoded.
// The card itself stays valid and rendering may be retried.
type ImageLoadError struct {
	CardID string
	Asset  string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load image %q for card %s: %v", e.Asset, e.CardID, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}
