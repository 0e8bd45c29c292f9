package config

import "time"

// Colors
const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31
)

// TierColors are the embed accents for each tier, most common first.
var TierColors = [...]int{
	0x808080,
	0x2ECC71,
	0x3498DB,
	0x9B59B6,
	0xF1C40F,
	0xE91E63,
}

// Database
const (
	DefaultQueryTimeout = 10 * time.Second
	BatchQueryTimeout   = 60 * time.Second
	UserCacheSize       = 10000
	CardBatchSize       = 1000
)

// Commands
const (
	CommandExecutionTimeout = 10 * time.Second
	CardsPerPage            = 10
	PaginatorExpiry         = 5 * time.Minute
	MaxTagSuggestions       = 5
	MaxUpgradeFodder        = 9
)

// Claim windows and cooldowns. These are defaults; config.toml may override them.
const (
	ClaimWindow         = 70 * time.Second
	PriorityClaimWindow = 10 * time.Second
	RollCooldown        = 10 * time.Minute
	ClaimCooldown       = 3 * time.Minute
	TradeCooldown       = 24 * time.Hour
	CleanupInterval     = 30 * time.Second
)
