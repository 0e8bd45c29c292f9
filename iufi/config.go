package iufi

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/iufi-bot/iufi/iufi/assets"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/database"
	"github.com/iufi-bot/iufi/iufi/economy/claim"
)

const (
	AssetSourceLocal  = "local"
	AssetSourceSpaces = "spaces"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig           `toml:"log"`
	Bot    BotConfig           `toml:"bot"`
	DB     database.DBConfig   `toml:"db"`
	Assets AssetsConfig        `toml:"assets"`
	Spaces assets.SpacesConfig `toml:"spaces"`
	Mongo  MongoConfig         `toml:"mongo"`
	Pool   PoolConfig          `toml:"pool"`
	Claim  ClaimConfig         `toml:"claim"`
}

type LogConfig struct {
	Level   slog.Level `toml:"level"`
	NoColor bool       `toml:"no_color"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type AssetsConfig struct {
	// Source is "local" or "spaces".
	Source     string   `toml:"source"`
	Root       string   `toml:"root"`
	Extensions []string `toml:"extensions"`
}

// MongoConfig points at the legacy document store imported by cmd/migrate.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type PoolConfig struct {
	// Weights and Prices are keyed by tier name.
	Weights           map[string]float64 `toml:"weights"`
	Prices            map[string]int64   `toml:"prices"`
	RollAmount        int                `toml:"roll_amount"`
	RenderConcurrency int64              `toml:"render_concurrency"`
}

type ClaimConfig struct {
	Window         Duration `toml:"window"`
	PriorityWindow Duration `toml:"priority_window"`
	RollCooldown   Duration `toml:"roll_cooldown"`
	ClaimCooldown  Duration `toml:"claim_cooldown"`
	TradeCooldown  Duration `toml:"trade_cooldown"`
}

// Duration reads "70s" style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Validate fills in defaults and rejects settings the bot cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("bot.token is required"))
	}

	if c.DB.Host == "" {
		c.DB.Host = "localhost"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.PoolSize <= 0 {
		c.DB.PoolSize = 10
	}

	switch c.Assets.Source {
	case "":
		c.Assets.Source = AssetSourceLocal
	case AssetSourceLocal, AssetSourceSpaces:
	default:
		errs = append(errs, fmt.Errorf("assets.source must be %q or %q, got %q", AssetSourceLocal, AssetSourceSpaces, c.Assets.Source))
	}
	if c.Assets.Source == AssetSourceLocal && c.Assets.Root == "" {
		c.Assets.Root = "images"
	}
	if c.Assets.Source == AssetSourceSpaces && c.Spaces.Bucket == "" {
		errs = append(errs, errors.New("spaces.bucket is required for the spaces asset source"))
	}
	if len(c.Assets.Extensions) == 0 {
		c.Assets.Extensions = assets.DefaultExtensions
	}

	if _, err := c.Pool.Rates(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Pool.TierPrices(); err != nil {
		errs = append(errs, err)
	}
	if c.Pool.RollAmount <= 0 {
		c.Pool.RollAmount = cardpool.DefaultRollAmount
	}
	if c.Pool.RenderConcurrency <= 0 {
		c.Pool.RenderConcurrency = 4
	}

	setDefault(&c.Claim.Window, config.ClaimWindow)
	setDefault(&c.Claim.PriorityWindow, config.PriorityClaimWindow)
	setDefault(&c.Claim.RollCooldown, config.RollCooldown)
	setDefault(&c.Claim.ClaimCooldown, config.ClaimCooldown)
	setDefault(&c.Claim.TradeCooldown, config.TradeCooldown)
	if c.Claim.PriorityWindow.Duration > c.Claim.Window.Duration {
		errs = append(errs, fmt.Errorf("claim.priority_window (%s) is longer than claim.window (%s)", c.Claim.PriorityWindow, c.Claim.Window))
	}

	return errors.Join(errs...)
}

func setDefault(d *Duration, def time.Duration) {
	if d.Duration <= 0 {
		d.Duration = def
	}
}

// Rates returns the configured tier weights, or the stock weights when none are set.
func (p PoolConfig) Rates() (cardpool.Rates, error) {
	if len(p.Weights) == 0 {
		return cardpool.DefaultRates(), nil
	}
	rates := make(cardpool.Rates, len(p.Weights))
	for name, w := range p.Weights {
		t, err := cardpool.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("pool.weights: %w", err)
		}
		rates[t] = w
	}
	if _, err := rates.Normalize(); err != nil {
		return nil, fmt.Errorf("pool.weights: %w", err)
	}
	return rates, nil
}

func (p PoolConfig) TierPrices() (map[cardpool.Tier]int64, error) {
	prices := make(map[cardpool.Tier]int64, len(p.Prices))
	for name, v := range p.Prices {
		t, err := cardpool.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("pool.prices: %w", err)
		}
		if v < 0 {
			return nil, fmt.Errorf("pool.prices: %s price is negative", t)
		}
		prices[t] = v
	}
	return prices, nil
}

func (c ClaimConfig) ManagerConfig(rollAmount int) claim.Config {
	return claim.Config{
		Window:         c.Window.Duration,
		PriorityWindow: c.PriorityWindow.Duration,
		RollCooldown:   c.RollCooldown.Duration,
		ClaimCooldown:  c.ClaimCooldown.Duration,
		RollAmount:     rollAmount,
	}
}
