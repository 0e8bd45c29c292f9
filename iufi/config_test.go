package iufi

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iufi-bot/iufi/iufi/assets"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[bot]
token = "secret"

[db]
database = "iufi"

[assets]
source = "spaces"

[spaces]
bucket = "cards"
card_root = "iufi"

[pool]
roll_amount = 4

[pool.weights]
common = 0.8
rare = 0.15
epic = 0.05

[pool.prices]
rare = 12

[claim]
window = "90s"
roll_cooldown = "5m"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, slog.LevelDebug, cfg.Log.Level)
	require.Equal(t, "secret", cfg.Bot.Token)
	require.Equal(t, "localhost", cfg.DB.Host)
	require.Equal(t, 5432, cfg.DB.Port)
	require.Equal(t, AssetSourceSpaces, cfg.Assets.Source)
	require.Equal(t, assets.DefaultExtensions, cfg.Assets.Extensions)
	require.Equal(t, "iufi", cfg.Spaces.CardRoot)

	rates, err := cfg.Pool.Rates()
	require.NoError(t, err)
	require.Equal(t, 0.15, rates[cardpool.TierRare])
	prices, err := cfg.Pool.TierPrices()
	require.NoError(t, err)
	require.Equal(t, map[cardpool.Tier]int64{cardpool.TierRare: 12}, prices)

	mc := cfg.Claim.ManagerConfig(cfg.Pool.RollAmount)
	require.Equal(t, 90*time.Second, mc.Window)
	require.Equal(t, config.PriorityClaimWindow, mc.PriorityWindow)
	require.Equal(t, 5*time.Minute, mc.RollCooldown)
	require.Equal(t, config.ClaimCooldown, mc.ClaimCooldown)
	require.Equal(t, 4, mc.RollAmount)
	require.Equal(t, config.TradeCooldown, cfg.Claim.TradeCooldown.Duration)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing token",
			cfg:     Config{},
			wantErr: "bot.token is required",
		},
		{
			name:    "unknown asset source",
			cfg:     Config{Bot: BotConfig{Token: "t"}, Assets: AssetsConfig{Source: "ftp"}},
			wantErr: "assets.source",
		},
		{
			name:    "spaces without bucket",
			cfg:     Config{Bot: BotConfig{Token: "t"}, Assets: AssetsConfig{Source: AssetSourceSpaces}},
			wantErr: "spaces.bucket",
		},
		{
			name:    "unknown tier weight",
			cfg:     Config{Bot: BotConfig{Token: "t"}, Pool: PoolConfig{Weights: map[string]float64{"shiny": 1}}},
			wantErr: "pool.weights",
		},
		{
			name:    "rarer tier weighs more",
			cfg:     Config{Bot: BotConfig{Token: "t"}, Pool: PoolConfig{Weights: map[string]float64{"common": 0.1, "rare": 0.9}}},
			wantErr: "pool.weights",
		},
		{
			name:    "negative price",
			cfg:     Config{Bot: BotConfig{Token: "t"}, Pool: PoolConfig{Prices: map[string]int64{"epic": -5}}},
			wantErr: "pool.prices",
		},
		{
			name: "priority window too long",
			cfg: Config{Bot: BotConfig{Token: "t"}, Claim: ClaimConfig{
				Window:         Duration{time.Second},
				PriorityWindow: Duration{time.Minute},
			}},
			wantErr: "claim.priority_window",
		},
		{
			name: "defaults",
			cfg:  Config{Bot: BotConfig{Token: "t"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, AssetSourceLocal, tt.cfg.Assets.Source)
			require.Equal(t, "images", tt.cfg.Assets.Root)
			require.Equal(t, config.ClaimWindow, tt.cfg.Claim.Window.Duration)
			require.Equal(t, cardpool.DefaultRollAmount, tt.cfg.Pool.RollAmount)
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	require.Equal(t, 90*time.Second, d.Duration)
	require.Error(t, d.UnmarshalText([]byte("soon")))
}
