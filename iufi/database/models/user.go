package models

import (
	"time"

	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int64     `bun:"id,pk"`
	Cards         []string  `bun:"cards,type:jsonb"`
	Candies       int64     `bun:"candies,notnull,default:0"`
	Exp           int64     `bun:"exp,notnull,default:0"`
	RollCooldown  time.Time `bun:"roll_cooldown,nullzero"`
	ClaimCooldown time.Time `bun:"claim_cooldown,nullzero"`
	Luck          Luck      `bun:"luck,type:jsonb"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Luck is a temporary roll boost bought with candies.
type Luck struct {
	Multiplier float64   `json:"multiplier"`
	Expires    time.Time `json:"expires"`
}

// Active reports whether the boost still applies at now.
func (l Luck) Active(now time.Time) bool {
	return l.Multiplier > 1 && now.Before(l.Expires)
}

func (u *User) HasCard(id string) bool {
	for _, c := range u.Cards {
		if c == id {
			return true
		}
	}
	return false
}

var (
	UserCards = patch.Field[User, []string]{
		Column: "cards",
		JSON:   true,
		Get:    func(u *User) []string { return u.Cards },
		Set:    func(u *User, v []string) { u.Cards = v },
	}
	UserCandies = patch.Field[User, int64]{
		Column: "candies",
		Get:    func(u *User) int64 { return u.Candies },
		Set:    func(u *User, v int64) { u.Candies = v },
	}
	UserExp = patch.Field[User, int64]{
		Column: "exp",
		Get:    func(u *User) int64 { return u.Exp },
		Set:    func(u *User, v int64) { u.Exp = v },
	}
	UserRollCooldown = patch.Field[User, time.Time]{
		Column: "roll_cooldown",
		Get:    func(u *User) time.Time { return u.RollCooldown },
		Set:    func(u *User, v time.Time) { u.RollCooldown = v },
	}
	UserClaimCooldown = patch.Field[User, time.Time]{
		Column: "claim_cooldown",
		Get:    func(u *User) time.Time { return u.ClaimCooldown },
		Set:    func(u *User, v time.Time) { u.ClaimCooldown = v },
	}
	UserLuck = patch.Field[User, Luck]{
		Column: "luck",
		JSON:   true,
		Get:    func(u *User) Luck { return u.Luck },
		Set:    func(u *User, v Luck) { u.Luck = v },
	}
)
