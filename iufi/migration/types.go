package migration

// LegacyCard is a document of the old Mongo "cards" collection.
type LegacyCard struct {
	ID            string  `bson:"_id"`
	Tier          string  `bson:"tier"`
	OwnerID       any     `bson:"owner_id"`
	Tag           string  `bson:"tag"`
	Frame         string  `bson:"frame"`
	Stars         int     `bson:"stars"`
	LastTradeTime float64 `bson:"last_trade_time"`
}

// LegacyUser is a document of the old Mongo "users" collection. Cooldowns are
// unix timestamps in seconds.
type LegacyUser struct {
	ID       any      `bson:"_id"`
	Cards    []string `bson:"cards"`
	Candies  int64    `bson:"candies"`
	Exp      int64    `bson:"exp"`
	Cooldown struct {
		Roll  float64 `bson:"roll"`
		Claim float64 `bson:"claim"`
	} `bson:"cooldown"`
}

// Stats counts what an import did.
type Stats struct {
	CardsRead    int
	CardsWritten int64
	CardsSkipped int
	UsersRead    int
	UsersWritten int
	UsersSkipped int
}
