package models

// All returns every model owned by the engine, in dependency order.
func All() []any {
	return []any{
		&UserAccount{},
		&PackTemplate{},
		&LedgerTransaction{},
		&Bid{},
		&Pack{},
		&Collectible{},
		&Payment{},
		&Event{},
		&Notification{},
	}
}
