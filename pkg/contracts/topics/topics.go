package topics

const (
	// Bets
	BetPlaced = "bet_placed"

	// Combats
	CombatSettled = "combat_settled"
	PayoutFailed  = "payout_failed"

	// DLQs
	CombatSettledDLQ = "combat_settled_dlq"
)
