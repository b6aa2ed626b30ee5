package events

// BetPlaced é publicado após o débito do escrow e a gravação da aposta.
type BetPlaced struct {
	BetID    string `json:"bet_id"`
	CombatID string `json:"combat_id"`
	UserID   string `json:"user_id"`
	Choice   string `json:"choice"`
	Amount   int64  `json:"amount"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
