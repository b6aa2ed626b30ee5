package events

// CombatSettled é emitido uma única vez por combate, pela tentativa de
// liquidação que venceu a transição open -> finished.
// O settlement-worker reprocessa os pagamentos a partir dele.
type CombatSettled struct {
	CombatID string `json:"combat_id"`
	Winner   string `json:"winner"`
	Dead     string `json:"dead"`
	Paid     int    `json:"paid"`
	Failed   int    `json:"failed"`
	Credited int64  `json:"credited"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

// PayoutFailed registra um apostador que não recebeu o prêmio na liquidação.
type PayoutFailed struct {
	CombatID string `json:"combat_id"`
	BetID    string `json:"bet_id"`
	UserID   string `json:"user_id"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
