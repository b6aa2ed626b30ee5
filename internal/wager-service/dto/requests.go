package dto

import "encoding/json"

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateCombatRequest struct {
	PlayerA string `json:"playerA"`
	PlayerB string `json:"playerB"`
}

// PlaceBetRequest aceita amount como número ou string numérica
type PlaceBetRequest struct {
	CombatID string      `json:"combatId"`
	Choice   string      `json:"choice"`
	Amount   json.Number `json:"amount"`
}

type ProofRequest struct {
	CombatID     string `json:"combatId"`
	DeathMessage string `json:"deathMessage"`
}
