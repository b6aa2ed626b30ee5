package feed

// Tipos de atualização enviados aos clientes
const (
	TypeCombatCreated = "combat_created"
	TypeBetPlaced     = "bet_placed"
	TypeCombatSettled = "combat_settled"
)

// AllCombats assina as atualizações de todos os combates
const AllCombats = "*"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type     string `json:"type"`     // subscribe | unsubscribe | ping
	CombatID string `json:"combatId"` // id do combate ou "*"
}

// Update é o envelope trafegado no Redis Pub/Sub e entregue aos clientes
type Update struct {
	Type     string `json:"type"`
	CombatID string `json:"combatId"`
	Payload  any    `json:"payload,omitempty"`
}
