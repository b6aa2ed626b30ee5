package domain

import (
	"strings"
	"time"
)

// CombatStatus é o estado do combate: open aceita apostas, finished é terminal.
type CombatStatus string

const (
	StatusOpen     CombatStatus = "open"
	StatusFinished CombatStatus = "finished"
)

// PayoutMultiplier: aposta vencedora recebe 2x o valor apostado.
// O prêmio é emitido, não sai do bolo dos perdedores.
const PayoutMultiplier = 2

// MaxListedCombats limita a listagem de combates.
const MaxListedCombats = 100

// Tipos de movimentação no ledger de créditos
const (
	LedgerBetDebit  = "BET_DEBIT"
	LedgerBetRefund = "BET_REFUND"
	LedgerPayout    = "PAYOUT"
)

// Identity é o usuário autenticado, resolvido fora do escrow e passado explicitamente.
type Identity struct {
	UserID   string
	Username string
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Credits      int64
	CreatedAt    time.Time
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

type Combat struct {
	ID        string
	SideA     string
	SideB     string
	Status    CombatStatus
	Winner    string // vazio enquanto open
	CreatedAt time.Time
	SettledAt *time.Time
}

func (c Combat) IsOpen() bool { return c.Status == StatusOpen }

// HasSide compara exatamente com um dos dois nomes do combate
func (c Combat) HasSide(name string) bool {
	return name != "" && (name == c.SideA || name == c.SideB)
}

// Opponent retorna o outro lado do combate; ok=false se name não é participante
func (c Combat) Opponent(name string) (string, bool) {
	switch name {
	case c.SideA:
		return c.SideB, true
	case c.SideB:
		return c.SideA, true
	}
	return "", false
}

// SameSides indica nomes iguais ignorando caixa, o que tornaria o vencedor ambíguo
func SameSides(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Bet nunca é alterada depois de criada.
type Bet struct {
	ID        string
	CombatID  string
	UserID    string
	Choice    string
	Amount    int64
	RequestID string // chave de idempotência enviada pelo cliente (opcional)
	CreatedAt time.Time
}

// BetView é a aposta com o nome de exibição do apostador.
type BetView struct {
	Bet
	Bettor string
}

type LedgerEntry struct {
	ID        string
	UserID    string
	Kind      string
	Amount    int64 // positivo entra, negativo sai
	Ref       string
	CreatedAt time.Time
}
