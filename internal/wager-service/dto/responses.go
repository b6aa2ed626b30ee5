package dto

import (
	"time"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// Error é o envelope de falha: {"ok":false,"error":"<código>"}
type Error struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type OK struct {
	OK bool `json:"ok"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Credits  int64  `json:"credits"`
}

func FromUser(u domain.User) *User {
	return &User{ID: u.ID, Username: u.Username, Credits: u.Credits}
}

type SessionResponse struct {
	OK    bool   `json:"ok"`
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type MeResponse struct {
	User *User `json:"user"`
}

type Combat struct {
	ID        string `json:"id"`
	PlayerA   string `json:"playerA"`
	PlayerB   string `json:"playerB"`
	Status    string `json:"status"`
	Winner    string `json:"winner,omitempty"`
	CreatedAt int64  `json:"created_at"`
	SettledAt *int64 `json:"settled_at,omitempty"`
}

func FromCombat(c domain.Combat) Combat {
	out := Combat{
		ID:        c.ID,
		PlayerA:   c.SideA,
		PlayerB:   c.SideB,
		Status:    string(c.Status),
		Winner:    c.Winner,
		CreatedAt: c.CreatedAt.UnixMilli(),
	}
	if c.SettledAt != nil {
		ms := c.SettledAt.UnixMilli()
		out.SettledAt = &ms
	}
	return out
}

type CreateCombatResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type CombatsResponse struct {
	Combats []Combat `json:"combats"`
}

type PlaceBetResponse struct {
	OK    bool   `json:"ok"`
	BetID string `json:"betId"`
}

type ProofResponse struct {
	OK     bool   `json:"ok"`
	Winner string `json:"winner"`
	Dead   string `json:"dead"`
}

type Bet struct {
	ID       string `json:"id"`
	CombatID string `json:"combat_id"`
	UserID   string `json:"user_id"`
	Choice   string `json:"choice"`
	Amount   int64  `json:"amount"`
	Bettor   string `json:"bettor"`
}

type BetsResponse struct {
	Bets []Bet `json:"bets"`
}

func FromBetViews(views []domain.BetView) BetsResponse {
	out := BetsResponse{Bets: make([]Bet, 0, len(views))}
	for _, v := range views {
		out.Bets = append(out.Bets, Bet{
			ID:       v.ID,
			CombatID: v.CombatID,
			UserID:   v.UserID,
			Choice:   v.Choice,
			Amount:   v.Amount,
			Bettor:   v.Bettor,
		})
	}
	return out
}

type ReplayResponse struct {
	OK       bool  `json:"ok"`
	Paid     int   `json:"paid"`
	Skipped  int   `json:"skipped"`
	Failed   int   `json:"failed"`
	Credited int64 `json:"credited"`
}

type LedgerEntry struct {
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Ref       string    `json:"ref"`
	CreatedAt time.Time `json:"created_at"`
}

type LedgerResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

func FromLedger(entries []domain.LedgerEntry) LedgerResponse {
	out := LedgerResponse{Entries: make([]LedgerEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, LedgerEntry{Kind: e.Kind, Amount: e.Amount, Ref: e.Ref, CreatedAt: e.CreatedAt})
	}
	return out
}
