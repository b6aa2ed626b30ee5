package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/repo"
	"github.com/radieske/combat-bet-platform/internal/wager/repo/repotest"
)

// flakyStore falha a gravação da aposta e os primeiros estornos
type flakyStore struct {
	*repo.Store
	failBet     bool
	failCredits int
	credits     int
}

func (f *flakyStore) CreateBet(ctx context.Context, b *domain.Bet) error {
	if f.failBet {
		return errors.New("connection reset")
	}
	return f.Store.CreateBet(ctx, b)
}

func (f *flakyStore) Credit(ctx context.Context, userID string, amount int64, kind, ref string) (int64, error) {
	f.credits++
	if f.credits <= f.failCredits {
		return 0, errors.New("connection reset")
	}
	return f.Store.Credit(ctx, userID, amount, kind, ref)
}

func newTestManager(store Store) *Manager {
	m := NewManager(store, zap.NewNop())
	m.RefundBackoff = time.Millisecond
	return m
}

func countBets(t *testing.T, store *repo.Store, combatID string) int {
	t.Helper()
	bets, err := store.ListBets(context.Background(), combatID)
	if err != nil {
		t.Fatalf("list bets: %v", err)
	}
	return len(bets)
}

func TestPlaceBetDebitsAndRecords(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 1000)
	c := repotest.SeedCombat(t, store, "Steve", "Alex")

	var placed []domain.Bet
	m := newTestManager(store)
	m.OnPlaced = func(_ context.Context, b domain.Bet) { placed = append(placed, b) }

	bet, err := m.PlaceBet(ctx, u.Identity(), PlaceBetInput{CombatID: c.ID, Choice: "Steve", Amount: 100})
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if bet.Amount != 100 || bet.Choice != "Steve" || bet.UserID != u.ID {
		t.Fatalf("bet = %+v, want 100 on Steve by %s", bet, u.ID)
	}
	if got := repotest.Credits(t, store, u.ID); got != 900 {
		t.Fatalf("credits = %d, want 900", got)
	}
	if n := countBets(t, store, c.ID); n != 1 {
		t.Fatalf("bets = %d, want 1", n)
	}
	if len(placed) != 1 || placed[0].ID != bet.ID {
		t.Fatalf("OnPlaced calls = %v, want the new bet", placed)
	}
}

func TestPlaceBetRejectionsLeaveNoEffect(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	viewer := repotest.SeedUser(t, store, "viewer", 50)
	steve := repotest.SeedUser(t, store, "Steve", 50)
	open := repotest.SeedCombat(t, store, "Steve", "Alex")
	closed := repotest.SeedCombat(t, store, "Notch", "Herobrine")
	if _, err := store.FinishCombat(ctx, closed.ID, "Notch"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	cases := []struct {
		name   string
		bettor domain.Identity
		in     PlaceBetInput
		want   error
	}{
		{"anonymous", domain.Identity{}, PlaceBetInput{CombatID: open.ID, Choice: "Steve", Amount: 10}, domain.ErrNotLoggedIn},
		{"zero amount", viewer.Identity(), PlaceBetInput{CombatID: open.ID, Choice: "Steve", Amount: 0}, domain.ErrInvalid},
		{"missing choice", viewer.Identity(), PlaceBetInput{CombatID: open.ID, Amount: 10}, domain.ErrInvalid},
		{"unknown combat", viewer.Identity(), PlaceBetInput{CombatID: "nope", Choice: "Steve", Amount: 10}, domain.ErrNoSuchCombat},
		{"finished combat", viewer.Identity(), PlaceBetInput{CombatID: closed.ID, Choice: "Notch", Amount: 10}, domain.ErrBettingClosed},
		{"not a side", viewer.Identity(), PlaceBetInput{CombatID: open.ID, Choice: "Zombie", Amount: 10}, domain.ErrInvalidChoice},
		{"self bet", steve.Identity(), PlaceBetInput{CombatID: open.ID, Choice: "Steve", Amount: 10}, domain.ErrCannotBetOnSelf},
		{"over balance", viewer.Identity(), PlaceBetInput{CombatID: open.ID, Choice: "Alex", Amount: 51}, domain.ErrInsufficientCredits},
	}

	var rejected []string
	m := newTestManager(store)
	m.OnRejected = func(reason string) { rejected = append(rejected, reason) }

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.PlaceBet(ctx, tc.bettor, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if got := repotest.Credits(t, store, viewer.ID); got != 50 {
		t.Fatalf("viewer credits = %d, want 50", got)
	}
	if got := repotest.Credits(t, store, steve.ID); got != 50 {
		t.Fatalf("steve credits = %d, want 50", got)
	}
	if n := countBets(t, store, open.ID); n != 0 {
		t.Fatalf("bets = %d, want 0", n)
	}
	if len(rejected) != len(cases) {
		t.Fatalf("rejections = %d, want %d", len(rejected), len(cases))
	}
}

func TestConcurrentBetsCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 100)
	c := repotest.SeedCombat(t, store, "Steve", "Alex")
	m := newTestManager(store)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for _, choice := range []string{"Steve", "Alex"} {
		wg.Add(1)
		go func(choice string) {
			defer wg.Done()
			_, err := m.PlaceBet(ctx, u.Identity(), PlaceBetInput{CombatID: c.ID, Choice: choice, Amount: 70})
			if err != nil && !errors.Is(err, domain.ErrInsufficientCredits) {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}(choice)
	}
	wg.Wait()

	if oks != 1 {
		t.Fatalf("successful bets = %d, want 1", oks)
	}
	if got := repotest.Credits(t, store, u.ID); got != 30 {
		t.Fatalf("credits = %d, want 30", got)
	}
	if n := countBets(t, store, c.ID); n != 1 {
		t.Fatalf("bets = %d, want 1", n)
	}
}

func TestFailedBetInsertIsRefunded(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 500)
	c := repotest.SeedCombat(t, store, "Steve", "Alex")

	flaky := &flakyStore{Store: store, failBet: true, failCredits: 2}
	var refunds []string
	m := newTestManager(flaky)
	m.OnRefund = func(result string) { refunds = append(refunds, result) }

	_, err := m.PlaceBet(ctx, u.Identity(), PlaceBetInput{CombatID: c.ID, Choice: "Alex", Amount: 200})
	if !errors.Is(err, domain.ErrBetFailed) {
		t.Fatalf("err = %v, want %v", err, domain.ErrBetFailed)
	}
	if got := repotest.Credits(t, store, u.ID); got != 500 {
		t.Fatalf("credits = %d, want 500", got)
	}
	if flaky.credits != 3 {
		t.Fatalf("refund attempts = %d, want 3", flaky.credits)
	}
	if len(refunds) != 1 || refunds[0] != "ok" {
		t.Fatalf("refund results = %v, want [ok]", refunds)
	}

	entries, err := store.Ledger(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != domain.LedgerBetRefund || entries[1].Kind != domain.LedgerBetDebit {
		t.Fatalf("ledger = %+v, want debit followed by refund", entries)
	}
}

func TestRefundGivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 500)
	c := repotest.SeedCombat(t, store, "Steve", "Alex")

	flaky := &flakyStore{Store: store, failBet: true, failCredits: 100}
	var refunds []string
	m := newTestManager(flaky)
	m.RefundAttempts = 3
	m.OnRefund = func(result string) { refunds = append(refunds, result) }

	if _, err := m.PlaceBet(ctx, u.Identity(), PlaceBetInput{CombatID: c.ID, Choice: "Alex", Amount: 200}); !errors.Is(err, domain.ErrBetFailed) {
		t.Fatalf("err = %v, want %v", err, domain.ErrBetFailed)
	}
	if flaky.credits != 3 {
		t.Fatalf("refund attempts = %d, want 3", flaky.credits)
	}
	if len(refunds) != 1 || refunds[0] != "failed" {
		t.Fatalf("refund results = %v, want [failed]", refunds)
	}
}

func TestRepeatedRequestIDReturnsSameBet(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 1000)
	c := repotest.SeedCombat(t, store, "Steve", "Alex")
	m := newTestManager(store)

	in := PlaceBetInput{CombatID: c.ID, Choice: "Steve", Amount: 100, RequestID: "retry-1"}
	first, err := m.PlaceBet(ctx, u.Identity(), in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := m.PlaceBet(ctx, u.Identity(), in)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("bet id = %s, want %s", second.ID, first.ID)
	}
	if got := repotest.Credits(t, store, u.ID); got != 900 {
		t.Fatalf("credits = %d, want 900", got)
	}
	if n := countBets(t, store, c.ID); n != 1 {
		t.Fatalf("bets = %d, want 1", n)
	}
}

func TestRequestIDReusedForDifferentBetIsRejected(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 1000)
	c1 := repotest.SeedCombat(t, store, "Steve", "Alex")
	c2 := repotest.SeedCombat(t, store, "Carl", "Dana")
	m := newTestManager(store)

	if _, err := m.PlaceBet(ctx, u.Identity(), PlaceBetInput{CombatID: c1.ID, Choice: "Steve", Amount: 100, RequestID: "k"}); err != nil {
		t.Fatalf("first: %v", err)
	}

	cases := []PlaceBetInput{
		{CombatID: c2.ID, Choice: "Carl", Amount: 500, RequestID: "k"},
		{CombatID: c1.ID, Choice: "Alex", Amount: 100, RequestID: "k"},
		{CombatID: c1.ID, Choice: "Steve", Amount: 200, RequestID: "k"},
	}
	for _, in := range cases {
		if _, err := m.PlaceBet(ctx, u.Identity(), in); !errors.Is(err, domain.ErrDuplicateRequest) {
			t.Fatalf("reuse %+v err = %v, want ErrDuplicateRequest", in, err)
		}
	}
	if got := repotest.Credits(t, store, u.ID); got != 900 {
		t.Fatalf("credits = %d, want 900", got)
	}
	if n := countBets(t, store, c2.ID); n != 0 {
		t.Fatalf("bets on c2 = %d, want 0", n)
	}
}
