package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/repo"
	"github.com/radieske/combat-bet-platform/internal/wager/repo/repotest"
)

var admin = domain.Identity{UserID: "admin", Username: "admin"}

func newEngine(store *repo.Store) *Engine {
	return NewEngine(store, NewPayout(store, zap.NewNop()), zap.NewNop())
}

func placeBet(t *testing.T, store *repo.Store, u domain.User, c domain.Combat, choice string, amount int64) domain.Bet {
	t.Helper()
	ctx := context.Background()
	b := domain.Bet{CombatID: c.ID, UserID: u.ID, Choice: choice, Amount: amount}
	if _, err := store.Debit(ctx, u.ID, amount, "test"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := store.CreateBet(ctx, &b); err != nil {
		t.Fatalf("create bet: %v", err)
	}
	return b
}

func TestOpenValidatesSides(t *testing.T) {
	store := repotest.Open(t)
	e := newEngine(store)
	ctx := context.Background()

	if _, err := e.Open(ctx, domain.Identity{}, "A", "B"); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotLoggedIn)
	}
	if _, err := e.Open(ctx, admin, " ", "B"); !errors.Is(err, domain.ErrMissingPlayers) {
		t.Fatalf("err = %v, want %v", err, domain.ErrMissingPlayers)
	}
	if _, err := e.Open(ctx, admin, "Steve", "steve"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalid)
	}

	var opened []string
	e.OnOpened = func(_ context.Context, c domain.Combat) { opened = append(opened, c.ID) }
	c, err := e.Open(ctx, admin, " Steve ", "Alex")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.SideA != "Steve" || c.Status != domain.StatusOpen {
		t.Fatalf("combat = %+v, want open with trimmed sides", c)
	}
	if len(opened) != 1 || opened[0] != c.ID {
		t.Fatalf("OnOpened = %v, want [%s]", opened, c.ID)
	}
}

func TestSettlePaysWinnersTwiceTheStake(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	winnerA := repotest.SeedUser(t, store, "u1", 1000)
	winnerB := repotest.SeedUser(t, store, "u2", 1000)
	loser := repotest.SeedUser(t, store, "u3", 1000)
	c := repotest.SeedCombat(t, store, "PlayerOne", "PlayerTwo")

	placeBet(t, store, winnerA, c, "PlayerOne", 100)
	placeBet(t, store, winnerB, c, "PlayerOne", 40)
	placeBet(t, store, loser, c, "PlayerTwo", 300)

	var settled []Outcome
	e := newEngine(store)
	e.OnSettled = func(_ context.Context, o Outcome) { settled = append(settled, o) }

	out, err := e.Settle(ctx, admin, c.ID, "PlayerTwo fell from a high place")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Winner != "PlayerOne" || out.Dead != "PlayerTwo" {
		t.Fatalf("outcome = (%s, %s), want (PlayerOne, PlayerTwo)", out.Winner, out.Dead)
	}
	if out.Report.Paid != 2 || out.Report.Credited != 280 {
		t.Fatalf("report = %+v, want 2 paid crediting 280", out.Report)
	}
	if got := repotest.Credits(t, store, winnerA.ID); got != 1100 {
		t.Fatalf("winnerA credits = %d, want 1100", got)
	}
	if got := repotest.Credits(t, store, winnerB.ID); got != 1040 {
		t.Fatalf("winnerB credits = %d, want 1040", got)
	}
	if got := repotest.Credits(t, store, loser.ID); got != 700 {
		t.Fatalf("loser credits = %d, want 700", got)
	}
	if len(settled) != 1 {
		t.Fatalf("OnSettled calls = %d, want 1", len(settled))
	}

	stored, err := store.GetCombat(ctx, c.ID)
	if err != nil {
		t.Fatalf("get combat: %v", err)
	}
	if stored.Status != domain.StatusFinished || stored.Winner != "PlayerOne" {
		t.Fatalf("combat = %+v, want finished with winner PlayerOne", stored)
	}
}

func TestSecondSettleIsRejectedWithoutPayout(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 1000)
	c := repotest.SeedCombat(t, store, "A_side", "B_side")
	placeBet(t, store, u, c, "A_side", 100)
	e := newEngine(store)

	if _, err := e.Settle(ctx, admin, c.ID, "B_side was slain"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := e.Settle(ctx, admin, c.ID, "A_side was slain"); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Fatalf("err = %v, want %v", err, domain.ErrAlreadySettled)
	}
	if got := repotest.Credits(t, store, u.ID); got != 1100 {
		t.Fatalf("credits = %d, want 1100", got)
	}
}

func TestConcurrentSettleExactlyOnePayout(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	u := repotest.SeedUser(t, store, "viewer", 1000)
	c := repotest.SeedCombat(t, store, "A_side", "B_side")
	placeBet(t, store, u, c, "A_side", 100)
	e := newEngine(store)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Settle(ctx, admin, c.ID, "B_side blew up")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrAlreadySettled):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || rejected != attempts-1 {
		t.Fatalf("wins = %d rejected = %d, want 1 and %d", wins, rejected, attempts-1)
	}
	if got := repotest.Credits(t, store, u.ID); got != 1100 {
		t.Fatalf("credits = %d, want 1100", got)
	}
}

func TestSettleFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	c := repotest.SeedCombat(t, store, "PlayerOne", "PlayerTwo")
	e := newEngine(store)

	var results []string
	e.OnResult = func(r string) { results = append(results, r) }

	cases := []struct {
		text string
		want error
	}{
		{"nothing relevant", domain.ErrCannotDetermineOutcome},
		{"Zombie_42 was blown up by Creeper", domain.ErrCannotDetermineOutcome},
		{"  ", domain.ErrInvalid},
	}
	for _, tc := range cases {
		if _, err := e.Settle(ctx, admin, c.ID, tc.text); !errors.Is(err, tc.want) {
			t.Fatalf("Settle(%q) err = %v, want %v", tc.text, err, tc.want)
		}
	}
	if _, err := e.Settle(ctx, admin, "missing", "PlayerOne died"); !errors.Is(err, domain.ErrNoSuchCombat) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNoSuchCombat)
	}
	if _, err := e.Settle(ctx, domain.Identity{}, c.ID, "PlayerOne died"); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotLoggedIn)
	}

	stored, err := store.GetCombat(ctx, c.ID)
	if err != nil {
		t.Fatalf("get combat: %v", err)
	}
	if !stored.IsOpen() {
		t.Fatalf("status = %s, want open", stored.Status)
	}
	if len(results) != 5 || results[0] != "cannot_detect_dead" {
		t.Fatalf("results = %v, want 5 rejections", results)
	}
}

// failingPayStore falha o crédito de um apostador específico
type failingPayStore struct {
	*repo.Store
	failUser string
	enabled  bool
}

func (f *failingPayStore) PayBet(ctx context.Context, b domain.Bet, amount int64) (bool, error) {
	if f.enabled && b.UserID == f.failUser {
		return false, errors.New("deadlock detected")
	}
	return f.Store.PayBet(ctx, b, amount)
}

func TestPayoutFailureDoesNotBlockOthersAndReplayCompletes(t *testing.T) {
	ctx := context.Background()
	store := repotest.Open(t)
	ok := repotest.SeedUser(t, store, "ok", 1000)
	unlucky := repotest.SeedUser(t, store, "unlucky", 1000)
	c := repotest.SeedCombat(t, store, "A_side", "B_side")
	placeBet(t, store, unlucky, c, "A_side", 100)
	placeBet(t, store, ok, c, "A_side", 100)

	fs := &failingPayStore{Store: store, failUser: unlucky.ID, enabled: true}
	payout := NewPayout(fs, zap.NewNop())
	var failed []string
	payout.OnFailed = func(_ context.Context, b domain.Bet, _ int64, _ error) { failed = append(failed, b.UserID) }
	e := NewEngine(store, payout, zap.NewNop())

	out, err := e.Settle(ctx, admin, c.ID, "B_side went off with a bang")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Report.Paid != 1 || out.Report.Failed != 1 {
		t.Fatalf("report = %+v, want 1 paid and 1 failed", out.Report)
	}
	if len(failed) != 1 || failed[0] != unlucky.ID {
		t.Fatalf("failed = %v, want [%s]", failed, unlucky.ID)
	}
	if got := repotest.Credits(t, store, ok.ID); got != 1100 {
		t.Fatalf("ok credits = %d, want 1100", got)
	}
	if got := repotest.Credits(t, store, unlucky.ID); got != 900 {
		t.Fatalf("unlucky credits = %d, want 900", got)
	}

	fs.enabled = false
	rep, err := payout.Replay(ctx, c.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if rep.Paid != 1 || rep.Skipped != 1 {
		t.Fatalf("replay report = %+v, want 1 paid and 1 skipped", rep)
	}
	rep, err = payout.Replay(ctx, c.ID)
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if rep.Paid != 0 || rep.Skipped != 2 {
		t.Fatalf("second replay report = %+v, want 2 skipped", rep)
	}
	if got := repotest.Credits(t, store, unlucky.ID); got != 1100 {
		t.Fatalf("unlucky credits = %d, want 1100", got)
	}
	if got := repotest.Credits(t, store, ok.ID); got != 1100 {
		t.Fatalf("ok credits = %d, want 1100", got)
	}
}

func TestReplayRequiresFinishedCombat(t *testing.T) {
	store := repotest.Open(t)
	c := repotest.SeedCombat(t, store, "A_side", "B_side")
	payout := NewPayout(store, zap.NewNop())

	if _, err := payout.Replay(context.Background(), c.ID); !errors.Is(err, domain.ErrNotSettled) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotSettled)
	}
	if _, err := payout.Replay(context.Background(), "missing"); !errors.Is(err, domain.ErrNoSuchCombat) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNoSuchCombat)
	}
}
