package blackjack

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"melbot/internal/common"
	"melbot/internal/config"
)

type fakeWallet struct {
	mu        sync.Mutex
	balances  map[string]int64
	creditErr error
}

func newFakeWallet(balances map[string]int64) *fakeWallet {
	return &fakeWallet{balances: balances}
}

func (w *fakeWallet) Credit(_ context.Context, userID string, amount int64, _ string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.creditErr != nil {
		return 0, w.creditErr
	}
	w.balances[userID] += amount
	return w.balances[userID], nil
}

func (w *fakeWallet) Debit(_ context.Context, userID string, amount int64, _ string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[userID] < amount {
		return 0, common.ErrInsufficientFunds
	}
	w.balances[userID] -= amount
	return w.balances[userID], nil
}

func (w *fakeWallet) failCredits(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.creditErr = err
}

func (w *fakeWallet) balance(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

// stacked отдаёт карты в порядке аргументов.
func stacked(ranks ...Rank) func() *Deck {
	return func() *Deck {
		cards := make([]Card, len(ranks))
		for i, r := range ranks {
			cards[len(ranks)-1-i] = Card{Rank: r, Suit: Spades}
		}
		return &Deck{cards: cards}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, wallet Wallet, deck func() *Deck) (*Service, *fakeClock) {
	t.Helper()
	svc, err := NewService(wallet, &config.Config{
		BlackjackMinBet:         10,
		BlackjackMaxBet:         1000,
		BlackjackPayout:         "2",
		BlackjackSessionTimeout: 10 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	if deck != nil {
		svc.newDeck = deck
	}
	return svc, clock
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		hand []Rank
		want int
	}{
		{"blackjack", []Rank{Ace, King}, 21},
		{"two aces", []Rank{Ace, Ace}, 12},
		{"soft ace turns hard", []Rank{Ace, 9, 5}, 15},
		{"faces count ten", []Rank{Jack, Queen}, 20},
		{"bust", []Rank{King, Queen, 5}, 25},
		{"three aces and eight", []Rank{Ace, Ace, Ace, 8}, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := make([]Card, len(tt.hand))
			for i, r := range tt.hand {
				hand[i] = Card{Rank: r}
			}
			if got := Score(hand); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewDeckHasFiftyTwoCards(t *testing.T) {
	d := NewShuffledDeck()
	seen := map[Card]bool{}
	for d.Len() > 0 {
		seen[d.Draw()] = true
	}
	if len(seen) != 52 {
		t.Fatalf("unique cards = %d, want 52", len(seen))
	}
}

func TestSecondStartFailsWithAlreadyPlaying(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 1000})
	svc, _ := newTestService(t, wallet, stacked(2, 3, 4, 5))
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 1, 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(ctx, "u1", 1, 200); !errors.Is(err, common.ErrAlreadyPlaying) {
		t.Fatalf("second Start err = %v, want ErrAlreadyPlaying", err)
	}
	if got := wallet.balance("u1"); got != 900 {
		t.Fatalf("balance = %d, want 900", got)
	}
	if svc.Active() != 1 {
		t.Fatalf("active = %d, want 1", svc.Active())
	}
}

func TestBustLeavesZeroBalanceAndNoSession(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 100})
	// игрок 10+6, дилер 9+7, добор K
	svc, _ := newTestService(t, wallet, stacked(10, 9, 6, 7, King))
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 1, 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	round, err := svc.Hit(ctx, "u1")
	if err != nil {
		t.Fatalf("Hit: %v", err)
	}
	if round.Outcome != OutcomeBust || round.PlayerScore != 26 {
		t.Fatalf("round = %+v", round)
	}
	if got := wallet.balance("u1"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
	if svc.Active() != 0 {
		t.Fatalf("active = %d, want 0", svc.Active())
	}
	if _, err := svc.Hit(ctx, "u1"); !errors.Is(err, common.ErrNoActiveSession) {
		t.Fatalf("Hit after bust err = %v, want ErrNoActiveSession", err)
	}
}

func TestStandDealerBustPaysMultiplier(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 100})
	// игрок 10+9, дилер 10+6 и добирает 10
	svc, _ := newTestService(t, wallet, stacked(10, 10, 9, 6, 10))
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 1, 50); err != nil {
		t.Fatalf("Start: %v", err)
	}
	round, err := svc.Stand(ctx, "u1")
	if err != nil {
		t.Fatalf("Stand: %v", err)
	}
	if round.Outcome != OutcomeWin || round.Payout != 100 || round.Balance != 150 {
		t.Fatalf("round = %+v", round)
	}
	if got := wallet.balance("u1"); got != 150 {
		t.Fatalf("balance = %d, want 150", got)
	}
	if svc.Active() != 0 {
		t.Fatalf("active = %d, want 0", svc.Active())
	}
}

func TestFailedWinCreditClosesHandAndSweepPays(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 100})
	// игрок 10+9, дилер 10+6, добирает 10 и перебирает
	svc, clock := newTestService(t, wallet, stacked(10, 10, 9, 6, 10, 2))
	notices := make(chan string, 1)
	svc.SetNotifier(func(_ int64, text string) { notices <- text })
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 5, 50); err != nil {
		t.Fatalf("Start: %v", err)
	}
	storageDown := errors.New("storage down")
	wallet.failCredits(storageDown)

	if _, err := svc.Stand(ctx, "u1"); !errors.Is(err, storageDown) {
		t.Fatalf("Stand err = %v, want storage error", err)
	}
	if svc.Active() != 1 {
		t.Fatalf("active = %d, want 1", svc.Active())
	}
	if _, err := svc.Hit(ctx, "u1"); !errors.Is(err, common.ErrNoActiveSession) {
		t.Fatalf("Hit after stand err = %v, want ErrNoActiveSession", err)
	}

	// пока начисление не проходит, чистка партию не сжигает
	clock.Advance(11 * time.Minute)
	if n := svc.SweepExpired(ctx); n != 0 {
		t.Fatalf("sweep with failing wallet = %d, want 0", n)
	}
	if svc.Active() != 1 || wallet.balance("u1") != 50 {
		t.Fatalf("active = %d, balance = %d", svc.Active(), wallet.balance("u1"))
	}

	wallet.failCredits(nil)
	if n := svc.SweepExpired(ctx); n != 1 {
		t.Fatalf("sweep = %d, want 1", n)
	}
	if got := wallet.balance("u1"); got != 150 {
		t.Fatalf("balance = %d, want 150 after paid win", got)
	}
	if svc.Active() != 0 {
		t.Fatalf("active = %d, want 0", svc.Active())
	}
	select {
	case text := <-notices:
		if !strings.Contains(text, "+100") {
			t.Fatalf("notice = %q", text)
		}
	case <-time.After(time.Second):
		t.Fatal("no win notice")
	}
}

func TestStandRetryAfterFailedCredit(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 100})
	svc, _ := newTestService(t, wallet, stacked(10, 10, 9, 6, 10))
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 1, 50); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wallet.failCredits(errors.New("storage down"))
	if _, err := svc.Stand(ctx, "u1"); err == nil {
		t.Fatal("Stand succeeded with failing wallet")
	}

	wallet.failCredits(nil)
	round, err := svc.Stand(ctx, "u1")
	if err != nil {
		t.Fatalf("Stand retry: %v", err)
	}
	if round.Outcome != OutcomeWin || len(round.Dealer) != 3 || round.Balance != 150 {
		t.Fatalf("round = %+v", round)
	}
}

func TestStandTieLoses(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 100})
	svc, _ := newTestService(t, wallet, stacked(10, 10, 8, 8))
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 1, 50); err != nil {
		t.Fatalf("Start: %v", err)
	}
	round, err := svc.Stand(ctx, "u1")
	if err != nil {
		t.Fatalf("Stand: %v", err)
	}
	if round.Outcome != OutcomeLose || round.PlayerScore != 18 || round.DealerScore != 18 {
		t.Fatalf("round = %+v", round)
	}
	if got := wallet.balance("u1"); got != 50 {
		t.Fatalf("balance = %d, want 50", got)
	}
}

func TestStartRejectsBadBets(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 50})
	svc, _ := newTestService(t, wallet, nil)
	ctx := context.Background()

	for _, bet := range []int64{0, 9, 1001} {
		if _, err := svc.Start(ctx, "u1", 1, bet); !errors.Is(err, common.ErrInvalidBet) {
			t.Errorf("Start(%d) err = %v, want ErrInvalidBet", bet, err)
		}
	}
	_, err := svc.Start(ctx, "u1", 1, 100)
	if !errors.Is(err, common.ErrInvalidBet) || !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("Start over balance err = %v", err)
	}
	if svc.Active() != 0 || wallet.balance("u1") != 50 {
		t.Fatalf("active = %d, balance = %d", svc.Active(), wallet.balance("u1"))
	}
	if _, err := svc.Start(ctx, "u1", 1, 50); err != nil {
		t.Fatalf("Start after rejection: %v", err)
	}
}

func TestSweepSettlesExpiredSessions(t *testing.T) {
	wallet := newFakeWallet(map[string]int64{"u1": 100, "u2": 100})
	svc, clock := newTestService(t, wallet, stacked(2, 3, 4, 5))
	notices := make(chan int64, 2)
	svc.SetNotifier(func(chatID int64, _ string) { notices <- chatID })
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", 77, 40); err != nil {
		t.Fatalf("Start u1: %v", err)
	}
	clock.Advance(5 * time.Minute)
	if _, err := svc.Start(ctx, "u2", 88, 40); err != nil {
		t.Fatalf("Start u2: %v", err)
	}

	clock.Advance(4*time.Minute + 59*time.Second)
	if n := svc.SweepExpired(ctx); n != 0 {
		t.Fatalf("early sweep = %d, want 0", n)
	}

	clock.Advance(time.Second)
	if n := svc.SweepExpired(ctx); n != 1 {
		t.Fatalf("sweep = %d, want 1", n)
	}
	select {
	case chatID := <-notices:
		if chatID != 77 {
			t.Fatalf("notice chat = %d, want 77", chatID)
		}
	case <-time.After(time.Second):
		t.Fatal("no timeout notice")
	}

	if _, err := svc.Hit(ctx, "u1"); !errors.Is(err, common.ErrNoActiveSession) {
		t.Fatalf("Hit after sweep err = %v", err)
	}
	if got := wallet.balance("u1"); got != 60 {
		t.Fatalf("u1 balance = %d, want 60", got)
	}
	if svc.Active() != 1 {
		t.Fatalf("active = %d, want 1", svc.Active())
	}
}

func TestHitRacingSweepSettlesOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		wallet := newFakeWallet(map[string]int64{"u1": 100})
		svc, clock := newTestService(t, wallet, stacked(2, 2, 2, 2, 2, 2, 2, 2))
		ctx := context.Background()

		if _, err := svc.Start(ctx, "u1", 1, 100); err != nil {
			t.Fatalf("Start: %v", err)
		}
		clock.Advance(10 * time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.Hit(ctx, "u1"); err != nil && !errors.Is(err, common.ErrNoActiveSession) {
				t.Errorf("Hit: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			svc.SweepExpired(ctx)
		}()
		wg.Wait()

		if svc.Active() != 0 {
			t.Fatalf("active = %d, want 0", svc.Active())
		}
		if got := wallet.balance("u1"); got != 0 {
			t.Fatalf("balance = %d, want 0", got)
		}
	}
}

func TestPayoutRoundsHalfUp(t *testing.T) {
	svc, err := NewService(newFakeWallet(nil), &config.Config{BlackjackPayout: "1.5"}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := svc.Payout(10); got != 15 {
		t.Fatalf("Payout(10) = %d, want 15", got)
	}
	if got := svc.Payout(15); got != 23 {
		t.Fatalf("Payout(15) = %d, want 23", got)
	}
}

func TestFormatRoundHidesDealerHoleCard(t *testing.T) {
	r := &Round{
		Bet:         100,
		Player:      []Card{{Rank: 10, Suit: Hearts}, {Rank: 6, Suit: Clubs}},
		Dealer:      []Card{{Rank: King, Suit: Spades}, {Rank: Ace, Suit: Diamonds}},
		PlayerScore: 16,
		DealerScore: 21,
	}
	got := FormatRound(r)
	want := "🃏 Ставка: 100 очков\nВы: 10♥ 6♣ (16)\nДилер: K♠ 🂠\n\n!еще — взять карту, !хватит — остановиться"
	if got != want {
		t.Fatalf("FormatRound = %q, want %q", got, want)
	}
}
