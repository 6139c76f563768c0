package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"melbot/internal/common"
	"melbot/internal/config"
	"melbot/internal/testutil"
)

func newTestLedger(t *testing.T) (*Service, *Repository, *pgxpool.Pool) {
	t.Helper()
	pool := testutil.OpenTestPool(t)
	repo := NewRepository(pool)
	svc := NewService(repo, &config.Config{EconomyLeaderboardSize: 10, EconomyLeaderboardRoster: true})
	return svc, repo, pool
}

func mustInsertAt(t *testing.T, repo *Repository, userID string, ts, delta int64) {
	t.Helper()
	if err := repo.insertAt(context.Background(), repo.db, userID, ts, delta, "test"); err != nil {
		t.Fatalf("insertAt: %v", err)
	}
}

func mustTotal(t *testing.T, svc *Service, userID string) int64 {
	t.Helper()
	total, err := svc.TotalBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("TotalBalance(%s): %v", userID, err)
	}
	return total
}

func TestUnknownUserHasZeroBalance(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	if got := mustTotal(t, svc, "nobody"); got != 0 {
		t.Fatalf("total = %d, want 0", got)
	}
	live, err := svc.LiveBalance(ctx, "nobody")
	if err != nil || live != 0 {
		t.Fatalf("live = %d, err = %v", live, err)
	}
}

func TestConservationAcrossInterleavedAggregation(t *testing.T) {
	svc, repo, _ := newTestLedger(t)
	ctx := context.Background()
	agg := NewAggregator(repo, 24*time.Hour)

	deltas := []struct {
		user  string
		ts    int64
		delta int64
	}{
		{"a", 100, 10}, {"b", 105, 7}, {"a", 110, -3},
		{"a", 200, 25}, {"b", 210, -2}, {"a", 300, 1},
		{"b", 305, 40}, {"a", 400, -8},
	}
	want := map[string]int64{}
	cutoffs := map[int]int64{2: 150, 5: 250, 7: 250}

	for i, d := range deltas {
		mustInsertAt(t, repo, d.user, d.ts, d.delta)
		want[d.user] += d.delta
		if c, ok := cutoffs[i]; ok {
			if _, err := agg.AggregateBefore(ctx, c); err != nil {
				t.Fatalf("AggregateBefore(%d): %v", c, err)
			}
		}
		for user, total := range want {
			if got := mustTotal(t, svc, user); got != total {
				t.Fatalf("step %d: total(%s) = %d, want %d", i, user, got, total)
			}
		}
	}

	if _, err := agg.AggregateBefore(ctx, 1000); err != nil {
		t.Fatalf("final AggregateBefore: %v", err)
	}
	for user, total := range want {
		if got := mustTotal(t, svc, user); got != total {
			t.Fatalf("after full fold: total(%s) = %d, want %d", user, got, total)
		}
		live, _ := svc.LiveBalance(ctx, user)
		if live != 0 {
			t.Fatalf("live(%s) = %d after full fold", user, live)
		}
	}
}

func TestAggregateTwiceIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestLedger(t)
	ctx := context.Background()
	agg := NewAggregator(repo, 24*time.Hour)

	mustInsertAt(t, repo, "a", 10, 100)
	mustInsertAt(t, repo, "a", 20, -30)
	mustInsertAt(t, repo, "b", 15, 5)
	mustInsertAt(t, repo, "a", 500, 1)

	first, err := agg.AggregateBefore(ctx, 100)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Users != 2 || first.Events != 3 {
		t.Fatalf("first pass = %+v, want 2 users / 3 events", first)
	}
	totalA, totalB := mustTotal(t, svc, "a"), mustTotal(t, svc, "b")

	second, err := agg.AggregateBefore(ctx, 100)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Users != 0 || second.Events != 0 {
		t.Fatalf("second pass changed state: %+v", second)
	}
	if mustTotal(t, svc, "a") != totalA || mustTotal(t, svc, "b") != totalB {
		t.Fatalf("totals drifted after repeated fold")
	}
	if totalA != 71 || totalB != 5 {
		t.Fatalf("totals = %d/%d, want 71/5", totalA, totalB)
	}
}

func TestAggregateScenarioThreeHundredPlusFifty(t *testing.T) {
	svc, repo, pool := newTestLedger(t)
	ctx := context.Background()
	agg := NewAggregator(repo, 24*time.Hour)

	const T = int64(1_700_000_000)
	if _, err := pool.Exec(ctx,
		`INSERT INTO points_agg (userid, total_points, last_update) VALUES ('u', 300, $1)`, T-3600,
	); err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}
	mustInsertAt(t, repo, "u", T, 50)

	if got := mustTotal(t, svc, "u"); got != 350 {
		t.Fatalf("before fold total = %d, want 350", got)
	}
	if _, err := agg.AggregateBefore(ctx, T+1); err != nil {
		t.Fatalf("AggregateBefore: %v", err)
	}
	if got := mustTotal(t, svc, "u"); got != 350 {
		t.Fatalf("after fold total = %d, want 350", got)
	}

	a, err := repo.GetAggregate(ctx, "u")
	if err != nil {
		t.Fatalf("GetAggregate: %v", err)
	}
	if a.Total != 350 || a.LastUpdate != T {
		t.Fatalf("aggregate = %+v, want total 350 last_update %d", a, T)
	}
	live, _ := svc.LiveBalance(ctx, "u")
	if live != 0 {
		t.Fatalf("live = %d, want 0", live)
	}
}

func TestGuardedUserKeepsEventsLive(t *testing.T) {
	svc, repo, pool := newTestLedger(t)
	ctx := context.Background()
	agg := NewAggregator(repo, 24*time.Hour)

	if _, err := pool.Exec(ctx,
		`INSERT INTO points_agg (userid, total_points, last_update) VALUES ('late', 40, 1000)`,
	); err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}
	// событие старше last_update: защита не даёт его свернуть
	mustInsertAt(t, repo, "late", 500, 9)

	res, err := agg.AggregateBefore(ctx, 900)
	if err != nil {
		t.Fatalf("AggregateBefore: %v", err)
	}
	if res.Users != 0 || res.Events != 0 {
		t.Fatalf("guard did not hold: %+v", res)
	}
	if got := mustTotal(t, svc, "late"); got != 49 {
		t.Fatalf("total = %d, want 49", got)
	}
}

func TestAggregatorRejectsOverlap(t *testing.T) {
	agg := NewAggregator(nil, time.Hour)
	agg.mu.Lock()
	defer agg.mu.Unlock()

	if _, err := agg.Run(context.Background()); !errors.Is(err, common.ErrAggregationBusy) {
		t.Fatalf("err = %v, want ErrAggregationBusy", err)
	}
}

func TestDebitChecksBalance(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u", 100, ReasonAdminAdd); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := svc.Debit(ctx, "u", 101, PurchaseReason("Корона")); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	balance, err := svc.Debit(ctx, "u", 100, PurchaseReason("Корона"))
	if err != nil || balance != 0 {
		t.Fatalf("Debit = %d, %v", balance, err)
	}
	if _, err := svc.Debit(ctx, "u", 0, "x"); !errors.Is(err, common.ErrInvalidAmount) {
		t.Fatalf("zero debit err = %v", err)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u", 50, ReasonAdminAdd); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, "u", 10, ReasonGamble); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 5 {
		t.Fatalf("successful debits = %d, want 5", ok)
	}
	if got := mustTotal(t, svc, "u"); got != 0 {
		t.Fatalf("total = %d, want 0", got)
	}
}

func TestLeaderboardScopedToRoster(t *testing.T) {
	svc, repo, pool := newTestLedger(t)
	ctx := context.Background()

	if _, err := pool.Exec(ctx,
		`INSERT INTO users (userid, username, first_name) VALUES ('1', 'alice', 'Alice'), ('2', '', 'Bob')`,
	); err != nil {
		t.Fatalf("seed roster: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO points_agg (userid, total_points, last_update) VALUES ('2', 70, 1)`,
	); err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}
	mustInsertAt(t, repo, "1", 10, 30)
	mustInsertAt(t, repo, "1", 20, 20)
	mustInsertAt(t, repo, "2", 30, 5)
	mustInsertAt(t, repo, "ghost", 40, 1000)

	board, err := svc.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("roster board = %+v, want 2 rows", board)
	}
	if board[0].UserID != "2" || board[0].Total != 75 || board[0].DisplayName() != "Bob" {
		t.Fatalf("first = %+v", board[0])
	}
	if board[1].UserID != "1" || board[1].Total != 50 || board[1].DisplayName() != "@alice" {
		t.Fatalf("second = %+v", board[1])
	}

	full, err := repo.Leaderboard(ctx, 1, false)
	if err != nil {
		t.Fatalf("Leaderboard without roster: %v", err)
	}
	if len(full) != 1 || full[0].UserID != "ghost" || full[0].DisplayName() != "idghost" {
		t.Fatalf("unscoped board = %+v", full)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, repo, _ := newTestLedger(t)
	ctx := context.Background()

	mustInsertAt(t, repo, "u", 10, 1)
	mustInsertAt(t, repo, "u", 30, 3)
	mustInsertAt(t, repo, "u", 20, 2)

	events, err := svc.History(ctx, "u", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 2 || events[0].Delta != 3 || events[1].Delta != 2 {
		t.Fatalf("history = %+v", events)
	}
}

func TestAppendSwallowsStorageErrors(t *testing.T) {
	svc, _, pool := newTestLedger(t)
	pool.Close()

	// не должно паниковать и не должно возвращать ошибку вызывающему
	svc.Append(context.Background(), "u", 1, ReasonMessage)
}
