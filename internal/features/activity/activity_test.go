package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"melbot/internal/config"
)

func TestThrottleCooldown(t *testing.T) {
	th := NewThrottle(time.Hour)
	defer th.Close()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if !th.TryCredit("u1", t0, time.Minute) {
		t.Fatal("first credit rejected")
	}
	if th.TryCredit("u1", t0.Add(59*time.Second), time.Minute) {
		t.Fatal("credit inside cooldown allowed")
	}
	if !th.TryCredit("u2", t0.Add(59*time.Second), time.Minute) {
		t.Fatal("other user throttled")
	}
	if !th.TryCredit("u1", t0.Add(time.Minute), time.Minute) {
		t.Fatal("credit after cooldown rejected")
	}
	// отказ не сдвигает отсчёт
	if th.TryCredit("u1", t0.Add(90*time.Second), time.Minute) {
		t.Fatal("credit inside second cooldown allowed")
	}
	if !th.TryCredit("u1", t0.Add(2*time.Minute), time.Minute) {
		t.Fatal("credit after second cooldown rejected")
	}
}

func TestThrottleConcurrentSingleWinner(t *testing.T) {
	th := NewThrottle(time.Hour)
	defer th.Close()
	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.TryCredit("u1", now, time.Minute) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 1 {
		t.Fatalf("allowed = %d, want 1", allowed)
	}
}

func TestThrottlePrune(t *testing.T) {
	th := NewThrottle(time.Minute)
	defer th.Close()
	t0 := time.Now()

	th.TryCredit("old", t0, time.Minute)
	th.TryCredit("new", t0.Add(50*time.Second), time.Minute)
	th.prune(t0.Add(time.Minute))

	if th.Len() != 1 {
		t.Fatalf("len = %d, want 1", th.Len())
	}
}

type recordingAppender struct {
	calls []int64
}

func (r *recordingAppender) Append(_ context.Context, _ string, delta int64, reason string) {
	if reason != "message" {
		panic("unexpected reason " + reason)
	}
	r.calls = append(r.calls, delta)
}

func TestOnMessageCreditsOncePerCooldown(t *testing.T) {
	rec := &recordingAppender{}
	th := NewThrottle(time.Hour)
	defer th.Close()
	svc := NewService(rec, th, &config.Config{EconomyMessageCooldown: time.Minute, EconomyPointsPerMessage: 3})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	if !svc.OnMessage(ctx, 42) {
		t.Fatal("first message not credited")
	}
	if svc.OnMessage(ctx, 42) {
		t.Fatal("second message credited inside cooldown")
	}
	now = now.Add(time.Minute)
	if !svc.OnMessage(ctx, 42) {
		t.Fatal("message after cooldown not credited")
	}
	if len(rec.calls) != 2 || rec.calls[0] != 3 {
		t.Fatalf("appends = %v", rec.calls)
	}
}
