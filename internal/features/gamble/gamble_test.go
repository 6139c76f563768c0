package gamble

import (
	"context"
	"errors"
	"testing"

	"melbot/internal/common"
	"melbot/internal/config"
)

type fakeWallet struct {
	balance int64
	writes  []int64
}

func (w *fakeWallet) TotalBalance(context.Context, string) (int64, error) {
	return w.balance, nil
}

func (w *fakeWallet) ApplyChecked(_ context.Context, _ string, delta, required int64, _ string) (int64, error) {
	if w.balance < required {
		return 0, common.ErrInsufficientFunds
	}
	w.balance += delta
	w.writes = append(w.writes, delta)
	return w.balance, nil
}

func newTestService(balance int64, roll float64) (*Service, *fakeWallet) {
	w := &fakeWallet{balance: balance}
	svc := NewService(w, &config.Config{GambleLimit: 1000, GambleWinChance: 0.45})
	svc.roll = func() float64 { return roll }
	return svc, w
}

func TestParseBet(t *testing.T) {
	tests := []struct {
		arg     string
		balance int64
		want    int64
		wantErr bool
	}{
		{"100", 500, 100, false},
		{"all", 500, 500, false},
		{"ALL", 500, 500, false},
		{"half", 501, 250, false},
		{"max", 5000, 1000, false},
		{"max", 300, 300, false},
		{"много", 300, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBet(tt.arg, tt.balance, 1000)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBet(%q, %d) = %d, %v", tt.arg, tt.balance, got, err)
		}
	}
}

func TestGambleWinAndLoss(t *testing.T) {
	svc, w := newTestService(200, 0.1)
	res, err := svc.Gamble(context.Background(), "u1", "50")
	if err != nil {
		t.Fatalf("Gamble: %v", err)
	}
	if !res.Won || res.Delta != 50 || res.Balance != 250 {
		t.Fatalf("win result = %+v", res)
	}

	svc.roll = func() float64 { return 0.45 }
	res, err = svc.Gamble(context.Background(), "u1", "all")
	if err != nil {
		t.Fatalf("Gamble: %v", err)
	}
	if res.Won || res.Delta != -250 || res.Balance != 0 {
		t.Fatalf("loss result = %+v", res)
	}
	if len(w.writes) != 2 {
		t.Fatalf("writes = %v, want 2", w.writes)
	}
}

func TestGambleRejections(t *testing.T) {
	tests := []struct {
		arg     string
		balance int64
		want    error
	}{
		{"0", 100, common.ErrInvalidAmount},
		{"-5", 100, common.ErrInvalidAmount},
		{"all", 0, common.ErrInvalidAmount},
		{"101", 100, common.ErrInsufficientFunds},
		{"1001", 5000, common.ErrInvalidBet},
		{"abc", 100, common.ErrInvalidAmount},
	}
	for _, tt := range tests {
		svc, w := newTestService(tt.balance, 0.1)
		if _, err := svc.Gamble(context.Background(), "u1", tt.arg); !errors.Is(err, tt.want) {
			t.Errorf("Gamble(%q) err = %v, want %v", tt.arg, err, tt.want)
		}
		if len(w.writes) != 0 {
			t.Errorf("Gamble(%q) wrote %v", tt.arg, w.writes)
		}
	}
}
