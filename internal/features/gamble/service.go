// Package gamble - ставка «всё или ничего»: выигрыш удваивает ставку,
// проигрыш её забирает. Одна проверенная запись в леджер на ставку.
package gamble

import (
	"context"
	"math/rand"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
	"melbot/internal/config"
	"melbot/internal/features/ledger"
)

// Wallet - операции леджера, нужные ставке.
type Wallet interface {
	TotalBalance(ctx context.Context, userID string) (int64, error)
	ApplyChecked(ctx context.Context, userID string, delta, required int64, reason string) (int64, error)
}

// Result - итог ставки.
type Result struct {
	Bet     int64
	Won     bool
	Delta   int64
	Balance int64
}

type Service struct {
	wallet    Wallet
	limit     int64
	winChance float64
	roll      func() float64
}

func NewService(wallet Wallet, cfg *config.Config) *Service {
	return &Service{
		wallet:    wallet,
		limit:     cfg.GambleLimit,
		winChance: cfg.GambleWinChance,
		roll:      rand.Float64,
	}
}

// Limit - максимальная ставка.
func (s *Service) Limit() int64 {
	return s.limit
}

// ParseBet переводит аргумент в сумму: число, all, half или max (не больше лимита).
func ParseBet(arg string, balance, limit int64) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "all", "все", "всё":
		return balance, nil
	case "half", "половина":
		return balance / 2, nil
	case "max", "макс":
		return min(balance, limit), nil
	}
	bet, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidAmount
	}
	return bet, nil
}

// Gamble разыгрывает ставку arg.
func (s *Service) Gamble(ctx context.Context, userID string, arg string) (*Result, error) {
	balance, err := s.wallet.TotalBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	bet, err := ParseBet(arg, balance, s.limit)
	if err != nil {
		return nil, err
	}
	switch {
	case bet <= 0:
		return nil, common.ErrInvalidAmount
	case bet > balance:
		return nil, common.ErrInsufficientFunds
	case bet > s.limit:
		return nil, common.ErrInvalidBet
	}

	won := s.roll() < s.winChance
	delta := -bet
	if won {
		delta = bet
	}

	newBalance, err := s.wallet.ApplyChecked(ctx, userID, delta, bet, ledger.ReasonGamble)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"bet":     bet,
		"won":     won,
	}).Info("Ставка сыграна")
	return &Result{Bet: bet, Won: won, Delta: delta, Balance: newBalance}, nil
}
