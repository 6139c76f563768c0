// Package blackjack - service.go: старт, добор, остановка и чистка по таймауту.
package blackjack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
	"melbot/internal/config"
	"melbot/internal/features/ledger"
	"melbot/internal/metrics"
)

const dealerStandsOn = 17

// Исходы партии.
const (
	OutcomeInProgress = ""
	OutcomeWin        = "win"
	OutcomeLose       = "lose"
	OutcomeBust       = "bust"
	OutcomeTimeout    = "timeout"
)

// Wallet - операции леджера, которые нужны партии.
type Wallet interface {
	Credit(ctx context.Context, userID string, amount int64, reason string) (int64, error)
	Debit(ctx context.Context, userID string, amount int64, reason string) (int64, error)
}

// Notifier доставляет сообщение в чат. Вызывается асинхронно.
type Notifier func(chatID int64, text string)

// Round - снимок партии для вывода.
type Round struct {
	Bet         int64
	Player      []Card
	Dealer      []Card
	PlayerScore int
	DealerScore int
	Outcome     string
	Payout      int64 // начислено при выигрыше
	Balance     int64 // баланс после последней записи в леджер
}

// Done сообщает, что партия завершена.
func (r *Round) Done() bool {
	return r.Outcome != OutcomeInProgress
}

// Service ведёт партии.
type Service struct {
	wallet     Wallet
	registry   *Registry
	minBet     int64
	maxBet     int64
	multiplier decimal.Decimal
	timeout    time.Duration
	notify     Notifier
	newDeck    func() *Deck
	now        func() time.Time
}

// NewService создаёт сервис блэкджека. notify может быть nil.
func NewService(wallet Wallet, cfg *config.Config, notify Notifier) (*Service, error) {
	multiplier, err := decimal.NewFromString(cfg.BlackjackPayout)
	if err != nil {
		return nil, fmt.Errorf("некорректный множитель выплаты %q: %w", cfg.BlackjackPayout, err)
	}
	return &Service{
		wallet:     wallet,
		registry:   NewRegistry(),
		minBet:     cfg.BlackjackMinBet,
		maxBet:     cfg.BlackjackMaxBet,
		multiplier: multiplier,
		timeout:    cfg.BlackjackSessionTimeout,
		notify:     notify,
		newDeck:    NewShuffledDeck,
		now:        time.Now,
	}, nil
}

// SetNotifier подключает доставку уведомлений после создания бота.
func (s *Service) SetNotifier(notify Notifier) {
	s.notify = notify
}

// Active - число партий в процессе.
func (s *Service) Active() int {
	return s.registry.Len()
}

// Start удерживает ставку и раздаёт по две карты игроку и дилеру.
func (s *Service) Start(ctx context.Context, userID string, chatID int64, bet int64) (*Round, error) {
	if bet < s.minBet || bet > s.maxBet {
		return nil, common.ErrInvalidBet
	}

	sess := &Session{
		ID:        common.NewID(),
		UserID:    userID,
		ChatID:    chatID,
		Bet:       bet,
		StartedAt: s.now(),
		deck:      s.newDeck(),
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !s.registry.reserve(sess) {
		return nil, common.ErrAlreadyPlaying
	}

	balance, err := s.wallet.Debit(ctx, userID, bet, ledger.ReasonBlackjackBet)
	if err != nil {
		sess.done = true
		s.registry.remove(sess)
		if errors.Is(err, common.ErrInsufficientFunds) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidBet, err)
		}
		return nil, err
	}

	for i := 0; i < 2; i++ {
		sess.Player = append(sess.Player, sess.deck.Draw())
		sess.Dealer = append(sess.Dealer, sess.deck.Draw())
	}

	log.WithFields(log.Fields{
		"session_id": sess.ID,
		"user_id":    userID,
		"bet":        bet,
	}).Info("Партия блэкджека начата")
	return s.snapshot(sess, OutcomeInProgress, 0, balance), nil
}

// Hit добирает карту. Перебор завершает партию проигрышем: ставка уже удержана.
func (s *Service) Hit(ctx context.Context, userID string) (*Round, error) {
	sess, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	// после !хватит рука закрыта: повторить можно только остановку
	if sess.stood {
		return nil, common.ErrNoActiveSession
	}

	sess.Player = append(sess.Player, sess.deck.Draw())
	if Score(sess.Player) <= 21 {
		return s.snapshot(sess, OutcomeInProgress, 0, 0), nil
	}

	s.finish(sess, OutcomeBust)
	return s.snapshot(sess, OutcomeBust, 0, 0), nil
}

// Stand доигрывает за дилера и рассчитывает партию.
// Если начисление выигрыша не прошло, партия остаётся закрытой для добора:
// остановку можно повторить, а чистка по таймауту сама довыплатит выигрыш.
func (s *Service) Stand(ctx context.Context, userID string) (*Round, error) {
	sess, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	sess.stood = true
	for Score(sess.Dealer) < dealerStandsOn {
		sess.Dealer = append(sess.Dealer, sess.deck.Draw())
	}
	player, dealer := Score(sess.Player), Score(sess.Dealer)

	if dealer <= 21 && player <= dealer {
		s.finish(sess, OutcomeLose)
		return s.snapshot(sess, OutcomeLose, 0, 0), nil
	}

	payout, balance, err := s.payWin(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.snapshot(sess, OutcomeWin, payout, balance), nil
}

// payWin начисляет выигрыш и закрывает партию. Вызывается под sess.mu.
func (s *Service) payWin(ctx context.Context, sess *Session) (int64, int64, error) {
	payout := s.Payout(sess.Bet)
	balance, err := s.wallet.Credit(ctx, sess.UserID, payout, ledger.ReasonBlackjackWin)
	if err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Error("Ошибка начисления выигрыша в блэкджеке")
		return 0, 0, err
	}
	s.finish(sess, OutcomeWin)
	return payout, balance, nil
}

// Payout - сумма к начислению при выигрыше: ставка, умноженная на множитель.
func (s *Service) Payout(bet int64) int64 {
	return decimal.NewFromInt(bet).Mul(s.multiplier).Round(0).IntPart()
}

// SweepExpired завершает проигрышем партии старше таймаута и уведомляет чат.
// Партии, где игрок уже остановился и выиграл, но начисление сорвалось,
// не сгорают: чистка повторяет начисление. Возвращает число снятых партий.
func (s *Service) SweepExpired(ctx context.Context) int {
	now := s.now()
	swept := 0
	for _, sess := range s.registry.expired(now, s.timeout) {
		if ctx.Err() != nil {
			break
		}
		sess.mu.Lock()
		if sess.done || now.Sub(sess.StartedAt) < s.timeout {
			sess.mu.Unlock()
			continue
		}
		chatID, bet := sess.ChatID, sess.Bet
		var notice string
		if sess.stood {
			payout, _, err := s.payWin(ctx, sess)
			sess.mu.Unlock()
			if err != nil {
				continue
			}
			notice = fmt.Sprintf("🃏 Выигрыш в блэкджеке зачислен: %s", common.FormatPointsAmount(payout))
		} else {
			s.finish(sess, OutcomeTimeout)
			sess.mu.Unlock()
			notice = fmt.Sprintf("⏰ Партия в блэкджек отменена по таймауту, ставка %s сгорела",
				common.FormatBalance(bet))
		}
		swept++

		if s.notify != nil {
			go s.notify(chatID, notice)
		}
	}
	if swept > 0 {
		log.WithField("count", swept).Info("Брошенные партии блэкджека закрыты")
	}
	return swept
}

// lockSession возвращает активную партию под её блокировкой.
func (s *Service) lockSession(userID string) (*Session, error) {
	sess, ok := s.registry.get(userID)
	if !ok {
		return nil, common.ErrNoActiveSession
	}
	sess.mu.Lock()
	if sess.done {
		sess.mu.Unlock()
		return nil, common.ErrNoActiveSession
	}
	return sess, nil
}

// finish вызывается под sess.mu.
func (s *Service) finish(sess *Session, outcome string) {
	sess.done = true
	s.registry.remove(sess)
	metrics.BlackjackSettled.WithLabelValues(outcome).Inc()
	log.WithFields(log.Fields{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
		"bet":        sess.Bet,
		"outcome":    outcome,
	}).Info("Партия блэкджека завершена")
}

func (s *Service) snapshot(sess *Session, outcome string, payout, balance int64) *Round {
	return &Round{
		Bet:         sess.Bet,
		Player:      append([]Card(nil), sess.Player...),
		Dealer:      append([]Card(nil), sess.Dealer...),
		PlayerScore: Score(sess.Player),
		DealerScore: Score(sess.Dealer),
		Outcome:     outcome,
		Payout:      payout,
		Balance:     balance,
	}
}
