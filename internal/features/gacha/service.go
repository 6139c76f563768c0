// Package gacha - service.go: серия круток, каждая в своей транзакции.
package gacha

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"melbot/internal/assets"
	"melbot/internal/common"
	"melbot/internal/features/ledger"
	"melbot/internal/metrics"
)

// Wallet - операции леджера, нужные крутке.
type Wallet interface {
	TotalBalance(ctx context.Context, userID string) (int64, error)
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx pgx.Tx) error) error
	BalanceTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
	AppendTx(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason string) error
}

// Service крутит гачу.
type Service struct {
	repo   *Repository
	wallet Wallet
	assets assets.Directory
	rates  Rates
	roll   func() float64
	pick   func(n int) int
}

// NewService создаёт сервис гачи. dir может быть nil: тогда награды без ссылок.
func NewService(repo *Repository, wallet Wallet, dir assets.Directory, rates Rates) *Service {
	return &Service{
		repo:   repo,
		wallet: wallet,
		assets: dir,
		rates:  rates,
		roll:   rand.Float64,
		pick:   rand.Intn,
	}
}

// Rates возвращает параметры гачи.
func (s *Service) Rates() Rates {
	return s.rates
}

// MaxPulls - сколько круток доступно на текущий баланс.
func (s *Service) MaxPulls(ctx context.Context, userID string) (int, error) {
	balance, err := s.wallet.TotalBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if balance < s.rates.Price {
		return 0, nil
	}
	return int(balance / s.rates.Price), nil
}

// PityInfo возвращает текущие счётчики гаранта.
func (s *Service) PityInfo(ctx context.Context, userID string) (Pity, error) {
	p, err := s.repo.Pity(ctx, userID)
	return p, common.Storage(err)
}

// Pull делает amount круток подряд. Баланс на всю серию проверяется заранее.
// Если баланс кончился посреди серии, возвращаются уже сделанные крутки.
func (s *Service) Pull(ctx context.Context, userID string, amount int) (*PullResult, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	balance, err := s.wallet.TotalBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < s.rates.Price*int64(amount) {
		return nil, common.ErrInsufficientFunds
	}

	listing := s.listing(ctx)
	result := &PullResult{BatchID: common.NewID(), Balance: balance}
	for i := 0; i < amount; i++ {
		reward, bal, err := s.pullOne(ctx, userID, listing)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			if !errors.Is(err, common.ErrInsufficientFunds) {
				log.WithError(err).WithField("batch_id", result.BatchID).Warn("Серия круток прервана")
			}
			break
		}
		result.Rewards = append(result.Rewards, reward)
		result.Balance = bal
		if reward.Rarity > result.Best.Rarity {
			result.Best = reward
		}
	}

	log.WithFields(log.Fields{
		"batch_id": result.BatchID,
		"user_id":  userID,
		"pulls":    len(result.Rewards),
		"best":     result.Best.Rarity,
	}).Info("Крутки гачи")
	return result, nil
}

// pullOne: списание, подсчёт гаранта, бросок и запись крутки в одной транзакции.
func (s *Service) pullOne(ctx context.Context, userID string, listing []assets.Entry) (Reward, int64, error) {
	var (
		reward  Reward
		balance int64
	)
	err := s.wallet.WithUserLock(ctx, userID, func(ctx context.Context, tx pgx.Tx) error {
		current, err := s.wallet.BalanceTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current < s.rates.Price {
			return common.ErrInsufficientFunds
		}
		if err := s.wallet.AppendTx(ctx, tx, userID, -s.rates.Price, ledger.ReasonGacha); err != nil {
			return err
		}

		pity, err := s.repo.PityTx(ctx, tx, userID)
		if err != nil {
			return common.Storage(err)
		}
		reward = s.reward(listing, s.rates.Decide(pity, s.roll()))
		if err := s.repo.InsertTx(ctx, tx, userID, reward); err != nil {
			return common.Storage(err)
		}
		balance = current - s.rates.Price
		return nil
	})
	if err != nil {
		return Reward{}, 0, err
	}
	metrics.GachaPulls.WithLabelValues(fmt.Sprintf("%d", reward.Rarity)).Inc()
	return reward, balance, nil
}

// listing загружает каталог наград один раз на серию. Сбой каталога не мешает крутить.
func (s *Service) listing(ctx context.Context) []assets.Entry {
	if s.assets == nil {
		return nil
	}
	entries, err := s.assets.List(ctx)
	if err != nil {
		log.WithError(err).Warn("Каталог наград недоступен, награды без ссылок")
		return nil
	}
	return entries
}

// reward выбирает случайный файл из папки "<n> Stars".
func (s *Service) reward(listing []assets.Entry, rarity int) Reward {
	candidates := assets.InFolder(listing, assets.RarityFolder(rarity))
	if len(candidates) == 0 {
		return Reward{Rarity: rarity, Name: fmt.Sprintf("%d★", rarity)}
	}
	e := candidates[s.pick(len(candidates))]
	return Reward{Rarity: rarity, Name: e.Name, Link: e.Link}
}
