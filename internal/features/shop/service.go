// Package shop - service.go: каталог и покупка.
package shop

import (
	"context"
	"errors"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"melbot/internal/assets"
	"melbot/internal/common"
	"melbot/internal/features/ledger"
	"melbot/internal/metrics"
)

// Wallet - проверенное списание из леджера.
type Wallet interface {
	ApplyChecked(ctx context.Context, userID string, delta, required int64, reason string) (int64, error)
}

// invalidator - каталог с кэшем листинга.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service управляет магазином.
type Service struct {
	repo   *Repository
	wallet Wallet
	assets assets.Directory // может быть nil: покупка работает и без файлов
}

// NewService создаёт сервис магазина.
func NewService(repo *Repository, wallet Wallet, dir assets.Directory) *Service {
	return &Service{repo: repo, wallet: wallet, assets: dir}
}

// AddItem добавляет товар. Имя уникально, цена не отрицательная.
func (s *Service) AddItem(ctx context.Context, name string, price int64, description string, file string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" || price < 0 {
		return nil, common.ErrInvalidItem
	}
	item := &Item{Name: name, Price: price, Description: strings.TrimSpace(description)}
	if file = strings.TrimSpace(file); file != "" {
		item.File = &file
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, common.ErrDuplicateItem) {
			return nil, err
		}
		return nil, common.Storage(err)
	}

	// новый файл мог ещё не попасть в закэшированный листинг
	if inv, ok := s.assets.(invalidator); ok && item.File != nil {
		if err := inv.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("Не удалось сбросить кэш каталога")
		}
	}

	log.WithFields(log.Fields{"item_id": item.ID, "name": item.Name, "price": item.Price}).Info("Товар добавлен")
	return item, nil
}

// RemoveItem удаляет товар по ID (если ref - число) или по имени. Возвращает 0 или 1.
func (s *Service) RemoveItem(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		n, err := s.repo.DeleteByID(ctx, id)
		if err != nil {
			return 0, common.Storage(err)
		}
		if n > 0 {
			return n, nil
		}
	}
	n, err := s.repo.DeleteByName(ctx, ref)
	return n, common.Storage(err)
}

// ListItems возвращает каталог в порядке добавления.
func (s *Service) ListItems(ctx context.Context) ([]*Item, error) {
	items, err := s.repo.List(ctx)
	return items, common.Storage(err)
}

// Buy списывает цену товара с "bought item <name>", если баланса хватает.
// Поиск файла идёт после фиксации списания, его сбой покупку не отменяет.
func (s *Service) Buy(ctx context.Context, userID string, ref string) (*Purchase, error) {
	item, err := s.resolve(ctx, ref)
	if err != nil {
		metrics.ShopPurchases.WithLabelValues("not_found").Inc()
		return nil, err
	}

	balance, err := s.wallet.ApplyChecked(ctx, userID, -item.Price, item.Price, ledger.PurchaseReason(item.Name))
	if err != nil {
		if errors.Is(err, common.ErrInsufficientFunds) {
			metrics.ShopPurchases.WithLabelValues("insufficient").Inc()
		} else {
			metrics.ShopPurchases.WithLabelValues("failed").Inc()
		}
		return nil, err
	}
	metrics.ShopPurchases.WithLabelValues("ok").Inc()

	p := &Purchase{Item: item, Balance: balance}
	if item.File != nil && s.assets != nil {
		entry, ok, err := s.assets.Exists(ctx, *item.File)
		switch {
		case err != nil:
			log.WithError(err).WithField("file", *item.File).Warn("Каталог файлов недоступен")
		case !ok:
			log.WithField("file", *item.File).Warn("Файл товара не найден в каталоге")
		default:
			p.Link = entry.Link
		}
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"item":    item.Name,
		"price":   item.Price,
		"balance": balance,
	}).Info("Покупка в магазине")
	return p, nil
}

// resolve ищет товар сначала по ID (если ref - число), затем по имени.
func (s *Service) resolve(ctx context.Context, ref string) (*Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrItemNotFound
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		item, err := s.repo.GetByID(ctx, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, common.ErrItemNotFound) {
			return nil, common.Storage(err)
		}
	}
	item, err := s.repo.GetByName(ctx, ref)
	if err != nil && !errors.Is(err, common.ErrItemNotFound) {
		return nil, common.Storage(err)
	}
	return item, err
}
