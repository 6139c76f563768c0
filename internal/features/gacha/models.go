// Package gacha - крутки с гарантом (pity). Шанс 5★ растёт линейно между
// мягким и жёстким гарантом, 4★ гарантирована каждые FourStarPity круток.
package gacha

import "melbot/internal/config"

// Редкости наград.
const (
	ThreeStar = 3
	FourStar  = 4
	FiveStar  = 5
)

// Pity - сколько круток прошло с последней награды каждой редкости.
type Pity struct {
	SinceFour int
	SinceFive int
}

// Reward - выпавшая награда.
type Reward struct {
	Rarity int
	Name   string
	Link   string
}

// PullResult - итог серии круток.
type PullResult struct {
	BatchID string
	Rewards []Reward
	Best    Reward
	Balance int64
}

// Rates - параметры гачи.
type Rates struct {
	Price        int64
	FiveStarRate float64
	SoftPity     int
	HardPity     int
	FourStarRate float64
	FourStarPity int
}

// RatesFromConfig собирает параметры из конфига.
func RatesFromConfig(cfg *config.Config) Rates {
	return Rates{
		Price:        cfg.GachaPullPrice,
		FiveStarRate: cfg.GachaFiveStarRate,
		SoftPity:     cfg.GachaFiveStarSoft,
		HardPity:     cfg.GachaFiveStarPity,
		FourStarRate: cfg.GachaFourStarRate,
		FourStarPity: cfg.GachaFourStarPity,
	}
}

// FiveStarChance - шанс 5★ на очередной крутке после draws круток без неё.
//
//	draws < SoftPity            → FiveStarRate
//	SoftPity ≤ draws < HardPity → линейно от FiveStarRate к 1.0
//	draws ≥ HardPity            → 1.0
func (r Rates) FiveStarChance(draws int) float64 {
	switch {
	case draws < r.SoftPity:
		return r.FiveStarRate
	case draws < r.HardPity:
		step := (1 - r.FiveStarRate) / float64(r.HardPity-r.SoftPity)
		return r.FiveStarRate + float64(draws-r.SoftPity)*step
	default:
		return 1.0
	}
}

// Decide выбирает редкость по счётчикам и броску roll из [0, 1).
func (r Rates) Decide(p Pity, roll float64) int {
	if roll < r.FiveStarChance(p.SinceFive) {
		return FiveStar
	}
	if roll < r.FourStarRate || p.SinceFour >= r.FourStarPity {
		return FourStar
	}
	return ThreeStar
}
