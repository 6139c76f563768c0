// Package blackjack - партия против дилера. Ставка удерживается при старте,
// выигрыш начисляется при остановке; брошенные партии снимает фоновая чистка.
package blackjack

import (
	"math/rand"
	"strconv"
	"time"
)

type Suit int

type Rank int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	var r string
	switch c.Rank {
	case Ace:
		r = "A"
	case Jack:
		r = "J"
	case Queen:
		r = "Q"
	case King:
		r = "K"
	default:
		r = strconv.Itoa(int(c.Rank))
	}
	s := map[Suit]string{Hearts: "♥", Diamonds: "♦", Clubs: "♣", Spades: "♠"}[c.Suit]
	return r + s
}

// Deck - колода, карты берутся с конца.
type Deck struct {
	cards []Card
}

// NewDeck возвращает неперемешанную колоду из 52 карт.
func NewDeck() *Deck {
	cards := make([]Card, 0, 52)
	for s := Hearts; s <= Spades; s++ {
		for r := Ace; r <= King; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return &Deck{cards: cards}
}

// NewShuffledDeck - колода, перемешанная от текущего времени.
func NewShuffledDeck() *Deck {
	d := NewDeck()
	d.Shuffle(rand.New(rand.NewSource(time.Now().UnixNano())))
	return d
}

func (d *Deck) Shuffle(rnd *rand.Rand) {
	rnd.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw снимает верхнюю карту. Пустая колода собирается заново.
func (d *Deck) Draw() Card {
	if len(d.cards) == 0 {
		*d = *NewShuffledDeck()
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Score считает очки руки: картинки по 10, туз 11, если это не даёт перебор, иначе 1.
func Score(hand []Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		switch {
		case c.Rank == Ace:
			aces++
			total++
		case c.Rank >= 10:
			total += 10
		default:
			total += int(c.Rank)
		}
	}
	if aces > 0 && total+10 <= 21 {
		total += 10
	}
	return total
}
