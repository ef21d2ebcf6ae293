package blackjack

import (
	"fmt"

	"github.com/cardhouse/blackjackd/internal/deck"
)

// Hand is an ordered sequence of cards belonging to the player or dealer
type Hand []deck.Card

// Value is the blackjack total of a hand. Total counts a remaining ace as
// 11 where that keeps the hand at 21 or under; Low is the alternate total
// with that ace counted as 1. For hard hands Low == Total.
type Value struct {
	Total int
	Low   int
	Soft  bool
}

// Display formats the value for clients, e.g. "7/17" for a soft hand
// holding A+6, or "17" for any hard hand.
func (v Value) Display() string {
	if v.Soft {
		return fmt.Sprintf("%d/%d", v.Low, v.Total)
	}
	return fmt.Sprintf("%d", v.Total)
}

// HandValue computes the value of a hand. Aces start at 11 and are
// downgraded to 1 one at a time while the total exceeds 21. Hidden cards
// are excluded unless revealHidden is set, so a pre-reveal dealer hand
// evaluates to just its up-card.
func HandValue(h Hand, revealHidden bool) Value {
	total := 0
	softAces := 0
	for _, c := range h {
		if c.Hidden && !revealHidden {
			continue
		}
		total += c.Value()
		if c.IsAce() {
			softAces++
		}
	}
	for total > 21 && softAces > 0 {
		total -= 10
		softAces--
	}
	v := Value{Total: total, Low: total, Soft: softAces > 0}
	if v.Soft {
		v.Low = total - 10
	}
	return v
}

// IsBust returns true if the hand's best total exceeds 21
func IsBust(h Hand) bool {
	return HandValue(h, true).Total > 21
}

// IsNaturalBlackjack returns true for 21 from exactly the first two cards.
// A 21 reached by hitting, or on a post-split hand, is not a natural.
func IsNaturalBlackjack(h Hand) bool {
	return len(h) == 2 && HandValue(h, true).Total == 21
}

// CanSplitPair returns true if the hand is two cards of equal blackjack
// value. Any two ten-value cards (10, J, Q, K) count as a pair.
func CanSplitPair(h Hand) bool {
	return len(h) == 2 && h[0].Value() == h[1].Value()
}

// IsSoft returns true if an ace is currently counted as 11
func IsSoft(h Hand) bool {
	return HandValue(h, true).Soft
}
