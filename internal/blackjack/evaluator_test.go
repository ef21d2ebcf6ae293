package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardhouse/blackjackd/internal/deck"
)

func hand(ranks ...deck.Rank) Hand {
	suits := deck.Suits()
	h := make(Hand, len(ranks))
	for i, r := range ranks {
		h[i] = deck.NewCard(suits[i%len(suits)], r)
	}
	return h
}

func TestHandValueDisplay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		hand  Hand
		total int
		soft  bool
		want  string
	}{
		{"soft ace", hand(deck.Ace, deck.Six), 17, true, "7/17"},
		{"ace forced hard", hand(deck.Ace, deck.Six, deck.Ten), 17, false, "17"},
		{"hard hand", hand(deck.Ten, deck.Seven), 17, false, "17"},
		{"two aces", hand(deck.Ace, deck.Ace), 12, true, "2/12"},
		{"blackjack", hand(deck.Ace, deck.King), 21, true, "11/21"},
		{"many aces reduced", hand(deck.Ace, deck.Ace, deck.Ace, deck.Nine), 12, false, "12"},
		{"bust", hand(deck.Ten, deck.Nine, deck.Five), 24, false, "24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := HandValue(tt.hand, true)
			assert.Equal(t, tt.total, v.Total)
			assert.Equal(t, tt.soft, v.Soft)
			assert.Equal(t, tt.want, v.Display())
		})
	}
}

func TestHandValueExcludesHiddenCards(t *testing.T) {
	t.Parallel()
	h := hand(deck.King, deck.Nine)
	h[1].Hidden = true

	assert.Equal(t, 10, HandValue(h, false).Total)
	assert.Equal(t, 19, HandValue(h, true).Total)
}

func TestIsBust(t *testing.T) {
	t.Parallel()
	assert.True(t, IsBust(hand(deck.Ten, deck.Nine, deck.Five)))
	assert.False(t, IsBust(hand(deck.Ten, deck.Nine)))
	// Aces downgrade before busting.
	assert.False(t, IsBust(hand(deck.Ace, deck.Ace, deck.Nine)))
}

func TestIsNaturalBlackjack(t *testing.T) {
	t.Parallel()
	assert.True(t, IsNaturalBlackjack(hand(deck.Ace, deck.King)))
	assert.True(t, IsNaturalBlackjack(hand(deck.Ten, deck.Ace)))
	// 21 in three cards is not a natural.
	assert.False(t, IsNaturalBlackjack(hand(deck.Ace, deck.Five, deck.Five)))
	assert.False(t, IsNaturalBlackjack(hand(deck.Ten, deck.Nine)))
}

func TestCanSplitPair(t *testing.T) {
	t.Parallel()
	// Any two ten-value cards count as a pair.
	assert.True(t, CanSplitPair(hand(deck.Ten, deck.King)))
	assert.True(t, CanSplitPair(hand(deck.Eight, deck.Eight)))
	assert.True(t, CanSplitPair(hand(deck.Ace, deck.Ace)))
	assert.False(t, CanSplitPair(hand(deck.Ten, deck.Nine)))
	assert.False(t, CanSplitPair(hand(deck.Eight, deck.Eight, deck.Eight)))
}

func TestIsSoft(t *testing.T) {
	t.Parallel()
	assert.True(t, IsSoft(hand(deck.Ace, deck.Six)))
	assert.False(t, IsSoft(hand(deck.Ace, deck.Six, deck.Ten)))
	assert.False(t, IsSoft(hand(deck.Ten, deck.Seven)))
}
