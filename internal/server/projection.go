package server

import (
	"github.com/cardhouse/blackjackd/internal/blackjack"
	"github.com/cardhouse/blackjackd/internal/deck"
)

// CardView is the client-safe representation of a card. A hidden card
// carries no rank or suit at all; masking happens here, not client-side.
type CardView struct {
	Suit   deck.Suit `json:"suit,omitempty"`
	Rank   deck.Rank `json:"rank,omitempty"`
	Hidden bool      `json:"hidden,omitempty"`
}

// GameProjection is the API response shape for a game. Action flags are
// recomputed server-side on every response and never accepted as input.
type GameProjection struct {
	GameID      string     `json:"gameId"`
	Phase       string     `json:"phase"`
	ActiveHand  string     `json:"activeHand"`
	DealerHand  []CardView `json:"dealerHand"`
	DealerValue string     `json:"dealerValue"`
	MainHand    []CardView `json:"mainHand"`
	MainValue   string     `json:"mainValue"`
	SplitHand   []CardView `json:"splitHand,omitempty"`
	SplitValue  string     `json:"splitValue,omitempty"`
	MainBet     int64      `json:"mainBet"`
	SplitBet    int64      `json:"splitBet,omitempty"`
	HasSplit    bool       `json:"hasSplit"`
	CanHit      bool       `json:"canHit"`
	CanStand    bool       `json:"canStand"`
	CanDouble   bool       `json:"canDouble"`
	CanSplit    bool       `json:"canSplit"`
	GameOver    bool       `json:"gameOver"`
	Result      blackjack.Result `json:"result"`
	SplitResult blackjack.Result `json:"splitResult,omitempty"`
	Payout      int64      `json:"payout"`
	Balance     int64      `json:"balance"`
}

// project builds the client view of a game. The dealer's hole card stays
// masked until the engine reveals it, and the dealer's displayed value
// only counts visible cards.
func project(g *blackjack.Game, balance int64) *GameProjection {
	p := &GameProjection{
		GameID:      g.ID,
		Phase:       string(g.Phase),
		ActiveHand:  string(g.ActiveHand),
		DealerHand:  maskCards(g.DealerHand),
		DealerValue: blackjack.HandValue(g.DealerHand, false).Display(),
		MainHand:    maskCards(g.MainHand),
		MainValue:   blackjack.HandValue(g.MainHand, true).Display(),
		MainBet:     g.MainBet,
		HasSplit:    g.HasSplit,
		CanHit:      g.CanHit(),
		CanStand:    g.CanStand(),
		CanDouble:   g.CanDouble() && balance >= g.ActiveBet(),
		CanSplit:    g.CanSplit() && balance >= g.MainBet,
		GameOver:    g.Settled(),
		Result:      g.MainResult,
		Payout:      g.Payout,
		Balance:     balance,
	}
	if g.HasSplit {
		p.SplitHand = maskCards(g.SplitHand)
		p.SplitValue = blackjack.HandValue(g.SplitHand, true).Display()
		p.SplitBet = g.SplitBet
		p.SplitResult = g.SplitResult
	}
	return p
}

func maskCards(h blackjack.Hand) []CardView {
	views := make([]CardView, len(h))
	for i, c := range h {
		if c.Hidden {
			views[i] = CardView{Hidden: true}
			continue
		}
		views[i] = CardView{Suit: c.Suit, Rank: c.Rank}
	}
	return views
}
