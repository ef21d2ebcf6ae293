package blackjack

import (
	"errors"
	"time"

	"github.com/cardhouse/blackjackd/internal/deck"
)

// ErrIllegalAction is returned when an action is not legal for the game's
// current phase or active hand. The game is left unmodified.
var ErrIllegalAction = errors.New("action not legal in current game state")

// Phase is the authoritative state of a game
type Phase string

const (
	PhasePlaying      Phase = "playing"
	PhasePlayingSplit Phase = "playing_split"
	PhaseDealerTurn   Phase = "dealer_turn"
	PhaseSettled      Phase = "settled"
)

// HandID identifies which of the player's hands an action applies to
type HandID string

const (
	HandMain  HandID = "main"
	HandSplit HandID = "split"
)

// Result is the outcome of a single player hand
type Result string

const (
	ResultPending   Result = "pending"
	ResultWin       Result = "win"
	ResultLose      Result = "lose"
	ResultPush      Result = "push"
	ResultBlackjack Result = "blackjack"
)

// Game is the aggregate root for one user's blackjack game. It owns its
// deck exclusively; every card is in exactly one of the deck or the three
// hands at all times. All mutating methods are driven by the orchestrator,
// which is responsible for bet debits before and payout credits after.
type Game struct {
	ID          string    `json:"gameId"`
	UserID      int64     `json:"userId"`
	Deck        deck.Deck `json:"deck"`
	DealerHand  Hand      `json:"dealerHand"`
	MainHand    Hand      `json:"mainHand"`
	SplitHand   Hand      `json:"splitHand"`
	Phase       Phase     `json:"phase"`
	ActiveHand  HandID    `json:"activeHand"`
	HasSplit    bool      `json:"hasSplit"`
	MainBet     int64     `json:"mainBet"`
	SplitBet    int64     `json:"splitBet"`
	MainResult  Result    `json:"mainResult"`
	SplitResult Result    `json:"splitResult"`
	Payout      int64     `json:"payout"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`

	// Version is the store's optimistic concurrency counter, not part of
	// the persisted snapshot itself.
	Version int64 `json:"-"`
}

// New deals a fresh game from the given shuffled deck. The initial bet
// must already be debited by the caller. Deal order is player, dealer,
// player, dealer with the dealer's second card as the hole card.
//
// If the player has a natural, or the dealer's up-card is an ace or a
// ten-value card, the dealer checks the hole card and any natural resolves
// the game immediately: player natural alone pays 3:2, both naturals push,
// dealer natural alone wins. Otherwise play continues with the hole card
// still hidden.
func New(id string, userID int64, bet int64, d deck.Deck, now time.Time, ttl time.Duration) (*Game, error) {
	g := &Game{
		ID:          id,
		UserID:      userID,
		Deck:        d,
		Phase:       PhasePlaying,
		ActiveHand:  HandMain,
		MainBet:     bet,
		MainResult:  ResultPending,
		SplitResult: ResultPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	for i := 0; i < 2; i++ {
		if err := g.drawInto(&g.MainHand, false); err != nil {
			return nil, err
		}
		if err := g.drawInto(&g.DealerHand, i == 1); err != nil {
			return nil, err
		}
	}

	playerNatural := IsNaturalBlackjack(g.MainHand)
	upCard := g.DealerHand[0]
	dealerNatural := (upCard.IsAce() || upCard.Value() == 10) && IsNaturalBlackjack(g.DealerHand)

	if playerNatural || dealerNatural {
		g.revealHoleCard()
		switch {
		case playerNatural && dealerNatural:
			g.MainResult = ResultPush
			g.Payout = g.MainBet
		case playerNatural:
			g.MainResult = ResultBlackjack
			g.Payout = g.MainBet * 5 / 2
		default:
			g.MainResult = ResultLose
		}
		g.Phase = PhaseSettled
	}

	return g, nil
}

// CanHit reports whether a hit is legal
func (g *Game) CanHit() bool {
	return g.Phase == PhasePlaying || g.Phase == PhasePlayingSplit
}

// CanStand reports whether a stand is legal
func (g *Game) CanStand() bool {
	return g.CanHit()
}

// CanDouble reports whether a double-down is legal for the active hand.
// The balance requirement is the orchestrator's to enforce.
func (g *Game) CanDouble() bool {
	return g.CanHit() && len(*g.activeHand()) == 2
}

// CanSplit reports whether the main hand can be split. Only the first
// two-card main hand may split; re-splitting is not allowed.
func (g *Game) CanSplit() bool {
	return g.Phase == PhasePlaying && !g.HasSplit && CanSplitPair(g.MainHand)
}

// ActiveBet returns the bet riding on the currently active hand
func (g *Game) ActiveBet() int64 {
	if g.ActiveHand == HandSplit {
		return g.SplitBet
	}
	return g.MainBet
}

// Hit draws one card into the active hand. A bust marks the hand lost and
// advances play; if every hand is busted the game settles immediately
// without the dealer playing out.
func (g *Game) Hit() error {
	if !g.CanHit() {
		return ErrIllegalAction
	}
	hand := g.activeHand()
	if err := g.drawInto(hand, false); err != nil {
		return err
	}
	if IsBust(*hand) {
		g.setActiveResult(ResultLose)
		return g.advance()
	}
	return nil
}

// Stand finishes the active hand. With a pending split hand, play moves to
// it; otherwise the dealer plays and the game settles.
func (g *Game) Stand() error {
	if !g.CanStand() {
		return ErrIllegalAction
	}
	return g.advance()
}

// Double doubles the active hand's bet, draws exactly one card, and
// forces a stand. The caller must have debited the additional bet amount
// before invoking this.
func (g *Game) Double() error {
	if !g.CanDouble() {
		return ErrIllegalAction
	}
	if g.ActiveHand == HandSplit {
		g.SplitBet *= 2
	} else {
		g.MainBet *= 2
	}
	hand := g.activeHand()
	if err := g.drawInto(hand, false); err != nil {
		return err
	}
	if IsBust(*hand) {
		g.setActiveResult(ResultLose)
	}
	return g.advance()
}

// Split moves the second card of the main hand into a new split hand with
// its own bet equal to the main bet, then deals one card to each hand.
// The caller must have debited the split bet before invoking this. Play
// resumes on the now two-card main hand.
func (g *Game) Split() error {
	if !g.CanSplit() {
		return ErrIllegalAction
	}
	g.SplitHand = Hand{g.MainHand[1]}
	g.MainHand = g.MainHand[:1]
	g.SplitBet = g.MainBet
	g.HasSplit = true
	if err := g.drawInto(&g.MainHand, false); err != nil {
		return err
	}
	if err := g.drawInto(&g.SplitHand, false); err != nil {
		return err
	}
	g.ActiveHand = HandMain
	g.Phase = PhasePlaying
	return nil
}

// advance moves play past the active hand: to the split hand if one is
// still pending, otherwise to the dealer and settlement.
func (g *Game) advance() error {
	if g.ActiveHand == HandMain && g.HasSplit && g.Phase == PhasePlaying {
		g.ActiveHand = HandSplit
		g.Phase = PhasePlayingSplit
		return nil
	}
	return g.finish()
}

// finish runs the dealer's turn and settles. The dealer only plays when a
// live hand remains to compare against; if everything busted the outcome
// is already decided.
func (g *Game) finish() error {
	g.Phase = PhaseDealerTurn
	g.revealHoleCard()

	if g.hasLiveHand() {
		// Dealer hits soft 17.
		for {
			v := HandValue(g.DealerHand, true)
			if v.Total > 17 || (v.Total == 17 && !v.Soft) {
				break
			}
			if err := g.drawInto(&g.DealerHand, false); err != nil {
				return err
			}
		}
	}

	g.settle()
	return nil
}

// settle compares each live hand against the dealer and computes the
// total payout. Naturals never reach here; they resolve at deal time.
func (g *Game) settle() {
	dealer := HandValue(g.DealerHand, true)
	dealerBust := dealer.Total > 21

	resolve := func(h Hand, bet int64) (Result, int64) {
		v := HandValue(h, true)
		switch {
		case dealerBust || v.Total > dealer.Total:
			return ResultWin, bet * 2
		case v.Total == dealer.Total:
			return ResultPush, bet
		default:
			return ResultLose, 0
		}
	}

	if g.MainResult == ResultPending {
		result, payout := resolve(g.MainHand, g.MainBet)
		g.MainResult = result
		g.Payout += payout
	}
	if g.HasSplit && g.SplitResult == ResultPending {
		result, payout := resolve(g.SplitHand, g.SplitBet)
		g.SplitResult = result
		g.Payout += payout
	}
	g.Phase = PhaseSettled
}

func (g *Game) activeHand() *Hand {
	if g.ActiveHand == HandSplit {
		return &g.SplitHand
	}
	return &g.MainHand
}

func (g *Game) setActiveResult(r Result) {
	if g.ActiveHand == HandSplit {
		g.SplitResult = r
	} else {
		g.MainResult = r
	}
}

// hasLiveHand reports whether any player hand is still awaiting
// comparison against the dealer.
func (g *Game) hasLiveHand() bool {
	if g.MainResult == ResultPending {
		return true
	}
	return g.HasSplit && g.SplitResult == ResultPending
}

func (g *Game) drawInto(h *Hand, hidden bool) error {
	card, err := g.Deck.Draw()
	if err != nil {
		return err
	}
	card.Hidden = hidden
	*h = append(*h, card)
	return nil
}

func (g *Game) revealHoleCard() {
	for i := range g.DealerHand {
		g.DealerHand[i].Hidden = false
	}
}

// Settled reports whether the game has reached its terminal phase
func (g *Game) Settled() bool {
	return g.Phase == PhaseSettled
}

// TotalBet returns everything debited for this game so far
func (g *Game) TotalBet() int64 {
	return g.MainBet + g.SplitBet
}

// CardCount returns the number of cards across the deck and all hands.
// It must equal 52 for every reachable game state.
func (g *Game) CardCount() int {
	return g.Deck.Len() + len(g.DealerHand) + len(g.MainHand) + len(g.SplitHand)
}
