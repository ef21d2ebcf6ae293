package blackjack

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardhouse/blackjackd/internal/deck"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// stacked builds a 52-card deck whose top cards come out in the given
// rank order. New deals player, dealer, player, dealer(hole); further
// draws continue down the list.
func stacked(ranks ...deck.Rank) deck.Deck {
	d := make(deck.Deck, 0, 52)
	remaining := deck.New()
	for _, r := range ranks {
		for i, c := range remaining {
			if c.Rank == r {
				d = append(d, c)
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return append(d, remaining...)
}

func newTestGame(t *testing.T, bet int64, ranks ...deck.Rank) *Game {
	t.Helper()
	g, err := New("g1", 1, bet, stacked(ranks...), testNow, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 52, g.CardCount())
	return g
}

func TestNewGameDealsInOrder(t *testing.T) {
	t.Parallel()
	// player 5, dealer 9, player 6, dealer 9 (hole)
	g := newTestGame(t, 100, deck.Five, deck.Nine, deck.Six, deck.Nine)

	require.Len(t, g.MainHand, 2)
	require.Len(t, g.DealerHand, 2)
	assert.Equal(t, deck.Five, g.MainHand[0].Rank)
	assert.Equal(t, deck.Six, g.MainHand[1].Rank)
	assert.False(t, g.DealerHand[0].Hidden)
	assert.True(t, g.DealerHand[1].Hidden)
	assert.Equal(t, PhasePlaying, g.Phase)
	assert.Equal(t, HandMain, g.ActiveHand)
	assert.Equal(t, ResultPending, g.MainResult)
}

func TestPlayerNaturalBlackjackPaysOut(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Ace, deck.Nine, deck.King, deck.Five)

	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultBlackjack, g.MainResult)
	assert.Equal(t, int64(250), g.Payout)
	assert.False(t, g.DealerHand[1].Hidden, "hole card revealed at resolution")
}

func TestNaturalBlackjackPayoutTruncates(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 15, deck.Ace, deck.Nine, deck.King, deck.Five)

	// floor(15 * 2.5) = 37, never rounded up.
	assert.Equal(t, int64(37), g.Payout)
}

func TestBothNaturalsPush(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Ace, deck.Ace, deck.King, deck.Ten)

	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultPush, g.MainResult)
	assert.Equal(t, int64(100), g.Payout)
}

func TestDealerNaturalLosesImmediately(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Ten, deck.Ace, deck.Nine, deck.King)

	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultLose, g.MainResult)
	assert.Equal(t, int64(0), g.Payout)
	assert.False(t, g.DealerHand[1].Hidden)
}

func TestDealerTenUpWithoutNaturalContinues(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Ten, deck.King, deck.Nine, deck.Five)

	assert.Equal(t, PhasePlaying, g.Phase)
	assert.True(t, g.DealerHand[1].Hidden, "hole card stays hidden after peek")
}

func TestHitThenStandWin(t *testing.T) {
	t.Parallel()
	// player 5+6, dealer 9+9=18; player hits 10 -> 21, stands; dealer stands on 18.
	g := newTestGame(t, 100, deck.Five, deck.Nine, deck.Six, deck.Nine, deck.Ten)

	require.NoError(t, g.Hit())
	assert.Equal(t, PhasePlaying, g.Phase)
	require.NoError(t, g.Stand())

	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultWin, g.MainResult)
	assert.Equal(t, int64(200), g.Payout)
	assert.Equal(t, 52, g.CardCount())
}

func TestHitBustSettlesWithoutDealerPlay(t *testing.T) {
	t.Parallel()
	// player 10+9 hits 5 -> 24 bust; dealer 2+2 never draws.
	g := newTestGame(t, 100, deck.Ten, deck.Two, deck.Nine, deck.Two, deck.Five)

	require.NoError(t, g.Hit())

	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultLose, g.MainResult)
	assert.Equal(t, int64(0), g.Payout)
	require.Len(t, g.DealerHand, 2, "dealer must not play against a dead table")
}

func TestStandPush(t *testing.T) {
	t.Parallel()
	// player 10+8=18, dealer 10+8=18.
	g := newTestGame(t, 100, deck.Ten, deck.Ten, deck.Eight, deck.Eight)

	require.NoError(t, g.Stand())

	assert.Equal(t, ResultPush, g.MainResult)
	assert.Equal(t, int64(100), g.Payout)
}

func TestDealerHitsSoft17(t *testing.T) {
	t.Parallel()
	// player 10+10=20; dealer A+6 is soft 17 and must hit; 2 -> 19, stand.
	g := newTestGame(t, 100, deck.Ten, deck.Ace, deck.Ten, deck.Six, deck.Two)

	require.NoError(t, g.Stand())

	require.Len(t, g.DealerHand, 3)
	assert.Equal(t, 19, HandValue(g.DealerHand, true).Total)
	assert.Equal(t, ResultWin, g.MainResult)
}

func TestDealerStandsHard17(t *testing.T) {
	t.Parallel()
	// player 10+8=18; dealer 10+7 hard 17 stands.
	g := newTestGame(t, 100, deck.Ten, deck.Ten, deck.Eight, deck.Seven)

	require.NoError(t, g.Stand())

	require.Len(t, g.DealerHand, 2)
	assert.Equal(t, ResultWin, g.MainResult)
	assert.Equal(t, int64(200), g.Payout)
}

func TestDealerBustPaysLiveHands(t *testing.T) {
	t.Parallel()
	// player 10+6=16 stands; dealer 9+7=16 hits 10 -> 26 bust.
	g := newTestGame(t, 100, deck.Ten, deck.Nine, deck.Six, deck.Seven, deck.Ten)

	require.NoError(t, g.Stand())

	assert.True(t, IsBust(g.DealerHand))
	assert.Equal(t, ResultWin, g.MainResult)
	assert.Equal(t, int64(200), g.Payout)
}

func TestDoubleBust(t *testing.T) {
	t.Parallel()
	// player 7+8=15 doubles, draws K -> 25 bust. No further draws possible.
	g := newTestGame(t, 50, deck.Seven, deck.Nine, deck.Eight, deck.Nine, deck.King)

	require.NoError(t, g.Double())

	assert.Equal(t, int64(100), g.MainBet, "bet doubled")
	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultLose, g.MainResult)
	assert.Equal(t, int64(0), g.Payout)
	require.Len(t, g.MainHand, 3)
}

func TestDoubleWinPaysDoubledBet(t *testing.T) {
	t.Parallel()
	// player 5+6=11 doubles, draws K -> 21; dealer 9+9=18.
	g := newTestGame(t, 50, deck.Five, deck.Nine, deck.Six, deck.Nine, deck.King)

	require.NoError(t, g.Double())

	assert.Equal(t, ResultWin, g.MainResult)
	assert.Equal(t, int64(200), g.Payout, "payout reflects doubled bet")
}

func TestDoubleRequiresTwoCards(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Two, deck.Nine, deck.Three, deck.Nine, deck.Two)

	require.NoError(t, g.Hit())
	before := snapshot(t, g)

	assert.ErrorIs(t, g.Double(), ErrIllegalAction)
	assert.Equal(t, before, snapshot(t, g), "failed action must not mutate the game")
}

func TestSplitBothHandsWin(t *testing.T) {
	t.Parallel()
	// player 8+8 splits; main gets A (19, stands), split gets Q (18, stands);
	// dealer 6+10=16 hits 10 -> 26 bust. Both hands win.
	g := newTestGame(t, 100, deck.Eight, deck.Six, deck.Eight, deck.Ten, deck.Ace, deck.Queen, deck.Ten)

	require.True(t, g.CanSplit())
	require.NoError(t, g.Split())

	assert.True(t, g.HasSplit)
	assert.Equal(t, int64(100), g.SplitBet)
	assert.Equal(t, HandMain, g.ActiveHand, "player acts on main hand first")
	assert.Equal(t, PhasePlaying, g.Phase)
	require.Len(t, g.MainHand, 2)
	require.Len(t, g.SplitHand, 2)
	assert.Equal(t, 52, g.CardCount())

	require.NoError(t, g.Stand())
	assert.Equal(t, PhasePlayingSplit, g.Phase)
	assert.Equal(t, HandSplit, g.ActiveHand)

	require.NoError(t, g.Stand())
	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultWin, g.MainResult)
	assert.Equal(t, ResultWin, g.SplitResult)
	assert.Equal(t, int64(400), g.Payout)
}

func TestSplitMainBustSwitchesToSplitHand(t *testing.T) {
	t.Parallel()
	// split 8s; main becomes 8+10, hits 10 -> bust; play moves to split hand.
	g := newTestGame(t, 100, deck.Eight, deck.Six, deck.Eight, deck.Ten, deck.Ten, deck.Queen, deck.Ten)

	require.NoError(t, g.Split())
	require.NoError(t, g.Hit())

	assert.Equal(t, ResultLose, g.MainResult)
	assert.Equal(t, HandSplit, g.ActiveHand)
	assert.Equal(t, PhasePlayingSplit, g.Phase)
	assert.NotEqual(t, PhaseSettled, g.Phase, "game continues for the split hand")
}

func TestSplitBothBustSettlesImmediately(t *testing.T) {
	t.Parallel()
	// Both split hands bust; dealer never draws a third card.
	g := newTestGame(t, 100,
		deck.Eight, deck.Six, deck.Eight, deck.Ten, // deal
		deck.Ten, deck.Queen, // split draws: main 8+10, split 8+Q
		deck.King, deck.King) // both hit into busts

	require.NoError(t, g.Split())
	require.NoError(t, g.Hit()) // main 8+10+K -> bust, switch to split
	require.NoError(t, g.Hit()) // split 8+Q+K -> bust

	assert.Equal(t, PhaseSettled, g.Phase)
	assert.Equal(t, ResultLose, g.MainResult)
	assert.Equal(t, ResultLose, g.SplitResult)
	assert.Equal(t, int64(0), g.Payout)
	require.Len(t, g.DealerHand, 2)
}

func TestNoResplit(t *testing.T) {
	t.Parallel()
	// Split 8s, main draws another 8: still no second split allowed.
	g := newTestGame(t, 100, deck.Eight, deck.Six, deck.Eight, deck.Ten, deck.Eight, deck.Queen)

	require.NoError(t, g.Split())
	require.True(t, CanSplitPair(g.MainHand), "main hand is a pair again")
	assert.False(t, g.CanSplit())
	assert.ErrorIs(t, g.Split(), ErrIllegalAction)
}

func TestSplitDoubleOnSplitHand(t *testing.T) {
	t.Parallel()
	// Split 8s; stand main (8+3=11... actually 8+A=19); double the split hand.
	g := newTestGame(t, 100,
		deck.Eight, deck.Six, deck.Eight, deck.Ten, // deal, dealer 16
		deck.Ace, deck.Three, // main 8+A=19, split 8+3=11
		deck.Ten,  // double draw: split 21
		deck.Five) // dealer 16 hits 5 -> 21? no: 6+10+5=21

	require.NoError(t, g.Stand()) // main stands at 19
	require.Equal(t, HandSplit, g.ActiveHand)
	require.True(t, g.CanDouble())

	require.NoError(t, g.Double())

	assert.Equal(t, int64(200), g.SplitBet)
	assert.Equal(t, int64(100), g.MainBet, "main bet untouched")
	assert.Equal(t, PhaseSettled, g.Phase)
	// Dealer finishes at 21: main 19 loses, split 21 pushes.
	assert.Equal(t, ResultLose, g.MainResult)
	assert.Equal(t, ResultPush, g.SplitResult)
	assert.Equal(t, int64(200), g.Payout)
}

func TestActionsRejectedWhenSettled(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Ace, deck.Nine, deck.King, deck.Five)
	require.True(t, g.Settled())

	assert.ErrorIs(t, g.Hit(), ErrIllegalAction)
	assert.ErrorIs(t, g.Stand(), ErrIllegalAction)
	assert.ErrorIs(t, g.Double(), ErrIllegalAction)
	assert.ErrorIs(t, g.Split(), ErrIllegalAction)
}

func TestSplitRequiresPair(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Five, deck.Nine, deck.Six, deck.Nine)
	before := snapshot(t, g)

	assert.ErrorIs(t, g.Split(), ErrIllegalAction)
	assert.Equal(t, before, snapshot(t, g))
}

// TestCardConservation plays randomized games and checks that the deck
// plus all hands always account for exactly 52 cards.
func TestCardConservation(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 200; i++ {
		d := deck.NewShuffled(rng)
		g, err := New("g", 1, 100, d, testNow, 10*time.Minute)
		require.NoError(t, err)
		require.Equal(t, 52, g.CardCount())

		for !g.Settled() {
			var err error
			switch n := rng.Intn(4); {
			case n == 0 && g.CanDouble():
				err = g.Double()
			case n == 1 && g.CanSplit():
				err = g.Split()
			case n == 2:
				err = g.Stand()
			default:
				err = g.Hit()
			}
			require.NoError(t, err)
			require.Equal(t, 52, g.CardCount(), "game %d leaked cards", i)
		}

		// Settled games have no pending results.
		require.NotEqual(t, ResultPending, g.MainResult)
		if g.HasSplit {
			require.NotEqual(t, ResultPending, g.SplitResult)
		}
	}
}

func TestGameJSONRoundTrip(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, 100, deck.Eight, deck.Six, deck.Eight, deck.Ten, deck.Ace, deck.Queen)
	require.NoError(t, g.Split())

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back Game
	require.NoError(t, json.Unmarshal(data, &back))

	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "snapshot must round-trip byte-identically")
	assert.Equal(t, 52, back.CardCount())
	assert.True(t, back.DealerHand[1].Hidden)
}

func snapshot(t *testing.T, g *Game) string {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)
	return string(data)
}
