package deck

import "errors"

// ErrExhausted is returned when drawing from an empty deck. A standard
// blackjack game cannot consume all 52 cards, so hitting this means the
// game state is corrupt rather than a playable outcome.
var ErrExhausted = errors.New("deck exhausted")

// Deck is an ordered sequence of cards. The top of the deck is index 0.
type Deck []Card

// New creates a full 52-card deck in canonical order
func New() Deck {
	d := make(Deck, 0, 52)
	for _, suit := range Suits() {
		for _, rank := range Ranks() {
			d = append(d, NewCard(suit, rank))
		}
	}
	return d
}

// NewShuffled creates a full deck shuffled with the given source
func NewShuffled(src RandSource) Deck {
	d := New()
	d.Shuffle(src)
	return d
}

// Shuffle randomizes card order in place using a Fisher-Yates shuffle.
// The source decides the security properties: games must use CryptoSource
// so card order cannot be predicted from outside the server.
func (d Deck) Shuffle(src RandSource) {
	for i := len(d) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}

// Draw removes and returns the top card
func (d *Deck) Draw() (Card, error) {
	if len(*d) == 0 {
		return Card{}, ErrExhausted
	}
	card := (*d)[0]
	*d = (*d)[1:]
	return card, nil
}

// Len returns the number of cards remaining
func (d Deck) Len() int {
	return len(d)
}
