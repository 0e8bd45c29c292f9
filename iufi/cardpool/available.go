package cardpool

import "math/rand/v2"

// availableList holds the unowned cards of one tier. Removal swaps with the last
// element so add, remove and uniform sampling are all O(1).
type availableList struct {
	cards []*Card
	index map[*Card]int
}

func newAvailableList() *availableList {
	return &availableList{index: make(map[*Card]int)}
}

func (l *availableList) add(c *Card) bool {
	if _, ok := l.index[c]; ok {
		return false
	}
	l.index[c] = len(l.cards)
	l.cards = append(l.cards, c)
	return true
}

func (l *availableList) remove(c *Card) bool {
	i, ok := l.index[c]
	if !ok {
		return false
	}
	last := len(l.cards) - 1
	if i != last {
		moved := l.cards[last]
		l.cards[i] = moved
		l.index[moved] = i
	}
	l.cards[last] = nil
	l.cards = l.cards[:last]
	delete(l.index, c)
	return true
}

func (l *availableList) contains(c *Card) bool {
	_, ok := l.index[c]
	return ok
}

func (l *availableList) len() int {
	return len(l.cards)
}

// sample picks a card uniformly at random that is not in skip. taken is the number
// of cards of this list already in skip; it must be less than len.
func (l *availableList) sample(rng *rand.Rand, skip map[*Card]struct{}, taken int) *Card {
	if l.len()-taken <= 0 {
		return nil
	}
	for {
		c := l.cards[rng.IntN(len(l.cards))]
		if _, ok := skip[c]; !ok {
			return c
		}
	}
}
