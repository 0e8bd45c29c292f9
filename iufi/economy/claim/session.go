package claim

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Session is one roll message: the rolled card ids and who won each slot.
type Session struct {
	ID        string
	Roller    snowflake.ID
	CardIDs   []string
	CreatedAt time.Time

	mu       sync.Mutex
	winners  []snowflake.ID
	claimers map[snowflake.ID]int
	expired  bool
}

func newSession(id string, roller snowflake.ID, cardIDs []string, at time.Time) *Session {
	return &Session{
		ID:        id,
		Roller:    roller,
		CardIDs:   cardIDs,
		CreatedAt: at,
		winners:   make([]snowflake.ID, len(cardIDs)),
		claimers:  make(map[snowflake.ID]int),
	}
}

// Slot is the state of one card in a session.
type Slot struct {
	CardID string
	Winner snowflake.ID
}

func (s *Session) Slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Slot, len(s.CardIDs))
	for i, id := range s.CardIDs {
		out[i] = Slot{CardID: id, Winner: s.winners[i]}
	}
	return out
}

func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Done reports whether every slot has been claimed.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.winners {
		if w == 0 {
			return false
		}
	}
	return true
}
