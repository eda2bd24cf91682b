package dispatch

import (
	"sync"
	"time"

	"github.com/kiranaops/bolbill/internal/cart"
	"github.com/kiranaops/bolbill/internal/transcript"
)

// Session is one order-intake conversation: the cart under construction,
// the shield arena shared across processing passes over the growing
// transcript, and the dedup bookkeeping.
//
// A session is owned by a single listener; the dispatcher locks it for the
// duration of each processing pass.
type Session struct {
	// ID identifies the session in drafts and logs.
	ID string

	// Cart is the order being built.
	Cart *cart.Cart

	mu    sync.Mutex
	arena *transcript.ShieldArena

	lastProcessed   string
	lastProcessedAt time.Time
}

// NewSession returns a session with an empty cart and a fresh shield arena.
func NewSession(id string) *Session {
	return &Session{
		ID:    id,
		Cart:  cart.NewCart(),
		arena: transcript.NewShieldArena(),
	}
}

// Reset clears the shield arena and dedup state for a new utterance,
// keeping the cart. Called when a listener finishes one spoken order.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arena.Reset()
	s.lastProcessed = ""
	s.lastProcessedAt = time.Time{}
}
