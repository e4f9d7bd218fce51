// Package don tracks a player's DON!! resource pool.
//
// Every DON!! card is in exactly one of four places: the DON!! deck, the
// active pool, the rested pool, or attached to a slot on the field. The
// pool accounts for the first three and for the attached total, so the
// conservation invariant (deck + active + rested + attached == DeckSize)
// can be checked after every mutation.
package don

import "fmt"

// DeckSize is the fixed number of DON!! cards per player.
const DeckSize = 10

// Pool holds one player's DON!! accounting. Access is serialized by the
// owning match; the pool itself carries no locking.
type Pool struct {
	Deck     int
	Active   int
	Rested   int
	Attached int
}

// NewPool creates a full pool with all DON!! in the deck.
func NewPool() *Pool {
	return &Pool{Deck: DeckSize}
}

// Gain moves up to n DON!! from the deck to the active pool and returns how
// many actually moved.
func (p *Pool) Gain(n int) int {
	if n > p.Deck {
		n = p.Deck
	}
	if n <= 0 {
		return 0
	}
	p.Deck -= n
	p.Active += n
	return n
}

// Pay rests n active DON!! to pay a cost. Fails without mutation if the
// active pool is short.
func (p *Pool) Pay(n int) bool {
	if n < 0 || n > p.Active {
		return false
	}
	p.Active -= n
	p.Rested += n
	return true
}

// Refund reverses a Pay of n, returning rested DON!! to active.
func (p *Pool) Refund(n int) bool {
	if n < 0 || n > p.Rested {
		return false
	}
	p.Rested -= n
	p.Active += n
	return true
}

// Attach moves n active DON!! onto the field. Fails without mutation if the
// active pool is short.
func (p *Pool) Attach(n int) bool {
	if n < 0 || n > p.Active {
		return false
	}
	p.Active -= n
	p.Attached += n
	return true
}

// DetachToActive returns n attached DON!! to the active pool.
func (p *Pool) DetachToActive(n int) bool {
	if n < 0 || n > p.Attached {
		return false
	}
	p.Attached -= n
	p.Active += n
	return true
}

// DetachToRested returns n attached DON!! to the rested pool. Used when a
// character is KO'd with DON!! still attached.
func (p *Pool) DetachToRested(n int) bool {
	if n < 0 || n > p.Attached {
		return false
	}
	p.Attached -= n
	p.Rested += n
	return true
}

// Refresh makes all rested DON!! active. Attached DON!! are returned
// separately, slot by slot, before Refresh is called.
func (p *Pool) Refresh() {
	p.Active += p.Rested
	p.Rested = 0
}

// InPlay returns how many DON!! have left the deck.
func (p *Pool) InPlay() int {
	return p.Active + p.Rested + p.Attached
}

// Check verifies the conservation invariant.
func (p *Pool) Check() error {
	if p.Deck < 0 || p.Active < 0 || p.Rested < 0 || p.Attached < 0 {
		return fmt.Errorf("don: negative pool count %+v", *p)
	}
	if total := p.Deck + p.Active + p.Rested + p.Attached; total != DeckSize {
		return fmt.Errorf("don: pool total %d, want %d (%+v)", total, DeckSize, *p)
	}
	return nil
}

// Copy returns a value copy of the pool.
func (p *Pool) Copy() *Pool {
	c := *p
	return &c
}
