// Package catalog supplies immutable card definitions to the match engine.
// Definitions are read-only after load; the engine never mutates them.
package catalog

import (
	"errors"
	"fmt"

	"github.com/optcgsim/match-server-go/internal/game/script"
)

// ErrNotFound is returned when a card number has no definition.
var ErrNotFound = errors.New("catalog: card not found")

// CardType classifies a card definition.
type CardType string

const (
	TypeLeader    CardType = "LEADER"
	TypeCharacter CardType = "CHARACTER"
	TypeEvent     CardType = "EVENT"
	TypeStage     CardType = "STAGE"
)

// Keyword abilities printed on cards.
const (
	KeywordRush         = "RUSH"
	KeywordBlocker      = "BLOCKER"
	KeywordDoubleAttack = "DOUBLE_ATTACK"
	KeywordBanish       = "BANISH"
)

// CardDefinition is the static, catalog-owned description of one card.
type CardDefinition struct {
	CardNumber string          `yaml:"card_number"`
	Name       string          `yaml:"name"`
	Type       CardType        `yaml:"type"`
	Color      string          `yaml:"color"`
	Cost       int             `yaml:"cost"`
	Power      int             `yaml:"power"`
	Counter    int             `yaml:"counter"`
	Life       int             `yaml:"life"`
	Attribute  string          `yaml:"attribute"`
	Keywords   []string        `yaml:"keywords,omitempty"`
	Scripts    []script.Script `yaml:"scripts,omitempty"`
}

// HasKeyword reports whether the definition carries a printed keyword.
func (d *CardDefinition) HasKeyword(kw string) bool {
	for _, k := range d.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

// ScriptsFor returns the scripts bound to a given trigger kind, in
// declaration order.
func (d *CardDefinition) ScriptsFor(trigger script.TriggerKind) []script.Script {
	var out []script.Script
	for i := range d.Scripts {
		if d.Scripts[i].Trigger == trigger {
			out = append(out, d.Scripts[i])
		}
	}
	return out
}

// Catalog resolves card numbers to definitions.
type Catalog interface {
	GetDefinition(cardNumber string) (*CardDefinition, error)
}

// MemoryCatalog is an in-memory Catalog, the form every loader produces.
type MemoryCatalog struct {
	defs map[string]*CardDefinition
}

// NewMemoryCatalog builds a catalog from a definition list. Duplicate card
// numbers and invalid scripts are rejected.
func NewMemoryCatalog(defs []CardDefinition) (*MemoryCatalog, error) {
	m := &MemoryCatalog{defs: make(map[string]*CardDefinition, len(defs))}
	for i := range defs {
		d := defs[i]
		if d.CardNumber == "" {
			return nil, fmt.Errorf("catalog: definition %d has no card number", i)
		}
		if _, dup := m.defs[d.CardNumber]; dup {
			return nil, fmt.Errorf("catalog: duplicate card number %s", d.CardNumber)
		}
		for j := range d.Scripts {
			if err := d.Scripts[j].Validate(); err != nil {
				return nil, fmt.Errorf("catalog: card %s script %d: %w", d.CardNumber, j, err)
			}
		}
		m.defs[d.CardNumber] = &d
	}
	return m, nil
}

// GetDefinition implements Catalog.
func (m *MemoryCatalog) GetDefinition(cardNumber string) (*CardDefinition, error) {
	d, ok := m.defs[cardNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cardNumber)
	}
	return d, nil
}

// Size returns the number of definitions loaded.
func (m *MemoryCatalog) Size() int {
	return len(m.defs)
}
