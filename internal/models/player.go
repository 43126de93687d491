package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// PlayerIdentity is the canonical record for one logical player across all sources
type PlayerIdentity struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CanonicalName string    `db:"canonical_name" json:"canonical_name" validate:"required"`
	Aliases       []string  `db:"aliases" json:"aliases"`
	ExternalID    *string   `db:"external_id" json:"external_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HasAlias reports whether the alias set already contains the variant
func (p *PlayerIdentity) HasAlias(alias string) bool {
	i := sort.SearchStrings(p.Aliases, alias)
	return i < len(p.Aliases) && p.Aliases[i] == alias
}

// AddAlias inserts a variant into the sorted alias set and reports whether it was new
func (p *PlayerIdentity) AddAlias(alias string) bool {
	if alias == "" || p.HasAlias(alias) {
		return false
	}
	i := sort.SearchStrings(p.Aliases, alias)
	p.Aliases = append(p.Aliases, "")
	copy(p.Aliases[i+1:], p.Aliases[i:])
	p.Aliases[i] = alias
	return true
}

// Clone returns a deep copy
func (p *PlayerIdentity) Clone() *PlayerIdentity {
	c := *p
	c.Aliases = append([]string(nil), p.Aliases...)
	if p.ExternalID != nil {
		id := *p.ExternalID
		c.ExternalID = &id
	}
	return &c
}

// PlayerParameters are the per-event simulation inputs for one player.
// Mean is expected strokes per round relative to the field; lower is better.
type PlayerParameters struct {
	SelectionKey string  `json:"selection_key"`
	Name         string  `json:"name"`
	Mean         float64 `json:"mean"`
	Volatility   float64 `json:"volatility"`
	Uncertainty  float64 `json:"uncertainty"`
	TailFactor   float64 `json:"tail_factor"`
	MakeCutPrior float64 `json:"make_cut_prior"`
}
