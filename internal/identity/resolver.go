package identity

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/models"
)

// externalKeyPrefix marks identities known only by an upstream id
const externalKeyPrefix = "ext:"

// Resolver maps raw names and upstream ids to canonical player identities.
// A Resolver is scoped to a single run and is safe for concurrent use by that run's event workers.
type Resolver struct {
	mu         sync.Mutex
	byAlias    map[string]*models.PlayerIdentity
	byExternal map[string]*models.PlayerIdentity
	dirty      map[uuid.UUID]*models.PlayerIdentity
	now        func() time.Time
	logger     *logrus.Entry
}

// NewResolver creates an empty resolver
func NewResolver(logger *logrus.Logger) *Resolver {
	return &Resolver{
		byAlias:    make(map[string]*models.PlayerIdentity),
		byExternal: make(map[string]*models.PlayerIdentity),
		dirty:      make(map[uuid.UUID]*models.PlayerIdentity),
		now:        time.Now,
		logger:     logger.WithField("component", "identity_resolver"),
	}
}

// Preload seeds the resolver with previously persisted identities
func (r *Resolver) Preload(identities []*models.PlayerIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range identities {
		p := stored.Clone()
		r.index(p)
	}
}

// ResolveOrCreate returns the identity for a raw name, creating it on first sighting.
// New spellings of a known player are merged into its alias set. Blank names resolve to nil.
func (r *Resolver) ResolveOrCreate(raw string) *models.PlayerIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.resolveLocked(raw)
	if p == nil {
		return nil
	}
	return p.Clone()
}

// ResolveByExternalID resolves with the upstream id taking priority over the name.
// A name-resolved identity without an id adopts the supplied one.
// Nil is returned only when both name and id are blank.
func (r *Resolver) ResolveByExternalID(name, externalID string) *models.PlayerIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if externalID != "" {
		if p, ok := r.byExternal[externalID]; ok {
			r.mergeAliasLocked(p, name)
			return p.Clone()
		}
	}

	if Normalize(name) != "" {
		p := r.resolveLocked(name)
		if externalID != "" {
			if p.ExternalID == nil {
				id := externalID
				p.ExternalID = &id
				r.byExternal[externalID] = p
				r.touch(p)
			} else if *p.ExternalID != externalID {
				r.logger.WithFields(logrus.Fields{
					"canonical_name": p.CanonicalName,
					"known_id":       *p.ExternalID,
					"offered_id":     externalID,
				}).Warn("External id conflicts with name-resolved identity; keeping existing id")
			}
		}
		return p.Clone()
	}

	if externalID == "" {
		return nil
	}

	id := externalID
	p := r.newIdentity(externalKeyPrefix + externalID)
	p.ExternalID = &id
	r.index(p)
	r.touch(p)
	return p.Clone()
}

// Dirty returns identities created or changed since construction, sorted by canonical name
func (r *Resolver) Dirty() []*models.PlayerIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.PlayerIdentity, 0, len(r.dirty))
	for _, p := range r.dirty {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out
}

// Len returns the number of distinct identities known to the resolver
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(r.byAlias))
	for _, p := range r.byAlias {
		seen[p.ID] = struct{}{}
	}
	return len(seen)
}

func (r *Resolver) resolveLocked(raw string) *models.PlayerIdentity {
	key := Normalize(raw)
	if key == "" {
		return nil
	}

	if p, ok := r.byAlias[key]; ok {
		r.mergeAliasLocked(p, raw)
		return p
	}

	p := r.newIdentity(key)
	p.AddAlias(raw)
	r.index(p)
	r.touch(p)

	r.logger.WithFields(logrus.Fields{
		"canonical_name": key,
		"raw_name":       raw,
	}).Debug("Created player identity")

	return p
}

// mergeAliasLocked adds a new spelling unless it already points at another identity
func (r *Resolver) mergeAliasLocked(p *models.PlayerIdentity, raw string) {
	key := Normalize(raw)
	if key == "" {
		return
	}
	if owner, ok := r.byAlias[key]; ok && owner.ID != p.ID {
		return
	}

	changed := p.AddAlias(raw)
	if key != raw && p.AddAlias(key) {
		changed = true
	}
	r.byAlias[key] = p
	if changed {
		r.touch(p)
	}
}

func (r *Resolver) newIdentity(canonical string) *models.PlayerIdentity {
	now := r.now().UTC()
	p := &models.PlayerIdentity{
		ID:            uuid.New(),
		CanonicalName: canonical,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.AddAlias(canonical)
	return p
}

func (r *Resolver) index(p *models.PlayerIdentity) {
	r.byAlias[p.CanonicalName] = p
	for _, alias := range p.Aliases {
		if key := Normalize(alias); key != "" {
			if _, taken := r.byAlias[key]; !taken {
				r.byAlias[key] = p
			}
		}
	}
	if p.ExternalID != nil {
		r.byExternal[*p.ExternalID] = p
	}
}

func (r *Resolver) touch(p *models.PlayerIdentity) {
	p.UpdatedAt = r.now().UTC()
	r.dirty[p.ID] = p
}
