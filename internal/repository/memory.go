package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/fairway-edge/internal/models"
)

// MemoryStore implements Store in process memory. It backs dry runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
	repos *Repositories
}

type memoryState struct {
	runs        map[string]*models.Run
	recs        map[string][]*models.Recommendation
	artifacts   map[string][]*models.RunArtifact
	calibration []*models.CalibrationModel
	players     map[string]*models.PlayerIdentity
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{state: newMemoryState()}
	s.repos = s.reposFor(false)
	return s
}

func newMemoryState() memoryState {
	return memoryState{
		runs:      make(map[string]*models.Run),
		recs:      make(map[string][]*models.Recommendation),
		artifacts: make(map[string][]*models.RunArtifact),
		players:   make(map[string]*models.PlayerIdentity),
	}
}

// Repositories returns repositories where every call is individually atomic
func (s *MemoryStore) Repositories() *Repositories {
	return s.repos
}

// WithinTx holds the store lock for the whole of fn and restores the prior state if fn fails or panics
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if r := recover(); r != nil {
			s.state = snapshot
			panic(r)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.reposFor(true))
}

func (s *MemoryStore) reposFor(inTx bool) *Repositories {
	m := &memoryRepos{store: s, inTx: inTx}
	return &Repositories{
		Runs:            memoryRuns{m},
		Recommendations: memoryRecommendations{m},
		Artifacts:       memoryArtifacts{m},
		Calibration:     memoryCalibration{m},
		Players:         memoryPlayers{m},
	}
}

func (st memoryState) clone() memoryState {
	c := newMemoryState()
	for k, run := range st.runs {
		c.runs[k] = cloneRun(run)
	}
	for k, recs := range st.recs {
		for _, rec := range recs {
			r := *rec
			c.recs[k] = append(c.recs[k], &r)
		}
	}
	for k, artifacts := range st.artifacts {
		for _, a := range artifacts {
			c.artifacts[k] = append(c.artifacts[k], cloneArtifact(a))
		}
	}
	for _, m := range st.calibration {
		c.calibration = append(c.calibration, cloneCalibration(m))
	}
	for k, p := range st.players {
		c.players[k] = p.Clone()
	}
	return c
}

// memoryRepos skips locking while inside WithinTx, which already holds the store lock
type memoryRepos struct {
	store *MemoryStore
	inTx  bool
}

func (m *memoryRepos) do(fn func(st *memoryState) error) error {
	if !m.inTx {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
	}
	return fn(&m.store.state)
}

type memoryRuns struct{ *memoryRepos }

func (r memoryRuns) Create(_ context.Context, run *models.Run) error {
	return r.do(func(st *memoryState) error {
		if _, ok := st.runs[run.RunKey]; ok {
			return models.ErrDuplicateKey
		}
		st.runs[run.RunKey] = cloneRun(run)
		return nil
	})
}

func (r memoryRuns) GetByKey(_ context.Context, runKey string) (*models.Run, error) {
	var out *models.Run
	err := r.do(func(st *memoryState) error {
		run, ok := st.runs[runKey]
		if !ok {
			return models.ErrNotFound
		}
		out = cloneRun(run)
		return nil
	})
	return out, err
}

func (r memoryRuns) Update(_ context.Context, run *models.Run) error {
	return r.do(func(st *memoryState) error {
		existing, ok := st.runs[run.RunKey]
		if !ok || existing.ID != run.ID {
			return models.ErrNotFound
		}
		st.runs[run.RunKey] = cloneRun(run)
		return nil
	})
}

func (r memoryRuns) DeleteByKey(_ context.Context, runKey string) (bool, error) {
	var existed bool
	err := r.do(func(st *memoryState) error {
		_, existed = st.runs[runKey]
		delete(st.runs, runKey)
		delete(st.recs, runKey)
		delete(st.artifacts, runKey)
		return nil
	})
	return existed, err
}

func (r memoryRuns) ListRecent(_ context.Context, limit int) ([]*models.Run, error) {
	var out []*models.Run
	err := r.do(func(st *memoryState) error {
		for _, run := range st.runs {
			out = append(out, cloneRun(run))
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].StartedAt.Equal(out[j].StartedAt) {
				return out[i].StartedAt.After(out[j].StartedAt)
			}
			return out[i].RunKey < out[j].RunKey
		})
		if limit >= 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

type memoryRecommendations struct{ *memoryRepos }

func (r memoryRecommendations) InsertBatch(_ context.Context, recs []*models.Recommendation) error {
	return r.do(func(st *memoryState) error {
		seen := make(map[string]struct{})
		for _, existing := range recs {
			for _, rec := range st.recs[existing.RunKey] {
				seen[recommendationKey(rec)] = struct{}{}
			}
		}
		for i, rec := range recs {
			run, ok := st.runs[rec.RunKey]
			if !ok || run.ID != rec.RunID {
				return fmt.Errorf("failed to insert recommendation %d: run %s: %w", i, rec.RunKey, models.ErrNotFound)
			}
			key := recommendationKey(rec)
			if _, dup := seen[key]; dup {
				return fmt.Errorf("failed to insert recommendation %d: %w", i, models.ErrDuplicateKey)
			}
			seen[key] = struct{}{}
		}
		for _, rec := range recs {
			c := *rec
			st.recs[rec.RunKey] = append(st.recs[rec.RunKey], &c)
		}
		return nil
	})
}

func (r memoryRecommendations) GetByRunKey(_ context.Context, runKey string) ([]*models.Recommendation, error) {
	var out []*models.Recommendation
	err := r.do(func(st *memoryState) error {
		for _, rec := range st.recs[runKey] {
			c := *rec
			out = append(out, &c)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.ExpectedValue != b.ExpectedValue {
			return a.ExpectedValue > b.ExpectedValue
		}
		return recommendationKey(a) < recommendationKey(b)
	})
	return out, err
}

func recommendationKey(rec *models.Recommendation) string {
	return rec.RunID.String() + "|" + rec.EventID + "|" + string(rec.Market) + "|" + rec.GroupID + "|" + rec.SelectionKey
}

type memoryArtifacts struct{ *memoryRepos }

func (r memoryArtifacts) Insert(_ context.Context, a *models.RunArtifact) error {
	return r.do(func(st *memoryState) error {
		run, ok := st.runs[a.RunKey]
		if !ok || run.ID != a.RunID {
			return fmt.Errorf("failed to insert artifact: run %s: %w", a.RunKey, models.ErrNotFound)
		}
		st.artifacts[a.RunKey] = append(st.artifacts[a.RunKey], cloneArtifact(a))
		return nil
	})
}

func (r memoryArtifacts) GetByRunKey(_ context.Context, runKey string) ([]*models.RunArtifact, error) {
	var out []*models.RunArtifact
	err := r.do(func(st *memoryState) error {
		for _, a := range st.artifacts[runKey] {
			out = append(out, cloneArtifact(a))
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].PayloadHash < out[j].PayloadHash
	})
	return out, err
}

type memoryCalibration struct{ *memoryRepos }

func (r memoryCalibration) Save(_ context.Context, m *models.CalibrationModel) error {
	return r.do(func(st *memoryState) error {
		for _, existing := range st.calibration {
			if existing.Market == m.Market {
				existing.Active = false
			}
		}
		m.Active = true
		st.calibration = append(st.calibration, cloneCalibration(m))
		return nil
	})
}

func (r memoryCalibration) GetActive(_ context.Context) ([]*models.CalibrationModel, error) {
	var out []*models.CalibrationModel
	err := r.do(func(st *memoryState) error {
		for _, m := range st.calibration {
			if m.Active {
				out = append(out, cloneCalibration(m))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out, err
}

func (r memoryCalibration) GetActiveByMarket(_ context.Context, market models.Market) (*models.CalibrationModel, error) {
	var out *models.CalibrationModel
	err := r.do(func(st *memoryState) error {
		for _, m := range st.calibration {
			if m.Active && m.Market == market {
				out = cloneCalibration(m)
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

type memoryPlayers struct{ *memoryRepos }

func (r memoryPlayers) GetAll(_ context.Context) ([]*models.PlayerIdentity, error) {
	var out []*models.PlayerIdentity
	err := r.do(func(st *memoryState) error {
		for _, p := range st.players {
			out = append(out, p.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, err
}

func (r memoryPlayers) Upsert(_ context.Context, p *models.PlayerIdentity) error {
	return r.do(func(st *memoryState) error {
		if p.ExternalID != nil {
			for name, other := range st.players {
				if name != p.CanonicalName && other.ExternalID != nil && *other.ExternalID == *p.ExternalID {
					return fmt.Errorf("failed to upsert player %q: %w", p.CanonicalName, models.ErrDuplicateKey)
				}
			}
		}

		existing, ok := st.players[p.CanonicalName]
		if !ok {
			c := p.Clone()
			sort.Strings(c.Aliases)
			st.players[p.CanonicalName] = c
			return nil
		}
		for _, alias := range p.Aliases {
			existing.AddAlias(alias)
		}
		if existing.ExternalID == nil && p.ExternalID != nil {
			id := *p.ExternalID
			existing.ExternalID = &id
		}
		existing.UpdatedAt = p.UpdatedAt
		return nil
	})
}

func cloneRun(run *models.Run) *models.Run {
	c := *run
	c.InputSummary = append([]byte(nil), run.InputSummary...)
	if run.CompletedAt != nil {
		t := *run.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneArtifact(a *models.RunArtifact) *models.RunArtifact {
	c := *a
	c.Payload = append([]byte(nil), a.Payload...)
	return &c
}

func cloneCalibration(m *models.CalibrationModel) *models.CalibrationModel {
	c := *m
	c.Bins = append([]models.CalibrationBin(nil), m.Bins...)
	return &c
}
