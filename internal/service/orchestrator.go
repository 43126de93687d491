// Package service runs the weekly recommendation pipeline end to end.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/calibration"
	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/datasource"
	"github.com/yourusername/fairway-edge/internal/identity"
	"github.com/yourusername/fairway-edge/internal/lock"
	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/metrics"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/odds"
	"github.com/yourusername/fairway-edge/internal/params"
	"github.com/yourusername/fairway-edge/internal/repository"
	"github.com/yourusername/fairway-edge/internal/selection"
	"github.com/yourusername/fairway-edge/internal/simulation"
)

// Run steps outside the fetch phase
const (
	stepCreated     = "created"
	stepCalibration = "calibration"
	stepIdentities  = "identities"
	stepGoldenRun   = "golden_run"
	stepPersist     = "persist"
)

// StepError ties an error to the pipeline step that produced it
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// guard converts a panic in fn into a StepError so one event cannot take the process down
func guard(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Step: step, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}

// RunOptions select what a run covers. Zero values mean the current ISO week and every configured tour.
type RunOptions struct {
	RunKey string
	Window *Window
	Tours  []string
	Seed   *int64
}

// RunResult summarizes a finished run
type RunResult struct {
	RunKey                 string           `json:"run_key"`
	RunID                  uuid.UUID        `json:"run_id"`
	Status                 models.RunStatus `json:"status"`
	FailedStep             string           `json:"failed_step,omitempty"`
	EventsDiscovered       int              `json:"events_discovered"`
	PlayersIngested        int              `json:"players_ingested"`
	OddsMarketsIngested    int              `json:"odds_markets_ingested"`
	RecommendationsCreated int              `json:"recommendations_created"`
	InputHash              string           `json:"input_hash,omitempty"`
	Duration               time.Duration    `json:"duration"`
	Issues                 []Issue          `json:"issues"`
	Events                 []*EventOutcome  `json:"events"`
}

// Orchestrator wires providers, models and storage into one run
type Orchestrator struct {
	cfg      *config.Config
	provider datasource.Provider
	store    repository.Store
	locker   lock.Locker
	markets  []models.Market
	logger   *logrus.Logger
	audit    *logger.AuditLogger
	now      func() time.Time

	builder   *params.Builder
	simulator *simulation.Simulator
	consensus *odds.Engine
	blender   *calibration.Blender
	selector  *selection.Selector
}

// NewOrchestrator creates a run orchestrator
func NewOrchestrator(cfg *config.Config, provider datasource.Provider, store repository.Store, locker lock.Locker, log *logrus.Logger) (*Orchestrator, error) {
	if provider == nil || store == nil || locker == nil {
		return nil, errors.New("provider, store and locker are required")
	}
	markets, err := models.ParseMarkets(cfg.Run.Markets)
	if err != nil {
		return nil, fmt.Errorf("invalid run markets: %w", err)
	}

	return &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		locker:    locker,
		markets:   markets,
		logger:    log,
		audit:     logger.NewAuditLogger(log),
		now:       time.Now,
		builder:   params.NewBuilder(cfg.Parameters, log),
		simulator: simulation.NewSimulator(cfg.Simulation, log),
		consensus: odds.NewEngine(cfg.Odds, log),
		blender:   calibration.NewBlender(cfg.Blend),
		selector:  selection.NewSelector(cfg.Selection, log),
	}, nil
}

// runState is the mutable bookkeeping of one run
type runState struct {
	run      *models.Run
	issues   *IssueLog
	step     string
	resolver *identity.Resolver
	events   []*EventOutcome
	inputs   []*tourInput
}

// Run generates, or regenerates, the recommendations for a window. Any prior run under the same
// key is deleted first so the key always maps to exactly one run.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (result *RunResult, err error) {
	started := o.now()

	window, runKey, err := resolveWindow(opts, started)
	if err != nil {
		return nil, err
	}
	log := o.logger.WithField("run_key", runKey)

	release, err := o.locker.Acquire(ctx, runKey, time.Duration(o.cfg.Run.LockWaitSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer release()

	st := &runState{issues: NewIssueLog(log), step: stepCreated}
	if err := o.reset(ctx, st, runKey, window, started); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Step: st.step, Err: fmt.Errorf("panic: %v", r)}
			o.fail(ctx, st, err)
		}
		result = o.result(st, o.now().Sub(started))
		metrics.RecordRun(string(st.run.Status), result.Duration.Seconds(), float64(o.now().Unix()))
	}()

	if err = o.execute(ctx, st, window, opts); err != nil {
		o.fail(ctx, st, err)
		return result, err
	}

	log.WithFields(logrus.Fields{
		"events":          st.run.EventsDiscovered,
		"recommendations": st.run.RecommendationsCreated,
		"issues":          len(st.issues.All()),
	}).Info("Run completed")
	return result, nil
}

func resolveWindow(opts RunOptions, now time.Time) (Window, string, error) {
	switch {
	case opts.RunKey != "":
		w, err := ParseRunKey(opts.RunKey)
		if err != nil {
			return Window{}, "", err
		}
		return w, opts.RunKey, nil
	case opts.Window != nil:
		return *opts.Window, RunKey(*opts.Window), nil
	default:
		w := CurrentWeek(now)
		return w, RunKey(w), nil
	}
}

// reset deletes any prior run under the key and records a fresh running one
func (o *Orchestrator) reset(ctx context.Context, st *runState, runKey string, window Window, started time.Time) error {
	repos := o.store.Repositories()

	previous, err := repos.Runs.GetByKey(ctx, runKey)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to look up prior run: %w", err)
	}
	if previous != nil {
		if _, err := repos.Runs.DeleteByKey(ctx, runKey); err != nil {
			return fmt.Errorf("failed to delete prior run: %w", err)
		}
		st.issues.Add(SeverityInfo, CategoryIdempotencyConflict, "prior run for key replaced",
			map[string]string{"run_key": runKey, "previous_status": string(previous.Status)})
		o.audit.LogIdempotentReset(runKey, string(previous.Status))
	}

	st.run = &models.Run{
		ID:          uuid.New(),
		RunKey:      runKey,
		Status:      models.RunStatusRunning,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		StartedAt:   started.UTC(),
	}
	if err := repos.Runs.Create(ctx, st.run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	o.audit.LogRunStarted(runKey, window.Start, window.End)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, st *runState, window Window, opts RunOptions) error {
	repos := o.store.Repositories()

	st.step = stepCalibration
	calibrator, err := o.loadCalibrator(ctx, repos, st.issues)
	if err != nil {
		return err
	}

	st.step = stepIdentities
	known, err := repos.Players.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load player identities: %w", err)
	}
	st.resolver = identity.NewResolver(o.logger)
	st.resolver.Preload(known)

	tours := opts.Tours
	if len(tours) == 0 {
		tours = o.cfg.Provider.Tours
	}

	st.step = stepFetch
	st.inputs, err = o.fetchAll(ctx, tours, window, st.issues)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.markStages(st)

	if !st.run.Stages.Predictions {
		st.issues.Add(SeverityWarning, CategoryDataQuality, "no predictions available for any tour; blending without external priors", nil)
	}

	st.step = stepOdds
	if !st.run.Stages.Odds {
		st.issues.Add(SeverityCritical, CategoryHardDependency, "no odds offers for any tour", nil)
		return fmt.Errorf("no odds offers for any tour: %w", models.ErrHardDependencyMissing)
	}

	st.step = stepSimulate
	st.events, err = o.computeAll(ctx, st.run.RunKey, st.inputs, st.resolver, calibrator, opts.Seed, st.issues)
	if err != nil {
		return err
	}
	st.run.Stages.Simulation = len(st.events) > 0
	st.run.Stages.Selection = len(st.events) > 0

	return o.seal(ctx, st)
}

// seal hashes the run inputs and persists the run only if they satisfy the golden-run invariants
func (o *Orchestrator) seal(ctx context.Context, st *runState) error {
	st.step = stepGoldenRun
	summary := o.summarize(st)
	hash, encoded, err := HashSummary(summary)
	if err != nil {
		return err
	}
	if err := CheckGoldenRun(st.run.RunKey, summary, encoded, hash); err != nil {
		st.issues.Add(SeverityCritical, CategoryGoldenRunInvariant, err.Error(), nil)
		return err
	}
	st.run.InputHash = hash
	st.run.InputSummary = encoded

	st.step = stepPersist
	return o.persist(ctx, st, encoded)
}

func (o *Orchestrator) loadCalibrator(ctx context.Context, repos *repository.Repositories, issues *IssueLog) (calibration.Calibrator, error) {
	trained, err := repos.Calibration.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration models: %w", err)
	}

	if o.cfg.Calibration.Strategy == "isotonic" {
		have := make(map[models.Market]bool, len(trained))
		for _, m := range trained {
			have[m.Market] = true
		}
		for _, market := range o.markets {
			if have[market] || market.IsGrouped() {
				continue
			}
			if o.cfg.Run.RequireCalibrationModels {
				issues.Add(SeverityCritical, CategoryCalibrationUntrained, "no trained calibration model",
					map[string]string{"market": string(market)})
				return nil, fmt.Errorf("no calibration model for %s: %w", market, models.ErrHardDependencyMissing)
			}
			issues.Add(SeverityInfo, CategoryCalibrationUntrained, "no trained calibration model; using shift-and-shrink",
				map[string]string{"market": string(market)})
		}
	}

	return calibration.NewFromConfig(o.cfg.Calibration, trained), nil
}

// markStages derives the stage flags and counters available after the fetch phase
func (o *Orchestrator) markStages(st *runState) {
	events := make(map[string]bool)
	for _, in := range st.inputs {
		if in == nil {
			continue
		}
		if in.scheduleOK {
			st.run.Stages.Schedule = true
		}
		for _, e := range in.scheduled {
			events[e.ID] = true
		}
		if in.event == nil {
			continue
		}
		events[in.event.ID] = true
		if fieldSize(in.field) > 0 {
			st.run.Stages.Field = true
		}
		if len(in.predictions) > 0 {
			st.run.Stages.Predictions = true
		}
		if in.offerCount() > 0 {
			st.run.Stages.Odds = true
		}
		st.run.OddsMarketsIngested += len(in.boards)
	}
	st.run.EventsDiscovered = len(events)
}

func (o *Orchestrator) summarize(st *runState) InputSummary {
	var summary InputSummary
	for _, e := range st.events {
		d := EventDescriptor{
			EventID:   e.Event.ID,
			Tour:      e.Tour,
			Name:      e.Event.Name,
			FieldSize: e.Players,
		}
		if !e.Event.StartDate.IsZero() {
			d.StartDate = e.Event.StartDate.UTC().Format(time.DateOnly)
		}
		summary.Events = append(summary.Events, d)
		summary.OddsSnapshot = append(summary.OddsSnapshot, e.snapshot...)
	}
	return summary
}

// persist writes recommendations, artifacts, identities and the completed run in one transaction
func (o *Orchestrator) persist(ctx context.Context, st *runState, summary []byte) error {
	now := o.now().UTC()

	var recs []*models.Recommendation
	players := 0
	for _, e := range st.events {
		players += e.Players
		for _, c := range e.Portfolio.All() {
			recs = append(recs, newRecommendation(st.run, c, now))
		}
	}

	artifacts, err := o.artifacts(st, summary, now)
	if err != nil {
		return err
	}
	identities := st.resolver.Dirty()

	completed := *st.run
	completed.Status = models.RunStatusCompleted
	completed.PlayersIngested = players
	completed.RecommendationsCreated = len(recs)
	completed.Stages.Persist = true
	completed.CompletedAt = &now

	err = o.store.WithinTx(ctx, func(tx *repository.Repositories) error {
		if len(recs) > 0 {
			if err := tx.Recommendations.InsertBatch(ctx, recs); err != nil {
				return err
			}
		}
		for _, a := range artifacts {
			if err := tx.Artifacts.Insert(ctx, a); err != nil {
				return err
			}
		}
		for _, p := range identities {
			if err := tx.Players.Upsert(ctx, p); err != nil {
				return err
			}
		}
		return tx.Runs.Update(ctx, &completed)
	})
	if err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}

	*st.run = completed
	for _, r := range recs {
		metrics.RecordRecommendation(r.Tier, r.Fallback, r.Confidence)
	}
	metrics.SetLastRunRecommendations(len(recs))
	o.audit.LogGoldenRunPersisted(st.run.RunKey, st.run.InputHash, len(recs), len(artifacts))
	return nil
}

// artifacts captures the input summary and every raw field and odds payload the run consumed
func (o *Orchestrator) artifacts(st *runState, summary []byte, now time.Time) ([]*models.RunArtifact, error) {
	threshold := o.cfg.Run.ArtifactCompressionBytes

	out := make([]*models.RunArtifact, 0, 1+2*len(st.events))
	a, err := NewArtifact(st.run, ArtifactInputSummary, summary, threshold, now)
	if err != nil {
		return nil, err
	}
	out = append(out, a)

	for _, e := range st.events {
		if e.field != nil && len(e.field.Payload) > 0 {
			a, err := NewArtifact(st.run, ArtifactField+":"+e.Tour, e.field.Payload, threshold, now)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		for _, b := range e.boards {
			if len(b.Payload) == 0 {
				continue
			}
			a, err := NewArtifact(st.run, ArtifactOdds+":"+e.Tour+":"+string(b.Market), b.Payload, threshold, now)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func newRecommendation(run *models.Run, c models.Candidate, now time.Time) *models.Recommendation {
	return &models.Recommendation{
		ID:                uuid.New(),
		RunID:             run.ID,
		RunKey:            run.RunKey,
		EventID:           c.EventID,
		Tier:              c.Tier,
		Market:            c.Market,
		GroupID:           c.GroupID,
		SelectionKey:      c.SelectionKey,
		PlayerName:        c.PlayerName,
		FairProbability:   c.FairProbability,
		MarketProbability: c.MarketProbability,
		Edge:              c.Edge,
		ExpectedValue:     c.ExpectedValue,
		Odds:              decimal.NewFromFloat(c.BestOdds).Round(4),
		Bookmaker:         c.BestBook,
		Provenance:        c.Provenance,
		Confidence:        c.Confidence,
		Fallback:          c.Fallback,
		FallbackReason:    c.FallbackReason,
		Rationale:         selection.Rationale(c),
		CreatedAt:         now,
	}
}

// fail marks the run failed. The update runs even when ctx is already cancelled.
func (o *Orchestrator) fail(ctx context.Context, st *runState, err error) {
	step := st.step
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		step = stepErr.Step
	}

	now := o.now().UTC()
	st.run.Status = models.RunStatusFailed
	st.run.FailedStep = step
	st.run.Error = err.Error()
	st.run.CompletedAt = &now

	if uerr := o.store.Repositories().Runs.Update(context.WithoutCancel(ctx), st.run); uerr != nil {
		o.logger.WithError(uerr).WithField("run_key", st.run.RunKey).Error("Failed to record run failure")
	}
	o.audit.LogRunFailed(st.run.RunKey, step, err)
}

func (o *Orchestrator) result(st *runState, elapsed time.Duration) *RunResult {
	events := append([]*EventOutcome(nil), st.events...)
	sort.Slice(events, func(i, j int) bool { return events[i].Event.ID < events[j].Event.ID })

	return &RunResult{
		RunKey:                 st.run.RunKey,
		RunID:                  st.run.ID,
		Status:                 st.run.Status,
		FailedStep:             st.run.FailedStep,
		EventsDiscovered:       st.run.EventsDiscovered,
		PlayersIngested:        st.run.PlayersIngested,
		OddsMarketsIngested:    st.run.OddsMarketsIngested,
		RecommendationsCreated: st.run.RecommendationsCreated,
		InputHash:              st.run.InputHash,
		Duration:               elapsed,
		Issues:                 st.issues.Top(o.cfg.Run.TopIssues),
		Events:                 events,
	}
}
