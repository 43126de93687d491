package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/fairway-edge/internal/calibration"
	"github.com/yourusername/fairway-edge/internal/identity"
	"github.com/yourusername/fairway-edge/internal/metrics"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/odds"
	"github.com/yourusername/fairway-edge/internal/params"
	"github.com/yourusername/fairway-edge/internal/selection"
	"github.com/yourusername/fairway-edge/internal/simulation"
)

const stepSimulate = "simulate"

// EventOutcome is what one event contributed to a run
type EventOutcome struct {
	Tour        string                    `json:"tour"`
	Event       models.Event              `json:"event"`
	Players     int                       `json:"players"`
	Offers      int                       `json:"offers"`
	Portfolio   *models.Portfolio         `json:"portfolio"`
	Diagnostics selection.Diagnostics     `json:"diagnostics"`
	Simulation  *models.SimulationResult  `json:"-"`
	Consensus   []*models.MarketConsensus `json:"-"`

	snapshot []OddsDescriptor
	field    *models.Field
	boards   []*models.OddsBoard
}

// roster is the resolved entry list of one event
type roster struct {
	keys  []string
	names map[string]string
	// fromOdds is set when no field was available and entrants were taken from outright offers
	fromOdds bool
}

// members returns the field filter for consensus; nil when the field itself is unknown
func (r *roster) members() map[string]bool {
	if r.fromOdds {
		return nil
	}
	m := make(map[string]bool, len(r.keys))
	for _, k := range r.keys {
		m[k] = true
	}
	return m
}

// computeAll prices every tour that has an event and offers, bounded by run.max_concurrent_events
func (o *Orchestrator) computeAll(ctx context.Context, runKey string, inputs []*tourInput, resolver *identity.Resolver,
	calibrator calibration.Calibrator, seed *int64, issues *IssueLog) ([]*EventOutcome, error) {

	outcomes := make([]*EventOutcome, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Run.MaxConcurrentEvents)
	for i, in := range inputs {
		if in == nil || in.event == nil || len(in.boards) == 0 {
			continue
		}
		i, in := i, in
		g.Go(func() error {
			return guard(stepSimulate, func() error {
				out, err := o.computeEvent(gctx, runKey, in, resolver, calibrator, seed, issues)
				if err != nil {
					return fmt.Errorf("event %s: %w", in.event.ID, err)
				}
				outcomes[i] = out
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*EventOutcome
	for _, e := range outcomes {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *Orchestrator) computeEvent(ctx context.Context, runKey string, in *tourInput, resolver *identity.Resolver,
	calibrator calibration.Calibrator, seed *int64, issues *IssueLog) (*EventOutcome, error) {

	event := *in.event
	log := o.logger.WithFields(logrus.Fields{"tour": in.tour, "event_id": event.ID})

	offers, offerNames := resolveOffers(in.boards, resolver)
	r := buildRoster(in.field, offers, offerNames, resolver)
	if len(r.keys) == 0 {
		issues.Add(SeverityWarning, CategoryDataQuality, "event has neither a field nor outright offers; skipped",
			map[string]string{"tour": in.tour, "event_id": event.ID})
		return nil, nil
	}
	if r.fromOdds {
		issues.Add(SeverityWarning, CategoryDataQuality, "field unavailable; entrants taken from outright offers",
			map[string]string{"tour": in.tour, "event_id": event.ID, "players": strconv.Itoa(len(r.keys))})
	}

	predictions := predictionsByKey(in.predictions, resolver)
	players := o.builder.Build(buildInputs(r, skillsByKey(in.skills, resolver), predictions))

	opts := simulation.Options{
		Rounds: o.cfg.Simulation.Rounds,
		Trials: o.cfg.Simulation.Trials,
		Cut: simulation.CutRule{
			AfterRound: o.cfg.Simulation.CutAfterRound,
			Size:       o.cfg.Simulation.CutSize,
			NoCut:      event.NoCut || o.cfg.IsNoCutTour(in.tour),
		},
		Seed:                 o.eventSeed(seed, runKey, event.ID),
		RoundVolatilityDelta: o.cfg.Simulation.RoundVolatilityDelta,
	}
	if event.Rounds > 0 {
		opts.Rounds = event.Rounds
	}
	for _, b := range in.boards {
		if b.Market.IsGrouped() {
			opts.ExportScores = true
		}
	}

	started := time.Now()
	sim, err := o.simulator.Run(ctx, players, opts)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	metrics.RecordSimulation(time.Since(started).Seconds())
	o.checkCutPrior(players, sim, opts.Cut.NoCut, in.tour, event.ID, issues)

	cutSize := opts.Cut.Size
	if opts.Cut.NoCut {
		cutSize = 0
	}

	out := &EventOutcome{
		Tour:       in.tour,
		Event:      event,
		Players:    len(r.keys),
		Simulation: sim,
		field:      in.field,
		boards:     in.boards,
	}

	field := r.members()
	var pricings []selection.Pricing
	for _, board := range in.boards {
		marketOffers := offers[board.Market]
		out.Offers += len(marketOffers)
		out.snapshot = append(out.snapshot, OddsDescriptor{
			Tour:        in.tour,
			EventID:     event.ID,
			Market:      board.Market,
			Offers:      len(board.Offers),
			Books:       board.Books(),
			PayloadHash: HashPayload(board.Payload),
		})

		consensus, stats := o.consensus.Consensus(board.Market, marketOffers, field, board.Market.TargetSum(cutSize, len(r.keys)))
		out.Consensus = append(out.Consensus, consensus)
		o.checkCoverage(board.Market, stats, r, in.tour, event.ID, issues)

		pricings = append(pricings, o.price(board.Market, consensus, sim, predictions, r.names, calibrator, in.tour, event.ID, issues)...)
	}

	portfolio, diag := o.selector.Select(event.ID, pricings)
	out.Portfolio = portfolio
	out.Diagnostics = diag

	if diag.Invalid > 0 {
		metrics.RecordInvalidProbabilities(diag.Invalid)
		issues.Add(SeverityWarning, CategoryInvalidProbability, "selections dropped for probabilities outside (0, 1)",
			map[string]string{"event_id": event.ID, "count": strconv.Itoa(diag.Invalid)})
	}
	for _, s := range diag.Shortfalls {
		issues.Add(SeverityInfo, CategoryInsufficientTier, "tier below minimum pick count",
			map[string]string{"event_id": event.ID, "tier": s.Tier, "wanted": strconv.Itoa(s.Wanted), "got": strconv.Itoa(s.Got)})
	}

	log.WithFields(logrus.Fields{
		"players":   out.Players,
		"offers":    out.Offers,
		"priced":    diag.Priced,
		"selected":  diag.Selected,
		"fallbacks": diag.Fallbacks,
		"seed":      sim.Seed,
	}).Info("Event priced")

	return out, nil
}

// price blends and calibrates every consensus entry of one market. Selections the simulation did
// not cover are reported and skipped; no other source stands in for the simulation.
func (o *Orchestrator) price(market models.Market, consensus *models.MarketConsensus, sim *models.SimulationResult,
	predictions map[string]*models.PlayerPrediction, names map[string]string, calibrator calibration.Calibrator,
	tour, eventID string, issues *IssueLog) []selection.Pricing {

	grouped := make(map[string]float64)
	if market.IsGrouped() {
		for groupID, members := range consensus.Groups() {
			probs, err := simulation.GroupProbabilities(sim.Scores, members)
			if err != nil {
				continue
			}
			for key, p := range probs {
				grouped[models.OfferKey(groupID, key)] = p
			}
		}
	}

	keys := make([]string, 0, len(consensus.Entries))
	for k := range consensus.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	missing, invalid := 0, 0
	var out []selection.Pricing
	for _, k := range keys {
		entry := consensus.Entries[k]

		var simP float64
		var ok bool
		if market.IsGrouped() {
			simP, ok = grouped[models.OfferKey(entry.GroupID, entry.SelectionKey)]
		} else {
			simP, ok = sim.Probability(entry.SelectionKey, market)
		}
		if !ok {
			missing++
			continue
		}

		external := predictions[entry.SelectionKey].ForMarket(market)
		marketP := entry.FairProbability
		blended, err := o.blender.Blend(calibration.Inputs{Simulation: &simP, External: external, Market: &marketP})
		if err != nil {
			if errors.Is(err, models.ErrInvalidProbability) {
				invalid++
			}
			continue
		}

		name := names[entry.SelectionKey]
		if name == "" {
			name = entry.SelectionKey
		}
		out = append(out, selection.Pricing{
			Market:              market,
			PlayerName:          name,
			FairProbability:     calibrator.Calibrate(market, blended),
			SimProbability:      simP,
			ExternalProbability: external,
			Consensus:           entry,
		})
	}

	if missing > 0 {
		issues.Add(SeverityWarning, CategoryMissingSimulation, "selections without a simulated probability were skipped",
			map[string]string{"tour": tour, "event_id": eventID, "market": string(market), "count": strconv.Itoa(missing)})
	}
	if invalid > 0 {
		metrics.RecordInvalidProbabilities(invalid)
		issues.Add(SeverityWarning, CategoryInvalidProbability, "selections with invalid simulated probabilities were skipped",
			map[string]string{"tour": tour, "event_id": eventID, "market": string(market), "count": strconv.Itoa(invalid)})
	}
	return out
}

// checkCoverage flags outright markets quoting too little of the field and offers on non-entrants
func (o *Orchestrator) checkCoverage(market models.Market, stats odds.Stats, r *roster, tour, eventID string, issues *IssueLog) {
	if market.IsGrouped() || len(r.keys) == 0 {
		return
	}
	fields := map[string]string{"tour": tour, "event_id": eventID, "market": string(market)}

	coverage := float64(stats.Selections) / float64(len(r.keys))
	if floor := o.cfg.Run.MinFieldOddsCoverageRatio; floor > 0 && coverage < floor {
		fields["coverage"] = strconv.FormatFloat(coverage, 'f', 3, 64)
		issues.Add(SeverityWarning, CategoryDataQuality, "odds cover too little of the field", fields)
		return
	}
	if stats.Excluded > 0 && !r.fromOdds {
		fields["excluded"] = strconv.Itoa(stats.Excluded)
		issues.Add(SeverityInfo, CategoryDataQuality, "offers outside the field or with invalid odds were dropped", fields)
	}
}

// checkCutPrior flags events whose simulated make-cut rates drift from the players' make-cut priors.
// The priors come from provider predictions where available, so a large gap usually means a bad field or skill feed.
func (o *Orchestrator) checkCutPrior(players []models.PlayerParameters, sim *models.SimulationResult, noCut bool, tour, eventID string, issues *IssueLog) {
	limit := o.cfg.Parameters.MaxCutPriorGap
	if noCut || limit <= 0 || sim == nil {
		return
	}

	var total float64
	n := 0
	for _, p := range players {
		out, ok := sim.Probabilities[p.SelectionKey]
		if !ok {
			continue
		}
		total += math.Abs(p.MakeCutPrior - out.MakeCut)
		n++
	}
	if n == 0 {
		return
	}

	if gap := total / float64(n); gap > limit {
		issues.Add(SeverityWarning, CategoryDataQuality, "simulated make-cut rates diverge from priors",
			map[string]string{"tour": tour, "event_id": eventID, "mean_gap": strconv.FormatFloat(gap, 'f', 3, 64)})
	}
}

// resolveOffers maps raw board offers onto canonical selection keys, per market.
// It also returns the display name seen for each key.
func resolveOffers(boards []*models.OddsBoard, resolver *identity.Resolver) (map[models.Market][]models.OddsOffer, map[string]string) {
	offers := make(map[models.Market][]models.OddsOffer, len(boards))
	names := make(map[string]string)
	for _, b := range boards {
		for _, raw := range b.Offers {
			p := resolver.ResolveByExternalID(raw.PlayerName, raw.ExternalID)
			if p == nil {
				continue
			}
			if _, ok := names[p.CanonicalName]; !ok && raw.PlayerName != "" {
				names[p.CanonicalName] = raw.PlayerName
			}
			offers[b.Market] = append(offers[b.Market], models.OddsOffer{
				Market:       b.Market,
				GroupID:      raw.GroupID,
				SelectionKey: p.CanonicalName,
				Bookmaker:    raw.Bookmaker,
				DecimalOdds:  raw.DecimalOdds,
				CapturedAt:   b.CapturedAt,
			})
		}
	}
	return offers, names
}

// buildRoster takes active field entrants, or every outright selection when the field is missing
func buildRoster(field *models.Field, offers map[models.Market][]models.OddsOffer, offerNames map[string]string,
	resolver *identity.Resolver) *roster {

	r := &roster{names: make(map[string]string)}
	seen := make(map[string]bool)

	if field != nil && len(field.Players) > 0 {
		for _, fp := range field.Players {
			if fp.Withdrawn {
				continue
			}
			p := resolver.ResolveByExternalID(fp.Name, fp.ExternalID)
			if p == nil || seen[p.CanonicalName] {
				continue
			}
			seen[p.CanonicalName] = true
			r.keys = append(r.keys, p.CanonicalName)
			r.names[p.CanonicalName] = fp.Name
		}
	} else {
		r.fromOdds = true
		for market, list := range offers {
			if market.IsGrouped() {
				continue
			}
			for _, o := range list {
				if seen[o.SelectionKey] {
					continue
				}
				seen[o.SelectionKey] = true
				r.keys = append(r.keys, o.SelectionKey)
			}
		}
	}

	for key, name := range offerNames {
		if _, ok := r.names[key]; !ok {
			r.names[key] = name
		}
	}
	sort.Strings(r.keys)
	return r
}

func skillsByKey(skills []models.SkillRating, resolver *identity.Resolver) map[string]*models.SkillRating {
	out := make(map[string]*models.SkillRating, len(skills))
	for i := range skills {
		s := &skills[i]
		if p := resolver.ResolveByExternalID(s.PlayerName, s.ExternalID); p != nil {
			out[p.CanonicalName] = s
		}
	}
	return out
}

func predictionsByKey(preds []models.PlayerPrediction, resolver *identity.Resolver) map[string]*models.PlayerPrediction {
	out := make(map[string]*models.PlayerPrediction, len(preds))
	for i := range preds {
		pp := &preds[i]
		if p := resolver.ResolveByExternalID(pp.PlayerName, pp.ExternalID); p != nil {
			out[p.CanonicalName] = pp
		}
	}
	return out
}

func buildInputs(r *roster, skills map[string]*models.SkillRating, predictions map[string]*models.PlayerPrediction) []params.Input {
	inputs := make([]params.Input, 0, len(r.keys))
	for _, key := range r.keys {
		inputs = append(inputs, params.Input{
			SelectionKey: key,
			Name:         r.names[key],
			Skill:        skills[key],
			Prediction:   predictions[key],
		})
	}
	return inputs
}

// eventSeed picks the simulation seed: an explicit run seed, then the configured seed, then a
// value derived from the run key and event so reruns of a window reproduce.
func (o *Orchestrator) eventSeed(seed *int64, runKey, eventID string) *int64 {
	var base int64
	switch {
	case seed != nil:
		base = *seed
	case o.cfg.Simulation.Seed != 0:
		base = o.cfg.Simulation.Seed
	default:
		h := fnv.New64a()
		h.Write([]byte(runKey + "|" + eventID))
		base = int64(h.Sum64())
	}
	return &base
}
