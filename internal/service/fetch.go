package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/fairway-edge/internal/datasource"
	"github.com/yourusername/fairway-edge/internal/metrics"
	"github.com/yourusername/fairway-edge/internal/models"
)

// Fetch stages, also used as failed-step names
const (
	stepFetch       = "fetch"
	stepSchedule    = "schedule"
	stepField       = "field"
	stepSkills      = "skills"
	stepPredictions = "predictions"
	stepOdds        = "odds"
)

// tourInput is everything fetched for one tour. It is not modified once the fetch phase ends.
type tourInput struct {
	tour        string
	event       *models.Event
	scheduled   []models.Event
	field       *models.Field
	skills      []models.SkillRating
	predictions []models.PlayerPrediction
	boards      []*models.OddsBoard

	scheduleOK bool
}

func (t *tourInput) offerCount() int {
	n := 0
	for _, b := range t.boards {
		n += len(b.Offers)
	}
	return n
}

// fetchAll runs the fetch phase for every tour, bounded by run.max_concurrent_events.
// Fetch failures are soft; the only error returned is a recovered panic.
func (o *Orchestrator) fetchAll(ctx context.Context, tours []string, window Window, issues *IssueLog) ([]*tourInput, error) {
	inputs := make([]*tourInput, len(tours))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Run.MaxConcurrentEvents)
	for i, tour := range tours {
		i, tour := i, tour
		g.Go(func() error {
			return guard(stepFetch, func() error {
				inputs[i] = o.fetchTour(gctx, tour, window, issues)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (o *Orchestrator) fetchTour(ctx context.Context, tour string, window Window, issues *IssueLog) *tourInput {
	in := &tourInput{tour: tour}
	log := o.logger.WithField("tour", tour)

	err := o.withTimeout(ctx, func(ctx context.Context) error {
		events, err := o.provider.Schedule(ctx, tour)
		if err != nil {
			return err
		}
		for _, e := range events {
			if window.Contains(e.StartDate) {
				in.scheduled = append(in.scheduled, e)
			}
		}
		sort.Slice(in.scheduled, func(i, j int) bool { return in.scheduled[i].StartDate.Before(in.scheduled[j].StartDate) })
		in.scheduleOK = true
		return nil
	})
	if err != nil {
		o.softFail(issues, stepSchedule, tour, err)
	}

	err = o.withTimeout(ctx, func(ctx context.Context) error {
		field, err := o.provider.Field(ctx, tour)
		if err != nil {
			return err
		}
		in.field = field
		return nil
	})
	if err != nil {
		o.softFail(issues, stepField, tour, err)
	}

	in.event = o.currentEvent(in, window, issues)
	if in.event == nil {
		log.Debug("No current event in run window")
		return in
	}

	err = o.withTimeout(ctx, func(ctx context.Context) error {
		skills, err := o.provider.SkillRatings(ctx, tour)
		in.skills = skills
		return err
	})
	if err != nil {
		o.softFail(issues, stepSkills, tour, err)
	}

	err = o.withTimeout(ctx, func(ctx context.Context) error {
		preds, err := o.provider.Predictions(ctx, tour)
		in.predictions = preds
		return err
	})
	if err != nil {
		o.softFail(issues, stepPredictions, tour, err)
	}

	for _, market := range o.markets {
		var board *models.OddsBoard
		err := o.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			if market.IsGrouped() {
				board, err = o.provider.MatchupOdds(ctx, tour, market)
			} else {
				board, err = o.provider.OutrightOdds(ctx, tour, market)
			}
			return err
		})
		if err != nil {
			o.softFail(issues, stepOdds, tour, fmt.Errorf("%s: %w", market, err))
			continue
		}
		if board == nil || len(board.Offers) == 0 {
			continue
		}
		if board.Market == "" {
			board.Market = market
		}
		in.boards = append(in.boards, board)
	}

	log.WithFields(logrus.Fields{
		"event_id":    in.event.ID,
		"field":       fieldSize(in.field),
		"skills":      len(in.skills),
		"predictions": len(in.predictions),
		"boards":      len(in.boards),
		"offers":      in.offerCount(),
	}).Info("Fetched tour inputs")

	return in
}

// currentEvent picks the event the tour's field and odds belong to. The field's event wins;
// without a field the earliest scheduled event inside the window is used.
func (o *Orchestrator) currentEvent(in *tourInput, window Window, issues *IssueLog) *models.Event {
	if in.field != nil && in.field.EventID != "" {
		for _, e := range in.scheduled {
			if e.ID == in.field.EventID {
				event := e
				return &event
			}
		}
		if in.scheduleOK {
			issues.Add(SeverityWarning, CategoryDataQuality, "current field belongs to an event outside the run window",
				map[string]string{"tour": in.tour, "event_id": in.field.EventID})
			return nil
		}
		return &models.Event{ID: in.field.EventID, Tour: in.tour, Name: in.field.EventName}
	}

	if len(in.scheduled) > 0 {
		event := in.scheduled[0]
		return &event
	}
	return nil
}

func (o *Orchestrator) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	timeout := o.cfg.ProviderTimeout()
	if timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(cctx)
}

func (o *Orchestrator) softFail(issues *IssueLog, stage, tour string, err error) {
	metrics.RecordFetchError(stage)
	fields := map[string]string{"tour": tour, "stage": stage, "error": err.Error()}
	if code := datasource.ErrorCode(err); code != "" {
		fields["code"] = code
	}
	issues.Add(SeverityWarning, CategorySoftFetchFailure, stage+" fetch failed; slice skipped", fields)
}

func fieldSize(f *models.Field) int {
	if f == nil {
		return 0
	}
	return len(f.Players)
}
