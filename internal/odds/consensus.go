package odds

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// Stats summarizes what the engine did with a market's offers
type Stats struct {
	Offers       int
	Excluded     int
	Books        int
	Selections   int
	Fallbacks    int
	PartialBooks int
	MaxOverround float64
}

// Engine produces de-vigged consensus probabilities per market
type Engine struct {
	cfg    config.OddsConfig
	logger *logrus.Entry
}

// NewEngine creates a consensus engine
func NewEngine(cfg config.OddsConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger.WithField("component", "odds_consensus"),
	}
}

// Method returns the vig removal method configured for a market.
// Small fixed-outcome groupings default to normalize, outrights to power.
func (e *Engine) Method(market models.Market) VigMethod {
	if m, ok := e.cfg.Methods[string(market)]; ok {
		return VigMethod(m)
	}
	if market.IsGrouped() {
		return VigNormalize
	}
	return VigPower
}

// Consensus builds fair probabilities for every selection in the market.
// Outright offers on players outside field are dropped; grouped markets keep every offer
// and are de-vigged group by group with a target mass of 1. A nil field keeps everything.
func (e *Engine) Consensus(market models.Market, offers []models.OddsOffer, field map[string]bool, targetSum float64) (*models.MarketConsensus, Stats) {
	stats := Stats{Offers: len(offers)}
	result := &models.MarketConsensus{Market: market, Entries: make(map[string]models.ConsensusEntry)}

	groups := make(map[string][]models.OddsOffer)
	books := make(map[string]bool)
	for _, o := range offers {
		if o.DecimalOdds <= 1 || o.SelectionKey == "" {
			stats.Excluded++
			continue
		}
		if !market.IsGrouped() && field != nil && !field[o.SelectionKey] {
			stats.Excluded++
			continue
		}
		groups[o.GroupID] = append(groups[o.GroupID], o)
		books[o.Bookmaker] = true
	}
	stats.Books = len(books)

	groupIDs := make([]string, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)

	for _, id := range groupIDs {
		target := targetSum
		if market.IsGrouped() {
			target = 1
		}
		e.consensusForGroup(market, groups[id], target, result, &stats)
	}
	stats.Selections = len(result.Entries)

	e.logger.WithFields(logrus.Fields{
		"market":     market,
		"offers":     stats.Offers,
		"excluded":   stats.Excluded,
		"books":      stats.Books,
		"selections": stats.Selections,
		"fallbacks":  stats.Fallbacks,
		"partial":    stats.PartialBooks,
		"overround":  stats.MaxOverround,
	}).Debug("Market consensus built")

	return result, stats
}

type quote struct {
	book string
	odds float64
}

func (e *Engine) consensusForGroup(market models.Market, offers []models.OddsOffer, target float64, out *models.MarketConsensus, stats *Stats) {
	groupID := offers[0].GroupID

	// book -> selection -> best price that book shows
	byBook := make(map[string]map[string]float64)
	best := make(map[string]quote)
	for _, o := range offers {
		prices, ok := byBook[o.Bookmaker]
		if !ok {
			prices = make(map[string]float64)
			byBook[o.Bookmaker] = prices
		}
		if o.DecimalOdds > prices[o.SelectionKey] {
			prices[o.SelectionKey] = o.DecimalOdds
		}
		cur, seen := best[o.SelectionKey]
		if !seen || o.DecimalOdds > cur.odds || (o.DecimalOdds == cur.odds && o.Bookmaker < cur.book) {
			best[o.SelectionKey] = quote{book: o.Bookmaker, odds: o.DecimalOdds}
		}
	}

	selections := make([]string, 0, len(best))
	for key := range best {
		selections = append(selections, key)
	}
	sort.Strings(selections)

	bookNames := make([]string, 0, len(byBook))
	for b := range byBook {
		bookNames = append(bookNames, b)
	}
	sort.Strings(bookNames)

	method := e.Method(market)
	fair := make(map[string][]weightedProb, len(selections))
	for _, book := range bookNames {
		weight := e.bookWeight(book)
		if weight <= 0 {
			continue
		}
		prices := byBook[book]
		// a partial quote of a small group cannot be de-vigged on its own
		if market.IsGrouped() && len(prices) < len(selections) {
			continue
		}
		// a book quoting a slice of an outright market has no overround to strip; its
		// prices still count toward best odds and the fallback
		if !market.IsGrouped() && float64(len(prices)) < e.cfg.MinBookCoverage*float64(len(selections)) {
			stats.PartialBooks++
			continue
		}

		keys := make([]string, 0, len(prices))
		for _, key := range selections {
			if _, ok := prices[key]; ok {
				keys = append(keys, key)
			}
		}
		implied := make([]float64, len(keys))
		for i, key := range keys {
			implied[i] = probability.Implied(prices[key])
		}
		if or := Overround(implied); or > stats.MaxOverround {
			stats.MaxOverround = or
		}

		devigged := RemoveVig(implied, method, e.cfg.PowerExponent, target)
		for i, key := range keys {
			fair[key] = append(fair[key], weightedProb{p: devigged[i], w: weight})
		}
	}

	var fallback map[string]float64
	for _, key := range selections {
		entry := models.ConsensusEntry{
			SelectionKey: key,
			GroupID:      groupID,
			BookCount:    len(fair[key]),
			BestOdds:     best[key].odds,
			BestBook:     best[key].book,
		}

		if len(fair[key]) >= e.minBooks() {
			entry.FairProbability = probability.Clamp(weightedMedian(fair[key]))
			entry.Provenance = models.ProvenanceConsensus
		} else {
			if fallback == nil {
				fallback = normalizedBestOdds(selections, best, target)
			}
			entry.FairProbability = fallback[key]
			entry.Provenance = models.ProvenanceNormalizedImplied
			stats.Fallbacks++
		}

		out.Entries[models.OfferKey(groupID, key)] = entry
	}
}

func (e *Engine) bookWeight(book string) float64 {
	if w, ok := e.cfg.BookWeights[book]; ok {
		return w
	}
	return 1
}

func (e *Engine) minBooks() int {
	if e.cfg.MinBooks < 1 {
		return 1
	}
	return e.cfg.MinBooks
}

type weightedProb struct {
	p float64
	w float64
}

// weightedMedian returns the lower weighted median of the book probabilities
func weightedMedian(values []weightedProb) float64 {
	sorted := append([]weightedProb(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].p < sorted[j].p })

	x := make([]float64, len(sorted))
	w := make([]float64, len(sorted))
	for i, v := range sorted {
		x[i], w[i] = v.p, v.w
	}
	return stat.Quantile(0.5, stat.Empirical, x, w)
}

// normalizedBestOdds takes the best available price per selection and normalizes
// the implied probabilities to the target mass
func normalizedBestOdds(selections []string, best map[string]quote, target float64) map[string]float64 {
	implied := make([]float64, len(selections))
	for i, key := range selections {
		implied[i] = probability.Implied(best[key].odds)
	}
	devigged := RemoveVig(implied, VigNormalize, 0, target)

	out := make(map[string]float64, len(selections))
	for i, key := range selections {
		out[key] = devigged[i]
	}
	return out
}
