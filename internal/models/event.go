package models

import "time"

// Event is a scheduled tournament on a tour
type Event struct {
	ID        string    `json:"event_id"`
	Tour      string    `json:"tour"`
	Name      string    `json:"event_name"`
	Course    string    `json:"course,omitempty"`
	StartDate time.Time `json:"start_date"`
	Rounds    int       `json:"rounds,omitempty"`
	NoCut     bool      `json:"no_cut,omitempty"`
}

// FieldPlayer is an entrant as reported by the upstream field feed
type FieldPlayer struct {
	Name       string `json:"player_name"`
	ExternalID string `json:"external_id,omitempty"`
	Country    string `json:"country,omitempty"`
	Withdrawn  bool   `json:"withdrawn,omitempty"`
}

// Field is the entry list for a tour's current event
type Field struct {
	EventID    string        `json:"event_id"`
	EventName  string        `json:"event_name"`
	Tour       string        `json:"tour"`
	Players    []FieldPlayer `json:"players"`
	CapturedAt time.Time     `json:"captured_at"`
	Payload    []byte        `json:"-"`
}

// SkillRating carries the strokes-gained style signals used to parameterize a player
type SkillRating struct {
	PlayerName    string   `json:"player_name"`
	ExternalID    string   `json:"external_id,omitempty"`
	Skill         float64  `json:"skill"`
	CourseFit     float64  `json:"course_fit"`
	RecentForm    float64  `json:"recent_form"`
	RoundsTracked int      `json:"rounds_tracked"`
	ScoreStdDev   *float64 `json:"score_std_dev,omitempty"`
}

// PlayerPrediction is a third-party model prior for one player
type PlayerPrediction struct {
	PlayerName string   `json:"player_name"`
	ExternalID string   `json:"external_id,omitempty"`
	Win        *float64 `json:"win,omitempty"`
	Top5       *float64 `json:"top_5,omitempty"`
	Top10      *float64 `json:"top_10,omitempty"`
	Top20      *float64 `json:"top_20,omitempty"`
	MakeCut    *float64 `json:"make_cut,omitempty"`
}

// ForMarket returns the prior for a market, or nil when the provider does not publish one
func (p *PlayerPrediction) ForMarket(m Market) *float64 {
	if p == nil {
		return nil
	}
	switch m {
	case MarketWin:
		return p.Win
	case MarketTop5:
		return p.Top5
	case MarketTop10:
		return p.Top10
	case MarketTop20:
		return p.Top20
	case MarketMakeCut:
		return p.MakeCut
	}
	return nil
}
