package datasource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/fairway-edge/internal/models"
)

// Field-name variants seen across feed versions. Everything downstream of the adapter
// works on typed models and never looks at these.
var (
	eventListKeys  = []string{"schedule", "events"}
	eventIDKeys    = []string{"event_id", "id", "calendar_id"}
	eventNameKeys  = []string{"event_name", "name", "tournament"}
	courseKeys     = []string{"course", "course_name"}
	startDateKeys  = []string{"start_date", "date"}
	fieldListKeys  = []string{"field", "players"}
	playerNameKeys = []string{"player_name", "name", "player"}
	playerIDKeys   = []string{"dg_id", "player_id", "id"}
	skillListKeys  = []string{"players", "skill_ratings", "ratings"}
	skillKeys      = []string{"final_pred", "skill", "sg_total"}
	courseFitKeys  = []string{"total_fit_adjustment", "course_fit"}
	formKeys       = []string{"timing_adjustment", "recent_form", "form"}
	roundsKeys     = []string{"rounds_tracked", "sample_size", "rounds"}
	stdDevKeys     = []string{"std_deviation", "std_dev", "score_std_dev"}
	predListKeys   = []string{"baseline_history_fit", "baseline", "predictions"}
	oddsListKeys   = []string{"odds", "offers"}
	matchListKeys  = []string{"match_list", "matchups"}
)

var predictionKeys = map[models.Market][]string{
	models.MarketWin:     {"win", "win_prob"},
	models.MarketTop5:    {"top_5", "top_5_prob"},
	models.MarketTop10:   {"top_10", "top_10_prob"},
	models.MarketTop20:   {"top_20", "top_20_prob"},
	models.MarketMakeCut: {"make_cut", "make_cut_prob"},
}

// reservedOddsKeys are per-player columns on an outright board that are not bookmakers
var reservedOddsKeys = map[string]bool{
	"dg_id": true, "player_id": true, "id": true, "player_name": true, "name": true, "player": true,
	"datagolf": true, "dg_odds": true, "country": true, "am": true, "event_name": true,
}

type rawRecord map[string]json.RawMessage

// str returns the first present key as a string; numeric values are formatted without exponent
func (r rawRecord) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&n); err == nil {
			return n.String()
		}
	}
	return ""
}

// num returns the first present key that parses as a number, accepting numeric strings
func (r rawRecord) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		s := r.str(k)
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		return f, true
	}
	return 0, false
}

func (r rawRecord) boolean(keys ...string) bool {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok || isNull(raw) {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
		switch strings.ToLower(r.str(k)) {
		case "1", "true", "yes", "y", "wd", "withdrawn":
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeList finds the first list under one of keys; a bare top-level array is also accepted
func decodeList(payload []byte, keys ...string) (rawRecord, []rawRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []rawRecord
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, nil, err
		}
		return rawRecord{}, list, nil
	}

	var top rawRecord
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, nil, err
	}
	for _, k := range keys {
		raw, ok := top[k]
		if !ok || isNull(raw) {
			continue
		}
		var list []rawRecord
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", k, err)
		}
		return top, list, nil
	}
	return top, nil, nil
}

// NormalizeName turns "Last, First" into "First Last" and collapses whitespace
func NormalizeName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if parts := strings.Split(name, ","); len(parts) == 2 {
		last, first := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if first != "" && last != "" {
			return first + " " + last
		}
	}
	return name
}

// ParseOdds converts a quoted price into decimal odds. Signed values are American
// ("+1100", "-150"); unsigned values are decimal ("12.5").
func ParseOdds(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty price", models.ErrInvalidOdds)
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidOdds, raw)
	}

	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)
	switch {
	case strings.HasPrefix(s, "+"):
		if d.LessThan(hundred) {
			return 0, fmt.Errorf("%w: american price %q below +100", models.ErrInvalidOdds, raw)
		}
		d = one.Add(d.Div(hundred))
	case strings.HasPrefix(s, "-"):
		if d.Abs().LessThan(hundred) {
			return 0, fmt.Errorf("%w: american price %q above -100", models.ErrInvalidOdds, raw)
		}
		d = one.Add(hundred.Div(d.Abs()))
	}

	odds, _ := d.Round(4).Float64()
	if odds <= 1 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidOdds, raw)
	}
	return odds, nil
}

// probabilityValue accepts fractions or percentages
func probabilityValue(v float64) float64 {
	if v > 1 && v <= 100 {
		return v / 100
	}
	return v
}

// Adapter normalizes raw feed payloads into typed records
type Adapter struct {
	Source string
	Now    func() time.Time
}

func (a Adapter) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a Adapter) invalid(what string, err error) error {
	return NewDataSourceError(a.Source, ErrCodeInvalidData, "failed to parse "+what, err)
}

// Events parses a schedule payload
func (a Adapter) Events(payload []byte, tour string) ([]models.Event, error) {
	_, list, err := decodeList(payload, eventListKeys...)
	if err != nil {
		return nil, a.invalid("schedule", err)
	}

	events := make([]models.Event, 0, len(list))
	for _, r := range list {
		id := r.str(eventIDKeys...)
		name := r.str(eventNameKeys...)
		if id == "" || name == "" {
			continue
		}
		ev := models.Event{
			ID:     fmt.Sprintf("%s-%s", tour, id),
			Tour:   tour,
			Name:   name,
			Course: r.str(courseKeys...),
		}
		if start := r.str(startDateKeys...); start != "" {
			if t, err := time.Parse("2006-01-02", start); err == nil {
				ev.StartDate = t
			}
		}
		if rounds, ok := r.num("rounds", "num_rounds"); ok {
			ev.Rounds = int(rounds)
		}
		ev.NoCut = r.boolean("no_cut")
		events = append(events, ev)
	}
	return events, nil
}

// Field parses a field-updates payload
func (a Adapter) Field(payload []byte, tour string) (*models.Field, error) {
	top, list, err := decodeList(payload, fieldListKeys...)
	if err != nil {
		return nil, a.invalid("field", err)
	}

	field := &models.Field{
		EventName:  top.str(eventNameKeys...),
		Tour:       tour,
		CapturedAt: a.now(),
		Payload:    payload,
	}
	if id := top.str(eventIDKeys...); id != "" {
		field.EventID = fmt.Sprintf("%s-%s", tour, id)
	}

	for _, r := range list {
		name := NormalizeName(r.str(playerNameKeys...))
		id := r.str(playerIDKeys...)
		if name == "" && id == "" {
			continue
		}
		field.Players = append(field.Players, models.FieldPlayer{
			Name:       name,
			ExternalID: id,
			Country:    r.str("country"),
			Withdrawn:  r.boolean("withdrawn", "wd", "status"),
		})
	}
	return field, nil
}

// SkillRatings parses a skill-decomposition payload
func (a Adapter) SkillRatings(payload []byte) ([]models.SkillRating, error) {
	_, list, err := decodeList(payload, skillListKeys...)
	if err != nil {
		return nil, a.invalid("skill ratings", err)
	}

	ratings := make([]models.SkillRating, 0, len(list))
	for _, r := range list {
		skill, ok := r.num(skillKeys...)
		if !ok {
			continue
		}
		rating := models.SkillRating{
			PlayerName: NormalizeName(r.str(playerNameKeys...)),
			ExternalID: r.str(playerIDKeys...),
			Skill:      skill,
		}
		rating.CourseFit, _ = r.num(courseFitKeys...)
		rating.RecentForm, _ = r.num(formKeys...)
		if rounds, ok := r.num(roundsKeys...); ok {
			rating.RoundsTracked = int(rounds)
		}
		if sd, ok := r.num(stdDevKeys...); ok && sd > 0 {
			rating.ScoreStdDev = &sd
		}
		ratings = append(ratings, rating)
	}
	return ratings, nil
}

// Predictions parses a pre-tournament prediction payload
func (a Adapter) Predictions(payload []byte) ([]models.PlayerPrediction, error) {
	_, list, err := decodeList(payload, predListKeys...)
	if err != nil {
		return nil, a.invalid("predictions", err)
	}

	preds := make([]models.PlayerPrediction, 0, len(list))
	for _, r := range list {
		p := models.PlayerPrediction{
			PlayerName: NormalizeName(r.str(playerNameKeys...)),
			ExternalID: r.str(playerIDKeys...),
		}
		if p.PlayerName == "" && p.ExternalID == "" {
			continue
		}
		for market, keys := range predictionKeys {
			v, ok := r.num(keys...)
			if !ok {
				continue
			}
			v = probabilityValue(v)
			switch market {
			case models.MarketWin:
				p.Win = &v
			case models.MarketTop5:
				p.Top5 = &v
			case models.MarketTop10:
				p.Top10 = &v
			case models.MarketTop20:
				p.Top20 = &v
			case models.MarketMakeCut:
				p.MakeCut = &v
			}
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// Outrights parses a per-player outright odds board. Every non-reserved scalar column is a bookmaker.
func (a Adapter) Outrights(payload []byte, tour string, market models.Market) (*models.OddsBoard, error) {
	top, list, err := decodeList(payload, oddsListKeys...)
	if err != nil {
		return nil, a.invalid("outright odds", err)
	}

	board := &models.OddsBoard{
		Tour:       tour,
		EventName:  top.str(eventNameKeys...),
		Market:     market,
		CapturedAt: a.now(),
		Payload:    payload,
	}

	for _, r := range list {
		name := NormalizeName(r.str(playerNameKeys...))
		id := r.str(playerIDKeys...)
		if name == "" && id == "" {
			continue
		}

		books := make([]string, 0, len(r))
		for k := range r {
			if !reservedOddsKeys[k] {
				books = append(books, k)
			}
		}
		sort.Slice(books, func(i, j int) bool { return strings.ToLower(books[i]) < strings.ToLower(books[j]) })

		for _, book := range books {
			price := r.str(book)
			if price == "" {
				continue
			}
			odds, err := ParseOdds(price)
			if err != nil {
				continue
			}
			board.Offers = append(board.Offers, models.RawOffer{
				PlayerName:  name,
				ExternalID:  id,
				Bookmaker:   strings.ToLower(book),
				DecimalOdds: odds,
			})
		}
	}
	return board, nil
}

// Matchups parses a grouped-market board of head-to-head or three-way contests
func (a Adapter) Matchups(payload []byte, tour string, market models.Market) (*models.OddsBoard, error) {
	top, list, err := decodeList(payload, matchListKeys...)
	if err != nil {
		return nil, a.invalid("matchup odds", err)
	}

	board := &models.OddsBoard{
		Tour:       tour,
		EventName:  top.str(eventNameKeys...),
		Market:     market,
		CapturedAt: a.now(),
		Payload:    payload,
	}

	for _, r := range list {
		type member struct{ slot, name, id string }
		var members []member
		for _, slot := range []string{"p1", "p2", "p3"} {
			name := NormalizeName(r.str(slot+"_player_name", slot+"_name"))
			id := r.str(slot+"_dg_id", slot+"_player_id", slot+"_id")
			if name != "" || id != "" {
				members = append(members, member{slot: slot, name: name, id: id})
			}
		}
		if len(members) < 2 {
			continue
		}

		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.id
			if ids[i] == "" {
				ids[i] = strings.ToLower(m.name)
			}
		}
		sort.Strings(ids)
		groupID := strings.Join(ids, "~")

		var books map[string]rawRecord
		if raw, ok := r["odds"]; ok && !isNull(raw) {
			if err := json.Unmarshal(raw, &books); err != nil {
				continue
			}
		}
		bookNames := make([]string, 0, len(books))
		for b := range books {
			bookNames = append(bookNames, b)
		}
		sort.Strings(bookNames)

		for _, book := range bookNames {
			if reservedOddsKeys[book] {
				continue
			}
			for _, m := range members {
				odds, err := ParseOdds(books[book].str(m.slot))
				if err != nil {
					continue
				}
				board.Offers = append(board.Offers, models.RawOffer{
					PlayerName:  m.name,
					ExternalID:  m.id,
					Bookmaker:   strings.ToLower(book),
					DecimalOdds: odds,
					GroupID:     groupID,
				})
			}
		}
	}
	return board, nil
}
