package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/models"
)

func fixedAdapter() Adapter {
	return Adapter{Source: "test", Now: func() time.Time { return time.Date(2026, 4, 7, 12, 0, 0, 0, time.UTC) }}
}

func TestParseOdds(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"12.5", 12.5, false},
		{"+1100", 12.0, false},
		{"-150", 1.6667, false},
		{"+100", 2.0, false},
		{" 3 ", 3.0, false},
		{"1.0", 0, true},
		{"+50", 0, true},
		{"-99", 0, true},
		{"n/a", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOdds(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidOdds)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Scottie Scheffler", NormalizeName("Scheffler, Scottie"))
	assert.Equal(t, "Rory McIlroy", NormalizeName("  Rory   McIlroy "))
	assert.Equal(t, "Smith,", NormalizeName("Smith,"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestAdapterEvents(t *testing.T) {
	payload := []byte(`{"tour":"pga","schedule":[
		{"event_id": 14, "event_name": "The Masters", "course": "Augusta National", "start_date": "2026-04-09"},
		{"id": "abc", "name": "Heritage", "date": "2026-04-16"},
		{"event_name": "missing id"}
	]}`)

	events, err := fixedAdapter().Events(payload, "pga")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "pga-14", events[0].ID)
	assert.Equal(t, "The Masters", events[0].Name)
	assert.Equal(t, "Augusta National", events[0].Course)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), events[0].StartDate)
	assert.Equal(t, "pga-abc", events[1].ID)
	assert.Equal(t, "Heritage", events[1].Name)
}

func TestAdapterFieldAliases(t *testing.T) {
	payload := []byte(`{"event_name":"The Masters","event_id":14,"field":[
		{"dg_id": 18417, "player_name": "Scheffler, Scottie", "country": "USA"},
		{"player_id": "19195", "name": "Jon Rahm", "wd": true},
		{"player": "Åberg, Ludvig", "status": "active"},
		{"country": "SWE"}
	]}`)

	field, err := fixedAdapter().Field(payload, "pga")
	require.NoError(t, err)

	assert.Equal(t, "pga-14", field.EventID)
	assert.Equal(t, "The Masters", field.EventName)
	require.Len(t, field.Players, 3)
	assert.Equal(t, models.FieldPlayer{Name: "Scottie Scheffler", ExternalID: "18417", Country: "USA"}, field.Players[0])
	assert.True(t, field.Players[1].Withdrawn)
	assert.Equal(t, "19195", field.Players[1].ExternalID)
	assert.Equal(t, "Ludvig Åberg", field.Players[2].Name)
	assert.False(t, field.Players[2].Withdrawn)
	assert.Equal(t, payload, field.Payload)
}

func TestAdapterFieldInvalidJSON(t *testing.T) {
	_, err := fixedAdapter().Field([]byte(`{"field": "nope"}`), "pga")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidData, ErrorCode(err))
}

func TestAdapterSkillRatings(t *testing.T) {
	payload := []byte(`{"players":[
		{"dg_id": 1, "player_name": "A", "final_pred": 2.1, "total_fit_adjustment": 0.2, "timing_adjustment": "-0.1", "rounds_tracked": 80, "std_deviation": 2.6},
		{"dg_id": 2, "player_name": "B", "skill": 0.5},
		{"dg_id": 3, "player_name": "no skill"}
	]}`)

	ratings, err := fixedAdapter().SkillRatings(payload)
	require.NoError(t, err)
	require.Len(t, ratings, 2)

	assert.Equal(t, 2.1, ratings[0].Skill)
	assert.Equal(t, 0.2, ratings[0].CourseFit)
	assert.Equal(t, -0.1, ratings[0].RecentForm)
	assert.Equal(t, 80, ratings[0].RoundsTracked)
	require.NotNil(t, ratings[0].ScoreStdDev)
	assert.Equal(t, 2.6, *ratings[0].ScoreStdDev)
	assert.Nil(t, ratings[1].ScoreStdDev)
}

func TestAdapterPredictionsAcceptPercentages(t *testing.T) {
	payload := []byte(`{"baseline":[{"dg_id": 1, "player_name": "A", "win": 12.5, "top_5_prob": 0.4, "make_cut": "88"}]}`)

	preds, err := fixedAdapter().Predictions(payload)
	require.NoError(t, err)
	require.Len(t, preds, 1)

	require.NotNil(t, preds[0].Win)
	assert.InDelta(t, 0.125, *preds[0].Win, 1e-12)
	assert.InDelta(t, 0.4, *preds[0].Top5, 1e-12)
	assert.InDelta(t, 0.88, *preds[0].MakeCut, 1e-12)
	assert.Nil(t, preds[0].Top10)
}

func TestAdapterOutrightsDynamicBooks(t *testing.T) {
	payload := []byte(`{"event_name":"The Masters","market":"win","odds":[
		{"dg_id": 18417, "player_name": "Scheffler, Scottie", "draftkings": "5.5", "FanDuel": "+450", "pinnacle": 5.8, "datagolf": {"baseline": "6.1"}, "caesars": "n/a"},
		{"dg_id": 19195, "player_name": "Rahm, Jon", "draftkings": null, "pinnacle": "13.0"}
	]}`)

	board, err := fixedAdapter().Outrights(payload, "pga", models.MarketWin)
	require.NoError(t, err)

	assert.Equal(t, "The Masters", board.EventName)
	assert.Equal(t, models.MarketWin, board.Market)
	require.Len(t, board.Offers, 4)

	assert.Equal(t, models.RawOffer{PlayerName: "Scottie Scheffler", ExternalID: "18417", Bookmaker: "draftkings", DecimalOdds: 5.5}, board.Offers[0])
	assert.Equal(t, "fanduel", board.Offers[1].Bookmaker)
	assert.Equal(t, 5.5, board.Offers[1].DecimalOdds)
	assert.Equal(t, "pinnacle", board.Offers[2].Bookmaker)
	assert.Equal(t, "Jon Rahm", board.Offers[3].PlayerName)
	assert.ElementsMatch(t, []string{"draftkings", "fanduel", "pinnacle"}, board.Books())
}

func TestAdapterMatchups(t *testing.T) {
	payload := []byte(`{"event_name":"The Masters","match_list":[
		{"p1_player_name": "Scheffler, Scottie", "p1_dg_id": 18417, "p2_player_name": "Rahm, Jon", "p2_dg_id": 19195,
		 "odds": {"bet365": {"p1": "1.80", "p2": "2.05"}, "pinnacle": {"p1": "-125", "p2": "+110"}}},
		{"p1_player_name": "Solo", "odds": {"bet365": {"p1": "1.5"}}}
	]}`)

	board, err := fixedAdapter().Matchups(payload, "pga", models.MarketMatchup)
	require.NoError(t, err)
	require.Len(t, board.Offers, 4)

	for _, o := range board.Offers {
		assert.Equal(t, "18417~19195", o.GroupID)
	}
	assert.Equal(t, "bet365", board.Offers[0].Bookmaker)
	assert.Equal(t, "Scottie Scheffler", board.Offers[0].PlayerName)
	assert.Equal(t, 1.8, board.Offers[0].DecimalOdds)
	assert.Equal(t, "pinnacle", board.Offers[2].Bookmaker)
	assert.InDelta(t, 1.8, board.Offers[2].DecimalOdds, 1e-9)
	assert.InDelta(t, 2.1, board.Offers[3].DecimalOdds, 1e-9)
}

func TestAdapterAcceptsBareArray(t *testing.T) {
	events, err := fixedAdapter().Events([]byte(`[{"event_id": 1, "event_name": "Open"}]`), "euro")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "euro-1", events[0].ID)
}
