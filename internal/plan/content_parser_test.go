package plan

import (
	"kaizencoach/plan-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markdownPlan = `
## Week 1: 2025-03-03 - 2025-03-09
- **Run**: Easy 45 min Zone 2 [KEY]
- Bike: 1h30 endurance ride, 200W [IMPORTANT]
- S&C: Routine A, core focus [STRETCH]
- Rest

### Week 2
- Long Run: 16 km at 5:30/km [KEY]
- Swim - 2 miles open water
  steady 141-148 bpm
`

func TestParseContent_MarkdownPlan(t *testing.T) {
	p := ParseContent(markdownPlan)
	require.NotNil(t, p)
	require.Len(t, p.Weeks, 2)

	w1 := p.Weeks[0]
	assert.Equal(t, 1, w1.WeekNumber)
	assert.Equal(t, "2025-03-03", w1.StartDate)
	assert.Equal(t, "2025-03-09", w1.EndDate)
	require.Len(t, w1.Sessions, 4)

	run := w1.Sessions[0]
	assert.Equal(t, "w1-s1", run.ID)
	assert.Equal(t, domain.SessionRun, run.Type)
	assert.Equal(t, domain.PriorityKey, run.Priority)
	assert.Equal(t, domain.DayAnytime, run.DayAssignment)
	assert.Equal(t, 45.0, run.DurationMinutes)
	assert.Equal(t, "2025-03-03", run.Date)
	require.NotNil(t, run.ZoneGuidance)
	assert.Equal(t, "2", run.ZoneGuidance.HR)
	assert.NotContains(t, run.Description, "[KEY]")

	bike := w1.Sessions[1]
	assert.Equal(t, domain.SessionBike, bike.Type)
	assert.Equal(t, 90.0, bike.DurationMinutes)
	assert.Equal(t, "200", bike.ZoneGuidance.Power)

	sc := w1.Sessions[2]
	assert.Equal(t, domain.SessionStrength, sc.Type)
	assert.Equal(t, domain.PriorityStretch, sc.Priority)
	assert.Equal(t, "Routine A", sc.SAndCRoutine)

	rest := w1.Sessions[3]
	assert.Equal(t, domain.SessionRest, rest.Type)
	assert.Equal(t, domain.PriorityImportant, rest.Priority, "missing priority defaults to IMPORTANT")

	w2 := p.Weeks[1]
	require.Len(t, w2.Sessions, 2)
	long := w2.Sessions[0]
	assert.Equal(t, "w2-s1", long.ID)
	assert.Equal(t, domain.SessionRun, long.Type)
	assert.Equal(t, 16.0, long.DistanceKm)
	assert.Equal(t, "5:30/km", long.ZoneGuidance.Pace)

	swim := w2.Sessions[1]
	assert.Equal(t, domain.SessionSwim, swim.Type)
	assert.Equal(t, 3.22, swim.DistanceKm)
	assert.Equal(t, "141-148", swim.ZoneGuidance.HR)
	assert.Contains(t, swim.Description, "steady")

	_, err := Validate(p, ValidateOptions{})
	assert.NoError(t, err)
}

func TestParseContent_NoHeadersIsNotAPlan(t *testing.T) {
	assert.Nil(t, ParseContent("Run: 30 min easy\nRecovery: easy spin 2 hours\nnot a session line"))
	assert.Nil(t, ParseContent("Great job on Saturday!\nRecovery: keep tomorrow very easy, 20 min.\nSee you next week."))
}

func TestParseContent_SessionsBeforeFirstHeaderAreIgnored(t *testing.T) {
	p := ParseContent("Swim: 1500m drills\nWeek 3\nRun: 5k parkrun [KEY]")
	require.NotNil(t, p)
	require.Len(t, p.Weeks, 1)
	assert.Equal(t, 3, p.Weeks[0].WeekNumber)
	require.Len(t, p.Weeks[0].Sessions, 1)
	assert.Equal(t, "w3-s1", p.Weeks[0].Sessions[0].ID)
	assert.Equal(t, 5.0, p.Weeks[0].Sessions[0].DistanceKm)

	assert.Nil(t, ParseContent("Swim: 1500m drills\nWeek 3\nSee you then."), "no session under any header")
}

func TestParseContent_SeparatorRequired(t *testing.T) {
	assert.Nil(t, ParseContent("Week 1\nEasy run 45 min [KEY]"))
	p := ParseContent("Week 1\nEasy run: 45 min [KEY]")
	require.NotNil(t, p)
	assert.Equal(t, 45.0, p.Weeks[0].Sessions[0].DurationMinutes)
}

func TestParseContent_NothingRecognized(t *testing.T) {
	assert.Nil(t, ParseContent(""))
	assert.Nil(t, ParseContent("Great job this week!\nKeep hydrating."))
	assert.Nil(t, ParseContent("Week 1\nWeek 2\n"), "headers without sessions are not a plan")
	assert.Nil(t, ParseContent("```\nRun: 30 min\n```"), "fenced blocks are skipped")
}

func TestParseDuration(t *testing.T) {
	tests := map[string]float64{
		"45 min":         45,
		"45 minutes":     45,
		"1h30":           90,
		"1h 15min":       75,
		"2 hours":        120,
		"1.5 hrs steady": 90,
		"3 hills":        0,
		"no duration":    0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseDuration(in), in)
	}
}

func TestParseZones(t *testing.T) {
	zg := parseZones("Z3-4 then 4:45-4:55/km, hold 250W")
	require.NotNil(t, zg)
	assert.Equal(t, "3-4", zg.HR)
	assert.Equal(t, "4:45-4:55/km", zg.Pace)
	assert.Equal(t, "250", zg.Power)

	assert.Nil(t, parseZones("easy"))
}
