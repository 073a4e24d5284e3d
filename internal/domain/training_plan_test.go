package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixturePlan() *TrainingPlan {
	return &TrainingPlan{
		Version:     CurrentPlanVersion,
		AthleteGoal: "Spring marathon",
		GoalDate:    "2025-05-04",
		Weeks: []Week{
			{WeekNumber: 2, Sessions: []Session{{ID: "w2-s1", Type: SessionRest, Priority: PriorityStretch, DayAssignment: DayAnytime}}},
			{
				WeekNumber: 1, StartDate: "2025-03-03", EndDate: "2025-03-09", Phase: PhaseBase,
				Sessions: []Session{{
					ID: "w1-s1", Type: SessionRun, Priority: PriorityKey, DayAssignment: DayAnytime,
					DurationMinutes: 45, ZoneGuidance: &ZoneGuidance{HR: "2", Pace: "5:30/km"},
					CompletionStatus: CompletionCompleted,
				}},
			},
		},
		Libraries: map[string]string{"core": "plank 3x60s"},
	}
}

func TestTrainingPlanClone_IsDeep(t *testing.T) {
	p := fixturePlan()
	c := p.Clone()
	require.Equal(t, p, c)

	c.Weeks[1].Sessions[0].ZoneGuidance.HR = "4"
	c.Weeks[0].Sessions[0].ID = "changed"
	c.Libraries["core"] = "none"

	assert.Equal(t, "2", p.Weeks[1].Sessions[0].ZoneGuidance.HR)
	assert.Equal(t, "w2-s1", p.Weeks[0].Sessions[0].ID)
	assert.Equal(t, "plank 3x60s", p.Libraries["core"])

	var nilPlan *TrainingPlan
	assert.Nil(t, nilPlan.Clone())
}

func TestTrainingPlanLookups(t *testing.T) {
	p := fixturePlan()
	p.SortWeeks()
	assert.Equal(t, 1, p.Weeks[0].WeekNumber)
	assert.True(t, p.Weeks[0].Sessions[0].IsCompleted())
	assert.False(t, p.Weeks[1].Sessions[0].IsCompleted())
	assert.Equal(t, 2, p.SessionCount())
}

func TestTrainingPlanMarkdown(t *testing.T) {
	p := fixturePlan()
	p.SortWeeks()
	md := p.Markdown()

	assert.Contains(t, md, "# Training Plan: Spring marathon\n")
	assert.Contains(t, md, "**Goal Date:** 2025-05-04\n")
	assert.Contains(t, md, "## Week 1: 2025-03-03 to 2025-03-09 (base)\n")
	assert.Contains(t, md, "### [KEY] Anytime\n**RUN** - 45 min\n*Zones: HR: 2 | Pace: 5:30/km*\nCompleted\n")
	assert.Contains(t, md, "## Week 2\n### [STRETCH] Anytime\n**REST**\n")
	assert.Less(t, strings.Index(md, "## Week 1"), strings.Index(md, "## Week 2"))

	assert.Contains(t, (&TrainingPlan{}).Markdown(), "# Training Plan: Untitled")
}

