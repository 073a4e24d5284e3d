// internal/domain/training_plan.go
package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CurrentPlanVersion is the schema version of the structured plan payload (plan_v2).
const CurrentPlanVersion = 2

// Priority drives scheduling guidance for a session.
type Priority string

const (
	PriorityKey       Priority = "KEY"
	PriorityImportant Priority = "IMPORTANT"
	PriorityStretch   Priority = "STRETCH"
)

// ValidPriorities lists every accepted priority tag.
var ValidPriorities = []Priority{PriorityKey, PriorityImportant, PriorityStretch}

// SessionType identifies the discipline of a session.
type SessionType string

const (
	SessionRun        SessionType = "RUN"
	SessionBike       SessionType = "BIKE"
	SessionSwim       SessionType = "SWIM"
	SessionStrength   SessionType = "STRENGTH" // strength & conditioning
	SessionCrossTrain SessionType = "CROSS_TRAIN"
	SessionRest       SessionType = "REST"
	SessionOther      SessionType = "OTHER"
)

// ValidSessionTypes lists every accepted session type.
var ValidSessionTypes = []SessionType{
	SessionRun, SessionBike, SessionSwim, SessionStrength, SessionCrossTrain, SessionRest, SessionOther,
}

// CompletionStatus is set externally as feedback arrives; merges keep it verbatim.
type CompletionStatus string

const (
	CompletionUnset     CompletionStatus = ""
	CompletionCompleted CompletionStatus = "completed"
	CompletionSkipped   CompletionStatus = "skipped"
)

// DayAnytime is the flexible-schedule sentinel for Session.DayAssignment.
const DayAnytime = "Anytime"

// Phase is advisory only (base/build/peak/taper/recovery); not structurally enforced.
type Phase string

const (
	PhaseBase     Phase = "base"
	PhaseBuild    Phase = "build"
	PhasePeak     Phase = "peak"
	PhaseTaper    Phase = "taper"
	PhaseRecovery Phase = "recovery"
)

// ZoneGuidance holds heart-rate / pace / power zone references for a session.
type ZoneGuidance struct {
	HR    string `bson:"hr,omitempty" json:"hr,omitempty"`       // e.g. "2", "3-4", "141-148"
	Pace  string `bson:"pace,omitempty" json:"pace,omitempty"`   // e.g. "5:30/km"
	Power string `bson:"power,omitempty" json:"power,omitempty"` // e.g. "250"
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Session is a single prescribed workout within a Week.
type Session struct {
	ID            string      `bson:"id" json:"id"` // Unique within the plan, e.g. "w3-s2"
	Type          SessionType `bson:"type" json:"type"`
	Priority      Priority    `bson:"priority" json:"priority"`
	DayAssignment string      `bson:"day_assignment" json:"day_assignment"` // Weekday name or DayAnytime
	Date          string      `bson:"date,omitempty" json:"date,omitempty"` // Optional ISO date (YYYY-MM-DD)

	DurationMinutes float64       `bson:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
	DistanceKm      float64       `bson:"distance_km,omitempty" json:"distance_km,omitempty"`
	Description     string        `bson:"description,omitempty" json:"description,omitempty"`
	ZoneGuidance    *ZoneGuidance `bson:"zone_guidance,omitempty" json:"zone_guidance,omitempty"`
	SAndCRoutine    string        `bson:"s_and_c_routine,omitempty" json:"s_and_c_routine,omitempty"` // Reference into plan libraries

	// --- Completion tracking (set externally) ---
	CompletionStatus CompletionStatus `bson:"completion_status,omitempty" json:"completion_status,omitempty"`
	CompletedAt      string           `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	ActivityID       int64            `bson:"activity_id,omitempty" json:"activity_id,omitempty"` // Linked fitness-platform activity
}

// Week groups the sessions of one plan week.
type Week struct {
	WeekNumber  int       `bson:"week_number" json:"week_number"` // 0 = transitional partial week
	Phase       Phase     `bson:"phase,omitempty" json:"phase,omitempty"`
	StartDate   string    `bson:"start_date,omitempty" json:"start_date,omitempty"` // ISO date
	EndDate     string    `bson:"end_date,omitempty" json:"end_date,omitempty"`     // ISO date
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Sessions    []Session `bson:"sessions" json:"sessions"`
}

// TrainingPlan is the root aggregate of the plan_v2 payload.
type TrainingPlan struct {
	Version           int               `bson:"version" json:"version"`
	VersionTag        string            `bson:"version_tag,omitempty" json:"version_tag,omitempty"`
	CreatedAt         string            `bson:"created_at,omitempty" json:"created_at,omitempty"` // ISO timestamp
	AthleteProfileRef string            `bson:"athlete_profile_ref,omitempty" json:"athlete_profile_ref,omitempty"`
	AthleteGoal       string            `bson:"athlete_goal,omitempty" json:"athlete_goal,omitempty"`
	GoalDate          string            `bson:"goal_date,omitempty" json:"goal_date,omitempty"`
	GoalDistance      string            `bson:"goal_distance,omitempty" json:"goal_distance,omitempty"`
	Weeks             []Week            `bson:"weeks" json:"weeks"`
	Libraries         map[string]string `bson:"libraries,omitempty" json:"libraries,omitempty"` // e.g. S&C routine definitions
}

// IsCompleted reports whether the session carries an externally-set completion.
func (s *Session) IsCompleted() bool {
	return s.CompletionStatus == CompletionCompleted
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.ZoneGuidance != nil {
		zg := *s.ZoneGuidance
		out.ZoneGuidance = &zg
	}
	return out
}

// Clone returns a deep copy of the week.
func (w Week) Clone() Week {
	out := w
	if w.Sessions != nil {
		out.Sessions = make([]Session, len(w.Sessions))
		for i, s := range w.Sessions {
			out.Sessions[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the plan. A nil plan clones to nil.
func (p *TrainingPlan) Clone() *TrainingPlan {
	if p == nil {
		return nil
	}
	out := *p
	if p.Weeks != nil {
		out.Weeks = make([]Week, len(p.Weeks))
		for i, w := range p.Weeks {
			out.Weeks[i] = w.Clone()
		}
	}
	if p.Libraries != nil {
		out.Libraries = make(map[string]string, len(p.Libraries))
		for k, v := range p.Libraries {
			out.Libraries[k] = v
		}
	}
	return &out
}

// SortWeeks orders the weeks by week number (stable).
func (p *TrainingPlan) SortWeeks() {
	sort.SliceStable(p.Weeks, func(i, j int) bool {
		return p.Weeks[i].WeekNumber < p.Weeks[j].WeekNumber
	})
}

// SessionCount returns the total number of sessions across all weeks.
func (p *TrainingPlan) SessionCount() int {
	n := 0
	for _, w := range p.Weeks {
		n += len(w.Sessions)
	}
	return n
}

// Markdown renders the plan for human display.
func (p *TrainingPlan) Markdown() string {
	var sb strings.Builder
	goal := p.AthleteGoal
	if goal == "" {
		goal = "Untitled"
	}
	fmt.Fprintf(&sb, "# Training Plan: %s\n", goal)
	if p.GoalDate != "" {
		fmt.Fprintf(&sb, "**Goal Date:** %s\n", p.GoalDate)
	}
	if p.GoalDistance != "" {
		fmt.Fprintf(&sb, "**Goal Distance:** %s\n", p.GoalDistance)
	}
	sb.WriteString("\n")

	for _, w := range p.Weeks {
		fmt.Fprintf(&sb, "## Week %d", w.WeekNumber)
		if w.StartDate != "" && w.EndDate != "" {
			fmt.Fprintf(&sb, ": %s to %s", w.StartDate, w.EndDate)
		}
		if w.Phase != "" {
			fmt.Fprintf(&sb, " (%s)", w.Phase)
		}
		sb.WriteString("\n")
		if w.Description != "" {
			fmt.Fprintf(&sb, "*%s*\n", w.Description)
		}
		for _, s := range w.Sessions {
			sb.WriteString(s.markdown())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *Session) markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### [%s] %s\n", s.Priority, s.DayAssignment)
	if s.Type == SessionRest {
		sb.WriteString("**REST**\n")
	} else {
		fmt.Fprintf(&sb, "**%s**", s.Type)
		if s.DurationMinutes > 0 {
			fmt.Fprintf(&sb, " - %g min", s.DurationMinutes)
		}
		if s.DistanceKm > 0 {
			fmt.Fprintf(&sb, " - %g km", s.DistanceKm)
		}
		sb.WriteString("\n")
	}
	if s.Description != "" {
		sb.WriteString(s.Description + "\n")
	}
	if zg := s.ZoneGuidance; zg != nil {
		var parts []string
		if zg.HR != "" {
			parts = append(parts, "HR: "+zg.HR)
		}
		if zg.Pace != "" {
			parts = append(parts, "Pace: "+zg.Pace)
		}
		if zg.Power != "" {
			parts = append(parts, "Power: "+zg.Power)
		}
		if len(parts) > 0 {
			fmt.Fprintf(&sb, "*Zones: %s*\n", strings.Join(parts, " | "))
		}
	}
	switch {
	case s.IsCompleted():
		sb.WriteString("Completed\n")
	case s.CompletionStatus == CompletionSkipped:
		sb.WriteString("Skipped\n")
	}
	return sb.String()
}
