package domain

import (
	"strings"
	"time"
)

// Role type to distinguish between API callers
type Role string

// Define constants for roles
const (
	RoleAthlete Role = "athlete"
	RoleAdmin   Role = "admin"
)

// AthleteType mirrors the onboarding choice that drives scheduling style.
type AthleteType string

const (
	AthleteDisciplinarian AthleteType = "disciplinarian" // Fixed days
	AthleteImproviser     AthleteType = "improviser"     // Flexible within the week
	AthleteMinimalist     AthleteType = "minimalist"
)

// AthleteProfile is externally-owned athlete configuration. This service only reads the
// schedule flag and zone references; it never derives them.
type AthleteProfile struct {
	AthleteID           string            `bson:"athleteId" json:"athleteId"`
	AthleteType         AthleteType       `bson:"athleteType,omitempty" json:"athleteType,omitempty"`
	ScheduleDisciplined bool              `bson:"scheduleDisciplined" json:"scheduleDisciplined"` // Permits weekday-specific sessions
	Goal                string            `bson:"goal,omitempty" json:"goal,omitempty"`
	VDOT                float64           `bson:"vdot,omitempty" json:"vdot,omitempty"`
	HRZones             map[string]string `bson:"hrZones,omitempty" json:"hrZones,omitempty"`
	PaceZones           map[string]string `bson:"paceZones,omitempty" json:"paceZones,omitempty"`
	UpdatedAt           time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// DefaultAthleteProfile is used when no profile is stored: flexible scheduling.
func DefaultAthleteProfile(athleteID string) *AthleteProfile {
	return &AthleteProfile{AthleteID: athleteID, AthleteType: AthleteImproviser}
}

// Weekdays in plan order; DayAssignment values are matched case-insensitively.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsWeekday reports whether a day assignment names a specific weekday.
func IsWeekday(day string) bool {
	d := strings.TrimSpace(day)
	for _, w := range Weekdays {
		if strings.EqualFold(d, w) {
			return true
		}
	}
	return false
}

// IsAnytime reports whether a day assignment is the flexible sentinel.
func IsAnytime(day string) bool {
	return strings.EqualFold(strings.TrimSpace(day), DayAnytime)
}
