package plan

import (
	"fmt"
	"kaizencoach/plan-service/internal/domain"
	"regexp"
	"strconv"
	"time"
)

var sessionIDWeekPrefix = regexp.MustCompile(`^w(\d+)-(.+)$`)

// CompletedWeekCount counts the leading weeks (numbered 1 and up, in order) whose end date
// is strictly before asOf's calendar date. Week 0 is transitional and never counts.
// Counting stops at the first week that has not elapsed or has no end date.
func CompletedWeekCount(p *domain.TrainingPlan, asOf time.Time) int {
	if p == nil {
		return 0
	}
	sorted := p.Clone()
	sorted.SortWeeks()
	today := asOf.Format(isoDate)

	count := 0
	for _, w := range sorted.Weeks {
		if w.WeekNumber < 1 {
			continue
		}
		if _, err := time.Parse(isoDate, w.EndDate); err != nil || w.EndDate >= today {
			break
		}
		count++
	}
	return count
}

// Merge keeps the first completedWeeks numbered weeks of previous verbatim (plus previous week 0,
// if any) and appends every week of incoming renumbered from completedWeeks+1.
// The preserved block is chosen by counting completed weeks, never by previous's highest week number.
// With completedWeeks == 0 the result is a copy of incoming.
func Merge(previous, incoming *domain.TrainingPlan, completedWeeks int) (*domain.TrainingPlan, error) {
	if incoming == nil {
		return nil, &MergeError{Reason: "incoming plan is missing"}
	}
	if completedWeeks < 0 {
		return nil, &MergeError{Reason: fmt.Sprintf("completed week count must be non-negative, got %d", completedWeeks)}
	}
	if err := ValidatePlan(incoming, structuralOptions); err != nil {
		return nil, &MergeError{Reason: "incoming plan is invalid", Err: err}
	}

	if completedWeeks == 0 {
		out := incoming.Clone()
		out.SortWeeks()
		return out, nil
	}
	if previous == nil {
		return nil, &MergeError{Reason: fmt.Sprintf("%d completed weeks requested but there is no previous plan", completedWeeks)}
	}

	prev := previous.Clone()
	prev.SortWeeks()
	var transitional *domain.Week
	var numbered []domain.Week
	for i := range prev.Weeks {
		if prev.Weeks[i].WeekNumber == 0 {
			transitional = &prev.Weeks[i]
			continue
		}
		numbered = append(numbered, prev.Weeks[i])
	}
	if len(numbered) < completedWeeks {
		return nil, &MergeError{Reason: fmt.Sprintf("previous plan has %d numbered weeks, cannot preserve %d", len(numbered), completedWeeks)}
	}
	preserved := numbered[:completedWeeks]
	for i, w := range preserved {
		if w.WeekNumber != i+1 {
			return nil, &MergeError{Reason: fmt.Sprintf("preserved weeks must be numbered 1..%d, found week %d at position %d", completedWeeks, w.WeekNumber, i+1)}
		}
	}

	out := incoming.Clone()
	out.SortWeeks()
	merged := make([]domain.Week, 0, len(preserved)+len(out.Weeks)+1)
	if transitional != nil {
		merged = append(merged, *transitional)
	}
	merged = append(merged, preserved...)

	next := completedWeeks + 1
	for _, w := range out.Weeks {
		merged = append(merged, renumberWeek(w, next))
		next++
	}
	out.Weeks = merged
	out.Libraries = mergeLibraries(prev.Libraries, out.Libraries)

	if err := checkUniqueSessionIDs(out); err != nil {
		return nil, err
	}
	if err := ValidatePlan(out, structuralOptions); err != nil {
		return nil, &MergeError{Reason: "merged plan violates plan invariants", Err: err}
	}
	return out, nil
}

// renumberWeek moves a week to a new number, rebasing "w{old}-..." session ids to "w{new}-...".
func renumberWeek(w domain.Week, number int) domain.Week {
	old := w.WeekNumber
	w.WeekNumber = number
	for i := range w.Sessions {
		w.Sessions[i].ID = RebaseSessionID(w.Sessions[i].ID, old, number)
	}
	return w
}

// RebaseSessionID rewrites an id of the form "w{from}-suffix" to "w{to}-suffix". Other ids are returned unchanged.
func RebaseSessionID(id string, from, to int) string {
	m := sessionIDWeekPrefix.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	if n, err := strconv.Atoi(m[1]); err != nil || n != from {
		return id
	}
	return fmt.Sprintf("w%d-%s", to, m[2])
}

func checkUniqueSessionIDs(p *domain.TrainingPlan) error {
	seen := make(map[string]int)
	for _, w := range p.Weeks {
		for _, s := range w.Sessions {
			if week, dup := seen[s.ID]; dup {
				return &MergeError{Reason: fmt.Sprintf("session id %q appears in week %d and week %d", s.ID, week, w.WeekNumber)}
			}
			seen[s.ID] = w.WeekNumber
		}
	}
	return nil
}

func mergeLibraries(prev, incoming map[string]string) map[string]string {
	if len(prev) == 0 {
		return incoming
	}
	out := make(map[string]string, len(prev)+len(incoming))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}
