package plan

import (
	"fmt"
	"kaizencoach/plan-service/internal/domain"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const kmPerMile = 1.609344

var (
	mdHeading  = regexp.MustCompile(`^#+\s*`)
	mdBullet   = regexp.MustCompile(`^(?:[*\-•+]|\d+[.)])\s+`)
	mdEmphasis = regexp.MustCompile(`\*\*|__|\*|` + "`")

	weekHeader = regexp.MustCompile(`(?i)^week\s+(\d+)\s*(?:[:\-–(]\s*(.*))?$`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

	// The type keyword must be followed by ":" or "-" (or end the line) so prose such as
	// "Easy run 45 min" is not read as a session.
	sessionLine = regexp.MustCompile(`(?i)^(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\s*[:\-–]\s*)?` +
		`((?:long|easy|tempo|interval|intervals|recovery|steady|hill|trail)?\s*run|ride|bike|cycle|swim|s&c|strength|gym|mobility|cross[- ]?train(?:ing)?|rest|recovery)` +
		`\s*(?:[:\-–]\s*(.*))?$`)
	priorityTag = regexp.MustCompile(`(?i)\[\s*(KEY|IMPORTANT|STRETCH)\s*\]`)

	hoursRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)(?:\s*(\d{1,2})(?:\s*(?:m|mins?|minutes))?)?\b`)
	minutesRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:minutes|mins?)\b`)
	distanceRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(km|k|kilometers?|kilometres?|miles?|mi)\b`)

	zoneRe  = regexp.MustCompile(`(?i)\bz(?:one)?\s*(\d)(?:\s*[-/–]\s*(\d))?\b`)
	bpmRe   = regexp.MustCompile(`(?i)(\d{2,3})\s*-\s*(\d{2,3})\s*bpm`)
	paceRe  = regexp.MustCompile(`(?i)(\d{1,2}:\d{2})(?:\s*(?:-|to)\s*(\d{1,2}:\d{2}))?\s*/\s*(km|mile|mi)\b`)
	powerRe = regexp.MustCompile(`\b(\d{2,4})\s*W\b`)
)

// contentWeek accumulates sessions under one "Week N" header while scanning.
type contentWeek struct {
	number    int
	startDate string
	endDate   string
	sessions  []domain.Session
}

// ParseContent is the lossy fallback: it scans free text for week headers and session-like
// lines ("Run: 45 min easy Zone 2 [KEY]") under them. Text without a "Week N" header is chat,
// not a plan, so it returns nil; it also returns nil when no session is recognised.
// Session lines before the first header are ignored.
// Session ids are "w{week}-s{n}" and every session is scheduled Anytime.
func ParseContent(text string) *domain.TrainingPlan {
	var weeks []*contentWeek
	var last *domain.Session
	inFence := false

	for _, rawLine := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(rawLine)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			last = nil
			continue
		}
		if inFence {
			continue
		}
		line := stripMarkdown(trimmed)
		if line == "" {
			last = nil
			continue
		}

		if m := weekHeader.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			w := &contentWeek{number: n}
			if dates := isoDateRe.FindAllString(m[2], 2); len(dates) > 0 {
				w.startDate = dates[0]
				if len(dates) > 1 {
					w.endDate = dates[1]
				}
			}
			weeks = append(weeks, w)
			last = nil
			continue
		}

		if s, ok := parseSessionLine(line); ok {
			if len(weeks) == 0 {
				last = nil
				continue
			}
			cur := weeks[len(weeks)-1]
			cur.sessions = append(cur.sessions, s)
			last = &cur.sessions[len(cur.sessions)-1]
			continue
		}

		// Indented lines continue the previous session's description.
		if last != nil && (strings.HasPrefix(rawLine, " ") || strings.HasPrefix(rawLine, "\t")) {
			last.Description = strings.TrimSpace(last.Description + " " + line)
			enrichSession(last, line)
		}
	}

	plan := &domain.TrainingPlan{Version: domain.CurrentPlanVersion}
	total := 0
	for _, w := range weeks {
		week := domain.Week{WeekNumber: w.number, StartDate: w.startDate, EndDate: w.endDate, Sessions: make([]domain.Session, 0, len(w.sessions))}
		for i, s := range w.sessions {
			s.ID = fmt.Sprintf("w%d-s%d", w.number, i+1)
			if s.Date == "" {
				s.Date = w.startDate
			}
			week.Sessions = append(week.Sessions, s)
		}
		total += len(week.Sessions)
		plan.Weeks = append(plan.Weeks, week)
	}
	if total == 0 {
		return nil
	}
	plan.SortWeeks()
	return plan
}

func stripMarkdown(line string) string {
	line = mdHeading.ReplaceAllString(line, "")
	line = mdBullet.ReplaceAllString(line, "")
	line = mdEmphasis.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

func parseSessionLine(line string) (domain.Session, bool) {
	m := sessionLine.FindStringSubmatch(line)
	if m == nil {
		return domain.Session{}, false
	}
	keyword := strings.ToLower(strings.TrimSpace(m[1]))
	desc := strings.TrimSpace(m[2])

	s := domain.Session{
		Priority:      domain.PriorityImportant,
		DayAssignment: domain.DayAnytime,
	}
	if pm := priorityTag.FindStringSubmatch(desc); pm != nil {
		s.Priority = domain.Priority(strings.ToUpper(pm[1]))
		desc = strings.TrimSpace(priorityTag.ReplaceAllString(desc, ""))
	}
	s.Description = desc
	s.Type = sessionTypeFor(keyword, desc)
	if s.Type == domain.SessionStrength && keyword == "s&c" && desc != "" {
		s.SAndCRoutine = strings.TrimSpace(strings.SplitN(desc, ",", 2)[0])
	}
	enrichSession(&s, desc)
	return s, true
}

// sessionTypeFor maps the line keyword to a type; "recovery" is decided by the description.
func sessionTypeFor(keyword, desc string) domain.SessionType {
	switch {
	case strings.HasSuffix(keyword, "run"):
		return domain.SessionRun
	case keyword == "ride" || keyword == "bike" || keyword == "cycle":
		return domain.SessionBike
	case keyword == "swim":
		return domain.SessionSwim
	case keyword == "s&c" || keyword == "strength" || keyword == "gym" || keyword == "mobility":
		return domain.SessionStrength
	case strings.HasPrefix(keyword, "cross"):
		return domain.SessionCrossTrain
	case keyword == "rest":
		return domain.SessionRest
	}
	if t := detectSessionType(desc); t != domain.SessionOther {
		return t
	}
	return domain.SessionRest
}

func detectSessionType(text string) domain.SessionType {
	lower := strings.ToLower(text)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case containsAny("run", "jog", "parkrun", "track", "trail"):
		return domain.SessionRun
	case containsAny("bike", "cycl", "ride", "turbo", "spin"):
		return domain.SessionBike
	case containsAny("swim", "pool"):
		return domain.SessionSwim
	case containsAny("s&c", "strength", "gym", "mobility"):
		return domain.SessionStrength
	}
	return domain.SessionOther
}

// enrichSession fills numeric targets and zones that are not already set.
func enrichSession(s *domain.Session, text string) {
	if s.DurationMinutes == 0 {
		s.DurationMinutes = parseDuration(text)
	}
	if s.DistanceKm == 0 {
		s.DistanceKm = parseDistance(text)
	}
	zg := parseZones(text)
	if zg == nil {
		return
	}
	if s.ZoneGuidance == nil {
		s.ZoneGuidance = zg
		return
	}
	if s.ZoneGuidance.HR == "" {
		s.ZoneGuidance.HR = zg.HR
	}
	if s.ZoneGuidance.Pace == "" {
		s.ZoneGuidance.Pace = zg.Pace
	}
	if s.ZoneGuidance.Power == "" {
		s.ZoneGuidance.Power = zg.Power
	}
}

func parseDuration(text string) float64 {
	if m := hoursRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.ParseFloat(m[1], 64)
		mins := h * 60
		if m[2] != "" {
			extra, _ := strconv.ParseFloat(m[2], 64)
			mins += extra
		}
		return math.Round(mins)
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v
	}
	return 0
}

func parseDistance(text string) float64 {
	m := distanceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	if strings.HasPrefix(strings.ToLower(m[2]), "mi") {
		v *= kmPerMile
	}
	return math.Round(v*100) / 100
}

func parseZones(text string) *domain.ZoneGuidance {
	zg := &domain.ZoneGuidance{}
	if m := zoneRe.FindStringSubmatch(text); m != nil {
		zg.HR = m[1]
		if m[2] != "" {
			zg.HR += "-" + m[2]
		}
	} else if m := bpmRe.FindStringSubmatch(text); m != nil {
		zg.HR = m[1] + "-" + m[2]
	}
	if m := paceRe.FindStringSubmatch(text); m != nil {
		unit := "/km"
		if !strings.EqualFold(m[3], "km") {
			unit = "/mile"
		}
		zg.Pace = m[1] + unit
		if m[2] != "" {
			zg.Pace = m[1] + "-" + m[2] + unit
		}
	}
	if m := powerRe.FindStringSubmatch(text); m != nil {
		zg.Power = m[1]
	}
	if *zg == (domain.ZoneGuidance{}) {
		return nil
	}
	return zg
}
