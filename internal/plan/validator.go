package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"kaizencoach/plan-service/internal/domain"
	"math"
	"sort"
	"strings"
	"time"
)

// ValidateOptions carries the profile data the validator needs but does not own.
type ValidateOptions struct {
	// ScheduleDisciplined permits weekday-specific day_assignment values.
	ScheduleDisciplined bool
}

// structuralOptions is used where day rules are checked later against the real profile.
var structuralOptions = ValidateOptions{ScheduleDisciplined: true}

const isoDate = "2006-01-02"

// Validate checks an untyped candidate (decoded JSON object, raw JSON bytes/string, or a
// *domain.TrainingPlan) and returns a typed plan with weeks sorted by week number.
// On failure the returned error is a *ValidationError listing every violation.
// Validate has no side effects and never mutates its input.
func Validate(candidate any, opts ValidateOptions) (*domain.TrainingPlan, error) {
	root, err := normalize(candidate)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("plan", RuleType, "candidate is not a JSON object: %v", err)
		return nil, vErr
	}

	vErr := &ValidationError{}
	obj, ok := root.(map[string]any)
	if !ok {
		vErr.add("plan", RuleType, "plan must be an object, got %s", typeName(root))
		return nil, vErr
	}
	validatePlanObject(obj, opts, vErr)
	if vErr.hasViolations() {
		return nil, vErr
	}

	plan, err := decodePlan(obj)
	if err != nil {
		vErr.add("plan", RuleType, "could not decode plan: %v", err)
		return nil, vErr
	}
	return plan, nil
}

// ValidatePlan runs the same rules over an already-typed plan.
func ValidatePlan(p *domain.TrainingPlan, opts ValidateOptions) error {
	if p == nil {
		vErr := &ValidationError{}
		vErr.add("plan", RuleRequired, "plan is missing")
		return vErr
	}
	_, err := Validate(p, opts)
	return err
}

func normalize(candidate any) (any, error) {
	var raw []byte
	switch c := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("candidate is nil")
	case map[string]any:
		return c, nil
	case []byte:
		raw = c
	case json.RawMessage:
		raw = c
	case string:
		raw = []byte(c)
	default:
		// Typed values (e.g. *domain.TrainingPlan) go through their JSON wire shape.
		b, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return decodeJSON(raw)
}

// decodeJSON decodes keeping numbers as json.Number so integer checks are exact.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodePlan(obj map[string]any) (*domain.TrainingPlan, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var p domain.TrainingPlan
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	if p.Version == 0 {
		p.Version = domain.CurrentPlanVersion
	}
	p.SortWeeks()
	return &p, nil
}

func validatePlanObject(obj map[string]any, opts ValidateOptions, vErr *ValidationError) {
	if v, present := obj["version"]; present && v != nil {
		n, ok := asInt(v)
		if !ok || n != domain.CurrentPlanVersion {
			vErr.add("version", RuleVersion, "version must be %d, got %v", domain.CurrentPlanVersion, v)
		}
	}
	for _, field := range []string{"created_at", "version_tag", "athlete_profile_ref", "athlete_goal", "goal_date", "goal_distance"} {
		if v, present := obj[field]; present && v != nil {
			if _, ok := v.(string); !ok {
				vErr.add(field, RuleType, "%s must be a string", field)
			}
		}
	}
	if v, present := obj["libraries"]; present && v != nil {
		if libs, ok := v.(map[string]any); !ok {
			vErr.add("libraries", RuleType, "libraries must be an object")
		} else {
			for k, lv := range libs {
				if _, ok := lv.(string); !ok {
					vErr.add("libraries."+k, RuleType, "library entries must be strings")
				}
			}
		}
	}

	rawWeeks, present := obj["weeks"]
	if !present || rawWeeks == nil {
		vErr.add("weeks", RuleRequired, "missing required field 'weeks'")
		return
	}
	weeks, ok := rawWeeks.([]any)
	if !ok {
		vErr.add("weeks", RuleType, "'weeks' must be a list")
		return
	}
	if len(weeks) == 0 {
		vErr.add("weeks", RuleEmptyPlan, "plan must have at least one week")
		return
	}

	weekNumbers := make(map[int]string, len(weeks))
	sessionIDs := make(map[string]string)
	for i, rw := range weeks {
		path := fmt.Sprintf("weeks[%d]", i)
		week, ok := rw.(map[string]any)
		if !ok {
			vErr.add(path, RuleType, "week must be an object")
			continue
		}
		validateWeek(week, path, opts, weekNumbers, sessionIDs, vErr)
	}
	validateContiguity(weekNumbers, vErr)
}

func validateWeek(week map[string]any, path string, opts ValidateOptions, weekNumbers map[int]string, sessionIDs map[string]string, vErr *ValidationError) {
	if rn, present := week["week_number"]; !present || rn == nil {
		vErr.add(path+".week_number", RuleRequired, "missing required field 'week_number'")
	} else if n, ok := asInt(rn); !ok {
		vErr.add(path+".week_number", RuleType, "week_number must be an integer, got %v", rn)
	} else if n < 0 {
		vErr.add(path+".week_number", RuleWeekNegative, "week_number must be non-negative, got %d", n)
	} else if first, dup := weekNumbers[n]; dup {
		vErr.add(path+".week_number", RuleWeekDuplicate, "duplicate week_number %d (first at %s)", n, first)
	} else {
		weekNumbers[n] = path
	}

	for _, field := range []string{"start_date", "end_date"} {
		if v, present := week[field]; present && v != nil {
			s, ok := v.(string)
			if !ok {
				vErr.add(path+"."+field, RuleType, "%s must be a string", field)
			} else if s != "" {
				if _, err := time.Parse(isoDate, s); err != nil {
					vErr.add(path+"."+field, RuleDate, "%s must be YYYY-MM-DD, got %q", field, s)
				}
			}
		}
	}
	for _, field := range []string{"phase", "description"} {
		if v, present := week[field]; present && v != nil {
			if _, ok := v.(string); !ok {
				vErr.add(path+"."+field, RuleType, "%s must be a string", field)
			}
		}
	}

	rawSessions, present := week["sessions"]
	if !present || rawSessions == nil {
		vErr.add(path+".sessions", RuleRequired, "missing required field 'sessions'")
		return
	}
	sessions, ok := rawSessions.([]any)
	if !ok {
		vErr.add(path+".sessions", RuleType, "'sessions' must be a list")
		return
	}
	for j, rs := range sessions {
		spath := fmt.Sprintf("%s.sessions[%d]", path, j)
		session, ok := rs.(map[string]any)
		if !ok {
			vErr.add(spath, RuleType, "session must be an object")
			continue
		}
		validateSession(session, spath, opts, sessionIDs, vErr)
	}
}

func validateSession(s map[string]any, path string, opts ValidateOptions, sessionIDs map[string]string, vErr *ValidationError) {
	// id
	if id, ok := requiredString(s, "id", path, vErr); ok {
		if strings.TrimSpace(id) == "" {
			vErr.add(path+".id", RuleRequired, "id must be a non-empty string")
		} else if first, dup := sessionIDs[id]; dup {
			vErr.add(path+".id", RuleSessionIDDuplicate, "duplicate session id %q (first at %s)", id, first)
		} else {
			sessionIDs[id] = path
		}
	}

	// type
	if t, ok := requiredString(s, "type", path, vErr); ok && !validSessionType(t) {
		vErr.add(path+".type", RuleSessionType, "invalid session type %q, must be one of %v", t, domain.ValidSessionTypes)
	}

	// priority
	if p, ok := requiredString(s, "priority", path, vErr); ok && !validPriority(p) {
		vErr.add(path+".priority", RulePriority, "invalid priority %q, must be one of %v", p, domain.ValidPriorities)
	}

	// day_assignment
	if day, ok := requiredString(s, "day_assignment", path, vErr); ok {
		switch {
		case domain.IsAnytime(day):
		case domain.IsWeekday(day):
			if !opts.ScheduleDisciplined {
				vErr.add(path+".day_assignment", RuleDayForbidden,
					"day-specific assignment %q is not allowed for a profile that is not schedule-disciplined; use %q", day, domain.DayAnytime)
			}
		default:
			vErr.add(path+".day_assignment", RuleDayAssignment, "day_assignment must be a weekday or %q, got %q", domain.DayAnytime, day)
		}
	}

	for _, field := range []string{"duration_minutes", "distance_km"} {
		if v, present := s[field]; present && v != nil {
			f, ok := asFloat(v)
			if !ok {
				vErr.add(path+"."+field, RuleType, "%s must be a number", field)
			} else if f < 0 {
				vErr.add(path+"."+field, RuleNegativeNumber, "%s must be non-negative, got %v", field, v)
			}
		}
	}
	if v, present := s["activity_id"]; present && v != nil {
		if _, ok := asInt(v); !ok {
			vErr.add(path+".activity_id", RuleType, "activity_id must be an integer")
		}
	}

	if v, present := s["completion_status"]; present && v != nil {
		cs, ok := v.(string)
		switch {
		case !ok:
			vErr.add(path+".completion_status", RuleType, "completion_status must be a string")
		case cs != string(domain.CompletionUnset) && cs != string(domain.CompletionCompleted) && cs != string(domain.CompletionSkipped):
			vErr.add(path+".completion_status", RuleCompletionStatus, "invalid completion_status %q", cs)
		}
	}

	if v, present := s["zone_guidance"]; present && v != nil {
		zg, ok := v.(map[string]any)
		if !ok {
			vErr.add(path+".zone_guidance", RuleType, "zone_guidance must be an object")
		} else {
			for k, zv := range zg {
				if _, ok := zv.(string); !ok {
					vErr.add(path+".zone_guidance."+k, RuleType, "zone references must be strings")
				}
			}
		}
	}
	for _, field := range []string{"date", "description", "s_and_c_routine", "completed_at"} {
		if v, present := s[field]; present && v != nil {
			if _, ok := v.(string); !ok {
				vErr.add(path+"."+field, RuleType, "%s must be a string", field)
			}
		}
	}
}

// validateContiguity requires the distinct week numbers to form start..end with start 0 or 1.
func validateContiguity(weekNumbers map[int]string, vErr *ValidationError) {
	if len(weekNumbers) == 0 {
		return
	}
	nums := make([]int, 0, len(weekNumbers))
	for n := range weekNumbers {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	if nums[0] > 1 {
		vErr.add("weeks", RuleWeekContiguous, "week numbers must start at 0 or 1, got %d", nums[0])
	}
	for i := 1; i < len(nums); i++ {
		if nums[i] != nums[i-1]+1 {
			vErr.add("weeks", RuleWeekContiguous, "week numbers must be contiguous: gap between %d and %d", nums[i-1], nums[i])
		}
	}
}

func requiredString(obj map[string]any, field, path string, vErr *ValidationError) (string, bool) {
	v, present := obj[field]
	if !present || v == nil {
		vErr.add(path+"."+field, RuleRequired, "missing required field '%s'", field)
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		vErr.add(path+"."+field, RuleType, "%s must be a string, got %s", field, typeName(v))
		return "", false
	}
	return s, true
}

func validSessionType(t string) bool {
	for _, v := range domain.ValidSessionTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}

func validPriority(p string) bool {
	for _, v := range domain.ValidPriorities {
		if string(v) == p {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
