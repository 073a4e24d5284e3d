package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Validation rule identifiers carried by every Violation.
const (
	RuleRequired           = "required"
	RuleType               = "type"
	RuleEmptyPlan          = "empty_plan"
	RuleWeekNegative       = "week_number_negative"
	RuleWeekDuplicate      = "week_number_duplicate"
	RuleWeekContiguous     = "week_number_contiguous"
	RuleSessionIDDuplicate = "session_id_duplicate"
	RuleSessionType        = "session_type"
	RulePriority           = "priority"
	RuleDayAssignment      = "day_assignment"
	RuleDayForbidden       = "day_assignment_schedule"
	RuleNegativeNumber     = "negative_number"
	RuleCompletionStatus   = "completion_status"
	RuleDate               = "date_format"
	RuleVersion            = "version"
)

// structuralRules are violations that only say a payload is incomplete or mistyped.
// Anything else means the generator produced a well-formed but wrong plan.
var structuralRules = map[string]bool{
	RuleRequired:  true,
	RuleType:      true,
	RuleEmptyPlan: true,
}

// Violation is one broken rule at a path inside the candidate plan.
type Violation struct {
	Path    string `json:"path" yaml:"path"`
	Rule    string `json:"rule" yaml:"rule"`
	Message string `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Rule)
}

// ValidationError lists every violated rule, never just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) add(path, rule, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{Path: path, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) hasViolations() bool {
	return len(e.Violations) > 0
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("plan validation failed (%d violations): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// HasRule reports whether any violation carries the given rule.
func (e *ValidationError) HasRule(rule string) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// StructuralOnly reports whether every violation is about missing or mistyped fields.
func (e *ValidationError) StructuralOnly() bool {
	for _, v := range e.Violations {
		if !structuralRules[v.Rule] {
			return false
		}
	}
	return true
}

// ExtractionKind distinguishes "nothing found" from "found but invalid".
type ExtractionKind string

const (
	ExtractionNoPayload      ExtractionKind = "no_payload"
	ExtractionPayloadInvalid ExtractionKind = "payload_invalid"
)

var (
	// ErrNoPayload matches ExtractionErrors of kind ExtractionNoPayload via errors.Is.
	ErrNoPayload = errors.New("no recognizable plan payload")
	// ErrPayloadInvalid matches ExtractionErrors of kind ExtractionPayloadInvalid via errors.Is.
	ErrPayloadInvalid = errors.New("plan payload failed validation")
)

// ExtractionError is returned when no tier produced an acceptable plan.
type ExtractionError struct {
	Kind   ExtractionKind
	Tier   Tier   // Tier that produced the invalid payload (PayloadInvalid only)
	Detail string
	Err    error // *ValidationError for PayloadInvalid
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed (%s)", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrNoPayload:
		return e.Kind == ExtractionNoPayload
	case ErrPayloadInvalid:
		return e.Kind == ExtractionPayloadInvalid
	}
	return false
}

// Violations returns the validation violations behind a PayloadInvalid error, if any.
func (e *ExtractionError) Violations() []Violation {
	var vErr *ValidationError
	if errors.As(e.Err, &vErr) {
		return vErr.Violations
	}
	return nil
}

// MergeError means the incoming plan could not be reconciled with the preserved weeks.
type MergeError struct {
	Reason string
	Err    error // Optional underlying *ValidationError
}

func (e *MergeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan merge failed: %s: %v", e.Reason, e.Err)
	}
	return "plan merge failed: " + e.Reason
}

func (e *MergeError) Unwrap() error { return e.Err }
